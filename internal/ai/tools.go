package ai

import (
	"context"

	"go-storefront/internal/database"
	"go-storefront/internal/models"

	"gorm.io/gorm"
)

// OrderFinder is satisfied by *orders.Service.
type OrderFinder interface {
	ByCode(ctx context.Context, code string) (*models.Order, error)
}

// StoreTools answers tool calls from the live database.
type StoreTools struct {
	db        *gorm.DB
	orders    OrderFinder
	threshold int
}

func NewStoreTools(db *gorm.DB, orders OrderFinder, lowStockThreshold int) *StoreTools {
	return &StoreTools{db: db, orders: orders, threshold: lowStockThreshold}
}

func (t *StoreTools) DashboardStats(ctx context.Context) (*database.DashboardStats, error) {
	return database.GetDashboardStats(ctx, t.db, t.threshold)
}

func (t *StoreTools) LowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	return database.LowStockProducts(ctx, t.db, threshold, 50)
}

func (t *StoreTools) OrderByCode(ctx context.Context, code string) (*models.Order, error) {
	return t.orders.ByCode(ctx, code)
}
