package database

import (
	"context"
	"sort"

	"go-storefront/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DashboardStats holds the back-office summary
type DashboardStats struct {
	TotalSales       decimal.Decimal              `json:"total_sales"`
	TotalOrders      int64                        `json:"total_orders"`
	OrdersByStatus   map[models.OrderStatus]int64 `json:"orders_by_status"`
	LowStockProducts []models.Product             `json:"low_stock_products"`
	ActiveProducts   int64                        `json:"active_products"`
	TopSelling       []TopSeller                  `json:"top_selling"`
}

type TopSeller struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Sold        int64           `json:"sold"`
	Revenue     decimal.Decimal `json:"revenue"`
}

const (
	lowStockPreview = 5
	topSellersLimit = 5
)

// GetDashboardStats summarises sales and inventory. Cancelled orders do not
// count towards sales.
func GetDashboardStats(ctx context.Context, db *gorm.DB, lowStockThreshold int) (*DashboardStats, error) {
	db = db.WithContext(ctx)
	stats := DashboardStats{OrdersByStatus: map[models.OrderStatus]int64{}}

	// COALESCE ensures we get 0 instead of NULL if no orders exist
	err := db.Model(&models.Order{}).
		Where("status <> ?", models.OrderCancelled).
		Select("COALESCE(SUM(total), 0)").
		Row().Scan(&stats.TotalSales)
	if err != nil {
		return nil, err
	}

	if err := db.Model(&models.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, err
	}

	var grouped []struct {
		Status models.OrderStatus
		Count  int64
	}
	err = db.Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&grouped).Error
	if err != nil {
		return nil, err
	}
	for _, g := range grouped {
		stats.OrdersByStatus[g.Status] = g.Count
	}

	stats.LowStockProducts, err = LowStockProducts(ctx, db, lowStockThreshold, lowStockPreview)
	if err != nil {
		return nil, err
	}

	err = db.Model(&models.Product{}).
		Where("status = ?", models.ProductActive).
		Count(&stats.ActiveProducts).Error
	if err != nil {
		return nil, err
	}

	// Best sellers by units, from the order snapshots
	stats.TopSelling = []TopSeller{}
	err = db.Table("order_items").
		Select("order_items.product_id AS product_id, MAX(order_items.name_snapshot) AS product_name, " +
			"SUM(order_items.quantity) AS sold, SUM(order_items.quantity * order_items.price_snapshot) AS revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status <> ?", models.OrderCancelled).
		Group("order_items.product_id").
		Order("sold DESC").
		Order("product_id ASC").
		Limit(topSellersLimit).
		Scan(&stats.TopSelling).Error
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

// LowStockProducts returns active products at or below threshold, scarcest first.
func LowStockProducts(ctx context.Context, db *gorm.DB, threshold, limit int) ([]models.Product, error) {
	var products []models.Product
	err := db.WithContext(ctx).
		Where("status = ? AND stock <= ?", models.ProductActive, threshold).
		Order("stock ASC").
		Order("id ASC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// ValuationItem is one product row of the inventory valuation
type ValuationItem struct {
	ProductID  uint            `json:"product_id"`
	Name       string          `json:"name"`
	Stock      int             `json:"stock"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// CategoryValuation groups the rows of one category
type CategoryValuation struct {
	CategoryID   uint            `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Items        []ValuationItem `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type InventoryValuation struct {
	Categories []CategoryValuation `json:"categories"`
	GrandTotal decimal.Decimal     `json:"grand_total"`
}

// GetInventoryValuation values the stock on hand at its current selling
// price, grouped by category name.
func GetInventoryValuation(ctx context.Context, db *gorm.DB) (*InventoryValuation, error) {
	var products []models.Product
	err := db.WithContext(ctx).
		Preload("Category").
		Where("stock > 0").
		Order("name ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	grouped := make(map[uint]*CategoryValuation)
	var order []uint
	valuation := InventoryValuation{Categories: []CategoryValuation{}, GrandTotal: decimal.Zero}
	for _, p := range products {
		group, ok := grouped[p.CategoryID]
		if !ok {
			name := p.Category.Name
			if name == "" {
				name = "Uncategorized"
			}
			group = &CategoryValuation{CategoryID: p.CategoryID, CategoryName: name, Items: []ValuationItem{}, Subtotal: decimal.Zero}
			grouped[p.CategoryID] = group
			order = append(order, p.CategoryID)
		}

		price := p.EffectivePrice()
		total := price.Mul(decimal.NewFromInt(int64(p.Stock)))
		group.Items = append(group.Items, ValuationItem{
			ProductID:  p.ID,
			Name:       p.Name,
			Stock:      p.Stock,
			UnitPrice:  price,
			TotalValue: total,
		})
		group.Subtotal = group.Subtotal.Add(total)
		valuation.GrandTotal = valuation.GrandTotal.Add(total)
	}

	for _, id := range order {
		valuation.Categories = append(valuation.Categories, *grouped[id])
	}
	sort.Slice(valuation.Categories, func(i, j int) bool {
		return valuation.Categories[i].CategoryName < valuation.Categories[j].CategoryName
	})
	return &valuation, nil
}
