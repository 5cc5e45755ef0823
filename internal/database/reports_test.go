package database

import (
	"context"
	"testing"

	"go-storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDashboardStats(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	ctx := context.Background()

	cat := models.Category{Name: "Hogar", Slug: "hogar"}
	require.NoError(t, db.Create(&cat).Error)

	products := []models.Product{
		{Name: "Lamp", Slug: "lamp", Price: decimal.NewFromInt(100), Stock: 3, Status: models.ProductActive, CategoryID: cat.ID},
		{Name: "Chair", Slug: "chair", Price: decimal.NewFromInt(200), Stock: 40, Status: models.ProductActive, CategoryID: cat.ID},
		{Name: "Rug", Slug: "rug", Price: decimal.NewFromInt(50), Stock: 1, Status: models.ProductDraft, CategoryID: cat.ID},
		{Name: "Vase", Slug: "vase", Price: decimal.NewFromInt(30), Stock: 10, Status: models.ProductActive, CategoryID: cat.ID},
	}
	require.NoError(t, db.Create(&products).Error)

	orders := []models.Order{
		{Code: "AAAA1111", CustomerName: "Ana", Phone: "1", Address: "a", City: "c", Status: models.OrderPending, Subtotal: decimal.NewFromInt(100), Shipping: decimal.NewFromInt(10), Total: decimal.NewFromInt(110)},
		{Code: "BBBB2222", CustomerName: "Bo", Phone: "1", Address: "a", City: "c", Status: models.OrderPaid, Subtotal: decimal.NewFromInt(200), Shipping: decimal.NewFromInt(10), Total: decimal.NewFromInt(210)},
		{Code: "CCCC3333", CustomerName: "Cy", Phone: "1", Address: "a", City: "c", Status: models.OrderCancelled, Subtotal: decimal.NewFromInt(500), Shipping: decimal.NewFromInt(10), Total: decimal.NewFromInt(510)},
	}
	require.NoError(t, db.Create(&orders).Error)

	items := []models.OrderItem{
		{OrderID: orders[0].ID, ProductID: products[0].ID, NameSnapshot: "Lamp", PriceSnapshot: decimal.NewFromInt(100), Quantity: 1},
		{OrderID: orders[1].ID, ProductID: products[0].ID, NameSnapshot: "Lamp", PriceSnapshot: decimal.NewFromInt(100), Quantity: 2},
		{OrderID: orders[1].ID, ProductID: products[3].ID, NameSnapshot: "Vase", PriceSnapshot: decimal.NewFromInt(30), Quantity: 1},
		{OrderID: orders[2].ID, ProductID: products[3].ID, NameSnapshot: "Vase", PriceSnapshot: decimal.NewFromInt(30), Quantity: 9},
	}
	require.NoError(t, db.Create(&items).Error)

	stats, err := GetDashboardStats(ctx, db, 10)
	require.NoError(t, err)

	assert.True(t, stats.TotalSales.Equal(decimal.NewFromInt(320)), stats.TotalSales.String())
	assert.Equal(t, int64(3), stats.TotalOrders)
	assert.Equal(t, int64(1), stats.OrdersByStatus[models.OrderPending])
	assert.Equal(t, int64(1), stats.OrdersByStatus[models.OrderPaid])
	assert.Equal(t, int64(1), stats.OrdersByStatus[models.OrderCancelled])
	assert.Equal(t, int64(3), stats.ActiveProducts)

	require.Len(t, stats.LowStockProducts, 2)
	assert.Equal(t, "Lamp", stats.LowStockProducts[0].Name)
	assert.Equal(t, "Vase", stats.LowStockProducts[1].Name)

	require.Len(t, stats.TopSelling, 2, "cancelled orders do not count")
	assert.Equal(t, "Lamp", stats.TopSelling[0].ProductName)
	assert.Equal(t, int64(3), stats.TopSelling[0].Sold)
	assert.True(t, stats.TopSelling[0].Revenue.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, int64(1), stats.TopSelling[1].Sold)
}

func TestGetInventoryValuation(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)

	home := models.Category{Name: "Home", Slug: "home"}
	garden := models.Category{Name: "Garden", Slug: "garden"}
	require.NoError(t, db.Create(&home).Error)
	require.NoError(t, db.Create(&garden).Error)
	products := []models.Product{
		{Name: "Lamp", Slug: "lamp", Price: decimal.NewFromInt(100), Stock: 3, Status: models.ProductActive, CategoryID: home.ID},
		{Name: "Chair", Slug: "chair", Price: decimal.NewFromInt(200), SalePrice: decimal.NewNullDecimal(decimal.NewFromInt(150)), Stock: 2, Status: models.ProductActive, CategoryID: home.ID},
		{Name: "Hose", Slug: "hose", Price: decimal.NewFromInt(40), Stock: 5, Status: models.ProductDraft, CategoryID: garden.ID},
		{Name: "Rake", Slug: "rake", Price: decimal.NewFromInt(25), Stock: 0, Status: models.ProductActive, CategoryID: garden.ID},
	}
	require.NoError(t, db.Create(&products).Error)

	v, err := GetInventoryValuation(context.Background(), db)
	require.NoError(t, err)

	require.Len(t, v.Categories, 2)
	assert.Equal(t, "Garden", v.Categories[0].CategoryName)
	assert.Len(t, v.Categories[0].Items, 1, "out of stock rows skipped")
	assert.True(t, v.Categories[0].Subtotal.Equal(decimal.NewFromInt(200)))
	assert.True(t, v.Categories[1].Subtotal.Equal(decimal.NewFromInt(600)))
	assert.True(t, v.GrandTotal.Equal(decimal.NewFromInt(800)))
}

func TestGetDashboardStatsEmpty(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)

	stats, err := GetDashboardStats(context.Background(), db, 10)
	require.NoError(t, err)
	assert.True(t, stats.TotalSales.IsZero())
	assert.Zero(t, stats.TotalOrders)
	assert.Empty(t, stats.LowStockProducts)
}

func TestDialector(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres", "sqlite"} {
		d, err := Dialector(driver, "dsn")
		require.NoError(t, err)
		assert.Equal(t, driver, d.Name())
	}
	_, err := Dialector("oracle", "dsn")
	assert.Error(t, err)
}
