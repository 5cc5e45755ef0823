// Package seed loads demo data for local development. Running it twice is
// harmless: existing rows, matched by email or slug, are left untouched.
package seed

import (
	"context"
	"fmt"
	"log"

	"go-storefront/internal/auth"
	"go-storefront/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const DemoAdminEmail = "admin@storefront.local"

type Options struct {
	// CreateAdmin adds the demo administrator when no administrator exists.
	// Production deployments use the bootstrap endpoint instead.
	CreateAdmin   bool
	AdminPassword string
	Cost          int
}

type Result struct {
	AdminCreated bool
	Created      int
	Skipped      int
}

type demoProduct struct {
	name, slug, description string
	price, sale             int64
	stock                   int
	category                string
	image                   string
}

var demoCategories = []models.Category{
	{Name: "Electrónica", Slug: "electronica"},
	{Name: "Hogar", Slug: "hogar"},
}

var demoProducts = []demoProduct{
	{"Smartphone Pro Max", "smartphone-pro-max", "6.7 inch AMOLED display, latest generation processor and a 108MP camera.",
		899000, 799000, 15, "electronica", "https://images.unsplash.com/photo-1511707171634-5f897ff02aa9?w=800"},
	{"Laptop Ultra Slim", "laptop-ultra-slim", "Thin laptop with an i7 processor, 16GB RAM, 512GB SSD and a 14 inch Full HD screen.",
		1299000, 0, 8, "electronica", "https://images.unsplash.com/photo-1496181133206-80ce9b88a853?w=800"},
	{"Auriculares Inalámbricos", "auriculares-inalambricos", "Active noise cancelling, 30 hour battery and Hi-Fi sound.",
		299000, 249000, 25, "electronica", "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=800"},
	{"Sofá Moderno 3 Plazas", "sofa-moderno-3-plazas", "Comfortable three seat sofa upholstered in high quality fabric.",
		1599000, 0, 5, "hogar", "https://images.unsplash.com/photo-1555041469-a586c61ea9bc?w=800"},
	{"Mesa de Comedor Extensible", "mesa-comedor-extensible", "Solid wood extendable dining table for 6 to 8 people.",
		899000, 0, 3, "hogar", "https://images.unsplash.com/photo-1586023492125-27b2c045efd7?w=800"},
	{"Lámpara de Pie LED", "lampara-pie-led", "Dimmable LED floor lamp with a minimalist design.",
		149000, 119000, 12, "hogar", "https://images.unsplash.com/photo-1507473885765-e6ed057f782c?w=800"},
}

func Run(ctx context.Context, db *gorm.DB, opts Options) (*Result, error) {
	if opts.Cost == 0 {
		opts.Cost = bcrypt.DefaultCost
	}
	db = db.WithContext(ctx)
	res := &Result{}

	if opts.CreateAdmin {
		created, err := seedAdmin(db, opts)
		if err != nil {
			return nil, err
		}
		res.AdminCreated = created
	} else {
		log.Println("ℹ️ Production mode: no demo admin, use /api/admin/bootstrap")
	}

	categoryIDs := make(map[string]uint, len(demoCategories))
	for _, c := range demoCategories {
		category := c
		if err := db.Where(models.Category{Slug: c.Slug}).FirstOrCreate(&category).Error; err != nil {
			return nil, fmt.Errorf("seed category %s: %w", c.Slug, err)
		}
		categoryIDs[c.Slug] = category.ID
	}
	log.Println("✅ Categories verified")

	for _, p := range demoProducts {
		var existing int64
		if err := db.Model(&models.Product{}).Where("slug = ?", p.slug).Count(&existing).Error; err != nil {
			return nil, fmt.Errorf("check product %s: %w", p.slug, err)
		}
		if existing > 0 {
			res.Skipped++
			continue
		}
		product := models.Product{
			Name:        p.name,
			Slug:        p.slug,
			Description: p.description,
			Price:       decimal.NewFromInt(p.price),
			Stock:       p.stock,
			Status:      models.ProductActive,
			CategoryID:  categoryIDs[p.category],
			Images:      []models.ProductImage{{URL: p.image, Position: 0}},
		}
		if p.sale > 0 {
			product.SalePrice = decimal.NewNullDecimal(decimal.NewFromInt(p.sale))
		}
		if err := db.Create(&product).Error; err != nil {
			return nil, fmt.Errorf("seed product %s: %w", p.slug, err)
		}
		res.Created++
	}
	log.Printf("🎉 Seed complete (%d created, %d existing)", res.Created, res.Skipped)
	return res, nil
}

func seedAdmin(db *gorm.DB, opts Options) (bool, error) {
	var admins int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error; err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if admins > 0 {
		log.Println("ℹ️ An admin already exists, skipping")
		return false, nil
	}
	if opts.AdminPassword == "" {
		return false, fmt.Errorf("demo admin password is required")
	}
	hash, err := auth.HashPassword(opts.AdminPassword, opts.Cost)
	if err != nil {
		return false, err
	}
	admin := models.User{Email: DemoAdminEmail, PasswordHash: hash, Role: models.RoleAdmin}
	if err := db.Where(models.User{Email: DemoAdminEmail}).FirstOrCreate(&admin).Error; err != nil {
		return false, fmt.Errorf("create demo admin: %w", err)
	}
	log.Printf("✅ Demo admin created: %s", admin.Email)
	return true, nil
}
