package handlers

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-storefront/internal/apperr"
	"go-storefront/internal/config"
	"go-storefront/internal/middleware"
	"go-storefront/internal/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Catalog *CatalogHandler
	Cart    *CartHandler
	Orders  *OrderHandler
	Users   *UserHandler
	Reports *ReportHandler
	AI      *AIHandler
}

func NewRouter(cfg *config.Config, db *gorm.DB, tokens middleware.TokenValidator, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", bootstrapHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", health(db))
	r.POST("/login", h.Users.Login)

	// --- FEATURE FLAG: Customer Registration ---
	if cfg.AllowRegistration {
		r.POST("/register", h.Users.Register)
		log.Println("⚠️ Registration route is OPEN.")
	} else {
		log.Println("🔒 Registration route is DISABLED.")
	}

	api := r.Group("/api")
	api.Use(middleware.OptionalAuth(tokens))
	{
		api.GET("/products", h.Catalog.ListProducts)
		api.GET("/products/:id", h.Catalog.GetProduct)
		api.GET("/products/slug/:slug", h.Catalog.GetProductBySlug)
		api.GET("/categories", h.Catalog.ListCategories)

		api.GET("/cart", h.Cart.GetCart)
		api.POST("/cart/items", h.Cart.AddItem)
		api.PUT("/cart/items/:productId", h.Cart.UpdateItem)
		api.DELETE("/cart/items/:productId", h.Cart.RemoveItem)
		api.DELETE("/cart", h.Cart.ClearCart)
		api.POST("/checkout", h.Cart.Checkout)

		api.POST("/orders", h.Orders.CreateOrder)
		api.GET("/orders", h.Orders.ListOrders)
		api.GET("/orders/code/:code", h.Orders.GetByCode)

		// Token-gated, not role-gated: there is no admin yet.
		api.POST("/admin/bootstrap", h.Users.Bootstrap)
	}

	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(tokens), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/orders/:id", h.Orders.GetOrder)
		admin.PUT("/orders/:id/status", h.Orders.UpdateStatus)

		admin.POST("/products", h.Catalog.CreateProduct)
		admin.PUT("/products/:id", h.Catalog.UpdateProduct)
		admin.DELETE("/products/:id", h.Catalog.DeleteProduct)

		admin.POST("/categories", h.Catalog.CreateCategory)
		admin.PUT("/categories/:id", h.Catalog.UpdateCategory)
		admin.DELETE("/categories/:id", h.Catalog.DeleteCategory)

		admin.GET("/users", h.Users.ListUsers)
		admin.POST("/users", h.Users.CreateUser)

		admin.GET("/reports/dashboard", h.Reports.Dashboard)
		admin.GET("/reports/valuation", h.Reports.InventoryValuation)
		admin.GET("/audit-logs", h.Reports.AuditLogs)

		admin.POST("/ask", h.AI.Ask)
	}

	mountFrontend(r, cfg.WebDir)
	return r
}

func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "online"})
	}
}

// mountFrontend serves a built storefront SPA from dir when one is present.
// Unknown non-API paths fall back to index.html so client-side routes work.
func mountFrontend(r *gin.Engine, dir string) {
	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); dir == "" || err != nil {
		r.NoRoute(notFound)
		return
	}
	r.Static("/assets", filepath.Join(dir, "assets"))
	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || c.Request.Method != http.MethodGet {
			notFound(c)
			return
		}
		c.File(index)
	})
	log.Printf("🖥️ Serving frontend from %s", dir)
}

func notFound(c *gin.Context) {
	respondError(c, apperr.NotFound("route %s %s not found", c.Request.Method, c.Request.URL.Path))
}
