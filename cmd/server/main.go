package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-storefront/internal/ai"
	"go-storefront/internal/auth"
	"go-storefront/internal/cart"
	"go-storefront/internal/catalog"
	"go-storefront/internal/config"
	"go-storefront/internal/database"
	"go-storefront/internal/handlers"
	"go-storefront/internal/orders"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("Database unavailable: ", err)
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	users := auth.NewUserService(db, issuer, cfg.BootstrapToken)
	catalogSvc := catalog.NewService(db, cfg.CatalogPageSize)
	orderSvc := orders.NewService(db, cfg.ShippingFlatFee, orders.WithStrictTransitions(cfg.StrictOrderTransitions))

	cartStore := cart.NewGormStore(db)
	purged, err := cartStore.PurgeBefore(context.Background(), time.Now().Add(-cfg.CartRetention))
	if err != nil {
		log.Printf("Warning: could not purge stale carts: %v", err)
	} else if purged > 0 {
		log.Printf("🧹 Purged %d carts idle for more than %s", purged, cfg.CartRetention)
	}
	carts := cart.NewService(cartStore, catalogSvc, cfg.ShippingFlatFee)

	assistant := ai.NewAssistant(cfg.GeminiAPIKey, cfg.GeminiModel,
		ai.NewStoreTools(db, orderSvc, cfg.LowStockThreshold))
	if !assistant.Enabled() {
		log.Println("🤖 GEMINI_API_KEY not set, assistant disabled")
	}

	router := handlers.NewRouter(cfg, db, issuer, handlers.Handlers{
		Catalog: handlers.NewCatalogHandler(catalogSvc, catalog.NewAdmin(db)),
		Cart:    handlers.NewCartHandler(carts, orderSvc, cfg.IsProduction()),
		Orders:  handlers.NewOrderHandler(orderSvc),
		Users:   handlers.NewUserHandler(users),
		Reports: handlers.NewReportHandler(db, cfg.LowStockThreshold),
		AI:      handlers.NewAIHandler(assistant),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Println("🚀 Server starting on " + cfg.BaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Println("✅ Server shutdown complete")
}
