package main

import (
	"context"
	"log"
	"os"

	"go-storefront/internal/config"
	"go-storefront/internal/database"
	"go-storefront/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("Database unavailable: ", err)
	}

	log.Println("🌱 Seeding demo data...")
	_, err = seed.Run(context.Background(), db, seed.Options{
		CreateAdmin:   !cfg.IsProduction(),
		AdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
	})
	if err != nil {
		log.Fatal("❌ Seed failed: ", err)
	}
}
