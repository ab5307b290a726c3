package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/quickserve/walkup-orders/internal/config"
	"github.com/quickserve/walkup-orders/internal/migrate"
	"github.com/quickserve/walkup-orders/internal/postgres"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}
	log.Println("migrations applied")
}
