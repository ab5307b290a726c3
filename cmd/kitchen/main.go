package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/quickserve/walkup-orders/internal/config"
	kafkax "github.com/quickserve/walkup-orders/internal/kafka"
	"github.com/quickserve/walkup-orders/internal/kitchen"
	"github.com/quickserve/walkup-orders/internal/orders"
	"github.com/quickserve/walkup-orders/internal/postgres"
	"github.com/quickserve/walkup-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &kitchen.Service{
		Repo:  &kitchen.PostgresRepo{DB: db},
		Dedup: &redisx.Dedup{C: rdb, Service: cfg.ServiceName + "-kitchen"},
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.KitchenGroup, orders.TopicOrderEvents, cfg.KitchenWorkers)

	go func() {
		log.Printf("kitchen consumer started: group=%s topic=%s workers=%d",
			cfg.KitchenGroup, orders.TopicOrderEvents, cfg.KitchenWorkers)
		if err := cons.Start(ctx, svc.HandleOrderEvent); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
