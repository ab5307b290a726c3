package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/quickserve/walkup-orders/internal/broadcast"
	"github.com/quickserve/walkup-orders/internal/cart"
	"github.com/quickserve/walkup-orders/internal/catalog"
	"github.com/quickserve/walkup-orders/internal/config"
	"github.com/quickserve/walkup-orders/internal/httpx"
	kafkax "github.com/quickserve/walkup-orders/internal/kafka"
	"github.com/quickserve/walkup-orders/internal/kitchen"
	"github.com/quickserve/walkup-orders/internal/metrics"
	"github.com/quickserve/walkup-orders/internal/orders"
	"github.com/quickserve/walkup-orders/internal/postgres"
	"github.com/quickserve/walkup-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis: realtime transport + status cache
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer for the async order-event stream
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderEvents, 1024)
	prod.Start(ctx)

	m := metrics.New("api")

	// One broadcaster per process, injected everywhere that publishes.
	repo := &orders.PostgresRepo{DB: db}
	bc := &broadcast.Broadcaster{
		Repo:      repo,
		Transport: &redisx.PubSub{C: rdb},
		Metrics:   m,
	}

	menu := &catalog.Repo{DB: db}
	svc := &orders.Service{
		Repo:     repo,
		Catalog:  menu,
		Cart:     &cart.Repo{DB: db},
		Seq:      &orders.Sequencer{},
		Machine:  &orders.Machine{Repo: repo, Notify: bc},
		Notify:   bc,
		Events:   prod,
		Producer: cfg.ServiceName,
		Metrics:  m,
	}

	router := httpx.NewRouter(m)
	oh := &httpx.OrdersHandler{Svc: svc, Cache: &redisx.StatusCache{C: rdb}}
	oh.Register(router)
	kh := &httpx.KitchenHandler{Tickets: &kitchen.PostgresRepo{DB: db}}
	kh.Register(router)
	mh := &httpx.MenuHandler{Menu: menu}
	mh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // closes the inbox -> flush & close writer
	cancel()
	prod.WaitClosed()
}
