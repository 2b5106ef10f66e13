package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"seara_joias/internal/auth"
	"seara_joias/internal/config"
	"seara_joias/internal/lifecycle"
	"seara_joias/internal/model"
	"seara_joias/internal/notify"
	"seara_joias/internal/queue"
	"seara_joias/internal/router"
	"seara_joias/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Product{},
		&model.Order{},
		&model.StockAdjustment{},
		&model.NotificationEntry{},
	); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	var rdb *rd.Client
	if cfg.RedisAddr != "" {
		rdb = rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := notify.NewHub()
	var publisher notify.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		publisher = producer

		consumer := queue.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, db)
		defer consumer.Close()
		go consumer.Run(ctx)
	}
	notifier := notify.NewNotifier(hub, publisher)

	deps := router.Deps{
		Products: store.NewProductStore(db),
		Orders:   store.NewOrderStore(db),
		Manager:  lifecycle.NewManager(db, notifier),
		Auth:     auth.NewService(cfg.AdminEmail, cfg.AdminPassword, cfg.JWTSecret, cfg.TokenTTL),
		Notifier: notifier,
		Hub:      hub,
		RDB:      rdb,
		Cfg:      cfg,
	}

	r := gin.Default()
	router.Setup(r, deps)

	log.Printf("listening on %s", cfg.HTTPAddr)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
