package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"freshops/api/internal/config"
	"freshops/api/internal/model"
	"freshops/api/internal/server"
	"freshops/api/internal/service"

	_ "freshops/api/docs"
)

// @title FreshOps API
// @version 1.0
// @description Fresh produce distribution operations API: fleet, maintenance, load-and-route planning and picking boards.

// @contact.name API Support
// @contact.email support@freshops.local

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:3000
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	log.Println("[API] Starting FreshOps API Server...")

	// Load .env if present, real env takes precedence
	if err := godotenv.Load(); err == nil {
		log.Println("[API] Loaded .env file")
	}

	// Load configuration
	cfg := config.Load()

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("[API] Failed to connect to database: %v", err)
	}
	log.Println("[API] Connected to database")

	// Auto migrate
	if err := autoMigrate(db); err != nil {
		log.Fatalf("[API] Failed to migrate database: %v", err)
	}
	log.Println("[API] Database migrated")

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("[API] Failed to connect to Redis: %v", err)
	}
	log.Println("[API] Connected to Redis")
	defer redisClient.Close()

	// Connect to NATS
	natsConn, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		log.Fatalf("[API] Failed to connect to NATS: %v", err)
	}
	log.Println("[API] Connected to NATS")
	defer natsConn.Close()

	// Attachment store for maintenance receipts
	attachmentStore, err := service.NewAttachmentStore(service.AttachmentStoreOptions{
		Endpoint:   cfg.Minio.Endpoint,
		AccessKey:  cfg.Minio.AccessKey,
		SecretKey:  cfg.Minio.SecretKey,
		Bucket:     cfg.Minio.Bucket,
		UseSSL:     cfg.Minio.UseSSL,
		PublicBase: cfg.Minio.PublicBase,
	})
	if err != nil {
		log.Fatalf("[API] Failed to create attachment store: %v", err)
	}
	if err := attachmentStore.EnsureBucket(ctx); err != nil {
		// 存储不可用时附件功能降级，不阻断启动
		log.Printf("[API] Attachment bucket unavailable: %v", err)
	} else {
		log.Println("[API] Attachment store ready")
	}

	// Create and setup server
	srv := server.NewServer(cfg, db, redisClient, natsConn, attachmentStore)
	srv.Setup()

	// Start picking delay checker
	boardService := service.NewBoardService(db, natsConn)
	delayedChecker := service.NewDelayedChecker(boardService, natsConn, cfg.DelayedCheckInterval)
	delayedChecker.Start()
	srv.SetDelayedChecker(delayedChecker)
	log.Println("[API] Delayed order checker started")

	// Start webhook dispatcher
	webhookDispatcher := service.NewWebhookDispatcher(service.NewWebhookService(db), natsConn)
	if err := webhookDispatcher.Start(); err != nil {
		log.Printf("[API] Webhook dispatcher unavailable: %v", err)
	}

	// Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	go func() {
		if err := srv.Run(addr); err != nil {
			log.Fatalf("[API] Failed to start server: %v", err)
		}
	}()

	log.Printf("[API] Server ready on %s", addr)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Println("[API] Shutting down...")

	// Graceful shutdown
	webhookDispatcher.Stop()
	srv.Shutdown()
	log.Println("[API] Server stopped")
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.LoginLog{},
		&model.OperationLog{},
		&model.Vehicle{},
		&model.Driver{},
		&model.ActivityLog{},
		&model.MaintenanceSchedule{},
		&model.MaintenanceLog{},
		&model.Order{},
		&model.OrderItem{},
		&model.Route{},
		&model.RouteStop{},
		&model.Webhook{},
		&model.WebhookDelivery{},
	)
}
