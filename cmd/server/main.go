package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AP5B/backend/config"
	"github.com/AP5B/backend/internal/api"
	"github.com/AP5B/backend/internal/broker"
	"github.com/AP5B/backend/internal/mercadopago"
	"github.com/AP5B/backend/internal/redisclient"
	"github.com/AP5B/backend/internal/service"
	"github.com/AP5B/backend/internal/store"
	"github.com/AP5B/backend/internal/util"
	"github.com/AP5B/backend/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting tutoring backend")

	tp, err := util.InitTracer("tutoring-backend", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicBooking)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	mpClient := mercadopago.NewClient(mercadopago.Config{
		BaseURL:             cfg.Mercadopago.BaseURL,
		ClientID:            cfg.Mercadopago.ClientID,
		ClientSecret:        cfg.Mercadopago.ClientSecret,
		RedirectURI:         cfg.Mercadopago.RedirectURI,
		PlatformAccessToken: cfg.Mercadopago.PlatformToken,
		Timeout:             time.Duration(cfg.Mercadopago.TimeoutSeconds) * time.Second,
	})

	oauthService := service.NewOAuthService(db, mpClient)
	transactionService := service.NewTransactionService(db, db, oauthService, mpClient, redisClient, eventPublisher, cfg.Server.PublicBaseURL)
	requestService := service.NewRequestService(db, db, transactionService, eventPublisher)
	offerService := service.NewOfferService(db)
	availabilityService := service.NewAvailabilityService(db)
	reviewService := service.NewReviewService(db, db)
	accountService := service.NewAccountService(db)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	auditConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicBooking, cfg.Kafka.ConsumerGroup)
	auditWorker := worker.NewAuditWorker(auditConsumer, db)
	go func() {
		if err := auditWorker.Start(workerCtx); err != nil {
			log.Printf("Audit worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(
		requestService,
		transactionService,
		oauthService,
		offerService,
		availabilityService,
		reviewService,
		accountService,
	)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	auditWorker.Stop()

	log.Println("Server exited")
}
