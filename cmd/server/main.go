package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"avatarbook/internal/auth"
	"avatarbook/internal/booking"
	"avatarbook/internal/checkout"
	"avatarbook/internal/commons"
	"avatarbook/internal/config"
	"avatarbook/internal/content"
	"avatarbook/internal/delivery"
	"avatarbook/internal/fulfillment"
	"avatarbook/internal/infrastructure/avatarapi"
	"avatarbook/internal/infrastructure/logger"
	"avatarbook/internal/infrastructure/metrics"
	"avatarbook/internal/infrastructure/mysql"
	"avatarbook/internal/infrastructure/rabbitmq"
	"avatarbook/internal/infrastructure/redis"
	stripeinfra "avatarbook/internal/infrastructure/stripe"
	"avatarbook/internal/notification"
	"avatarbook/internal/order/repository"
	"avatarbook/internal/payment"
	"avatarbook/internal/product"
	"avatarbook/internal/server"
)

func main() {
	configPath := os.Getenv("AVATARBOOK_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	var locker commons.Locker = commons.NoLocker{}
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(cfg.Redis)
		if err != nil {
			zapLogger.Warn("redis unavailable, webhook locks disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			locker = redis.NewIdempotencyStore(rdb, cfg.Redis.LockTTL)
			zapLogger.Info("redis connected")
		}
	}

	var publisher notification.Publisher = notification.NewLogPublisher(zapLogger)
	if cfg.RabbitMQ.URL != "" {
		amqpPublisher, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			zapLogger.Warn("rabbitmq unavailable, notifications will only be logged", zap.Error(err))
		} else {
			defer amqpPublisher.Close()
			publisher = amqpPublisher
			zapLogger.Info("rabbitmq connected")
		}
	}

	orders := repository.NewMySQLOrderRepository(db)
	videoJobs := repository.NewMySQLVideoJobRepository(db)
	conversations := repository.NewMySQLConversationRepository(db)

	notifier := notification.NewService(publisher, cfg.Server.PublicBaseURL, zapLogger)
	m := metrics.New(prometheus.DefaultRegisterer)
	gateway := stripeinfra.NewCheckoutGateway(cfg.Stripe.SecretKey, nil)
	provider := avatarapi.NewClient(cfg.Provider)

	bookingSvc, bookingCtrl, gate, err := booking.NewModule(orders, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("creating booking module", zap.Error(err))
	}

	catalog, productCtrl, err := product.NewModule(cfg.Pricing, zapLogger)
	if err != nil {
		zapLogger.Fatal("creating product catalog", zap.Error(err))
	}

	checkoutCtrl := checkout.NewModule(bookingSvc, orders, gateway, catalog, gate, cfg, zapLogger)
	dispatcher, fulfillmentCtrl := fulfillment.NewModule(orders, videoJobs, conversations, provider, notifier, cfg, zapLogger)
	paymentCtrl := payment.NewModule(orders, locker, notifier, dispatcher, m, cfg, zapLogger)
	contentCtrl := content.NewModule(orders, videoJobs, conversations, notifier, locker, m, cfg, zapLogger)
	_, deliveryCtrl := delivery.NewModule(orders, notifier, cfg, zapLogger)

	router := server.NewRouter(server.Controllers{
		Booking:     bookingCtrl,
		Product:     productCtrl,
		Checkout:    checkoutCtrl,
		Payment:     paymentCtrl,
		Content:     contentCtrl,
		Delivery:    deliveryCtrl,
		Fulfillment: fulfillmentCtrl,
	}, server.RouterDeps{
		Metrics:     m,
		Gatherer:    prometheus.DefaultGatherer,
		Operators:   auth.NewOperatorTokens(cfg.Security),
		RateLimiter: server.NewRateLimiter(cfg.RateLimit),
		TrustProxy:  cfg.Server.TrustProxy,
		HealthCheck: db.PingContext,
	}, zapLogger)

	srv := server.New(cfg.Server.Port, cfg.Provider.Timeout, router, zapLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}
