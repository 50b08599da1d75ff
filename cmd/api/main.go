package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/azizikri/vinyl-checkout/internal/config"
	httphandler "github.com/azizikri/vinyl-checkout/internal/delivery/http"
	"github.com/azizikri/vinyl-checkout/internal/delivery/kafka"
	"github.com/azizikri/vinyl-checkout/internal/logger"
	"github.com/azizikri/vinyl-checkout/internal/repository"
	"github.com/azizikri/vinyl-checkout/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if err := run(cfg, log); err != nil {
		log.Fatal("service_failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := initDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool, cfg.DB.MigrationsDir, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	shippingFee, err := decimal.NewFromString(cfg.Checkout.ShippingFee)
	if err != nil {
		return fmt.Errorf("parse CHECKOUT_SHIPPING_FEE: %w", err)
	}

	var (
		kafkaClient *kgo.Client
		retryClient *kgo.Client
		replyClient *kgo.Client
		events      usecase.EventPublisher = kafka.LogPublisher{}
	)

	if cfg.EventDrivenEnabled {
		kafkaClient, err = newConsumerClient(
			cfg.Brokers(),
			cfg.Kafka.ClientID,
			cfg.Kafka.GroupID,
			kafka.TopicCreateRequest,
			kafka.TopicClaimRequest,
			kafka.TopicGetRequest,
		)
		if err != nil {
			return fmt.Errorf("create kafka client: %w", err)
		}
		defer kafkaClient.Close()

		if err := kafka.EnsureTopics(ctx, kafkaClient, cfg, log); err != nil {
			log.Warn("kafka_topics_not_ensured", zap.Error(err))
		}
		events = kafka.NewPublisher(kafkaClient)
	}

	store := repository.New(pool)
	coupons := usecase.NewCouponService(store, events)
	checkout := usecase.NewCheckoutService(store, coupons, events, usecase.CheckoutOptions{
		ShippingFee: shippingFee,
		Timeout:     cfg.Checkout.Timeout,
	})
	verifier := usecase.NewVerificationService(
		repository.NewVerificationStore(pool),
		usecase.LogNotifier{},
		cfg.Verification.TTL,
		cfg.Verification.MaxAttempts,
	)

	var gateway usecase.CouponGateway
	if cfg.EventDrivenEnabled {
		kgateway := kafka.NewGateway(cfg, kafkaClient, log.Named("gateway"))
		gateway = kgateway

		consumer := kafka.NewConsumer(cfg, kafkaClient, coupons, log.Named("consumer"))
		go consumer.Start(ctx)

		retryClient, err = newConsumerClient(
			cfg.Brokers(),
			cfg.Kafka.ClientID+"-retry",
			cfg.Kafka.RetryGroupID,
			kafka.TopicCreateRetry,
			kafka.TopicClaimRetry,
			kafka.TopicGetRetry,
		)
		if err != nil {
			return fmt.Errorf("create retry kafka client: %w", err)
		}
		defer retryClient.Close()
		retryConsumer := kafka.NewConsumer(cfg, retryClient, coupons, log.Named("retry"))
		go retryConsumer.StartRetry(ctx)

		replyClient, err = newReplyClient(
			cfg.Brokers(),
			cfg.Kafka.ClientID+"-reply",
			kafka.TopicReplyPrefix+cfg.Kafka.InstanceID,
		)
		if err != nil {
			return fmt.Errorf("create reply kafka client: %w", err)
		}
		defer replyClient.Close()
		go kgateway.PollReplies(ctx, replyClient)

		<-consumer.Ready()
	} else {
		gateway = kafka.NewDirectGateway(coupons)
	}

	handler := httphandler.NewHandler(httphandler.Services{
		Gateway:      gateway,
		Coupons:      coupons,
		Orders:       checkout,
		Fulfillment:  usecase.NewFulfillmentService(store),
		Points:       usecase.NewPointsService(store),
		Verification: verifier,
	}, []byte(cfg.Auth.JWTSecret))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httphandler.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	handler.Routes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("http_server_starting", zap.String("port", cfg.AppPort), zap.Bool("event_driven", cfg.EventDrivenEnabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http_server_failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http_shutdown_failed", zap.Error(err))
	}

	wg.Wait()
	log.Info("shutdown_complete")
	return nil
}

func initDB(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}

func newConsumerClient(brokers []string, clientID, groupID string, topics ...string) (*kgo.Client, error) {
	return kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
	)
}

func newReplyClient(brokers []string, clientID, topic string) (*kgo.Client, error) {
	return kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.ConsumeTopics(topic),
	)
}
