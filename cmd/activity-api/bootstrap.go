package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/FieldTrack/config"
	"github.com/BearBump/FieldTrack/internal/broker/kafka"
	"github.com/BearBump/FieldTrack/internal/cache/rediscache"
	"github.com/BearBump/FieldTrack/internal/services/activitylog"
	"github.com/BearBump/FieldTrack/internal/storage/dynactivity"
	"github.com/BearBump/FieldTrack/internal/storage/pgactivity"
)

type activityAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     activityAPIOpts
	svc      *activitylog.Service
	consumer *kafka.Consumer
	closers  []func()
}

func mustBootstrapActivityAPI() *activityAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	opts := activityAPIOptsFromConfig(cfg, swaggerPath)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app := &activityAPIApp{ctx: ctx, cancel: cancel, opts: opts}

	repo, closeRepo := mustOpenRepository(ctx, cfg)
	app.closers = append(app.closers, closeRepo)

	rc := rediscache.New(cfg.Redis.Addr())
	rl := rediscache.NewRateLimiter(cfg.Redis.Addr())
	producer := kafka.NewProducer(cfg.Kafka.Brokers())
	app.closers = append(app.closers,
		func() { _ = producer.Close() },
		func() { _ = rl.Close() },
		func() { _ = rc.Close() },
	)

	app.svc = activitylog.New(repo, producer, rl, rc, opts.topic).
		WithSettings(int64(cfg.ActivityAPI.RateLimitPerMinute), time.Duration(cfg.ActivityAPI.LastLocationTTLSeconds)*time.Second)

	app.consumer = kafka.NewConsumer(cfg.Kafka.Brokers(), opts.topic, opts.consumerGroup)
	return app
}

func activityAPIOptsFromConfig(cfg *config.Config, swaggerPath string) activityAPIOpts {
	grpcAddr := cfg.ActivityAPI.GRPCAddr
	if grpcAddr == "" {
		grpcAddr = ":50051"
	}
	httpAddr := cfg.ActivityAPI.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.ActivityAPI.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "activity-api"
	}
	topic := cfg.Kafka.ActivityLoggedTopicName
	if topic == "" {
		topic = "activity.logged"
	}
	return activityAPIOpts{
		grpcAddr:      grpcAddr,
		httpAddr:      httpAddr,
		grpcDialAddr:  grpcAddr,
		swaggerPath:   swaggerPath,
		topic:         topic,
		consumerGroup: consumerGroup,
	}
}

func mustOpenRepository(ctx context.Context, cfg *config.Config) (activitylog.Repository, func()) {
	switch cfg.ActivityAPI.Storage {
	case "dynamodb":
		st, err := dynactivity.New(ctx, cfg.DynamoDB.Region, cfg.DynamoDB.Endpoint, cfg.DynamoDB.TableName)
		if err != nil {
			panic(err)
		}
		if cfg.DynamoDB.Endpoint != "" {
			// локальный DynamoDB: таблицу создаём сами
			if err := st.EnsureTable(ctx); err != nil {
				panic(err)
			}
		}
		return st, func() {}
	default:
		st := mustOpenPostgresWithRetry(cfg.Database.ConnString(), 60*time.Second)
		return st, st.Close
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgactivity.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgactivity.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *activityAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *activityAPIApp) Run() error {
	return runActivityAPI(a.ctx, a.opts, a.svc, a.consumer)
}
