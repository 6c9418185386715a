package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"atelier/internal/platform/config"
	"atelier/internal/platform/kafka"
	"atelier/internal/platform/postgres"
	"atelier/internal/platform/redis"
	"atelier/internal/registry/events"
	"atelier/internal/registry/models"
	"atelier/internal/registry/store"
	"atelier/pkg/platform/circuit"
)

// infrastructure holds the backend connections opened at startup.
type infrastructure struct {
	db    *sql.DB
	redis *redis.Client
	kafka *kgo.Client
}

func buildInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infrastructure, error) {
	infra := &infrastructure{}
	if cfg.Registry.Store == config.StorePostgres {
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		infra.db = db
		log.Info("connected to postgres")
	}
	if cfg.Registry.HasSink(config.SinkRedis) {
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.redis = client
		log.Info("connected to redis", "stream", cfg.Redis.Stream)
	}
	if cfg.Registry.HasSink(config.SinkKafka) {
		client, err := kafka.NewClient(ctx, cfg.Kafka)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.kafka = client
		if cfg.Kafka.CreateTopic {
			if err := kafka.EnsureTopic(ctx, client, cfg.Kafka); err != nil {
				infra.Close()
				return nil, err
			}
		}
		log.Info("connected to kafka", "topic", cfg.Kafka.Topic)
	}
	return infra, nil
}

// Health pings every open backend.
func (i *infrastructure) Health(ctx context.Context) error {
	var errs []error
	if i.db != nil {
		if err := i.db.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
	}
	if i.redis != nil {
		if err := i.redis.Health(ctx); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if i.kafka != nil {
		if err := i.kafka.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("kafka: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (i *infrastructure) Close() {
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

// buildStore selects the state backend and installs the initial control state.
func buildStore(ctx context.Context, cfg config.Config, infra *infrastructure) (store.Store, error) {
	control, err := models.NewControl(cfg.Registry.Admin)
	if err != nil {
		return nil, err
	}
	if cfg.Registry.Store != config.StorePostgres {
		return store.NewInMemory(control), nil
	}
	if err := postgres.Migrate(ctx, infra.db); err != nil {
		return nil, err
	}
	st := store.NewPostgres(infra.db)
	if err := st.Init(ctx, control); err != nil {
		return nil, err
	}
	return st, nil
}

// buildSink combines the configured sinks. Every external sink sits behind its
// own circuit breaker.
func buildSink(_ context.Context, cfg config.Config, infra *infrastructure, log *slog.Logger) (events.Sink, error) {
	var sinks []events.Sink
	for _, name := range cfg.Registry.Sinks {
		switch name {
		case config.SinkLog:
			sinks = append(sinks, events.NewLogSink(log))
		case config.SinkKafka:
			sinks = append(sinks, guarded(events.NewKafkaSink(infra.kafka, cfg.Kafka.Topic), cfg.Registry, log))
		case config.SinkRedis:
			sinks = append(sinks, guarded(events.NewRedisSink(infra.redis, cfg.Redis.Stream, cfg.Redis.StreamMaxLen), cfg.Registry, log))
		default:
			return nil, fmt.Errorf("unknown event sink %q", name)
		}
	}
	return events.NewGroup(sinks...), nil
}

func guarded(sink events.Sink, cfg config.RegistryConfig, log *slog.Logger) events.Sink {
	breaker := circuit.New(sink.Name(),
		circuit.WithFailureThreshold(cfg.SinkFailures),
		circuit.WithCooldown(cfg.SinkCooldown),
	)
	return events.NewBreaker(sink, breaker, log)
}
