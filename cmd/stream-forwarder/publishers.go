package main

import (
	"context"
	"database/sql"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/multierr"

	streamforwarder "github.com/markusylisiurunen/go-stream-forwarder"
	"github.com/markusylisiurunen/go-stream-forwarder/internal/config"

	_ "github.com/lib/pq"
)

type closers []func() error

func (c closers) Close() error {
	var err error
	for i := len(c) - 1; i >= 0; i -= 1 {
		err = multierr.Append(err, c[i]())
	}
	return err
}

// buildPublisher connects only the publishers the configured destinations need and puts them behind a mux.
func buildPublisher(ctx context.Context, cfg *config.Config, logger streamforwarder.Logger) (*streamforwarder.PublisherMux, closers, error) {
	schemes, err := cfg.Schemes()
	if err != nil {
		return nil, nil, err
	}
	var (
		opts []streamforwarder.PublisherMuxOption
		done closers
	)
	fail := func(err error) (*streamforwarder.PublisherMux, closers, error) {
		return nil, nil, multierr.Append(err, done.Close())
	}

	if schemes[streamforwarder.SchemeSQS] {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return fail(fmt.Errorf("failed to load aws config: %w", err))
		}
		opts = append(opts, streamforwarder.MuxWithPublisher(streamforwarder.SchemeSQS, streamforwarder.NewSQSPublisher(awsCfg)))
	}
	if schemes[streamforwarder.SchemeHTTP] {
		opts = append(opts, streamforwarder.MuxWithPublisher(streamforwarder.SchemeHTTP, streamforwarder.NewHTTPPublisher(cfg.HTTP.Timeout)))
	}
	if schemes[streamforwarder.SchemeKafka] {
		kafka := streamforwarder.NewKafkaPublisher(cfg.Kafka.Brokers,
			streamforwarder.KafkaPublisherWithBatchTimeout(cfg.Kafka.BatchTimeout),
		)
		done = append(done, kafka.Close)
		opts = append(opts, streamforwarder.MuxWithPublisher(streamforwarder.SchemeKafka, kafka))
	}
	if schemes[streamforwarder.SchemeRabbitMQ] {
		rabbit, err := streamforwarder.DialRabbitMQ(ctx, streamforwarder.RabbitMQDialOptions{
			URL:      cfg.RabbitMQ.URL,
			Attempts: cfg.RabbitMQ.RetryAttempts,
			Logger:   logger,
		})
		if err != nil {
			return fail(fmt.Errorf("failed to connect to rabbitmq: %w", err))
		}
		done = append(done, rabbit.Close)
		opts = append(opts, streamforwarder.MuxWithPublisher(streamforwarder.SchemeRabbitMQ, rabbit))
	}
	if schemes[streamforwarder.SchemePubSub] {
		pubsub, err := streamforwarder.NewPubSubPublisher(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return fail(fmt.Errorf("failed to create pubsub client: %w", err))
		}
		done = append(done, pubsub.Close)
		opts = append(opts, streamforwarder.MuxWithPublisher(streamforwarder.SchemePubSub, pubsub))
	}
	if schemes[streamforwarder.SchemePostgres] {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return fail(fmt.Errorf("failed to open postgres: %w", err))
		}
		done = append(done, db.Close)
		postgres, err := streamforwarder.NewPostgresPublisher(db,
			streamforwarder.PostgresPublisherWithSchema(cfg.Postgres.Schema),
		)
		if err != nil {
			return fail(fmt.Errorf("failed to migrate postgres queue: %w", err))
		}
		opts = append(opts, streamforwarder.MuxWithPublisher(streamforwarder.SchemePostgres, postgres))
	}

	mux, err := streamforwarder.NewPublisherMux(opts...)
	if err != nil {
		return fail(err)
	}
	return mux, done, nil
}

func buildHandler(ctx context.Context, cfg *config.Config, logger streamforwarder.Logger) (*streamforwarder.Handler, closers, error) {
	publisher, done, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	middlewares := []streamforwarder.PublisherMiddleware{streamforwarder.WithTracing(nil)}
	if cfg.Publish.Timeout > 0 {
		middlewares = append(middlewares, streamforwarder.WithPublishTimeout(cfg.Publish.Timeout))
	}
	handler, err := streamforwarder.NewHandler(cfg.HandlerDestinations(),
		streamforwarder.WithPublisher(publisher),
		streamforwarder.WithLogger(logger),
		streamforwarder.WithConcurrency(cfg.Concurrency),
		streamforwarder.WithMiddleware(middlewares...),
	)
	if err != nil {
		return nil, nil, multierr.Append(err, done.Close())
	}
	return handler, done, nil
}
