package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/acksell/kanban"
	"github.com/acksell/kanban/dynamodb/ddbiface"
	"github.com/acksell/kanban/dynamodb/ddbstore"
	"github.com/acksell/kanban/kanbanddb"
	"github.com/acksell/kanban/kanbanddb/boardcache"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

func newLogger(cfg Config) (*log.Logger, error) {
	logger := log.New()
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

// openStore builds the kanban.Store for cfg. The returned func releases
// everything it opened.
func openStore(ctx context.Context, cfg Config, logger *log.Logger) (kanban.Store, func() error, error) {
	var closers []func() error
	closeAll := func() error {
		var first error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	client, closeClient, err := openClient(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, closeClient)

	opts := []kanbanddb.Option{
		kanbanddb.WithTableName(cfg.Table),
		kanbanddb.WithLogger(logger),
		kanbanddb.WithPageSize(cfg.PageSize),
		kanbanddb.WithDeleteBatchSize(cfg.Delete.BatchSize),
		kanbanddb.WithDeleteMaxAttempts(cfg.Delete.MaxAttempts),
		kanbanddb.WithDeleteConcurrency(cfg.Delete.Concurrency),
	}
	if cfg.BoardCheck {
		opts = append(opts, kanbanddb.WithBoardCheck())
	}
	repo, err := kanbanddb.New(client, opts...)
	if err != nil {
		_ = closeAll()
		return nil, nil, err
	}
	if cfg.RedisURL == "" {
		return repo, closeAll, nil
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		_ = closeAll()
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	rc := redis.NewClient(redisOpts)
	closers = append(closers, rc.Close)
	if err := rc.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("redis not reachable, cache reads will fall through")
	}
	cached := boardcache.New(repo, rc, boardcache.WithTTL(cfg.CacheTTL), boardcache.WithLogger(logger))
	return cached, closeAll, nil
}

func openClient(ctx context.Context, cfg Config, logger *log.Logger) (ddbiface.AWSDynamoClientV2, func() error, error) {
	switch cfg.Backend {
	case backendLocal:
		opts := ddbstore.StoreOptions{Path: cfg.DataDir, InMemory: cfg.DataDir == ""}
		if logger.IsLevelEnabled(log.DebugLevel) {
			opts.Logger = logger
		}
		store, err := ddbstore.New(opts, kanbanddb.NewTableDefinition(cfg.Table))
		if err != nil {
			return nil, nil, err
		}
		logger.WithFields(log.Fields{"dataDir": cfg.DataDir, "table": cfg.Table}).Info("using local store")
		return store, store.Close, nil

	case backendAWS:
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		})
		logger.WithFields(log.Fields{
			"region":   awsCfg.Region,
			"endpoint": cfg.Endpoint,
			"table":    cfg.Table,
		}).Info("using dynamodb")
		return client, func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q (want %s)", cfg.Backend, strings.Join([]string{backendAWS, backendLocal}, " or "))
}
