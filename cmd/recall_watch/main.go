package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"recall-watch/internal/middleware/logger"
	"recall-watch/internal/recall_watch/api"
	"recall-watch/internal/recall_watch/feed"
	"recall-watch/internal/recall_watch/notify"
	"recall-watch/internal/recall_watch/scheduler"
	"recall-watch/internal/recall_watch/store"
	"recall-watch/pkg/config"
)

func main() {

	log, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}

	defer func(log *zap.Logger) {
		_ = log.Sync()
	}(log)

	ctx := context.Background()

	log.Info("Starting Recall Watch Service...")

	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	stores := store.MustMongo(
		ctx,
		cfg.Mongo.Host,
		cfg.Mongo.DBName,
		cfg.Mongo.Username,
		cfg.Mongo.Password,
		cfg.Mongo.AuthSource,
	)

	httpClient := &http.Client{Timeout: 15 * time.Second}

	feedClient := &feed.Client{
		BaseURL:    cfg.Feed.URL,
		Dataset:    cfg.Feed.Dataset,
		Rows:       cfg.Feed.Rows,
		HTTPClient: httpClient,
	}

	dispatcher := &notify.Client{
		Endpoint:   cfg.FCM.Endpoint,
		ServerKey:  cfg.FCM.ServerKey,
		HTTPClient: httpClient,
	}

	// 2) 周期任务：召回匹配 sweep + 保留期清理
	worker := &scheduler.Worker{
		Log:             log,
		Store:           stores,
		Feed:            feedClient,
		Notifier:        dispatcher,
		SweepInterval:   time.Duration(cfg.Schedule.SweepHours) * time.Hour,
		PurgeInterval:   time.Duration(cfg.Schedule.PurgeHours) * time.Hour,
		RetentionMonths: cfg.Schedule.RetentionMonths,
	}
	go worker.Run(ctx)
	go worker.RunPurge(ctx)

	// 3) 起 HTTP API
	srv := &api.Server{Log: log, Store: stores, Feed: feedClient, Notifier: dispatcher}
	r := srv.Router()
	_ = r.SetTrustedProxies(nil)
	log.Info("Recall Watch Service is running", zap.String("address", ":8080"))
	_ = r.Run(":8080")
}
