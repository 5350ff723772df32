// Command worker consumes parcel events from Redis: it archives parcel
// snapshots to object storage and forwards customer support messages to
// Telegram.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/TrackFast/internal/config"
	"github.com/dharsanguruparan/TrackFast/internal/database"
	"github.com/dharsanguruparan/TrackFast/internal/notify"
	"github.com/dharsanguruparan/TrackFast/internal/queue"
	"github.com/dharsanguruparan/TrackFast/internal/repository"
	"github.com/dharsanguruparan/TrackFast/internal/s3storage"
	"github.com/dharsanguruparan/TrackFast/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if !cfg.UseDatabase() || !cfg.UseRedis() {
		log.Fatalf("worker needs DATABASE_URL and TRACKFAST_REDIS_ADDR")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	var archive worker.Archive
	if cfg.ArchiveEnabled() {
		store, err := s3storage.New(cfg)
		if err != nil {
			log.Fatalf("init storage: %v", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			log.Fatalf("ensure bucket: %v", err)
		}
		archive = store
	} else {
		log.Printf("object storage not configured, snapshots disabled")
	}

	var notifier worker.Notifier
	if cfg.NotifyEnabled() {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatalf("init telegram: %v", err)
		}
		notifier = tg
	} else {
		log.Printf("telegram not configured, support notices disabled")
	}

	server := asynq.NewServer(queue.RedisOpt(cfg), asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
	})
	processor := worker.NewProcessor(
		repository.NewParcelRepository(pool),
		repository.NewMessageRepository(pool),
		archive,
		notifier,
	)
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	log.Printf("worker started (concurrency=%d)", cfg.WorkerConcurrency)
	if err := server.Run(mux); err != nil {
		log.Printf("worker stopped: %v", err)
		os.Exit(1)
	}
}
