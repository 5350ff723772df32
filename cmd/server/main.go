// Command server runs the TrackFast HTTP API. With DATABASE_URL unset it keeps
// everything in memory; with Redis unset parcel events are handled by an
// in-process worker pool instead of the queue.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/TrackFast/internal/api"
	"github.com/dharsanguruparan/TrackFast/internal/auth"
	"github.com/dharsanguruparan/TrackFast/internal/config"
	"github.com/dharsanguruparan/TrackFast/internal/database"
	"github.com/dharsanguruparan/TrackFast/internal/model"
	"github.com/dharsanguruparan/TrackFast/internal/notify"
	"github.com/dharsanguruparan/TrackFast/internal/processing"
	"github.com/dharsanguruparan/TrackFast/internal/queue"
	"github.com/dharsanguruparan/TrackFast/internal/ratelimit"
	"github.com/dharsanguruparan/TrackFast/internal/repository"
	"github.com/dharsanguruparan/TrackFast/internal/s3storage"
	"github.com/dharsanguruparan/TrackFast/internal/service"
	"github.com/dharsanguruparan/TrackFast/internal/storage"
	"github.com/dharsanguruparan/TrackFast/internal/worker"
)

type stores struct {
	parcels  service.ParcelStore
	admins   service.AdminStore
	messages service.MessageStore
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	st := stores{
		parcels:  storage.NewParcelStore(),
		admins:   storage.NewAdminStore(),
		messages: storage.NewMessageStore(),
	}
	if cfg.UseDatabase() {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("connect database: %v", err)
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			log.Fatalf("ensure schema: %v", err)
		}
		st = stores{
			parcels:  repository.NewParcelRepository(pool),
			admins:   repository.NewAdminRepository(pool),
			messages: repository.NewMessageRepository(pool),
		}
	} else {
		log.Printf("DATABASE_URL not set, using in-memory stores")
	}

	admins := service.NewAdminService(st.admins)
	seedAdmin(ctx, cfg, admins)

	var archive *s3storage.Storage
	var linker service.SnapshotLinker
	if cfg.ArchiveEnabled() {
		archive, err = s3storage.New(cfg)
		if err != nil {
			log.Fatalf("init storage: %v", err)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			log.Fatalf("ensure bucket: %v", err)
		}
		linker = archive
	}

	var (
		events  service.EventPublisher
		limiter service.LoginLimiter
	)
	if cfg.UseRedis() {
		rdb, err := ratelimit.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		defer rdb.Close()
		limiter = ratelimit.New(rdb, cfg.LoginLimit, cfg.LoginWindow)

		client := asynq.NewClient(queue.RedisOpt(cfg))
		defer client.Close()
		events = queue.NewPublisher(client)
	} else {
		proc := worker.NewProcessor(st.parcels, st.messages, archiveOrNil(archive), notifier(cfg))
		pool := processing.New(proc.Handle, cfg.WorkerConcurrency)
		pool.Start(ctx)
		defer pool.Wait()
		events = pool
		log.Printf("redis not configured, handling events in-process (workers=%d)", cfg.WorkerConcurrency)
	}

	authSvc := service.NewAuthService(st.admins, auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL), limiter)
	srv := api.New(cfg.Address, cfg.AllowedOrigins, api.Services{
		Parcels: service.NewParcelService(st.parcels, events, linker),
		Support: service.NewSupportService(st.messages, st.parcels, authSvc, events),
		Auth:    authSvc,
		Admins:  admins,
	})
	if err := srv.Run(ctx); err != nil {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}
	log.Printf("server stopped")
}

// seedAdmin creates the bootstrap superadmin from ADMIN_EMAIL and
// ADMIN_PASSWORD_HASH when both are set.
func seedAdmin(ctx context.Context, cfg *config.Config, admins *service.AdminService) {
	if cfg.AdminEmail == "" || cfg.AdminPasswordHash == "" {
		log.Printf("ADMIN_EMAIL or ADMIN_PASSWORD_HASH not set, skipping admin seed")
		return
	}
	admin, created, err := admins.Seed(ctx, cfg.AdminEmail, cfg.AdminPasswordHash, model.RoleSuperadmin)
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	if created {
		log.Printf("admin seeded: email=%s role=%s", admin.Email, admin.Role)
		return
	}
	log.Printf("admin already exists: email=%s", admin.Email)
}

// archiveOrNil keeps a nil *Storage from becoming a non-nil interface.
func archiveOrNil(s *s3storage.Storage) worker.Archive {
	if s == nil {
		return nil
	}
	return s
}

func notifier(cfg *config.Config) worker.Notifier {
	if !cfg.NotifyEnabled() {
		return nil
	}
	tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Printf("telegram disabled: %v", err)
		return nil
	}
	return tg
}
