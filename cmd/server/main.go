package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"localtube/cmd/config"
	"localtube/pkg/auth"
	"localtube/pkg/catalog"
	"localtube/pkg/database"
	"localtube/pkg/handlers"
	"localtube/pkg/media"
	"localtube/pkg/middleware"
	"localtube/pkg/repository"
	"localtube/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("Server exited with error")
	}
	log.Info("Server stopped")
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetOutput(os.Stdout)
	return logrus.StandardLogger()
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	store := repository.NewStore(db)

	blobs, err := newBlobStore(cfg)
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
		log.WithField("addr", cfg.Redis.Addr).Info("Connected to Redis")
	}

	var sessions auth.SessionStore
	switch cfg.Session.Store {
	case "redis":
		sessions = auth.NewRedisSessionStore(redisClient, cfg.Redis.KeyPrefix)
	default:
		dbSessions := auth.NewDBSessionStore(store)
		scheduler := cron.New()
		if _, err := dbSessions.ScheduleJanitor(scheduler, cfg.Session.PurgeSchedule); err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
		sessions = dbSessions
	}
	log.WithField("store", cfg.Session.Store).Info("Session store ready")

	authSvc, err := auth.NewService(store, sessions, auth.Options{
		Secret:     cfg.Session.Secret,
		TTL:        cfg.Session.TTL,
		BcryptCost: cfg.Session.BcryptCost,
	})
	if err != nil {
		return err
	}
	catalogSvc := catalog.NewService(store, store, blobs, cfg.MaxUploadBytes())
	mediaSrv := media.NewServer(store, blobs)

	h := handlers.New(authSvc, catalogSvc, mediaSrv, store, handlers.Options{
		Cookie:         auth.Cookie{Name: cfg.Session.CookieName, Secure: cfg.Session.Secure},
		MaxUploadBytes: cfg.MaxUploadBytes(),
	})

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(log))

	var limiter gin.HandlerFunc
	if redisClient != nil {
		limiter = middleware.RateLimit(redisClient, cfg.Redis.KeyPrefix, cfg.RateLimit.Max, cfg.RateLimit.Window)
	}
	if err := h.Routes(router, limiter); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("LocalTube listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
		return err
	}
	log.Info("HTTP server shut down gracefully")
	return nil
}

func newBlobStore(cfg *config.Config) (storage.Store, error) {
	if cfg.Storage.Backend == "s3" {
		logrus.WithFields(logrus.Fields{"bucket": cfg.AWS.S3Bucket, "prefix": cfg.AWS.S3Prefix}).Info("Using S3 video storage")
		return storage.NewS3(cfg.AWS.Region, cfg.AWS.S3Bucket, cfg.AWS.S3Prefix)
	}
	logrus.WithField("dir", cfg.Storage.UploadDir).Info("Using local video storage")
	return storage.NewLocal(cfg.Storage.UploadDir)
}
