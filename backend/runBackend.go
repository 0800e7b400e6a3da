package backend

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jghoshh/bienestar/backend/config"
	"github.com/jghoshh/bienestar/backend/logger"
	"github.com/jghoshh/bienestar/backend/queue"
	"github.com/jghoshh/bienestar/backend/reminders"
	"github.com/jghoshh/bienestar/backend/server"
	"github.com/jghoshh/bienestar/backend/server/auth"
	"github.com/jghoshh/bienestar/backend/server/notifications/email"
	cache "github.com/jghoshh/bienestar/backend/storage/cache"
	storage "github.com/jghoshh/bienestar/backend/storage/persistent"
	"github.com/jghoshh/bienestar/backend/wellness"
	"go.uber.org/zap"
)

const numNotifyProducers = 1

// logSender stands in for the mailer when SMTP is not configured.
type logSender struct {
	logger *zap.Logger
}

func (s logSender) Send(to, title, body string) error {
	s.logger.Info("notification (smtp disabled)", zap.String("to", to), zap.String("title", title), zap.String("body", body))
	return nil
}

// RunBackend is the main function that sets up and runs the backend server
// until SIGINT or SIGTERM. envFile, when set, is loaded before backend/.env.
func RunBackend(envFile string) error {
	config.LoadDotenv(envFile, "backend/.env", ".env")
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistent storage
	var store storage.StorageInterface
	if cfg.StorageBackend == config.StorageMemory {
		log.Warn("using in-memory storage, data will not survive a restart")
		store = storage.NewMemoryStorage()
	} else if store, err = storage.NewStorage(cfg.DBName, cfg.MongoURI); err != nil {
		return err
	}
	defer func() {
		if err := store.Disconnect(); err != nil {
			log.Error("error disconnecting storage", zap.Error(err))
		}
	}()

	// Cache for revoked tokens and delivered notifications
	var c cache.CacheInterface = cache.NewMemoryCache()
	if cfg.RedisURL != "" {
		if c, err = cache.NewCache(cfg.RedisURL); err != nil {
			return err
		}
	} else {
		log.Warn("REDIS_URL not set, using an in-process cache")
	}
	defer c.Disconnect()

	// Notification delivery
	var sender queue.Sender = logSender{logger: log}
	if cfg.SMTP.Enabled() {
		mailer := email.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Email, cfg.SMTP.Password)
		if err := mailer.Verify(); err != nil {
			return fmt.Errorf("invalid smtp settings: %w", err)
		}
		sender = mailer
	}
	handler := &queue.Handler{Cache: c, Sender: sender, Logger: log}

	var publisher queue.Publisher = &queue.DirectPublisher{Handler: handler}
	if cfg.RabbitMQURL != "" {
		q, err := queue.BuildNotificationQueue(cfg.RabbitMQURL, numNotifyProducers, cfg.NotifyConsumers, handler, log)
		if err != nil {
			return err
		}
		defer q.Close()
		if err := q.StartConsumers(ctx); err != nil {
			return fmt.Errorf("error starting queue consumers: %w", err)
		}
		publisher = q
	} else {
		log.Warn("RABBITMQ_URL not set, notifications are delivered inline")
	}

	// Authentication
	var authOpts []auth.Option
	if cfg.FederatedPublicKeyPath != "" {
		verifier, err := auth.LoadFederatedVerifier(cfg.FederatedPublicKeyPath, cfg.FederatedAudience)
		if err != nil {
			return err
		}
		authOpts = append(authOpts, auth.WithFederatedVerifier(verifier))
	}
	authSvc := auth.NewService(store, c, publisher, cfg.JWTSigningKey, log, authOpts...)

	// Reminders and the wellness service
	scheduler := reminders.NewScheduler(wellness.NewReminderNotifier(store, publisher), log.Named("reminders"),
		reminders.WithLocation(cfg.Location))
	defer scheduler.Stop()
	armed, err := scheduler.Load(ctx, store)
	if err != nil {
		log.Error("error loading reminders", zap.Error(err))
	}
	log.Info("reminders armed", zap.Int("count", armed))

	wellnessSvc := wellness.NewService(store, scheduler, cfg.Location, log)

	jobs, err := wellness.NewStreakWatcher(wellnessSvc, publisher, log.Named("jobs")).Start(cfg.StreakCheckSchedule)
	if err != nil {
		return err
	}
	defer func() { <-jobs.Stop().Done() }()

	srv := server.New(authSvc, wellnessSvc, log, server.Options{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		AccessLog:      os.Stdout,
	})
	log.Info("starting server", zap.String("addr", cfg.ListenAddr()), zap.String("storage", cfg.StorageBackend))
	return server.ListenAndServe(ctx, cfg.ListenAddr(), srv, log)
}
