package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrymomot/authcore/audit"
	"github.com/dmitrymomot/authcore/auth"
	"github.com/dmitrymomot/authcore/auth/postgres"
	"github.com/dmitrymomot/authcore/handler"
	"github.com/dmitrymomot/authcore/migrations"
	"github.com/dmitrymomot/authcore/notifier"
	"github.com/dmitrymomot/authcore/pkg/config"
	"github.com/dmitrymomot/authcore/pkg/jwt"
	"github.com/dmitrymomot/authcore/pkg/logger"
	"github.com/dmitrymomot/authcore/pkg/mailer"
	"github.com/dmitrymomot/authcore/pkg/pg"
	"github.com/dmitrymomot/authcore/pkg/ratelimit"
)

type appConfig struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Log      logger.Config
	DB       pg.Config
	JWT      jwt.Config
	Auth     auth.Config
	Mailer   mailer.Config
	Notifier notifier.Config
	Rate     ratelimit.Config
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.NewFromConfig(cfg.Log, logger.WithAttr(slog.String("app", "authd")))

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("service stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pg.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, migrations.FS, cfg.DB, log); err != nil {
		return err
	}

	issuer, err := jwt.NewIssuer(cfg.JWT)
	if err != nil {
		return err
	}

	email, err := mailer.NewPostmarkSender(cfg.Mailer)
	if err != nil {
		log.Warn("postmark not configured, falling back to dev email sender", slog.Any("error", err))
		email = mailer.NewDevSender(log)
	}

	svc := auth.New(
		pg.NewTxRunner(pool),
		postgres.NewUserStorage(),
		postgres.NewTokenStorage(),
		postgres.NewRefreshTokenStorage(),
		audit.NewRecorder(audit.NewPostgresStorage()),
		issuer,
		auth.WithConfig(cfg.Auth),
		auth.WithLogger(log),
		auth.WithNotifier(notifier.New(email, cfg.Notifier, notifier.WithLogger(log))),
	)

	bucket, err := ratelimit.NewBucket(cfg.Rate)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: handler.New(svc,
			handler.WithLogger(log),
			handler.WithRateLimit(ratelimit.Middleware(bucket, ratelimit.ByClientIP)),
		).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
