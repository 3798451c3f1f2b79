package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/resumeblast/internal/config"
	"github.com/resumeblast/internal/mailer"
	"github.com/resumeblast/internal/sentlog"
	"github.com/resumeblast/internal/session"
)

type App struct {
	config     *config.Config
	logger     *slog.Logger
	store      sentlog.Store
	controller *session.Controller
	tracker    *session.Tracker
}

func (app *App) Close() {
	if err := app.store.Close(); err != nil {
		app.logger.Warn("closing sent-log store", "err", err)
	}
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg)

	store, err := sentlog.Open(cfg.SentLogBackend, cfg.SentLogPath)
	if err != nil {
		return nil, fmt.Errorf("open sent-log: %w", err)
	}

	// Credentials arrive with each session from the form; only the relay
	// endpoint is fixed by config.
	dial := func(username, password string) (mailer.Session, error) {
		return mailer.New(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: username,
			Password: password,
			From:     username,
		}).Dial()
	}

	tracker := session.NewTracker()
	controller := session.New(store, dial, logger, tracker)

	return &App{
		config:     cfg,
		logger:     logger,
		store:      store,
		controller: controller,
		tracker:    tracker,
	}, nil
}

func (app *App) Start(ctx context.Context) error {
	// Create an errgroup derived from the parent context
	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", app.config.Port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}

	g.Go(func() error {
		app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("server failed", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done() // Wait for OS signal or parent context to fail

		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	app.logger.Info("stopped server")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	logLevel := slog.LevelInfo

	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	slog.SetDefault(logger)
	return logger
}
