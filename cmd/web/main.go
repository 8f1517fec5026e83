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

	"github.com/AdamBeresnev/matchday/internal/config"
	"github.com/AdamBeresnev/matchday/internal/db"
	"github.com/AdamBeresnev/matchday/internal/middleware"
	"github.com/AdamBeresnev/matchday/internal/notify"
	"github.com/AdamBeresnev/matchday/internal/service"
	"github.com/AdamBeresnev/matchday/internal/store"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	database, err := db.InitDB(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.RunMigrations(database.DB); err != nil {
		return err
	}

	providers := middleware.InitAuth(cfg)

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Store = sqlite3store.New(database.DB)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := notify.NewHub(logger)
	go hub.Run(ctx)

	app := &application{
		logger:         logger,
		sessionManager: sessionManager,
		hub:            hub,
		providers:      providers,
		userStore:      store.NewUserStore(database),
		schedules:      service.NewScheduleService(database, store.NewEventStore(database), hub, cfg.Schedule, logger),
	}
	app.users = service.NewUserService(app.userStore)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      app.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "providers", providers)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
