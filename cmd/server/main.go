package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gofrs/flock"

	"github.com/cesargomez89/tidarr/internal/config"
	"github.com/cesargomez89/tidarr/internal/constants"
	"github.com/cesargomez89/tidarr/internal/history"
	httpapp "github.com/cesargomez89/tidarr/internal/http"
	"github.com/cesargomez89/tidarr/internal/logger"
	"github.com/cesargomez89/tidarr/internal/notify"
	"github.com/cesargomez89/tidarr/internal/outputlog"
	"github.com/cesargomez89/tidarr/internal/queue"
	"github.com/cesargomez89/tidarr/internal/steps"
	"github.com/cesargomez89/tidarr/internal/storage"
	"github.com/cesargomez89/tidarr/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, appLogger *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Single instance per database
	if err := os.MkdirAll(filepath.Dir(cfg.LockPath), constants.DirPermissions); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(cfg.LockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tidarr instance is already running")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			appLogger.Warn("Failed to release lock", "error", err)
		}
	}()

	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("init db: %w", err)
	}
	defer db.Close()

	var (
		hist    *history.Store
		histDep queue.History
	)
	if cfg.HistoryEnabled {
		hist, err = history.Open(cfg.HistoryPath)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer hist.Close()
		histDep = hist
	}

	var playlists queue.PlaylistCleaner
	if cfg.PlaylistDeleteCommand != "" {
		playlists = &steps.CommandPlaylistCleaner{Command: cfg.PlaylistDeleteCommand}
	}

	bus := notify.NewBus(appLogger)
	output := outputlog.New(bus)
	workDirs := storage.NewWorkDirs(cfg.ProcessingDir)

	stepSet := queue.Steps{
		Download: &steps.CommandDownloader{
			Command:        cfg.DownloadCommand,
			DefaultQuality: cfg.Quality,
			WaitDelay:      cfg.KillGrace,
			WorkDirs:       workDirs,
			Output:         output,
			Logger:         appLogger,
		},
		PostProcess: &steps.Organizer{
			Root:         cfg.DownloadsDir,
			PathTemplate: cfg.PathTemplate,
			WorkDirs:     workDirs,
			Output:       output,
			Logger:       appLogger,
		},
	}
	if cfg.LidarrDir != "" {
		stepSet.LidarrPostProcess = &steps.Organizer{
			Root:         cfg.LidarrDir,
			PathTemplate: cfg.PathTemplate,
			WorkDirs:     workDirs,
			Output:       output,
			Logger:       appLogger,
		}
	}

	registry := queue.New(queue.Deps{
		Store:     db,
		Output:    output,
		Notifier:  bus,
		Steps:     stepSet,
		WorkDirs:  workDirs,
		History:   histDep,
		Playlists: playlists,
		Logger:    appLogger,
	}, queue.Config{
		NoDownload: cfg.NoDownload,
		KillGrace:  cfg.KillGrace,
	})
	// Steps must not die with the signal context: Close terminates them
	// without touching their persisted status.
	if err := registry.Load(context.Background()); err != nil {
		return fmt.Errorf("load queue: %w", err)
	}
	defer registry.Close()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	var histAPI httpapp.History
	if hist != nil {
		histAPI = hist
	}
	h := httpapp.NewHandler(registry, bus, db, histAPI, appLogger)
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("Server listening", "addr", srv.Addr, "paused", registry.Paused())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownWait)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	appLogger.Info("Server exiting")
	return nil
}
