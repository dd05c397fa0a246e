package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/tube-comb/app/api"
	"github.com/lysyi3m/tube-comb/app/cache"
	"github.com/lysyi3m/tube-comb/app/cfg"
	"github.com/lysyi3m/tube-comb/app/database"
	"github.com/lysyi3m/tube-comb/app/format"
	"github.com/lysyi3m/tube-comb/app/keypool"
	"github.com/lysyi3m/tube-comb/app/logging"
	"github.com/lysyi3m/tube-comb/app/tasks"
	"github.com/lysyi3m/tube-comb/app/upstream"
	"github.com/lysyi3m/tube-comb/app/youtube"
)

func main() {
	config, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if config == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if config.Debug {
		level = slog.LevelDebug
	}
	console := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(console))

	slog.Info("Starting Tube Comb server", "version", config.Version)

	// The log store is optional; a nil interface disables the log endpoints
	var logRepo database.LogRepository
	var logWriter *logging.Writer
	if config.LogDBPath != "" {
		db, repo, err := openLogStore(config)
		if err != nil {
			slog.Error("Failed to open log store", "path", config.LogDBPath, "error", err)
			os.Exit(1)
		}
		defer db.Close()

		logRepo = repo
		logWriter = logging.NewWriter(repo, 1024)
		slog.SetDefault(slog.New(logging.NewHandler(console, logWriter)))
	}

	languages, err := loadLanguages(config.LanguagesFile)
	if err != nil {
		slog.Error("Failed to load languages", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded language names", "count", languages.Len())

	pool, err := loadKeyPool(config)
	if err != nil {
		slog.Error("Failed to build key pool", "error", err)
		os.Exit(1)
	}

	client := upstream.New(upstream.Config{
		BaseURL:         config.APIBaseURL,
		UserAgent:       config.UserAgent,
		MinInterval:     config.MinRequestInterval,
		RetryDelay:      config.RetryDelay,
		Timeout:         config.RequestTimeout,
		BreakerFailures: config.BreakerFailures,
	}, pool, nil)

	responseCache := cache.New()
	service := youtube.New(youtube.Config{
		FeedBaseURL:     config.FeedBaseURL,
		ChannelTTL:      config.CacheTTLChannel,
		VideoTTL:        config.CacheTTLVideo,
		RSSTTL:          config.CacheTTLRSS,
		DefaultTTL:      config.DefaultCacheTTL,
		MaxChannelBatch: config.MaxChannelBatchSize,
		MaxVideoBatch:   config.MaxVideoBatchSize,
		ChannelParts:    config.DefaultChannelParts,
		VideoParts:      config.DefaultVideoParts,
	}, client, responseCache, languages)

	runner := tasks.NewRunner(service, config.MaxConcurrentWorkers, config.BatchTaskTimeout)

	jobs := []tasks.Job{tasks.NewCacheSweepJob(responseCache)}
	if logRepo != nil && config.LogRetentionDays > 0 {
		jobs = append(jobs, tasks.NewLogCleanupJob(logRepo, config.LogRetentionDays))
	}
	scheduler := tasks.NewScheduler(config.MaintenanceInterval, 1, jobs...)
	scheduler.Start()

	handler := api.NewHandler(service, pool, runner, logRepo, config.Version)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", config.Port, "keys", pool.Stats().TotalKeys, "strategy", config.KeyStrategy)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	scheduler.Stop()
	slog.Info("Maintenance scheduler stopped")

	slog.Info("Tube Comb server shutdown complete")

	if logWriter != nil {
		slog.SetDefault(slog.New(console))
		logWriter.Close()
	}
}

func openLogStore(config *cfg.Cfg) (*database.DB, *database.LogRepo, error) {
	db, err := database.Open(config.LogDBPath)
	if err != nil {
		return nil, nil, err
	}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Log store ready", "path", config.LogDBPath, "schema_version", version, "dirty", dirty)

	return db, database.NewLogRepository(db), nil
}

func loadLanguages(path string) (*format.LanguageTable, error) {
	if path == "" {
		return format.DefaultLanguages()
	}
	return format.LoadLanguages(path)
}

func loadKeyPool(config *cfg.Cfg) (*keypool.Pool, error) {
	specs := keypool.Specs(config.APIKeys, config.DailyQuota, config.HourlyQuota)
	if config.KeysFile != "" {
		fromFile, err := keypool.LoadFile(config.KeysFile, config.DailyQuota, config.HourlyQuota)
		if err != nil {
			return nil, err
		}
		specs = append(specs, fromFile...)
	}
	return keypool.New(specs, keypool.Strategy(config.KeyStrategy))
}
