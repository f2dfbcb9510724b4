package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ademidov/feedscope/app/api"
	"github.com/ademidov/feedscope/app/cfg"
	"github.com/ademidov/feedscope/app/config"
	"github.com/ademidov/feedscope/app/database"
	"github.com/ademidov/feedscope/app/feed"
	"github.com/ademidov/feedscope/app/syncer"
	"github.com/ademidov/feedscope/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Feedscope server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	channelRepo := database.NewChannelRepository(db)
	itemRepo := database.NewItemRepository(db)
	imageRepo := database.NewImageRepository(db)
	userRepo := database.NewUserRepository(db)
	subscriptionRepo := database.NewSubscriptionRepository(db)

	httpClient := &http.Client{}
	parser := feed.NewParser()
	synchronizer := syncer.NewSynchronizer(channelRepo, itemRepo, imageRepo, httpClient, parser,
		appCfg.UserAgent,
		time.Duration(appCfg.FetchTimeout)*time.Second,
		time.Duration(appCfg.RefreshInterval)*time.Second)

	if appCfg.SeedFile != "" {
		if err := applySeed(appCfg.SeedFile, userRepo, channelRepo, subscriptionRepo); err != nil {
			slog.Error("Failed to apply seed file", "path", appCfg.SeedFile, "error", err)
			os.Exit(1)
		}
	}

	scheduler := tasks.NewScheduler(channelRepo, synchronizer)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)

	handler := api.NewHandler(channelRepo, itemRepo, imageRepo, userRepo, subscriptionRepo, scheduler, synchronizer)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}

// applySeed creates the users and subscriptions declared in the seed
// file. Users are matched by email and channels by origin, so re-applying
// the same seed is a no-op.
func applySeed(path string, userRepo database.UserRepository,
	channelRepo database.ChannelRepository, subscriptionRepo database.SubscriptionRepository) error {
	seed, err := config.NewLoader(path).Load()
	if err != nil {
		return err
	}

	for _, seedUser := range seed.Users {
		user, err := userRepo.EnsureUser(seedUser.Email)
		if err != nil {
			return err
		}

		for _, origin := range seedUser.Channels {
			channel, err := channelRepo.GetChannelByOrigin(origin)
			if err != nil {
				return err
			}
			if channel == nil {
				channel, err = channelRepo.CreateChannel(origin)
				if err != nil {
					return err
				}
				slog.Info("Seeded channel", "origin", origin, "channel_id", channel.ID)
			}

			if err := subscriptionRepo.Subscribe(user.ID, channel.ID); err != nil {
				return err
			}
		}
	}

	slog.Info("Seed applied", "users", len(seed.Users))
	return nil
}
