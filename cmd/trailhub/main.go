// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the trailhub API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trailhub/internal/cache"
	"trailhub/internal/config"
	"trailhub/internal/database"
	"trailhub/internal/forum"
	"trailhub/internal/guard"
	"trailhub/internal/handlers"
	"trailhub/internal/messaging"
	"trailhub/internal/middleware"
	"trailhub/internal/notify"
	"trailhub/internal/router"
	"trailhub/internal/session"
	"trailhub/internal/social"
	"trailhub/internal/storage"
	"trailhub/internal/store"
	"trailhub/internal/threads"
	"trailhub/internal/tracking"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if !cfg.IsDev() {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
		slog.SetDefault(logger)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Valkey holds sessions, the catalog read cache and the notification feed.
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)

	policy, err := guard.NewPolicy()
	if err != nil {
		slog.Error("failed to load access policy", "error", err)
		os.Exit(1)
	}

	// Photo storage is optional; without it uploads answer 502.
	var objects social.ObjectStore
	if cfg.HasStorage() {
		storageClient, err := storage.New(
			cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey,
			cfg.S3Bucket, cfg.S3PublicURL,
		)
		if err != nil {
			slog.Error("failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		if storageClient != nil {
			objects = storageClient
			slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
		}
	}
	if objects == nil {
		slog.Warn("s3 storage not configured, photo uploads disabled")
	}

	// Stores.
	userStore := store.NewUserStore(db)
	catalogStore := store.NewCatalogStore(db)
	syncRuns := store.NewSyncRunStore(db)
	chatRooms := store.NewChatRoomStore(db)

	// Notifications are stored first, then published for live streams.
	publisher := notify.NewRedisPublisher(valkeyClient)
	fanout := notify.New(store.NewNotificationStore(db), publisher, logger)

	forumSvc := forum.NewService(db, policy, fanout, logger)
	messagingSvc := messaging.NewService(db, fanout, logger)
	socialSvc := social.NewService(store.NewSocialStore(db), store.NewPhotoStore(db), objects, policy, logger)
	trackingSvc := tracking.NewService(store.NewTrackingStore(db), logger)

	catalogCache := cache.NewCatalogCache(valkeyClient, cfg.CatalogCacheTTL)

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRateLimit, time.Minute)
	defer loginLimiter.Stop()

	r := router.New(router.Deps{
		Sessions:      sessionStore,
		Policy:        policy,
		CORSOrigins:   cfg.CORSOrigins,
		LoginLimiter:  loginLimiter,
		TrustProxy:    cfg.TrustProxy,
		Auth:          handlers.NewAuth(sessionStore, userStore),
		Admin:         handlers.NewAdmin(userStore),
		Catalog:       handlers.NewCatalog(catalogStore, syncRuns, catalogCache),
		Forum:         handlers.NewForum(forumSvc),
		Chat:          handlers.NewChat(chatRooms, threads.NewStore(db, threads.ChatMessages), policy, fanout),
		Messaging:     handlers.NewMessaging(messagingSvc),
		Notifications: handlers.NewNotifications(fanout, publisher, cfg.CORSOrigins),
		Social:        handlers.NewSocial(socialSvc, cfg.MaxUploadSize),
		Tracking:      handlers.NewTracking(trackingSvc),
	})

	// The notification stream sets its own deadlines once upgraded.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
