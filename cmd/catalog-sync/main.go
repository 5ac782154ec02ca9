// Command catalog-sync pulls parks from the park registry and nearby trails
// from the geo-trail source into the local catalog.
//
//	catalog-sync [-state XX] [-limit N] [-test] [-pause 2s]
//
// Without -state every state is synced in turn. The command prints one
// summary line per state and exits 0 even when individual parks or trails
// failed; only configuration and database setup errors exit non-zero.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"trailhub/internal/cache"
	"trailhub/internal/catalog"
	"trailhub/internal/config"
	"trailhub/internal/database"
	"trailhub/internal/store"
)

func main() {
	state := flag.String("state", "", "two-letter state code to sync (default: all states)")
	limit := flag.Int("limit", 0, "maximum parks per state (0 = no limit)")
	testMode := flag.Bool("test", false, "sync only the first 2 parks of MN")
	pause := flag.Duration("pause", 0, "pause between states (default from SYNC_PAUSE, negative disables)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateSync(); err != nil {
		slog.Error("catalog sync is not configured", "error", err)
		os.Exit(1)
	}

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

	// The cache is best effort here: without Valkey the API simply serves
	// stale catalog reads until their TTL runs out.
	var catalogCache *cache.CatalogCache
	if vk, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword); err != nil {
		slog.Warn("valkey unavailable, catalog cache will not be invalidated", "error", err)
	} else {
		defer vk.Close()
		catalogCache = cache.NewCatalogCache(vk, cfg.CatalogCacheTTL)
	}

	syncPause := cfg.SyncPause
	if *pause != 0 {
		syncPause = *pause
	}

	catalogStore := store.NewCatalogStore(db)
	syncer := catalog.NewSyncer(
		catalog.NewNPSClient(cfg.NPSBaseURL, cfg.NPSAPIKey, cfg.SourceTimeout, cfg.SourceRPS),
		catalog.NewRIDBClient(cfg.RIDBBaseURL, cfg.RIDBAPIKey, cfg.SourceTimeout, cfg.SourceRPS),
		catalogStore,
		catalog.Options{
			Pause:       syncPause,
			RadiusMiles: cfg.SyncRadiusMile,
			Runs:        store.NewSyncRunStore(db),
			Cache:       catalogCache,
			Logger:      logger,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Starting park and trail sync...")

	var reports []catalog.SyncReport
	switch {
	case *testMode:
		fmt.Printf("TEST MODE: syncing only %d parks from %s\n", catalog.TestModeLimit, catalog.TestModeState)
		reports = append(reports, syncer.SyncTestMode(ctx))
	case *state != "":
		reports = append(reports, syncer.SyncState(ctx, strings.ToUpper(*state), *limit))
	default:
		reports = syncer.SyncAll(ctx, catalog.AllStates, *limit)
	}

	for _, r := range reports {
		fmt.Println(r.Summary())
		for _, e := range r.Errors {
			fmt.Println("  error:", e)
		}
		for _, w := range r.Warnings {
			fmt.Println("  warning:", w)
		}
	}

	fmt.Println("=== Sync completed ===")
	// Counts use a fresh context so an interrupted run still reports totals.
	if parks, err := catalogStore.CountParks(context.Background()); err == nil {
		fmt.Printf("Total parks in database: %d\n", parks)
	}
	if trails, err := catalogStore.CountTrails(context.Background()); err == nil {
		fmt.Printf("Total trails in database: %d\n", trails)
	}
}
