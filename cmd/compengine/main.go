// Command compengine prices one card from comparable sales across the
// configured sources and prints the report as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/slabworth/compengine/internal/cache"
	"github.com/slabworth/compengine/internal/comps"
	"github.com/slabworth/compengine/internal/config"
	"github.com/slabworth/compengine/internal/model"
	"github.com/slabworth/compengine/internal/population"
	"github.com/slabworth/compengine/internal/popstore"
	"github.com/slabworth/compengine/internal/schedule"
	"github.com/slabworth/compengine/internal/sources"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load() // .env is optional

	var (
		player   = flag.String("player", "", "player name (required)")
		year     = flag.String("year", "", "card year (required)")
		brand    = flag.String("brand", "", "card brand (required)")
		number   = flag.String("number", "", "card number (required)")
		setName  = flag.String("set", "", "set name")
		parallel = flag.String("parallel", "", "parallel or insert name")
		company  = flag.String("company", "", "grading company (PSA, BGS, CGC, SGC)")
		grade    = flag.String("grade", "", "grade (10, 9.5, Auth, ...)")
		browser  = flag.Bool("browser", false, "enable headless-browser sources")
	)
	flag.Parse()

	if *player == "" || *year == "" || *brand == "" || *number == "" {
		flag.Usage()
		return fmt.Errorf("player, year, brand, and number are required")
	}
	if (*company == "") != (*grade == "") {
		return fmt.Errorf("company and grade must be set together")
	}

	query := model.PricingQuery{
		PlayerName: *player,
		Year:       *year,
		Brand:      *brand,
		CardNumber: *number,
		SetName:    *setName,
		Parallel:   *parallel,
	}
	if *company != "" {
		query.Grading = &model.GradingInfo{Company: *company, Grade: *grade}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resultCache, err := cache.New(cfg.CachePath)
	if err != nil {
		return fmt.Errorf("open result cache: %w", err)
	}

	maintenance := schedule.New()
	if err := maintenance.AddPurge(cfg.PurgeSchedule, resultCache); err != nil {
		return err
	}
	maintenance.Start()
	defer maintenance.Stop()

	adapters := buildAdapters(cfg, resultCache, *browser)
	popEngine, cleanup, err := buildPopulation(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	orch := comps.New(adapters, comps.Options{
		PerSourceTimeout: cfg.PerSourceTimeout,
		RateLimit:        rate.Limit(cfg.RateLimit),
		Reliability:      cfg.Reliability,
		PopEngine:        popEngine,
	})

	report := orch.Price(ctx, query)

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func buildAdapters(cfg *config.Config, c *cache.ResultCache, browser bool) []sources.Adapter {
	adapters := []sources.Adapter{
		sources.WithCache(sources.NewEbayAdapter(), c, cfg.CacheTTL),
	}
	if browser {
		scp := sources.NewSportsCardsProAdapter(sources.NewChromeNavigator())
		adapters = append(adapters, sources.WithCache(scp, c, cfg.CacheTTL))
	}
	return adapters
}

// buildPopulation assembles the rarity engine: a Postgres snapshot
// store when configured, and the pop-report scraper as the generic
// fallback source. Returns a nil engine when no source is configured,
// which simply disables rarity adjustment.
func buildPopulation(ctx context.Context, cfg *config.Config) (*population.Engine, func(), error) {
	cleanup := func() {}

	if cfg.PopReportURL == "" {
		return nil, cleanup, nil
	}

	var store population.SnapshotStore
	if cfg.PostgresURL != "" {
		pg, err := popstore.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, cleanup, fmt.Errorf("connect snapshot store: %w", err)
		}
		store = pg
		cleanup = pg.Close
	}

	fallback := population.NewReportScraper(cfg.PopReportURL)
	engine := population.NewEngine(nil, fallback, store)
	return engine, cleanup, nil
}
