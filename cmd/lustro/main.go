package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lustro/internal/audit"
	"github.com/ternarybob/lustro/internal/common"
	"github.com/ternarybob/lustro/internal/crawler"
	"github.com/ternarybob/lustro/internal/report"
	"github.com/ternarybob/lustro/internal/screenshot"
	storage "github.com/ternarybob/lustro/internal/storage/badger"
)

var (
	// Command-line flags
	configFile   = flag.String("config", "", "Configuration file path")
	configFileC  = flag.String("c", "", "Configuration file path (shorthand)")
	startURL     = flag.String("url", "", "Seed URL to crawl (required)")
	maxPages     = flag.Int("max-pages", 0, "Crawl page budget (overrides config)")
	withShots    = flag.Bool("screenshots", false, "Capture screenshots (overrides config)")
	withAudit    = flag.Bool("lighthouse", false, "Run Lighthouse audits (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Lustro version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	if *startURL == "" {
		fmt.Fprintln(os.Stderr, "Usage: lustro -url <seed-url> [-config lustro.toml]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	configPath := *configFile
	if configPath == "" {
		configPath = *configFileC
	}
	if configPath == "" {
		// Auto-discover config in the working directory
		if _, err := os.Stat("lustro.toml"); err == nil {
			configPath = "lustro.toml"
		}
	}

	var err error
	config, err = common.LoadConfig(configPath)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		os.Exit(1)
	}

	if *maxPages > 0 {
		config.Crawler.MaxPages = *maxPages
	}
	if *withShots {
		config.Screenshots.Enabled = true
	}
	if *withAudit {
		config.Lighthouse.Enabled = true
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Str("start_url", *startURL).
		Int("max_pages", config.Crawler.MaxPages).
		Bool("screenshots", config.Screenshots.Enabled).
		Bool("lighthouse", config.Lighthouse.Enabled).
		Msg("Configuration loaded")

	if err := run(*startURL); err != nil {
		logger.Fatal().Err(err).Msg("Crawl failed")
		os.Exit(1)
	}
}

func run(seedURL string) error {
	// Cancel the crawl loop on Ctrl+C; the crawler returns whatever it
	// has collected so far.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher, err := crawler.NewChromeFetcher(config.Crawler, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize browser: %w", err)
	}
	defer fetcher.Close()

	var capturer crawler.ScreenshotCapturer
	if config.Screenshots.Enabled {
		capturer, err = screenshot.NewCapturer(config.Screenshots, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize screenshot capturer: %w", err)
		}
	}

	var auditor crawler.Auditor
	if config.Lighthouse.Enabled {
		auditor, err = audit.NewLighthouseAuditor(config.Lighthouse, logger)
		if err != nil {
			// Audits are best-effort extras; run the crawl without them
			logger.Warn().Err(err).Msg("Lighthouse unavailable, continuing without audits")
			auditor = nil
		}
	}

	c, err := crawler.New(config.Crawler, fetcher, logger)
	if err != nil {
		return err
	}

	stats, err := c.Crawl(ctx, seedURL, capturer, auditor)
	if err != nil {
		return err
	}

	writer, err := report.NewWriter(config.Report, logger)
	if err != nil {
		return err
	}
	files, err := writer.Write(stats)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to write crawl reports")
	}

	if config.Storage.Enabled {
		db, err := storage.NewBadgerDB(logger, &config.Storage.Badger)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to open crawl store")
		} else {
			defer db.Close()
			if err := storage.NewCrawlStorage(db, logger).SaveCrawl(ctx, stats); err != nil {
				logger.Error().Err(err).Msg("Failed to persist crawl result")
			}
		}
	}

	fmt.Printf("\nCrawl %s finished: %d pages in %.2fs\n", stats.ID, stats.PagesCrawled, stats.DurationSeconds)
	for _, f := range files {
		fmt.Printf("  report: %s\n", f)
	}

	return nil
}
