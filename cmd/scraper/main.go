package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/maltedev/storefront-scraper/internal/blockrules"
	"github.com/maltedev/storefront-scraper/internal/browser"
	"github.com/maltedev/storefront-scraper/internal/capture"
	"github.com/maltedev/storefront-scraper/internal/config"
	"github.com/maltedev/storefront-scraper/internal/database"
	"github.com/maltedev/storefront-scraper/internal/events"
	"github.com/maltedev/storefront-scraper/internal/export"
	"github.com/maltedev/storefront-scraper/internal/extractor"
	"github.com/maltedev/storefront-scraper/internal/navigator"
	"github.com/maltedev/storefront-scraper/internal/notify"
	"github.com/maltedev/storefront-scraper/internal/paginator"
	"github.com/maltedev/storefront-scraper/internal/ratelimit"
	"github.com/maltedev/storefront-scraper/internal/runner"
)

func main() {
	// run owns all defers so that the browser session and log file close
	// on every exit path; os.Exit would skip them.
	os.Exit(run())
}

func run() int {
	cfg := config.Load()

	var (
		mode      = flag.String("mode", cfg.Run.Mode, "Scrape mode: pdp or plp")
		urlsFile  = flag.String("urls-file", cfg.Run.URLsFile, "File with product URLs, one per line (pdp mode)")
		plpURL    = flag.String("plp-url", cfg.Run.PLPURL, "Listing start URL (plp mode)")
		outputDir = flag.String("output-dir", cfg.Output.Dir, "Directory for run artifacts")
		headless  = flag.Bool("headless", cfg.Browser.Headless, "Run the browser headless")
	)
	flag.Parse()

	cfg.Run.Mode = strings.ToLower(*mode)
	cfg.Run.URLsFile = *urlsFile
	cfg.Run.PLPURL = *plpURL
	cfg.Output.Dir = *outputDir
	cfg.Browser.Headless = *headless

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		return 1
	}

	debugDir := filepath.Join(cfg.Output.Dir, "debug")
	if err := os.MkdirAll(debugDir, 0755); err != nil {
		fmt.Fprintln(os.Stderr, "failed to create output directory:", err)
		return 1
	}

	logPath := filepath.Join(cfg.Output.Dir, "run.log")
	logFile, err := os.Create(logPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create run.log:", err)
		return 1
	}
	defer logFile.Close()

	logger := slog.New(slog.NewTextHandler(io.MultiWriter(os.Stderr, logFile), &slog.HandlerOptions{
		Level: logLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	logger.Info("starting storefront scraper",
		"mode", cfg.Run.Mode, "engine", cfg.Browser.Engine, "headless", cfg.Browser.Headless,
		"output_dir", cfg.Output.Dir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Run.MaxRuntime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Run.MaxRuntime)
		defer cancel()
	}

	rules := blockrules.Default()
	if cfg.Navigation.BlockRulesFile != "" {
		rules, err = blockrules.LoadFile(cfg.Navigation.BlockRulesFile)
		if err != nil {
			logger.Error("failed to load block rules", "error", err)
			return 1
		}
	}
	logger.Info("block rules active", "count", rules.Len())

	capturer, err := capture.New(debugDir, cfg.Output.SaveHTML, cfg.Output.SaveScreenshot, logger)
	if err != nil {
		logger.Error("failed to prepare debug directory", "error", err)
		return 1
	}

	exporter, err := export.New(cfg.Output.Dir, logger)
	if err != nil {
		logger.Error("failed to prepare output directory", "error", err)
		return 1
	}

	sinks := runner.Sinks{
		Exporter: exporter,
		Mailer:   notify.New(cfg.Email, logger),
		LogPath:  logPath,
	}

	if cfg.Database.Enabled() {
		db, err := database.New(ctx, cfg.Database.URL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return 1
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure database schema", "error", err)
			return 1
		}
		logger.Info("connected to database")
		sinks.Store = db
	}

	publisher := events.Connect(cfg.Events.RedisAddr, cfg.Events.Stream, logger)
	defer publisher.Close()
	sinks.Publisher = publisher

	session, err := browser.New(browser.OptionsFromConfig(cfg), logger)
	if err != nil {
		logger.Error("failed to start browser session", "error", err)
		return 1
	}
	defer session.Close()

	if cfg.Run.WarmupURL != "" {
		session.Warmup(ctx, cfg.Run.WarmupURL)
	}

	ext := extractor.NewStorefrontExtractor()
	nav := navigator.New(session, rules, capturer, cfg.Navigation, cfg.Output.DumpHTML, logger)
	delayer := ratelimit.New(cfg.Delay.Min, cfg.Delay.Max)
	pager := paginator.New(nav, ext, delayer, cfg.Run.MaxPages, cfg.Navigation.NavTimeout, logger)

	summary, err := runner.New(cfg, nav, ext, pager, delayer, sinks, logger).Run(ctx)
	if err != nil {
		logger.Error("run failed", "error", err)
		return 1
	}

	if summary.OKRecordCount() == 0 {
		logger.Warn("run produced no usable records")
		return 1
	}
	return 0
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
