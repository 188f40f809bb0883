// Package runner owns a scrape run end to end: it threads one accumulator
// through the mode loops, then delivers artifacts, storage, events and
// mail once the loops are done.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/storefront-scraper/internal/browser"
	"github.com/maltedev/storefront-scraper/internal/config"
	"github.com/maltedev/storefront-scraper/internal/database"
	"github.com/maltedev/storefront-scraper/internal/events"
	"github.com/maltedev/storefront-scraper/internal/export"
	"github.com/maltedev/storefront-scraper/internal/extractor"
	"github.com/maltedev/storefront-scraper/internal/models"
	"github.com/maltedev/storefront-scraper/internal/navigator"
	"github.com/maltedev/storefront-scraper/internal/notify"
	"github.com/maltedev/storefront-scraper/internal/paginator"
	"github.com/maltedev/storefront-scraper/internal/ratelimit"
)

// deliveryTimeout bounds the post-run delivery phase (store, events,
// mail). It runs on its own context so a cancelled run still ships its
// partial results.
const deliveryTimeout = 2 * time.Minute

// Navigator yields one terminal outcome per URL. Satisfied by
// *navigator.Navigator.
type Navigator interface {
	Navigate(ctx context.Context, url string) (models.PageOutcome, browser.PageVisit)
}

var _ Navigator = (*navigator.Navigator)(nil)

// Pager walks a listing start URL into the accumulator.
type Pager interface {
	Run(ctx context.Context, startURL string, acc *models.Accumulator)
}

var _ Pager = (*paginator.Paginator)(nil)

// Store persists finished runs. Satisfied by *database.DB.
type Store interface {
	SaveRun(ctx context.Context, summary models.RunSummary, records []models.Record) error
}

var _ Store = (*database.DB)(nil)

// Sinks are the post-run delivery targets. Exporter is required; the rest
// may be nil and are skipped.
type Sinks struct {
	Exporter  *export.Exporter
	Store     Store
	Publisher *events.Publisher
	Mailer    *notify.Mailer
	LogPath   string
}

type Runner struct {
	cfg     *config.Config
	nav     Navigator
	ext     extractor.Extractor
	pager   Pager
	delayer *ratelimit.Delayer
	sinks   Sinks
	logger  *slog.Logger
}

func New(cfg *config.Config, nav Navigator, ext extractor.Extractor, pager Pager, delayer *ratelimit.Delayer, sinks Sinks, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		nav:     nav,
		ext:     ext,
		pager:   pager,
		delayer: delayer,
		sinks:   sinks,
		logger:  logger.With("component", "runner"),
	}
}

// Run executes the configured mode and delivers the results. The returned
// summary is final even when err is non-nil; err reports artifact-write
// failures, which are the only fatal ones after the loops.
func (r *Runner) Run(ctx context.Context) (models.RunSummary, error) {
	runID := uuid.New().String()
	acc := models.NewAccumulator(runID, r.cfg.Run.Mode)

	r.logger.Info("run started", "run_id", runID, "mode", r.cfg.Run.Mode)

	if r.cfg.Run.Mode == "plp" {
		r.pager.Run(ctx, r.cfg.Run.PLPURL, acc)
	} else {
		r.runPDP(ctx, acc)
	}

	return r.finish(acc)
}

func (r *Runner) runPDP(ctx context.Context, acc *models.Accumulator) {
	urls, err := ReadURLs(r.cfg.Run.URLsFile, r.cfg.Run.MaxURLs)
	if err != nil {
		// A missing list is a configuration slip, not a crash: the run
		// completes with empty artifacts so downstream consumers see it.
		r.logger.Error("failed to read url list", "file", r.cfg.Run.URLsFile, "error", err)
		return
	}
	r.logger.Info("pdp batch", "urls", len(urls), "file", r.cfg.Run.URLsFile)

	for i, url := range urls {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping between urls",
				"reason", models.StopCause(ctx.Err()), "processed", i)
			acc.SetStop(models.StopCause(ctx.Err()), i)
			return
		default:
		}

		if err := r.delayer.Wait(ctx); err != nil {
			acc.SetStop(models.StopCause(err), i)
			return
		}

		r.scrapeOne(ctx, url, acc)
	}
}

// scrapeOne navigates a single product URL and appends its outcome, plus
// a record when the page loaded. Failures never propagate; the batch
// always moves on.
func (r *Runner) scrapeOne(ctx context.Context, url string, acc *models.Accumulator) {
	outcome, visit := r.nav.Navigate(ctx, url)
	defer visit.Close()
	acc.AddOutcome(outcome)

	if outcome.Failed() {
		r.logger.Warn("product page failed",
			"url", url, "status", outcome.Status, "attempts", outcome.Attempts,
			"block_label", outcome.BlockLabel)
		return
	}

	rec, err := r.ext.Product(visit.HTML, outcome.FinalURL)
	if err != nil {
		// Page loaded but did not parse; keep the slot as a partial row
		// so every OK outcome still yields exactly one record.
		r.logger.Error("extraction failed", "url", url, "error", err)
		rec = models.Record{Status: models.StatusPartial}
	}
	rec.Mode = "pdp"
	rec.SourceURL = url
	rec.FinalURL = outcome.FinalURL
	rec.ScrapedAt = outcome.StartedAt
	rec.Attempts = outcome.Attempts
	rec.ElapsedSec = outcome.ElapsedSec
	acc.AddRecord(rec)

	r.logger.Info("product page done",
		"url", url, "status", rec.Status, "elapsed_sec", outcome.ElapsedSec)
}

func (r *Runner) finish(acc *models.Accumulator) (models.RunSummary, error) {
	summary := acc.Finalize()
	records := acc.Records()

	r.logger.Info("run finished",
		"run_id", summary.RunID, "attempted", summary.Attempted,
		"records", summary.Records, "partial", summary.Partial,
		"pages_visited", summary.PagesVisited, "stop_reason", summary.StopReason)

	if err := r.sinks.Exporter.Write(records, summary); err != nil {
		return summary, fmt.Errorf("failed to write artifacts: %w", err)
	}

	// The run ctx may already be cancelled by now (signal, max runtime);
	// delivery gets a bounded window of its own.
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if r.sinks.Store != nil {
		if err := r.sinks.Store.SaveRun(ctx, summary, records); err != nil {
			r.logger.Error("failed to store run", "error", err)
		}
	}

	r.publishEvents(ctx, acc.Outcomes(), summary)

	if r.sinks.Mailer != nil {
		if err := r.sinks.Mailer.Send(ctx, summary, r.attachments()); err != nil {
			r.logger.Error("failed to send notification", "error", err)
		}
	}

	return summary, nil
}

func (r *Runner) publishEvents(ctx context.Context, outcomes []models.PageOutcome, summary models.RunSummary) {
	if !r.sinks.Publisher.Enabled() {
		return
	}
	for _, o := range outcomes {
		if err := r.sinks.Publisher.PublishOutcome(ctx, summary.RunID, o); err != nil {
			r.logger.Error("failed to publish outcome", "url", o.URL, "error", err)
		}
	}
	if err := r.sinks.Publisher.PublishSummary(ctx, summary); err != nil {
		r.logger.Error("failed to publish summary", "error", err)
	}
}

// attachments lists the artifact files for the notification mail, in the
// order recipients expect them. Missing files are skipped by the mailer.
func (r *Runner) attachments() []string {
	files := []string{r.sinks.Exporter.XLSXPath(), r.sinks.Exporter.CSVPath()}
	if r.sinks.LogPath != "" {
		files = append(files, r.sinks.LogPath)
	}
	return append(files, r.sinks.Exporter.SummaryPath())
}
