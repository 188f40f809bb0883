// Package navigator turns URLs into terminal page outcomes: navigate,
// classify, retry transient failures, give up early on blocks.
package navigator

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/storefront-scraper/internal/blockrules"
	"github.com/maltedev/storefront-scraper/internal/browser"
	"github.com/maltedev/storefront-scraper/internal/capture"
	"github.com/maltedev/storefront-scraper/internal/config"
	"github.com/maltedev/storefront-scraper/internal/models"
)

// Fetcher performs one navigation attempt. The production implementation
// is the browser session; tests substitute canned visits.
type Fetcher interface {
	Fetch(ctx context.Context, url string, attempt int) browser.PageVisit
}

type Navigator struct {
	fetcher  Fetcher
	rules    *blockrules.RuleSet
	capturer *capture.Capturer
	cfg      config.NavigationConfig
	dumpHTML bool
	logger   *slog.Logger
}

func New(fetcher Fetcher, rules *blockrules.RuleSet, capturer *capture.Capturer, cfg config.NavigationConfig, dumpHTML bool, logger *slog.Logger) *Navigator {
	return &Navigator{
		fetcher:  fetcher,
		rules:    rules,
		capturer: capturer,
		cfg:      cfg,
		dumpHTML: dumpHTML,
		logger:   logger.With("component", "navigator"),
	}
}

// Navigate tries a URL until it produces a terminal outcome: the first OK
// or BLOCK, or the last TIMEOUT/ERROR once attempts run out. On OK the
// returned visit holds the live page and its HTML and the caller must
// close it; on every other status the page is already closed after debug
// capture.
func (n *Navigator) Navigate(ctx context.Context, url string) (models.PageOutcome, browser.PageVisit) {
	start := time.Now()
	outcome := models.PageOutcome{
		URL:       url,
		StartedAt: start.UTC(),
	}

	for attempt := 1; ; attempt++ {
		visit := n.fetcher.Fetch(ctx, url, attempt)

		outcome.Attempts = attempt
		outcome.HTTPStatus = visit.HTTPStatus
		if visit.FinalURL != "" {
			outcome.FinalURL = visit.FinalURL
		} else {
			outcome.FinalURL = url
		}
		outcome.Status, outcome.BlockLabel, outcome.Error = n.classify(visit)

		if outcome.Status == models.StatusOK {
			if n.dumpHTML && n.capturer != nil {
				outcome.HTMLPath = n.capturer.Dump(url, visit.HTML)
			}
			finish(&outcome, start)
			n.logger.Info("navigation ok",
				"url", url, "attempt", attempt, "http_status", visit.HTTPStatus)
			return outcome, visit
		}

		// A block is terminal immediately; retrying it is futile.
		terminal := outcome.Status == models.StatusBlock || attempt >= n.cfg.MaxRetries

		if !terminal {
			delay := Backoff(attempt, n.cfg.BackoffBase, n.cfg.BackoffCap)
			n.logger.Warn("navigation failed, retrying",
				"url", url, "attempt", attempt, "status", outcome.Status,
				"delay", delay, "error", outcome.Error)
			if err := sleepCtx(ctx, delay); err != nil {
				terminal = true
			}
		}

		if terminal {
			// Forced dumping covers failed pages too; the dedicated failure
			// capture below takes over the HTML path when it writes one.
			if n.dumpHTML && n.capturer != nil {
				outcome.HTMLPath = n.capturer.Dump(url, visit.HTML)
			}
			n.captureFailure(&outcome, visit)
			visit.Close()
			finish(&outcome, start)
			n.logger.Info("navigation failed",
				"url", url, "status", outcome.Status, "attempts", attempt,
				"block_label", outcome.BlockLabel, "error", outcome.Error)
			return outcome, browser.PageVisit{}
		}

		visit.Close()
	}
}

// classify applies the outcome precedence: a matched block rule beats
// everything, then error kind, then OK.
func (n *Navigator) classify(visit browser.PageVisit) (models.Status, string, string) {
	if label, ok := n.rules.Match(visit.Title, visit.HTML); ok {
		return models.StatusBlock, label, "blocked: " + label
	}
	if visit.Err != nil {
		if isTimeout(visit.Err) {
			return models.StatusTimeout, "", trimError(visit.Err)
		}
		return models.StatusError, "", trimError(visit.Err)
	}
	return models.StatusOK, "", ""
}

// Backoff returns the pause after failed attempt n: min(cap, base * 2^n).
func Backoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	// Beyond 30 doublings the shift would overflow; everything that far
	// out is capped anyway.
	if attempt > 30 {
		return cap
	}
	d := base << uint(attempt)
	if d <= 0 || d > cap {
		return cap
	}
	return d
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, playwright.ErrTimeout) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// trimError collapses an error to a single CSV-friendly line.
func trimError(err error) string {
	msg := strings.Join(strings.Fields(err.Error()), " ")
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func (n *Navigator) captureFailure(outcome *models.PageOutcome, visit browser.PageVisit) {
	if n.capturer == nil {
		return
	}
	htmlPath, shotPath := n.capturer.Failure(visit.Page, outcome.URL, visit.HTML)
	if htmlPath != "" {
		outcome.HTMLPath = htmlPath
	}
	if shotPath != "" {
		outcome.ScreenshotPath = shotPath
	}
}

func finish(outcome *models.PageOutcome, start time.Time) {
	outcome.Duration = time.Since(start)
	outcome.ElapsedSec = math.Round(outcome.Duration.Seconds()*100) / 100
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

var _ Fetcher = (*browser.Session)(nil)
