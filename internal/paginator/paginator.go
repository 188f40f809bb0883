package paginator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/storefront-scraper/internal/browser"
	"github.com/maltedev/storefront-scraper/internal/extractor"
	"github.com/maltedev/storefront-scraper/internal/models"
	"github.com/maltedev/storefront-scraper/internal/navigator"
	"github.com/maltedev/storefront-scraper/internal/ratelimit"
)

const (
	nextAnchorXPath = "xpath=//a[contains(., 'Siguiente') or contains(., 'Next') or " +
		"contains(@aria-label, 'Siguiente') or contains(@aria-label, 'Next')]"
	nextButtonXPath = "xpath=//button[contains(., 'Siguiente') or contains(., 'Next') or " +
		"contains(@aria-label, 'Siguiente') or contains(@aria-label, 'Next')]"

	clickSettle = time.Second
)

// Navigator yields one terminal outcome per page URL. Satisfied by
// *navigator.Navigator.
type Navigator interface {
	Navigate(ctx context.Context, url string) (models.PageOutcome, browser.PageVisit)
}

var _ Navigator = (*navigator.Navigator)(nil)

// Paginator walks a listing from its first page through at most maxPages,
// appending one outcome per visited page and the deduplicated listing rows
// to the accumulator. The walk is forward-only: a failed page ends the run
// with everything collected so far intact.
type Paginator struct {
	nav        Navigator
	extractor  extractor.Extractor
	delayer    *ratelimit.Delayer
	maxPages   int
	navTimeout time.Duration
	logger     *slog.Logger
}

func New(nav Navigator, ext extractor.Extractor, delayer *ratelimit.Delayer, maxPages int, navTimeout time.Duration, logger *slog.Logger) *Paginator {
	return &Paginator{
		nav:        nav,
		extractor:  ext,
		delayer:    delayer,
		maxPages:   maxPages,
		navTimeout: navTimeout,
		logger:     logger.With("component", "paginator"),
	}
}

func (p *Paginator) Run(ctx context.Context, startURL string, acc *models.Accumulator) {
	seen := make(map[string]bool)
	pageURL := startURL

	for pageIndex := 1; pageIndex <= p.maxPages; pageIndex++ {
		if err := ctx.Err(); err != nil {
			p.logger.Info("stopping between pages", "reason", models.StopCause(err), "last_page", pageIndex-1)
			acc.SetStop(models.StopCause(err), pageIndex-1)
			return
		}
		if err := p.delayer.Wait(ctx); err != nil {
			acc.SetStop(models.StopCause(err), pageIndex-1)
			return
		}

		p.logger.Info("visiting listing page", "page", pageIndex, "url", pageURL)
		outcome, visit := p.nav.Navigate(ctx, pageURL)
		outcome.PageIndex = pageIndex
		acc.AddPageVisit()
		acc.AddOutcome(outcome)

		if outcome.Status != models.StatusOK {
			acc.SetStop(failureReason(outcome), pageIndex)
			p.logger.Warn("listing page failed, keeping partial results",
				"page", pageIndex, "status", outcome.Status, "block_label", outcome.BlockLabel)
			return
		}

		added := p.collectRecords(visit.HTML, pageURL, outcome, seen, acc)
		p.logger.Info("listing page done", "page", pageIndex, "new_records", added)

		nextURL := p.extractor.NextPageURL(visit.HTML, pageURL)
		if nextURL == "" {
			nextURL = p.clickThrough(visit)
		}
		visit.Close()

		if nextURL == "" {
			p.logger.Info("no next-page control, listing exhausted", "pages", pageIndex)
			return
		}
		if nextURL == pageURL {
			p.logger.Info("next-page control points at current page, stopping", "page", pageIndex)
			return
		}
		pageURL = nextURL
	}
}

func (p *Paginator) collectRecords(html, pageURL string, outcome models.PageOutcome, seen map[string]bool, acc *models.Accumulator) int {
	records, err := p.extractor.Listing(html, pageURL)
	if err != nil {
		p.logger.Warn("listing extraction failed", "url", pageURL, "error", err)
		return 0
	}

	added := 0
	for _, rec := range records {
		if rec.ProductURL != "" {
			if seen[rec.ProductURL] {
				continue
			}
			seen[rec.ProductURL] = true
		}
		rec.Mode = "plp"
		rec.SourceURL = pageURL
		rec.FinalURL = outcome.FinalURL
		rec.ScrapedAt = time.Now().UTC()
		rec.Attempts = outcome.Attempts
		rec.ElapsedSec = outcome.ElapsedSec
		acc.AddRecord(rec)
		added++
	}
	return added
}

// clickThrough drives the live next-page control when the markup carries no
// static href: click, wait for the first anchor's href token to change, fall
// back to a JS click when the token stays put. Returns the settled URL or "".
func (p *Paginator) clickThrough(visit browser.PageVisit) string {
	if visit.Page == nil {
		return ""
	}
	control := findNextControl(visit.Page)
	if control == nil {
		return ""
	}
	if visible, err := control.IsVisible(); err != nil || !visible {
		return ""
	}
	if enabled, err := control.IsEnabled(); err != nil || !enabled {
		return ""
	}

	token, _ := visit.Page.Locator("a").First().GetAttribute("href")
	_ = control.ScrollIntoViewIfNeeded()
	if err := control.Click(); err != nil {
		p.logger.Warn("next-page click failed", "error", err)
		return ""
	}

	time.Sleep(clickSettle)
	_, err := visit.Page.WaitForFunction(
		"token => document.querySelector('a')?.getAttribute('href') !== token",
		token,
		playwright.PageWaitForFunctionOptions{Timeout: playwright.Float(float64(p.navTimeout.Milliseconds()))},
	)
	if err != nil {
		p.logger.Info("page token unchanged after click, trying JS click")
		if _, err := control.Evaluate("element => element.click()", nil); err != nil {
			p.logger.Warn("JS click failed", "error", err)
			return ""
		}
		time.Sleep(clickSettle)
	}

	return visit.Page.URL()
}

func findNextControl(page playwright.Page) playwright.Locator {
	anchors := page.Locator(nextAnchorXPath)
	if count, err := anchors.Count(); err == nil && count > 0 {
		return anchors.First()
	}
	buttons := page.Locator(nextButtonXPath)
	if count, err := buttons.Count(); err == nil && count > 0 {
		return buttons.First()
	}
	return nil
}

func failureReason(outcome models.PageOutcome) string {
	if outcome.Status == models.StatusBlock && outcome.BlockLabel != "" {
		return fmt.Sprintf("page %d failed: %s (%s)", outcome.PageIndex, outcome.Status, outcome.BlockLabel)
	}
	return fmt.Sprintf("page %d failed: %s", outcome.PageIndex, outcome.Status)
}
