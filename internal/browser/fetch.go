package browser

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PageVisit is the raw material of one navigation attempt. Page stays open
// so callers can screenshot or keep interacting; whoever receives the
// visit owns closing it.
type PageVisit struct {
	Page       playwright.Page
	HTML       string
	Title      string
	FinalURL   string
	HTTPStatus int
	Err        error
}

// Close releases the page if one was opened. Nil-safe.
func (v PageVisit) Close() {
	if v.Page != nil {
		v.Page.Close()
	}
}

// Fetch performs a single navigation attempt: open a page, go to the URL,
// nudge the session to look used, dismiss the cookie banner and wait for
// the readiness selector. Content and title are captured even when the
// wait fails so the caller can still classify what the site served.
func (s *Session) Fetch(ctx context.Context, url string, attempt int) PageVisit {
	if err := ctx.Err(); err != nil {
		return PageVisit{Err: err}
	}

	page, err := s.NewPage()
	if err != nil {
		return PageVisit{Err: err}
	}
	visit := PageVisit{Page: page, FinalURL: url}

	s.logger.Debug("navigating", "url", url, "attempt", attempt)

	timeout := playwright.Float(float64(s.opts.NavTimeout.Milliseconds()))
	resp, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   timeout,
	})
	if err != nil {
		// Some storefront pages never settle domcontentloaded under an
		// aggressive ad stack; a full load wait sometimes still lands.
		s.logger.Debug("navigation retry with load wait", "url", url, "error", err)
		resp, err = page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateLoad,
			Timeout:   timeout,
		})
	}
	if err != nil {
		visit.Err = fmt.Errorf("failed to navigate: %w", err)
		return visit
	}
	if resp != nil {
		visit.HTTPStatus = resp.Status()
	}

	if s.opts.EnableStealth {
		s.humanize(page)
	}
	s.dismissCookieBanner(page)

	if err := page.Locator(s.opts.ReadySelector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(s.opts.WaitSelector.Milliseconds())),
	}); err != nil {
		visit.Err = fmt.Errorf("failed to wait for %q: %w", s.opts.ReadySelector, err)
	}

	// Best effort beyond this point: a block interstitial is still worth
	// classifying even if the readiness wait gave up.
	if title, err := page.Title(); err == nil {
		visit.Title = title
	}
	if html, err := page.Content(); err == nil {
		visit.HTML = html
	}
	visit.FinalURL = page.URL()

	return visit
}

// Warmup visits a neutral page before the run proper so the profile picks
// up first-party cookies. Never fatal.
func (s *Session) Warmup(ctx context.Context, url string) {
	if url == "" || ctx.Err() != nil {
		return
	}
	page, err := s.NewPage()
	if err != nil {
		s.logger.Warn("warmup skipped", "error", err)
		return
	}
	defer page.Close()

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.opts.NavTimeout.Milliseconds())),
	}); err != nil {
		s.logger.Warn("warmup failed", "url", url, "error", err)
		return
	}
	s.dismissCookieBanner(page)
	time.Sleep(time.Second)
	s.logger.Info("warmup done", "url", url)
}

// humanize moves the pointer a little before reading the page. Headless
// sessions that never touch the mouse are an easy fingerprint.
func (s *Session) humanize(page playwright.Page) {
	x := float64(120 + rand.Intn(300))
	y := float64(140 + rand.Intn(200))
	page.Mouse().Move(x, y)
	time.Sleep(time.Duration(300+rand.Intn(400)) * time.Millisecond)
}

// dismissCookieBanner clicks the consent button when one is shown.
// Best-effort: a failed click just leaves the banner for the selectors to
// cope with.
func (s *Session) dismissCookieBanner(page playwright.Page) {
	banner := page.Locator(
		"xpath=//button[contains(., 'Aceptar') or contains(., 'Acepto') or " +
			"contains(., 'Aceptar todo') or contains(., 'Allow all')]",
	).First()

	visible, err := banner.IsVisible()
	if err != nil || !visible {
		return
	}
	if err := banner.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(2500),
	}); err != nil {
		s.logger.Debug("cookie banner click failed", "error", err)
		return
	}
	time.Sleep(300 * time.Millisecond)
}
