package browser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/storefront-scraper/internal/config"
)

// Session owns the one browser instance a run shares. It is created once,
// configured once (engine, stealth, profile), and closed exactly once.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	opts    *Options
	logger  *slog.Logger
	closed  bool
}

type Options struct {
	Engine                 string
	Headless               bool
	SlowMo                 time.Duration
	UserAgent              string
	Locale                 string
	TimezoneID             string
	ViewportWidth          int
	ViewportHeight         int
	EnableStealth          bool
	DisableAutomationFlags bool
	PersistentContext      bool
	PersistentContextDir   string
	BlockImages            bool
	ExtraHeaders           map[string]string
	ProxyServer            string
	NavTimeout             time.Duration
	WaitSelector           time.Duration
	ReadySelector          string
}

func DefaultOptions() *Options {
	return &Options{
		Engine:                 "chromium",
		Headless:               true,
		UserAgent:              "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		Locale:                 "es-MX",
		TimezoneID:             "America/Mexico_City",
		ViewportWidth:          1366,
		ViewportHeight:         768,
		EnableStealth:          true,
		DisableAutomationFlags: true,
		NavTimeout:             config.DefaultNavTimeout,
		WaitSelector:           config.DefaultWaitSelector,
		ReadySelector:          config.DefaultReadySelector,
	}
}

// OptionsFromConfig maps the loaded configuration onto session options.
func OptionsFromConfig(cfg *config.Config) *Options {
	return &Options{
		Engine:                 cfg.Browser.Engine,
		Headless:               cfg.Browser.Headless,
		SlowMo:                 cfg.Browser.SlowMo,
		UserAgent:              cfg.Browser.UserAgent,
		Locale:                 cfg.Browser.Locale,
		TimezoneID:             cfg.Browser.Timezone,
		ViewportWidth:          cfg.Browser.ViewportWidth,
		ViewportHeight:         cfg.Browser.ViewportHeight,
		EnableStealth:          cfg.Browser.EnableStealth,
		DisableAutomationFlags: cfg.Browser.DisableAutomationFlags,
		PersistentContext:      cfg.Browser.PersistentContext,
		PersistentContextDir:   cfg.Browser.PersistentContextDir,
		BlockImages:            cfg.Browser.BlockImages,
		ExtraHeaders:           cfg.Browser.ExtraHeaders,
		ProxyServer:            cfg.Browser.Proxy,
		NavTimeout:             cfg.Navigation.NavTimeout,
		WaitSelector:           cfg.Navigation.WaitSelector,
		ReadySelector:          cfg.Navigation.ReadySelector,
	}
}

// browserType resolves the engine strategy. Chosen once at session
// creation; nothing downstream branches on the engine again.
func (o *Options) browserType(pw *playwright.Playwright) playwright.BrowserType {
	switch o.Engine {
	case "firefox":
		return pw.Firefox
	case "webkit":
		return pw.WebKit
	default:
		return pw.Chromium
	}
}

// New starts the driver, launches the configured engine and prepares the
// single shared context. On partial failure everything already started is
// torn down before returning.
func New(opts *Options, logger *slog.Logger) (*Session, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	log := logger.With("component", "browser")

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	s := &Session{pw: pw, opts: opts, logger: log}
	browserType := opts.browserType(pw)
	args := opts.launchArgs()

	if opts.PersistentContext {
		context, err := browserType.LaunchPersistentContext(opts.PersistentContextDir,
			playwright.BrowserTypeLaunchPersistentContextOptions{
				Headless:   playwright.Bool(opts.Headless),
				SlowMo:     slowMo(opts.SlowMo),
				Args:       args,
				UserAgent:  playwright.String(opts.UserAgent),
				Locale:     playwright.String(opts.Locale),
				TimezoneId: playwright.String(opts.TimezoneID),
				Viewport: &playwright.Size{
					Width:  opts.ViewportWidth,
					Height: opts.ViewportHeight,
				},
				JavaScriptEnabled: playwright.Bool(true),
				Proxy:             proxy(opts.ProxyServer),
			})
		if err != nil {
			pw.Stop()
			return nil, fmt.Errorf("failed to launch persistent context: %w", err)
		}
		s.context = context
	} else {
		browser, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(opts.Headless),
			SlowMo:   slowMo(opts.SlowMo),
			Args:     args,
			Proxy:    proxy(opts.ProxyServer),
		})
		if err != nil {
			pw.Stop()
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		context, err := browser.NewContext(playwright.BrowserNewContextOptions{
			UserAgent:  playwright.String(opts.UserAgent),
			Locale:     playwright.String(opts.Locale),
			TimezoneId: playwright.String(opts.TimezoneID),
			Viewport: &playwright.Size{
				Width:  opts.ViewportWidth,
				Height: opts.ViewportHeight,
			},
			JavaScriptEnabled: playwright.Bool(true),
			AcceptDownloads:   playwright.Bool(false),
		})
		if err != nil {
			browser.Close()
			pw.Stop()
			return nil, fmt.Errorf("failed to create browser context: %w", err)
		}
		s.browser = browser
		s.context = context
	}

	s.context.SetDefaultTimeout(float64(opts.WaitSelector.Milliseconds()))
	s.context.SetDefaultNavigationTimeout(float64(opts.NavTimeout.Milliseconds()))

	if err := s.context.SetExtraHTTPHeaders(opts.headers()); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to set headers: %w", err)
	}

	if opts.EnableStealth {
		if err := s.context.AddInitScript(playwright.Script{
			Content: playwright.String(stealthScript(opts.Locale)),
		}); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to add stealth script: %w", err)
		}
	}

	if opts.BlockImages {
		err := s.context.Route("**/*", func(route playwright.Route) {
			switch route.Request().ResourceType() {
			case "image", "media", "font":
				route.Abort()
			default:
				route.Continue()
			}
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to install resource filter: %w", err)
		}
	}

	log.Info("browser session ready",
		"engine", opts.Engine,
		"headless", opts.Headless,
		"stealth", opts.EnableStealth,
		"persistent", opts.PersistentContext,
	)
	return s, nil
}

func (s *Session) NewPage() (playwright.Page, error) {
	page, err := s.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	return page, nil
}

// Close tears the session down in reverse acquisition order. Safe to call
// more than once; only the first call does work.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}

func slowMo(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}
	return playwright.Float(float64(d.Milliseconds()))
}

func proxy(server string) *playwright.Proxy {
	if server == "" {
		return nil
	}
	return &playwright.Proxy{Server: server}
}
