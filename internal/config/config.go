package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the navigation and pagination knobs. Values mirror what the
// target storefront tolerates in practice; all of them can be overridden
// through the environment.
const (
	// DefaultNavTimeout bounds a single navigation including redirects.
	// Storefront pages routinely take tens of seconds on a cold profile.
	DefaultNavTimeout = 45 * time.Second

	// DefaultWaitSelector bounds the wait for the readiness selector after
	// navigation has settled.
	DefaultWaitSelector = 20 * time.Second

	// DefaultMaxRetries is the total number of navigation attempts per
	// target, first attempt included.
	DefaultMaxRetries = 3

	// DefaultBackoffBase and DefaultBackoffCap shape the retry delay:
	// min(cap, base * 2^attempt). The 15s ceiling keeps a full retry
	// cycle under a minute.
	DefaultBackoffBase = 1 * time.Second
	DefaultBackoffCap  = 15 * time.Second

	// DefaultMaxPages caps a listing crawl that never runs out of next
	// links.
	DefaultMaxPages = 50

	// DefaultReadySelector is the element whose presence marks a page as
	// loaded enough to classify.
	DefaultReadySelector = "body"
)

var (
	ErrInvalidMode   = errors.New("MODE must be pdp or plp")
	ErrInvalidEngine = errors.New("BROWSER must be chromium, firefox or webkit")
)

type Config struct {
	Run        RunConfig
	Browser    BrowserConfig
	Navigation NavigationConfig
	Delay      DelayConfig
	Output     OutputConfig
	Email      EmailConfig
	Database   DatabaseConfig
	Events     EventsConfig
	Logging    LoggingConfig
}

type RunConfig struct {
	Mode       string
	URLsFile   string
	PLPURL     string
	MaxURLs    int
	MaxPages   int
	MaxRuntime time.Duration
	WarmupURL  string
}

type BrowserConfig struct {
	Engine                 string
	Headless               bool
	SlowMo                 time.Duration
	UserAgent              string
	Locale                 string
	Timezone               string
	ViewportWidth          int
	ViewportHeight         int
	EnableStealth          bool
	DisableAutomationFlags bool
	PersistentContext      bool
	PersistentContextDir   string
	BlockImages            bool
	ExtraHeaders           map[string]string
	Proxy                  string
}

type NavigationConfig struct {
	NavTimeout     time.Duration
	WaitSelector   time.Duration
	ReadySelector  string
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffCap     time.Duration
	BlockRulesFile string
}

type DelayConfig struct {
	Min time.Duration
	Max time.Duration
}

type OutputConfig struct {
	Dir            string
	DumpHTML       bool
	SaveHTML       bool
	SaveScreenshot bool
}

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
	Subject  string
}

// Configured reports whether enough is set to attempt a send. The client
// always authenticates, so a missing password means skip, not try.
func (e EmailConfig) Configured() bool {
	return e.Host != "" && e.From != "" && e.To != "" && e.Password != ""
}

type DatabaseConfig struct {
	URL string
}

func (d DatabaseConfig) Enabled() bool { return d.URL != "" }

type EventsConfig struct {
	RedisAddr string
	Stream    string
}

func (e EventsConfig) Enabled() bool { return e.RedisAddr != "" }

type LoggingConfig struct {
	Level string
}

// Load reads the environment (after an optional .env file) into an
// immutable snapshot. It never fails on unknown values; Validate does the
// rejecting so that error messages can name every problem key.
func Load() *Config {
	// Missing .env is the normal case in CI and cron.
	_ = godotenv.Load()

	cfg := &Config{
		Run: RunConfig{
			Mode:       strings.ToLower(getEnvOrDefault("MODE", "pdp")),
			URLsFile:   getEnvOrDefault("URLS_FILE", "urls.txt"),
			PLPURL:     getEnvOrDefault("PLP_URL", ""),
			MaxURLs:    getIntOrDefault("MAX_URLS", 0),
			MaxPages:   getIntOrDefault("MAX_PAGES", DefaultMaxPages),
			MaxRuntime: getSecondsOrDefault("MAX_RUNTIME_SEC", 0),
			WarmupURL:  getEnvOrDefault("WARMUP_URL", ""),
		},
		Browser: BrowserConfig{
			Engine:                 strings.ToLower(getEnvOrDefault("BROWSER", "chromium")),
			Headless:               getBoolOrDefault("HEADLESS", true),
			SlowMo:                 getMillisOrDefault("SLOW_MO_MS", 0),
			UserAgent:              getEnvOrDefault("USER_AGENT", defaultUserAgent),
			Locale:                 getEnvOrDefault("LOCALE", "es-MX"),
			Timezone:               getEnvOrDefault("TIMEZONE", "America/Mexico_City"),
			ViewportWidth:          getIntOrDefault("VIEWPORT_WIDTH", 1366),
			ViewportHeight:         getIntOrDefault("VIEWPORT_HEIGHT", 768),
			EnableStealth:          getBoolOrDefault("ENABLE_STEALTH", true),
			DisableAutomationFlags: getBoolOrDefault("DISABLE_AUTOMATION_FLAGS", true),
			PersistentContext:      getBoolOrDefault("PERSISTENT_CONTEXT", false),
			PersistentContextDir:   getEnvOrDefault("PERSISTENT_CONTEXT_DIR", "outputs/session"),
			BlockImages:            getBoolOrDefault("BLOCK_IMAGES", false),
			ExtraHeaders:           getHeadersOrEmpty("EXTRA_HEADERS_JSON"),
			Proxy:                  getEnvOrDefault("PROXY_SERVER", ""),
		},
		Navigation: NavigationConfig{
			NavTimeout:     getMillisOrDefault("NAV_TIMEOUT_MS", DefaultNavTimeout),
			WaitSelector:   getMillisOrDefault("WAIT_SELECTOR_MS", DefaultWaitSelector),
			ReadySelector:  getEnvOrDefault("READY_SELECTOR", DefaultReadySelector),
			MaxRetries:     getIntOrDefault("MAX_RETRIES", DefaultMaxRetries),
			BackoffBase:    getMillisOrDefault("BACKOFF_BASE_MS", DefaultBackoffBase),
			BackoffCap:     getMillisOrDefault("BACKOFF_CAP_MS", DefaultBackoffCap),
			BlockRulesFile: getEnvOrDefault("BLOCK_RULES_FILE", ""),
		},
		Delay: DelayConfig{
			Min: getSecondsOrDefault("MIN_SLEEP_SEC", 1500*time.Millisecond),
			Max: getSecondsOrDefault("MAX_SLEEP_SEC", 3500*time.Millisecond),
		},
		Output: OutputConfig{
			Dir:            getEnvOrDefault("OUTPUT_DIR", "outputs"),
			DumpHTML:       getBoolOrDefault("DUMP_HTML", false),
			SaveHTML:       getBoolOrDefault("DEBUG_SAVE_HTML", true),
			SaveScreenshot: getBoolOrDefault("DEBUG_SAVE_SCREENSHOT", true),
		},
		Email: EmailConfig{
			Host:     getEnvOrDefault("EMAIL_SMTP_HOST", "smtp.gmail.com"),
			Port:     getIntOrDefault("EMAIL_SMTP_PORT", 587),
			Username: getEnvOrDefault("EMAIL_USERNAME", ""),
			Password: getEnvOrDefault("EMAIL_PASSWORD", ""),
			From:     getEnvOrDefault("EMAIL_FROM", ""),
			To:       getEnvOrDefault("EMAIL_TO", ""),
			Subject:  getEnvOrDefault("EMAIL_SUBJECT", "Scrape results"),
		},
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Events: EventsConfig{
			RedisAddr: getEnvOrDefault("REDIS_ADDR", ""),
			Stream:    getEnvOrDefault("EVENT_STREAM", "stream:scrape_outcomes"),
		},
		Logging: LoggingConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
	}

	return cfg
}

func (c *Config) Validate() error {
	if c.Run.Mode != "pdp" && c.Run.Mode != "plp" {
		return fmt.Errorf("%w, got %q", ErrInvalidMode, c.Run.Mode)
	}
	switch c.Browser.Engine {
	case "chromium", "firefox", "webkit":
	default:
		return fmt.Errorf("%w, got %q", ErrInvalidEngine, c.Browser.Engine)
	}
	if c.Run.Mode == "plp" && c.Run.PLPURL == "" {
		return fmt.Errorf("PLP_URL is required when MODE=plp")
	}
	if c.Run.MaxPages < 1 {
		return fmt.Errorf("MAX_PAGES must be at least 1")
	}
	if c.Navigation.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1")
	}
	if c.Navigation.NavTimeout <= 0 {
		return fmt.Errorf("NAV_TIMEOUT_MS must be positive")
	}
	if c.Navigation.WaitSelector <= 0 {
		return fmt.Errorf("WAIT_SELECTOR_MS must be positive")
	}
	if c.Navigation.BackoffBase <= 0 {
		return fmt.Errorf("BACKOFF_BASE_MS must be positive")
	}
	if c.Navigation.BackoffCap < c.Navigation.BackoffBase {
		return fmt.Errorf("BACKOFF_CAP_MS cannot be below BACKOFF_BASE_MS")
	}
	if c.Delay.Min > c.Delay.Max {
		return fmt.Errorf("MIN_SLEEP_SEC cannot be greater than MAX_SLEEP_SEC")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getMillisOrDefault reads an integer number of milliseconds.
func getMillisOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

// getSecondsOrDefault reads a float number of seconds.
func getSecondsOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if sec, err := strconv.ParseFloat(value, 64); err == nil && sec >= 0 {
			return time.Duration(sec * float64(time.Second))
		}
	}
	return defaultValue
}

// getHeadersOrEmpty parses a JSON object of extra request headers. An
// invalid value is logged and dropped rather than failing startup.
func getHeadersOrEmpty(key string) map[string]string {
	value := os.Getenv(key)
	if value == "" {
		return map[string]string{}
	}
	headers := map[string]string{}
	if err := json.Unmarshal([]byte(value), &headers); err != nil {
		slog.Warn("ignoring invalid header JSON", "key", key, "error", err)
		return map[string]string{}
	}
	return headers
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
