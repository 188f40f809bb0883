package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "pdp", cfg.Run.Mode)
	assert.Equal(t, "urls.txt", cfg.Run.URLsFile)
	assert.Equal(t, DefaultMaxPages, cfg.Run.MaxPages)
	assert.Equal(t, "chromium", cfg.Browser.Engine)
	assert.True(t, cfg.Browser.Headless)
	assert.True(t, cfg.Browser.EnableStealth)
	assert.Equal(t, DefaultNavTimeout, cfg.Navigation.NavTimeout)
	assert.Equal(t, DefaultWaitSelector, cfg.Navigation.WaitSelector)
	assert.Equal(t, DefaultMaxRetries, cfg.Navigation.MaxRetries)
	assert.Equal(t, DefaultBackoffBase, cfg.Navigation.BackoffBase)
	assert.Equal(t, DefaultBackoffCap, cfg.Navigation.BackoffCap)
	assert.Equal(t, "outputs", cfg.Output.Dir)
	assert.False(t, cfg.Output.DumpHTML)
	assert.Empty(t, cfg.Browser.ExtraHeaders)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MODE", "PLP")
	t.Setenv("PLP_URL", "https://shop.test/c/washers")
	t.Setenv("BROWSER", "firefox")
	t.Setenv("NAV_TIMEOUT_MS", "30000")
	t.Setenv("WAIT_SELECTOR_MS", "5000")
	t.Setenv("MAX_RETRIES", "2")
	t.Setenv("MAX_PAGES", "3")
	t.Setenv("MIN_SLEEP_SEC", "0.5")
	t.Setenv("MAX_SLEEP_SEC", "1.5")
	t.Setenv("EXTRA_HEADERS_JSON", `{"X-Trace": "abc"}`)

	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "plp", cfg.Run.Mode)
	assert.Equal(t, "firefox", cfg.Browser.Engine)
	assert.Equal(t, 30*time.Second, cfg.Navigation.NavTimeout)
	assert.Equal(t, 5*time.Second, cfg.Navigation.WaitSelector)
	assert.Equal(t, 2, cfg.Navigation.MaxRetries)
	assert.Equal(t, 3, cfg.Run.MaxPages)
	assert.Equal(t, 500*time.Millisecond, cfg.Delay.Min)
	assert.Equal(t, 1500*time.Millisecond, cfg.Delay.Max)
	assert.Equal(t, "abc", cfg.Browser.ExtraHeaders["X-Trace"])
}

func TestLoadIgnoresInvalidHeaderJSON(t *testing.T) {
	t.Setenv("EXTRA_HEADERS_JSON", "{not json")

	cfg := Load()
	assert.Empty(t, cfg.Browser.ExtraHeaders)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Run.Mode = "sitemap" },
			wantErr: "MODE",
		},
		{
			name:    "unknown engine",
			mutate:  func(c *Config) { c.Browser.Engine = "chrome" },
			wantErr: "BROWSER",
		},
		{
			name: "plp without start url",
			mutate: func(c *Config) {
				c.Run.Mode = "plp"
				c.Run.PLPURL = ""
			},
			wantErr: "PLP_URL",
		},
		{
			name:    "zero retries",
			mutate:  func(c *Config) { c.Navigation.MaxRetries = 0 },
			wantErr: "MAX_RETRIES",
		},
		{
			name:    "zero pages",
			mutate:  func(c *Config) { c.Run.MaxPages = 0 },
			wantErr: "MAX_PAGES",
		},
		{
			name:    "cap below base",
			mutate:  func(c *Config) { c.Navigation.BackoffCap = c.Navigation.BackoffBase / 2 },
			wantErr: "BACKOFF_CAP_MS",
		},
		{
			name: "sleep range inverted",
			mutate: func(c *Config) {
				c.Delay.Min = 5 * time.Second
				c.Delay.Max = 1 * time.Second
			},
			wantErr: "MIN_SLEEP_SEC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSentinels(t *testing.T) {
	cfg := Load()
	cfg.Run.Mode = "both"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidMode)

	cfg = Load()
	cfg.Browser.Engine = "safari"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidEngine)
}

func TestEmailConfigured(t *testing.T) {
	e := EmailConfig{}
	assert.False(t, e.Configured())

	// No password, no send: the client always does PLAIN auth.
	e = EmailConfig{Host: "smtp.test", From: "bot@test", To: "ops@test"}
	assert.False(t, e.Configured())

	e.Password = "hunter2"
	assert.True(t, e.Configured())
}
