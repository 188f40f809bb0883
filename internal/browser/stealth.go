package browser

import (
	"fmt"
	"strings"
)

// launchArgs builds the engine flags. Automation-flag suppression is a
// Chromium concept; Firefox and WebKit get no flags at all.
func (o *Options) launchArgs() []string {
	if o.Engine != "chromium" {
		return nil
	}
	args := []string{
		"--disable-dev-shm-usage",
		"--no-sandbox",
	}
	if o.DisableAutomationFlags {
		args = append(args,
			"--disable-blink-features=AutomationControlled",
			"--disable-infobars",
		)
	}
	return args
}

// headers returns the context-wide request headers: a locale-matched
// Accept-Language plus whatever EXTRA_HEADERS_JSON configured, the latter
// winning on conflict.
func (o *Options) headers() map[string]string {
	headers := map[string]string{
		"Accept-Language": acceptLanguage(o.Locale),
	}
	for k, v := range o.ExtraHeaders {
		headers[k] = v
	}
	return headers
}

func acceptLanguage(locale string) string {
	lang := locale
	if i := strings.Index(locale, "-"); i > 0 {
		lang = locale[:i]
	}
	if lang == "" || lang == locale {
		return locale
	}
	return fmt.Sprintf("%s,%s;q=0.9,en;q=0.8", locale, lang)
}

// stealthScript is injected into the context before any page script runs.
// It hides the webdriver property, restores a plug-in list and a chrome
// object headless mode strips, and pins navigator.languages to the
// configured locale.
func stealthScript(locale string) string {
	lang := locale
	if i := strings.Index(locale, "-"); i > 0 {
		lang = locale[:i]
	}
	languages := fmt.Sprintf("['%s', '%s', 'en-US', 'en']", locale, lang)
	return fmt.Sprintf(`
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
window.chrome = { runtime: {} };
Object.defineProperty(navigator, 'languages', { get: () => %s });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
`, languages)
}
