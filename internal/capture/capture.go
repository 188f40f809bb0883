// Package capture writes post-hoc diagnosis artifacts for failed or
// force-dumped pages into the run's debug directory.
package capture

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/playwright-community/playwright-go"
)

// Capturer names artifacts by a hash of the target URL so repeated
// captures of the same URL overwrite instead of piling up.
type Capturer struct {
	dir            string
	saveHTML       bool
	saveScreenshot bool
	logger         *slog.Logger
}

// New ensures the debug directory exists. A directory that cannot be
// created is fatal for the run; individual write failures later are not.
func New(dir string, saveHTML, saveScreenshot bool, logger *slog.Logger) (*Capturer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create debug dir: %w", err)
	}
	return &Capturer{
		dir:            dir,
		saveHTML:       saveHTML,
		saveScreenshot: saveScreenshot,
		logger:         logger.With("component", "capture"),
	}, nil
}

// Failure saves the HTML and screenshot for a non-OK page, honoring the
// per-artifact toggles. page may be nil when the attempt died before one
// existed; html may be empty, in which case the live page is asked for a
// last snapshot. Returns whatever paths were written.
func (c *Capturer) Failure(page playwright.Page, url, html string) (string, string) {
	var htmlPath, shotPath string

	if html == "" && page != nil {
		if content, err := page.Content(); err == nil {
			html = content
		}
	}

	if c.saveHTML && html != "" {
		htmlPath = c.write(fmt.Sprintf("html_%s.html", hashKey(url)), html)
	}

	if c.saveScreenshot && page != nil {
		path := filepath.Join(c.dir, fmt.Sprintf("shot_%s.png", hashKey(url)))
		if _, err := page.Screenshot(playwright.PageScreenshotOptions{
			Path:     playwright.String(path),
			FullPage: playwright.Bool(true),
		}); err != nil {
			c.logger.Warn("screenshot failed", "url", url, "error", err)
		} else {
			shotPath = path
		}
	}

	return htmlPath, shotPath
}

// Dump saves the HTML of any page when forced dumping is on. Used for
// selector archaeology on pages that loaded fine.
func (c *Capturer) Dump(url, html string) string {
	if html == "" {
		return ""
	}
	return c.write(fmt.Sprintf("dump_%s.html", hashKey(url)), html)
}

func (c *Capturer) write(name, content string) string {
	path := filepath.Join(c.dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		c.logger.Warn("debug write failed", "path", path, "error", err)
		return ""
	}
	return path
}

func hashKey(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}
