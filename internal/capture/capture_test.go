package capture

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFailureWritesHTML(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "debug")
	c, err := New(dir, true, true, discardLogger())
	require.NoError(t, err)

	url := "https://shop.test/p/123"
	htmlPath, shotPath := c.Failure(nil, url, "<html><body>Access Denied</body></html>")

	require.NotEmpty(t, htmlPath)
	assert.Equal(t, filepath.Join(dir, "html_"+hashKey(url)+".html"), htmlPath)
	// No live page, so no screenshot.
	assert.Empty(t, shotPath)

	data, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Access Denied")
}

func TestFailureHonorsToggles(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "debug"), false, false, discardLogger())
	require.NoError(t, err)

	htmlPath, shotPath := c.Failure(nil, "https://shop.test/p/1", "<html></html>")
	assert.Empty(t, htmlPath)
	assert.Empty(t, shotPath)
}

func TestFailureOverwritesSameURL(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "debug")
	c, err := New(dir, true, false, discardLogger())
	require.NoError(t, err)

	url := "https://shop.test/p/9"
	first, _ := c.Failure(nil, url, "<html>first</html>")
	second, _ := c.Failure(nil, url, "<html>second</html>")
	assert.Equal(t, first, second)

	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Contains(t, string(data), "second")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDump(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "debug")
	c, err := New(dir, true, true, discardLogger())
	require.NoError(t, err)

	path := c.Dump("https://shop.test/c/washers?page=2", "<html>listing</html>")
	require.NotEmpty(t, path)
	assert.Contains(t, filepath.Base(path), "dump_")

	assert.Empty(t, c.Dump("https://shop.test/none", ""))
}
