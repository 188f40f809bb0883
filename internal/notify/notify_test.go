package notify

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/storefront-scraper/internal/config"
	"github.com/maltedev/storefront-scraper/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendSkipsWhenUnconfigured(t *testing.T) {
	m := New(config.EmailConfig{}, testLogger())

	err := m.Send(context.Background(), models.RunSummary{}, nil)
	assert.NoError(t, err)
}

func TestSendSkipsWithoutPassword(t *testing.T) {
	// Host/from/to alone must not trigger a send that dies at auth time.
	m := New(config.EmailConfig{
		Host: "smtp.test",
		From: "scraper@shop.test",
		To:   "ops@shop.test",
	}, testLogger())

	err := m.Send(context.Background(), models.RunSummary{}, nil)
	assert.NoError(t, err)
}

func TestSendRejectsBadFromAddress(t *testing.T) {
	m := New(config.EmailConfig{
		Host:     "smtp.test",
		Password: "secret",
		From:     "not an address",
		To:       "ops@shop.test",
	}, testLogger())

	err := m.Send(context.Background(), models.RunSummary{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from")
}

func TestRenderBody(t *testing.T) {
	summary := models.RunSummary{
		RunID:   "run-9",
		Mode:    "plp",
		Records: 7,
		Counts:  map[string]int{"OK": 3, "BLOCK": 1},
	}

	body, err := renderBody(summary)
	require.NoError(t, err)

	assert.True(t, strings.Contains(body, `"total_rows": 7`))
	assert.True(t, strings.Contains(body, `"run_id": "run-9"`))
	assert.True(t, strings.Contains(body, `"BLOCK": 1`))
}
