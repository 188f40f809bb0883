// Package events publishes page outcomes and run summaries to a Redis
// stream for downstream consumers. Publishing is optional and best-effort;
// a run never fails because its events did not land.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/storefront-scraper/internal/models"
)

const (
	EventPageScraped = "page.scraped"
	EventRunFinished = "run.finished"
)

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

type Publisher struct {
	client RedisClient
	stream string
	logger *slog.Logger
}

// New wraps a Redis client for stream publishing. A nil client yields a
// disabled publisher whose methods all no-op.
func New(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		stream: stream,
		logger: logger.With("component", "events"),
	}
}

// Connect builds a publisher from an address, or a disabled one when the
// address is empty.
func Connect(addr, stream string, logger *slog.Logger) *Publisher {
	if addr == "" {
		return New(nil, stream, logger)
	}
	return New(redis.NewClient(&redis.Options{Addr: addr}), stream, logger)
}

func (p *Publisher) Enabled() bool {
	return p != nil && p.client != nil
}

// PublishOutcome emits one terminal navigation outcome.
func (p *Publisher) PublishOutcome(ctx context.Context, runID string, outcome models.PageOutcome) error {
	if !p.Enabled() {
		return nil
	}
	payload := map[string]interface{}{
		"url":         outcome.URL,
		"final_url":   outcome.FinalURL,
		"page_index":  outcome.PageIndex,
		"status":      string(outcome.Status),
		"block_label": outcome.BlockLabel,
		"http_status": outcome.HTTPStatus,
		"attempts":    outcome.Attempts,
		"elapsed_sec": outcome.ElapsedSec,
		"error":       outcome.Error,
	}
	return p.publish(ctx, EventPageScraped, runID, payload)
}

// PublishSummary emits the final run summary.
func (p *Publisher) PublishSummary(ctx context.Context, summary models.RunSummary) error {
	if !p.Enabled() {
		return nil
	}
	payload := map[string]interface{}{
		"mode":          summary.Mode,
		"attempted":     summary.Attempted,
		"records":       summary.Records,
		"partial":       summary.Partial,
		"pages_visited": summary.PagesVisited,
		"counts":        summary.Counts,
		"stop_reason":   summary.StopReason,
		"elapsed_sec":   summary.ElapsedSec,
	}
	return p.publish(ctx, EventRunFinished, summary.RunID, payload)
}

func (p *Publisher) publish(ctx context.Context, eventType, runID string, payload map[string]interface{}) error {
	now := time.Now().UTC()
	eventID := uuid.New().String()

	streamData := map[string]interface{}{
		"id":        eventID,
		"type":      eventType,
		"run_id":    runID,
		"timestamp": now.Format(time.RFC3339),
		"payload":   payload,
		"metadata": map[string]interface{}{
			"source": "storefront-scraper",
		},
	}

	dataJSON, err := json.Marshal(streamData)
	if err != nil {
		return fmt.Errorf("failed to marshal stream data: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":      string(dataJSON),
			"type":      eventType,
			"run_id":    runID,
			"event_id":  eventID,
			"timestamp": fmt.Sprintf("%d", now.UnixNano()),
		},
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Debug("event published", "type", eventType, "stream", p.stream, "run_id", runID)
	return nil
}

func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.client.Close()
}
