package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/maltedev/storefront-scraper/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS scrape_runs (
	run_id        TEXT PRIMARY KEY,
	mode          TEXT NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL,
	elapsed_sec   DOUBLE PRECISION NOT NULL,
	attempted     INTEGER NOT NULL,
	records       INTEGER NOT NULL,
	partial       INTEGER NOT NULL,
	pages_visited INTEGER NOT NULL,
	counts        JSONB,
	stop_reason   TEXT,
	stop_page     INTEGER
);

CREATE TABLE IF NOT EXISTS scrape_records (
	id                BIGSERIAL PRIMARY KEY,
	run_id            TEXT NOT NULL REFERENCES scrape_runs(run_id),
	mode              TEXT NOT NULL,
	source_url        TEXT NOT NULL,
	final_url         TEXT,
	product_url       TEXT,
	title             TEXT,
	price_regular     TEXT,
	price_promo       TEXT,
	currency          TEXT,
	availability      TEXT,
	brand             TEXT,
	model             TEXT,
	sku               TEXT,
	category          TEXT,
	description_short TEXT,
	images            JSONB,
	rating            TEXT,
	reviews_count     TEXT,
	status            TEXT NOT NULL,
	scraped_at        TIMESTAMPTZ NOT NULL,
	attempts          INTEGER NOT NULL,
	elapsed_sec       DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scrape_records_run_id ON scrape_records(run_id);
CREATE INDEX IF NOT EXISTS idx_scrape_records_sku ON scrape_records(sku);
`

// EnsureSchema creates the run tables when they do not exist yet. The
// scraper owns its schema; there is no separate migration step.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// SaveRun stores the summary and all records of a finished run in one
// transaction, so a run is either fully persisted or absent.
func (db *DB) SaveRun(ctx context.Context, summary models.RunSummary, records []models.Record) error {
	countsJSON, err := json.Marshal(summary.Counts)
	if err != nil {
		return fmt.Errorf("failed to marshal counts: %w", err)
	}

	return db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO scrape_runs (
				run_id, mode, started_at, finished_at, elapsed_sec,
				attempted, records, partial, pages_visited, counts,
				stop_reason, stop_page
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			summary.RunID, summary.Mode, summary.StartedAt, summary.FinishedAt,
			summary.ElapsedSec, summary.Attempted, summary.Records, summary.Partial,
			summary.PagesVisited, countsJSON, summary.StopReason, summary.StopPage,
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		for i := range records {
			if err := insertRecord(ctx, tx, summary.RunID, records[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertRecord(ctx context.Context, tx pgx.Tx, runID string, r models.Record) error {
	var imagesJSON []byte
	if len(r.Images) > 0 {
		var err error
		imagesJSON, err = json.Marshal(r.Images)
		if err != nil {
			return fmt.Errorf("failed to marshal images: %w", err)
		}
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO scrape_records (
			run_id, mode, source_url, final_url, product_url, title,
			price_regular, price_promo, currency, availability, brand,
			model, sku, category, description_short, images, rating,
			reviews_count, status, scraped_at, attempts, elapsed_sec
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		runID, r.Mode, r.SourceURL, r.FinalURL, r.ProductURL, r.Title,
		r.PriceRegular, r.PricePromo, r.Currency, r.Availability, r.Brand,
		r.Model, r.SKU, r.Category, r.DescriptionShort, imagesJSON, r.Rating,
		r.ReviewsCount, string(r.Status), r.ScrapedAt, r.Attempts, r.ElapsedSec,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}
