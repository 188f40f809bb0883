// Package export writes the run artifacts: results.csv, results.xlsx and
// summary.json. Artifact writes are the run's whole point, so every failure
// here is returned to the caller and treated as fatal.
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/maltedev/storefront-scraper/internal/models"
)

const (
	csvName     = "results.csv"
	xlsxName    = "results.xlsx"
	summaryName = "summary.json"
	sheetName   = "results"
)

// columns is the fixed artifact schema. CSV and XLSX share it; order
// changes break downstream consumers.
var columns = []string{
	"timestamp_utc",
	"mode",
	"source_url",
	"final_url",
	"product_url",
	"title",
	"price_regular",
	"price_promo",
	"currency",
	"availability",
	"brand",
	"model",
	"sku",
	"category",
	"description_short",
	"images",
	"rating",
	"reviews_count",
	"status",
	"attempts",
	"elapsed_sec",
}

type Exporter struct {
	dir    string
	logger *slog.Logger
}

func New(dir string, logger *slog.Logger) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &Exporter{dir: dir, logger: logger.With("component", "export")}, nil
}

// Write produces all artifacts for the run. The first failing artifact
// aborts; partial artifact sets are useless for consumers.
func (e *Exporter) Write(records []models.Record, summary models.RunSummary) error {
	if err := e.writeCSV(records); err != nil {
		return err
	}
	if err := e.writeXLSX(records); err != nil {
		return err
	}
	if err := e.writeSummary(summary); err != nil {
		return err
	}
	e.logger.Info("artifacts written", "dir", e.dir, "rows", len(records))
	return nil
}

func (e *Exporter) CSVPath() string     { return filepath.Join(e.dir, csvName) }
func (e *Exporter) XLSXPath() string    { return filepath.Join(e.dir, xlsxName) }
func (e *Exporter) SummaryPath() string { return filepath.Join(e.dir, summaryName) }

func (e *Exporter) writeSummary(summary models.RunSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := os.WriteFile(e.SummaryPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// rowValues renders one record in column order. XLSX keeps native types;
// the CSV writer stringifies them.
func rowValues(r models.Record) []interface{} {
	return []interface{}{
		r.ScrapedAt.UTC().Format(time.RFC3339),
		r.Mode,
		r.SourceURL,
		r.FinalURL,
		r.ProductURL,
		r.Title,
		r.PriceRegular,
		r.PricePromo,
		r.Currency,
		r.Availability,
		r.Brand,
		r.Model,
		r.SKU,
		r.Category,
		r.DescriptionShort,
		imagesJSON(r.Images),
		r.Rating,
		r.ReviewsCount,
		string(r.Status),
		r.Attempts,
		r.ElapsedSec,
	}
}

func csvRow(r models.Record) []string {
	values := rowValues(r)
	row := make([]string, len(values))
	for i, v := range values {
		row[i] = fmt.Sprint(v)
	}
	return row
}

// imagesJSON keeps the image list as one JSON cell, "" when there are none.
func imagesJSON(images []string) string {
	if len(images) == 0 {
		return ""
	}
	data, err := json.Marshal(images)
	if err != nil {
		return ""
	}
	return string(data)
}
