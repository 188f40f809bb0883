package export

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/maltedev/storefront-scraper/internal/models"
)

func (e *Exporter) writeCSV(records []models.Record) error {
	f, err := os.Create(e.CSVPath())
	if err != nil {
		return fmt.Errorf("failed to create csv: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for i := range records {
		if err := w.Write(csvRow(records[i])); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close csv: %w", err)
	}
	return nil
}
