package models

import (
	"time"
)

// Status classifies the terminal result of navigating one page.
type Status string

const (
	StatusOK      Status = "OK"
	StatusBlock   Status = "BLOCK"
	StatusTimeout Status = "TIMEOUT"
	StatusError   Status = "ERROR"
	StatusPartial Status = "PARTIAL"
)

// PageOutcome is the terminal result of one navigation target. Every input
// URL (pdp) and every visited page index (plp) produces exactly one.
type PageOutcome struct {
	URL            string        `json:"url"`
	FinalURL       string        `json:"final_url,omitempty"`
	PageIndex      int           `json:"page_index,omitempty"`
	Status         Status        `json:"status"`
	BlockLabel     string        `json:"block_label,omitempty"`
	HTTPStatus     int           `json:"http_status,omitempty"`
	Attempts       int           `json:"attempts"`
	Duration       time.Duration `json:"-"`
	ElapsedSec     float64       `json:"elapsed_sec"`
	HTMLPath       string        `json:"html_path,omitempty"`
	ScreenshotPath string        `json:"screenshot_path,omitempty"`
	Error          string        `json:"error,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
}

func (o PageOutcome) Failed() bool {
	return o.Status != StatusOK
}
