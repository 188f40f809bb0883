package extractor

import (
	"github.com/maltedev/storefront-scraper/internal/models"
)

type Extractor interface {
	Product(html string, sourceURL string) (models.Record, error)
	Listing(html string, baseURL string) ([]models.Record, error)
	NextPageURL(html string, baseURL string) string
}
