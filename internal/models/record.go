package models

import (
	"time"
)

// Record is one extracted product (pdp) or one listing row (plp).
// Price and rating fields keep their cleaned textual form so that absent
// values stay distinguishable from genuine zeros.
type Record struct {
	Mode             string    `json:"mode"`
	SourceURL        string    `json:"source_url"`
	FinalURL         string    `json:"final_url"`
	ProductURL       string    `json:"product_url"`
	Title            string    `json:"title"`
	PriceRegular     string    `json:"price_regular"`
	PricePromo       string    `json:"price_promo"`
	Currency         string    `json:"currency"`
	Availability     string    `json:"availability"`
	Brand            string    `json:"brand"`
	Model            string    `json:"model"`
	SKU              string    `json:"sku"`
	Category         string    `json:"category"`
	DescriptionShort string    `json:"description_short"`
	Images           []string  `json:"images,omitempty"`
	Rating           string    `json:"rating"`
	ReviewsCount     string    `json:"reviews_count"`
	Status           Status    `json:"status"`
	ScrapedAt        time.Time `json:"scraped_at"`
	Attempts         int       `json:"attempts"`
	ElapsedSec       float64   `json:"elapsed_sec"`
}

// KeyFieldsEmpty reports whether the fields a reviewer needs to act on the
// record are all missing. Such records are kept but flagged PARTIAL.
func (r Record) KeyFieldsEmpty() bool {
	return r.Title == "" && r.PriceRegular == "" && r.PricePromo == "" && r.SKU == ""
}
