package extractor

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/storefront-scraper/internal/models"
)

const (
	defaultCurrency     = "MXN"
	maxShortDescription = 2000
)

// StorefrontExtractor pulls product fields out of rendered storefront HTML.
// Every selector chain degrades to an empty field; markup drift never turns
// into an error.
type StorefrontExtractor struct {
	priceChars *regexp.Regexp
	digits     *regexp.Regexp
	whitespace *regexp.Regexp
}

var _ Extractor = (*StorefrontExtractor)(nil)

func NewStorefrontExtractor() *StorefrontExtractor {
	return &StorefrontExtractor{
		priceChars: regexp.MustCompile(`[^0-9,.]`),
		digits:     regexp.MustCompile(`\D`),
		whitespace: regexp.MustCompile(`\s+`),
	}
}

func (e *StorefrontExtractor) Product(html string, sourceURL string) (models.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	rec := models.Record{
		ProductURL:   sourceURL,
		Currency:     defaultCurrency,
		Availability: "unknown",
	}

	rec.Title = e.extractTitle(doc)
	rec.PriceRegular, rec.PricePromo = e.extractPrices(doc.Selection)
	rec.Brand = e.firstText(doc.Selection, []string{"[itemprop='brand']", ".product-brand", "[data-testid='brand']"})
	rec.Model = e.firstText(doc.Selection, []string{"[itemprop='model']", ".product-model", "[data-testid='model']"})
	rec.SKU = e.extractSKU(doc)
	rec.Category = e.firstText(doc.Selection, []string{".breadcrumb", "[data-testid='breadcrumb']"})
	rec.DescriptionShort = e.extractShortDescription(doc)
	rec.Images = e.extractImages(doc)
	rec.Rating = e.firstText(doc.Selection, []string{"[data-testid='rating']", ".rating"})
	rec.ReviewsCount = e.extractReviewsCount(doc)

	if availability := e.firstText(doc.Selection, []string{"[data-testid='availability']", ".availability"}); availability != "" {
		rec.Availability = availability
	}

	e.fillFromJSONLD(doc, &rec)

	rec.Status = models.StatusOK
	if rec.KeyFieldsEmpty() {
		rec.Status = models.StatusPartial
	}

	return rec, nil
}

func (e *StorefrontExtractor) Listing(html string, baseURL string) ([]models.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var records []models.Record

	for _, item := range itemListJSONLD(doc) {
		rec := models.Record{
			Title:      e.clean(ldString(item, "name")),
			ProductURL: ldString(item, "url"),
			Currency:   defaultCurrency,
		}
		if offers := ldOffers(item); offers != nil {
			rec.PriceRegular = e.formatPrice(ldString(offers, "price"))
			if currency := ldString(offers, "priceCurrency"); currency != "" {
				rec.Currency = currency
			}
		}
		records = append(records, rec)
	}

	category := e.firstText(doc.Selection, []string{".breadcrumb", "[data-testid='breadcrumb']"})

	cardSelectors := []string{
		"[data-testid*='product-card']",
		".product-card",
		".product-item",
		"li.product",
	}

	var cards *goquery.Selection
	for _, selector := range cardSelectors {
		found := doc.Find(selector)
		if found.Length() > 0 {
			cards = found
			break
		}
	}

	if cards != nil {
		cards.Each(func(i int, card *goquery.Selection) {
			link := card.Find("a[href]").First()
			href, _ := link.Attr("href")

			title := e.clean(card.Find("h2, h3").First().Text())
			if title == "" {
				title = e.clean(link.Text())
			}

			rec := models.Record{
				Title:      title,
				ProductURL: href,
				Currency:   defaultCurrency,
				Category:   category,
			}
			rec.PriceRegular, rec.PricePromo = e.extractPrices(card)
			records = append(records, rec)
		})
	}

	for i := range records {
		records[i].ProductURL = resolveURL(baseURL, records[i].ProductURL)
		records[i].Status = models.StatusOK
		if records[i].KeyFieldsEmpty() {
			records[i].Status = models.StatusPartial
		}
	}

	return records, nil
}

// NextPageURL returns the absolute href of the next-page control, or ""
// when the listing has no further pages.
func (e *StorefrontExtractor) NextPageURL(html string, baseURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	hrefSelectors := []string{
		"a[rel='next']",
		"link[rel='next']",
		"a[aria-label*='Siguiente']",
		"a[aria-label*='Next']",
	}

	for _, selector := range hrefSelectors {
		if href, ok := doc.Find(selector).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
			return resolveURL(baseURL, strings.TrimSpace(href))
		}
	}

	var href string
	doc.Find("a[href]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := e.clean(s.Text())
		if strings.Contains(text, "Siguiente") || strings.Contains(text, "Next") {
			href, _ = s.Attr("href")
			return false
		}
		return true
	})

	if strings.TrimSpace(href) == "" {
		return ""
	}
	return resolveURL(baseURL, strings.TrimSpace(href))
}

func (e *StorefrontExtractor) extractTitle(doc *goquery.Document) string {
	title := e.firstText(doc.Selection, []string{"h1", "[data-testid='product-title']", ".product-title"})
	if title != "" {
		return title
	}
	return e.metaContent(doc.Selection, []string{"meta[property='og:title']", "meta[name='title']"})
}

// extractPrices returns (regular, promo). The first matching price selector
// is the regular price; the promo comes from the promo chain, falling back
// to the second generic candidate when the promo chain is empty.
func (e *StorefrontExtractor) extractPrices(s *goquery.Selection) (string, string) {
	var candidates []string
	for _, selector := range []string{
		"[data-testid='price']",
		".price",
		".product-price",
		"meta[property='product:price:amount']",
	} {
		el := s.Find(selector).First()
		if el.Length() == 0 {
			continue
		}
		var text string
		if goquery.NodeName(el) == "meta" {
			text, _ = el.Attr("content")
		} else {
			text = el.Text()
		}
		if cleaned := e.clean(text); cleaned != "" {
			candidates = append(candidates, cleaned)
		}
	}

	var regular, promo string
	if len(candidates) > 0 {
		regular = e.formatPrice(candidates[0])
	}

	promoText := e.firstText(s, []string{".price--promo", ".price-promo", "[data-testid='price-promo']"})
	if promoText != "" {
		promo = e.formatPrice(promoText)
	}
	if promo == "" && len(candidates) > 1 {
		promo = e.formatPrice(candidates[1])
	}

	return regular, promo
}

func (e *StorefrontExtractor) extractSKU(doc *goquery.Document) string {
	sku := e.firstText(doc.Selection, []string{"[itemprop='sku']", ".product-sku", "[data-testid='sku']"})
	if sku != "" {
		return sku
	}
	return e.metaContent(doc.Selection, []string{"meta[itemprop='sku']"})
}

func (e *StorefrontExtractor) extractShortDescription(doc *goquery.Document) string {
	desc := e.firstText(doc.Selection, []string{"[data-testid='short-description']", ".product-short-description"})
	if desc == "" {
		desc = e.metaContent(doc.Selection, []string{"meta[name='description']"})
	}
	return truncate(desc, maxShortDescription)
}

func (e *StorefrontExtractor) extractImages(doc *goquery.Document) []string {
	var images []string
	seen := make(map[string]bool)

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || src == "" {
			src, _ = s.Attr("data-src")
		}
		if src == "" || !strings.HasPrefix(src, "http") {
			return
		}
		if seen[src] {
			return
		}
		seen[src] = true
		images = append(images, src)
	})

	if len(images) == 0 {
		if ld := productJSONLD(doc); ld != nil {
			images = ldImages(ld)
		}
	}

	return images
}

func (e *StorefrontExtractor) extractReviewsCount(doc *goquery.Document) string {
	reviews := e.firstText(doc.Selection, []string{"[data-testid='reviews']", ".reviews"})
	if reviews == "" {
		return ""
	}
	return e.digits.ReplaceAllString(reviews, "")
}

// fillFromJSONLD backfills fields the selector chains missed from an
// embedded schema.org Product block.
func (e *StorefrontExtractor) fillFromJSONLD(doc *goquery.Document, rec *models.Record) {
	ld := productJSONLD(doc)
	if ld == nil {
		return
	}

	if rec.Title == "" {
		rec.Title = e.clean(ldString(ld, "name"))
	}
	if rec.Brand == "" {
		rec.Brand = e.clean(ldString(ld, "brand"))
	}
	if rec.SKU == "" {
		rec.SKU = e.clean(ldString(ld, "sku"))
	}

	offers := ldOffers(ld)
	if offers == nil {
		return
	}
	if rec.PriceRegular == "" {
		rec.PriceRegular = e.formatPrice(ldString(offers, "price"))
	}
	if currency := ldString(offers, "priceCurrency"); currency != "" && rec.Currency == defaultCurrency {
		rec.Currency = currency
	}
	if rec.Availability == "unknown" {
		if availability := ldAvailability(offers); availability != "" {
			rec.Availability = availability
		}
	}
}

func (e *StorefrontExtractor) firstText(s *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		if text := e.clean(s.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func (e *StorefrontExtractor) metaContent(s *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		if content, ok := s.Find(selector).First().Attr("content"); ok {
			if cleaned := e.clean(content); cleaned != "" {
				return cleaned
			}
		}
	}
	return ""
}

// clean collapses runs of whitespace (non-breaking spaces included) into
// single spaces.
func (e *StorefrontExtractor) clean(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, " ", " ")
	return strings.TrimSpace(e.whitespace.ReplaceAllString(text, " "))
}

func resolveURL(baseURL string, href string) string {
	if href == "" {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
