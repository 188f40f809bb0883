package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/storefront-scraper/internal/models"
)

func TestParsePrice(t *testing.T) {
	e := NewStorefrontExtractor()

	tests := []struct {
		name     string
		input    string
		expected float64
		ok       bool
	}{
		{"simple with thousands comma", "$12,345", 12345, true},
		{"us decimal", "$12,345.67", 12345.67, true},
		{"eu style", "12.345,67", 12345.67, true},
		{"plain integer", "4999", 4999, true},
		{"decimal comma", "12,34", 12.34, true},
		{"repeated commas", "1,234,567", 1234567, true},
		{"repeated dots", "1.234.567", 1234567, true},
		{"currency prefix and spaces", "MXN $ 1,299.00", 1299, true},
		{"empty", "", 0, false},
		{"no digits", "Agotado", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, ok := e.parsePrice(tt.input)

			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, amount, 0.001)
			}
		})
	}
}

func TestProductFullPage(t *testing.T) {
	e := NewStorefrontExtractor()

	html := `<!DOCTYPE html>
<html>
<head>
	<meta name="description" content="Lavadora de carga frontal con 10 ciclos.">
</head>
<body>
	<nav class="breadcrumb">Hogar / Lavadoras</nav>
	<h1>Lavadora LG 18kg Carga Frontal</h1>
	<span data-testid="price">$12,999.00</span>
	<span class="price--promo">$9,999.00</span>
	<span itemprop="brand">LG</span>
	<span itemprop="model">WM18VV</span>
	<span itemprop="sku">PM-328411</span>
	<div data-testid="availability">Disponible</div>
	<div data-testid="rating">4.5</div>
	<div data-testid="reviews">123 opiniones</div>
	<img src="https://cdn.shop.test/img/lavadora-1.jpg">
	<img src="https://cdn.shop.test/img/lavadora-2.jpg">
	<img src="/static/icon.svg">
</body>
</html>`

	rec, err := e.Product(html, "https://shop.test/p/lavadora-lg-18kg")
	require.NoError(t, err)

	assert.Equal(t, "Lavadora LG 18kg Carga Frontal", rec.Title)
	assert.Equal(t, "12999", rec.PriceRegular)
	assert.Equal(t, "9999", rec.PricePromo)
	assert.Equal(t, "MXN", rec.Currency)
	assert.Equal(t, "LG", rec.Brand)
	assert.Equal(t, "WM18VV", rec.Model)
	assert.Equal(t, "PM-328411", rec.SKU)
	assert.Equal(t, "Hogar / Lavadoras", rec.Category)
	assert.Equal(t, "Disponible", rec.Availability)
	assert.Equal(t, "Lavadora de carga frontal con 10 ciclos.", rec.DescriptionShort)
	assert.Equal(t, "4.5", rec.Rating)
	assert.Equal(t, "123", rec.ReviewsCount)
	assert.Equal(t, []string{
		"https://cdn.shop.test/img/lavadora-1.jpg",
		"https://cdn.shop.test/img/lavadora-2.jpg",
	}, rec.Images)
	assert.Equal(t, "https://shop.test/p/lavadora-lg-18kg", rec.ProductURL)
	assert.Equal(t, models.StatusOK, rec.Status)
}

func TestProductMissingEverythingIsPartial(t *testing.T) {
	e := NewStorefrontExtractor()

	rec, err := e.Product("<html><body><div>nada</div></body></html>", "https://shop.test/p/x")
	require.NoError(t, err)

	assert.Empty(t, rec.Title)
	assert.Empty(t, rec.PriceRegular)
	assert.Empty(t, rec.SKU)
	assert.Equal(t, "unknown", rec.Availability)
	assert.Equal(t, "MXN", rec.Currency)
	assert.Equal(t, models.StatusPartial, rec.Status)
}

func TestProductFillsGapsFromJSONLD(t *testing.T) {
	e := NewStorefrontExtractor()

	html := `<html>
<head>
<script type="application/ld+json">
{
	"@context": "https://schema.org",
	"@type": "Product",
	"name": "Refrigerador Samsung 28 pies",
	"sku": "PM-555001",
	"brand": {"@type": "Brand", "name": "Samsung"},
	"image": ["https://cdn.shop.test/img/refri-1.jpg"],
	"offers": {
		"@type": "Offer",
		"price": 24999.90,
		"priceCurrency": "MXN",
		"availability": "https://schema.org/InStock"
	}
}
</script>
</head>
<body><div>render pending</div></body>
</html>`

	rec, err := e.Product(html, "https://shop.test/p/refri")
	require.NoError(t, err)

	assert.Equal(t, "Refrigerador Samsung 28 pies", rec.Title)
	assert.Equal(t, "Samsung", rec.Brand)
	assert.Equal(t, "PM-555001", rec.SKU)
	assert.Equal(t, "24999.9", rec.PriceRegular)
	assert.Equal(t, "InStock", rec.Availability)
	assert.Equal(t, []string{"https://cdn.shop.test/img/refri-1.jpg"}, rec.Images)
	assert.Equal(t, models.StatusOK, rec.Status)
}

func TestProductPromoFallsBackToSecondCandidate(t *testing.T) {
	e := NewStorefrontExtractor()

	html := `<html><body>
	<h1>Pantalla 55"</h1>
	<span data-testid="price">$15,999</span>
	<span class="price">$13,499</span>
</body></html>`

	rec, err := e.Product(html, "https://shop.test/p/tv")
	require.NoError(t, err)

	assert.Equal(t, "15999", rec.PriceRegular)
	assert.Equal(t, "13499", rec.PricePromo)
}

func TestListingFromCards(t *testing.T) {
	e := NewStorefrontExtractor()

	html := `<html><body>
	<nav class="breadcrumb">Hogar / Lavadoras</nav>
	<div class="product-card">
		<a href="/p/lavadora-lg"><h3>Lavadora LG 18kg</h3></a>
		<span class="price">$12,999</span>
	</div>
	<div class="product-card">
		<a href="https://shop.test/p/lavadora-mabe"><h3>Lavadora Mabe 20kg</h3></a>
		<span class="price">$10,499</span>
	</div>
	<div class="product-card">
		<a href="/p/secadora-whirlpool">Secadora Whirlpool</a>
	</div>
</body></html>`

	records, err := e.Listing(html, "https://shop.test/c/lavadoras")
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Lavadora LG 18kg", records[0].Title)
	assert.Equal(t, "https://shop.test/p/lavadora-lg", records[0].ProductURL)
	assert.Equal(t, "12999", records[0].PriceRegular)
	assert.Equal(t, "Hogar / Lavadoras", records[0].Category)
	assert.Equal(t, models.StatusOK, records[0].Status)

	assert.Equal(t, "https://shop.test/p/lavadora-mabe", records[1].ProductURL)

	// No heading: the link text is the title. No price: still emitted.
	assert.Equal(t, "Secadora Whirlpool", records[2].Title)
	assert.Equal(t, models.StatusOK, records[2].Status)
}

func TestListingFromItemListJSONLD(t *testing.T) {
	e := NewStorefrontExtractor()

	html := `<html><head>
<script type="application/ld+json">
{
	"@type": "ItemList",
	"itemListElement": [
		{"@type": "ListItem", "position": 1, "item": {"@type": "Product", "name": "Estufa Mabe", "url": "https://shop.test/p/estufa-mabe", "offers": {"price": "8999.00", "priceCurrency": "MXN"}}},
		{"@type": "ListItem", "position": 2, "item": {"@type": "Product", "name": "Horno Teka", "url": "/p/horno-teka", "offers": {"price": 6499}}}
	]
}
</script>
</head><body></body></html>`

	records, err := e.Listing(html, "https://shop.test/c/cocina")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Estufa Mabe", records[0].Title)
	assert.Equal(t, "8999", records[0].PriceRegular)
	assert.Equal(t, "https://shop.test/p/estufa-mabe", records[0].ProductURL)

	assert.Equal(t, "Horno Teka", records[1].Title)
	assert.Equal(t, "6499", records[1].PriceRegular)
	assert.Equal(t, "https://shop.test/p/horno-teka", records[1].ProductURL)
}

func TestListingEmptyPage(t *testing.T) {
	e := NewStorefrontExtractor()

	records, err := e.Listing("<html><body><p>sin resultados</p></body></html>", "https://shop.test/c/x")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNextPageURL(t *testing.T) {
	e := NewStorefrontExtractor()

	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "rel next anchor",
			html:     `<html><body><a rel="next" href="/c/lavadoras?page=2">2</a></body></html>`,
			expected: "https://shop.test/c/lavadoras?page=2",
		},
		{
			name:     "aria label",
			html:     `<html><body><a aria-label="Siguiente página" href="/c/lavadoras?page=3">&gt;</a></body></html>`,
			expected: "https://shop.test/c/lavadoras?page=3",
		},
		{
			name:     "link text spanish",
			html:     `<html><body><a href="/c/lavadoras?page=4">Siguiente</a></body></html>`,
			expected: "https://shop.test/c/lavadoras?page=4",
		},
		{
			name:     "link text english",
			html:     `<html><body><a href="?page=5">Next</a></body></html>`,
			expected: "https://shop.test/c/lavadoras?page=5",
		},
		{
			name:     "absolute href kept",
			html:     `<html><body><a rel="next" href="https://shop.test/c/lavadoras?page=6">2</a></body></html>`,
			expected: "https://shop.test/c/lavadoras?page=6",
		},
		{
			name:     "no control",
			html:     `<html><body><a href="/c/otros">Otros</a></body></html>`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, e.NextPageURL(tt.html, "https://shop.test/c/lavadoras"))
		})
	}
}

func TestCleanCollapsesWhitespace(t *testing.T) {
	e := NewStorefrontExtractor()

	assert.Equal(t, "Lavadora LG 18kg", e.clean("  Lavadora LG\n\t 18kg  "))
}
