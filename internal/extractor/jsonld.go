package extractor

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// productJSONLD returns the first schema.org Product block embedded in the
// document, or nil. Both bare objects and top-level arrays are accepted;
// malformed blocks are skipped.
func productJSONLD(doc *goquery.Document) map[string]interface{} {
	var product map[string]interface{}

	doc.Find("script[type='application/ld+json']").EachWithBreak(func(i int, s *goquery.Selection) bool {
		var data interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		switch v := data.(type) {
		case []interface{}:
			for _, entry := range v {
				if m, ok := entry.(map[string]interface{}); ok && m["@type"] == "Product" {
					product = m
					return false
				}
			}
		case map[string]interface{}:
			if v["@type"] == "Product" {
				product = v
				return false
			}
		}
		return true
	})

	return product
}

// itemListJSONLD returns the items of the first schema.org ItemList block,
// unwrapping each itemListElement's nested item object.
func itemListJSONLD(doc *goquery.Document) []map[string]interface{} {
	var items []map[string]interface{}

	doc.Find("script[type='application/ld+json']").EachWithBreak(func(i int, s *goquery.Selection) bool {
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		if data["@type"] != "ItemList" {
			return true
		}
		elements, ok := data["itemListElement"].([]interface{})
		if !ok {
			return true
		}
		for _, element := range elements {
			wrapper, ok := element.(map[string]interface{})
			if !ok {
				continue
			}
			if item, ok := wrapper["item"].(map[string]interface{}); ok {
				items = append(items, item)
			}
		}
		return false
	})

	return items
}

// ldString reads a value that schema.org publishers emit as a string, a
// number, or a named object ({"name": ...}).
func ldString(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case map[string]interface{}:
		if name, ok := v["name"].(string); ok {
			return strings.TrimSpace(name)
		}
	}
	return ""
}

// ldOffers unwraps the offers field, taking the first entry when the
// publisher emits an array.
func ldOffers(m map[string]interface{}) map[string]interface{} {
	switch v := m["offers"].(type) {
	case map[string]interface{}:
		return v
	case []interface{}:
		if len(v) > 0 {
			if first, ok := v[0].(map[string]interface{}); ok {
				return first
			}
		}
	}
	return nil
}

func ldImages(m map[string]interface{}) []string {
	switch v := m["image"].(type) {
	case string:
		if v != "" {
			return []string{v}
		}
	case []interface{}:
		var images []string
		for _, entry := range v {
			if s, ok := entry.(string); ok && s != "" {
				images = append(images, s)
			}
		}
		return images
	}
	return nil
}

// ldAvailability strips the schema.org URL prefix from an offer's
// availability ("https://schema.org/InStock" -> "InStock").
func ldAvailability(offers map[string]interface{}) string {
	availability, ok := offers["availability"].(string)
	if !ok || availability == "" {
		return ""
	}
	availability = strings.TrimPrefix(availability, "https://schema.org/")
	availability = strings.TrimPrefix(availability, "http://schema.org/")
	return strings.TrimSpace(availability)
}
