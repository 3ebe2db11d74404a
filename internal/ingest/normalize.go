package ingest

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"shopsync/internal/models"
)

// Issue is a soft validation finding: the row is still accepted, the field
// is fixed up or dropped.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate applies the hard requirements for a catalog row. It returns soft
// warnings alongside; a non-nil error means the row must be rejected.
func Validate(raw RawRecord) ([]Issue, error) {
	var warnings []Issue

	if firstText(raw, "name", "title") == "" {
		return warnings, fmt.Errorf("product has no name or title")
	}
	if _, ok := firstNumeric(raw, "price", "cost_price"); !ok {
		return warnings, fmt.Errorf("product has no price or cost_price")
	}
	if firstText(raw, "sku", "supplier_product_id", "external_id") == "" {
		return warnings, fmt.Errorf("product has no sku or supplier product id")
	}

	if value, present := firstValue(raw, "stock_quantity", "stock"); present {
		if _, ok := toNumber(value); !ok {
			warnings = append(warnings, Issue{Field: "stock_quantity", Message: "not a number, defaulting to 0"})
		}
	}
	for _, image := range rawImageList(raw) {
		if !validImageURL(image) {
			warnings = append(warnings, Issue{Field: "image_urls", Message: "dropped malformed URL " + image})
		}
	}

	return warnings, nil
}

// Normalize coerces a validated raw record into a canonical product:
// numeric strings become numbers, missing currency/category/status get
// their defaults, only syntactically valid image URLs survive, and every
// unrecognized raw field lands in the open attributes map.
func Normalize(raw RawRecord, userID string) *models.Product {
	product := &models.Product{
		UserID:   userID,
		Name:     firstText(raw, "name", "title"),
		SKU:      firstText(raw, "sku"),
		Currency: "EUR",
		Category: "General",
		Status:   string(models.StatusActive),
	}

	product.SupplierProductID = firstText(raw, "supplier_product_id", "external_id")
	if product.SKU == "" {
		product.SKU = product.SupplierProductID
	}

	if description := firstText(raw, "description"); description != "" {
		product.Description = &description
	}
	if price, ok := firstNumeric(raw, "price"); ok {
		product.Price = price
	}
	if cost, ok := firstNumeric(raw, "cost_price", "costPrice"); ok {
		product.CostPrice = &cost
	}
	if currency := strings.ToUpper(firstText(raw, "currency")); len(currency) == 3 {
		product.Currency = currency
	}
	if category := firstText(raw, "category"); category != "" {
		product.Category = category
	}
	if stock, ok := firstNumeric(raw, "stock_quantity", "stock"); ok && stock > 0 {
		product.StockQuantity = int(stock)
	}
	if status := firstText(raw, "status"); status == string(models.StatusOutOfStock) {
		product.Status = status
	}

	for _, image := range rawImageList(raw) {
		if validImageURL(image) {
			product.ImageURLs = append(product.ImageURLs, image)
		}
	}

	product.Attributes = extraAttributes(raw)
	return product
}

// canonicalFields are consumed by Normalize; everything else is an extra
// attribute.
var canonicalFields = map[string]struct{}{
	"name": {}, "title": {}, "description": {}, "price": {}, "cost_price": {},
	"costPrice": {}, "currency": {}, "sku": {}, "supplier_product_id": {},
	"external_id": {}, "category": {}, "stock_quantity": {}, "stock": {},
	"image_urls": {}, "images": {}, "status": {},
}

func extraAttributes(raw RawRecord) map[string]interface{} {
	attributes := make(map[string]interface{})
	for key, value := range raw {
		if _, canonical := canonicalFields[key]; canonical {
			continue
		}
		if value == nil {
			continue
		}
		attributes[key] = value
	}
	if len(attributes) == 0 {
		return nil
	}
	return attributes
}

func rawImageList(raw RawRecord) []string {
	value, present := firstValue(raw, "image_urls", "images")
	if !present {
		return nil
	}

	var images []string
	switch list := value.(type) {
	case []string:
		images = list
	case []interface{}:
		for _, item := range list {
			if s, ok := item.(string); ok {
				images = append(images, s)
			}
		}
	case string:
		if list != "" {
			images = []string{list}
		}
	}
	return images
}

func validImageURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

func firstValue(raw RawRecord, keys ...string) (interface{}, bool) {
	for _, key := range keys {
		if value, ok := raw[key]; ok && value != nil {
			return value, true
		}
	}
	return nil, false
}

func firstText(raw RawRecord, keys ...string) string {
	for _, key := range keys {
		if s, ok := raw[key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func firstNumeric(raw RawRecord, keys ...string) (float64, bool) {
	for _, key := range keys {
		if value, ok := raw[key]; ok {
			if n, numeric := toNumber(value); numeric {
				return n, true
			}
		}
	}
	return 0, false
}

// toNumber coerces JSON numbers and numeric strings, including price
// strings carrying a currency symbol ("19.99€") or a decimal comma.
func toNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		cleaned := strings.TrimSpace(strings.Map(func(r rune) rune {
			switch r {
			case '€', '$', '£', ' ':
				return -1
			}
			return r
		}, v))
		cleaned = strings.Replace(cleaned, ",", ".", 1)
		if n, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}
