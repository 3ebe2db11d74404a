package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsync/internal/logger"
)

func testExtractor() *Extractor {
	return New(logger.New("error"))
}

func TestExtractFromEmbeddedData(t *testing.T) {
	page := &Page{
		URL:      "https://www.aliexpress.com/item/1005001234567890.html",
		Platform: "aliexpress",
		Data: map[string]interface{}{
			"titleModule": map[string]interface{}{"subject": "Wireless Earbuds Pro X"},
			"storeModule": map[string]interface{}{"storeName": "Acme Audio Store"},
			"priceModule": map[string]interface{}{
				"minAmount": map[string]interface{}{"value": 19.99, "currency": "EUR"},
				"maxAmount": map[string]interface{}{"value": 39.99},
			},
			"imageModule": map[string]interface{}{
				"imagePathList": []interface{}{
					"//ae01.alicdn.com/kf/abc_50x50.jpg",
					"//ae01.alicdn.com/kf/abc_50x50.jpg",
					"//ae01.alicdn.com/kf/def.jpg?size=small",
				},
			},
			"skuModule": map[string]interface{}{
				"productSKUPropertyList": []interface{}{
					map[string]interface{}{
						"skuPropertyName": "Color",
						"skuPropertyValues": []interface{}{
							map[string]interface{}{"propertyValueId": float64(101), "propertyValueDisplayName": "Rouge"},
							map[string]interface{}{"propertyValueId": float64(102), "propertyValueDisplayName": "Noir"},
						},
					},
				},
			},
			"specsModule": map[string]interface{}{
				"props": []interface{}{
					map[string]interface{}{"attrName": "Bluetooth", "attrValue": "5.3"},
				},
			},
		},
	}

	record := testExtractor().Extract(context.Background(), page)

	assert.Equal(t, "1005001234567890", record.ExternalID)
	assert.Equal(t, "Wireless Earbuds Pro X", record.Title)
	assert.Equal(t, "Acme Audio Store", record.Brand)
	assert.Equal(t, 19.99, record.Price)
	assert.Equal(t, 39.99, record.OriginalPrice)
	assert.Equal(t, "EUR", record.Currency)

	// Dedup across the two thumbnail spellings of the same asset
	require.Len(t, record.Images, 2)
	assert.Equal(t, "https://ae01.alicdn.com/kf/abc.jpg", record.Images[0])
	assert.Equal(t, "https://ae01.alicdn.com/kf/def.jpg", record.Images[1])

	require.Len(t, record.Variants, 2)
	assert.Equal(t, "101", record.Variants[0].ID)
	assert.Equal(t, "Color", record.Variants[0].OptionName)
	assert.Equal(t, "Rouge", record.Variants[0].Value)

	assert.Equal(t, "5.3", record.Specifications["Bluetooth"])
}

func TestExtractFallsBackToHTML(t *testing.T) {
	page := &Page{
		URL:      "https://shop.example.com/products/9988776",
		Platform: "generic",
		HTML: `<html><head><title>Ignored</title></head><body>
			<h1 class="product-title">Ceramic Mug</h1>
			<span class="price-current">12,50 &euro;</span>
			<img src="https://cdn.example.com/products/mug_full.jpg" />
			</body></html>`,
	}

	record := testExtractor().Extract(context.Background(), page)

	assert.Equal(t, "9988776", record.ExternalID)
	assert.Equal(t, "Ceramic Mug", record.Title)
	assert.Equal(t, 12.50, record.Price)
	require.Len(t, record.Images, 1)
	assert.Equal(t, "https://cdn.example.com/products/mug_full.jpg", record.Images[0])
}

func TestExtractEmptyPageNeverFails(t *testing.T) {
	record := testExtractor().Extract(context.Background(), &Page{URL: "https://example.com/x"})

	assert.Empty(t, record.Title)
	assert.Zero(t, record.Price)
	assert.Empty(t, record.Images)
	assert.Empty(t, record.Variants)
	assert.Empty(t, record.Reviews)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in       string
		value    float64
		currency string
		ok       bool
	}{
		{"19.99", 19.99, "", true},
		{"19,99 €", 19.99, "EUR", true},
		{"£1,234.56", 1234.56, "GBP", true},
		{"$1,234.56", 1234.56, "USD", true},
		{"1.234,56 €", 1234.56, "EUR", true},
		{"EUR 42", 42, "EUR", true},
		{"sold out", 0, "", false},
		{"", 0, "", false},
	}

	for _, tt := range tests {
		value, currency, ok := parsePrice(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.value, value, tt.in)
		assert.Equal(t, tt.currency, currency, tt.in)
	}
}

func TestNormalizeImageURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/a.jpg", normalizeImageURL("//cdn.example.com/a.jpg"))
	assert.Equal(t, "https://cdn.example.com/a.jpg", normalizeImageURL("https://cdn.example.com/a_640x640.jpg"))
	assert.Equal(t, "https://cdn.example.com/a.jpg", normalizeImageURL("https://cdn.example.com/a.jpg?x=1"))
	assert.Empty(t, normalizeImageURL("https://cdn.example.com/placeholder.jpg"))
	assert.Empty(t, normalizeImageURL("data:image/gif;base64,R0lGO"))
	assert.Empty(t, normalizeImageURL("/relative/path.jpg"))
}

func TestCollectImagesCap(t *testing.T) {
	candidates := make([]string, 0, 80)
	for i := 0; i < 80; i++ {
		candidates = append(candidates, "https://cdn.example.com/img_"+string(rune('a'+i%26))+"_"+string(rune('0'+i/26))+".jpg")
	}
	assert.LessOrEqual(t, len(collectImages(candidates)), maxImages)
}
