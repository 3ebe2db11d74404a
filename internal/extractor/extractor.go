package extractor

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"shopsync/internal/logger"
)

// Record is the best-effort raw product record produced from one page.
// Every field defaults to empty/zero when the page does not yield it;
// extraction never fails on missing data.
type Record struct {
	ExternalID     string                 `json:"external_id"`
	URL            string                 `json:"url"`
	Platform       string                 `json:"platform"`
	Title          string                 `json:"title"`
	Brand          string                 `json:"brand"`
	Description    string                 `json:"description"`
	SKU            string                 `json:"sku"`
	Category       string                 `json:"category"`
	Price          float64                `json:"price"`
	OriginalPrice  float64                `json:"originalPrice"`
	Currency       string                 `json:"currency"`
	MOQ            int                    `json:"moq"`
	Images         []string               `json:"images"`
	Videos         []string               `json:"videos"`
	Variants       []Variant              `json:"variants"`
	Reviews        []Review               `json:"reviews"`
	Specifications map[string]string      `json:"specifications"`
	Shipping       map[string]interface{} `json:"shipping"`
	Supplier       map[string]interface{} `json:"supplier"`
	ExtractedAt    time.Time              `json:"extractedAt"`
}

// AsRaw flattens the record into the loose map shape the ingestion side
// accepts from any origin.
func (r *Record) AsRaw() map[string]interface{} {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil
	}
	return raw
}

// Variant is one supplier option value (a color swatch, a size entry).
type Variant struct {
	ID         string `json:"id"`
	OptionName string `json:"option_name"`
	Value      string `json:"value"`
	Image      string `json:"image,omitempty"`
	Available  bool   `json:"available"`
}

type Review struct {
	Author  string   `json:"author"`
	Rating  float64  `json:"rating"`
	Content string   `json:"content"`
	Date    string   `json:"date,omitempty"`
	Country string   `json:"country,omitempty"`
	Images  []string `json:"images,omitempty"`
}

type Extractor struct {
	logger *logger.Logger
}

func New(log *logger.Logger) *Extractor {
	return &Extractor{logger: log}
}

// Extract runs all sub-extractions concurrently over one loaded page and
// joins on completion. Each sub-extraction writes only its own fields, so
// no coordination beyond the WaitGroup is needed.
func (e *Extractor) Extract(ctx context.Context, page *Page) *Record {
	record := &Record{
		ExternalID:  page.ExternalID(),
		URL:         page.URL,
		Platform:    page.Platform,
		ExtractedAt: time.Now().UTC(),
	}

	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	run(func() { e.extractBasicInfo(page, record) })
	run(func() { e.extractPricing(page, record) })
	run(func() { record.Images = e.extractImages(page) })
	run(func() { record.Videos = e.extractVideos(page) })
	run(func() { record.Variants = e.extractVariants(page) })
	run(func() { record.Reviews = e.extractReviews(page) })
	run(func() { record.Specifications = e.extractSpecifications(page) })
	run(func() {
		record.Shipping = page.firstMap("shippingModule", "shipping", "logistics")
		record.Supplier = page.firstMap("storeModule", "supplier", "sellerModule")
	})
	wg.Wait()

	if record.SKU == "" {
		record.SKU = record.ExternalID
	}

	e.logger.Debug("extracted %s: title=%q images=%d variants=%d reviews=%d",
		page.URL, record.Title, len(record.Images), len(record.Variants), len(record.Reviews))
	return record
}

var (
	titleHTMLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<h1[^>]*data-pl="product-title"[^>]*>(.*?)</h1>`),
		regexp.MustCompile(`(?is)<h1[^>]*class="[^"]*title[^"]*"[^>]*>(.*?)</h1>`),
		regexp.MustCompile(`(?is)<meta property="og:title" content="([^"]+)"`),
		regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`),
		regexp.MustCompile(`(?is)<title>(.*?)</title>`),
	}
	brandHTMLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<[^>]+class="[^"]*store-name[^"]*"[^>]*>(.*?)</`),
		regexp.MustCompile(`(?is)<meta property="og:site_name" content="([^"]+)"`),
	}
	descriptionHTMLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<div[^>]*class="[^"]*product-description[^"]*"[^>]*>(.*?)</div>`),
		regexp.MustCompile(`(?is)<meta name="description" content="([^"]+)"`),
	}
)

func (e *Extractor) extractBasicInfo(page *Page, record *Record) {
	record.Title = page.firstString(
		"titleModule.subject", "titleModule.title", "pageModule.title",
		"product.title", "title", "name",
	)
	if record.Title == "" {
		record.Title = page.htmlFirst(titleHTMLPatterns...)
		// Page titles carry the site name suffix
		if i := strings.IndexAny(record.Title, "|"); i > 0 {
			record.Title = strings.TrimSpace(record.Title[:i])
		}
	}

	record.Brand = page.firstString(
		"storeModule.storeName", "product.brand", "brand", "vendor",
	)
	if record.Brand == "" {
		record.Brand = page.htmlFirst(brandHTMLPatterns...)
	}

	record.Description = page.firstString(
		"descriptionModule.description", "product.description", "description",
	)
	if record.Description == "" {
		record.Description = page.htmlFirst(descriptionHTMLPatterns...)
	}
	if len(record.Description) > 5000 {
		record.Description = record.Description[:5000]
	}

	record.SKU = page.firstString("product.sku", "sku", "skuModule.sku")
	record.Category = page.firstString(
		"crossLinkModule.breadCrumbPathList.0.name", "product.category", "category",
	)
	if moq, ok := page.firstNumber("quantityModule.minOrderQuantity", "moq", "minOrder"); ok && moq > 0 {
		record.MOQ = int(moq)
	}
}

var priceHTMLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<[^>]+class="[^"]*price-current[^"]*"[^>]*>(.*?)</`),
	regexp.MustCompile(`(?is)<[^>]+class="[^"]*product-price[^"]*"[^>]*>(.*?)</`),
	regexp.MustCompile(`(?is)<meta property="(?:og:price:amount|product:price:amount)" content="([^"]+)"`),
}

var originalPriceHTMLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<[^>]+class="[^"]*price-origin[al]*[^"]*"[^>]*>(.*?)</`),
	regexp.MustCompile(`(?is)<del[^>]*>(.*?)</del>`),
}

func (e *Extractor) extractPricing(page *Page, record *Record) {
	record.Currency = "USD"

	if price, ok := page.firstNumber(
		"priceModule.minAmount.value", "priceModule.activityAmount.value",
		"product.price", "price",
	); ok {
		record.Price = price
	}
	if currency := page.firstString("priceModule.minAmount.currency", "priceModule.currencyCode", "currency"); currency != "" {
		record.Currency = strings.ToUpper(currency)
	}

	if record.Price == 0 {
		if raw := page.htmlFirst(priceHTMLPatterns...); raw != "" {
			if price, currency, ok := parsePrice(raw); ok {
				record.Price = price
				if currency != "" {
					record.Currency = currency
				}
			}
		}
	}

	if original, ok := page.firstNumber("priceModule.maxAmount.value", "priceModule.originalAmount.value", "originalPrice"); ok {
		record.OriginalPrice = original
	} else if raw := page.htmlFirst(originalPriceHTMLPatterns...); raw != "" {
		if price, _, ok := parsePrice(raw); ok {
			record.OriginalPrice = price
		}
	}
	if record.OriginalPrice <= record.Price {
		record.OriginalPrice = 0
	}
}

func (e *Extractor) extractImages(page *Page) []string {
	var candidates []string

	for _, item := range page.firstSlice("imageModule.imagePathList", "product.images", "images") {
		switch v := item.(type) {
		case string:
			candidates = append(candidates, v)
		case map[string]interface{}:
			for _, key := range []string{"url", "src", "href"} {
				if s, ok := v[key].(string); ok {
					candidates = append(candidates, s)
					break
				}
			}
		}
	}

	for _, m := range htmlImagePattern.FindAllStringSubmatch(page.HTML, -1) {
		candidates = append(candidates, m[1])
	}

	return collectImages(candidates)
}

var videoHTMLPattern = regexp.MustCompile(`"(?:videoUrl|video_url)"\s*:\s*"([^"]+\.mp4[^"]*)"`)

func (e *Extractor) extractVideos(page *Page) []string {
	const maxVideos = 10

	seen := make(map[string]struct{})
	var videos []string
	add := func(url string) {
		url = strings.TrimSpace(strings.ReplaceAll(url, `\/`, "/"))
		if url == "" || !strings.Contains(url, "http") {
			return
		}
		if _, dup := seen[url]; dup {
			return
		}
		seen[url] = struct{}{}
		videos = append(videos, url)
	}

	for _, item := range page.firstSlice("videoModule.videoList", "product.videos", "videos") {
		if s, ok := item.(string); ok {
			add(s)
		}
	}
	for _, m := range videoHTMLPattern.FindAllStringSubmatch(page.HTML, -1) {
		add(m[1])
	}

	if len(videos) > maxVideos {
		videos = videos[:maxVideos]
	}
	return videos
}

func (e *Extractor) extractVariants(page *Page) []Variant {
	var variants []Variant

	for _, item := range page.firstSlice("skuModule.productSKUPropertyList", "product.options") {
		property, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		optionName, _ := property["skuPropertyName"].(string)
		if optionName == "" {
			optionName, _ = property["name"].(string)
		}
		values, _ := property["skuPropertyValues"].([]interface{})
		if values == nil {
			values, _ = property["values"].([]interface{})
		}
		for _, rawValue := range values {
			value, ok := rawValue.(map[string]interface{})
			if !ok {
				if s, isString := rawValue.(string); isString {
					variants = append(variants, Variant{OptionName: optionName, Value: s, Available: true})
				}
				continue
			}
			display, _ := value["propertyValueDisplayName"].(string)
			if display == "" {
				display, _ = value["name"].(string)
			}
			id := ""
			switch v := value["propertyValueId"].(type) {
			case string:
				id = v
			case float64:
				id = strconv.FormatFloat(v, 'f', -1, 64)
			}
			image := ""
			if s, ok := value["skuPropertyImagePath"].(string); ok {
				image = normalizeImageURL(s)
			}
			if display != "" {
				variants = append(variants, Variant{
					ID:         id,
					OptionName: optionName,
					Value:      display,
					Image:      image,
					Available:  true,
				})
			}
		}
	}

	return variants
}

const maxReviews = 50

func (e *Extractor) extractReviews(page *Page) []Review {
	var reviews []Review

	for _, item := range page.firstSlice("feedbackModule.reviews", "product.reviews", "reviews") {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		review := Review{
			Author:  stringField(entry, "buyerName", "author", "name"),
			Content: stringField(entry, "buyerFeedback", "content", "text"),
			Date:    stringField(entry, "evalDate", "date"),
			Country: stringField(entry, "buyerCountry", "country"),
			Rating:  5,
		}
		if rating, ok := numberField(entry, "buyerEval", "rating"); ok {
			// Some platforms score out of 100
			if rating > 5 {
				rating = rating / 20
			}
			review.Rating = rating
		}
		if review.Author == "" {
			review.Author = "Anonymous"
		}
		if images, ok := entry["images"].([]interface{}); ok {
			for _, img := range images {
				if s, isString := img.(string); isString {
					if url := normalizeImageURL(s); url != "" {
						review.Images = append(review.Images, url)
					}
				}
			}
		}
		if review.Content != "" {
			reviews = append(reviews, review)
		}
		if len(reviews) == maxReviews {
			break
		}
	}

	return reviews
}

var specRowPattern = regexp.MustCompile(`(?is)<li[^>]*class="[^"]*propert[^"]*"[^>]*>(.*?)</li>`)

func (e *Extractor) extractSpecifications(page *Page) map[string]string {
	specs := make(map[string]string)

	for _, item := range page.firstSlice("specsModule.props", "product.specifications", "specifications") {
		prop, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name := stringField(prop, "attrName", "name", "key")
		value := stringField(prop, "attrValue", "value")
		if name != "" && value != "" {
			specs[name] = value
		}
	}

	// "Key: Value" list items
	for _, m := range specRowPattern.FindAllStringSubmatch(page.HTML, -1) {
		text := stripTags(m[1])
		if i := strings.Index(text, ":"); i > 0 {
			key := strings.TrimSpace(text[:i])
			value := strings.TrimSpace(text[i+1:])
			if key != "" && value != "" {
				if _, exists := specs[key]; !exists {
					specs[key] = value
				}
			}
		}
	}

	return specs
}

func stringField(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func numberField(m map[string]interface{}, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch v := m[key].(type) {
		case float64:
			return v, true
		case string:
			if n, _, ok := parsePrice(v); ok {
				return n, true
			}
		}
	}
	return 0, false
}

