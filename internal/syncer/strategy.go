package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"shopsync/internal/models"
)

// Quote is what a platform strategy learned about a source. Nil fields mean
// the strategy could not read that value; InStock carries availability when
// the exact quantity is not exposed.
type Quote struct {
	Stock   *int
	Price   *float64
	InStock *bool
}

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher resolves a source to a Quote using the strategy for its platform.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch never panics; any transport or parse problem comes back as an error
// the caller records against the single source.
func (f *Fetcher) Fetch(ctx context.Context, source *models.ProductSource) (*Quote, error) {
	switch source.SourcePlatform {
	case "shopify":
		return f.fetchShopify(ctx, source)
	case "aliexpress":
		return f.fetchAliExpress(ctx, source)
	default:
		return f.fetchHeuristic(ctx, source)
	}
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 5<<20))
}

// shopifyProduct is the slice of Shopify's product JSON we care about.
type shopifyProduct struct {
	Product struct {
		Variants []struct {
			ID                int64  `json:"id"`
			Price             string `json:"price"`
			InventoryQuantity int    `json:"inventory_quantity"`
		} `json:"variants"`
	} `json:"product"`
}

// fetchShopify reads the structured .json sibling of the product URL.
func (f *Fetcher) fetchShopify(ctx context.Context, source *models.ProductSource) (*Quote, error) {
	url := strings.TrimSuffix(strings.SplitN(source.SourceURL, "?", 2)[0], "/") + ".json"
	body, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var payload shopifyProduct
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing shopify payload: %w", err)
	}
	if len(payload.Product.Variants) == 0 {
		return nil, fmt.Errorf("shopify payload has no variants")
	}

	variant := payload.Product.Variants[0]
	if source.ExternalVariantID != nil {
		for _, v := range payload.Product.Variants {
			if strconv.FormatInt(v.ID, 10) == *source.ExternalVariantID {
				variant = v
				break
			}
		}
	}

	quote := &Quote{Stock: &variant.InventoryQuantity}
	if price, err := strconv.ParseFloat(variant.Price, 64); err == nil {
		quote.Price = &price
	}
	return quote, nil
}

var (
	aliStockPattern  = regexp.MustCompile(`"totalAvailQuantity"\s*:\s*(\d+)`)
	aliPricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`"actSkuCalPrice"\s*:\s*"([\d.]+)"`),
		regexp.MustCompile(`"skuCalPrice"\s*:\s*"([\d.]+)"`),
		regexp.MustCompile(`"minActivityAmount"\s*:\s*\{[^}]*"value"\s*:\s*([\d.]+)`),
		regexp.MustCompile(`"minAmount"\s*:\s*\{[^}]*"value"\s*:\s*([\d.]+)`),
	}
)

// fetchAliExpress scans the embedded sku data blocks of the product page.
func (f *Fetcher) fetchAliExpress(ctx context.Context, source *models.ProductSource) (*Quote, error) {
	body, err := f.get(ctx, source.SourceURL)
	if err != nil {
		return nil, err
	}

	quote := &Quote{}
	if m := aliStockPattern.FindSubmatch(body); m != nil {
		if stock, err := strconv.Atoi(string(m[1])); err == nil {
			quote.Stock = &stock
		}
	}
	for _, pattern := range aliPricePatterns {
		if m := pattern.FindSubmatch(body); m != nil {
			if price, err := strconv.ParseFloat(string(m[1]), 64); err == nil {
				quote.Price = &price
				break
			}
		}
	}

	if quote.Stock == nil && quote.Price == nil {
		return nil, fmt.Errorf("no sku data found in page")
	}
	return quote, nil
}

var (
	outOfStockPhrases = []string{
		"out of stock", "sold out", "currently unavailable",
		"rupture de stock", "épuisé", "non disponible", "indisponible",
	}
	inStockPhrases = []string{
		"in stock", "add to cart", "add to basket", "buy now",
		"en stock", "ajouter au panier", "disponible",
	}
	heuristicPricePattern = regexp.MustCompile(`(?:[$€£]\s?(\d{1,6}(?:[.,]\d{1,2})?))|(?:(\d{1,6}(?:[.,]\d{1,2})?)\s?[€£$])`)
)

// fetchHeuristic scans the raw page for availability phrases and price
// patterns, English and French. It reports availability, not a quantity.
func (f *Fetcher) fetchHeuristic(ctx context.Context, source *models.ProductSource) (*Quote, error) {
	body, err := f.get(ctx, source.SourceURL)
	if err != nil {
		return nil, err
	}
	return scanAvailability(string(body)), nil
}

func scanAvailability(page string) *Quote {
	lower := strings.ToLower(page)
	quote := &Quote{}

	for _, phrase := range outOfStockPhrases {
		if strings.Contains(lower, phrase) {
			unavailable := false
			quote.InStock = &unavailable
			break
		}
	}
	if quote.InStock == nil {
		for _, phrase := range inStockPhrases {
			if strings.Contains(lower, phrase) {
				available := true
				quote.InStock = &available
				break
			}
		}
	}

	if m := heuristicPricePattern.FindStringSubmatch(page); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if price, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64); err == nil {
			quote.Price = &price
		}
	}
	return quote
}
