package syncer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsync/internal/logger"
	"shopsync/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	sources  []models.ProductSource
	products map[string]*models.Product
	logs     []models.SyncLog
	jobs     []*models.SyncJob
	touched  map[string]time.Time
	updates  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: make(map[string]*models.Product),
		touched:  make(map[string]time.Time),
	}
}

func (f *fakeStore) DueSources(_ context.Context, cutoff time.Time, limit int) ([]models.ProductSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []models.ProductSource
	for _, s := range f.sources {
		if !s.SyncEnabled {
			continue
		}
		if s.LastSyncAt != nil && s.LastSyncAt.After(cutoff) {
			continue
		}
		due = append(due, s)
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (f *fakeStore) GetProduct(_ context.Context, productID string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.products[productID]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, nil
}

func (f *fakeStore) UpdateProduct(_ context.Context, product *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	clone := *product
	f.products[product.ID] = &clone
	return nil
}

func (f *fakeStore) TouchSource(_ context.Context, sourceID string, syncedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched[sourceID] = syncedAt
	return nil
}

func (f *fakeStore) CreateLog(_ context.Context, entry *models.SyncLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, *entry)
	return nil
}

func (f *fakeStore) CreateJob(_ context.Context, job *models.SyncJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.ID = uuid.New().String()
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeStore) UpdateJob(_ context.Context, job *models.SyncJob) error {
	return nil
}

// fakeFetcher returns a canned quote (or error) per source URL.
type fakeFetcher struct {
	quotes map[string]*Quote
	errs   map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, source *models.ProductSource) (*Quote, error) {
	if err, ok := f.errs[source.SourceURL]; ok {
		return nil, err
	}
	if q, ok := f.quotes[source.SourceURL]; ok {
		return q, nil
	}
	return nil, fmt.Errorf("unreachable")
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }
func boolp(v bool) *bool        { return &v }

func seed(store *fakeStore, url string, stock int, price float64) *models.Product {
	product := &models.Product{
		ID:            uuid.New().String(),
		UserID:        "user-1",
		SKU:           uuid.New().String(),
		Name:          "Widget",
		Price:         price,
		StockQuantity: stock,
		Status:        string(models.StatusActive),
	}
	if stock == 0 {
		product.Status = string(models.StatusOutOfStock)
	}
	store.products[product.ID] = product
	store.sources = append(store.sources, models.ProductSource{
		ID:             uuid.New().String(),
		ProductID:      product.ID,
		UserID:         "user-1",
		SourcePlatform: "test",
		SourceURL:      url,
		SyncEnabled:    true,
	})
	return product
}

func newScheduler(store *fakeStore, fetcher QuoteFetcher) *Scheduler {
	return NewScheduler(store, fetcher, logger.New("error"), 6*time.Hour, 50, 3)
}

func TestRunOnceClampsNegativeStock(t *testing.T) {
	store := newFakeStore()
	product := seed(store, "https://x/1", 3, 9.99)
	fetcher := &fakeFetcher{quotes: map[string]*Quote{"https://x/1": {Stock: intp(-10)}}}

	job, err := newScheduler(store, fetcher).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, job.SyncedCount)
	assert.Equal(t, 0, store.products[product.ID].StockQuantity)
	assert.Equal(t, string(models.StatusOutOfStock), store.products[product.ID].Status)
}

func TestRunOnceStatusTransitions(t *testing.T) {
	t.Run("stock reaching zero goes out of stock", func(t *testing.T) {
		store := newFakeStore()
		product := seed(store, "https://x/1", 5, 9.99)
		fetcher := &fakeFetcher{quotes: map[string]*Quote{"https://x/1": {Stock: intp(0)}}}

		_, err := newScheduler(store, fetcher).RunOnce(context.Background())
		require.NoError(t, err)

		got := store.products[product.ID]
		assert.Equal(t, string(models.StatusOutOfStock), got.Status)
		assert.Equal(t, models.StatusReasonSync, got.StatusReason)
	})

	t.Run("stock rising from zero reactivates", func(t *testing.T) {
		store := newFakeStore()
		product := seed(store, "https://x/1", 0, 9.99)
		fetcher := &fakeFetcher{quotes: map[string]*Quote{"https://x/1": {Stock: intp(5)}}}

		_, err := newScheduler(store, fetcher).RunOnce(context.Background())
		require.NoError(t, err)

		assert.Equal(t, string(models.StatusActive), store.products[product.ID].Status)
	})

	t.Run("manually deactivated product stays down", func(t *testing.T) {
		store := newFakeStore()
		product := seed(store, "https://x/1", 0, 9.99)
		store.products[product.ID].StatusReason = models.StatusReasonManual
		fetcher := &fakeFetcher{quotes: map[string]*Quote{"https://x/1": {Stock: intp(5)}}}

		_, err := newScheduler(store, fetcher).RunOnce(context.Background())
		require.NoError(t, err)

		got := store.products[product.ID]
		assert.Equal(t, 5, got.StockQuantity)
		assert.Equal(t, string(models.StatusOutOfStock), got.Status)
	})
}

func TestRunOnceIsolatesFailures(t *testing.T) {
	store := newFakeStore()
	ok1 := seed(store, "https://x/1", 5, 9.99)
	seed(store, "https://x/broken", 5, 9.99)
	ok2 := seed(store, "https://x/3", 5, 9.99)

	fetcher := &fakeFetcher{
		quotes: map[string]*Quote{
			"https://x/1": {Stock: intp(7)},
			"https://x/3": {Price: floatp(12.5)},
		},
		errs: map[string]error{"https://x/broken": fmt.Errorf("connection refused")},
	}

	job, err := newScheduler(store, fetcher).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, job.TotalProducts)
	assert.Equal(t, 2, job.SyncedCount)
	assert.Equal(t, 1, job.FailedCount)
	assert.Equal(t, 2, job.ChangesDetected)

	assert.Equal(t, 7, store.products[ok1.ID].StockQuantity)
	assert.Equal(t, 12.5, store.products[ok2.ID].Price)

	// every attempt is logged, and every source is touched, failure included
	assert.Len(t, store.logs, 3)
	assert.Len(t, store.touched, 3)
}

func TestRunOnceSkipsRecentlySyncedSources(t *testing.T) {
	store := newFakeStore()
	product := seed(store, "https://x/1", 5, 9.99)
	recent := time.Now().Add(-time.Minute)
	store.sources[0].LastSyncAt = &recent

	fetcher := &fakeFetcher{quotes: map[string]*Quote{"https://x/1": {Stock: intp(0)}}}
	job, err := newScheduler(store, fetcher).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, job.TotalProducts)
	assert.Equal(t, 5, store.products[product.ID].StockQuantity)
}

func TestRunOnceUnchangedQuoteWritesNoUpdate(t *testing.T) {
	store := newFakeStore()
	seed(store, "https://x/1", 5, 9.99)
	fetcher := &fakeFetcher{quotes: map[string]*Quote{"https://x/1": {Stock: intp(5), Price: floatp(9.99)}}}

	job, err := newScheduler(store, fetcher).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, job.SyncedCount)
	assert.Equal(t, 0, job.ChangesDetected)
	assert.Equal(t, 0, store.updates)
	require.Len(t, store.logs, 1)
	assert.True(t, store.logs[0].Success)
}

func TestFetchShopifyReadsJSONSibling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/widget.json", r.URL.Path)
		fmt.Fprint(w, `{"product":{"variants":[
			{"id":111,"price":"19.99","inventory_quantity":3},
			{"id":222,"price":"24.99","inventory_quantity":0}
		]}}`)
	}))
	defer server.Close()

	variantID := "222"
	source := &models.ProductSource{
		SourcePlatform:    "shopify",
		SourceURL:         server.URL + "/products/widget/",
		ExternalVariantID: &variantID,
	}

	quote, err := NewFetcher(5*time.Second).Fetch(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, 0, *quote.Stock)
	assert.Equal(t, 24.99, *quote.Price)
}

func TestFetchAliExpressScansSkuData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><script>window.runParams = {"skuModule":{"totalAvailQuantity":42,"skuPriceList":[{"skuVal":{"actSkuCalPrice":"7.49"}}]}}</script></html>`)
	}))
	defer server.Close()

	source := &models.ProductSource{SourcePlatform: "aliexpress", SourceURL: server.URL}
	quote, err := NewFetcher(5*time.Second).Fetch(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, 42, *quote.Stock)
	assert.Equal(t, 7.49, *quote.Price)
}

func TestScanAvailability(t *testing.T) {
	cases := []struct {
		name      string
		page      string
		wantStock *bool
		wantPrice *float64
	}{
		{"english in stock", `<span>In Stock</span> <b>$19.99</b>`, boolp(true), floatp(19.99)},
		{"french in stock", `<button>Ajouter au panier</button> 24,90 €`, boolp(true), floatp(24.9)},
		{"english sold out", `<div>Sold Out</div>`, boolp(false), nil},
		{"french out of stock", `<p>Rupture de stock</p>`, boolp(false), nil},
		{"no signal", `<p>Bienvenue</p>`, nil, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quote := scanAvailability(tc.page)
			if tc.wantStock == nil {
				assert.Nil(t, quote.InStock)
			} else {
				require.NotNil(t, quote.InStock)
				assert.Equal(t, *tc.wantStock, *quote.InStock)
			}
			if tc.wantPrice == nil {
				assert.Nil(t, quote.Price)
			} else {
				require.NotNil(t, quote.Price)
				assert.Equal(t, *tc.wantPrice, *quote.Price)
			}
		})
	}
}
