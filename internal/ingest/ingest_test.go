package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsync/internal/logger"
	"shopsync/internal/models"
)

// fakeStore is an in-memory Store keyed the same way the real one is.
type fakeStore struct {
	products []*models.Product
	inserts  int
	updates  int
	failSKU  string
}

func (f *fakeStore) FindBySKU(_ context.Context, userID, sku string) (*models.Product, error) {
	for _, p := range f.products {
		if p.UserID == userID && p.SKU == sku {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindBySupplierProductID(_ context.Context, userID, supplierProductID string) (*models.Product, error) {
	for _, p := range f.products {
		if p.UserID == userID && p.SupplierProductID == supplierProductID {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Insert(_ context.Context, product *models.Product) error {
	if f.failSKU != "" && product.SKU == f.failSKU {
		return fmt.Errorf("simulated storage failure")
	}
	product.ID = uuid.New().String()
	f.inserts++
	f.products = append(f.products, product)
	return nil
}

func (f *fakeStore) Update(_ context.Context, product *models.Product) error {
	f.updates++
	for i, p := range f.products {
		if p.ID == product.ID {
			f.products[i] = product
			return nil
		}
	}
	return fmt.Errorf("product %s not found", product.ID)
}

func newTestEngine(store *fakeStore) *Engine {
	return NewEngine(store, logger.New("error"), 50, 0)
}

func TestImportOneNormalizesFrenchRecord(t *testing.T) {
	store := &fakeStore{}
	engine := newTestEngine(store)

	raw := RawRecord{
		"title":               "Écouteurs Sans Fil Pro X",
		"price":               "19.99€",
		"sku":                 nil,
		"supplier_product_id": "CJ12345",
	}

	product, warnings, err := engine.ImportOne(context.Background(), "user-1", raw, nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "Écouteurs Sans Fil Pro X", product.Name)
	assert.Equal(t, 19.99, product.Price)
	assert.Equal(t, "EUR", product.Currency)
	assert.Equal(t, "CJ12345", product.SKU)
	assert.Equal(t, "General", product.Category)
	assert.Equal(t, string(models.StatusActive), product.Status)
}

func TestImportOneRejectsIncompleteRecords(t *testing.T) {
	engine := newTestEngine(&fakeStore{})

	cases := []struct {
		name string
		raw  RawRecord
	}{
		{"missing name", RawRecord{"price": 9.99, "sku": "ABC"}},
		{"missing price", RawRecord{"name": "Widget", "sku": "ABC"}},
		{"missing identifier", RawRecord{"name": "Widget", "price": 9.99}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := engine.ImportOne(context.Background(), "user-1", tc.raw, nil)
			assert.Error(t, err)
		})
	}
}

func TestImportOneWarnsOnSoftIssues(t *testing.T) {
	store := &fakeStore{}
	engine := newTestEngine(store)

	raw := RawRecord{
		"name":           "Widget",
		"price":          9.99,
		"sku":            "W-1",
		"stock_quantity": "plenty",
		"image_urls":     []interface{}{"https://cdn.example.com/a.jpg", "not a url"},
	}

	product, warnings, err := engine.ImportOne(context.Background(), "user-1", raw, nil)
	require.NoError(t, err)
	require.Len(t, warnings, 2)

	assert.Equal(t, 0, product.StockQuantity)
	assert.Equal(t, []string{"https://cdn.example.com/a.jpg"}, product.ImageURLs)
}

func TestImportOneAppliesFieldMapping(t *testing.T) {
	store := &fakeStore{}
	engine := newTestEngine(store)

	raw := RawRecord{
		"productName": "Mapped Widget",
		"pricing":     map[string]interface{}{"amount": 12.5},
		"sku":         "MAP-1",
	}
	mapping := FieldMapping{
		"name":  "productName",
		"price": "pricing.amount",
	}

	product, _, err := engine.ImportOne(context.Background(), "user-1", raw, mapping)
	require.NoError(t, err)
	assert.Equal(t, "Mapped Widget", product.Name)
	assert.Equal(t, 12.5, product.Price)
}

func TestUpsertIsIdempotentBySKU(t *testing.T) {
	store := &fakeStore{}
	engine := newTestEngine(store)
	raw := RawRecord{"name": "Widget", "price": 9.99, "sku": "W-1"}

	first, _, err := engine.ImportOne(context.Background(), "user-1", raw, nil)
	require.NoError(t, err)

	raw["price"] = 14.99
	second, _, err := engine.ImportOne(context.Background(), "user-1", raw, nil)
	require.NoError(t, err)

	assert.Len(t, store.products, 1)
	assert.Equal(t, 1, store.inserts)
	assert.Equal(t, 1, store.updates)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 14.99, store.products[0].Price)
}

func TestUpsertDeduplicatesBySupplierProductID(t *testing.T) {
	store := &fakeStore{}
	engine := newTestEngine(store)

	_, _, err := engine.ImportOne(context.Background(), "user-1",
		RawRecord{"name": "Widget", "price": 9.99, "supplier_product_id": "EXT-9"}, nil)
	require.NoError(t, err)

	// Same external id, different sku: still the same product.
	_, _, err = engine.ImportOne(context.Background(), "user-1",
		RawRecord{"name": "Widget v2", "price": 11.0, "sku": "NEW-SKU", "supplier_product_id": "EXT-9"}, nil)
	require.NoError(t, err)

	assert.Len(t, store.products, 1)
	assert.Equal(t, "Widget v2", store.products[0].Name)
	assert.Equal(t, "NEW-SKU", store.products[0].SKU)
}

func TestUpsertScopesByUser(t *testing.T) {
	store := &fakeStore{}
	engine := newTestEngine(store)
	raw := RawRecord{"name": "Widget", "price": 9.99, "sku": "W-1"}

	_, _, err := engine.ImportOne(context.Background(), "user-1", raw, nil)
	require.NoError(t, err)
	_, _, err = engine.ImportOne(context.Background(), "user-2", raw, nil)
	require.NoError(t, err)

	assert.Len(t, store.products, 2)
}

func TestImportBatchIsolatesFailures(t *testing.T) {
	store := &fakeStore{}
	engine := newTestEngine(store)

	raws := make([]RawRecord, 0, 10)
	for i := 0; i < 10; i++ {
		record := RawRecord{"name": fmt.Sprintf("Widget %d", i), "price": 9.99, "sku": fmt.Sprintf("W-%d", i)}
		if i == 3 {
			record = RawRecord{"price": 9.99, "sku": "W-3"} // no name
		}
		raws = append(raws, record)
	}

	result, err := engine.ImportBatch(context.Background(), "user-1", raws, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 10, result.Total)
	assert.Equal(t, 9, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Index)
	assert.Len(t, store.products, 9)
}

func TestImportBatchReportsProgressPerChunk(t *testing.T) {
	store := &fakeStore{}
	engine := NewEngine(store, logger.New("error"), 2, time.Millisecond)

	raws := make([]RawRecord, 0, 5)
	for i := 0; i < 5; i++ {
		raws = append(raws, RawRecord{"name": fmt.Sprintf("Widget %d", i), "price": 1.0, "sku": fmt.Sprintf("P-%d", i)})
	}

	var checkpoints []int
	result, err := engine.ImportBatch(context.Background(), "user-1", raws, nil,
		func(processed, total int, percent float64) {
			checkpoints = append(checkpoints, processed)
		})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Succeeded)
	assert.Equal(t, []int{2, 4, 5}, checkpoints)
}

func TestImportBatchStopsOnCancelledContext(t *testing.T) {
	store := &fakeStore{}
	engine := newTestEngine(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.ImportBatch(ctx, "user-1",
		[]RawRecord{{"name": "Widget", "price": 1.0, "sku": "W-1"}}, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, result.Succeeded)
}
