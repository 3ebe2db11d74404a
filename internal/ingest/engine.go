package ingest

import (
	"context"
	"fmt"
	"time"

	"shopsync/internal/logger"
	"shopsync/internal/models"
)

// Store is the catalog collaborator the engine writes through. Lookups
// return (nil, nil) when no row matches.
type Store interface {
	FindBySKU(ctx context.Context, userID, sku string) (*models.Product, error)
	FindBySupplierProductID(ctx context.Context, userID, supplierProductID string) (*models.Product, error)
	Insert(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
}

type Engine struct {
	store     Store
	logger    *logger.Logger
	chunkSize int
	chunkWait time.Duration
}

func NewEngine(store Store, log *logger.Logger, chunkSize int, chunkWait time.Duration) *Engine {
	if chunkSize <= 0 {
		chunkSize = 50
	}
	return &Engine{
		store:     store,
		logger:    log,
		chunkSize: chunkSize,
		chunkWait: chunkWait,
	}
}

// ImportOne maps, validates, normalizes and upserts a single raw record.
func (e *Engine) ImportOne(ctx context.Context, userID string, raw RawRecord, mapping FieldMapping) (*models.Product, []Issue, error) {
	mapped := ApplyFieldMapping(raw, mapping)

	warnings, err := Validate(mapped)
	if err != nil {
		return nil, warnings, err
	}

	product := Normalize(mapped, userID)
	if err := e.Upsert(ctx, product); err != nil {
		return nil, warnings, err
	}
	return product, warnings, nil
}

// Upsert deduplicates by (user, sku) first, then (user, supplier_product_id);
// the first match wins and is updated in place, otherwise a new row is
// inserted scoped to the owning user.
func (e *Engine) Upsert(ctx context.Context, product *models.Product) error {
	existing, err := e.findExisting(ctx, product)
	if err != nil {
		return fmt.Errorf("dedup lookup failed: %w", err)
	}

	if existing == nil {
		if err := e.store.Insert(ctx, product); err != nil {
			return fmt.Errorf("insert failed: %w", err)
		}
		return nil
	}

	existing.Name = product.Name
	existing.Description = product.Description
	existing.Price = product.Price
	existing.CostPrice = product.CostPrice
	existing.Currency = product.Currency
	existing.Category = product.Category
	existing.StockQuantity = product.StockQuantity
	existing.Status = product.Status
	if product.SKU != "" {
		existing.SKU = product.SKU
	}
	if product.SupplierProductID != "" {
		existing.SupplierProductID = product.SupplierProductID
	}
	if len(product.ImageURLs) > 0 {
		existing.ImageURLs = product.ImageURLs
	}
	if len(product.Attributes) > 0 {
		existing.Attributes = product.Attributes
	}

	if err := e.store.Update(ctx, existing); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	*product = *existing
	return nil
}

func (e *Engine) findExisting(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.SKU != "" {
		existing, err := e.store.FindBySKU(ctx, product.UserID, product.SKU)
		if err != nil || existing != nil {
			return existing, err
		}
	}
	if product.SupplierProductID != "" {
		return e.store.FindBySupplierProductID(ctx, product.UserID, product.SupplierProductID)
	}
	return nil, nil
}

// BatchError records one failed item without aborting its batch.
type BatchError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

type BatchResult struct {
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Errors    []BatchError `json:"errors"`
}

// ProgressFunc receives the running completion percentage after each chunk.
type ProgressFunc func(processed, total int, percent float64)

// ImportBatch processes raw records in fixed-size chunks, sequentially,
// pausing between chunks so the storage collaborator is never flooded. One
// item's validation or storage failure is counted and recorded; it never
// aborts the batch. The context is checked between items and between
// chunks.
func (e *Engine) ImportBatch(ctx context.Context, userID string, raws []RawRecord, mapping FieldMapping, progress ProgressFunc) (*BatchResult, error) {
	result := &BatchResult{Total: len(raws)}

	for chunkStart := 0; chunkStart < len(raws); chunkStart += e.chunkSize {
		chunkEnd := chunkStart + e.chunkSize
		if chunkEnd > len(raws) {
			chunkEnd = len(raws)
		}

		for i := chunkStart; i < chunkEnd; i++ {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			if _, _, err := e.ImportOne(ctx, userID, raws[i], mapping); err != nil {
				e.logger.Warn("import item %d failed: %v", i, err)
				result.Failed++
				result.Errors = append(result.Errors, BatchError{Index: i, Message: err.Error()})
				continue
			}
			result.Succeeded++
		}

		processed := chunkEnd
		if progress != nil {
			progress(processed, result.Total, float64(processed)/float64(result.Total)*100)
		}

		if chunkEnd < len(raws) && e.chunkWait > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(e.chunkWait):
			}
		}
	}

	e.logger.Info("batch import done: %d ok, %d failed of %d", result.Succeeded, result.Failed, result.Total)
	return result, nil
}
