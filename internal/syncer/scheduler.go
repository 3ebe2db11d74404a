package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"shopsync/internal/logger"
	"shopsync/internal/models"
)

// ErrRunInProgress is returned when RunOnce is entered while a previous run
// has not finished. Cross-process runs are not coordinated.
var ErrRunInProgress = errors.New("sync run already in progress")

// Store is the persistence surface of the scheduler. DueSources returns
// enabled sources never synced or last synced before the cutoff, capped at
// limit.
type Store interface {
	DueSources(ctx context.Context, cutoff time.Time, limit int) ([]models.ProductSource, error)
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	TouchSource(ctx context.Context, sourceID string, syncedAt time.Time) error
	CreateLog(ctx context.Context, entry *models.SyncLog) error
	CreateJob(ctx context.Context, job *models.SyncJob) error
	UpdateJob(ctx context.Context, job *models.SyncJob) error
}

// QuoteFetcher is implemented by Fetcher; tests substitute their own.
type QuoteFetcher interface {
	Fetch(ctx context.Context, source *models.ProductSource) (*Quote, error)
}

// When a heuristic strategy only knows "available again" without a
// quantity, the product is restocked to this floor.
const restockFloor = 10

type Scheduler struct {
	store     Store
	fetcher   QuoteFetcher
	logger    *logger.Logger
	interval  time.Duration
	batchSize int
	workers   int

	mu sync.Mutex
}

func NewScheduler(store Store, fetcher QuoteFetcher, log *logger.Logger, interval time.Duration, batchSize, workers int) *Scheduler {
	if batchSize <= 0 {
		batchSize = 50
	}
	if workers <= 0 {
		workers = 1
	}
	return &Scheduler{
		store:     store,
		fetcher:   fetcher,
		logger:    log,
		interval:  interval,
		batchSize: batchSize,
		workers:   workers,
	}
}

type sourceOutcome struct {
	synced  bool
	changed bool
}

// RunOnce processes one bounded batch of due sources and writes a SyncJob
// summary. Sources are fetched by a bounded worker pool; one broken source
// never stops the batch. Only one run may be active per process.
func (s *Scheduler) RunOnce(ctx context.Context) (*models.SyncJob, error) {
	if !s.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.interval)
	sources, err := s.store.DueSources(ctx, cutoff, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("selecting due sources: %w", err)
	}

	job := &models.SyncJob{
		TotalProducts: len(sources),
		StartedAt:     time.Now(),
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating sync job: %w", err)
	}

	if len(sources) > 0 {
		s.logger.Info("sync run %s: %d due sources", job.ID, len(sources))
		s.runPool(ctx, job, sources)
	}

	now := time.Now()
	job.CompletedAt = &now
	if err := s.store.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("completing sync job: %w", err)
	}

	s.logger.Info("sync run %s done: %d synced, %d failed, %d changed",
		job.ID, job.SyncedCount, job.FailedCount, job.ChangesDetected)
	return job, nil
}

func (s *Scheduler) runPool(ctx context.Context, job *models.SyncJob, sources []models.ProductSource) {
	tasks := make(chan *models.ProductSource)
	outcomes := make(chan sourceOutcome, len(sources))

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for source := range tasks {
				outcomes <- s.syncSource(ctx, job.ID, source)
			}
		}()
	}

	for i := range sources {
		if ctx.Err() != nil {
			break
		}
		tasks <- &sources[i]
	}
	close(tasks)
	wg.Wait()
	close(outcomes)

	for outcome := range outcomes {
		if outcome.synced {
			job.SyncedCount++
		} else {
			job.FailedCount++
		}
		if outcome.changed {
			job.ChangesDetected++
		}
	}
}

// syncSource fetches, diffs and applies one source. last_sync_at advances
// even on failure so a broken source is retried once per interval, not
// every run.
func (s *Scheduler) syncSource(ctx context.Context, jobID string, source *models.ProductSource) sourceOutcome {
	defer func() {
		if err := s.store.TouchSource(ctx, source.ID, time.Now()); err != nil {
			s.logger.Error("touching source %s: %v", source.ID, err)
		}
	}()

	product, err := s.store.GetProduct(ctx, source.ProductID)
	if err == nil && product == nil {
		err = fmt.Errorf("product %s not found", source.ProductID)
	}
	if err != nil {
		s.recordFailure(ctx, jobID, source, nil, err)
		return sourceOutcome{}
	}

	quote, err := s.fetcher.Fetch(ctx, source)
	if err != nil {
		s.recordFailure(ctx, jobID, source, product, err)
		return sourceOutcome{}
	}

	changed, err := s.apply(ctx, jobID, source, product, quote)
	if err != nil {
		s.recordFailure(ctx, jobID, source, product, err)
		return sourceOutcome{}
	}
	return sourceOutcome{synced: true, changed: changed}
}

// apply diffs the quote against the stored product and persists only when
// something moved. Stock never goes negative; crossing zero flips status.
func (s *Scheduler) apply(ctx context.Context, jobID string, source *models.ProductSource, product *models.Product, quote *Quote) (bool, error) {
	oldStock := product.StockQuantity
	oldPrice := product.Price

	newStock := oldStock
	switch {
	case quote.Stock != nil:
		newStock = *quote.Stock
		if newStock < 0 {
			newStock = 0
		}
	case quote.InStock != nil && !*quote.InStock:
		newStock = 0
	case quote.InStock != nil && *quote.InStock && oldStock == 0:
		newStock = restockFloor
	}

	newPrice := oldPrice
	if quote.Price != nil && *quote.Price > 0 {
		newPrice = *quote.Price
	}

	changed := newStock != oldStock || newPrice != oldPrice
	if changed {
		product.StockQuantity = newStock
		product.Price = newPrice

		if newStock == 0 && oldStock > 0 {
			product.Status = string(models.StatusOutOfStock)
			product.StatusReason = models.StatusReasonSync
		}
		if newStock > 0 && oldStock == 0 && product.StatusReason != models.StatusReasonManual {
			product.Status = string(models.StatusActive)
			product.StatusReason = models.StatusReasonSync
		}

		if err := s.store.UpdateProduct(ctx, product); err != nil {
			return false, fmt.Errorf("updating product: %w", err)
		}
	}

	entry := &models.SyncLog{
		JobID:     jobID,
		ProductID: product.ID,
		SourceID:  source.ID,
		Success:   true,
		OldStock:  oldStock,
		NewStock:  newStock,
		OldPrice:  oldPrice,
		NewPrice:  newPrice,
	}
	if err := s.store.CreateLog(ctx, entry); err != nil {
		s.logger.Error("writing sync log for source %s: %v", source.ID, err)
	}
	return changed, nil
}

func (s *Scheduler) recordFailure(ctx context.Context, jobID string, source *models.ProductSource, product *models.Product, cause error) {
	s.logger.Warn("sync source %s failed: %v", source.ID, cause)

	message := cause.Error()
	entry := &models.SyncLog{
		JobID:    jobID,
		SourceID: source.ID,
		Success:  false,
		Error:    &message,
	}
	if product != nil {
		entry.ProductID = product.ID
		entry.OldStock = product.StockQuantity
		entry.NewStock = product.StockQuantity
		entry.OldPrice = product.Price
		entry.NewPrice = product.Price
	} else {
		entry.ProductID = source.ProductID
	}
	if err := s.store.CreateLog(ctx, entry); err != nil {
		s.logger.Error("writing sync log for source %s: %v", source.ID, err)
	}
}
