package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"shopsync/internal/models"
)

// SyncStore backs the sync scheduler with GORM. Logs are append-only.
type SyncStore struct {
	db *gorm.DB
}

func NewSyncStore(db *gorm.DB) *SyncStore {
	return &SyncStore{db: db}
}

// DueSources selects enabled sources never synced or synced before the
// cutoff. Longest-unsynced first, never-synced before everything.
func (s *SyncStore) DueSources(ctx context.Context, cutoff time.Time, limit int) ([]models.ProductSource, error) {
	var sources []models.ProductSource
	err := s.db.WithContext(ctx).
		Where("sync_enabled = ? AND (last_sync_at IS NULL OR last_sync_at < ?)", true, cutoff).
		Order("last_sync_at ASC").
		Limit(limit).
		Find(&sources).Error
	return sources, err
}

func (s *SyncStore) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).First(&product, "id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *SyncStore) UpdateProduct(ctx context.Context, product *models.Product) error {
	return s.db.WithContext(ctx).Save(product).Error
}

func (s *SyncStore) TouchSource(ctx context.Context, sourceID string, syncedAt time.Time) error {
	return s.db.WithContext(ctx).Model(&models.ProductSource{}).
		Where("id = ?", sourceID).
		Update("last_sync_at", syncedAt).Error
}

func (s *SyncStore) CreateLog(ctx context.Context, entry *models.SyncLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *SyncStore) CreateJob(ctx context.Context, job *models.SyncJob) error {
	return s.db.WithContext(ctx).Create(job).Error
}

func (s *SyncStore) UpdateJob(ctx context.Context, job *models.SyncJob) error {
	return s.db.WithContext(ctx).Save(job).Error
}

func (s *SyncStore) ListJobs(ctx context.Context, limit int) ([]models.SyncJob, error) {
	var jobs []models.SyncJob
	err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&jobs).Error
	return jobs, err
}

func (s *SyncStore) ListLogs(ctx context.Context, productID string, limit int) ([]models.SyncLog, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if productID != "" {
		query = query.Where("product_id = ?", productID)
	}
	var logs []models.SyncLog
	err := query.Find(&logs).Error
	return logs, err
}
