package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shopsync/internal/models"
)

// SourceStore manages product-to-origin links.
type SourceStore struct {
	db *gorm.DB
}

func NewSourceStore(db *gorm.DB) *SourceStore {
	return &SourceStore{db: db}
}

// Ensure links a product to an external origin exactly once per
// (user, platform, external product id). Re-imports refresh the URL
// instead of adding a second link.
func (s *SourceStore) Ensure(ctx context.Context, source *models.ProductSource) error {
	var existing models.ProductSource
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND source_platform = ? AND external_product_id = ?",
			source.UserID, source.SourcePlatform, source.ExternalProductID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.WithContext(ctx).Create(source).Error
	}
	if err != nil {
		return err
	}

	existing.ProductID = source.ProductID
	existing.SourceURL = source.SourceURL
	existing.ExternalVariantID = source.ExternalVariantID
	*source = existing
	return s.db.WithContext(ctx).Save(&existing).Error
}

func (s *SourceStore) List(ctx context.Context, userID string) ([]models.ProductSource, error) {
	var sources []models.ProductSource
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&sources).Error
	return sources, err
}

func (s *SourceStore) SetSyncEnabled(ctx context.Context, userID, sourceID string, enabled bool) error {
	result := s.db.WithContext(ctx).Model(&models.ProductSource{}).
		Where("id = ? AND user_id = ?", sourceID, userID).
		Update("sync_enabled", enabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
