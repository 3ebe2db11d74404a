package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shopsync/internal/models"
)

// MappingStore backs the variant mapping engine with GORM.
type MappingStore struct {
	db *gorm.DB
}

func NewMappingStore(db *gorm.DB) *MappingStore {
	return &MappingStore{db: db}
}

// ActiveRules returns the user's active rules for one option type, highest
// priority first. Insertion order breaks priority ties.
func (s *MappingStore) ActiveRules(ctx context.Context, userID, optionType string) ([]models.VariantMappingRule, error) {
	var rules []models.VariantMappingRule
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND option_type = ? AND is_active = ?", userID, optionType, true).
		Order("priority DESC, created_at ASC").
		Find(&rules).Error
	return rules, err
}

func (s *MappingStore) FindMapping(ctx context.Context, userID string, supplierID *string, optionName, optionValue string) (*models.VariantMapping, error) {
	query := s.db.WithContext(ctx).
		Where("user_id = ? AND source_option_name = ? AND source_option_value = ?", userID, optionName, optionValue)
	if supplierID == nil {
		query = query.Where("supplier_id IS NULL")
	} else {
		query = query.Where("supplier_id = ?", *supplierID)
	}

	var mapping models.VariantMapping
	err := query.First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

func (s *MappingStore) InsertMapping(ctx context.Context, mapping *models.VariantMapping) error {
	return s.db.WithContext(ctx).Create(mapping).Error
}

func (s *MappingStore) UpdateMapping(ctx context.Context, mapping *models.VariantMapping) error {
	return s.db.WithContext(ctx).Save(mapping).Error
}

func (s *MappingStore) ListMappings(ctx context.Context, userID string) ([]models.VariantMapping, error) {
	var mappings []models.VariantMapping
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&mappings).Error
	return mappings, err
}

func (s *MappingStore) ListRules(ctx context.Context, userID string) ([]models.VariantMappingRule, error) {
	var rules []models.VariantMappingRule
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rules).Error
	return rules, err
}

// GetTemplate also returns global templates, which have no owner.
func (s *MappingStore) GetTemplate(ctx context.Context, templateID string) (*models.VariantMappingTemplate, error) {
	var template models.VariantMappingTemplate
	err := s.db.WithContext(ctx).First(&template, "id = ?", templateID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (s *MappingStore) UpdateTemplate(ctx context.Context, template *models.VariantMappingTemplate) error {
	return s.db.WithContext(ctx).Save(template).Error
}
