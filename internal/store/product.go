package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shopsync/internal/models"
)

// ProductStore backs the ingestion engine's dedup-upsert with GORM.
type ProductStore struct {
	db *gorm.DB
}

func NewProductStore(db *gorm.DB) *ProductStore {
	return &ProductStore{db: db}
}

func (s *ProductStore) FindBySKU(ctx context.Context, userID, sku string) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND sku = ?", userID, sku).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *ProductStore) FindBySupplierProductID(ctx context.Context, userID, supplierProductID string) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND supplier_product_id = ?", userID, supplierProductID).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *ProductStore) Insert(ctx context.Context, product *models.Product) error {
	return s.db.WithContext(ctx).Create(product).Error
}

func (s *ProductStore) Update(ctx context.Context, product *models.Product) error {
	return s.db.WithContext(ctx).Save(product).Error
}
