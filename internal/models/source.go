package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductSource binds a catalog product to one external origin. Created at
// import time; last_sync_at is advanced only by the sync scheduler.
type ProductSource struct {
	ID                string     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID         string     `json:"product_id" gorm:"type:uuid;not null;index"`
	UserID            string     `json:"user_id" gorm:"type:uuid;not null;index"`
	SourcePlatform    string     `json:"source_platform" gorm:"not null"`
	ExternalProductID string     `json:"external_product_id" gorm:"not null"`
	ExternalVariantID *string    `json:"external_variant_id"`
	SourceURL         string     `json:"source_url" gorm:"not null"`
	LastSyncAt        *time.Time `json:"last_sync_at"`
	SyncEnabled       bool       `json:"sync_enabled" gorm:"default:true"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (s *ProductSource) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
