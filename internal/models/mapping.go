package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VariantMapping is an already-resolved 1:1 translation of a supplier option
// value into the merchant's vocabulary, optionally scoped to a supplier
// and/or a product.
type VariantMapping struct {
	ID                string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID            string    `json:"user_id" gorm:"type:uuid;not null;index"`
	SupplierID        *string   `json:"supplier_id" gorm:"index"`
	ProductID         *string   `json:"product_id" gorm:"type:uuid;index"`
	SourceOptionName  string    `json:"source_option_name" gorm:"not null"`
	SourceOptionValue string    `json:"source_option_value" gorm:"not null"`
	TargetOptionName  string    `json:"target_option_name" gorm:"not null"`
	TargetOptionValue string    `json:"target_option_value" gorm:"not null"`
	Priority          int       `json:"priority" gorm:"default:0"`
	AutoSync          bool      `json:"auto_sync" gorm:"default:false"`
	IsActive          bool      `json:"is_active" gorm:"default:true"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (m *VariantMapping) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// Transformation types understood by the rule engine.
const (
	TransformExact    = "exact"
	TransformContains = "contains"
	TransformPrefix   = "prefix"
	TransformRegex    = "regex"
)

// VariantMappingRule is a pattern that produces a resolution on demand.
type VariantMappingRule struct {
	ID                 string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID             string    `json:"user_id" gorm:"type:uuid;not null;index"`
	SupplierID         *string   `json:"supplier_id" gorm:"index"`
	OptionType         string    `json:"option_type" gorm:"not null"`
	SourcePattern      string    `json:"source_pattern" gorm:"not null"`
	TargetValue        string    `json:"target_value" gorm:"not null"`
	TransformationType string    `json:"transformation_type" gorm:"default:exact"`
	Priority           int       `json:"priority" gorm:"default:0"`
	ApplyToAllProducts bool      `json:"apply_to_all_products" gorm:"default:true"`
	IsActive           bool      `json:"is_active" gorm:"default:true"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (r *VariantMappingRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TemplatePair is one source→target entry in a template.
type TemplatePair struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// VariantMappingTemplate is a named, reusable bundle of translation pairs
// for one option type. Global templates have no owner.
type VariantMappingTemplate struct {
	ID         string         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID     *string        `json:"user_id" gorm:"type:uuid;index"`
	Name       string         `json:"name" gorm:"not null"`
	OptionType string         `json:"option_type" gorm:"not null"`
	Pairs      []TemplatePair `json:"pairs" gorm:"type:jsonb;serializer:json"`
	UsageCount int            `json:"usage_count" gorm:"default:0"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (t *VariantMappingTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}
