package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is the canonical catalog entry. It is created and updated only by
// the ingestion engine and the sync scheduler.
type Product struct {
	ID                string                 `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID            string                 `json:"user_id" gorm:"type:uuid;not null;index"`
	SKU               string                 `json:"sku" gorm:"index"`
	SupplierProductID string                 `json:"supplier_product_id" gorm:"index"`
	Name              string                 `json:"name" gorm:"not null"`
	Description       *string                `json:"description"`
	Price             float64                `json:"price" gorm:"type:decimal(10,2)"`
	CostPrice         *float64               `json:"cost_price" gorm:"type:decimal(10,2)"`
	Currency          string                 `json:"currency" gorm:"default:EUR"`
	Category          string                 `json:"category" gorm:"default:General"`
	StockQuantity     int                    `json:"stock_quantity" gorm:"default:0"`
	ImageURLs         []string               `json:"image_urls" gorm:"type:jsonb;serializer:json"`
	Attributes        map[string]interface{} `json:"attributes" gorm:"type:jsonb;serializer:json"`
	Status            string                 `json:"status" gorm:"default:active"`
	StatusReason      string                 `json:"status_reason"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

type ProductStatus string

const (
	StatusActive     ProductStatus = "active"
	StatusOutOfStock ProductStatus = "out_of_stock"
)

// Who last changed Status: a person through the API, or the scheduler.
const (
	StatusReasonManual = "manual"
	StatusReasonSync   = "sync"
)

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
