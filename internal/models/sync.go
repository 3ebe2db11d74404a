package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncLog is one append-only record per sync attempt. Never mutated after
// creation.
type SyncLog struct {
	ID        string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	JobID     string    `json:"job_id" gorm:"type:uuid;index"`
	ProductID string    `json:"product_id" gorm:"type:uuid;not null;index"`
	SourceID  string    `json:"source_id" gorm:"type:uuid;not null"`
	Success   bool      `json:"success"`
	OldStock  int       `json:"old_stock"`
	NewStock  int       `json:"new_stock"`
	OldPrice  float64   `json:"old_price" gorm:"type:decimal(10,2)"`
	NewPrice  float64   `json:"new_price" gorm:"type:decimal(10,2)"`
	Error     *string   `json:"error"`
	CreatedAt time.Time `json:"created_at"`
}

func (l *SyncLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

// SyncJob aggregates one scheduler invocation.
type SyncJob struct {
	ID              string     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TotalProducts   int        `json:"total_products"`
	SyncedCount     int        `json:"synced_count"`
	FailedCount     int        `json:"failed_count"`
	ChangesDetected int        `json:"changes_detected"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
}

func (j *SyncJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	return nil
}
