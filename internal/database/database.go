package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	DB *gorm.DB
}

func New(databaseURL string) (*Database, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(databaseURL, "sqlite://") {
		// SQLite for development
		dbPath := strings.TrimPrefix(databaseURL, "sqlite://")
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	} else {
		// PostgreSQL for production
		db, err = gorm.Open(postgres.Open(databaseURL), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Create tables manually with raw SQL
	createTablesSQL := `
	CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL,
		sku TEXT,
		supplier_product_id TEXT,
		name TEXT NOT NULL,
		description TEXT,
		price DECIMAL(10,2),
		cost_price DECIMAL(10,2),
		currency TEXT DEFAULT 'EUR',
		category TEXT DEFAULT 'General',
		stock_quantity INTEGER DEFAULT 0,
		image_urls TEXT,
		attributes TEXT,
		status TEXT DEFAULT 'active',
		status_reason TEXT,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS product_sources (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		product_id UUID NOT NULL,
		user_id UUID NOT NULL,
		source_platform TEXT NOT NULL,
		external_product_id TEXT NOT NULL,
		external_variant_id TEXT,
		source_url TEXT NOT NULL,
		last_sync_at TIMESTAMPTZ,
		sync_enabled BOOLEAN DEFAULT true,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS variant_mappings (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL,
		supplier_id TEXT,
		product_id UUID,
		source_option_name TEXT NOT NULL,
		source_option_value TEXT NOT NULL,
		target_option_name TEXT NOT NULL,
		target_option_value TEXT NOT NULL,
		priority INTEGER DEFAULT 0,
		auto_sync BOOLEAN DEFAULT false,
		is_active BOOLEAN DEFAULT true,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS variant_mapping_rules (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL,
		supplier_id TEXT,
		option_type TEXT NOT NULL,
		source_pattern TEXT NOT NULL,
		target_value TEXT NOT NULL,
		transformation_type TEXT DEFAULT 'exact',
		priority INTEGER DEFAULT 0,
		apply_to_all_products BOOLEAN DEFAULT true,
		is_active BOOLEAN DEFAULT true,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS variant_mapping_templates (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID,
		name TEXT NOT NULL,
		option_type TEXT NOT NULL,
		pairs TEXT,
		usage_count INTEGER DEFAULT 0,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS sync_logs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		job_id UUID,
		product_id UUID NOT NULL,
		source_id UUID NOT NULL,
		success BOOLEAN,
		old_stock INTEGER,
		new_stock INTEGER,
		old_price DECIMAL(10,2),
		new_price DECIMAL(10,2),
		error TEXT,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS sync_jobs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		total_products INTEGER DEFAULT 0,
		synced_count INTEGER DEFAULT 0,
		failed_count INTEGER DEFAULT 0,
		changes_detected INTEGER DEFAULT 0,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ
	);
	`

	err = db.Exec(createTablesSQL).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
