package handler

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
)

// Read-only dashboard API deployed as a single serverless function. The
// full service lives under cmd/; this endpoint only queries.

type productRow struct {
	ID            string    `json:"id"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Currency      string    `json:"currency"`
	Category      string    `json:"category"`
	StockQuantity int       `json:"stock_quantity"`
	Status        string    `json:"status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type syncJobRow struct {
	ID              string     `json:"id"`
	TotalProducts   int        `json:"total_products"`
	SyncedCount     int        `json:"synced_count"`
	FailedCount     int        `json:"failed_count"`
	ChangesDetected int        `json:"changes_detected"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
}

type syncLogRow struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Success   bool      `json:"success"`
	OldStock  int       `json:"old_stock"`
	NewStock  int       `json:"new_stock"`
	OldPrice  float64   `json:"old_price"`
	NewPrice  float64   `json:"new_price"`
	Error     *string   `json:"error"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	db      *sql.DB
	dbMutex sync.Mutex
)

// initDB initializes the database connection
func initDB() error {
	dbMutex.Lock()
	defer dbMutex.Unlock()

	if db != nil {
		return nil // Already initialized
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}

	var err error
	db, err = sql.Open("postgres", databaseURL)
	if err != nil {
		return err
	}

	// Test the connection
	if err = db.Ping(); err != nil {
		return err
	}

	return nil
}

func Handler(w http.ResponseWriter, r *http.Request) {
	// Initialize database connection
	if err := initDB(); err != nil {
		http.Error(w, fmt.Sprintf("Database initialization failed: %v", err), http.StatusInternalServerError)
		return
	}

	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "ShopSync API is running",
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	api := router.Group("/api/v1")
	{
		api.GET("/products", listProducts)
		api.GET("/sync/jobs", listSyncJobs)
		api.GET("/sync/logs", listSyncLogs)
		api.GET("/stats", catalogStats)
	}

	router.ServeHTTP(w, r)
}

func requestUserID(c *gin.Context) string {
	if id := c.GetHeader("X-User-ID"); id != "" {
		return id
	}
	return c.Query("user_id")
}

func listProducts(c *gin.Context) {
	userID := requestUserID(c)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing user id"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	rows, err := db.Query(`
		SELECT id, sku, name, price, currency, category, stock_quantity, status, updated_at
		FROM products
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}
	defer rows.Close()

	products := []productRow{}
	for rows.Next() {
		var p productRow
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Price, &p.Currency,
			&p.Category, &p.StockQuantity, &p.Status, &p.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read product row"})
			return
		}
		products = append(products, p)
	}

	c.JSON(http.StatusOK, gin.H{"data": products, "page": page, "limit": limit})
}

func listSyncJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit > 100 {
		limit = 100
	}

	rows, err := db.Query(`
		SELECT id, total_products, synced_count, failed_count, changes_detected, started_at, completed_at
		FROM sync_jobs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sync jobs"})
		return
	}
	defer rows.Close()

	jobs := []syncJobRow{}
	for rows.Next() {
		var j syncJobRow
		if err := rows.Scan(&j.ID, &j.TotalProducts, &j.SyncedCount, &j.FailedCount,
			&j.ChangesDetected, &j.StartedAt, &j.CompletedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read job row"})
			return
		}
		jobs = append(jobs, j)
	}

	c.JSON(http.StatusOK, gin.H{"data": jobs})
}

func listSyncLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit > 200 {
		limit = 200
	}

	query := `
		SELECT id, product_id, success, old_stock, new_stock, old_price, new_price, error, created_at
		FROM sync_logs`
	args := []interface{}{}
	if productID := c.Query("product_id"); productID != "" {
		query += " WHERE product_id = $1"
		args = append(args, productID)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sync logs"})
		return
	}
	defer rows.Close()

	logs := []syncLogRow{}
	for rows.Next() {
		var l syncLogRow
		if err := rows.Scan(&l.ID, &l.ProductID, &l.Success, &l.OldStock, &l.NewStock,
			&l.OldPrice, &l.NewPrice, &l.Error, &l.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read log row"})
			return
		}
		logs = append(logs, l)
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}

func catalogStats(c *gin.Context) {
	userID := requestUserID(c)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing user id"})
		return
	}

	var total, active, outOfStock, sources int
	row := db.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE status = 'out_of_stock')
		FROM products WHERE user_id = $1`, userID)
	if err := row.Scan(&total, &active, &outOfStock); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM product_sources WHERE user_id = $1 AND sync_enabled`, userID).Scan(&sources); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"total_products": total,
		"active":         active,
		"out_of_stock":   outOfStock,
		"synced_sources": sources,
	}})
}
