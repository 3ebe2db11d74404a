package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"shopsync/internal/api/handlers"
	"shopsync/internal/api/middleware"
	"shopsync/internal/config"
	"shopsync/internal/database"
	"shopsync/internal/extractor"
	"shopsync/internal/ingest"
	"shopsync/internal/logger"
	"shopsync/internal/mapping"
	"shopsync/internal/store"
	"shopsync/internal/syncer"
	"shopsync/internal/worker"

	"github.com/gin-gonic/gin"
)

type Server struct {
	config *config.Config
	logger *logger.Logger
	db     *database.Database
	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config, log *logger.Logger, db *database.Database, publisher *worker.Publisher) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	// Engines
	ingestEngine := ingest.NewEngine(store.NewProductStore(db.DB), log, cfg.IngestChunkSize, cfg.IngestChunkWait)
	mappingEngine := mapping.NewEngine(store.NewMappingStore(db.DB), log)
	syncStore := store.NewSyncStore(db.DB)
	scheduler := syncer.NewScheduler(syncStore, syncer.NewFetcher(cfg.FetchTimeout), log,
		cfg.SyncInterval, cfg.SyncBatchSize, cfg.SyncWorkers)

	// Initialize handlers
	productHandler := handlers.NewProductHandler(db.DB, log)
	sourceHandler := handlers.NewSourceHandler(store.NewSourceStore(db.DB), log)
	importHandler := handlers.NewImportHandler(ingestEngine, extractor.New(log), publisher, log)
	mappingHandler := handlers.NewMappingHandler(db.DB, mappingEngine, log)
	syncHandler := handlers.NewSyncHandler(scheduler, syncStore, log)

	// Routes
	v1 := router.Group("/api/v1")
	{
		// Products
		products := v1.Group("/products")
		{
			products.GET("", productHandler.List)
			products.GET("/:id", productHandler.Get)
			products.PUT("/:id", productHandler.Update)
			products.DELETE("/:id", productHandler.Delete)
		}

		// Sources
		sources := v1.Group("/sources")
		{
			sources.GET("", sourceHandler.List)
			sources.PATCH("/:id/sync", sourceHandler.SetSyncEnabled)
		}

		// Import / extraction
		imports := v1.Group("/import")
		{
			imports.POST("", importHandler.ImportOne)
			imports.POST("/batch", importHandler.ImportBatch)
			imports.POST("/extract", importHandler.Extract)
		}

		// Variant mappings
		mappings := v1.Group("/mappings")
		{
			mappings.GET("", mappingHandler.ListMappings)
			mappings.POST("", mappingHandler.CreateMapping)
			mappings.PUT("/:id", mappingHandler.UpdateMapping)
			mappings.DELETE("/:id", mappingHandler.DeleteMapping)
			mappings.POST("/auto", mappingHandler.AutoMap)
			mappings.GET("/stats", mappingHandler.Stats)
		}

		rules := v1.Group("/mapping-rules")
		{
			rules.GET("", mappingHandler.ListRules)
			rules.POST("", mappingHandler.CreateRule)
			rules.DELETE("/:id", mappingHandler.DeleteRule)
		}

		templates := v1.Group("/mapping-templates")
		{
			templates.GET("", mappingHandler.ListTemplates)
			templates.POST("", mappingHandler.CreateTemplate)
			templates.POST("/:id/apply", mappingHandler.ApplyTemplate)
		}

		// Sync
		sync := v1.Group("/sync")
		{
			sync.POST("/run", syncHandler.Run)
			sync.GET("/jobs", syncHandler.ListJobs)
			sync.GET("/logs", syncHandler.ListLogs)
		}
	}

	return &Server{
		config: cfg,
		logger: log,
		db:     db,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on " + addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

// GetRouter returns the Gin router for serverless deployments
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
