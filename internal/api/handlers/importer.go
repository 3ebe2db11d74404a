package handlers

import (
	"net/http"

	"shopsync/internal/extractor"
	"shopsync/internal/ingest"
	"shopsync/internal/logger"
	"shopsync/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type ImportHandler struct {
	engine    *ingest.Engine
	extractor *extractor.Extractor
	publisher *worker.Publisher
	validate  *validator.Validate
	logger    *logger.Logger
}

func NewImportHandler(engine *ingest.Engine, ext *extractor.Extractor, publisher *worker.Publisher, logger *logger.Logger) *ImportHandler {
	return &ImportHandler{
		engine:    engine,
		extractor: ext,
		publisher: publisher,
		validate:  validator.New(),
		logger:    logger,
	}
}

type importRequest struct {
	Record       ingest.RawRecord    `json:"record" validate:"required,min=1"`
	FieldMapping ingest.FieldMapping `json:"field_mapping"`
}

// ImportOne ingests a single raw record synchronously and returns the
// canonical product plus any soft warnings.
func (h *ImportHandler) ImportOne(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, warnings, err := h.engine.ImportOne(c.Request.Context(), userID(c), req.Record, req.FieldMapping)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "warnings": warnings})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": product, "warnings": warnings})
}

type batchImportRequest struct {
	Records      []ingest.RawRecord  `json:"records" validate:"required,min=1,max=1000"`
	FieldMapping ingest.FieldMapping `json:"field_mapping"`
}

// ImportBatch always answers 200 with a structured partial result; item
// failures are data, not transport errors.
func (h *ImportHandler) ImportBatch(c *gin.Context) {
	var req batchImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.engine.ImportBatch(c.Request.Context(), userID(c), req.Records, req.FieldMapping, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "data": result})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

type extractRequest struct {
	URL      string                 `json:"url" validate:"required,url"`
	Platform string                 `json:"platform" validate:"required"`
	HTML     string                 `json:"html"`
	Data     map[string]interface{} `json:"data"`
}

// Extract runs the extractor over a loaded page payload and hands the raw
// record off for asynchronous ingestion.
func (h *ImportHandler) Extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page := &extractor.Page{
		URL:      req.URL,
		Platform: req.Platform,
		HTML:     req.HTML,
		Data:     req.Data,
	}
	record := h.extractor.Extract(c.Request.Context(), page)

	if h.publisher != nil {
		if err := h.publisher.PublishExtraction(c.Request.Context(), userID(c), record); err != nil {
			h.logger.Error("publishing extraction for %s: %v", record.ExternalID, err)
			c.JSON(http.StatusAccepted, gin.H{"data": record, "queued": false})
			return
		}
	}

	c.JSON(http.StatusAccepted, gin.H{"data": record, "queued": h.publisher != nil})
}
