package handlers

import (
	"net/http"

	"shopsync/internal/logger"
	"shopsync/internal/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SourceHandler struct {
	sources *store.SourceStore
	logger  *logger.Logger
}

func NewSourceHandler(sources *store.SourceStore, logger *logger.Logger) *SourceHandler {
	return &SourceHandler{
		sources: sources,
		logger:  logger,
	}
}

func (h *SourceHandler) List(c *gin.Context) {
	sources, err := h.sources.List(c.Request.Context(), userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sources"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sources})
}

type syncToggleRequest struct {
	SyncEnabled *bool `json:"sync_enabled" binding:"required"`
}

func (h *SourceHandler) SetSyncEnabled(c *gin.Context) {
	var req syncToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.sources.SetSyncEnabled(c.Request.Context(), userID(c), c.Param("id"), *req.SyncEnabled)
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update source"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"sync_enabled": *req.SyncEnabled}})
}
