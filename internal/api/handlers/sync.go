package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"shopsync/internal/logger"
	"shopsync/internal/store"
	"shopsync/internal/syncer"

	"github.com/gin-gonic/gin"
)

type SyncHandler struct {
	scheduler *syncer.Scheduler
	syncs     *store.SyncStore
	logger    *logger.Logger
}

func NewSyncHandler(scheduler *syncer.Scheduler, syncs *store.SyncStore, logger *logger.Logger) *SyncHandler {
	return &SyncHandler{
		scheduler: scheduler,
		syncs:     syncs,
		logger:    logger,
	}
}

// Run triggers one scheduler pass. A pass already in flight answers 409.
func (h *SyncHandler) Run(c *gin.Context) {
	job, err := h.scheduler.RunOnce(c.Request.Context())
	if errors.Is(err, syncer.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": "Sync already running"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": job})
}

func (h *SyncHandler) ListJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	jobs, err := h.syncs.ListJobs(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sync jobs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": jobs})
}

func (h *SyncHandler) ListLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.syncs.ListLogs(c.Request.Context(), c.Query("product_id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sync logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs})
}
