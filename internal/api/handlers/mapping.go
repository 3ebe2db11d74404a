package handlers

import (
	"errors"
	"net/http"

	"shopsync/internal/logger"
	"shopsync/internal/mapping"
	"shopsync/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

type MappingHandler struct {
	db       *gorm.DB
	engine   *mapping.Engine
	validate *validator.Validate
	logger   *logger.Logger
}

func NewMappingHandler(db *gorm.DB, engine *mapping.Engine, logger *logger.Logger) *MappingHandler {
	return &MappingHandler{
		db:       db,
		engine:   engine,
		validate: validator.New(),
		logger:   logger,
	}
}

// --- explicit mappings ---

func (h *MappingHandler) ListMappings(c *gin.Context) {
	var mappings []models.VariantMapping
	query := h.db.Where("user_id = ?", userID(c))
	if optionName := c.Query("option_name"); optionName != "" {
		query = query.Where("source_option_name = ?", optionName)
	}
	if err := query.Find(&mappings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch mappings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": mappings})
}

type mappingRequest struct {
	SupplierID        *string `json:"supplier_id"`
	ProductID         *string `json:"product_id"`
	SourceOptionName  string  `json:"source_option_name" validate:"required"`
	SourceOptionValue string  `json:"source_option_value" validate:"required"`
	TargetOptionName  string  `json:"target_option_name" validate:"required"`
	TargetOptionValue string  `json:"target_option_value" validate:"required"`
	Priority          int     `json:"priority"`
	AutoSync          bool    `json:"auto_sync"`
}

func (h *MappingHandler) CreateMapping(c *gin.Context) {
	var req mappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record := models.VariantMapping{
		UserID:            userID(c),
		SupplierID:        req.SupplierID,
		ProductID:         req.ProductID,
		SourceOptionName:  req.SourceOptionName,
		SourceOptionValue: req.SourceOptionValue,
		TargetOptionName:  req.TargetOptionName,
		TargetOptionValue: req.TargetOptionValue,
		Priority:          req.Priority,
		AutoSync:          req.AutoSync,
		IsActive:          true,
	}
	if err := h.db.Create(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create mapping"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": record})
}

func (h *MappingHandler) UpdateMapping(c *gin.Context) {
	var record models.VariantMapping
	if err := h.db.First(&record, "id = ? AND user_id = ?", c.Param("id"), userID(c)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Mapping not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch mapping"})
		return
	}

	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.db.Save(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update mapping"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": record})
}

func (h *MappingHandler) DeleteMapping(c *gin.Context) {
	if err := h.db.Delete(&models.VariantMapping{}, "id = ? AND user_id = ?", c.Param("id"), userID(c)).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete mapping"})
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

// --- rules ---

func (h *MappingHandler) ListRules(c *gin.Context) {
	var rules []models.VariantMappingRule
	if err := h.db.Where("user_id = ?", userID(c)).Order("priority DESC").Find(&rules).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rules"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rules})
}

type ruleRequest struct {
	SupplierID         *string `json:"supplier_id"`
	OptionType         string  `json:"option_type" validate:"required"`
	SourcePattern      string  `json:"source_pattern" validate:"required"`
	TargetValue        string  `json:"target_value" validate:"required"`
	TransformationType string  `json:"transformation_type" validate:"omitempty,oneof=exact contains prefix regex"`
	Priority           int     `json:"priority"`
	ApplyToAllProducts *bool   `json:"apply_to_all_products"`
}

func (h *MappingHandler) CreateRule(c *gin.Context) {
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TransformationType == "" {
		req.TransformationType = models.TransformExact
	}

	record := models.VariantMappingRule{
		UserID:             userID(c),
		SupplierID:         req.SupplierID,
		OptionType:         req.OptionType,
		SourcePattern:      req.SourcePattern,
		TargetValue:        req.TargetValue,
		TransformationType: req.TransformationType,
		Priority:           req.Priority,
		ApplyToAllProducts: req.ApplyToAllProducts == nil || *req.ApplyToAllProducts,
		IsActive:           true,
	}
	if err := h.db.Create(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create rule"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": record})
}

func (h *MappingHandler) DeleteRule(c *gin.Context) {
	if err := h.db.Delete(&models.VariantMappingRule{}, "id = ? AND user_id = ?", c.Param("id"), userID(c)).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete rule"})
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

// --- templates ---

func (h *MappingHandler) ListTemplates(c *gin.Context) {
	var templates []models.VariantMappingTemplate
	err := h.db.Where("user_id = ? OR user_id IS NULL", userID(c)).Find(&templates).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch templates"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": templates})
}

type templateRequest struct {
	Name       string                `json:"name" validate:"required"`
	OptionType string                `json:"option_type" validate:"required"`
	Pairs      []models.TemplatePair `json:"pairs" validate:"required,min=1,dive"`
}

func (h *MappingHandler) CreateTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	owner := userID(c)
	record := models.VariantMappingTemplate{
		UserID:     &owner,
		Name:       req.Name,
		OptionType: req.OptionType,
		Pairs:      req.Pairs,
	}
	if err := h.db.Create(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": record})
}

type applyTemplateRequest struct {
	SupplierID *string `json:"supplier_id"`
}

func (h *MappingHandler) ApplyTemplate(c *gin.Context) {
	var req applyTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	applied, err := h.engine.ApplyTemplate(c.Request.Context(), userID(c), req.SupplierID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": applied})
}

// --- resolution ---

type autoMapRequest struct {
	SupplierID  *string `json:"supplier_id"`
	OptionName  string  `json:"option_name" validate:"required"`
	OptionValue string  `json:"option_value" validate:"required"`
}

func (h *MappingHandler) AutoMap(c *gin.Context) {
	var req autoMapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	match, err := h.engine.AutoMapVariant(c.Request.Context(), userID(c), req.SupplierID, req.OptionName, req.OptionValue)
	if errors.Is(err, mapping.ErrNoRuleMatch) {
		c.JSON(http.StatusOK, gin.H{"data": nil, "matched": false})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": match, "matched": true})
}

func (h *MappingHandler) Stats(c *gin.Context) {
	stats, err := h.engine.Stats(c.Request.Context(), userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}
