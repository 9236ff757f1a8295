package analyses

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"analysis-backend/internal/ai"
	"analysis-backend/internal/match"
	"analysis-backend/internal/profile"
	"analysis-backend/internal/shared/server/middleware"
	"analysis-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analysis/profile", h.analyzeProfile)
	rg.POST("/analysis/batch", h.createBatch)
	rg.GET("/analysis/batch/:id", h.getBatch)
	rg.GET("/analysis/batches", h.listBatches)
}

type analyzeProfileRequest struct {
	Profile      profile.Profile    `json:"profile" binding:"required"`
	Requirements match.Requirements `json:"requirements" binding:"required"`
}

type analyzeBatchRequest struct {
	Profiles     []profile.Profile  `json:"profiles" binding:"required"`
	Requirements match.Requirements `json:"requirements" binding:"required"`
}

func (h *Handler) analyzeProfile(c *gin.Context) {
	var req analyzeProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	c.Set("profileId", req.Profile.ID)
	ctx := WithCorrelationID(c.Request.Context(), middleware.RequestIDFromContext(c))
	result, err := h.Svc.AnalyzeProfile(ctx, &req.Profile, req.Requirements)
	if err != nil {
		switch {
		case errors.Is(err, profile.ErrInvalid), errors.Is(err, match.ErrInvalidRequirements):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ai.ErrTimeout):
			respond.Error(c, http.StatusGatewayTimeout, "ai_timeout", "AI analysis timed out", nil)
		case errors.Is(err, ai.ErrTransient), errors.Is(err, ai.ErrInvalidResponse):
			respond.Error(c, http.StatusBadGateway, "ai_error", "AI analysis failed", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to analyze profile", nil)
		}
		return
	}

	respond.OK(c, result)
}

func (h *Handler) createBatch(c *gin.Context) {
	var req analyzeBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	profiles := make([]*profile.Profile, 0, len(req.Profiles))
	for i := range req.Profiles {
		profiles = append(profiles, &req.Profiles[i])
	}

	ctx := WithCorrelationID(c.Request.Context(), middleware.RequestIDFromContext(c))
	batch, err := h.Svc.CreateBatch(ctx, profiles, req.Requirements)
	if err != nil {
		switch {
		case errors.Is(err, ErrBatchTooLarge):
			respond.Error(c, http.StatusBadRequest, "batch_too_large", err.Error(), nil)
		case errors.Is(err, profile.ErrInvalid), errors.Is(err, match.ErrInvalidRequirements):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create batch analysis", nil)
		}
		return
	}

	c.Set("batchId", batch.ID)
	respond.JSON(c, http.StatusAccepted, gin.H{
		"batchId":      batch.ID,
		"status":       batch.Status,
		"profileCount": batch.ProfileCount,
	})
}

func (h *Handler) getBatch(c *gin.Context) {
	batchID := c.Param("id")
	if batchID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "batch id is required", nil)
		return
	}
	c.Set("batchId", batchID)

	batch, err := h.Svc.Get(c.Request.Context(), batchID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "batch analysis not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch batch analysis", nil)
		}
		return
	}

	resp := gin.H{
		"batchId":      batch.ID,
		"status":       batch.Status,
		"profileCount": batch.ProfileCount,
		"createdAt":    batch.CreatedAt,
	}
	if batch.Status == StatusCompleted {
		resp["results"] = batch.Results
		resp["succeededCount"] = batch.SucceededCount
		resp["failedCount"] = batch.FailedCount
	}
	if batch.Status == StatusFailed {
		resp["errorCode"] = batch.ErrorCode
		resp["errorMessage"] = batch.ErrorMessage
	}

	respond.OK(c, resp)
}

func (h *Handler) listBatches(c *gin.Context) {
	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	batches, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list batch analyses", nil)
		return
	}

	resp := make([]gin.H, 0, len(batches))
	for _, batch := range batches {
		item := gin.H{
			"batchId":      batch.ID,
			"status":       batch.Status,
			"profileCount": batch.ProfileCount,
			"createdAt":    batch.CreatedAt,
		}
		if batch.Status == StatusCompleted {
			item["succeededCount"] = batch.SucceededCount
			item["failedCount"] = batch.FailedCount
		}
		resp = append(resp, item)
	}
	respond.OK(c, resp)
}
