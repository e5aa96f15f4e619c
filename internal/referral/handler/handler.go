package handler

import (
	"io"
	"net/http"

	"referral_backend/internal/referral/service"
	"referral_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for uploads and reconciled referrals.
type Handler struct {
	svc *service.Service
}

// New creates a new referral handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Upload ingests a batch of raw events.
// POST /uploads
func (h *Handler) Upload(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "failed to read request body", nil)
		return
	}

	result, err := h.svc.Ingest(c.Request.Context(), identity.UserID().String(), body)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// List returns reconciled referral read-models, capped at 100.
// GET /referrals
func (h *Handler) List(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get returns one referral with its ascending event timeline.
// GET /referrals/:id
func (h *Handler) Get(c *gin.Context) {
	referralID := c.Param("id")
	if referralID == "" {
		httpkit.Error(c, http.StatusBadRequest, "referral id is required", nil)
		return
	}

	result, err := h.svc.Get(c.Request.Context(), referralID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// LatestMetrics returns the most recent aggregate-metrics snapshot.
// GET /metrics/latest
func (h *Handler) LatestMetrics(c *gin.Context) {
	result, err := h.svc.LatestMetrics(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
