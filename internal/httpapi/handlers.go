package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"careline/internal/auth"
	"careline/internal/campaign"
	"careline/internal/pastoral"
	"careline/internal/reporting"
	"careline/internal/script"
	"careline/pkg/logger"
)

// Handlers bundles the API surface over the campaign, reporting and pastoral
// services.
type Handlers struct {
	campaigns *campaign.Service
	reporting *reporting.Service
	pastoral  *pastoral.Service
}

func NewHandlers(campaigns *campaign.Service, rep *reporting.Service, past *pastoral.Service) *Handlers {
	return &Handlers{campaigns: campaigns, reporting: rep, pastoral: past}
}

// identity pulls the authenticated caller; the auth middleware guarantees
// presence, this is a belt check.
func identity(c *gin.Context) (orgID, userID string, ok bool) {
	orgID, err := auth.OrgID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "org_id required"})
		return "", "", false
	}
	userID, err = auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return "", "", false
	}
	return orgID, userID, true
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, campaign.ErrInvalidArgument),
		errors.Is(err, pastoral.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	case errors.Is(err, campaign.ErrNotFound),
		errors.Is(err, pastoral.ErrNotFound),
		errors.Is(err, script.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, pastoral.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid status transition"})
	case errors.Is(err, campaign.ErrDispatchBusy):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "dispatch already running for this organization"})
	default:
		logger.FromGin(c).Error("request failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// StartCampaignCalls kicks off a synchronous dispatch run.
func (h *Handlers) StartCampaignCalls(c *gin.Context) {
	orgID, userID, ok := identity(c)
	if !ok {
		return
	}

	var req campaign.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.campaigns.StartCalls(c.Request.Context(), orgID, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) ListCampaigns(c *gin.Context) {
	orgID, _, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.campaigns.List(c.Request.Context(), orgID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": out})
}

func (h *Handlers) GetCampaign(c *gin.Context) {
	orgID, _, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.campaigns.Get(c.Request.Context(), orgID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) CampaignSummary(c *gin.Context) {
	orgID, _, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.reporting.CampaignSummary(c.Request.Context(), orgID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) ListEscalations(c *gin.Context) {
	orgID, _, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.pastoral.ListAlerts(c.Request.Context(), orgID, pastoral.AlertStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": out})
}

func (h *Handlers) ResolveEscalation(c *gin.Context) {
	orgID, _, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.pastoral.ResolveAlert(c.Request.Context(), orgID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) ListFollowUps(c *gin.Context) {
	orgID, _, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.pastoral.ListFollowUps(c.Request.Context(), orgID, pastoral.FollowUpStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"follow_ups": out})
}

type createFollowUpRequest struct {
	PersonID string `json:"person_id" binding:"required"`
	Note     string `json:"note"`
	Priority string `json:"priority"`
}

func (h *Handlers) CreateFollowUp(c *gin.Context) {
	orgID, userID, ok := identity(c)
	if !ok {
		return
	}
	var req createFollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	out, err := h.pastoral.CreateManualFollowUp(c.Request.Context(), orgID, req.PersonID, userID, req.Note, pastoral.Priority(req.Priority))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

type updateFollowUpStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handlers) UpdateFollowUpStatus(c *gin.Context) {
	orgID, _, ok := identity(c)
	if !ok {
		return
	}
	var req updateFollowUpStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	out, err := h.pastoral.Transition(c.Request.Context(), orgID, c.Param("id"), pastoral.FollowUpStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type appendNoteRequest struct {
	Note string `json:"note" binding:"required"`
}

func (h *Handlers) AppendFollowUpNote(c *gin.Context) {
	orgID, userID, ok := identity(c)
	if !ok {
		return
	}
	var req appendNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	out, err := h.pastoral.AppendNote(c.Request.Context(), orgID, c.Param("id"), userID, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
