package audits

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"manuscript-backend/internal/manuscripts"
	"manuscript-backend/internal/shared/server/middleware"
	"manuscript-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the audits service.
type Handler struct {
	Svc         *Service
	PollLimiter *PollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, pollLimiter *PollLimiter) *Handler {
	return &Handler{Svc: svc, PollLimiter: pollLimiter}
}

// RegisterRoutes attaches audit routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/manuscripts/:id/audit", h.startAudit)
	rg.GET("/audits", h.listAudits)
	rg.GET("/audits/:id", h.getAudit)
	rg.GET("/manuscripts/:id/audits", h.listManuscriptAudits)
}

type startAuditRequest struct {
	HelpTypes []string `json:"helpTypes"`
}

func (h *Handler) startAudit(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	manuscriptID := c.Param("id")
	if manuscriptID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "manuscript id is required", nil)
		return
	}

	var req startAuditRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}

	audit, err := h.Svc.Start(c.Request.Context(), userID, manuscriptID, req.HelpTypes)
	if err != nil {
		switch {
		case errors.Is(err, manuscripts.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "manuscript not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start audit", nil)
		}
		return
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"auditId": audit.ID,
		"status":  audit.Status,
	})
}

func (h *Handler) getAudit(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	auditID := c.Param("id")
	if auditID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "audit id is required", nil)
		return
	}

	if h.PollLimiter != nil && !h.PollLimiter.Allow(userID, auditID) {
		c.Header("Retry-After", "2")
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "polling too frequently", nil)
		return
	}

	audit, err := h.Svc.Get(c.Request.Context(), userID, auditID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "audit not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch audit", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, auditResponse(audit))
}

func (h *Handler) listAudits(c *gin.Context) {
	if middleware.IsGuestFromContext(c) {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to view history", nil)
		return
	}

	userID := middleware.UserIDFromContext(c)
	audits, err := h.Svc.List(c.Request.Context(), userID, queryLimit(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list audits", nil)
		return
	}
	respond.JSON(c, http.StatusOK, auditSummaries(audits))
}

func (h *Handler) listManuscriptAudits(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	manuscriptID := c.Param("id")
	if manuscriptID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "manuscript id is required", nil)
		return
	}

	audits, err := h.Svc.History(c.Request.Context(), userID, manuscriptID, queryLimit(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list audits", nil)
		return
	}
	respond.JSON(c, http.StatusOK, auditSummaries(audits))
}

func auditResponse(audit Audit) gin.H {
	resp := gin.H{
		"id":           audit.ID,
		"manuscriptId": audit.ManuscriptID,
		"status":       audit.Status,
		"paperType":    audit.PaperType,
		"helpTypes":    audit.HelpTypes,
		"createdAt":    audit.CreatedAt,
	}
	if audit.Status == StatusCompleted && audit.Result != nil {
		resp["result"] = audit.Result
		resp["rigorWarnings"] = audit.RigorWarnings
	}
	if audit.Status == StatusFailed {
		resp["error"] = gin.H{
			"code":      audit.ErrorCode,
			"message":   audit.ErrorMessage,
			"retryable": audit.Retryable,
		}
	}
	if audit.CompletedAt != nil {
		resp["completedAt"] = audit.CompletedAt
	}
	return resp
}

func auditSummaries(audits []Audit) []gin.H {
	out := make([]gin.H, 0, len(audits))
	for _, a := range audits {
		item := gin.H{
			"auditId":      a.ID,
			"manuscriptId": a.ManuscriptID,
			"status":       a.Status,
			"createdAt":    a.CreatedAt,
		}
		if a.Status == StatusCompleted && a.Result != nil {
			if score, ok := a.Result["readinessScore"]; ok {
				item["readinessScore"] = score
			}
			if summary, ok := a.Result["executiveSummary"]; ok {
				item["executiveSummary"] = summary
			}
		}
		out = append(out, item)
	}
	return out
}

func queryLimit(c *gin.Context) int {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	return limit
}
