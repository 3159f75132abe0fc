package gamification

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"manuscript-backend/internal/shared/server/middleware"
	"manuscript-backend/internal/shared/server/respond"
)

// Handler exposes the gamification profile over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes attaches gamification routes to the group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/gamification/profile", h.getProfile)
}

func (h *Handler) getProfile(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}

	profile, err := h.svc.Profile(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "Failed to load profile", nil)
		return
	}

	respond.OK(c, profile)
}
