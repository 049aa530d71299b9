package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"autofill-backend/internal/shared/server/middleware"
	"autofill-backend/internal/shared/server/respond"
)

// Handler serves the identity endpoint. Both guests and signed-in users
// hit it; guests only ever see their synthetic id.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
}

func (h *Handler) me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}

	response := gin.H{
		"user_id":  userID,
		"is_guest": middleware.IsGuestFromContext(c),
	}
	if middleware.IsGuestFromContext(c) {
		respond.JSON(c, http.StatusOK, response)
		return
	}

	// Claims from the token are authoritative for the response; the stored
	// row fills gaps for older tokens that carried fewer claims.
	email := middleware.UserEmailFromContext(c)
	name := middleware.UserNameFromContext(c)
	if (email == "" || name == "") && h.Svc != nil {
		user, err := h.Svc.GetByID(c.Request.Context(), userID)
		if err == nil {
			if email == "" {
				email = user.Email
			}
			if name == "" {
				name = user.FullName
			}
		} else if !errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user", nil)
			return
		}
	}
	if email != "" {
		response["email"] = email
	}
	if name != "" {
		response["name"] = name
	}
	respond.JSON(c, http.StatusOK, response)
}
