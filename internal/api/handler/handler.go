// Package handler exposes the services over HTTP.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"civicdesk/backend/internal/api/middleware"
	"civicdesk/backend/internal/api/resp"
	"civicdesk/backend/internal/auth"
	"civicdesk/backend/internal/category"
	"civicdesk/backend/internal/complaint"
	"civicdesk/backend/internal/errs"
	"civicdesk/backend/internal/livefeed"
	"civicdesk/backend/internal/localization"
	"civicdesk/backend/internal/models"
	"civicdesk/backend/internal/stats"
	"civicdesk/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// Handler містить посилання на сервіси
type Handler struct {
	Auth       *auth.Service
	Complaints *complaint.Service
	Stats      *stats.Service
	Categories *category.Service
	Hub        *livefeed.Hub
	Storage    storage.Storage
	// Localizer picks the language of default status notes from
	// Accept-Language. Nil leaves them to the service default.
	Localizer *localization.Localizer

	UploadDir   string
	MaxUploadMB int
}

func NewHandler(
	authSvc *auth.Service,
	complaints *complaint.Service,
	st *stats.Service,
	categories *category.Service,
	hub *livefeed.Hub,
	store storage.Storage,
) *Handler {
	return &Handler{
		Auth:        authSvc,
		Complaints:  complaints,
		Stats:       st,
		Categories:  categories,
		Hub:         hub,
		Storage:     store,
		UploadDir:   "uploads",
		MaxUploadMB: 5,
	}
}

// fail maps a service error onto the envelope. Unknown errors are logged and
// hidden behind a generic 500.
func fail(c *gin.Context, err error) {
	var ve *errs.ValidationError
	switch {
	case errors.As(err, &ve):
		resp.BadRequest(c, ve.Error())
	case errors.Is(err, errs.ErrDuplicate):
		resp.BadRequest(c, err.Error())
	case errors.Is(err, errs.ErrUnauthenticated):
		resp.Unauthorized(c, err.Error())
	case errors.Is(err, errs.ErrForbidden):
		resp.Forbidden(c, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		resp.NotFound(c, err.Error())
	default:
		slog.Error("request failed", "path", c.Request.URL.Path, "method", c.Request.Method, "error", err)
		_ = c.Error(err)
		resp.Error(c, http.StatusInternalServerError, "internal server error")
	}
}

// currentUser is set by middleware.Authenticate on every protected route.
func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}
