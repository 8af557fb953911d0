package handlers

import (
	"net/http"
	"strconv"

	"busbooking/internal/config"
	"busbooking/internal/http/middleware"
	"busbooking/internal/mail"
	"busbooking/internal/payment"

	"github.com/gin-gonic/gin"
)

// Shared process-level wiring, set once from main before the router mounts.
var (
	env     config.Env
	gateway payment.Gateway
	mailer  mail.Mailer
)

// Init stores the handler dependencies.
func Init(e config.Env, gw payment.Gateway, m mail.Mailer) {
	env = e
	gateway = gw
	mailer = m
}

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil {
		respondError(c, http.StatusBadRequest, "validation_error", "empty body")
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "invalid payload: "+err.Error())
		return false
	}
	return true
}

// mustAuth fetches the AuthContext; RequireAuth guarantees it exists on
// protected routes.
func mustAuth(c *gin.Context) (middleware.AuthContext, bool) {
	auth, ok := middleware.GetAuth(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required")
	}
	return auth, ok
}

// pageParams reads page/limit query params with the listing defaults.
func pageParams(c *gin.Context) (limit, offset, page int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return limit, (page - 1) * limit, page
}

func totalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
