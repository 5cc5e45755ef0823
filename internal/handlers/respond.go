package handlers

import (
	"log"
	"net/http"
	"strconv"

	"go-storefront/internal/apperr"

	"github.com/gin-gonic/gin"
)

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:        http.StatusBadRequest,
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindInsufficientStock: http.StatusConflict,
	apperr.KindUnauthorized:      http.StatusUnauthorized,
	apperr.KindForbidden:         http.StatusForbidden,
	apperr.KindConflict:          http.StatusConflict,
	apperr.KindInternal:          http.StatusInternalServerError,
}

// respondError writes {"error", "code"} with the status for the error's kind.
// Internal details are logged, never sent.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	message := apperr.Message(err)
	if kind == apperr.KindInternal {
		log.Printf("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
		message = "Internal server error"
	}
	c.JSON(status, gin.H{"error": message, "code": kind})
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperr.Validation("Invalid request body"))
		return false
	}
	return true
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apperr.Validation("Invalid %s", name))
		return 0, false
	}
	return uint(id), true
}

// intQuery parses an optional integer query value; absent means 0.
func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		respondError(c, apperr.Validation("%s must be a number", name))
		return 0, false
	}
	return n, true
}
