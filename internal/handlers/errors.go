package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/flasker/internal/jobs"
	"github.com/thereayou/flasker/internal/middleware"
	"github.com/thereayou/flasker/internal/services"
	"go.uber.org/zap"
)

// respondError maps service errors onto HTTP responses. Anything unexpected
// is logged and reported as a 500 without details.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request", "message": verr.Reason})
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidToken):
		c.Header("WWW-Authenticate", `Bearer realm="Authentication Required"`)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, services.ErrTaskInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "message": err.Error()})
	case errors.Is(err, jobs.ErrQueueUnavailable):
		middleware.Logger(c, log).Error("job store unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
	default:
		middleware.Logger(c, log).Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// decodeJSON strictly decodes the request body into v. Unknown fields are
// rejected; an empty body leaves v untouched when allowEmpty is set.
func decodeJSON(c *gin.Context, v any, allowEmpty bool) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		return &services.ValidationError{Reason: fmt.Sprintf("invalid JSON body: %v", err)}
	}
	return nil
}

// pageParams reads page and per_page, falling back to the given default
// page size. Bounds are enforced by the paginator.
func pageParams(c *gin.Context, defaultPerPage int) (int, int) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil {
		page = 1
	}
	perPage, err := strconv.Atoi(c.Query("per_page"))
	if err != nil {
		perPage = defaultPerPage
	}
	return page, perPage
}

// pageURL builds the endpoint callback for paginated collections at path.
func pageURL(path string) func(page, perPage int) string {
	return func(page, perPage int) string {
		return fmt.Sprintf("%s?page=%d&per_page=%d", path, page, perPage)
	}
}
