package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/gitdrive/internal/objectstore"
	"github.com/GriffinCanCode/gitdrive/internal/vfs"
)

// failureView is one failed path of an aggregate result.
type failureView struct {
	Path  string `json:"path"`
	Op    string `json:"op"`
	Error string `json:"error"`
}

// statusOf maps an engine or store error to an HTTP status and a stable code.
// Aggregates and warnings are handled by respondError before this is reached.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, errNoFile):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, vfs.ErrInvalidPath), errors.Is(err, vfs.ErrInvalidName):
		return http.StatusBadRequest, "invalid_path"
	case errors.Is(err, vfs.ErrIsDirectory):
		return http.StatusBadRequest, "is_directory"
	case errors.Is(err, vfs.ErrNotDirectory):
		return http.StatusBadRequest, "not_directory"
	case errors.Is(err, vfs.ErrNotConfigured):
		return http.StatusPreconditionFailed, "not_configured"
	case errors.Is(err, objectstore.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, objectstore.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, objectstore.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, objectstore.ErrAuthFailure):
		return http.StatusUnauthorized, "auth_failure"
	case errors.Is(err, objectstore.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, objectstore.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, objectstore.ErrRequest):
		return http.StatusUnprocessableEntity, "rejected"
	}
	return http.StatusInternalServerError, "internal"
}

// respondError writes err in the standard envelope. A DuplicateWarning is a
// success that carries a warning; an AggregateError is a partial success.
func respondError(c *gin.Context, err error, extra gin.H) {
	_ = c.Error(err)

	body := gin.H{}
	for k, v := range extra {
		body[k] = v
	}

	var warn *vfs.DuplicateWarning
	if errors.As(err, &warn) {
		body["success"] = true
		body["warning"] = warn.Error()
		body["path"] = warn.New
		body["leftover"] = warn.Old
		if agg, ok := vfs.AsAggregate(warn.Cause); ok {
			body["failures"] = failureViews(agg)
		}
		c.JSON(http.StatusOK, body)
		return
	}

	if agg, ok := vfs.AsAggregate(err); ok {
		body["success"] = false
		body["error"] = agg.Error()
		body["code"] = "partial"
		body["failures"] = failureViews(agg)
		c.JSON(http.StatusMultiStatus, body)
		return
	}

	status, code := statusOf(err)
	body["success"] = false
	body["error"] = err.Error()
	body["code"] = code
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   msg,
		"code":    "bad_request",
	})
}

func failureViews(agg *vfs.AggregateError) []failureView {
	out := make([]failureView, len(agg.Failures))
	for i, f := range agg.Failures {
		out[i] = failureView{Path: f.Path, Op: f.Op, Error: f.Err.Error()}
	}
	return out
}
