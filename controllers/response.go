package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"cityconnect-be/apperror"
	"cityconnect-be/services"
)

const requestTimeout = 10 * time.Second

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	body := gin.H{"success": false, "error": apperror.Message(err)}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Field != "" {
		body["field"] = appErr.Field
	}
	c.JSON(statusFor(err), body)
}

// respond writes a service envelope, using status on success.
func respond[T any](c *gin.Context, status int, env services.Envelope[T]) {
	if !env.Success {
		respondError(c, env.Err)
		return
	}
	c.JSON(status, env)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": message})
}

// queryLimit parses the optional limit query parameter. Zero means the
// default cap.
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, false
	}
	return limit, true
}
