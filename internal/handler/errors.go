package handler

import (
	"errors"
	"net/http"

	"taxtracker/internal/client"
	"taxtracker/internal/repository"
	"taxtracker/internal/service"
	"taxtracker/internal/taxengine"
	"taxtracker/pkg/response"

	"github.com/gin-gonic/gin"
)

// statusFor maps service and client errors to an HTTP status
func statusFor(err error) int {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotAuthenticated), errors.Is(err, client.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNoPendingCalculation), errors.Is(err, service.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrRulesetNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, taxengine.ErrInvalidRuleset):
		return http.StatusInternalServerError
	case errors.As(err, &apiErr),
		errors.Is(err, client.ErrNetwork),
		errors.Is(err, client.ErrTimeout),
		errors.Is(err, service.ErrIncompleteLogin):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the text shown to the user for err
func messageFor(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr),
		errors.Is(err, client.ErrUnauthorized),
		errors.Is(err, client.ErrNetwork),
		errors.Is(err, client.ErrTimeout):
		return client.UserMessage(err)
	default:
		return err.Error()
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	c.JSON(status, response.Error(status, messageFor(err)))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}
