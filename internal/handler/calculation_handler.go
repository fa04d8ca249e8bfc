package handler

import (
	"net/http"

	"taxtracker/internal/service"
	"taxtracker/pkg/response"

	"github.com/gin-gonic/gin"
)

type CalculationHandler struct {
	calculationService service.CalculationService
	requireSession     gin.HandlerFunc
}

func NewCalculationHandler(calculationService service.CalculationService, requireSession gin.HandlerFunc) *CalculationHandler {
	return &CalculationHandler{calculationService: calculationService, requireSession: requireSession}
}

func (h *CalculationHandler) RegisterRoutes(router *gin.RouterGroup) {
	calc := router.Group("/api/calculations")
	calc.Use(h.requireSession)
	{
		calc.POST("", h.Calculate)
		calc.GET("/pending", h.GetPending)
		calc.DELETE("/pending", h.DiscardPending)
		calc.POST("/pending/submit", h.SubmitPending)
	}
}

// Calculate computes tax for the signed-in user
// @Summary      Calculate tax
// @Description  Computes tax with the active ruleset for the user's taxpayer class and keeps the result as the pending calculation
// @Tags         calculations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CalculateRequest  true  "Income and period"
// @Success      201      {object}  response.Response{data=model.CalculationResult}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/calculations [post]
func (h *CalculationHandler) Calculate(c *gin.Context) {
	var req service.CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.calculationService.Calculate(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// GetPending returns the pending calculation
// @Summary      Pending calculation
// @Tags         calculations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=model.CalculationResult}
// @Failure      404  {object}  response.Response
// @Router       /api/calculations/pending [get]
func (h *CalculationHandler) GetPending(c *gin.Context) {
	result, err := h.calculationService.Pending(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// DiscardPending drops the pending calculation
// @Summary      Calculate another
// @Tags         calculations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /api/calculations/pending [delete]
func (h *CalculationHandler) DiscardPending(c *gin.Context) {
	if err := h.calculationService.Discard(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Pending calculation discarded"}))
}

// SubmitPending saves the pending calculation as a tax record
// @Summary      Save pending calculation
// @Description  Submits the pending calculation at most once. Repeated calls report already_submitted.
// @Tags         calculations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.SubmissionOutcome}
// @Success      201  {object}  response.Response{data=service.SubmissionOutcome}
// @Failure      401  {object}  response.Response{data=service.SubmissionOutcome}
// @Failure      404  {object}  response.Response
// @Failure      502  {object}  response.Response{data=service.SubmissionOutcome}
// @Router       /api/calculations/pending/submit [post]
func (h *CalculationHandler) SubmitPending(c *gin.Context) {
	outcome, err := h.calculationService.SubmitPending(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	status := outcomeStatus(outcome)
	if outcome.Status == service.OutcomeFailed {
		c.JSON(status, response.Failure(status, outcome, outcome.Message))
		return
	}
	c.JSON(status, response.Success(status, outcome))
}

func outcomeStatus(o service.SubmissionOutcome) int {
	switch o.Status {
	case service.OutcomeSubmitted:
		return http.StatusCreated
	case service.OutcomeAlreadySubmitted:
		return http.StatusOK
	}
	switch o.Reason {
	case service.ReasonInvalid:
		return http.StatusBadRequest
	case service.ReasonUnauthenticated, service.ReasonUnauthorized:
		return http.StatusUnauthorized
	case service.ReasonTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
