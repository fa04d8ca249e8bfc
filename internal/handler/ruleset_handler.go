package handler

import (
	"net/http"

	"taxtracker/internal/repository"
	"taxtracker/pkg/response"

	"github.com/gin-gonic/gin"
)

type RulesetHandler struct {
	rules repository.RulesetRepository
}

func NewRulesetHandler(rules repository.RulesetRepository) *RulesetHandler {
	return &RulesetHandler{rules: rules}
}

func (h *RulesetHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/rulesets", h.ListRulesets)
}

// ListRulesets returns the configured tax rulesets, newest tax year first
// @Summary      Tax rulesets
// @Tags         rulesets
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Ruleset}
// @Router       /api/rulesets [get]
func (h *RulesetHandler) ListRulesets(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.rules.List()))
}
