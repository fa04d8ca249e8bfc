package handler

import (
	"context"
	"net/http"

	"taxtracker/internal/model"
	"taxtracker/internal/service"
	"taxtracker/pkg/pagination"
	"taxtracker/pkg/response"

	"github.com/gin-gonic/gin"
)

type RecordHandler struct {
	historyService service.HistoryService
	requireSession gin.HandlerFunc
}

func NewRecordHandler(historyService service.HistoryService, requireSession gin.HandlerFunc) *RecordHandler {
	return &RecordHandler{historyService: historyService, requireSession: requireSession}
}

func (h *RecordHandler) RegisterRoutes(router *gin.RouterGroup) {
	records := router.Group("/api/records")
	records.Use(h.requireSession)
	{
		records.GET("", h.ListRecords)
		records.GET("/summary", h.GetSummary)
		records.PATCH("/:id/paid", h.MarkPaid)
	}
	router.GET("/api/reminders", h.requireSession, h.ListReminders)
}

// ListRecords returns the user's saved tax records
// @Summary      Tax records
// @Tags         records
// @Produce      json
// @Security     BearerAuth
// @Param        month   query     string  false  "Month name"
// @Param        year    query     int     false  "Tax year"
// @Param        status  query     string  false  "paid or unpaid"
// @Param        page    query     int     false  "Page number"   default(1)
// @Param        limit   query     int     false  "Page size"     default(20)
// @Success      200     {object}  response.Response{data=pagination.Page[model.TaxRecord]}
// @Failure      400     {object}  response.Response
// @Failure      502     {object}  response.Response
// @Router       /api/records [get]
func (h *RecordHandler) ListRecords(c *gin.Context) {
	var filter service.RecordFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid query parameters: "+err.Error()))
		return
	}

	page, err := h.historyService.Records(c.Request.Context(), filter, pagination.Parse(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, page))
}

// GetSummary totals the user's records. source=remote returns the remote tax summary,
// source=income-expense the dashboard income and expense summary.
// @Summary      Records summary
// @Tags         records
// @Produce      json
// @Security     BearerAuth
// @Param        source  query     string  false  "local, remote or income-expense"
// @Success      200     {object}  response.Response{data=model.TaxSummary}
// @Failure      502     {object}  response.Response
// @Router       /api/records/summary [get]
func (h *RecordHandler) GetSummary(c *gin.Context) {
	var remote func(context.Context) (model.Fields, error)
	switch c.Query("source") {
	case "remote":
		remote = h.historyService.RemoteSummary
	case "income-expense":
		remote = h.historyService.IncomeExpenseSummary
	}
	if remote != nil {
		summary, err := remote(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
		return
	}

	summary, err := h.historyService.Summary(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// MarkPaid records payment of a tax record
// @Summary      Mark record paid
// @Tags         records
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Record ID"
// @Success      200  {object}  response.Response{data=model.TaxRecord}
// @Failure      404  {object}  response.Response
// @Failure      502  {object}  response.Response
// @Router       /api/records/{id}/paid [patch]
func (h *RecordHandler) MarkPaid(c *gin.Context) {
	record, err := h.historyService.MarkPaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, record))
}

// ListReminders
// @Summary      Reminders
// @Tags         reminders
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.RemindersResponse}
// @Failure      502  {object}  response.Response
// @Router       /api/reminders [get]
func (h *RecordHandler) ListReminders(c *gin.Context) {
	reminders, err := h.historyService.Reminders(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, reminders))
}
