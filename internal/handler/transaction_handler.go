package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/eaglebank/insights-service/internal/service"
	"github.com/eaglebank/insights-service/shared/cqrs"
	"github.com/eaglebank/insights-service/shared/middleware"
	"github.com/eaglebank/insights-service/shared/models"
	"github.com/gin-gonic/gin"
)

// TransactionCommander defines the write-side operations used by TransactionHandler.
type TransactionCommander interface {
	SeedTransactions(context.Context, cqrs.SeedTransactionsCommand) (int, error)
}

// TransactionQuerier defines the read-side operations used by TransactionHandler.
type TransactionQuerier interface {
	ListTransactions(context.Context, cqrs.ListTransactionsQuery) ([]models.Transaction, error)
	Statistics(context.Context, cqrs.MonthQuery) (*models.Statistics, error)
	BarChart(context.Context, cqrs.MonthQuery) ([]models.BarChartEntry, error)
	PieChart(context.Context, cqrs.MonthQuery) ([]models.PieChartEntry, error)
	Combined(context.Context, cqrs.MonthQuery) (*models.CombinedView, error)
}

type TransactionHandler struct {
	commands TransactionCommander
	queries  TransactionQuerier
}

type ListTransactionsRequest struct {
	Month   string `form:"month"`
	Search  string `form:"search"`
	Page    *int   `form:"page" validate:"omitempty,min=1"`
	PerPage *int   `form:"perPage" validate:"omitempty,min=1"`
}

type MonthRequest struct {
	Month string `form:"month"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func NewTransactionHandler(commands TransactionCommander, queries TransactionQuerier) *TransactionHandler {
	return &TransactionHandler{commands: commands, queries: queries}
}

// RegisterRoutes mounts the API on r. seedGuards run in front of /initialize only.
func (h *TransactionHandler) RegisterRoutes(r gin.IRouter, seedGuards ...gin.HandlerFunc) {
	initialize := make([]gin.HandlerFunc, 0, len(seedGuards)+1)
	initialize = append(initialize, seedGuards...)
	r.GET("/initialize", append(initialize, h.Initialize)...)
	r.GET("/transactions", h.ListTransactions)
	r.GET("/statistics", h.Statistics)
	r.GET("/barchart", h.BarChart)
	r.GET("/piechart", h.PieChart)
	r.GET("/combined", h.Combined)
}

func (h *TransactionHandler) Initialize(c *gin.Context) {
	requestedBy, ok := middleware.GetSubject(c)
	if !ok {
		requestedBy = "anonymous"
	}

	_, err := h.commands.SeedTransactions(c.Request.Context(), cqrs.SeedTransactionsCommand{RequestedBy: requestedBy})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, MessageResponse{Message: "Database initialized successfully!"})
	case errors.Is(err, service.ErrAlreadySeeded):
		c.JSON(http.StatusOK, MessageResponse{Message: "Data already exists in the database."})
	default:
		middleware.RespondWithErrorDetail(c, http.StatusInternalServerError, "Error fetching data", service.Detail(err))
	}
}

func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	var req ListTransactionsRequest
	if !bindQuery(c, &req) {
		return
	}

	txs, err := h.queries.ListTransactions(c.Request.Context(), cqrs.ListTransactionsQuery{
		Month:   req.Month,
		Search:  req.Search,
		Page:    intOrZero(req.Page),
		PerPage: intOrZero(req.PerPage),
	})
	if err != nil {
		respondWithQueryError(c, err, "Error fetching transactions")
		return
	}
	c.JSON(http.StatusOK, txs)
}

func (h *TransactionHandler) Statistics(c *gin.Context) {
	var req MonthRequest
	if !bindQuery(c, &req) {
		return
	}

	stats, err := h.queries.Statistics(c.Request.Context(), cqrs.MonthQuery{Month: req.Month})
	if err != nil {
		respondWithQueryError(c, err, "Error fetching statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *TransactionHandler) BarChart(c *gin.Context) {
	var req MonthRequest
	if !bindQuery(c, &req) {
		return
	}

	bars, err := h.queries.BarChart(c.Request.Context(), cqrs.MonthQuery{Month: req.Month})
	if err != nil {
		respondWithQueryError(c, err, "Error fetching bar chart data")
		return
	}
	c.JSON(http.StatusOK, bars)
}

func (h *TransactionHandler) PieChart(c *gin.Context) {
	var req MonthRequest
	if !bindQuery(c, &req) {
		return
	}

	pie, err := h.queries.PieChart(c.Request.Context(), cqrs.MonthQuery{Month: req.Month})
	if err != nil {
		respondWithQueryError(c, err, "Error fetching pie chart data")
		return
	}
	c.JSON(http.StatusOK, pie)
}

func (h *TransactionHandler) Combined(c *gin.Context) {
	var req MonthRequest
	if !bindQuery(c, &req) {
		return
	}

	view, err := h.queries.Combined(c.Request.Context(), cqrs.MonthQuery{Month: req.Month})
	if err != nil {
		respondWithQueryError(c, err, "Error fetching combined data")
		return
	}
	c.JSON(http.StatusOK, view)
}

func bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		middleware.RespondWithErrorDetail(c, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return false
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return false
	}
	return true
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func respondWithQueryError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, service.ErrMissingParameter):
		middleware.RespondWithErrorDetail(c, http.StatusBadRequest, "Month is required", service.Detail(err))
	case errors.Is(err, service.ErrInvalidParameter):
		middleware.RespondWithErrorDetail(c, http.StatusBadRequest, "Invalid month", service.Detail(err))
	default:
		middleware.RespondWithErrorDetail(c, http.StatusInternalServerError, message, service.Detail(err))
	}
}
