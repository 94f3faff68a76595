package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/banking/fraud-analysis/internal/datastore"
	"github.com/banking/fraud-analysis/internal/domain"
	"github.com/banking/fraud-analysis/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type FraudHandler struct {
	analysis *service.AnalysisService
	store    *datastore.Store
	logger   *zap.Logger
}

func NewFraudHandler(analysis *service.AnalysisService, store *datastore.Store, logger *zap.Logger) *FraudHandler {
	return &FraudHandler{
		analysis: analysis,
		store:    store,
		logger:   logger,
	}
}

// ListCustomers handles GET /api/customers
func (h *FraudHandler) ListCustomers(c echo.Context) error {
	ids, err := h.store.ListIDs(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to get customer list", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to retrieve customer list"})
	}
	return c.JSON(http.StatusOK, domain.CustomerList{Customers: ids, TotalCount: len(ids)})
}

// AnalyzeCustomer handles POST /api/analyze/:customer_id
func (h *FraudHandler) AnalyzeCustomer(c echo.Context) error {
	customerID := strings.TrimSpace(c.Param("customer_id"))

	report, err := h.analysis.AnalyzeCustomer(c.Request().Context(), customerID, c.QueryParam("context"))
	if err != nil {
		return h.writeError(c, err, customerID, "analysis failed due to technical error")
	}
	return c.JSON(http.StatusOK, report)
}

// CustomerSummary handles GET /api/customer/:customer_id/summary
func (h *FraudHandler) CustomerSummary(c echo.Context) error {
	customerID := strings.TrimSpace(c.Param("customer_id"))

	summary, err := h.store.Summarize(c.Request().Context(), customerID)
	if err != nil {
		return h.writeError(c, err, customerID, "failed to retrieve customer summary")
	}
	return c.JSON(http.StatusOK, summary)
}

// Chat handles POST /api/chat. Analysis failures are reported in the body with status 200.
func (h *FraudHandler) Chat(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	return c.JSON(http.StatusOK, h.analysis.Chat(c.Request().Context(), req))
}

// DataInfo handles GET /api/data/info
func (h *FraudHandler) DataInfo(c echo.Context) error {
	info, err := h.store.Info(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to get data info", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to retrieve data information"})
	}
	return c.JSON(http.StatusOK, info)
}

// ReloadData handles POST /api/data/reload
func (h *FraudHandler) ReloadData(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.store.Reload(ctx); err != nil {
		h.logger.Error("Data reload failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to reload data"})
	}

	ids, err := h.store.ListIDs(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to reload data"})
	}
	h.logger.Info("Customer data reloaded", zap.Int("customers", len(ids)))
	return c.JSON(http.StatusOK, map[string]any{"status": "reloaded", "total_customers": len(ids)})
}

// Health handles GET /api/health and GET /health
func (h *FraudHandler) Health(c echo.Context) error {
	status, err := h.analysis.Health(c.Request().Context())
	if err != nil {
		h.logger.Error("Health check failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, status)
	}
	return c.JSON(http.StatusOK, status)
}

// writeError maps domain errors to status codes; internal details stay in the log
func (h *FraudHandler) writeError(c echo.Context, err error, customerID, internalMsg string) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "customer ID is required"})
	case errors.Is(err, domain.ErrNotFound):
		h.logger.Warn("Customer not found", zap.String("customer_id", customerID))
		return c.JSON(http.StatusNotFound, map[string]string{"error": "customer " + customerID + " not found"})
	default:
		h.logger.Error("Request failed", zap.String("customer_id", customerID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": internalMsg})
	}
}

// RegisterRoutes registers the API routes
func (h *FraudHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/customers", h.ListCustomers)
	g.POST("/analyze/:customer_id", h.AnalyzeCustomer)
	g.GET("/customer/:customer_id/summary", h.CustomerSummary)
	g.POST("/chat", h.Chat)
	g.GET("/data/info", h.DataInfo)
	g.POST("/data/reload", h.ReloadData)
	g.GET("/health", h.Health)
}
