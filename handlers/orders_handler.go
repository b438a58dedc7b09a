package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/grocerlink/commerce-router/models"
	"github.com/grocerlink/commerce-router/services/orders"
	"github.com/grocerlink/commerce-router/utils"
)

// OrderService defines the order operations the HTTP layer depends on
type OrderService interface {
	RouteOrder(ctx context.Context, req *orders.RouteOrderRequest) (*models.RoutingDecision, error)
	ConfirmOrder(ctx context.Context, req *orders.ConfirmOrderRequest) (*orders.ConfirmOrderResult, error)
	CancelOrder(ctx context.Context, req *orders.CancelOrderRequest) (*orders.CancelOrderResult, error)
}

// OrdersHandler exposes the routing pipeline over HTTP. Handlers stay thin:
// decode, delegate, map the classified error. Request bodies are never
// logged; they carry addresses and payment references.
type OrdersHandler struct {
	service OrderService
	logger  *zap.Logger
}

// NewOrdersHandler creates a new OrdersHandler
func NewOrdersHandler(service OrderService, logger *zap.Logger) *OrdersHandler {
	return &OrdersHandler{
		service: service,
		logger:  logger,
	}
}

// HandleRouteOrder handles POST /api/v1/orders/route
func (h *OrdersHandler) HandleRouteOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.RouteOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	decision, err := h.service.RouteOrder(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("route order handled",
		zap.String("http_request_id", chimiddleware.GetReqID(r.Context())),
		zap.String("request_id", decision.RequestID),
		zap.String("primary", decision.Primary.ProviderID))

	if err := utils.WriteOK(w, decision); err != nil {
		h.logger.Error("failed to write route order response", zap.Error(err))
	}
}

// HandleConfirmOrder handles POST /api/v1/orders/confirm
func (h *OrdersHandler) HandleConfirmOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.ConfirmOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.ConfirmOrder(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("confirm order handled",
		zap.String("http_request_id", chimiddleware.GetReqID(r.Context())),
		zap.String("order_id", result.OrderID),
		zap.String("provider", result.Provider))

	if err := utils.WriteOK(w, result); err != nil {
		h.logger.Error("failed to write confirm order response", zap.Error(err))
	}
}

// HandleCancelOrder handles POST /api/v1/orders/cancel
func (h *OrdersHandler) HandleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.CancelOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.CancelOrder(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, result); err != nil {
		h.logger.Error("failed to write cancel order response", zap.Error(err))
	}
}

// decode parses the JSON body, answering 400 on malformed input
func (h *OrdersHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("http_request_id", chimiddleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "request body is not valid JSON")
		return false
	}
	return true
}
