package orders

import (
	"github.com/grocerlink/commerce-router/models"
	"github.com/grocerlink/commerce-router/services"
	"github.com/grocerlink/commerce-router/utils"
)

// RouteOrderRequest is one cart to route across the provider catalog
type RouteOrderRequest struct {
	Items       []models.CartItem  `json:"items" validate:"required,min=1,dive"`
	Address     models.Address     `json:"address" validate:"required"`
	Preferences models.Preferences `json:"preferences"`
}

// Validate rejects structurally invalid carts before any provider is called
func (r *RouteOrderRequest) Validate() error {
	if err := utils.ValidateStruct(r); err != nil {
		return services.NewValidationError("invalid route order request", err).
			WithDetail("fields", utils.GetValidationFields(err))
	}
	return nil
}

// ConfirmOrderRequest places the order behind a routing decision.
// PaymentMethod is an opaque payment reference forwarded to the provider;
// it never appears in logs or events.
type ConfirmOrderRequest struct {
	ConfirmationToken string `json:"confirmation_token" validate:"required"`
	PaymentMethod     string `json:"payment_method"`
}

// Validate rejects requests without a confirmation token
func (r *ConfirmOrderRequest) Validate() error {
	if err := utils.ValidateStruct(r); err != nil {
		return services.NewValidationError("confirmation_token is required", err)
	}
	return nil
}

// ConfirmOrderResult reports where the order landed. FailoverFrom is set
// only when the primary failed and the order was placed with the alternative.
type ConfirmOrderResult struct {
	Success                  bool   `json:"success"`
	Provider                 string `json:"provider"`
	OrderID                  string `json:"order_id"`
	ProviderOrderID          string `json:"provider_order_id"`
	FailoverFrom             string `json:"failover_from,omitempty"`
	EstimatedDeliveryMinutes int    `json:"estimated_delivery_minutes"`
	Message                  string `json:"message"`
}

// CancelOrderRequest revokes a pending decision or a confirmed order
type CancelOrderRequest struct {
	ConfirmationToken string `json:"confirmation_token" validate:"required"`
}

// Validate rejects requests without a confirmation token
func (r *CancelOrderRequest) Validate() error {
	if err := utils.ValidateStruct(r); err != nil {
		return services.NewValidationError("confirmation_token is required", err)
	}
	return nil
}

// CancelOrderResult reports how the cancellation resolved
type CancelOrderResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
