package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wholesale-storefront/api/responses"
	"github.com/angelmondragon/wholesale-storefront/api/validators"
	"github.com/angelmondragon/wholesale-storefront/internal/checkout"
	"github.com/angelmondragon/wholesale-storefront/pkg/logger"
)

type checkoutRequest struct {
	ShippingMethod   string          `json:"shipping_method" validate:"required,max=64"`
	ShippingCost     decimal.Decimal `json:"shipping_cost" validate:"money"`
	PaymentMethod    string          `json:"payment_method" validate:"required,max=64"`
	PaymentReference *string         `json:"payment_reference,omitempty" validate:"omitempty,max=255"`
}

// Checkout converts the caller's cart into an order.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("checkout service"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.PlaceOrder(r.Context(), userID, checkout.PlaceOrderInput{
			ShippingMethod:   payload.ShippingMethod,
			ShippingCost:     payload.ShippingCost,
			PaymentMethod:    payload.PaymentMethod,
			PaymentReference: payload.PaymentReference,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}
