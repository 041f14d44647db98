package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wholesale-storefront/pkg/db/models"
)

type orderResponse struct {
	ID               uuid.UUID           `json:"id"`
	UserID           uuid.UUID           `json:"user_id"`
	Status           string              `json:"status"`
	IsWholesale      bool                `json:"is_wholesale"`
	Subtotal         decimal.Decimal     `json:"subtotal"`
	TaxAmount        decimal.Decimal     `json:"tax_amount"`
	ShippingCost     decimal.Decimal     `json:"shipping_cost"`
	TotalAmount      decimal.Decimal     `json:"total_amount"`
	Currency         string              `json:"currency"`
	ShippingMethod   string              `json:"shipping_method"`
	PaymentMethod    string              `json:"payment_method"`
	PaymentReference *string             `json:"payment_reference,omitempty"`
	Items            []orderItemResponse `json:"items"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

type orderItemResponse struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"product_id"`
	VariantID    *uuid.UUID      `json:"variant_id,omitempty"`
	ProductName  string          `json:"product_name"`
	VariantSKU   *string         `json:"variant_sku,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

func newOrderResponse(order *models.Order) orderResponse {
	resp := orderResponse{
		ID:               order.ID,
		UserID:           order.UserID,
		Status:           order.Status.String(),
		IsWholesale:      order.IsWholesale,
		Subtotal:         order.Subtotal,
		TaxAmount:        order.TaxAmount,
		ShippingCost:     order.ShippingCost,
		TotalAmount:      order.TotalAmount,
		Currency:         order.Currency,
		ShippingMethod:   order.ShippingMethod,
		PaymentMethod:    order.PaymentMethod,
		PaymentReference: order.PaymentReference,
		Items:            make([]orderItemResponse, 0, len(order.Items)),
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ID:           item.ID,
			ProductID:    item.ProductID,
			VariantID:    item.VariantID,
			ProductName:  item.ProductName,
			VariantSKU:   item.VariantSKU,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			DiscountRate: item.DiscountRate,
			LineTotal:    item.LineTotal,
		})
	}
	return resp
}

func newOrderResponses(orders []models.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, newOrderResponse(&orders[i]))
	}
	return out
}

type cartItemResponse struct {
	ID        uuid.UUID  `json:"id"`
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func newCartItemResponse(item *models.CartItem) cartItemResponse {
	return cartItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		Quantity:  item.Quantity,
		UpdatedAt: item.UpdatedAt,
	}
}

type applicationResponse struct {
	ID                uuid.UUID  `json:"id"`
	UserID            uuid.UUID  `json:"user_id"`
	BusinessName      string     `json:"business_name"`
	TaxID             string     `json:"tax_id"`
	BusinessAddress   string     `json:"business_address"`
	Phone             string     `json:"phone"`
	Website           *string    `json:"website,omitempty"`
	Status            string     `json:"status"`
	TotalUnitsOrdered int64      `json:"total_units_ordered"`
	ReviewedAt        *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func newApplicationResponse(app *models.WholesaleApplication) applicationResponse {
	return applicationResponse{
		ID:                app.ID,
		UserID:            app.UserID,
		BusinessName:      app.BusinessName,
		TaxID:             app.TaxID,
		BusinessAddress:   app.BusinessAddress,
		Phone:             app.Phone,
		Website:           app.Website,
		Status:            app.Status.String(),
		TotalUnitsOrdered: app.TotalUnitsOrdered,
		ReviewedAt:        app.ReviewedAt,
		CreatedAt:         app.CreatedAt,
	}
}
