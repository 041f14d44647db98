package controllers

import (
	"net/http"

	"github.com/angelmondragon/wholesale-storefront/api/responses"
	"github.com/angelmondragon/wholesale-storefront/api/validators"
	"github.com/angelmondragon/wholesale-storefront/internal/wholesale"
	"github.com/angelmondragon/wholesale-storefront/pkg/logger"
)

type wholesaleApplyRequest struct {
	BusinessName    string  `json:"business_name" validate:"required,max=200"`
	TaxID           string  `json:"tax_id" validate:"required,max=64"`
	BusinessAddress string  `json:"business_address" validate:"required,max=500"`
	Phone           string  `json:"phone" validate:"required,max=32"`
	Website         *string `json:"website,omitempty" validate:"omitempty,url"`
}

// WholesaleApply submits the caller's wholesale application.
func WholesaleApply(svc wholesale.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("wholesale service"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload wholesaleApplyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		app, err := svc.Apply(r.Context(), userID, wholesale.ApplyInput{
			BusinessName:    validators.SanitizeString(payload.BusinessName, 200),
			TaxID:           validators.SanitizeString(payload.TaxID, 64),
			BusinessAddress: validators.SanitizeString(payload.BusinessAddress, 500),
			Phone:           validators.SanitizeString(payload.Phone, 32),
			Website:         payload.Website,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newApplicationResponse(app))
	}
}

func WholesaleMyApplication(svc wholesale.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("wholesale service"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		app, err := svc.GetApplication(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newApplicationResponse(app))
	}
}
