package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/wholesale-storefront/api/middleware"
	pkgerrors "github.com/angelmondragon/wholesale-storefront/pkg/errors"
)

func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return userID, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable")
}
