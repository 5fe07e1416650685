package middleware

import (
	"net/http"

	"github.com/shami987/kigali-bn/api/responses"
	"github.com/shami987/kigali-bn/pkg/enums"
	pkgerrors "github.com/shami987/kigali-bn/pkg/errors"
	"github.com/shami987/kigali-bn/pkg/logger"
)

// RequireFleetMutator limits the route to roles allowed to change device state.
func RequireFleetMutator(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireRole(logg, "fleet mutation requires an elevated role", enums.UserRole.CanMutateFleet)
}

// RequireDeviceDeleter limits the route to roles allowed to delete devices.
func RequireDeviceDeleter(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireRole(logg, "device deletion requires the admin role", enums.UserRole.CanDeleteDevices)
}

func requireRole(logg *logger.Logger, message string, allowed func(enums.UserRole) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, err := enums.ParseUserRole(RoleFromContext(r.Context()))
			if err != nil || !allowed(role) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, message))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
