package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that checks if the user has at least one of
// the specified roles. Admins pass every role check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range userRoles {
					if has == required || has == "admin" {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// RequirePatientSelf returns middleware for patient-scoped routes: staff and
// admin pass through, while patient sessions may only access their own
// records. paramName is the route parameter carrying the patient id.
func RequirePatientSelf(paramName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			for _, role := range RolesFromContext(ctx) {
				if role == "admin" || role == "staff" {
					return next(c)
				}
			}

			sessionPatient := PatientIDFromContext(ctx)
			if sessionPatient == "" {
				return echo.NewHTTPError(http.StatusForbidden, "patient session required")
			}
			if c.Param(paramName) != sessionPatient {
				return echo.NewHTTPError(http.StatusForbidden, "access restricted to own records")
			}
			return next(c)
		}
	}
}
