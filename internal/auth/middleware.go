package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const claimsContextKey = "auth.claims"

// BearerMiddleware enforces bearer-token authentication on REST routes.
// When required is false it still parses a token if one is present so
// handlers can log the caller, but never rejects.
func BearerMiddleware(svc *Service, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				if required {
					return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
				}
				return next(c)
			}

			claims, err := svc.ValidateToken(tokenString, TypeBearer)
			if err != nil {
				if required {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid bearer token")
				}
				return next(c)
			}

			c.Set(claimsContextKey, claims)
			return next(c)
		}
	}
}

// ClaimsFrom returns the authenticated claims for the request, if any.
func ClaimsFrom(c echo.Context) (*Claims, bool) {
	claims, ok := c.Get(claimsContextKey).(*Claims)
	return claims, ok
}
