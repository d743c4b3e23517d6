package middleware

// identity.go holds helpers shared across middleware files. The rate
// limiter and response cache key on the requesting user when one is
// authenticated, falling back to "guest" for anonymous traffic.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// userID extracts the authenticated user identifier set by JWTAuth.
// Returns "guest" when the request carries no valid token.
func userID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return fmt.Sprintf("%.0f", v)
	case uint64:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	}
	return "guest"
}
