package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/0SilentFox0/fit-app/internal/handler"
	"github.com/0SilentFox0/fit-app/internal/middleware"
	"github.com/0SilentFox0/fit-app/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check, used by load balancers and
// monitoring to verify that the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes.
// Unauthenticated operations live under /v1/auth, while protected
// endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Issues a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout works without JWT middleware: a refresh_token in the body
	// terminates that session, a bearer with no body token terminates all.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleTrainer, model.RoleClient),
	)
	auth.GET("/me", a.Me)
}

// RegisterTrainer registers TRAINER-scoped endpoints under /v1/trainer.
// All routes require a valid JWT and the TRAINER role.
func RegisterTrainer(e *echo.Echo, t *handler.TrainerHandler, jwtSecret string) {
	g := e.Group(
		"/v1/trainer",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleTrainer),
	)

	// ---- Availability ----
	g.POST("/availability", t.PublishAvailability)
	g.DELETE("/availability/:id", t.CancelAvailability)

	// ---- Calendar ----
	g.GET("/calendar/events", t.CalendarEvents)
	g.GET("/calendar/requests", t.PendingRequests)
	g.POST("/calendar/requests/:id/respond", t.Respond)

	// ---- Roster ----
	g.GET("/clients", t.Clients)
}

// RegisterClient registers CLIENT-facing booking endpoints. Slot
// browsing is open to both roles; booking mutations require CLIENT,
// except cancellation, which either participant may perform.
func RegisterClient(e *echo.Echo, cl *handler.ClientHandler, p *handler.ProgressHandler, jwtSecret string, browseCache echo.MiddlewareFunc) {
	any := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleTrainer, model.RoleClient),
	)
	if browseCache != nil {
		any.GET("/trainers/:id/slots", cl.TrainerSlots, browseCache)
	} else {
		any.GET("/trainers/:id/slots", cl.TrainerSlots)
	}
	any.GET("/bookings", cl.MyBookings)
	any.GET("/bookings/:id", cl.GetBooking)
	any.DELETE("/bookings/:id", cl.CancelBooking)

	client := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleClient),
	)
	client.POST("/bookings/requests", cl.CreateRequest)
	client.GET("/bookings/requests", cl.MyRequests)

	// ---- Progress ----
	client.GET("/client/progress", p.Overview)
	client.POST("/client/progress", p.Record)
}
