package router

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/roaddasher/dasher/internal/dispatch"
	"github.com/roaddasher/dasher/internal/logger"
	"github.com/roaddasher/dasher/internal/middleware"
)

func NewRouter(h *dispatch.Handler, jwtSecret []byte) chi.Router {
	r := chi.NewRouter()

	r.Use(logger.WithLogging)
	r.Use(chiMiddleware.Recoverer)

	r.Use(middleware.GzipHandler)

	r.Post("/auth/facebook", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTMiddleware(jwtSecret))

		r.Post("/auth/logout", h.Logout)

		r.Get("/orders/available", h.AvailableOrders)
		r.Get("/orders/current", h.CurrentOrder)
		r.Post("/orders/accept", h.AcceptOrder)
		r.Post("/orders/reject", h.RejectOrder)
		r.Post("/orders/status", h.UpdateOrderStatus)
		r.Get("/orders/history", h.OrderHistory)

		r.Get("/earnings/today", h.TodayEarnings)
		r.Get("/earnings/weekly", h.WeeklyEarnings)
		r.Get("/earnings/history", h.EarningsHistory)

		r.Post("/driver/status", h.UpdateDriverStatus)
		r.Post("/driver/location", h.UpdateDriverLocation)
	})

	return r
}
