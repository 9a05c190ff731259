package http

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	middleware "surplus-relay.com/surplus-relay/internal/http/middlewares"
	"surplus-relay.com/surplus-relay/pkg/constants"
)

func Register(e *echo.Echo, h *Handler, rateLimitPerMinute int) {
	e.Use(middleware.ActorIdentity())
	e.Use(middleware.RateLimiter(rateLimitPerMinute, time.Minute))

	donor := middleware.RequireRole(constants.RoleDonor)
	recipient := middleware.RequireRole(constants.RoleRecipient)
	carrier := middleware.RequireRole(constants.RoleCarrier)
	anyRole := middleware.RequireRole(constants.RoleDonor, constants.RoleRecipient, constants.RoleCarrier)

	e.POST("/items", h.CreateItem, donor)
	e.GET("/items", h.ListItems)
	e.GET("/items/:id", h.GetItem)
	e.POST("/items/:id/claim", h.ClaimItem, recipient)
	e.POST("/items/:id/accept", h.AcceptClaim, donor)
	e.POST("/items/:id/reject", h.RejectClaim, donor)
	e.POST("/items/:id/expire", h.ExpireItem, donor)
	e.POST("/items/:id/direct-deliver", h.DirectDeliver, donor)
	e.POST("/items/:id/confirm-receipt", h.ConfirmReceipt, recipient)
	e.POST("/items/:id/feedback", h.AddFeedback, recipient)
	e.GET("/items/:id/delivery", h.DeliveryRecord)

	e.GET("/tasks/:id", h.GetTask)
	e.POST("/tasks/:id/assign", h.AssignCarrier, carrier)
	e.POST("/tasks/:id/pickup", h.MarkPickedUp, carrier)
	e.POST("/tasks/:id/deliver", h.MarkDelivered, carrier)
	e.POST("/tasks/:id/release", h.ReleaseCarrier, carrier)

	e.GET("/carriers/:id/stats", h.CarrierStats)
	e.GET("/carriers/:id/tasks", h.CarrierTasks)

	e.GET("/notifications", h.Notifications, anyRole)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
