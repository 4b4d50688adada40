package router

import (
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// Handlers are the HTTP handlers the storefront API mounts
type Handlers struct {
	Checkout  *handler.CheckoutHandler
	Cart      *handler.CartHandler
	Orders    *handler.OrderHandler
	Returns   *handler.ReturnHandler
	Inventory *handler.InventoryHandler
	Loyalty   *handler.LoyaltyHandler
	Outbox    *handler.OutboxHandler
	Jobs      *handler.JobsHandler
	Session   *handler.SessionHandler
	System    *handler.SystemHandler
}

// RegisterStorefront mounts every storefront route group on r. Customer-facing
// groups only require a caller; ownership and role rules for individual
// orders and returns are enforced by the services. Inventory and /admin are
// staff only.
func RegisterStorefront(r *Router, h Handlers) {
	checkout := NewGroup("/checkout", middleware.RequireAuth())
	checkout.POST("", h.Checkout.Checkout)

	cart := NewGroup("/cart", middleware.RequireAuth())
	cart.GET("", h.Cart.Get).
		DELETE("", h.Cart.Clear).
		POST("/items", h.Cart.AddItem).
		PUT("/items/:product_id", h.Cart.UpdateItem).
		DELETE("/items/:product_id", h.Cart.RemoveItem).
		POST("/coupon", h.Cart.ApplyCoupon).
		DELETE("/coupon", h.Cart.RemoveCoupon).
		PUT("/shipping", h.Cart.SetShipping)

	orders := NewGroup("/orders", middleware.RequireAuth())
	orders.GET("", h.Orders.List).
		GET("/:id", h.Orders.Get).
		GET("/:id/history", h.Orders.History).
		POST("/:id/confirm", h.Orders.Confirm).
		POST("/:id/pay", h.Orders.Pay).
		POST("/:id/fulfill", h.Orders.Fulfill).
		POST("/:id/ship", h.Orders.Ship).
		POST("/:id/deliver", h.Orders.Deliver).
		POST("/:id/complete", h.Orders.Complete).
		POST("/:id/cancel", h.Orders.Cancel).
		POST("/:id/reset", h.Orders.Reset).
		POST("/:id/returns", h.Returns.Request).
		GET("/:id/returns", h.Returns.ListForOrder)

	returns := NewGroup("/returns", middleware.RequireAuth())
	returns.GET("/:id", h.Returns.Get).
		POST("/:id/approve", h.Returns.Approve).
		POST("/:id/reject", h.Returns.Reject).
		POST("/:id/refund", h.Returns.Refund)

	inventory := NewGroup("/inventory", middleware.RequireStaff())
	inventory.GET("/:product_id", h.Inventory.Get).
		POST("/:product_id/adjust", h.Inventory.Adjust)

	loyalty := NewGroup("/loyalty", middleware.RequireAuth())
	loyalty.GET("", h.Loyalty.Get).
		POST("/redeem", h.Loyalty.Redeem)

	session := NewGroup("/auth", middleware.RequireAuth())
	session.POST("/logout", h.Session.Logout)

	admin := NewGroup("/admin", middleware.RequireStaff())
	admin.Sub("/outbox").
		GET("/dead", h.Outbox.DeadLetters).
		GET("/stats", h.Outbox.Stats).
		POST("/dead/retry", h.Outbox.RetryAll).
		POST("/:id/retry", h.Outbox.Retry)
	admin.Sub("/loyalty").
		GET("/:user_id", h.Loyalty.GetForUser).
		POST("/:user_id/adjust", h.Loyalty.Adjust)
	admin.Sub("/users", middleware.RequireAnyRole(shared.RoleAdmin, shared.RoleManager)).
		POST("/:user_id/revoke-tokens", h.Session.RevokeUser)
	admin.Sub("/jobs", middleware.RequireAnyRole(shared.RoleAdmin, shared.RoleManager)).
		GET("", h.Jobs.List).
		POST("/:name/run", h.Jobs.Run)

	system := NewGroup("/system")
	system.GET("/info", h.System.Info).
		GET("/health", h.System.Health)

	r.Register(checkout, cart, orders, returns, inventory, loyalty, session, admin, system)
}
