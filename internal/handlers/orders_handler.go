package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/cubecart/core/internal/access"
	"github.com/cubecart/core/internal/apperr"
	"github.com/cubecart/core/internal/logger"
	"github.com/cubecart/core/internal/orders"
	"github.com/cubecart/core/internal/validation"
)

// OrdersConfig wires the order read and transition endpoints.
type OrdersConfig struct {
	Log      *logger.Logger
	Guard    *access.Guard
	Validate *validatorv10.Validate
	Machine  *orders.StateMachine
}

// RegisterOrdersRoutes mounts the order endpoints. Every one of them
// requires a verified identity; the state machine applies the finer
// owner-or-admin and admin-only rules itself.
func RegisterOrdersRoutes(r *gin.Engine, cfg OrdersConfig) {
	g := r.Group("/orders", cfg.Guard.RequireAuth())
	g.GET("", listOrdersHandler(cfg))
	g.GET("/:id", getOrderHandler(cfg))
	g.PUT("/:id", updateOrderStatusHandler(cfg))
}

func listOrdersHandler(cfg OrdersConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := access.ClaimsFrom(c)
		if !ok {
			respondError(c, cfg.Log, apperr.New(apperr.KindUnauthenticated, "authentication required"))
			return
		}

		list, err := cfg.Machine.ListFor(c.Request.Context(), claims)
		if err != nil {
			respondError(c, cfg.Log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": list})
	}
}

func getOrderHandler(cfg OrdersConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := access.ClaimsFrom(c)
		if !ok {
			respondError(c, cfg.Log, apperr.New(apperr.KindUnauthenticated, "authentication required"))
			return
		}

		order, err := cfg.Machine.GetFor(c.Request.Context(), c.Param("id"), claims)
		if err != nil {
			respondError(c, cfg.Log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": order})
	}
}

func updateOrderStatusHandler(cfg OrdersConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.UpdateOrderStatusRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}

		claims, ok := access.ClaimsFrom(c)
		if !ok {
			respondError(c, cfg.Log, apperr.New(apperr.KindUnauthenticated, "authentication required"))
			return
		}

		order, err := cfg.Machine.Transition(c.Request.Context(), c.Param("id"), req.Status, claims)
		if err != nil {
			respondError(c, cfg.Log, err)
			return
		}

		cfg.Log.Info("order status updated",
			"order_id", order.OrderID,
			"status", order.OrderStatus,
			"actor", claims.SubjectID(),
		)
		c.JSON(http.StatusOK, gin.H{"order": order})
	}
}
