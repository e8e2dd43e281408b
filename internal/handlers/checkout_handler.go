package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cubecart/core/internal/access"
	"github.com/cubecart/core/internal/apperr"
	"github.com/cubecart/core/internal/catalog"
	"github.com/cubecart/core/internal/logger"
	"github.com/cubecart/core/internal/metrics"
	"github.com/cubecart/core/internal/money"
	"github.com/cubecart/core/internal/orders"
	"github.com/cubecart/core/internal/payment"
	"github.com/cubecart/core/internal/pricing"
	"github.com/cubecart/core/internal/validation"
)

// SQS caps DelaySeconds at 15 minutes.
const maxDelaySeconds = 900

// Pricer recomputes totals from the catalog.
type Pricer interface {
	ComputeAuthoritativeTotal(ctx context.Context, lines []pricing.CartLine) (*pricing.AuthoritativeTotal, error)
}

// StockReserver is the slice of the catalog store the checkout path needs.
type StockReserver interface {
	Reserve(ctx context.Context, lines []catalog.Line, ttl time.Duration) (*catalog.Reservation, error)
	Release(ctx context.Context, reservationID string) error
}

// PaymentAuthorizer creates authorizations with the external processor.
type PaymentAuthorizer interface {
	CreateAuthorization(ctx context.Context, total money.Money, meta payment.Metadata, idempotencyKey string) (*payment.Authorization, error)
}

// OrderWriter persists the order snapshot taken at authorization time.
type OrderWriter interface {
	Create(ctx context.Context, order orders.Order) error
}

// ExpiryScheduler enqueues delayed reservation-expiry messages.
type ExpiryScheduler interface {
	SendDelayed(ctx context.Context, messageBody string, attributes map[string]string, delaySeconds int32) error
}

// CheckoutConfig wires the payment-intent endpoint.
type CheckoutConfig struct {
	Log            *logger.Logger
	Guard          *access.Guard
	Validate       *validatorv10.Validate
	Pricing        Pricer
	Stock          StockReserver
	Payments       PaymentAuthorizer
	Orders         OrderWriter
	Expiry         ExpiryScheduler
	Metrics        *metrics.Emitter
	ReservationTTL time.Duration
}

// RegisterCheckoutRoutes mounts the checkout endpoint. Authentication is
// optional here: guests may check out, but a presented token must verify.
func RegisterCheckoutRoutes(r *gin.Engine, cfg CheckoutConfig) {
	r.POST("/payment-intents", createPaymentIntentHandler(cfg))
}

// expiryMessage is the body of a delayed reservation-expiry message. The
// worker decodes the same shape.
type expiryMessage struct {
	ReservationID string `json:"reservation_id"`
}

// createPaymentIntentHandler runs the checkout pipeline: bind, identify,
// price, reserve, authorize, schedule expiry, persist the order snapshot.
// Any failure after the reservation releases it, so no provider failure
// can strand stock.
func createPaymentIntentHandler(cfg CheckoutConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.CreatePaymentIntentRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}
		ctx := c.Request.Context()

		// A missing token is fine; a token that fails verification is not.
		claims, _, err := cfg.Guard.Identify(c.Request.Header)
		if err != nil {
			respondError(c, cfg.Log, err)
			return
		}

		cartLines := make([]pricing.CartLine, len(req.Items))
		for i, it := range req.Items {
			cartLines[i] = pricing.CartLine{ProductID: it.ProductID, Qty: it.Qty}
		}

		total, err := cfg.Pricing.ComputeAuthoritativeTotal(ctx, cartLines)
		if err != nil {
			if apperr.IsKind(err, apperr.KindInsufficientStock) {
				cfg.Metrics.Count(ctx, metrics.MetricInsufficientStock)
			}
			respondError(c, cfg.Log, err)
			return
		}

		stockLines := make([]catalog.Line, len(total.Lines))
		for i, vl := range total.Lines {
			stockLines[i] = catalog.Line{ProductID: vl.ProductID, Qty: vl.Qty}
		}
		res, err := cfg.Stock.Reserve(ctx, stockLines, cfg.ReservationTTL)
		if err != nil {
			if errors.Is(err, catalog.ErrInsufficientStock) {
				// Pricing saw enough stock but the conditional write lost the
				// race. The oversell was stopped at the storage layer.
				cfg.Metrics.Count(ctx, metrics.MetricOversellPrevented)
				respondError(c, cfg.Log, apperr.Wrap(apperr.KindInsufficientStock, err, "stock changed during checkout"))
				return
			}
			respondError(c, cfg.Log, apperr.Wrap(apperr.KindInternal, err, "could not reserve stock"))
			return
		}

		idemKey := c.GetHeader("Idempotency-Key")
		if idemKey == "" {
			idemKey = uuid.NewString()
		}

		refs := make([]payment.CartRef, len(total.Lines))
		for i, vl := range total.Lines {
			refs[i] = payment.CartRef{ID: vl.ProductID, Qty: vl.Qty}
		}
		meta := payment.Metadata{
			ShippingName:    req.ShippingName,
			ShippingAddress: formatAddress(req.ShippingAddress),
			CartLines:       refs,
		}

		auth, err := cfg.Payments.CreateAuthorization(ctx, total.Total, meta, idemKey)
		if err != nil {
			cfg.Metrics.Count(ctx, metrics.MetricProviderError)
			cfg.releaseReservation(ctx, res.ReservationID)
			respondError(c, cfg.Log, err)
			return
		}

		if err := cfg.scheduleExpiry(ctx, res.ReservationID); err != nil {
			cfg.releaseReservation(ctx, res.ReservationID)
			respondError(c, cfg.Log, apperr.Wrap(apperr.KindInternal, err, "could not schedule reservation expiry"))
			return
		}

		order := orders.Order{
			OrderID:           uuid.NewString(),
			OwnerID:           claims.SubjectID(),
			OwnerEmail:        claims.Email,
			Items:             snapshotItems(total.Lines),
			TotalCents:        total.Total.Amount,
			Currency:          total.Total.Currency,
			PaymentStatus:     orders.PaymentPending,
			PaymentMethod:     "card",
			ProviderReference: auth.ProviderReference,
			ShippingAddress: orders.ShippingAddress{
				Street:  req.ShippingAddress.Street,
				City:    req.ShippingAddress.City,
				State:   req.ShippingAddress.State,
				ZipCode: req.ShippingAddress.ZipCode,
				Country: req.ShippingAddress.Country,
				Phone:   req.ShippingAddress.Phone,
			},
			OrderStatus: orders.StatusPending,
		}
		if err := cfg.Orders.Create(ctx, order); err != nil {
			// The intent exists but the client never receives its secret,
			// so it cannot be confirmed. Release the stock and fail.
			cfg.releaseReservation(ctx, res.ReservationID)
			respondError(c, cfg.Log, apperr.Wrap(apperr.KindInternal, err, "could not persist order"))
			return
		}

		cfg.Metrics.Count(ctx, metrics.MetricPaymentIntentCreated)
		cfg.Log.Info("payment intent created",
			"order_id", order.OrderID,
			"reservation_id", res.ReservationID,
			"amount_cents", total.Total.Amount,
		)
		c.JSON(http.StatusOK, gin.H{"clientSecret": auth.ClientSecret})
	}
}

func (cfg CheckoutConfig) releaseReservation(ctx context.Context, reservationID string) {
	if err := cfg.Stock.Release(ctx, reservationID); err != nil {
		cfg.Log.Error("could not release reservation", "reservation_id", reservationID, "error", err)
	}
}

func (cfg CheckoutConfig) scheduleExpiry(ctx context.Context, reservationID string) error {
	body, err := json.Marshal(expiryMessage{ReservationID: reservationID})
	if err != nil {
		return err
	}
	delay := int32(cfg.ReservationTTL / time.Second)
	if delay > maxDelaySeconds {
		delay = maxDelaySeconds
	}
	return cfg.Expiry.SendDelayed(ctx, string(body), map[string]string{
		"message_type": "reservation_expiry",
	}, delay)
}

func snapshotItems(lines []pricing.ValidatedLine) []orders.LineItem {
	items := make([]orders.LineItem, len(lines))
	for i, vl := range lines {
		items[i] = orders.LineItem{
			ProductID:  vl.ProductID,
			Name:       vl.Name,
			Image:      vl.Image,
			PriceCents: vl.UnitPrice.Amount,
			Qty:        vl.Qty,
		}
	}
	return items
}

func formatAddress(a validation.ShippingAddressInput) string {
	return fmt.Sprintf("%s, %s, %s %s, %s", a.Street, a.City, a.State, a.ZipCode, a.Country)
}
