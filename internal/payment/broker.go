package payment

import (
	"context"
	"encoding/json"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/cubecart/core/internal/apperr"
	"github.com/cubecart/core/internal/logger"
	"github.com/cubecart/core/internal/money"
)

// intentCreator is the single provider call the broker makes. The concrete
// implementation is Stripe's payment-intent client; tests inject fakes.
type intentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// CartRef is the compact correlation shape attached to an authorization:
// just opaque ids and quantities, never client prices.
type CartRef struct {
	ID  string `json:"id"`
	Qty int64  `json:"q"`
}

// Metadata is the correlation metadata carried on an authorization so the
// eventual confirmation step can reconcile it with its originating cart.
type Metadata struct {
	ShippingName    string
	ShippingAddress string
	CartLines       []CartRef
}

// Authorization is the provider's answer to a create call. It is not proof
// of payment completion.
type Authorization struct {
	ProviderReference string
	ClientSecret      string
	AmountMinorUnits  int64
	Currency          string
}

// Broker creates payment authorizations with the external processor. It
// never retries on its own: the creation call is not idempotent without a
// key, so retry safety is the caller's choice via idempotencyKey.
type Broker struct {
	intents intentCreator
	timeout time.Duration
	log     *logger.Logger
}

// NewBroker builds a Broker over the Stripe API using the given secret key.
func NewBroker(apiKey string, timeout time.Duration, log *logger.Logger) *Broker {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return newBroker(sc.PaymentIntents, timeout, log)
}

func newBroker(intents intentCreator, timeout time.Duration, log *logger.Logger) *Broker {
	return &Broker{
		intents: intents,
		timeout: timeout,
		log:     log.With("component", "payment"),
	}
}

// CreateAuthorization sends one authorization request for the given
// server-computed amount. The call is bounded by the broker timeout and
// surfaces a provider failure kind instead of hanging. idempotencyKey is
// forwarded to the provider so callers can safely re-issue the same intent.
func (b *Broker) CreateAuthorization(ctx context.Context, total money.Money, meta Metadata, idempotencyKey string) (*Authorization, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(total.Amount),
		Currency: stripe.String(total.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	params.AddMetadata("shipping_name", meta.ShippingName)
	if meta.ShippingAddress != "" {
		params.AddMetadata("shipping_address", meta.ShippingAddress)
	}
	if len(meta.CartLines) > 0 {
		raw, err := json.Marshal(meta.CartLines)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "marshal cart metadata")
		}
		params.AddMetadata("cart_items", string(raw))
	}

	pi, err := b.intents.New(params)
	if err != nil {
		b.log.Warn("payment intent creation failed", "amount", total.Amount, "error", err)
		return nil, apperr.Wrap(apperr.KindProvider, err, "payment provider error")
	}

	b.log.Info("payment intent created", "reference", pi.ID, "amount", total.Amount, "currency", total.Currency)
	return &Authorization{
		ProviderReference: pi.ID,
		ClientSecret:      pi.ClientSecret,
		AmountMinorUnits:  total.Amount,
		Currency:          total.Currency,
	}, nil
}
