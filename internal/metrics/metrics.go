package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/cubecart/core/internal/aws"
	"github.com/cubecart/core/internal/logger"
)

// Metric names emitted from the checkout path.
const (
	MetricPaymentIntentCreated = "PaymentIntentCreated"
	MetricProviderError        = "ProviderError"
	MetricInsufficientStock    = "InsufficientStock"
	MetricOversellPrevented    = "OversellPrevented"
	MetricReservationExpired   = "ReservationExpired"
)

// Emitter pushes counters to CloudWatch. Emission is best-effort: a
// metrics failure never fails the request that produced it.
type Emitter struct {
	client    aws.CloudWatchAPI
	namespace string
	log       *logger.Logger
	nowFunc   func() time.Time
}

func NewEmitter(client aws.CloudWatchAPI, namespace string, log *logger.Logger) *Emitter {
	return &Emitter{
		client:    client,
		namespace: namespace,
		log:       log.With("component", "metrics"),
		nowFunc:   time.Now,
	}
}

// Count emits a count-of-one datapoint for name.
func (e *Emitter) Count(ctx context.Context, name string) {
	if e == nil || e.client == nil {
		return
	}
	now := e.nowFunc()
	one := 1.0
	input := &cloudwatch.PutMetricDataInput{
		Namespace: &e.namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: &name,
				Timestamp:  &now,
				Value:      &one,
				Unit:       cwtypes.StandardUnitCount,
			},
		},
	}
	if _, err := e.client.PutMetricData(ctx, input); err != nil {
		e.log.Warn("put metric failed", "metric", name, "error", err)
	}
}
