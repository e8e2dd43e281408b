package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Publisher wraps an SQS client and a queue URL.
type Publisher struct {
	SQS      SQSAPI
	QueueURL string
}

// NewPublisher returns a Publisher bound to a queue URL.
func NewPublisher(sqsClient SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		SQS:      sqsClient,
		QueueURL: queueURL,
	}
}

// Send sends messageBody (a JSON string) to the queue immediately.
// attributes are sent as string MessageAttributes. The checkout path only
// sends delayed expiry messages; the undelayed form is for publishers
// (such as payment confirmation events) that need delivery now.
func (p *Publisher) Send(ctx context.Context, messageBody string, attributes map[string]string) error {
	return p.SendDelayed(ctx, messageBody, attributes, 0)
}

// SendDelayed is Send with an SQS delivery delay in seconds (max 900 per
// SQS; the queue rejects larger values, we don't re-validate here).
func (p *Publisher) SendDelayed(ctx context.Context, messageBody string, attributes map[string]string, delaySeconds int32) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    &p.QueueURL,
		MessageBody: &messageBody,
	}
	if delaySeconds > 0 {
		input.DelaySeconds = delaySeconds
	}
	if len(attributes) > 0 {
		msgAttrs := map[string]sqstypes.MessageAttributeValue{}
		for k, v := range attributes {
			msgAttrs[k] = sqstypes.MessageAttributeValue{
				DataType:    awsString("String"),
				StringValue: &v,
			}
		}
		input.MessageAttributes = msgAttrs
	}

	_, err := p.SQS.SendMessage(ctx, input)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// awsString helper
func awsString(s string) *string { return &s }
