package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/cubecart/core/internal/aws"
	"github.com/cubecart/core/internal/catalog"
	"github.com/cubecart/core/internal/logger"
	"github.com/cubecart/core/internal/metrics"
)

func main() {
	appLog, err := logger.New(os.Getenv("MODE"))
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer appLog.Sync()

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		appLog.Fatal("failed to init aws clients", "error", err)
	}

	namespace := os.Getenv("METRICS_NAMESPACE")
	if namespace == "" {
		namespace = "CubeCart"
	}
	store := catalog.NewStore(clients.DynamoDB, os.Getenv("CATALOG_TABLE"), os.Getenv("RESERVATIONS_TABLE"))
	p := NewProcessor(store, metrics.NewEmitter(clients.CloudWatch, namespace, appLog), appLog)

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if os.Getenv("RUN_LOCAL") == "true" {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			body = `{"reservation_id":"local-res-1"}`
		}
		event := events.SQSEvent{Records: []events.SQSMessage{{Body: body}}}
		if err := p.Handle(context.Background(), event); err != nil {
			appLog.Fatal("local handler error", "error", err)
		}
		return
	}

	lambda.Start(p.Handle)
}
