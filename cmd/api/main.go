package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/cubecart/core/internal/access"
	"github.com/cubecart/core/internal/aws"
	"github.com/cubecart/core/internal/catalog"
	"github.com/cubecart/core/internal/credentials"
	"github.com/cubecart/core/internal/handlers"
	"github.com/cubecart/core/internal/logger"
	"github.com/cubecart/core/internal/metrics"
	"github.com/cubecart/core/internal/orders"
	"github.com/cubecart/core/internal/payment"
	"github.com/cubecart/core/internal/pricing"
	"github.com/cubecart/core/internal/token"
	"github.com/cubecart/core/internal/users"
	"github.com/cubecart/core/internal/validation"
)

const (
	defaultReservationTTL = 10 * time.Minute
	defaultTokenTTL       = 7 * 24 * time.Hour
	providerTimeout       = 15 * time.Second
)

type appConfig struct {
	mode             string
	jwtSecret        string
	stripeSecretKey  string
	usersTable       string
	catalogTable     string
	reservationTable string
	ordersTable      string
	queueURL         string
	metricsNamespace string
	currency         string
}

func loadConfig() appConfig {
	cfg := appConfig{
		mode:             os.Getenv("MODE"),
		jwtSecret:        os.Getenv("JWT_SECRET"),
		stripeSecretKey:  os.Getenv("STRIPE_SECRET_KEY"),
		usersTable:       os.Getenv("USERS_TABLE"),
		catalogTable:     os.Getenv("CATALOG_TABLE"),
		reservationTable: os.Getenv("RESERVATIONS_TABLE"),
		ordersTable:      os.Getenv("ORDERS_TABLE"),
		queueURL:         os.Getenv("RESERVATIONS_QUEUE_URL"),
		metricsNamespace: os.Getenv("METRICS_NAMESPACE"),
		currency:         os.Getenv("CURRENCY"),
	}
	if cfg.metricsNamespace == "" {
		cfg.metricsNamespace = "CubeCart"
	}
	if cfg.currency == "" {
		cfg.currency = "usd"
	}
	return cfg
}

func setupRouter(cfg appConfig, clients *aws.AWSClients, appLog *logger.Logger) (*gin.Engine, error) {
	tokens, err := token.NewService(cfg.jwtSecret)
	if err != nil {
		return nil, err
	}
	guard := access.NewGuard(tokens)
	validate := validation.New()

	userStore := users.NewStore(clients.DynamoDB, cfg.usersTable)
	catalogStore := catalog.NewStore(clients.DynamoDB, cfg.catalogTable, cfg.reservationTable)
	orderStore := orders.NewStore(clients.DynamoDB, cfg.ordersTable)
	machine := orders.NewStateMachine(orderStore, guard)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterAuthRoutes(r, handlers.AuthConfig{
		Log:      appLog,
		Users:    userStore,
		Vault:    credentials.NewVault(),
		Tokens:   tokens,
		Guard:    guard,
		Validate: validate,
		TokenTTL: defaultTokenTTL,
	})

	handlers.RegisterCheckoutRoutes(r, handlers.CheckoutConfig{
		Log:            appLog,
		Guard:          guard,
		Validate:       validate,
		Pricing:        pricing.NewEngine(catalogStore, cfg.currency),
		Stock:          catalogStore,
		Payments:       payment.NewBroker(cfg.stripeSecretKey, providerTimeout, appLog),
		Orders:         orderStore,
		Expiry:         aws.NewPublisher(clients.SQS, cfg.queueURL),
		Metrics:        metrics.NewEmitter(clients.CloudWatch, cfg.metricsNamespace, appLog),
		ReservationTTL: defaultReservationTTL,
	})

	handlers.RegisterOrdersRoutes(r, handlers.OrdersConfig{
		Log:      appLog,
		Guard:    guard,
		Validate: validate,
		Machine:  machine,
	})

	return r, nil
}

func main() {
	cfg := loadConfig()

	appLog, err := logger.New(cfg.mode)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer appLog.Sync()

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		appLog.Fatal("failed to init aws clients", "error", err)
	}

	r, err := setupRouter(cfg, clients, appLog)
	if err != nil {
		appLog.Fatal("failed to set up router", "error", err)
	}

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		addr := ":8080"
		appLog.Info("running local server", "addr", addr)
		if err := r.Run(addr); err != nil {
			appLog.Fatal("failed to run local server", "error", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
