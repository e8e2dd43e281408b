package orders

import "time"

// Order statuses (fulfilment axis)
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// Payment statuses (independent axis)
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// LineItem is a frozen copy of a validated cart line: name, image, and the
// unit price that was authoritative when the order was created. Client
// input never writes these fields.
type LineItem struct {
	ProductID  string `dynamodbav:"product_id" json:"productId"`
	Name       string `dynamodbav:"name" json:"productName"`
	Image      string `dynamodbav:"image,omitempty" json:"productImage,omitempty"`
	PriceCents int64  `dynamodbav:"price_cents" json:"priceCents"`
	Qty        int64  `dynamodbav:"qty" json:"quantity"`
}

// ShippingAddress is the delivery address captured at checkout.
type ShippingAddress struct {
	Street  string `dynamodbav:"street" json:"street"`
	City    string `dynamodbav:"city" json:"city"`
	State   string `dynamodbav:"state" json:"state"`
	ZipCode string `dynamodbav:"zip_code" json:"zipCode"`
	Country string `dynamodbav:"country" json:"country"`
	Phone   string `dynamodbav:"phone" json:"phone"`
}

// Order is the item stored in the orders table. OwnerID never changes
// after creation; TotalCents always equals the sum of line price * qty at
// creation time, never a client-submitted figure.
type Order struct {
	OrderID string `dynamodbav:"order_id" json:"id"` // PK
	// owner_id keys the owner GSI; it is omitted for guest orders so the
	// write is not rejected for an empty index key. Guest orders are only
	// reachable through the admin views.
	OwnerID           string          `dynamodbav:"owner_id,omitempty" json:"ownerId"`
	OwnerEmail        string          `dynamodbav:"owner_email,omitempty" json:"ownerEmail,omitempty"`
	Items             []LineItem      `dynamodbav:"items" json:"items"`
	TotalCents        int64           `dynamodbav:"total_cents" json:"totalCents"`
	Currency          string          `dynamodbav:"currency" json:"currency"`
	PaymentStatus     string          `dynamodbav:"payment_status" json:"paymentStatus"`
	PaymentMethod     string          `dynamodbav:"payment_method,omitempty" json:"paymentMethod,omitempty"`
	ProviderReference string          `dynamodbav:"provider_reference,omitempty" json:"providerReference,omitempty"`
	ShippingAddress   ShippingAddress `dynamodbav:"shipping_address" json:"shippingAddress"`
	OrderStatus       string          `dynamodbav:"order_status" json:"orderStatus"`
	CreatedAt         time.Time       `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt         time.Time       `dynamodbav:"updated_at" json:"updatedAt"`
}
