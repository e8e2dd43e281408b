package catalog

import "time"

// Reservation statuses
const (
	StatusReserved  = "RESERVED"
	StatusCommitted = "COMMITTED"
	StatusReleased  = "RELEASED"
	StatusExpired   = "EXPIRED"
)

// Item is a catalog entry. Price is stored in integer minor units; this
// core only reads name/image/price and mutates stock counters.
type Item struct {
	ProductID  string `dynamodbav:"product_id"` // PK
	Name       string `dynamodbav:"name"`
	Image      string `dynamodbav:"image,omitempty"`
	PriceCents int64  `dynamodbav:"price_cents"`
	Stock      int64  `dynamodbav:"stock"`
	Reserved   int64  `dynamodbav:"reserved,omitempty"`
}

// Line is one reserved product/quantity pair.
type Line struct {
	ProductID string `dynamodbav:"product_id" json:"product_id"`
	Qty       int64  `dynamodbav:"qty" json:"qty"`
}

// Reservation is a time-bounded hold against available stock, persisted in
// the reservations table so an expiry sweep can find and release it.
type Reservation struct {
	ReservationID string    `dynamodbav:"reservation_id"` // PK
	Lines         []Line    `dynamodbav:"lines"`
	Status        string    `dynamodbav:"status"` // RESERVED | COMMITTED | RELEASED | EXPIRED
	CreatedAt     time.Time `dynamodbav:"created_at"`
	UpdatedAt     time.Time `dynamodbav:"updated_at"`
	ExpiresAt     int64     `dynamodbav:"expires_at"` // TTL epoch seconds
}
