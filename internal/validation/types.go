package validation

// CartItem is one untrusted cart line. Price and Name are accepted for
// wire compatibility with older clients but are never read: only the
// product id and quantity feed the pricing engine.
type CartItem struct {
	ProductID string  `json:"productId" validate:"required"`
	Qty       int64   `json:"qty" validate:"required,min=1"`
	Price     float64 `json:"price,omitempty" validate:"-"`
	Name      string  `json:"name,omitempty" validate:"-"`
}

// ShippingAddressInput is the delivery address supplied at checkout.
type ShippingAddressInput struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	ZipCode string `json:"zipCode" validate:"required"`
	Country string `json:"country" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
}

// CreatePaymentIntentRequest is the payload for POST /payment-intents.
type CreatePaymentIntentRequest struct {
	Items           []CartItem           `json:"items" validate:"required,min=1,dive"`
	ShippingName    string               `json:"shippingName" validate:"required"`
	ShippingAddress ShippingAddressInput `json:"shippingAddress" validate:"required"`
}

// RegisterRequest is the payload for POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest is the payload for PUT /auth/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

// UpdateOrderStatusRequest is the payload for PUT /orders/:id. Only the
// target status is accepted; nothing else on an order is client-writable.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
