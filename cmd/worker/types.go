package main

// ExpiryMessage is the payload sent from API -> SQS -> worker. It names
// the reservation whose TTL has elapsed by the time the delayed message
// is delivered.
type ExpiryMessage struct {
	ReservationID string `json:"reservation_id"`
}
