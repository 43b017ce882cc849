package models

import "time"

// Event types
const (
	EventTypeBookingCreated   = "BOOKING_CREATED"
	EventTypeBookingAccepted  = "BOOKING_ACCEPTED"
	EventTypeBookingRejected  = "BOOKING_REJECTED"
	EventTypeBookingPaid      = "BOOKING_PAID"
	EventTypeBookingConfirmed = "BOOKING_CONFIRMED"
	EventTypePaymentRefunded  = "PAYMENT_REFUNDED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingCreatedEvent published when a student books a class
type BookingCreatedEvent struct {
	BaseEvent
	ClassRequestID int64 `json:"class_request_id"`
	ClassOfferID   int64 `json:"class_offer_id"`
	UserID         int64 `json:"user_id"`
	Day            int   `json:"day"`
	Slot           int   `json:"slot"`
	Price          int64 `json:"price"`
}

// BookingAcceptedEvent published when the teacher accepts a booking
type BookingAcceptedEvent struct {
	BaseEvent
	ClassRequestID int64 `json:"class_request_id"`
	ClassOfferID   int64 `json:"class_offer_id"`
	UserID         int64 `json:"user_id"`
}

// BookingRejectedEvent published when the teacher declines a booking
type BookingRejectedEvent struct {
	BaseEvent
	ClassRequestID int64 `json:"class_request_id"`
	ClassOfferID   int64 `json:"class_offer_id"`
	UserID         int64 `json:"user_id"`
}

// BookingPaidEvent published when the provider confirms payment
type BookingPaidEvent struct {
	BaseEvent
	ClassRequestID int64  `json:"class_request_id"`
	PaymentID      string `json:"payment_id"`
	Status         string `json:"status"`
}

// BookingConfirmedEvent published after the confirmation-code handshake
type BookingConfirmedEvent struct {
	BaseEvent
	ClassRequestID int64 `json:"class_request_id"`
}

// PaymentRefundedEvent published after a successful refund
type PaymentRefundedEvent struct {
	BaseEvent
	ClassRequestID int64  `json:"class_request_id"`
	PaymentID      string `json:"payment_id"`
	Amount         int64  `json:"amount"`
}
