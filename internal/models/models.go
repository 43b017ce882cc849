package models

import "time"

// User represents a registered account. Teachers may additionally link a
// Mercadopago account (1:1 via MercadopagoInfo).
type User struct {
	ID        int64     `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Email     string    `db:"email" json:"email"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Role      string    `db:"role" json:"role"`
	IsDeleted bool      `db:"is_deleted" json:"is_deleted"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// User roles
const (
	RoleStudent = "Student"
	RoleTeacher = "Teacher"
	RoleAdmin   = "Admin"
)

// ClassOffer is a class published by a teacher. Price is snapshotted onto
// each ClassRequest at booking time, so later edits never change what an
// existing booking owes.
type ClassOffer struct {
	ID          int64     `db:"id" json:"id"`
	AuthorID    int64     `db:"author_id" json:"author_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"`
	Price       int64     `db:"price" json:"price"`
	IsDeleted   bool      `db:"is_deleted" json:"is_deleted"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Availability is one weekly (day, slot) cell of a teacher's schedule grid.
type Availability struct {
	ID        int64 `db:"id" json:"id"`
	TeacherID int64 `db:"teacher_id" json:"teacher_id"`
	Day       int   `db:"day" json:"day"`
	Slot      int   `db:"slot" json:"slot"`
}

// ClassRequest is a booking made by a student on a class offer.
type ClassRequest struct {
	ID             int64     `db:"id" json:"id"`
	ClassOfferID   int64     `db:"class_offer_id" json:"class_offer_id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	Day            int       `db:"day" json:"day"`
	Slot           int       `db:"slot" json:"slot"`
	State          string    `db:"state" json:"state"`
	PriceCreatedAt int64     `db:"price_created_at" json:"price_created_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ClassRequest states.
//
//	Created → PaymentPending → Paid → Approved
//	               ↓             ↓
//	            Rejected   PaymentRefunded
const (
	StateCreated         = "Created"
	StatePaymentPending  = "PaymentPending"
	StatePaid            = "Paid"
	StateApproved        = "Approved"
	StateRejected        = "Rejected"
	StatePaymentRefunded = "PaymentRefunded"
)

// ValidState reports whether s is one of the known class-request states.
func ValidState(s string) bool {
	switch s {
	case StateCreated, StatePaymentPending, StatePaid, StateApproved,
		StateRejected, StatePaymentRefunded:
		return true
	}
	return false
}

// Transaction records a payment preference issued for a class request.
// A request can accumulate several transactions across retries; the most
// recently created one is authoritative.
type Transaction struct {
	ID             int64     `db:"id" json:"id"`
	ClassRequestID int64     `db:"class_request_id" json:"class_request_id"`
	PreferenceID   string    `db:"preference_id" json:"preference_id"`
	PaymentID      *string   `db:"payment_id" json:"payment_id,omitempty"`
	Status         string    `db:"status" json:"status"`
	ConfirmCode    *string   `db:"confirm_code" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Transaction statuses as reported by the payment provider.
const (
	TxStatusPending  = "pending"
	TxStatusApproved = "approved"
)

// MercadopagoInfo holds a teacher's OAuth credential pair for the payment
// provider. The access token is usable only before AccessTokenExpiration;
// past that it must be refreshed, and once the refresh token itself expires
// the teacher has to re-link the account.
type MercadopagoInfo struct {
	UserID                 int64     `db:"user_id" json:"user_id"`
	AccessToken            string    `db:"access_token" json:"-"`
	AccessTokenExpiration  time.Time `db:"access_token_expiration" json:"access_token_expiration"`
	RefreshToken           string    `db:"refresh_token" json:"-"`
	RefreshTokenExpiration time.Time `db:"refresh_token_expiration" json:"refresh_token_expiration"`
}

// AccessTokenExpired reports whether the access token is past its expiry.
func (m *MercadopagoInfo) AccessTokenExpired(now time.Time) bool {
	return m.AccessTokenExpiration.Before(now)
}

// RefreshTokenExpired reports whether the refresh token is past its expiry.
func (m *MercadopagoInfo) RefreshTokenExpired(now time.Time) bool {
	return m.RefreshTokenExpiration.Before(now)
}

// Review is a student's rating of a teacher. One review per
// (author, teacher) pair.
type Review struct {
	ID        int64     `db:"id" json:"id"`
	AuthorID  int64     `db:"author_id" json:"author_id"`
	TeacherID int64     `db:"teacher_id" json:"teacher_id"`
	Rating    int       `db:"rating" json:"rating"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
