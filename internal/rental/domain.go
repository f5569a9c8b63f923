// internal/rental/domain.go
package rental

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a rental.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusOverdue  Status = "OVERDUE"
	StatusReturned Status = "RETURNED"
)

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusActive, StatusOverdue, StatusReturned:
		return st, true
	default:
		return "", false
	}
}

// Rental is one ledger entry: a copy of a video rented by a user.
type Rental struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	Username    string          `json:"username" db:"username"`
	VideoID     uuid.UUID       `json:"video_id" db:"video_id"`
	VideoTitle  string          `json:"video_title" db:"video_title"`
	RentalDate  Date            `json:"rental_date" db:"rental_date"`
	DueDate     Date            `json:"due_date" db:"due_date"`
	ReturnDate  *Date           `json:"return_date" db:"return_date"`
	RentalPrice decimal.Decimal `json:"rental_price" db:"rental_price"`
	LateFee     decimal.Decimal `json:"late_fee" db:"late_fee"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status      Status          `json:"status" db:"status"`
	Version     int             `json:"version" db:"version"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`

	// current daily price of the video, used for late fees
	PricePerDay decimal.Decimal `json:"-" db:"price_per_day"`
}

// Outstanding reports whether the copy has not come back yet.
func (r *Rental) Outstanding() bool {
	return r.Status != StatusReturned
}

// MaxRentalDays bounds a single rental.
const MaxRentalDays = 365

// CheckoutRequest is the body of a rental request.
type CheckoutRequest struct {
	VideoID    uuid.UUID `json:"video_id" validate:"required"`
	RentalDays int       `json:"rental_days" validate:"required,min=1,max=365"`
}

// RentalCheckedOutEvent is recorded when a copy is rented.
type RentalCheckedOutEvent struct {
	RentalID    uuid.UUID       `json:"rental_id"`
	UserID      uuid.UUID       `json:"user_id"`
	VideoID     uuid.UUID       `json:"video_id"`
	RentalDate  Date            `json:"rental_date"`
	DueDate     Date            `json:"due_date"`
	RentalPrice decimal.Decimal `json:"rental_price"`
}

// RentalReturnedEvent is recorded when a copy comes back.
type RentalReturnedEvent struct {
	RentalID    uuid.UUID       `json:"rental_id"`
	ReturnedBy  string          `json:"returned_by"`
	ReturnDate  Date            `json:"return_date"`
	LateFee     decimal.Decimal `json:"late_fee"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// RentalMarkedOverdueEvent is recorded when the due date passes without a return.
type RentalMarkedOverdueEvent struct {
	RentalID uuid.UUID `json:"rental_id"`
	DueDate  Date      `json:"due_date"`
	AsOf     Date      `json:"as_of"`
}
