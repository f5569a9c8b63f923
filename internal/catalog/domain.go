package catalog

import (
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Video status values. Retired videos are hidden from every catalog query.
const (
	StatusActive  = "active"
	StatusRetired = "retired"
)

// Video represents a title in the rental catalog together with its inventory.
type Video struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	Title             string          `json:"title" db:"title"`
	Description       string          `json:"description" db:"description"`
	Director          string          `json:"director" db:"director"`
	Genre             string          `json:"genre" db:"genre"`
	ReleaseYear       int             `json:"release_year" db:"release_year"`
	DurationMinutes   int             `json:"duration_minutes" db:"duration_minutes"`
	RentalPricePerDay decimal.Decimal `json:"rental_price_per_day" db:"rental_price_per_day"`
	TotalCopies       int             `json:"total_copies" db:"total_copies"`
	AvailableCopies   int             `json:"available_copies" db:"available_copies"`
	CoverImageURL     string          `json:"cover_image_url,omitempty" db:"cover_image_url"`
	Status            string          `json:"-" db:"status"`
	Version           int             `json:"version" db:"version"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// Available reports whether at least one copy can be rented. It is derived from
// AvailableCopies and never stored.
func (v Video) Available() bool {
	return v.AvailableCopies > 0
}

// MarshalJSON adds the derived availability flag.
func (v Video) MarshalJSON() ([]byte, error) {
	type plain Video
	return json.Marshal(struct {
		plain
		Available bool `json:"available"`
	}{plain: plain(v), Available: v.Available()})
}

// VideoInput carries the editable fields of a video.
type VideoInput struct {
	Title             string          `json:"title" validate:"required"`
	Description       string          `json:"description" validate:"max=1000"`
	Director          string          `json:"director"`
	Genre             string          `json:"genre"`
	ReleaseYear       int             `json:"release_year" validate:"gte=1900"`
	DurationMinutes   int             `json:"duration_minutes" validate:"gte=1"`
	RentalPricePerDay decimal.Decimal `json:"rental_price_per_day"`
	TotalCopies       int             `json:"total_copies" validate:"gte=1"`
	CoverImageURL     string          `json:"cover_image_url"`
}

// Filter selects videos for listing. Title search wins over genre, genre wins
// over AvailableOnly.
type Filter struct {
	Title         string
	Genre         string
	AvailableOnly bool
}

// VideoAddedEvent is recorded when a video is created.
type VideoAddedEvent struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	TotalCopies int       `json:"total_copies"`
}

// VideoUpdatedEvent is recorded when a video's details or copy count change.
type VideoUpdatedEvent struct {
	ID            uuid.UUID       `json:"id"`
	Title         string          `json:"title"`
	PricePerDay   decimal.Decimal `json:"price_per_day"`
	NewTotal      int             `json:"new_total"`
	NewAvailable  int             `json:"new_available"`
	PreviousTotal int             `json:"previous_total"`
}

// VideoRetiredEvent is recorded when a video is removed from the catalog.
type VideoRetiredEvent struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}
