package catalog

import (
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("product not found")
	ErrInvalidID        = errors.New("invalid product id")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrUsersUnavailable = errors.New("users service unavailable")
)

const (
	EventsQueue  = "catalog.events"
	EventCreated = "product_created"
	EventDeleted = "product_deleted"
	EventReset   = "catalog_reset"
)

// Product is the record returned to callers. ID is assigned by the active
// backend and is opaque: a decimal integer string on the relational backend,
// a hex ObjectID on the document backend. It never changes once assigned.
type Product struct {
	ID    string  `json:"id" example:"1"`
	Name  string  `json:"name" example:"Pen"`
	Price float64 `json:"price" example:"1.5"`
}

// ProductInput is an unvalidated create/update payload. Price is a pointer
// so an absent field and an explicit zero can be told apart by the validator.
type ProductInput struct {
	Name  string   `json:"name" example:"Pen"`
	Price *float64 `json:"price" example:"1.5"`
}

// NewProduct is a payload that already passed validation.
type NewProduct struct {
	Name  string
	Price float64
}

type Event struct {
	EventType string    `json:"event_type"`
	ProductID string    `json:"product_id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Price     float64   `json:"price,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
