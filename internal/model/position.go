package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPayload marks an inbound update that fails local validation.
// It is surfaced to the sender and never mutates any relay state.
var ErrInvalidPayload = errors.New("invalid payload")

// Position is a single courier GPS sample. A new sample fully replaces
// the previous one for the same courier; samples are never merged.
type Position struct {
	CourierID int64    `json:"courier_id"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Speed     *float64 `json:"speed,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	PackageID *int64   `json:"package_id"`
	Timestamp string   `json:"timestamp"`
}

// Validate checks required fields and coordinate ranges.
func (p Position) Validate() error {
	if p.CourierID <= 0 {
		return fmt.Errorf("%w: courier_id is required", ErrInvalidPayload)
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("%w: latitude must be between -90 and 90, got %v", ErrInvalidPayload, p.Latitude)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("%w: longitude must be between -180 and 180, got %v", ErrInvalidPayload, p.Longitude)
	}
	return nil
}

// Time parses the sample timestamp. Unparsable or empty timestamps
// collapse to the zero time so ordering comparisons stay deterministic.
func (p Position) Time() time.Time {
	t, err := time.Parse(time.RFC3339, p.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Now returns the server-assigned timestamp for samples that arrive
// without one.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// UpdateRequest is the inbound wire form of a position update. Optional
// fields are pointers so that absence is distinguishable from zero.
type UpdateRequest struct {
	CourierID *int64   `json:"courier_id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Speed     *float64 `json:"speed"`
	Heading   *float64 `json:"heading"`
	PackageID *int64   `json:"package_id"`
	Timestamp string   `json:"timestamp"`
}

// Position validates the request and converts it to a Position. The
// timestamp is left as received; the engine assigns a default when it
// is empty.
func (r UpdateRequest) Position() (Position, error) {
	if r.CourierID == nil {
		return Position{}, fmt.Errorf("%w: courier_id is required", ErrInvalidPayload)
	}
	if r.Latitude == nil {
		return Position{}, fmt.Errorf("%w: latitude is required", ErrInvalidPayload)
	}
	if r.Longitude == nil {
		return Position{}, fmt.Errorf("%w: longitude is required", ErrInvalidPayload)
	}

	p := Position{
		CourierID: *r.CourierID,
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
		Speed:     r.Speed,
		Heading:   r.Heading,
		PackageID: r.PackageID,
		Timestamp: r.Timestamp,
	}

	if err := p.Validate(); err != nil {
		return Position{}, err
	}

	return p, nil
}
