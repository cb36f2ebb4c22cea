// Package store provides persistent storage for generated icons.
//
// The avatar server keeps one record per name so that an avatar, once
// generated with a random variant, stays stable across requests and
// server restarts. Two backends implement the [Store] interface:
//
//   - MemoryStore: in-memory, for development and tests
//   - MongoStore: MongoDB-backed, for production deployments
//
// Records are keyed by name; Put upserts, so regenerating an avatar
// replaces the stored bytes.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/onerbs/identy/pkg/errors"
)

// Record is a stored icon: the parameters it was generated with and
// the encoded PNG bytes.
type Record struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Radius    int       `bson:"radius" json:"radius"`
	Border    int       `bson:"border" json:"border"`
	Black     bool      `bson:"black" json:"black"`
	Variant   int       `bson:"variant" json:"variant"`
	PNG       []byte    `bson:"png" json:"png"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// NewRecord creates a record with a fresh UUID and the current time.
func NewRecord(name string, radius, border, variant int, black bool, png []byte) Record {
	return Record{
		ID:        uuid.NewString(),
		Name:      name,
		Radius:    radius,
		Border:    border,
		Black:     black,
		Variant:   variant,
		PNG:       png,
		CreatedAt: time.Now().UTC(),
	}
}

// Store persists icon records keyed by name.
type Store interface {
	// Get returns the record for name, or a NOT_FOUND error.
	Get(ctx context.Context, name string) (*Record, error)

	// Put stores a record, replacing any existing record with the same name.
	Put(ctx context.Context, rec Record) error

	// Delete removes the record for name. Missing names are not an error.
	Delete(ctx context.Context, name string) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// NotFound builds the canonical missing-record error for name.
func NotFound(name string) error {
	return errors.New(errors.ErrCodeNotFound, "icon %q not found", name)
}
