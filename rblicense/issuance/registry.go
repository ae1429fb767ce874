// Package issuance keeps a vendor-side ledger of the activation keys that
// have been issued, so support can look up which key went to which machine.
// The game client never talks to it.
package issuance

import (
	"context"
	"errors"
	"regexp"
	"time"
)

// ErrNotFound is returned by Get when no key with the given id exists.
var ErrNotFound = errors.New("issued key not found")

// validIdentifier matches safe table and collection names.
var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultName = "rollaball_issued_keys"

// IssuedKey is one activation key handed out by the vendor.
type IssuedKey struct {
	ID            string     `json:"id" bson:"_id"`
	Product       string     `json:"product" bson:"product"`
	Machine       string     `json:"machine" bson:"machine"`
	Customer      string     `json:"customer,omitempty" bson:"customer"`
	ActivationKey string     `json:"activation_key" bson:"activation_key"`
	IssuedAt      time.Time  `json:"issued_at" bson:"issued_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
}

// Registry stores issued activation keys.
type Registry interface {
	// Put inserts or replaces an issued key (upsert by ID).
	Put(ctx context.Context, key IssuedKey) (*IssuedKey, error)

	// Get returns the issued key with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (*IssuedKey, error)

	// ListByMachine returns every key issued for a machine code, oldest first.
	ListByMachine(ctx context.Context, machine string) ([]IssuedKey, error)

	// List returns every key issued for a product, oldest first.
	List(ctx context.Context, product string) ([]IssuedKey, error)

	// Count returns the number of keys issued for a product.
	Count(ctx context.Context, product string) (int, error)

	// PruneExpired removes keys of a product that expired before the cutoff.
	// Keys without an expiry are kept. Returns the number removed.
	PruneExpired(ctx context.Context, product string, before time.Time) (int, error)

	// Close releases any resources held by the registry.
	Close(ctx context.Context) error
}
