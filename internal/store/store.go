// Package store defines persistence for dynamic secret configuration
// records and provides an in-memory reference implementation.
//
// The store, not the service, owns the unique-slug-per-folder invariant:
// the service performs an optimistic pre-check, but two concurrent creates
// for the same slug must still result in exactly one success. A SQL-backed
// implementation would enforce this with a partial unique index over
// (folder_id, slug) where status = 'active'.
package store

import (
	"context"
	"time"

	"github.com/systmms/leasevault/internal/crypto"
)

// Status is the lifecycle state of a config. Physical absence is the third,
// implicit state reached via hard delete.
type Status string

const (
	// StatusActive configs accept new lease requests.
	StatusActive Status = "active"

	// StatusDeleting configs are logically gone to new lease requests but
	// physically retained until the pruner converges their leases to zero.
	StatusDeleting Status = "deleting"
)

// DynamicSecretConfig is the persisted unit: one provider-backed definition
// whose encrypted inputs mint short-lived credentials when leased.
type DynamicSecretConfig struct {
	// ID is opaque and immutable once assigned.
	ID string

	// FolderID scopes the config to a path within a project/environment.
	FolderID string

	// Slug is unique among non-deleted configs within the folder and may
	// change via rename.
	Slug string

	// ProviderType selects the registry entry that validates the inputs.
	ProviderType string

	// Version is the schema version of the stored input, currently 1.
	Version int

	// InputCiphertext, InputIV and InputTag, together with Algorithm and
	// KeyEncoding, form the encrypted provider configuration. They are only
	// ever written as a complete set.
	InputCiphertext string
	InputIV         string
	InputTag        string
	Algorithm       crypto.Algorithm
	KeyEncoding     crypto.Encoding

	// DefaultTTL and MaxTTL bound the leases the external issuer hands out.
	DefaultTTL time.Duration
	MaxTTL     time.Duration

	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsDeleting reports whether the config is awaiting prune convergence.
func (c DynamicSecretConfig) IsDeleting() bool {
	return c.Status == StatusDeleting
}

// EncryptedInput returns the stored ciphertext set as a codec blob.
func (c DynamicSecretConfig) EncryptedInput() crypto.EncryptedBlob {
	return crypto.EncryptedBlob{
		Ciphertext:  c.InputCiphertext,
		IV:          c.InputIV,
		Tag:         c.InputTag,
		Algorithm:   c.Algorithm,
		KeyEncoding: c.KeyEncoding,
	}
}

// Filter selects configs. FolderID empty means all folders (used only by the
// pruner's recovery sweep); Slug and Status are optional refinements.
type Filter struct {
	FolderID string
	Slug     *string
	Status   *Status
}

// Update is a partial mutation applied by UpdateByID. Nil fields are left
// unchanged. Input replaces the whole ciphertext set at once; partial writes
// of individual ciphertext members are not expressible.
type Update struct {
	Slug       *string
	DefaultTTL *time.Duration
	MaxTTL     *time.Duration
	Status     *Status
	Input      *crypto.EncryptedBlob
}

// Store is the persistence contract for dynamic secret configs.
type Store interface {
	// FindOne returns the first config matching the filter, or nil when
	// nothing matches.
	FindOne(ctx context.Context, filter Filter) (*DynamicSecretConfig, error)

	// Find returns all configs matching the filter.
	Find(ctx context.Context, filter Filter) ([]DynamicSecretConfig, error)

	// Create persists a new config, assigning ID and timestamps when unset.
	// It fails with errors.ConflictError when an active config with the same
	// slug already exists in the folder, applied atomically with the insert.
	Create(ctx context.Context, record DynamicSecretConfig) (*DynamicSecretConfig, error)

	// UpdateByID applies a partial update and returns the updated config.
	// It fails with errors.NotFoundError when the id no longer exists and
	// with errors.ConflictError when a rename collides with an active slug.
	UpdateByID(ctx context.Context, id string, update Update) (*DynamicSecretConfig, error)

	// DeleteByID removes a config and returns the deleted record for caller
	// visibility. It fails with errors.NotFoundError when the id is gone.
	DeleteByID(ctx context.Context, id string) (*DynamicSecretConfig, error)
}

// Ptr returns a pointer to v. Convenience for building filters and updates.
func Ptr[T any](v T) *T {
	return &v
}
