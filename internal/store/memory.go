package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/systmms/leasevault/internal/errors"
)

// MemoryStore is the in-memory reference implementation of Store. It
// enforces the unique-slug-per-folder invariant under a single mutex, so
// concurrent creates and renames for the same slug serialize into exactly
// one winner.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[string]DynamicSecretConfig
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		configs: make(map[string]DynamicSecretConfig),
		now:     time.Now,
	}
}

// FindOne returns the first config matching the filter, or nil.
func (s *MemoryStore) FindOne(ctx context.Context, filter Filter) (*DynamicSecretConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, cfg := range s.configs {
		if matches(cfg, filter) {
			out := cfg
			return &out, nil
		}
	}
	return nil, nil
}

// Find returns all configs matching the filter, ordered by creation time for
// stable listings.
func (s *MemoryStore) Find(ctx context.Context, filter Filter) ([]DynamicSecretConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []DynamicSecretConfig
	for _, cfg := range s.configs {
		if matches(cfg, filter) {
			out = append(out, cfg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Create persists a new config. The duplicate check and the insert happen
// under one lock, closing the check-then-create race the service-level
// pre-check leaves open.
func (s *MemoryStore) Create(ctx context.Context, record DynamicSecretConfig) (*DynamicSecretConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeSlugTaken(record.FolderID, record.Slug, "") {
		return nil, errors.ConflictError{Slug: record.Slug, FolderID: record.FolderID}
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = StatusActive
	}
	now := s.now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	s.configs[record.ID] = record
	out := record
	return &out, nil
}

// UpdateByID applies a partial update atomically.
func (s *MemoryStore) UpdateByID(ctx context.Context, id string, update Update) (*DynamicSecretConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[id]
	if !ok {
		return nil, errors.NotFoundError{Message: "dynamic secret not found"}
	}

	if update.Slug != nil && *update.Slug != cfg.Slug {
		if s.activeSlugTaken(cfg.FolderID, *update.Slug, id) {
			return nil, errors.ConflictError{Slug: *update.Slug, FolderID: cfg.FolderID}
		}
		cfg.Slug = *update.Slug
	}
	if update.DefaultTTL != nil {
		cfg.DefaultTTL = *update.DefaultTTL
	}
	if update.MaxTTL != nil {
		cfg.MaxTTL = *update.MaxTTL
	}
	if update.Status != nil {
		cfg.Status = *update.Status
	}
	if update.Input != nil {
		cfg.InputCiphertext = update.Input.Ciphertext
		cfg.InputIV = update.Input.IV
		cfg.InputTag = update.Input.Tag
		cfg.Algorithm = update.Input.Algorithm
		cfg.KeyEncoding = update.Input.KeyEncoding
	}
	cfg.UpdatedAt = s.now()

	s.configs[id] = cfg
	out := cfg
	return &out, nil
}

// DeleteByID removes a config and returns the deleted record.
func (s *MemoryStore) DeleteByID(ctx context.Context, id string) (*DynamicSecretConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[id]
	if !ok {
		return nil, errors.NotFoundError{Message: "dynamic secret not found"}
	}
	delete(s.configs, id)
	out := cfg
	return &out, nil
}

// activeSlugTaken reports whether an active config other than excludeID
// already uses slug within folderID. Caller must hold the lock.
func (s *MemoryStore) activeSlugTaken(folderID, slug, excludeID string) bool {
	for _, cfg := range s.configs {
		if cfg.ID == excludeID {
			continue
		}
		if cfg.FolderID == folderID && cfg.Slug == slug && cfg.Status == StatusActive {
			return true
		}
	}
	return false
}

func matches(cfg DynamicSecretConfig, filter Filter) bool {
	if filter.FolderID != "" && cfg.FolderID != filter.FolderID {
		return false
	}
	if filter.Slug != nil && cfg.Slug != *filter.Slug {
		return false
	}
	if filter.Status != nil && cfg.Status != *filter.Status {
		return false
	}
	return true
}
