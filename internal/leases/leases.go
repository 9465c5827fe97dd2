// Package leases exposes the engine's read-only view of outstanding leases
// and the revocation hook consumed by the pruner.
//
// A lease is one issued instance of a dynamic secret's credential, bound to
// a TTL. The engine never inspects a lease's contents; it only needs
// existence and identity, enough to gate hard deletion and to drive
// revocation during pruning.
package leases

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Lease references one issued credential tied to a dynamic secret config.
type Lease struct {
	ID              string
	DynamicSecretID string
	ExpireAt        time.Time
}

// Filter selects leases by owning config.
type Filter struct {
	DynamicSecretID string
}

// Index reports outstanding leases. Read-only from the engine's perspective.
type Index interface {
	Find(ctx context.Context, filter Filter) ([]Lease, error)
}

// Revoker tears down a single issued credential on its target system. Only
// the pruning reconciler consumes this; the request path never blocks on
// lease teardown.
type Revoker interface {
	Revoke(ctx context.Context, leaseID string) error
}

// MemoryIndex implements Index and Revoker in memory for tests and the
// reference wiring.
type MemoryIndex struct {
	mu     sync.RWMutex
	leases map[string]Lease
}

// NewMemoryIndex creates an empty lease index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{leases: make(map[string]Lease)}
}

// Add records a lease.
func (m *MemoryIndex) Add(lease Lease) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leases[lease.ID] = lease
}

// Find returns all leases bound to the filtered config, oldest first.
func (m *MemoryIndex) Find(ctx context.Context, filter Filter) ([]Lease, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Lease
	for _, lease := range m.leases {
		if lease.DynamicSecretID == filter.DynamicSecretID {
			out = append(out, lease)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Revoke removes a lease. Revoking an unknown lease is a no-op so the
// at-least-once pruner can retry safely.
func (m *MemoryIndex) Revoke(ctx context.Context, leaseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.leases, leaseID)
	return nil
}
