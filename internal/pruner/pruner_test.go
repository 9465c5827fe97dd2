package pruner_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/leasevault/internal/leases"
	"github.com/systmms/leasevault/internal/logging"
	"github.com/systmms/leasevault/internal/pruner"
	"github.com/systmms/leasevault/internal/store"
)

// flakyRevoker fails the first n revocations, then delegates.
type flakyRevoker struct {
	mu       sync.Mutex
	failures int
	inner    leases.Revoker
}

func (f *flakyRevoker) Revoke(ctx context.Context, leaseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return fmt.Errorf("target system unreachable")
	}
	return f.inner.Revoke(ctx, leaseID)
}

func newPrunerFixture(t *testing.T) (*store.MemoryStore, *leases.MemoryIndex, *logging.Logger) {
	t.Helper()
	return store.NewMemoryStore(), leases.NewMemoryIndex(), logging.NewWithWriter(testWriter{t}, true)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func deletingConfig(t *testing.T, s *store.MemoryStore) *store.DynamicSecretConfig {
	t.Helper()
	created, err := s.Create(context.Background(), store.DynamicSecretConfig{
		FolderID:     "f1",
		Slug:         "db1",
		ProviderType: "mock",
		Version:      1,
		Status:       store.StatusDeleting,
		DefaultTTL:   time.Hour,
		MaxTTL:       2 * time.Hour,
	})
	require.NoError(t, err)
	return created
}

// TestPruneRevokesThenDeletes validates the happy convergence path
func TestPruneRevokesThenDeletes(t *testing.T) {
	t.Parallel()

	s, index, logger := newPrunerFixture(t)
	ctx := context.Background()

	cfg := deletingConfig(t, s)
	index.Add(leases.Lease{ID: "lease-1", DynamicSecretID: cfg.ID})
	index.Add(leases.Lease{ID: "lease-2", DynamicSecretID: cfg.ID})
	index.Add(leases.Lease{ID: "other", DynamicSecretID: "someone-else"})

	r := pruner.NewReconciler(s, index, index, logger)
	require.NoError(t, r.Prune(ctx, cfg.ID))

	// Config gone, its leases revoked, unrelated leases untouched.
	gone, err := s.FindOne(ctx, store.Filter{FolderID: "f1", Slug: store.Ptr("db1")})
	require.NoError(t, err)
	assert.Nil(t, gone)

	mine, err := index.Find(ctx, leases.Filter{DynamicSecretID: cfg.ID})
	require.NoError(t, err)
	assert.Empty(t, mine)

	others, err := index.Find(ctx, leases.Filter{DynamicSecretID: "someone-else"})
	require.NoError(t, err)
	assert.Len(t, others, 1)
}

// TestPruneIdempotent validates that re-pruning a gone config is a no-op
func TestPruneIdempotent(t *testing.T) {
	t.Parallel()

	s, index, logger := newPrunerFixture(t)
	ctx := context.Background()

	cfg := deletingConfig(t, s)
	r := pruner.NewReconciler(s, index, index, logger)

	require.NoError(t, r.Prune(ctx, cfg.ID))
	require.NoError(t, r.Prune(ctx, cfg.ID), "second prune of a gone config must succeed")
	require.NoError(t, r.Prune(ctx, "never-existed"))
}

// TestPruneDefersOnRevocationFailure validates that partial failures keep
// the config for the next pass
func TestPruneDefersOnRevocationFailure(t *testing.T) {
	t.Parallel()

	s, index, logger := newPrunerFixture(t)
	ctx := context.Background()

	cfg := deletingConfig(t, s)
	index.Add(leases.Lease{ID: "lease-1", DynamicSecretID: cfg.ID})

	revoker := &flakyRevoker{failures: 1, inner: index}
	r := pruner.NewReconciler(s, index, revoker, logger)

	require.Error(t, r.Prune(ctx, cfg.ID))

	// Config still present after the failed pass.
	kept, err := s.FindOne(ctx, store.Filter{FolderID: "f1", Slug: store.Ptr("db1")})
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.True(t, kept.IsDeleting())

	// The retry converges.
	require.NoError(t, r.Prune(ctx, cfg.ID))
	gone, err := s.FindOne(ctx, store.Filter{FolderID: "f1", Slug: store.Ptr("db1")})
	require.NoError(t, err)
	assert.Nil(t, gone)
}

// TestSweepAll validates the recovery sweep over all deleting configs
func TestSweepAll(t *testing.T) {
	t.Parallel()

	s, index, logger := newPrunerFixture(t)
	ctx := context.Background()

	// One deleting config that was never signaled (simulated crash between
	// status flip and scheduler call) and one active config.
	orphan := deletingConfig(t, s)
	active, err := s.Create(ctx, store.DynamicSecretConfig{
		FolderID: "f2", Slug: "keep", ProviderType: "mock", Version: 1, Status: store.StatusActive,
	})
	require.NoError(t, err)

	r := pruner.NewReconciler(s, index, index, logger)
	r.SweepAll(ctx)

	gone, err := s.FindOne(ctx, store.Filter{FolderID: orphan.FolderID, Slug: store.Ptr(orphan.Slug)})
	require.NoError(t, err)
	assert.Nil(t, gone, "sweep must pick up unsignaled deleting configs")

	kept, err := s.FindOne(ctx, store.Filter{FolderID: "f2", Slug: store.Ptr("keep")})
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Equal(t, active.ID, kept.ID, "sweep must not touch active configs")
}

// TestSchedulerSignalDrain validates the asynchronous signal path
func TestSchedulerSignalDrain(t *testing.T) {
	t.Parallel()

	s, index, logger := newPrunerFixture(t)
	ctx := context.Background()

	cfg := deletingConfig(t, s)

	r := pruner.NewReconciler(s, index, index, logger, pruner.WithSweepSchedule("@every 1h"))
	require.NoError(t, r.Start())
	defer r.Stop()

	require.Error(t, r.Start(), "double start must fail")

	r.PruneDynamicSecret(cfg.ID)

	require.Eventually(t, func() bool {
		got, err := s.FindOne(ctx, store.Filter{FolderID: "f1", Slug: store.Ptr("db1")})
		return err == nil && got == nil
	}, 5*time.Second, 10*time.Millisecond, "signaled config must be pruned")
}
