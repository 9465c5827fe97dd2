package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/leasevault/internal/crypto"
	"github.com/systmms/leasevault/internal/errors"
	"github.com/systmms/leasevault/internal/store"
)

func testConfig(folderID, slug string) store.DynamicSecretConfig {
	return store.DynamicSecretConfig{
		FolderID:        folderID,
		Slug:            slug,
		ProviderType:    "mock",
		Version:         1,
		InputCiphertext: "Y2lwaGVy",
		InputIV:         "aXY=",
		InputTag:        "dGFn",
		Algorithm:       crypto.AlgorithmAES256GCM,
		KeyEncoding:     crypto.EncodingBase64,
		DefaultTTL:      time.Hour,
		MaxTTL:          2 * time.Hour,
		Status:          store.StatusActive,
	}
}

// TestMemoryStoreCreate validates id assignment and point lookup
func TestMemoryStoreCreate(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	ctx := context.Background()

	created, err := s.Create(ctx, testConfig("f1", "db1"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, store.StatusActive, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	found, err := s.FindOne(ctx, store.Filter{FolderID: "f1", Slug: store.Ptr("db1")})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	missing, err := s.FindOne(ctx, store.Filter{FolderID: "f1", Slug: store.Ptr("nope")})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// TestMemoryStoreSlugConflict validates the unique-slug-per-folder invariant
func TestMemoryStoreSlugConflict(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	ctx := context.Background()

	_, err := s.Create(ctx, testConfig("f1", "db1"))
	require.NoError(t, err)

	_, err = s.Create(ctx, testConfig("f1", "db1"))
	assert.True(t, errors.IsConflict(err), "duplicate slug in same folder must conflict, got %v", err)

	// Same slug in another folder is fine.
	_, err = s.Create(ctx, testConfig("f2", "db1"))
	assert.NoError(t, err)
}

// TestMemoryStoreConcurrentCreate validates that racing creates yield exactly
// one winner
func TestMemoryStoreConcurrentCreate(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	ctx := context.Background()

	const racers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(ctx, testConfig("f1", "contested"))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes, "exactly one create must win")
	assert.Equal(t, racers-1, conflicts)

	rows, err := s.Find(ctx, store.Filter{FolderID: "f1"})
	require.NoError(t, err)
	assert.Len(t, rows, 1, "never two rows for the same slug")
}

// TestMemoryStoreDeletingSlugReusable validates that a deleting config frees
// its slug for new creates
func TestMemoryStoreDeletingSlugReusable(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	ctx := context.Background()

	first, err := s.Create(ctx, testConfig("f1", "db1"))
	require.NoError(t, err)

	_, err = s.UpdateByID(ctx, first.ID, store.Update{Status: store.Ptr(store.StatusDeleting)})
	require.NoError(t, err)

	second, err := s.Create(ctx, testConfig("f1", "db1"))
	require.NoError(t, err, "slug of a deleting config must be reusable")
	assert.NotEqual(t, first.ID, second.ID)
}

// TestMemoryStoreUpdateByID validates partial updates and the atomic
// ciphertext set
func TestMemoryStoreUpdateByID(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	ctx := context.Background()

	created, err := s.Create(ctx, testConfig("f1", "db1"))
	require.NoError(t, err)

	newBlob := crypto.EncryptedBlob{
		Ciphertext:  "bmV3",
		IV:          "bmV3aXY=",
		Tag:         "bmV3dGFn",
		Algorithm:   crypto.AlgorithmAES256GCM,
		KeyEncoding: crypto.EncodingBase64,
	}
	updated, err := s.UpdateByID(ctx, created.ID, store.Update{
		Slug:       store.Ptr("db1-renamed"),
		DefaultTTL: store.Ptr(30 * time.Minute),
		Input:      &newBlob,
	})
	require.NoError(t, err)

	assert.Equal(t, "db1-renamed", updated.Slug)
	assert.Equal(t, 30*time.Minute, updated.DefaultTTL)
	assert.Equal(t, 2*time.Hour, updated.MaxTTL, "unset fields stay unchanged")
	assert.Equal(t, newBlob, updated.EncryptedInput())

	_, err = s.UpdateByID(ctx, "gone", store.Update{})
	assert.True(t, errors.IsNotFound(err))
}

// TestMemoryStoreRenameConflict validates rename collisions with active slugs
func TestMemoryStoreRenameConflict(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	ctx := context.Background()

	a, err := s.Create(ctx, testConfig("f1", "a"))
	require.NoError(t, err)
	_, err = s.Create(ctx, testConfig("f1", "b"))
	require.NoError(t, err)

	_, err = s.UpdateByID(ctx, a.ID, store.Update{Slug: store.Ptr("b")})
	assert.True(t, errors.IsConflict(err))

	// Renaming to its own slug is a no-op, not a conflict.
	_, err = s.UpdateByID(ctx, a.ID, store.Update{Slug: store.Ptr("a")})
	assert.NoError(t, err)
}

// TestMemoryStoreDeleteByID validates delete-and-return semantics
func TestMemoryStoreDeleteByID(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	ctx := context.Background()

	created, err := s.Create(ctx, testConfig("f1", "db1"))
	require.NoError(t, err)

	deleted, err := s.DeleteByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)
	assert.Equal(t, "db1", deleted.Slug)

	_, err = s.DeleteByID(ctx, created.ID)
	assert.True(t, errors.IsNotFound(err))
}

// TestMemoryStoreFindByStatus validates the status filter used by the sweep
func TestMemoryStoreFindByStatus(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	ctx := context.Background()

	active, err := s.Create(ctx, testConfig("f1", "a"))
	require.NoError(t, err)
	flagged, err := s.Create(ctx, testConfig("f2", "b"))
	require.NoError(t, err)
	_, err = s.UpdateByID(ctx, flagged.ID, store.Update{Status: store.Ptr(store.StatusDeleting)})
	require.NoError(t, err)

	// Empty FolderID spans all folders.
	deleting, err := s.Find(ctx, store.Filter{Status: store.Ptr(store.StatusDeleting)})
	require.NoError(t, err)
	require.Len(t, deleting, 1)
	assert.Equal(t, flagged.ID, deleting[0].ID)
	assert.NotEqual(t, active.ID, deleting[0].ID)
}
