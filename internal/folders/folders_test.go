package folders_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/leasevault/internal/folders"
)

// TestNormalizePath validates path normalization
func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"db", "/db"},
		{"/db", "/db"},
		{"//db/", "/db"},
		{"/db/replicas", "/db/replicas"},
		{"db///replicas", "/db/replicas"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, folders.NormalizePath(tt.in), "NormalizePath(%q)", tt.in)
	}
}

// TestMemoryResolver validates lookup by project, environment and path
func TestMemoryResolver(t *testing.T) {
	t.Parallel()

	resolver := folders.NewMemoryResolver()
	resolver.Add(folders.Folder{ID: "f1", ProjectID: "p1", Environment: "prod", Path: "db"})

	ctx := context.Background()

	found, err := resolver.FindBySecretPath(ctx, "p1", "prod", "/db")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "f1", found.ID)
	assert.Equal(t, "/db", found.Path, "stored path is normalized")

	for _, q := range []struct{ project, env, path string }{
		{"p1", "prod", "/other"},
		{"p1", "staging", "/db"},
		{"p2", "prod", "/db"},
	} {
		missing, err := resolver.FindBySecretPath(ctx, q.project, q.env, q.path)
		require.NoError(t, err)
		assert.Nil(t, missing)
	}
}
