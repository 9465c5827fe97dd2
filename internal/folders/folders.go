// Package folders resolves project/environment/path triples to the folder
// that owns dynamic secret configs at that location.
package folders

import (
	"context"
	"strings"
	"sync"
)

// Folder is a path-addressed scope within a project/environment.
type Folder struct {
	ID          string
	ProjectID   string
	Environment string
	Path        string
}

// Resolver locates folders by secret path. Returns nil, nil when no folder
// exists at the path.
type Resolver interface {
	FindBySecretPath(ctx context.Context, projectID, environment, path string) (*Folder, error)
}

// MemoryResolver is the in-memory reference Resolver.
type MemoryResolver struct {
	mu      sync.RWMutex
	folders []Folder
}

// NewMemoryResolver creates an empty resolver.
func NewMemoryResolver() *MemoryResolver {
	return &MemoryResolver{}
}

// Add registers a folder, normalizing its path.
func (r *MemoryResolver) Add(folder Folder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	folder.Path = NormalizePath(folder.Path)
	r.folders = append(r.folders, folder)
}

// FindBySecretPath returns the folder at the given location, or nil.
func (r *MemoryResolver) FindBySecretPath(ctx context.Context, projectID, environment, path string) (*Folder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	normalized := NormalizePath(path)
	for _, folder := range r.folders {
		if folder.ProjectID == projectID && folder.Environment == environment && folder.Path == normalized {
			out := folder
			return &out, nil
		}
	}
	return nil, nil
}

// NormalizePath collapses separators and guarantees a single leading slash,
// so "/db", "db" and "//db/" address the same folder.
func NormalizePath(path string) string {
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(parts, "/")
}
