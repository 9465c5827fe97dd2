// Package dynamicsecret orchestrates the lifecycle of dynamic secret
// configurations: create, update, two-phase delete and list.
//
// Every operation follows the same shape (authorize, resolve the folder,
// then act) so an unauthorized caller learns nothing about folder existence
// and no encryption work is spent on requests that will be denied.
package dynamicsecret

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/systmms/leasevault/internal/crypto"
	"github.com/systmms/leasevault/internal/errors"
	"github.com/systmms/leasevault/internal/folders"
	"github.com/systmms/leasevault/internal/leases"
	"github.com/systmms/leasevault/internal/logging"
	"github.com/systmms/leasevault/internal/permissions"
	"github.com/systmms/leasevault/internal/pruner"
	"github.com/systmms/leasevault/internal/store"
	"github.com/systmms/leasevault/pkg/provider"
)

// inputSchemaVersion is the schema version written for newly stored inputs.
const inputSchemaVersion = 1

// ProviderRegistry resolves provider implementations by type.
type ProviderRegistry interface {
	Get(providerType string) (provider.Provider, error)
}

// Service is the dynamic secret orchestration core.
type Service struct {
	store       store.Store
	registry    ProviderRegistry
	codec       crypto.Codec
	folders     folders.Resolver
	leases      leases.Index
	scheduler   pruner.Scheduler
	permissions permissions.Checker
	logger      *logging.Logger
}

// New creates the service. All collaborators are required.
func New(
	st store.Store,
	registry ProviderRegistry,
	codec crypto.Codec,
	resolver folders.Resolver,
	index leases.Index,
	scheduler pruner.Scheduler,
	checker permissions.Checker,
	logger *logging.Logger,
) *Service {
	return &Service{
		store:       st,
		registry:    registry,
		codec:       codec,
		folders:     resolver,
		leases:      index,
		scheduler:   scheduler,
		permissions: checker,
		logger:      logger,
	}
}

// Scope names the project/environment/path a request operates in.
type Scope struct {
	ProjectID   string
	Environment string
	Path        string
}

// CreateRequest describes a new dynamic secret config.
type CreateRequest struct {
	Scope
	Slug         string
	ProviderType string
	Inputs       map[string]interface{}
	DefaultTTL   time.Duration
	MaxTTL       time.Duration
	Actor        permissions.Actor
}

// UpdateRequest is a partial update addressed by slug. Nil fields are left
// unchanged; InputsPatch is shallow-merged over the stored inputs.
type UpdateRequest struct {
	Scope
	Slug        string
	NewSlug     *string
	InputsPatch map[string]interface{}
	DefaultTTL  *time.Duration
	MaxTTL      *time.Duration
	Actor       permissions.Actor
}

// DeleteRequest addresses a config for deletion by slug.
type DeleteRequest struct {
	Scope
	Slug  string
	Actor permissions.Actor
}

// ListRequest addresses a folder's configs.
type ListRequest struct {
	Scope
	Actor permissions.Actor
}

// Create validates, encrypts and persists a new dynamic secret config. The
// returned config carries ciphertext only; callers never receive decrypted
// input from Create.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*store.DynamicSecretConfig, error) {
	folder, err := s.authorizeAndResolve(ctx, req.Actor, req.Scope, permissions.ActionCreateSecret)
	if err != nil {
		return nil, err
	}

	existing, err := s.findActiveBySlug(ctx, folder.ID, req.Slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.ConflictError{Slug: req.Slug, FolderID: folder.ID}
	}

	p, err := s.registry.Get(req.ProviderType)
	if err != nil {
		return nil, err
	}
	validated, err := p.ValidateInputs(ctx, req.Inputs)
	if err != nil {
		return nil, err
	}

	blob, err := s.sealInputs(validated)
	if err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, store.DynamicSecretConfig{
		FolderID:        folder.ID,
		Slug:            req.Slug,
		ProviderType:    req.ProviderType,
		Version:         inputSchemaVersion,
		InputCiphertext: blob.Ciphertext,
		InputIV:         blob.IV,
		InputTag:        blob.Tag,
		Algorithm:       blob.Algorithm,
		KeyEncoding:     blob.KeyEncoding,
		DefaultTTL:      req.DefaultTTL,
		MaxTTL:          req.MaxTTL,
		Status:          store.StatusActive,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("created dynamic secret %s (%s) in folder %s", created.Slug, created.ProviderType, folder.ID)
	return created, nil
}

// UpdateBySlug merges a patch over the stored provider inputs, re-validates
// the merged object through the same provider, re-encrypts, and persists
// the result together with TTLs and an optional rename.
//
// Concurrent updates to the same config race at the store's last-write-wins
// semantics; the decrypt-merge-encrypt sequence holds no lock.
func (s *Service) UpdateBySlug(ctx context.Context, req UpdateRequest) (*store.DynamicSecretConfig, error) {
	folder, err := s.authorizeAndResolve(ctx, req.Actor, req.Scope, permissions.ActionEditSecret)
	if err != nil {
		return nil, err
	}

	cfg, err := s.findActiveBySlug(ctx, folder.ID, req.Slug)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errors.NotFoundError{Message: "dynamic secret not found"}
	}

	if req.NewSlug != nil && *req.NewSlug != cfg.Slug {
		taken, err := s.findActiveBySlug(ctx, folder.ID, *req.NewSlug)
		if err != nil {
			return nil, err
		}
		if taken != nil {
			return nil, errors.ConflictError{Slug: *req.NewSlug, FolderID: folder.ID}
		}
	}

	stored, err := s.openInputs(cfg)
	if err != nil {
		// A blob that fails tag verification is a data-integrity fault; it
		// must surface rather than corrupt the merge.
		s.logger.Error("stored input for %s is unreadable: %v", cfg.ID, err)
		return nil, err
	}

	merged := make(map[string]interface{}, len(stored)+len(req.InputsPatch))
	for k, v := range stored {
		merged[k] = v
	}
	for k, v := range req.InputsPatch {
		merged[k] = v
	}

	p, err := s.registry.Get(cfg.ProviderType)
	if err != nil {
		return nil, err
	}
	validated, err := p.ValidateInputs(ctx, merged)
	if err != nil {
		return nil, err
	}

	blob, err := s.sealInputs(validated)
	if err != nil {
		return nil, err
	}

	update := store.Update{
		Slug:       req.NewSlug,
		DefaultTTL: req.DefaultTTL,
		MaxTTL:     req.MaxTTL,
		Input:      &blob,
	}
	updated, err := s.store.UpdateByID(ctx, cfg.ID, update)
	if err != nil {
		return nil, err
	}

	s.logger.Info("updated dynamic secret %s in folder %s", updated.Slug, folder.ID)
	return updated, nil
}

// DeleteBySlug runs the two-phase deletion state machine. With outstanding
// leases the config is flagged deleting and handed to the pruning scheduler;
// the call returns immediately and never blocks on lease teardown. With no
// leases the row is hard-deleted synchronously.
func (s *Service) DeleteBySlug(ctx context.Context, req DeleteRequest) (*store.DynamicSecretConfig, error) {
	folder, err := s.authorizeAndResolve(ctx, req.Actor, req.Scope, permissions.ActionEditSecret)
	if err != nil {
		return nil, err
	}

	cfg, err := s.findActiveBySlug(ctx, folder.ID, req.Slug)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errors.NotFoundError{Message: "dynamic secret not found"}
	}

	outstanding, err := s.leases.Find(ctx, leases.Filter{DynamicSecretID: cfg.ID})
	if err != nil {
		return nil, fmt.Errorf("listing leases for %s: %w", cfg.ID, err)
	}

	if len(outstanding) > 0 {
		// The status flip must land before the scheduler is signaled: if we
		// crash in between, the sweep finds the deleting config later.
		deleting := store.StatusDeleting
		flagged, err := s.store.UpdateByID(ctx, cfg.ID, store.Update{Status: &deleting})
		if err != nil {
			return nil, err
		}
		s.scheduler.PruneDynamicSecret(cfg.ID)
		s.logger.Info("dynamic secret %s has %d outstanding leases, scheduled for pruning", req.Slug, len(outstanding))
		return flagged, nil
	}

	deleted, err := s.store.DeleteByID(ctx, cfg.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("deleted dynamic secret %s from folder %s", req.Slug, folder.ID)
	return deleted, nil
}

// List returns every config in the folder, including those still in the
// deleting state. No decryption is performed.
func (s *Service) List(ctx context.Context, req ListRequest) ([]store.DynamicSecretConfig, error) {
	folder, err := s.authorizeAndResolve(ctx, req.Actor, req.Scope, permissions.ActionEditSecret)
	if err != nil {
		return nil, err
	}
	return s.store.Find(ctx, store.Filter{FolderID: folder.ID})
}

// authorizeAndResolve performs the shared authorize-then-resolve prefix.
// Authorization runs first so a denied caller cannot probe folder existence.
func (s *Service) authorizeAndResolve(ctx context.Context, actor permissions.Actor, scope Scope, action permissions.Action) (*folders.Folder, error) {
	perm, err := s.permissions.GetProjectPermission(ctx, actor, scope.ProjectID)
	if err != nil {
		return nil, err
	}
	subject := permissions.Subject{Environment: scope.Environment, SecretPath: scope.Path}
	if err := perm.Can(action, subject); err != nil {
		return nil, err
	}

	folder, err := s.folders.FindBySecretPath(ctx, scope.ProjectID, scope.Environment, scope.Path)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, errors.NotFoundError{Message: "folder not found"}
	}
	return folder, nil
}

// findActiveBySlug returns the non-deleted config with the slug, or nil.
// Deleting configs are invisible here: they accept no updates and their slug
// is free for reuse.
func (s *Service) findActiveBySlug(ctx context.Context, folderID, slug string) (*store.DynamicSecretConfig, error) {
	active := store.StatusActive
	return s.store.FindOne(ctx, store.Filter{FolderID: folderID, Slug: &slug, Status: &active})
}

// sealInputs serializes validated inputs to canonical JSON and encrypts
// them. Go's JSON encoder writes object members in sorted key order, which
// keeps the byte encoding stable across runs.
func (s *Service) sealInputs(inputs map[string]interface{}) (crypto.EncryptedBlob, error) {
	plaintext, err := json.Marshal(inputs)
	if err != nil {
		return crypto.EncryptedBlob{}, fmt.Errorf("encoding provider inputs: %w", err)
	}
	return s.codec.Encrypt(plaintext)
}

// openInputs decrypts and parses a config's stored inputs.
func (s *Service) openInputs(cfg *store.DynamicSecretConfig) (map[string]interface{}, error) {
	plaintext, err := s.codec.Decrypt(cfg.EncryptedInput())
	if err != nil {
		return nil, err
	}
	var inputs map[string]interface{}
	if err := json.Unmarshal(plaintext, &inputs); err != nil {
		return nil, crypto.DecryptionError{Reason: "decrypted input is not a JSON object", Err: err}
	}
	return inputs, nil
}
