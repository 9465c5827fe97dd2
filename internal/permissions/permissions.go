// Package permissions evaluates whether an actor may operate on secrets
// within a project scope.
//
// The engine treats authorization as an external collaborator: it asks for a
// project-scoped permission once per operation and checks the concrete
// capability before touching the folder tree or the store. A caller without
// permission therefore learns nothing about what exists.
package permissions

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/systmms/leasevault/internal/errors"
	"github.com/systmms/leasevault/internal/folders"
)

// Action is a capability on the secrets subject.
type Action string

const (
	// ActionCreateSecret gates dynamic secret creation.
	ActionCreateSecret Action = "create-secret"

	// ActionEditSecret gates update, delete and list.
	ActionEditSecret Action = "edit-secret"
)

// ActorType distinguishes the kinds of principal that can hold permissions.
type ActorType string

const (
	ActorUser     ActorType = "user"
	ActorIdentity ActorType = "identity"
)

// Actor identifies the principal performing an operation.
type Actor struct {
	Type       ActorType
	ID         string
	OrgID      string
	AuthMethod string
}

// Subject is the secrets scope a capability is checked against.
type Subject struct {
	Environment string
	SecretPath  string
}

func (s Subject) String() string {
	return fmt.Sprintf("secrets (env=%s, path=%s)", s.Environment, s.SecretPath)
}

// ProjectPermission is an actor's evaluated permission within one project.
type ProjectPermission interface {
	// Can returns nil when the action is allowed on the subject and
	// errors.ForbiddenError otherwise.
	Can(action Action, subject Subject) error
}

// Checker resolves an actor's permission for a project.
type Checker interface {
	GetProjectPermission(ctx context.Context, actor Actor, projectID string) (ProjectPermission, error)
}

// Rule is one allow entry evaluated by PolicyChecker. Empty Environment
// matches any environment; SecretPathPrefix is matched against the
// normalized path.
type Rule struct {
	ActorID          string
	ProjectID        string
	Actions          []Action
	Environment      string
	SecretPathPrefix string
}

// PolicyChecker is the reference Checker: a deny-by-default rule list.
type PolicyChecker struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewPolicyChecker creates a checker with no rules (everything denied).
func NewPolicyChecker() *PolicyChecker {
	return &PolicyChecker{}
}

// Allow registers an allow rule.
func (c *PolicyChecker) Allow(rule Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rule.SecretPathPrefix = folders.NormalizePath(rule.SecretPathPrefix)
	c.rules = append(c.rules, rule)
}

// GetProjectPermission returns the actor's permission scoped to projectID.
func (c *PolicyChecker) GetProjectPermission(ctx context.Context, actor Actor, projectID string) (ProjectPermission, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var scoped []Rule
	for _, rule := range c.rules {
		if rule.ActorID == actor.ID && rule.ProjectID == projectID {
			scoped = append(scoped, rule)
		}
	}
	return projectPermission{rules: scoped}, nil
}

type projectPermission struct {
	rules []Rule
}

func (p projectPermission) Can(action Action, subject Subject) error {
	path := folders.NormalizePath(subject.SecretPath)
	for _, rule := range p.rules {
		if !containsAction(rule.Actions, action) {
			continue
		}
		if rule.Environment != "" && rule.Environment != subject.Environment {
			continue
		}
		if !pathWithin(path, rule.SecretPathPrefix) {
			continue
		}
		return nil
	}
	return errors.ForbiddenError{Action: string(action), Subject: subject.String()}
}

// AllowAll is a ProjectPermission granting everything. Used by tests and the
// single-operator daemon wiring.
type AllowAll struct{}

func (AllowAll) Can(Action, Subject) error { return nil }

// AllowAllChecker returns AllowAll for every actor and project.
type AllowAllChecker struct{}

func (AllowAllChecker) GetProjectPermission(ctx context.Context, actor Actor, projectID string) (ProjectPermission, error) {
	return AllowAll{}, nil
}

func containsAction(actions []Action, action Action) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

// pathWithin reports whether path sits at or below prefix.
func pathWithin(path, prefix string) bool {
	if prefix == "/" || path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}
