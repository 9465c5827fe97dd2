// Package errors defines the error taxonomy shared by the dynamic secret
// engine. Every public service operation fails with one of these kinds (or
// with the provider/crypto errors defined next to their contracts), so
// callers can map failures to a response without string matching.
package errors

import (
	"errors"
	"fmt"
)

// ForbiddenError indicates the actor lacks the capability required for an
// operation. It is returned before any folder lookup or store access, so a
// denied caller learns nothing about what exists.
type ForbiddenError struct {
	Action  string
	Subject string
}

func (e ForbiddenError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("forbidden: missing %s capability on %s", e.Action, e.Subject)
	}
	return fmt.Sprintf("forbidden: missing %s capability", e.Action)
}

// NotFoundError indicates a folder or dynamic secret config is absent.
type NotFoundError struct {
	Message string
}

func (e NotFoundError) Error() string {
	if e.Message == "" {
		return "not found"
	}
	return e.Message
}

// ConflictError indicates a slug collision within a folder. Callers should
// pick another slug; the operation left no partial state behind.
type ConflictError struct {
	Slug     string
	FolderID string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("dynamic secret with slug %q already exists in folder %s", e.Slug, e.FolderID)
}

// IsForbidden reports whether err is a ForbiddenError.
func IsForbidden(err error) bool {
	var fe ForbiddenError
	return errors.As(err, &fe)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce ConflictError
	return errors.As(err, &ce)
}
