// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package apperr defines the error kinds returned by Folio's services.
// Handlers translate each kind into a user-facing response: validation
// errors become inline form messages, not-found errors a 404, authorization
// errors a login redirect or 403, and storage errors a generic retry message.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind labels used in logs and metrics.
const (
	KindOK            = "ok"
	KindValidation    = "validation"
	KindNotFound      = "not_found"
	KindAuthorization = "authorization"
	KindStorage       = "storage"
	KindInternal      = "internal"
)

// ValidationError reports one or more field-level contract violations.
// Fields maps a form field name to the message shown next to it.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a message for field, keeping the first message per field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Empty reports whether no field has been flagged.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// OrNil returns e when at least one field was flagged, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

// NotFoundError reports that a referenced record does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// AuthorizationError reports that the requester may not perform an action.
// Authenticated is false when no identity was supplied at all.
type AuthorizationError struct {
	Authenticated bool
	Reason        string
}

func (e *AuthorizationError) Error() string {
	if !e.Authenticated {
		return "authentication required"
	}
	return "forbidden: " + e.Reason
}

// StorageError wraps an unexpected failure from the persistence layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Invalid returns a ValidationError for a single field.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// NotFound returns a NotFoundError for the given resource and id.
func NotFound(resource string, id fmt.Stringer) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id.String()}
}

// Unauthenticated returns an AuthorizationError for anonymous requesters.
func Unauthenticated() *AuthorizationError {
	return &AuthorizationError{Authenticated: false}
}

// Forbidden returns an AuthorizationError for an authenticated requester
// lacking ownership.
func Forbidden(reason string) *AuthorizationError {
	return &AuthorizationError{Authenticated: true, Reason: reason}
}

// Storage wraps err as a StorageError. A nil err stays nil, and errors that
// already carry a kind pass through unchanged.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != KindInternal {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// AsValidation extracts a ValidationError from err's chain.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	ok := errors.As(err, &v)
	return v, ok
}

// AsAuthorization extracts an AuthorizationError from err's chain.
func AsAuthorization(err error) (*AuthorizationError, bool) {
	var a *AuthorizationError
	ok := errors.As(err, &a)
	return a, ok
}

// IsNotFound reports whether err's chain contains a NotFoundError.
func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

// Kind classifies err into one of the Kind* labels.
func Kind(err error) string {
	if err == nil {
		return KindOK
	}
	var (
		v *ValidationError
		n *NotFoundError
		a *AuthorizationError
		s *StorageError
	)
	switch {
	case errors.As(err, &v):
		return KindValidation
	case errors.As(err, &n):
		return KindNotFound
	case errors.As(err, &a):
		return KindAuthorization
	case errors.As(err, &s):
		return KindStorage
	default:
		return KindInternal
	}
}
