// Package errors provides structured error types for plank.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
)

// Code represents a unique error code.
type Code string

// Error codes for plank.
const (
	// Remote store errors
	CodeRemoteUnavailable Code = "REMOTE_UNAVAILABLE"
	CodeRemoteConstraint  Code = "REMOTE_CONSTRAINT"
	CodeRemoteNotFound    Code = "REMOTE_NOT_FOUND"
	CodeRemoteFailed      Code = "REMOTE_FAILED"
	CodeRevisionConflict  Code = "REVISION_CONFLICT"

	// Mirror errors
	CodeEntityNotFound   Code = "ENTITY_NOT_FOUND"
	CodeNoWorkspace      Code = "NO_WORKSPACE"
	CodeNotAuthenticated Code = "NOT_AUTHENTICATED"
	CodeInvalidInput     Code = "INVALID_INPUT"

	// Activity log errors (never surfaced to users)
	CodeActivityFailed Code = "ACTIVITY_FAILED"

	// Config errors
	CodeConfigInvalid Code = "CONFIG_INVALID"
	CodeConfigMissing Code = "CONFIG_MISSING"
)

// Category groups error codes for HTTP status mapping.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryNotFound
	CategoryBadRequest
	CategoryConflict
	CategoryInternal
	CategoryTimeout
	CategoryUnavailable
	CategoryUnauthorized
)

// codeCategories maps error codes to their categories.
var codeCategories = map[Code]Category{
	CodeRemoteUnavailable: CategoryUnavailable,
	CodeRemoteConstraint:  CategoryConflict,
	CodeRemoteNotFound:    CategoryNotFound,
	CodeRemoteFailed:      CategoryInternal,
	CodeRevisionConflict:  CategoryConflict,
	CodeEntityNotFound:    CategoryNotFound,
	CodeNoWorkspace:       CategoryBadRequest,
	CodeNotAuthenticated:  CategoryUnauthorized,
	CodeInvalidInput:      CategoryBadRequest,
	CodeActivityFailed:    CategoryInternal,
	CodeConfigInvalid:     CategoryBadRequest,
	CodeConfigMissing:     CategoryBadRequest,
}

// HTTPStatus returns the HTTP status code for a category.
func (c Category) HTTPStatus() int {
	switch c {
	case CategoryNotFound:
		return 404
	case CategoryBadRequest:
		return 400
	case CategoryUnauthorized:
		return 401
	case CategoryConflict:
		return 409
	case CategoryTimeout:
		return 504
	case CategoryUnavailable:
		return 503
	default:
		return 500
	}
}

// Class is the propagation class of a failure. Each class has its own
// handling rule in the store pipeline.
type Class int

const (
	// ClassUnknown is anything not produced by plank.
	ClassUnknown Class = iota
	// ClassTransport is a failed gateway call (network, auth, constraint).
	ClassTransport
	// ClassReferential is an operation targeting an id the mirror or store lacks.
	ClassReferential
	// ClassLogging is a failed activity insert or refetch.
	ClassLogging
	// ClassInput is a rejected argument (bad enum, out of range value).
	ClassInput
)

func (c Class) String() string {
	switch c {
	case ClassTransport:
		return "transport"
	case ClassReferential:
		return "referential"
	case ClassLogging:
		return "logging"
	case ClassInput:
		return "input"
	default:
		return "unknown"
	}
}

var codeClasses = map[Code]Class{
	CodeRemoteUnavailable: ClassTransport,
	CodeRemoteConstraint:  ClassTransport,
	CodeRemoteFailed:      ClassTransport,
	CodeRevisionConflict:  ClassTransport,
	CodeRemoteNotFound:    ClassReferential,
	CodeEntityNotFound:    ClassReferential,
	CodeNoWorkspace:       ClassReferential,
	CodeNotAuthenticated:  ClassReferential,
	CodeActivityFailed:    ClassLogging,
	CodeInvalidInput:      ClassInput,
	CodeConfigInvalid:     ClassInput,
	CodeConfigMissing:     ClassInput,
}

// PlankError is the structured error type for plank.
type PlankError struct {
	Code  Code   `json:"code"`
	What  string `json:"what"`
	Why   string `json:"why,omitempty"`
	Fix   string `json:"fix,omitempty"`
	Cause error  `json:"-"`
}

// Error implements the error interface.
func (e *PlankError) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *PlankError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly message for CLI output and notices.
func (e *PlankError) UserMessage() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString("\n\nWhy: ")
		b.WriteString(e.Why)
	}
	if e.Fix != "" {
		b.WriteString("\n\nFix: ")
		b.WriteString(e.Fix)
	}
	return b.String()
}

// Category returns the error category for HTTP status mapping.
func (e *PlankError) Category() Category {
	if cat, ok := codeCategories[e.Code]; ok {
		return cat
	}
	return CategoryUnknown
}

// Class returns the propagation class of the error.
func (e *PlankError) Class() Class {
	return codeClasses[e.Code]
}

// HTTPStatus returns the appropriate HTTP status code for this error.
func (e *PlankError) HTTPStatus() int {
	return e.Category().HTTPStatus()
}

// MarshalJSON implements json.Marshaler.
func (e *PlankError) MarshalJSON() ([]byte, error) {
	type alias PlankError
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// Is reports whether target is a PlankError with the same code.
func (e *PlankError) Is(target error) bool {
	t, ok := target.(*PlankError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *PlankError) WithCause(err error) *PlankError {
	return &PlankError{
		Code:  e.Code,
		What:  e.What,
		Why:   e.Why,
		Fix:   e.Fix,
		Cause: err,
	}
}

// APIError is the wire shape of a PlankError.
type APIError struct {
	Code string `json:"code"`
	What string `json:"what"`
	Why  string `json:"why,omitempty"`
	Fix  string `json:"fix,omitempty"`
}

// ToAPIError converts the error to its wire shape.
func (e *PlankError) ToAPIError() APIError {
	return APIError{Code: string(e.Code), What: e.What, Why: e.Why, Fix: e.Fix}
}

// Sentinels usable with errors.Is; only the Code is compared.
var (
	ErrRemoteUnavailable = &PlankError{Code: CodeRemoteUnavailable}
	ErrRemoteConstraint  = &PlankError{Code: CodeRemoteConstraint}
	ErrRemoteNotFound    = &PlankError{Code: CodeRemoteNotFound}
	ErrRevisionConflict  = &PlankError{Code: CodeRevisionConflict}
	ErrNotFound          = &PlankError{Code: CodeEntityNotFound}
	ErrNoWorkspace       = &PlankError{Code: CodeNoWorkspace}
	ErrNotAuthenticated  = &PlankError{Code: CodeNotAuthenticated}
	ErrInvalid           = &PlankError{Code: CodeInvalidInput}
)

// --- Error constructors ---

// ErrUnavailable returns an error for a remote store that could not be reached.
func ErrUnavailable(op string, cause error) *PlankError {
	return &PlankError{
		Code:  CodeRemoteUnavailable,
		What:  fmt.Sprintf("%s failed: remote store unavailable", op),
		Fix:   "Check the database connection settings and try again",
		Cause: cause,
	}
}

// ErrConstraint returns an error for a write rejected by a store constraint.
func ErrConstraint(op string, cause error) *PlankError {
	return &PlankError{
		Code:  CodeRemoteConstraint,
		What:  fmt.Sprintf("%s rejected by the remote store", op),
		Why:   "The row violates a uniqueness, reference or check constraint",
		Cause: cause,
	}
}

// ErrRemoteMissing returns an error when the remote row does not exist.
func ErrRemoteMissing(table, id string) *PlankError {
	return &PlankError{
		Code: CodeRemoteNotFound,
		What: fmt.Sprintf("%s %s not found in remote store", strings.TrimSuffix(table, "s"), id),
		Why:  "The row was removed by another session",
		Fix:  "Reload to refresh the local copy",
	}
}

// ErrRemote returns an error for any other remote failure.
func ErrRemote(op string, cause error) *PlankError {
	return &PlankError{
		Code:  CodeRemoteFailed,
		What:  fmt.Sprintf("%s failed", op),
		Cause: cause,
	}
}

// ErrStaleRevision returns an error when an embedded collection changed
// remotely since it was read.
func ErrStaleRevision(table, id string, base int) *PlankError {
	return &PlankError{
		Code: CodeRevisionConflict,
		What: fmt.Sprintf("%s %s was modified concurrently", strings.TrimSuffix(table, "s"), id),
		Why:  fmt.Sprintf("The change was based on revision %d, which is no longer current", base),
		Fix:  "Reload and apply the change again",
	}
}

// ErrEntityNotFound returns an error when an id is absent from the mirror.
func ErrEntityNotFound(kind, id string) *PlankError {
	return &PlankError{
		Code: CodeEntityNotFound,
		What: fmt.Sprintf("%s %s not found", kind, id),
		Why:  fmt.Sprintf("No %s with this ID is loaded for the current actor", kind),
		Fix:  "Reload, or check the ID with 'plank " + kind + " list'",
	}
}

// ErrNoWorkspaceAvailable returns an error when a project is created before
// any workspace exists.
func ErrNoWorkspaceAvailable() *PlankError {
	return &PlankError{
		Code: CodeNoWorkspace,
		What: "no workspace available",
		Why:  "Projects must belong to a workspace and none has been loaded yet",
		Fix:  "Wait for the initial load to complete, then retry",
	}
}

// ErrNoActor returns an error when a mutation runs without an actor.
func ErrNoActor() *PlankError {
	return &PlankError{
		Code: CodeNotAuthenticated,
		What: "no active actor",
		Why:  "Mutations are recorded against the current actor and none is set",
		Fix:  "Set actor.id in .plank/config.yaml or pass --actor",
	}
}

// ErrInvalidInput returns an error for a rejected argument.
func ErrInvalidInput(field, reason string) *PlankError {
	return &PlankError{
		Code: CodeInvalidInput,
		What: fmt.Sprintf("invalid %s", field),
		Why:  reason,
	}
}

// ErrActivity returns an error for a failed activity log write or refresh.
func ErrActivity(stage string, cause error) *PlankError {
	return &PlankError{
		Code:  CodeActivityFailed,
		What:  fmt.Sprintf("activity %s failed", stage),
		Cause: cause,
	}
}

// ErrConfigInvalid returns an error for invalid configuration.
func ErrConfigInvalid(field, reason string) *PlankError {
	return &PlankError{
		Code: CodeConfigInvalid,
		What: fmt.Sprintf("invalid configuration: %s", field),
		Why:  reason,
		Fix:  "Check .plank/config.yaml and fix the invalid field",
	}
}

// ErrConfigMissing returns an error for missing configuration.
func ErrConfigMissing(field string) *PlankError {
	return &PlankError{
		Code: CodeConfigMissing,
		What: fmt.Sprintf("missing required configuration: %s", field),
		Why:  "This field is required but not set in configuration",
		Fix:  fmt.Sprintf("Add '%s' to .plank/config.yaml", field),
	}
}

// AsPlankError attempts to convert an error to a PlankError.
// Returns nil if the error is not a PlankError.
func AsPlankError(err error) *PlankError {
	var pe *PlankError
	if stderrors.As(err, &pe) {
		return pe
	}
	return nil
}

// Classify returns the propagation class of err.
func Classify(err error) Class {
	if pe := AsPlankError(err); pe != nil {
		return pe.Class()
	}
	return ClassUnknown
}

// Is is a convenience wrapper for errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// Wrap wraps a generic error into a PlankError with unknown code.
func Wrap(err error, what string) *PlankError {
	return &PlankError{
		Code:  Code("UNKNOWN"),
		What:  what,
		Cause: err,
	}
}
