// Package errors provides the application's error taxonomy: kind-tagged
// error types for the cache, the tool registry and the worker pool, with
// consistent wrapping so callers can branch on kind or unwrap the cause.
package errors

import (
	"errors"
	"fmt"
)

// Re-exports so callers need only one errors import.
var (
	Unwrap = errors.Unwrap
	Is     = errors.Is
	As     = errors.As
	New    = errors.New
)

// ErrorKind classifies an application error.
type ErrorKind int

const (
	Unknown ErrorKind = iota
	// Cache error kinds
	CacheCorrupt
	CacheForeign
	CacheMiss
	// Tool error kinds
	ToolMissing
	ToolFailed
	// Worker error kinds
	WorkerCrash
	WorkerProtocol
	JobTimeout
	// Configuration and input error kinds
	InvalidConfig
	InvalidPath
	InvalidUsage
)

// ApplicationError is the base type for all kind-tagged errors.
type ApplicationError struct {
	msg  string
	err  error
	kind ErrorKind
}

// NewApplicationError creates a kind-tagged error with no extra context.
func NewApplicationError(msg string, kind ErrorKind, err error) *ApplicationError {
	return &ApplicationError{msg: msg, err: err, kind: kind}
}

// Error returns the error message.
func (e *ApplicationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap returns the wrapped error.
func (e *ApplicationError) Unwrap() error {
	return e.err
}

// Kind returns the kind of error.
func (e *ApplicationError) Kind() ErrorKind {
	return e.kind
}

// KindOf extracts the kind from any error in the chain, or Unknown.
func KindOf(err error) ErrorKind {
	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Kind()
	}
	var cacheErr *CacheError
	if errors.As(err, &cacheErr) {
		return cacheErr.Kind()
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Kind()
	}
	var workerErr *WorkerError
	if errors.As(err, &workerErr) {
		return workerErr.Kind()
	}
	return Unknown
}

// CacheError represents failures of the on-disk result store.
type CacheError struct {
	ApplicationError
}

// NewCacheError creates a cache error.
func NewCacheError(msg string, kind ErrorKind, err error) *CacheError {
	return &CacheError{ApplicationError{msg: msg, err: err, kind: kind}}
}

// ToolError represents failures tied to one analyzer tool.
type ToolError struct {
	ApplicationError
	tool string
}

// NewToolError creates a tool error.
func NewToolError(msg, tool string, kind ErrorKind, err error) *ToolError {
	return &ToolError{ApplicationError{msg: msg, err: err, kind: kind}, tool}
}

// Error includes the tool name when present.
func (e *ToolError) Error() string {
	if e.tool != "" {
		return fmt.Sprintf("%s: %s", e.tool, e.ApplicationError.Error())
	}
	return e.ApplicationError.Error()
}

// Tool returns the tool the error belongs to.
func (e *ToolError) Tool() string {
	return e.tool
}

// WorkerError represents worker process failures.
type WorkerError struct {
	ApplicationError
}

// NewWorkerError creates a worker error.
func NewWorkerError(msg string, kind ErrorKind, err error) *WorkerError {
	return &WorkerError{ApplicationError{msg: msg, err: err, kind: kind}}
}
