package app

import (
	"errors"
	"fmt"
)

// ErrUnknownRelation is the cause of an ErrQuery when a schema or table is
// not present in the catalog listing.
var ErrUnknownRelation = errors.New("relation not in catalog")

// ErrConnection represents a database connection error.
type ErrConnection struct {
	Cause error
}

func (e *ErrConnection) Error() string {
	return fmt.Sprintf("connection error: %v", e.Cause)
}

func (e *ErrConnection) Unwrap() error {
	return e.Cause
}

// ErrQuery represents a query execution error.
type ErrQuery struct {
	Op    string
	Cause error
}

func (e *ErrQuery) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("query error: %v", e.Cause)
	}
	return fmt.Sprintf("query error: %s: %v", e.Op, e.Cause)
}

func (e *ErrQuery) Unwrap() error {
	return e.Cause
}

// ErrRender reports a row whose shape does not match the scan's header.
type ErrRender struct {
	Row    int
	Want   int
	Got    int
	Reason string
}

func (e *ErrRender) Error() string {
	if e.Reason != "" {
		return "render error: " + e.Reason
	}
	return fmt.Sprintf("render error: row %d has %d values, header has %d", e.Row, e.Got, e.Want)
}

// ErrNotFound reports a request path with an unsupported shape.
type ErrNotFound struct {
	Path string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("not found: %s", e.Path)
}

// ErrConfig represents a configuration error.
type ErrConfig struct {
	Cause error
}

func (e *ErrConfig) Error() string {
	return fmt.Sprintf("config error: %v", e.Cause)
}

func (e *ErrConfig) Unwrap() error {
	return e.Cause
}
