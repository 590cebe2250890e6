package vfs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/gitdrive/internal/objectstore"
	"github.com/GriffinCanCode/gitdrive/internal/settings"
	"github.com/GriffinCanCode/gitdrive/internal/vfs/codec"
	"github.com/GriffinCanCode/gitdrive/internal/vfs/pathutil"
)

var (
	ErrInvalidPath     = pathutil.ErrInvalidPath
	ErrInvalidName     = pathutil.ErrInvalidName
	ErrNotConfigured   = settings.ErrNotConfigured
	ErrPayloadTooLarge = codec.ErrPayloadTooLarge
	ErrNotFound        = objectstore.ErrNotFound
	ErrConflict        = objectstore.ErrConflict

	ErrIsDirectory  = errors.New("path is a directory")
	ErrNotDirectory = errors.New("path is not a directory")
)

// PathError records a failed step of a tree operation.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error { return e.Err }

// AggregateError is returned by recursive operations that continued past
// individual failures. Every failed path is listed once.
type AggregateError struct {
	Op       string
	Path     string
	Failures []*PathError
}

func (e *AggregateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %d failure(s)", e.Op, e.Path, len(e.Failures))
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "; %s", f.Error())
	}
	return b.String()
}

func (e *AggregateError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// FailedPaths lists the paths that could not be processed.
func (e *AggregateError) FailedPaths() []string {
	out := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.Path
	}
	return out
}

// DuplicateWarning means a rename wrote the new location but the old one
// could not be removed, so the content now exists twice.
type DuplicateWarning struct {
	Old   string
	New   string
	Cause error
}

func (w *DuplicateWarning) Error() string {
	return fmt.Sprintf("copied %s to %s but could not remove the original: %v", w.Old, w.New, w.Cause)
}

func (w *DuplicateWarning) Unwrap() error { return w.Cause }

// IsWarning reports whether err signals a completed operation with leftovers.
func IsWarning(err error) bool {
	var w *DuplicateWarning
	return errors.As(err, &w)
}

// AsAggregate extracts an AggregateError from err.
func AsAggregate(err error) (*AggregateError, bool) {
	var agg *AggregateError
	ok := errors.As(err, &agg)
	return agg, ok
}

type failures struct {
	list []*PathError
}

func (f *failures) add(op, path string, err error) {
	f.list = append(f.list, &PathError{Op: op, Path: path, Err: err})
}

func (f *failures) err(op, path string) error {
	if len(f.list) == 0 {
		return nil
	}
	return &AggregateError{Op: op, Path: path, Failures: f.list}
}
