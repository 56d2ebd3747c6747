package types

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for common failure modes.
var (
	ErrEmptyResponse = errors.New("empty response body")
	ErrBodyTooLarge  = errors.New("response body exceeds size limit")
	ErrInvalidURL    = errors.New("invalid URL")
	ErrRunStopped    = errors.New("run has been stopped")

	ErrSegmentNotFound   = errors.New("data segment declaration not found")
	ErrDuplicateSegment  = errors.New("more than one data segment declaration")
	ErrShapeDeclaration  = errors.New("shape declaration missing or duplicated")
	ErrBracketImbalance  = errors.New("bracket balance changed outside data segment")
	ErrUnterminatedArray = errors.New("data segment array is not terminated")
	ErrArtifactLocked    = errors.New("artifact is locked by another run")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Kind       FailureKind
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError wraps errors that occur during parsing.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Selector == "" {
		return fmt.Sprintf("parse error for %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// InputError reports a malformed interchange file.
type InputError struct {
	File string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input file %s: %v", e.File, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// PatchError wraps a failure at one stage of patching the artifact.
type PatchError struct {
	Stage string
	Path  string
	Err   error
}

func (e *PatchError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("patch error at stage %q: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("patch error at stage %q for %s: %v", e.Stage, e.Path, e.Err)
}

func (e *PatchError) Unwrap() error { return e.Err }

// ClassifyFailure maps an error from the detail pass to a FailureKind.
func ClassifyFailure(err error) FailureKind {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Kind != "" {
		return fe.Kind
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return FailureParse
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	if errors.Is(err, context.Canceled) {
		return FailureCanceled
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureNetwork
}

// PipelineError wraps a middleware failure for one record.
type PipelineError struct {
	Stage string
	URL   string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q for %s: %v", e.Stage, e.URL, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
