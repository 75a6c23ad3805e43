package agents

import (
	"errors"
	"fmt"
)

// Sentinel errors for matching with errors.Is.
var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrMissingField     = errors.New("missing field")
	ErrUpstreamTimeout  = errors.New("upstream timeout")
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrMalformedRequest = errors.New("malformed request")
	ErrNotRegistered    = errors.New("agent not registered")
)

// TemplateNotFoundError reports an agent type missing from the catalog.
type TemplateNotFoundError struct {
	Type string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("unknown agent type: %s", e.Type)
}

func (e *TemplateNotFoundError) Is(target error) bool {
	return target == ErrTemplateNotFound
}

// MissingFieldError reports a required field absent from an input record.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// UpstreamError wraps a failed call to a text generation provider.
type UpstreamError struct {
	Provider string
	Timeout  bool
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("text generation via %s timed out: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("text generation via %s failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	if e.Timeout {
		return target == ErrUpstreamTimeout
	}
	return target == ErrUpstreamFailure
}

// MalformedRequest wraps a request decoding failure.
func MalformedRequest(err error) error {
	if err == nil {
		return ErrMalformedRequest
	}
	return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
}
