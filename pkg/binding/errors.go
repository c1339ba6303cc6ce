package binding

import (
	"errors"
	"fmt"
)

var ErrUnknownResource = errors.New("Unknown table resource")

type UnknownResourceError struct {
	Tag string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("no backend registered for table tag %q", e.Tag)
}

func (e *UnknownResourceError) Unwrap() error {
	return ErrUnknownResource
}

var ErrInvalidScope = errors.New("Invalid scope")

type InvalidScopeError struct {
	Context string
}

func (e *InvalidScopeError) Error() string {
	return fmt.Sprintf("invalid scope: %s", e.Context)
}

func (e *InvalidScopeError) Unwrap() error {
	return ErrInvalidScope
}

// Transient fetch errors are absorbed by the binding: the previous rows stay
// on the scope and the next explicit refresh tries again.
var ErrTransientFetch = errors.New("Transient fetch error")

type TransientFetchError struct {
	Tag string
	Err error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("fetching %q: %s", e.Tag, e.Err.Error())
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

func NewTransientFetchError(tag string, err error) error {
	return fmt.Errorf("%w: %w", ErrTransientFetch, &TransientFetchError{
		Tag: tag,
		Err: err,
	})
}
