package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a fatal extraction error
type ErrorKind string

const (
	KindInvalidInput   ErrorKind = "InvalidInput"
	KindNotFound       ErrorKind = "NotFound"
	KindUnreadableFile ErrorKind = "UnreadableFile"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("file not found")
	ErrUnreadableFile = errors.New("unreadable audio file")

	// ErrNoTags is returned by a TagReader when the container carries no tag block
	// or is a format the reader does not parse.
	ErrNoTags = errors.New("no tags found")

	// ErrCorruptContainer is returned by a TagReader when the parser gave up on a
	// damaged container.
	ErrCorruptContainer = errors.New("corrupt container")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindNotFound:
		return ErrNotFound
	default:
		return ErrUnreadableFile
	}
}

// ExtractError is returned by Extract for the failures that are not absorbed into a fallback tier.
// It matches its kind's sentinel with errors.Is and unwraps to the cause.
type ExtractError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func newExtractError(kind ErrorKind, path string, err error) *ExtractError {
	return &ExtractError{Kind: kind, Path: path, Err: err}
}

func (e *ExtractError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Kind.sentinel(), e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Kind.sentinel(), e.Path, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

func (e *ExtractError) Is(target error) bool {
	return target == e.Kind.sentinel()
}
