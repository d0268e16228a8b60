// Package errors carries classified error values through the store
// pipeline. Every fatal failure is wrapped with a category, a stable
// code, and a hint so the CLI boundary can map it to an exit status
// without parsing message text.
package errors

import "errors"

type Category string

const (
	CategoryInvalidInput  Category = "invalid_input"
	CategoryNotFound      Category = "not_found"
	CategoryParseFailed   Category = "parse_failed"
	CategoryAuthorization Category = "authorization"
	CategorySizeExceeded  Category = "size_exceeded"
	CategoryStoreFailed   Category = "store_failed"
	CategoryIOFailure     Category = "io_failure"
	CategoryInternal      Category = "internal_failure"
)

type classifiedError struct {
	category Category
	code     string
	hint     string
	cause    error
}

func (e *classifiedError) Error() string {
	if e.cause == nil {
		return "unknown error"
	}
	return e.cause.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}

// Wrap classifies cause. A nil cause returns nil so call sites can wrap
// unconditionally.
func Wrap(cause error, category Category, code, hint string) error {
	if cause == nil {
		return nil
	}
	return &classifiedError{
		category: category,
		code:     code,
		hint:     hint,
		cause:    cause,
	}
}

// New classifies a fresh error built from message.
func New(message string, category Category, code, hint string) error {
	return Wrap(errors.New(message), category, code, hint)
}

func CategoryOf(err error) Category {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.category
	}
	return ""
}

func CodeOf(err error) string {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.code
	}
	return ""
}

func HintOf(err error) string {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.hint
	}
	return ""
}
