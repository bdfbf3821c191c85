package contract

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a constructor or decoder in this module
// unwraps to exactly one of these.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrWrongElementType = errors.New("wrong element type")
	ErrMissingElement   = errors.New("missing element")
	ErrInvalidAttribute = errors.New("invalid attribute")
)

// InvalidArgumentError reports a contract violation by the caller: an empty
// required value, an unknown code, a non-positive port.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidArgument, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrInvalidArgument, e.Field, e.Reason)
}

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

// WrongElementTypeError is returned when a decoder is handed an element whose
// tag is not the one it expects.
type WrongElementTypeError struct {
	Expected string
	Actual   string
}

func (e *WrongElementTypeError) Error() string {
	return fmt.Sprintf("%s: expected <%s>, got <%s>", ErrWrongElementType, e.Expected, e.Actual)
}

func (e *WrongElementTypeError) Unwrap() error { return ErrWrongElementType }

// MissingElementError names a required attribute or child that is absent.
type MissingElementError struct {
	Name string
}

func (e *MissingElementError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingElement, e.Name)
}

func (e *MissingElementError) Unwrap() error { return ErrMissingElement }

// InvalidAttributeError names an attribute that is present but cannot be
// parsed to its expected type or range.
type InvalidAttributeError struct {
	Name  string
	Value string
}

func (e *InvalidAttributeError) Error() string {
	return fmt.Sprintf("%s: %s=%q", ErrInvalidAttribute, e.Name, e.Value)
}

func (e *InvalidAttributeError) Unwrap() error { return ErrInvalidAttribute }

// Invalid builds an InvalidArgumentError.
func Invalid(field, reason string) error {
	return &InvalidArgumentError{Field: field, Reason: reason}
}

// Required returns an InvalidArgumentError for a nil composite argument.
func Required(field string) error {
	return &InvalidArgumentError{Field: field, Reason: "is required"}
}

// AttributeError converts a constructor failure raised while decoding el into
// the malformed-structure kind, naming the offending attribute.
func AttributeError(el interface{ SelectAttrValue(string, string) string }, err error) error {
	var ia *InvalidArgumentError
	if errors.As(err, &ia) {
		return &InvalidAttributeError{Name: ia.Field, Value: el.SelectAttrValue(ia.Field, "")}
	}
	return err
}
