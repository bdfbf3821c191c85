package contract

import (
	"errors"
	"reflect"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("arg"); name != "" {
			return name
		}
		return fld.Name
	})
	_ = validate.RegisterValidation("xmltext", func(fl validator.FieldLevel) bool {
		return ValidText(fl.Field().String())
	})
}

// ValidText reports whether s is valid UTF-8 made only of characters an XML
// 1.0 document can carry.
func ValidText(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if !isXMLChar(r) {
			return false
		}
	}
	return true
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}

// CheckText returns an InvalidArgumentError for field when s is not
// ValidText.
func CheckText(field, s string) error {
	if !ValidText(s) {
		return &InvalidArgumentError{Field: field, Reason: textReason}
	}
	return nil
}

const textReason = "contains characters that cannot be encoded"

// ValidateStruct checks constructor arguments declared with `validate` tags
// and reports the first failure as an InvalidArgumentError.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &InvalidArgumentError{Field: fe.Field(), Reason: describe(fe)}
	}
	return &InvalidArgumentError{Reason: err.Error()}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	case "xmltext":
		return textReason
	}
	return "failed " + fe.Tag() + " check"
}

// Hash folds the given fields into a single 64-bit value. Fields are
// separated so that ("ab","c") and ("a","bc") differ.
func Hash(fields ...string) uint64 {
	d := xxhash.New()
	for _, f := range fields {
		_, _ = d.WriteString(f)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}

// HashBool returns the field form of b used by Hash callers.
func HashBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
