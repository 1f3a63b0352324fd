// Package schema decodes request bodies strictly and validates them with
// go-playground/validator. Field errors come back as *shared.ValidationError
// keyed by the JSON field name.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/domain/tenant"
	"subastas-marketplace/internal/domain/user"
)

// Validator wraps go-playground/validator so Echo can call c.Validate(req)
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with the marketplace tags registered
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	// decimal.Decimal compares numerically under gt/gte/lt
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("cl_phone", func(fl validator.FieldLevel) bool {
		return user.ValidPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("subdomain", func(fl validator.FieldLevel) bool {
		return tenant.ValidDomain(tenant.NormalizeDomain(fl.Field().String()))
	})

	return &Validator{v: v}
}

// Validate satisfies the echo.Validator interface
func (sv *Validator) Validate(i interface{}) error {
	err := sv.v.Struct(i)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", shared.ErrInvalidRequest, err)
	}

	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fieldName(fe)] = fieldError(fe)
	}
	return shared.NewValidationError(fields)
}

// Decode reads exactly one JSON document from r into dst, rejecting
// unknown fields and trailing data, then validates dst
func (sv *Validator) Decode(r io.Reader, dst interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return shared.NewValidationError(map[string]string{"body": "body must contain a single JSON object"})
	}
	return sv.Validate(dst)
}

// DecodeBytes is Decode over an in-memory payload
func (sv *Validator) DecodeBytes(data []byte, dst interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return shared.NewValidationError(map[string]string{"body": "body is required"})
	}
	return sv.Decode(bytes.NewReader(data), dst)
}

func decodeError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.Is(err, io.EOF):
		return shared.NewValidationError(map[string]string{"body": "body is required"})
	case errors.As(err, &syntaxErr):
		return shared.NewValidationError(map[string]string{"body": fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)})
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return shared.NewValidationError(map[string]string{field: fmt.Sprintf("%s must be %s", field, typeErr.Type)})
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		name := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return shared.NewValidationError(map[string]string{name: name + " is not allowed"})
	default:
		return shared.NewValidationError(map[string]string{"body": err.Error()})
	}
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// fieldError converts a single FieldError into a human-readable message
func fieldError(fe validator.FieldError) string {
	field := fieldName(fe)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "uuid", "uuid4":
		return field + " must be a valid UUID"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be after %s", field, strings.ToLower(fe.Param()))
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "cl_phone":
		return field + " must match +569XXXXXXXX or +562XXXXXXXX"
	case "subdomain":
		return field + " must be a single DNS label"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
