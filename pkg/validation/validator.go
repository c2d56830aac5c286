// Package validation checks request and command structs against their
// `validate` struct tags and reports failures as *errors.ValidationErrors.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"snippets-backend/domain/core/valueobjects"
	"snippets-backend/pkg/errors"
)

// Validator wraps a configured go-playground validator
type Validator struct {
	validate *validator.Validate
}

var (
	instance *Validator
	once     sync.Once
)

// GetValidator returns the shared validator instance
func GetValidator() *Validator {
	once.Do(func() {
		instance = NewValidator()
	})
	return instance
}

// NewValidator creates a validator with the snippet rules registered
func NewValidator() *Validator {
	v := &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}

	// report json field names
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.validate.RegisterValidation("provenance", func(fl validator.FieldLevel) bool {
		return valueobjects.Provenance(fl.Field().String()).IsValid()
	})

	return v
}

// Struct validates s and returns *errors.ValidationErrors listing every
// failed tag, or nil
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	ve := errors.NewValidationErrors()
	for _, fe := range fieldErrors {
		ve.AddRule(fieldPath(fe), strings.ToUpper(fe.Tag()), message(fe))
	}
	return ve
}

// Struct validates s with the shared validator
func Struct(s interface{}) error {
	return GetValidator().Struct(s)
}

// fieldPath drops the top-level struct name from the namespace
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s items", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must have at most %s items", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "provenance":
		return fmt.Sprintf("%s must be local or remote", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
