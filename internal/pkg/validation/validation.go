// Package validation runs struct tag validation on request payloads.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// FieldError is one failed rule on one field
type FieldError struct {
	Field string
	Tag   string
	Param string
}

func (f FieldError) message() string {
	switch f.Tag {
	case "required":
		return f.Field + " is required"
	case "email":
		return f.Field + " must be a valid email"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", f.Field, f.Param)
	case "min":
		return fmt.Sprintf("%s must be at least %s", f.Field, f.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", f.Field, f.Param)
	}
	return f.Field + " is invalid"
}

// Errors collects every failed rule of a struct
type Errors []FieldError

func (e Errors) Error() string {
	var missing, other []string
	for _, f := range e {
		if f.Tag == "required" {
			missing = append(missing, f.Field)
			continue
		}
		other = append(other, f.message())
	}
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "All fields are required (missing: "+strings.Join(missing, ", ")+")")
	}
	parts = append(parts, other...)
	return strings.Join(parts, "; ")
}

// Has reports whether field failed the given tag
func (e Errors) Has(field, tag string) bool {
	for _, f := range e {
		if f.Field == field && f.Tag == tag {
			return true
		}
	}
	return false
}

// Struct validates s and returns Errors when any rule fails
func Struct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()})
	}
	return out
}
