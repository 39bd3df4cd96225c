// Package validation checks request DTOs with go-playground/validator and
// reports failures as domain validation errors.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "proofpass/pkg/domain-errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Struct validates v. Field failures become a CodeValidation error whose
// details map each field to the rule it broke.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid input")
	}
	fields := make([]string, 0, len(fieldErrs))
	out := dErrors.New(dErrors.CodeValidation, "")
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field())
		out.WithDetail(fe.Field(), rule(fe))
	}
	out.Message = "invalid " + strings.Join(fields, ", ")
	return out
}

func rule(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
