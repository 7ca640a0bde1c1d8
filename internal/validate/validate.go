// Package validate holds the shared declarative validator. Entity schemas
// live as struct tags on the domain types; this package adds the custom
// tags and folds validator failures into the app error taxonomy.
package validate

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Nibir1/Nexus-Marine/internal/apperr"
)

// New returns a validator with the iso8601 tag registered. Failures report
// the json wire name of a field, not its Go name.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Timestamps arrive as strings and must parse as ISO-8601 / RFC 3339.
	_ = v.RegisterValidation("iso8601", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.RFC3339, fl.Field().String())
		return err == nil
	})

	return v
}

// Struct validates s and converts any failure into a ValidationError with
// field-level causes.
func Struct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.NewValidationError("input", err.Error())
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()

		switch fe.Tag() {
		case "required":
			fields[field] = fmt.Sprintf("%s is required", field)
		case "min":
			fields[field] = fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		case "gt":
			fields[field] = fmt.Sprintf("%s must be greater than %s", field, fe.Param())
		case "gte":
			fields[field] = fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
		case "lte":
			fields[field] = fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
		case "oneof":
			fields[field] = fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
		case "iso8601":
			fields[field] = fmt.Sprintf("%s must be a valid ISO-8601 timestamp", field)
		default:
			fields[field] = fmt.Sprintf("%s is invalid", field)
		}
	}

	return &apperr.ValidationError{Fields: fields}
}
