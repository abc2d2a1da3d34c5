package httputil

import (
	"context"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/medflow/drug-warehouse/pkg/errors"
	"github.com/medflow/drug-warehouse/pkg/i18n"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate validates a struct and reports failures in the default locale
func Validate(v interface{}) error {
	return ValidateContext(context.Background(), v)
}

// ValidateContext validates a struct and localizes field messages for the request locale
func ValidateContext(ctx context.Context, v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.BadRequest(err.Error())
	}

	localizer := i18n.LocalizerFromContext(ctx)
	details := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		details[e.Field()] = formatValidationError(localizer, e)
	}

	return errors.Validation(details)
}

func formatValidationError(l *i18n.Localizer, e validator.FieldError) string {
	params := map[string]string{"param": e.Param()}
	switch e.Tag() {
	case "required", "gt", "gte", "lte", "max", "uuid", "oneof":
		return l.T("validation."+e.Tag(), params)
	case "datetime":
		return l.T("validation.date", params)
	default:
		return l.T("validation.invalid")
	}
}

