package common

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validate checks struct tags on a request payload and converts failures into
// a VALIDATION_ERROR AppError listing the offending fields.
func Validate(v any) error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fields []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields = append(fields, strings.ToLower(fe.Field()))
		}
	}
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "invalid request payload",
		HTTPStatus: 400,
		Err:        err,
		Details:    map[string]any{"fields": fields},
	}
}
