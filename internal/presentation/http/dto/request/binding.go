package request

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sangkips/caja-api/pkg/apperror"
)

var configureOnce sync.Once

// ConfigureBinding makes JSON binding reject unknown fields and report
// validation errors by their JSON names.
func ConfigureBinding() {
	configureOnce.Do(func() {
		binding.EnableDecoderDisallowUnknownFields = true

		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(func(fld reflect.StructField) string {
				name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
				if name == "-" || name == "" {
					return fld.Name
				}
				return name
			})
		}
	})
}

// BindError converts a binding failure into a 400 validation error
func BindError(err error) *apperror.AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apperror.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apperror.FieldError{Field: fe.Field(), Message: describe(fe)})
		}
		return apperror.NewValidationError("Validation failed", fields...)
	}
	return apperror.NewValidationError("Invalid request body: " + err.Error())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "gt":
		return "must be greater than " + fe.Param()
	}
	return "failed on " + fe.Tag()
}
