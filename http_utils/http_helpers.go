package http_utils

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// ValidationFailure turns a binding/validation error into the response body sent to the client.
func ValidationFailure(err error) ValidationErrorResponse {
	response := ValidationErrorResponse{
		BaseResponse: BaseResponse{
			Success: false,
			Message: "invalid body, validation failed",
		},
		Errors: []string{err.Error()},
	}

	var fieldErrors validator.ValidationErrors

	if errors.As(err, &fieldErrors) {
		response.Errors = lo.Map(fieldErrors, func(item validator.FieldError, index int) string {
			return item.Error()
		})
	}

	return response
}
