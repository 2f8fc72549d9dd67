package response

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the envelope for all JSON payloads returned by the API.
type Response struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
	Data    any               `json:"data,omitempty"`
}

type validationError struct {
	Field string `json:"field"`
	Value string `json:"value"`
	Issue string `json:"issue"`
}

var EmptyRequestBodyResponse = Response{
	Status:  StatusError,
	Message: "Request body is empty. Please provide necessary data.",
}

var BadRequestResponse = Response{
	Status:  StatusError,
	Message: "The request could not be understood. Please check the data and try again.",
}

var ResourceNotFoundResponse = Response{
	Status:  StatusError,
	Message: "The requested resource was not found.",
}

var ServerErrorResponse = Response{
	Status:  StatusError,
	Message: "An internal server error occurred. Please try again later.",
}

// SuccessResponse builds a success envelope with an optional data payload.
// Only the first data argument is used.
func SuccessResponse(msg string, data ...any) Response {
	resp := Response{
		Status:  StatusSuccess,
		Message: msg,
	}

	if len(data) > 0 && data[0] != nil {
		resp.Data = data[0]
	}

	return resp
}

// ErrorResponse builds an error envelope with a custom message, used for
// failures that carry a distinguishing description such as expired links.
func ErrorResponse(msg string) Response {
	return Response{
		Status:  StatusError,
		Message: msg,
	}
}

// RateLimitExceededResponse describes the violated tier of a rejected request.
func RateLimitExceededResponse(tier string) Response {
	return ErrorResponse(fmt.Sprintf("Rate limit exceeded: %s. Please try again later.", tier))
}

// ValidationErrorResponse converts validator errors into a response listing
// each offending field.
func ValidationErrorResponse(err error) Response {
	return Response{
		Status:  StatusError,
		Message: "The request contains invalid data.",
		Errors:  getValidationErrors(err),
	}
}

func getValidationErrors(err error) []validationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	errs := make([]validationError, 0, len(verrs))

	for _, verr := range verrs {
		issue := "Invalid value."

		switch verr.Tag() {
		case "required":
			issue = "This field is required."
		case "url":
			issue = "Invalid url."
		}

		errs = append(errs, validationError{
			Field: verr.Field(),
			Value: fmt.Sprintf("%v", verr.Value()),
			Issue: issue,
		})
	}

	return errs
}
