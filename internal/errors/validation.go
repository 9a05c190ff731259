package errors

import "net/http"

var ErrValidation = &Exception{
	Message:    "validation failed",
	StatusCode: http.StatusBadRequest,
}

func NewValidationError(detail string) error {
	return Detail(ErrValidation, detail)
}
