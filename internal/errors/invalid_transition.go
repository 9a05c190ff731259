package errors

import "net/http"

var ErrInvalidTransition = &Exception{
	Message:    "invalid transition",
	StatusCode: http.StatusConflict,
}
