package errors

import "net/http"

var ErrUnauthorized = &Exception{
	Message:    "actor is not allowed to perform this transition",
	StatusCode: http.StatusForbidden,
}
