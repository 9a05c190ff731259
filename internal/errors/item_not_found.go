package errors

import "net/http"

var ErrItemNotFound = &Exception{
	Message:    "item not found",
	StatusCode: http.StatusNotFound,
}
