package errors

import "net/http"

var ErrAssignmentLost = &Exception{
	Message:    "task already has a carrier",
	StatusCode: http.StatusConflict,
}
