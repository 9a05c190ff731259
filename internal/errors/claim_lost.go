package errors

import "net/http"

// ErrClaimLost means another recipient holds the item. Callers should refresh
// their listing rather than retry the same item.
var ErrClaimLost = &Exception{
	Message:    "item already claimed",
	StatusCode: http.StatusConflict,
}
