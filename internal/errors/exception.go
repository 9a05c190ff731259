package errors

import (
	"errors"
	"net/http"
)

type Exception struct {
	Message    string
	StatusCode int
}

func (e *Exception) Error() string {
	return e.Message
}

// Is matches any Exception carrying the same status and message, so detailed
// copies produced by Detail still satisfy errors.Is against the sentinel.
func (e *Exception) Is(target error) bool {
	t, ok := target.(*Exception)
	if !ok {
		return false
	}
	return t.StatusCode == e.StatusCode && t.Message == e.Message
}

// Detail returns an error that reads "<sentinel>: <detail>" and still matches
// the sentinel with errors.Is.
func Detail(sentinel *Exception, detail string) error {
	return &detailed{sentinel: sentinel, detail: detail}
}

type detailed struct {
	sentinel *Exception
	detail   string
}

func (d *detailed) Error() string {
	return d.sentinel.Message + ": " + d.detail
}

func (d *detailed) Unwrap() error {
	return d.sentinel
}

func StatusCode(err error) int {
	var appErr *Exception
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
