package httperrors

import "fmt"

const (
	TypeGeneric      = "generic"
	TypeValidation   = "validation"
	TypeNotFound     = "not_found"
	TypeConflict     = "conflict"
)

// HTTPError is the JSON error body returned by the API.
type HTTPError struct {
	Code  int    `json:"status"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTPError %d (%s): %s", e.Code, e.Type, e.Title)
}

func NewHTTPError(code int, errType, title string) *HTTPError {
	return &HTTPError{
		Code:  code,
		Type:  errType,
		Title: title,
	}
}
