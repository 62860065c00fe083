package dto

import "net/http"

// General error codes
const (
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
)

// Domain error codes surfaced over HTTP. Domain services attach the code;
// this table only decides the status line.
var errorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,

	"NOT_FOUND":      http.StatusNotFound,
	"ALREADY_EXISTS": http.StatusConflict,
	"CONFLICT":       http.StatusConflict,

	"UNAUTHORIZED":  http.StatusUnauthorized,
	"FORBIDDEN":     http.StatusForbidden,
	"ACCESS_DENIED": http.StatusForbidden,

	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"INVALID_STATE":        http.StatusUnprocessableEntity,

	"INVALID_INPUT":             http.StatusBadRequest,
	"INVALID_OPERATION":         http.StatusBadRequest,
	"INVALID_CONTACT_NAME":      http.StatusBadRequest,
	"INVALID_EMAIL":             http.StatusBadRequest,
	"UNKNOWN_SCOPE":             http.StatusBadRequest,
	"UNKNOWN_EXTENSION_FIELD":   http.StatusBadRequest,
	"INVALID_GRANT":             http.StatusBadRequest,
	"INVALID_GROUP":             http.StatusBadRequest,
	"INVALID_ORGANIZATION_NAME": http.StatusBadRequest,
	"INVALID_PARTNER_ID":        http.StatusBadRequest,

	"GROUP_CODE_EXISTS": http.StatusConflict,

	"VALIDATION_FAILED": http.StatusUnprocessableEntity,

	"CONTEXT_PROPAGATION_FAILED": http.StatusInternalServerError,
	"CONFIGURATION_ERROR":        http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status for an error code, 500 for
// unlisted codes
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
