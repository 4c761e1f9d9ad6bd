package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeValidation   = "ERR_VALIDATION"
)

// Resource error codes
const (
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	ErrCodeConflict      = "ERR_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState         = "ERR_INVALID_STATE"
	ErrCodeImportLocked         = "ERR_IMPORT_LOCKED"
	ErrCodeMappingIncomplete    = "ERR_MAPPING_INCOMPLETE"
	ErrCodePaidStatusRequired   = "ERR_PAID_STATUS_REQUIRED"
	ErrCodeNoPaidRows           = "ERR_NO_PAID_ROWS"
	ErrCodeFileMismatch         = "ERR_FILE_MISMATCH"
	ErrCodeMergeConflict        = "ERR_MERGE_CONFLICT"
	ErrCodeLabelChoiceRequired  = "ERR_LABEL_CHOICE_REQUIRED"
	ErrCodeConfirmationRequired = "ERR_CONFIRMATION_REQUIRED"
	ErrCodeConcurrencyConflict  = "ERR_CONCURRENCY_CONFLICT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,

	ErrCodeInvalidState:         http.StatusUnprocessableEntity,
	ErrCodeImportLocked:         http.StatusConflict,
	ErrCodeMappingIncomplete:    http.StatusBadRequest,
	ErrCodePaidStatusRequired:   http.StatusBadRequest,
	ErrCodeNoPaidRows:           http.StatusUnprocessableEntity,
	ErrCodeFileMismatch:         http.StatusBadRequest,
	ErrCodeMergeConflict:        http.StatusUnprocessableEntity,
	ErrCodeLabelChoiceRequired:  http.StatusUnprocessableEntity,
	ErrCodeConfirmationRequired: http.StatusPreconditionRequired,
	ErrCodeConcurrencyConflict:  http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps domain error codes to the standardized
// wire format.
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":             ErrCodeNotFound,
	"ALREADY_EXISTS":        ErrCodeAlreadyExists,
	"INVALID_INPUT":         ErrCodeInvalidInput,
	"INVALID_STATE":         ErrCodeInvalidState,
	"IMPORT_LOCKED":         ErrCodeImportLocked,
	"MAPPING_INCOMPLETE":    ErrCodeMappingIncomplete,
	"PAID_STATUS_REQUIRED":  ErrCodePaidStatusRequired,
	"FILE_MISMATCH":         ErrCodeFileMismatch,
	"ALREADY_MERGED":        ErrCodeConflict,
	"LABEL_CHOICE_REQUIRED": ErrCodeLabelChoiceRequired,
	"CONFIRMATION_REQUIRED": ErrCodeConfirmationRequired,
	"CONCURRENCY_CONFLICT":  ErrCodeConcurrencyConflict,
	"BAD_REQUEST":           ErrCodeBadRequest,
	"INTERNAL_ERROR":        ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the wire format.
// Codes already in the wire format pass through unchanged.
func NormalizeErrorCode(code string) string {
	if wireCode, ok := LegacyErrorCodeMapping[code]; ok {
		return wireCode
	}
	return code
}
