package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the user lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeStaleVersion is used when an optimistic version precondition fails
	ErrCodeStaleVersion = "ERR_STALE_VERSION"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for the current case state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeSelfAttestation is used when the submitter tries to attest their own case
	ErrCodeSelfAttestation = "ERR_SELF_ATTESTATION"
	// ErrCodePeriodMismatch is used when assessments do not reconcile with the claim document
	ErrCodePeriodMismatch = "ERR_PERIOD_MISMATCH"
	// ErrCodeClaimParse is used when a stored claim document cannot be parsed
	ErrCodeClaimParse = "ERR_CLAIM_PARSE"
	// ErrCodeClaimInUse is used when a claim document is already consumed by another case
	ErrCodeClaimInUse = "ERR_CLAIM_IN_USE"
	// ErrCodeChainCorrupt is used when the event stream fails chain verification
	ErrCodeChainCorrupt = "ERR_CHAIN_CORRUPT"
	// ErrCodeDispatchRejected is used when the remote system rejected a dispatch
	ErrCodeDispatchRejected = "ERR_DISPATCH_REJECTED"
	// ErrCodeDispatchDeadLetter is used when a dispatch has exhausted its retries
	ErrCodeDispatchDeadLetter = "ERR_DISPATCH_DEAD_LETTER"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,
	ErrCodeStaleVersion:  http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:       http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:       http.StatusUnprocessableEntity,
	ErrCodeSelfAttestation:    http.StatusForbidden,
	ErrCodePeriodMismatch:     http.StatusUnprocessableEntity,
	ErrCodeClaimParse:         http.StatusUnprocessableEntity,
	ErrCodeClaimInUse:         http.StatusConflict,
	ErrCodeChainCorrupt:       http.StatusInternalServerError,
	ErrCodeDispatchRejected:   http.StatusUnprocessableEntity,
	ErrCodeDispatchDeadLetter: http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps domain error codes to the standardized API codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":                ErrCodeNotFound,
	"ALREADY_EXISTS":           ErrCodeAlreadyExists,
	"INVALID_INPUT":            ErrCodeInvalidInput,
	"UNAUTHORIZED":             ErrCodeUnauthorized,
	"FORBIDDEN":                ErrCodeForbidden,
	"STALE_VERSION":            ErrCodeStaleVersion,
	"ILLEGAL_STATE_TRANSITION": ErrCodeInvalidState,
	"SELF_ATTESTATION":         ErrCodeSelfAttestation,
	"PERIOD_MISMATCH":          ErrCodePeriodMismatch,
	"KRAVGRUNNLAG_PARSE_ERROR": ErrCodeClaimParse,
	"KRAVGRUNNLAG_IN_USE":      ErrCodeClaimInUse,
	"EVENT_CHAIN_CORRUPT":      ErrCodeChainCorrupt,
	"DISPATCH_REJECTED":        ErrCodeDispatchRejected,
	"DISPATCH_DEAD_LETTER":     ErrCodeDispatchDeadLetter,
	"VALIDATION_ERROR":         ErrCodeValidation,
	"BAD_REQUEST":              ErrCodeBadRequest,
	"INTERNAL_ERROR":           ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
