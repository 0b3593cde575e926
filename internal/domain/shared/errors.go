package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors. Every command rejection surfaces one of these codes so
// callers can tell a stale version from a period mismatch from an illegal
// transition.
var (
	ErrNotFound           = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists      = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput       = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrStaleVersion       = NewDomainError("STALE_VERSION", "The case was modified by another caller; re-read and retry")
	ErrUnauthorized       = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrIllegalTransition  = NewDomainError("ILLEGAL_STATE_TRANSITION", "Operation not allowed in the current case state")
	ErrSelfAttestation    = NewDomainError("SELF_ATTESTATION", "A case cannot be attested by the caseworker who submitted it")
	ErrPeriodMismatch     = NewDomainError("PERIOD_MISMATCH", "Assessments do not cover the claim document periods exactly")
	ErrKravgrunnlagParse  = NewDomainError("KRAVGRUNNLAG_PARSE_ERROR", "The claim document payload could not be parsed")
	ErrKravgrunnlagInUse  = NewDomainError("KRAVGRUNNLAG_IN_USE", "The claim document is already consumed by an open case")
	ErrChainCorruption    = NewDomainError("EVENT_CHAIN_CORRUPT", "The event stream is corrupt and cannot be replayed")
	ErrDispatchRejected   = NewDomainError("DISPATCH_REJECTED", "The payment system rejected the decision")
	ErrDispatchDeadLetter = NewDomainError("DISPATCH_DEAD_LETTER", "The decision dispatch was abandoned after repeated failures")
)
