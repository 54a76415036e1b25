package prescription

import (
	"errors"
	"fmt"
)

var (
	ErrPrescriptionNotFound = errors.New("prescription not found")
	ErrInvalidOutcome       = errors.New("verification outcome must be verified or failed")
	ErrInvalidMethod        = errors.New("invalid verification method")
	ErrRevokeReasonRequired = errors.New("revocation reason is required")
	ErrRejectReasonRequired = errors.New("rejecting a verified prescription requires a justification note")
	ErrExpirationInPast     = errors.New("expiration date cannot be in the past")
)

// InvalidStateError is returned when an operation is attempted against a
// prescription whose current state forbids it. It carries the state so the
// caller can decide on remediation.
type InvalidStateError struct {
	Op                 string
	VerificationStatus VerificationStatus
	Revoked            bool
}

func (e *InvalidStateError) Error() string {
	if e.Revoked {
		return fmt.Sprintf("%s not allowed: prescription is revoked", e.Op)
	}
	return fmt.Sprintf("%s not allowed: prescription is %s", e.Op, e.VerificationStatus)
}
