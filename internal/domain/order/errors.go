package order

import (
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/prescription"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrInvalidQuantity         = errors.New("order quantity must be positive")
)

// PrescriptionInvalidError blocks an order approval. The order stays pending;
// the caller must resolve the prescription and re-invoke.
type PrescriptionInvalidError struct {
	PrescriptionID     string
	PrescriptionStatus prescription.Status
	VerificationStatus prescription.VerificationStatus
	Revoked            bool
	Reason             string
}

func (e *PrescriptionInvalidError) Error() string {
	return fmt.Sprintf("prescription %s is not valid for fulfillment: %s", e.PrescriptionID, e.Reason)
}
