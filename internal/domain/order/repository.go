package order

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// GetByIDForUpdate locks the row for the duration of the surrounding
	// transaction. Callers must be inside a unit of work.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	Save(ctx context.Context, o *Order) error
	List(ctx context.Context, q *ListOrdersQuery) (*PagedOrders, error)
	GetByPrescription(ctx context.Context, prescriptionID uuid.UUID) ([]*Order, error)
	// CancelPendingByPrescription transitions every pending order for the
	// prescription to cancelled and returns the affected orders. The update
	// is a single statement filtered on status = pending, so applying it
	// more than once cancels nothing extra.
	CancelPendingByPrescription(ctx context.Context, prescriptionID uuid.UUID, reason string) ([]*Order, error)
}
