package uow

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/prescription"
	"github.com/google/uuid"
)

// Repos bundles the repositories bound to a single transaction.
type Repos struct {
	Prescriptions prescription.Repository
	Orders        order.Repository
}

// UnitOfWork runs read-modify-write sequences atomically. The convenience
// variants lock the named row up-front so that concurrent pharmacist actions
// against the same prescription (or order) serialize instead of racing.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	WithinPrescriptionTx(ctx context.Context, prescriptionID uuid.UUID, fn func(r Repos, p *prescription.Prescription) error) error
	WithinOrderTx(ctx context.Context, orderID uuid.UUID, fn func(r Repos, o *order.Order) error) error
}
