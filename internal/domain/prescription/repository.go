package prescription

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	// GetByIDForUpdate locks the row for the duration of the surrounding
	// transaction. Callers must be inside a unit of work.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Prescription, error)
	Save(ctx context.Context, p *Prescription) error
	List(ctx context.Context, q *ListPrescriptionsQuery) (*PagedPrescriptions, error)
}
