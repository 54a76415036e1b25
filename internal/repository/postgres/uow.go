package postgres

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/uow"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GormUnitOfWork struct{ db *gorm.DB }

func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork { return &GormUnitOfWork{db: db} }

func (u *GormUnitOfWork) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(txRepos(tx))
	})
}

// WithinPrescriptionTx locks the prescription row up-front so concurrent
// verify/revoke/generate calls against the same prescription serialize.
func (u *GormUnitOfWork) WithinPrescriptionTx(ctx context.Context, prescriptionID uuid.UUID, fn func(r uow.Repos, p *prescription.Prescription) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := txRepos(tx)
		p, err := r.Prescriptions.GetByIDForUpdate(ctx, prescriptionID)
		if err != nil {
			return err
		}
		return fn(r, p)
	})
}

// WithinOrderTx locks the order row up-front. The prescription check during
// approval happens inside the same transaction, closing the gap between
// "check" and "ship".
func (u *GormUnitOfWork) WithinOrderTx(ctx context.Context, orderID uuid.UUID, fn func(r uow.Repos, o *order.Order) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := txRepos(tx)
		o, err := r.Orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		return fn(r, o)
	})
}

func txRepos(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Prescriptions: &PrescriptionRepository{db: tx},
		Orders:        &OrderRepository{db: tx},
	}
}
