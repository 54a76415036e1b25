package postgres

import (
	"context"
	"errors"

	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/prescription"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PrescriptionRepository struct{ db *gorm.DB }

func NewPrescriptionRepository(db *gorm.DB) *PrescriptionRepository {
	return &PrescriptionRepository{db: db}
}

func (r *PrescriptionRepository) Create(ctx context.Context, p *prescription.Prescription) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PrescriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	var out prescription.Prescription
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, prescription.ErrPrescriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PrescriptionRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	var out prescription.Prescription
	err := withRowLock(r.db.WithContext(ctx)).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, prescription.ErrPrescriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PrescriptionRepository) Save(ctx context.Context, p *prescription.Prescription) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *PrescriptionRepository) List(ctx context.Context, q *prescription.ListPrescriptionsQuery) (*prescription.PagedPrescriptions, error) {
	tx := r.db.WithContext(ctx).Model(&prescription.Prescription{})

	if q.UserID != nil {
		tx = tx.Where("user_id = ?", *q.UserID)
	}
	if q.Status != nil {
		tx = tx.Where("status = ?", *q.Status)
	}
	if q.VerificationStatus != nil {
		tx = tx.Where("verification_status = ?", *q.VerificationStatus)
	}
	if q.Revoked != nil {
		tx = tx.Where("revoked = ?", *q.Revoked)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, err
	}

	page, pageSize := normalizePage(q.Page, q.PageSize)

	var items []*prescription.Prescription
	err := tx.Order("upload_date DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return &prescription.PagedPrescriptions{
		Prescriptions: items,
		TotalCount:    total,
		Page:          page,
		PageSize:      pageSize,
		TotalPages:    totalPages(total, pageSize),
	}, nil
}

// withRowLock appends SELECT ... FOR UPDATE on databases that support it.
// SQLite (tests) serializes writers on its own and rejects the clause.
func withRowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func totalPages(total int64, pageSize int) int {
	if total == 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
