package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/order"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderRepository struct{ db *gorm.DB }

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var out order.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var out order.Order
	err := withRowLock(r.db.WithContext(ctx)).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *OrderRepository) Save(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Save(o).Error
}

func (r *OrderRepository) List(ctx context.Context, q *order.ListOrdersQuery) (*order.PagedOrders, error) {
	tx := r.db.WithContext(ctx).Model(&order.Order{})

	if q.UserID != nil {
		tx = tx.Where("user_id = ?", *q.UserID)
	}
	if q.PrescriptionID != nil {
		tx = tx.Where("prescription_id = ?", *q.PrescriptionID)
	}
	if q.Status != nil {
		tx = tx.Where("status = ?", *q.Status)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, err
	}

	page, pageSize := normalizePage(q.Page, q.PageSize)

	var items []*order.Order
	err := tx.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return &order.PagedOrders{
		Orders:     items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func (r *OrderRepository) GetByPrescription(ctx context.Context, prescriptionID uuid.UUID) ([]*order.Order, error) {
	var items []*order.Order
	err := r.db.WithContext(ctx).
		Where("prescription_id = ?", prescriptionID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// CancelPendingByPrescription is a single UPDATE filtered on status =
// pending, so re-applying it is a no-op.
func (r *OrderRepository) CancelPendingByPrescription(ctx context.Context, prescriptionID uuid.UUID, reason string) ([]*order.Order, error) {
	var pending []*order.Order
	err := withRowLock(r.db.WithContext(ctx)).
		Where("prescription_id = ? AND status = ?", prescriptionID, order.StatusPending).
		Find(&pending).Error
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("prescription_id = ? AND status = ?", prescriptionID, order.StatusPending).
		Updates(map[string]any{
			"status":              order.StatusCancelled,
			"cancelled_at":        now,
			"cancellation_reason": reason,
		})
	if res.Error != nil {
		return nil, res.Error
	}

	for _, o := range pending {
		o.Status = order.StatusCancelled
		o.CancelledAt = &now
		o.CancellationReason = reason
	}
	return pending, nil
}
