package order

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status transitions:
//
//	pending → shipped    (approval, gated on prescription validity)
//	pending → cancelled  (explicit cancellation or prescription revocation)
//
// shipped and cancelled are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusShipped   Status = "shipped"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusShipped, StatusCancelled:
		return true
	}
	return false
}

type Order struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"-"`

	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`

	// Reference only. Validity is re-evaluated at approval time, never
	// cached on the order.
	PrescriptionID *uuid.UUID `gorm:"column:prescription_id;type:uuid;index" json:"prescription_id,omitempty"`

	MedicationID uuid.UUID `gorm:"column:medication_id;type:uuid;not null;index" json:"medication_id"`
	Quantity     int       `gorm:"column:quantity;not null;default:1" json:"quantity"`
	TotalCents   int64     `gorm:"column:total_cents;not null;default:0" json:"total_cents"`

	Status Status `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`

	Carrier        string     `gorm:"column:carrier;type:varchar(50)" json:"carrier,omitempty"`
	TrackingNumber string     `gorm:"column:tracking_number;type:varchar(50)" json:"tracking_number,omitempty"`
	ShippedAt      *time.Time `gorm:"column:shipped_at" json:"shipped_at,omitempty"`

	CancelledAt        *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CancellationReason string     `gorm:"column:cancellation_reason;type:text" json:"cancellation_reason,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (o *Order) CanTransitionTo(next Status) bool {
	allowed := map[Status][]Status{
		StatusPending:   {StatusShipped, StatusCancelled},
		StatusShipped:   {},
		StatusCancelled: {},
	}
	for _, s := range allowed[o.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// Ship records the shipment transition. Prescription gating happens in the
// service layer before this is called.
func (o *Order) Ship(carrier, trackingNumber string) error {
	if !o.CanTransitionTo(StatusShipped) {
		return ErrInvalidStatusTransition
	}
	now := time.Now().UTC()
	o.Status = StatusShipped
	o.Carrier = carrier
	o.TrackingNumber = trackingNumber
	o.ShippedAt = &now
	return nil
}

func (o *Order) Cancel(reason string) error {
	if !o.CanTransitionTo(StatusCancelled) {
		return ErrInvalidStatusTransition
	}
	now := time.Now().UTC()
	o.Status = StatusCancelled
	o.CancelledAt = &now
	o.CancellationReason = reason
	return nil
}

type CreateOrderCommand struct {
	UserID         uuid.UUID
	PrescriptionID *uuid.UUID
	MedicationID   uuid.UUID
	Quantity       int
	TotalCents     int64
}

type ListOrdersQuery struct {
	UserID         *uuid.UUID
	PrescriptionID *uuid.UUID
	Status         *Status
	Page           int
	PageSize       int
}

type PagedOrders struct {
	Orders     []*Order
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
