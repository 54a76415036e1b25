package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RolePharmacist Role = "pharmacist"
	RoleCustomer   Role = "customer"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RolePharmacist, RoleCustomer:
		return true
	}
	return false
}

// CanVerify reports whether the role carries the pharmacist capability
// required for verification, revocation, and security-code issuance.
func (r Role) CanVerify() bool {
	return r == RoleAdmin || r == RolePharmacist
}

// Actor identifies the authenticated caller of a service operation. It is
// populated by the HTTP auth middleware from JWT claims; the service layer
// never touches the token itself.
type Actor struct {
	UserID uuid.UUID
	Email  string
	Role   Role
}

type AuditAction string

const (
	ActionUpload   AuditAction = "upload"
	ActionVerify   AuditAction = "verify"
	ActionReject   AuditAction = "reject"
	ActionRevoke   AuditAction = "revoke"
	ActionGenerate AuditAction = "generate_code"
	ActionApprove  AuditAction = "approve"
	ActionCancel   AuditAction = "cancel"
)

type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	UserRole  Role      `gorm:"column:user_role;type:varchar(30);not null"`
	IPAddress string    `gorm:"column:ip_address;type:varchar(45)"` // Supports IPv6

	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(50);index"`

	RequestID string `gorm:"column:request_id;type:varchar(50);index"`
	Changes   string `gorm:"column:changes;type:text"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Claims mirrors the JWT payload issued by the identity service. Pharmaflow
// only consumes tokens; it never mints them.
type Claims struct {
	UserID uuid.UUID `json:"sub"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
}
