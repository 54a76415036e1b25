package prescription

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the patient- and order-facing summary of a prescription.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// VerificationStatus is the administrative state, driven exclusively by
// pharmacist actions.
//
// State transitions:
//
//	unverified → verified
//	unverified → failed
//	failed     → verified  (corrective re-review)
//	verified   → failed    (only via the explicit Reject operation)
//	verified   → verified+revoked (terminal for fulfillment)
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationVerified   VerificationStatus = "verified"
	VerificationFailed     VerificationStatus = "failed"
)

func (v VerificationStatus) IsValid() bool {
	switch v {
	case VerificationUnverified, VerificationVerified, VerificationFailed:
		return true
	}
	return false
}

type VerificationMethod string

const (
	MethodManual   VerificationMethod = "manual"
	MethodPhone    VerificationMethod = "phone"
	MethodDatabase VerificationMethod = "database"
)

func (m VerificationMethod) IsValid() bool {
	switch m {
	case MethodManual, MethodPhone, MethodDatabase:
		return true
	}
	return false
}

// DefaultValidity is applied when a pharmacist verifies without an explicit
// expiration date.
const DefaultValidity = 365 * 24 * time.Hour

type Prescription struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"-"`

	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	UploadDate time.Time `gorm:"column:upload_date;not null;index" json:"upload_date"`

	// Reference to the uploaded document; file storage is handled upstream.
	DocumentURL string `gorm:"column:document_url;type:text" json:"document_url,omitempty"`
	DoctorName  string `gorm:"column:doctor_name;type:varchar(255)" json:"doctor_name,omitempty"`

	Status             Status             `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`
	VerificationStatus VerificationStatus `gorm:"column:verification_status;type:varchar(20);not null;default:'unverified';index" json:"verification_status"`

	VerifiedBy         *uuid.UUID         `gorm:"column:verified_by;type:uuid" json:"verified_by,omitempty"`
	VerificationDate   *time.Time         `gorm:"column:verification_date" json:"verification_date,omitempty"`
	VerificationMethod VerificationMethod `gorm:"column:verification_method;type:varchar(20)" json:"verification_method,omitempty"`
	VerificationNotes  string             `gorm:"column:verification_notes;type:text" json:"verification_notes,omitempty"`

	ExpirationDate *time.Time `gorm:"column:expiration_date;index" json:"expiration_date,omitempty"`

	// Only the bcrypt hash of the active security code is stored. Writing a
	// new hash invalidates the previous code.
	SecurityCodeHash string `gorm:"column:security_code_hash;type:varchar(100)" json:"-"`

	Revoked       bool   `gorm:"column:revoked;not null;default:false;index" json:"revoked"`
	RevokedReason string `gorm:"column:revoked_reason;type:text" json:"revoked_reason,omitempty"`
}

func (Prescription) TableName() string {
	return "prescriptions"
}

func (p *Prescription) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.UploadDate.IsZero() {
		p.UploadDate = time.Now().UTC()
	}
	return nil
}

// IsExpired reports whether the prescription has passed its expiration date.
// A prescription without one is never expired.
func (p *Prescription) IsExpired(now time.Time) bool {
	return p.ExpirationDate != nil && now.After(*p.ExpirationDate)
}

// CanBeVerified reports whether a verification outcome may be recorded.
// Revocation is terminal; otherwise unverified and failed prescriptions can
// be (re-)reviewed.
func (p *Prescription) CanBeVerified() bool {
	return !p.Revoked && p.VerificationStatus != VerificationVerified
}

// CanBeRevoked: only a currently verified, non-revoked prescription can be
// revoked.
func (p *Prescription) CanBeRevoked() bool {
	return p.VerificationStatus == VerificationVerified && !p.Revoked
}

// IsValidForFulfillment is the single gating check applied before any
// shipment: verified, not revoked, not expired. The failure reason is
// human-readable and stable for API consumers.
func (p *Prescription) IsValidForFulfillment(now time.Time) (bool, string) {
	switch {
	case p.Revoked:
		return false, "revoked"
	case p.VerificationStatus == VerificationFailed:
		return false, "verification failed"
	case p.VerificationStatus != VerificationVerified:
		return false, "not yet verified"
	case p.IsExpired(now):
		return false, "expired"
	}
	return true, ""
}

type UploadPrescriptionCommand struct {
	UserID      uuid.UUID
	DocumentURL string
	DoctorName  string
}

// VerifyCommand records the outcome of a pharmacist review.
type VerifyCommand struct {
	Outcome        VerificationStatus // verified or failed
	Method         VerificationMethod
	Notes          string
	ExpirationDate *time.Time // defaults to verification time + DefaultValidity
}

type ListPrescriptionsQuery struct {
	UserID             *uuid.UUID
	Status             *Status
	VerificationStatus *VerificationStatus
	Revoked            *bool
	Page               int
	PageSize           int
}

type PagedPrescriptions struct {
	Prescriptions []*Prescription
	TotalCount    int64
	Page          int
	PageSize      int
	TotalPages    int
}
