package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/uow"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/notify"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VerificationService owns the prescription state machine. Every mutation
// runs inside a row-locked transaction so concurrent pharmacist actions
// against the same prescription serialize.
type VerificationService struct {
	repo     prescription.Repository
	uow      uow.UnitOfWork
	isAdmin  AdminCheck
	notifier notify.Notifier
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger
}

func NewVerificationService(
	repo prescription.Repository,
	u uow.UnitOfWork,
	isAdmin AdminCheck,
	notifier notify.Notifier,
	auditSvc *AuditService,
	collector *metrics.Collector,
	log *zap.Logger,
) *VerificationService {
	return &VerificationService{
		repo:     repo,
		uow:      u,
		isAdmin:  isAdmin,
		notifier: notifier,
		auditSvc: auditSvc,
		metrics:  collector,
		log:      log,
	}
}

// Upload stores a new prescription in the unverified state. Patients can only
// upload for themselves; pharmacist-capable actors may upload on a patient's
// behalf (phoned-in prescriptions).
func (s *VerificationService) Upload(ctx context.Context, cmd *prescription.UploadPrescriptionCommand, actor domain.Actor, ip string) (*prescription.Prescription, error) {
	var fields []string
	if cmd.UserID == uuid.Nil {
		fields = append(fields, "user_id is required")
	}
	if strings.TrimSpace(cmd.DocumentURL) == "" {
		fields = append(fields, "document_url is required")
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	if cmd.UserID != actor.UserID && !s.isAdmin(ctx, actor) {
		return nil, ErrForbidden
	}

	p := &prescription.Prescription{
		UserID:             cmd.UserID,
		UploadDate:         time.Now().UTC(),
		DocumentURL:        strings.TrimSpace(cmd.DocumentURL),
		DoctorName:         strings.TrimSpace(cmd.DoctorName),
		Status:             prescription.StatusPending,
		VerificationStatus: prescription.VerificationUnverified,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Error("failed to create prescription", zap.Error(err))
		return nil, fmt.Errorf("creating prescription: %w", err)
	}

	s.metrics.PrescriptionsUploaded.Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: actor.UserID, UserRole: string(actor.Role),
		Action: "upload", ResourceType: "prescription", ResourceID: p.ID.String(), IPAddress: ip,
	})

	return p, nil
}

// Verify records a pharmacist review outcome. Re-verification is allowed
// from unverified and failed, so a mistaken rejection can be corrected.
// Downgrading a currently verified prescription goes through Reject instead.
func (s *VerificationService) Verify(ctx context.Context, prescriptionID uuid.UUID, cmd *prescription.VerifyCommand, actor domain.Actor, ip string) (*prescription.Prescription, error) {
	if !s.isAdmin(ctx, actor) {
		return nil, ErrForbidden
	}
	if cmd.Outcome != prescription.VerificationVerified && cmd.Outcome != prescription.VerificationFailed {
		return nil, prescription.ErrInvalidOutcome
	}
	if !cmd.Method.IsValid() {
		return nil, prescription.ErrInvalidMethod
	}
	now := time.Now().UTC()
	if cmd.ExpirationDate != nil && cmd.ExpirationDate.Before(now) {
		return nil, prescription.ErrExpirationInPast
	}

	var result *prescription.Prescription
	err := s.uow.WithinPrescriptionTx(ctx, prescriptionID, func(r uow.Repos, p *prescription.Prescription) error {
		if !p.CanBeVerified() {
			return &prescription.InvalidStateError{
				Op:                 "verify",
				VerificationStatus: p.VerificationStatus,
				Revoked:            p.Revoked,
			}
		}

		p.VerificationStatus = cmd.Outcome
		p.VerifiedBy = &actor.UserID
		p.VerificationDate = &now
		p.VerificationMethod = cmd.Method
		p.VerificationNotes = cmd.Notes

		if cmd.Outcome == prescription.VerificationVerified {
			p.Status = prescription.StatusApproved
			if cmd.ExpirationDate != nil {
				p.ExpirationDate = cmd.ExpirationDate
			} else {
				exp := now.Add(prescription.DefaultValidity)
				p.ExpirationDate = &exp
			}
		} else {
			p.Status = prescription.StatusRejected
		}

		if err := r.Prescriptions.Save(ctx, p); err != nil {
			return fmt.Errorf("saving prescription: %w", err)
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.VerificationsTotal.WithLabelValues(string(cmd.Outcome)).Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: actor.UserID, UserRole: string(actor.Role),
		Action: "verify", ResourceType: "prescription", ResourceID: prescriptionID.String(), IPAddress: ip,
		Changes: fmt.Sprintf(`{"outcome":%q,"method":%q}`, cmd.Outcome, cmd.Method),
	})

	if cmd.Outcome == prescription.VerificationVerified {
		s.notifier.Notify(ctx, result.UserID, "Your prescription has been verified and is ready for fulfillment.")
	} else {
		s.notifier.Notify(ctx, result.UserID, "Your prescription could not be verified. Please contact the pharmacy.")
	}

	return result, nil
}

// Reject downgrades a currently verified prescription to failed. It is the
// explicit re-review path and requires its own justification note.
func (s *VerificationService) Reject(ctx context.Context, prescriptionID uuid.UUID, note string, actor domain.Actor, ip string) (*prescription.Prescription, error) {
	if !s.isAdmin(ctx, actor) {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(note) == "" {
		return nil, prescription.ErrRejectReasonRequired
	}

	now := time.Now().UTC()
	var result *prescription.Prescription
	err := s.uow.WithinPrescriptionTx(ctx, prescriptionID, func(r uow.Repos, p *prescription.Prescription) error {
		if p.Revoked || p.VerificationStatus != prescription.VerificationVerified {
			return &prescription.InvalidStateError{
				Op:                 "reject",
				VerificationStatus: p.VerificationStatus,
				Revoked:            p.Revoked,
			}
		}

		p.VerificationStatus = prescription.VerificationFailed
		p.Status = prescription.StatusRejected
		p.VerifiedBy = &actor.UserID
		p.VerificationDate = &now
		p.VerificationNotes = strings.TrimSpace(note)

		if err := r.Prescriptions.Save(ctx, p); err != nil {
			return fmt.Errorf("saving prescription: %w", err)
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.VerificationsTotal.WithLabelValues(string(prescription.VerificationFailed)).Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: actor.UserID, UserRole: string(actor.Role),
		Action: "reject", ResourceType: "prescription", ResourceID: prescriptionID.String(), IPAddress: ip,
		Changes: fmt.Sprintf(`{"note":%q}`, note),
	})
	s.notifier.Notify(ctx, result.UserID, "Your prescription verification has been withdrawn after re-review. Please contact the pharmacy.")

	return result, nil
}

// Revoke permanently invalidates a verified prescription and cancels its
// pending orders in the same transaction. There is no transition out of the
// revoked state.
func (s *VerificationService) Revoke(ctx context.Context, prescriptionID uuid.UUID, reason string, actor domain.Actor, ip string) (*prescription.Prescription, error) {
	if !s.isAdmin(ctx, actor) {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(reason) == "" {
		return nil, prescription.ErrRevokeReasonRequired
	}

	var (
		result    *prescription.Prescription
		cancelled []*order.Order
	)
	err := s.uow.WithinPrescriptionTx(ctx, prescriptionID, func(r uow.Repos, p *prescription.Prescription) error {
		if !p.CanBeRevoked() {
			return &prescription.InvalidStateError{
				Op:                 "revoke",
				VerificationStatus: p.VerificationStatus,
				Revoked:            p.Revoked,
			}
		}

		p.Revoked = true
		p.RevokedReason = strings.TrimSpace(reason)
		if err := r.Prescriptions.Save(ctx, p); err != nil {
			return fmt.Errorf("saving prescription: %w", err)
		}

		var err error
		cancelled, err = r.Orders.CancelPendingByPrescription(ctx, prescriptionID, "prescription revoked")
		if err != nil {
			return fmt.Errorf("cancelling pending orders: %w", err)
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RevocationsTotal.Inc()
	s.metrics.OrdersCancelledByRevoke.Add(float64(len(cancelled)))
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: actor.UserID, UserRole: string(actor.Role),
		Action: "revoke", ResourceType: "prescription", ResourceID: prescriptionID.String(), IPAddress: ip,
		Changes: fmt.Sprintf(`{"reason":%q,"orders_cancelled":%d}`, reason, len(cancelled)),
	})

	s.notifier.Notify(ctx, result.UserID, "Your prescription has been revoked: "+result.RevokedReason)
	for _, o := range cancelled {
		s.notifier.Notify(ctx, o.UserID, "Your order was cancelled because its prescription was revoked.")
	}

	s.log.Info("prescription revoked",
		zap.String("prescription_id", prescriptionID.String()),
		zap.Int("orders_cancelled", len(cancelled)),
	)

	return result, nil
}

// ValidationResult is the answer to a fulfillment validity query.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// ValidateForMedication answers whether the prescription currently covers a
// fulfillment. The medication ID is accepted for interface symmetry; this
// pharmacy does not keep a per-drug coverage table.
func (s *VerificationService) ValidateForMedication(ctx context.Context, prescriptionID, medicationID uuid.UUID) (*ValidationResult, error) {
	p, err := s.repo.GetByID(ctx, prescriptionID)
	if err != nil {
		if errors.Is(err, prescription.ErrPrescriptionNotFound) {
			return &ValidationResult{Valid: false, Reason: "not found"}, nil
		}
		return nil, err
	}

	valid, reason := p.IsValidForFulfillment(time.Now().UTC())
	return &ValidationResult{Valid: valid, Reason: reason}, nil
}

// GetPrescription enforces ownership: customers can only read their own
// records.
func (s *VerificationService) GetPrescription(ctx context.Context, id uuid.UUID, actor domain.Actor) (*prescription.Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != actor.UserID && !s.isAdmin(ctx, actor) {
		return nil, ErrForbidden
	}
	return p, nil
}

func (s *VerificationService) ListPrescriptions(ctx context.Context, q *prescription.ListPrescriptionsQuery, actor domain.Actor) (*prescription.PagedPrescriptions, error) {
	if !s.isAdmin(ctx, actor) {
		q.UserID = &actor.UserID
	}
	return s.repo.List(ctx, q)
}
