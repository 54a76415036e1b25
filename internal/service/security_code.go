package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/uow"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Ambiguous characters (0/O, 1/I/L) are excluded; codes are read over the
// phone.
const (
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength   = 8
)

// SecurityCodeService issues and checks per-prescription security codes.
// Only the bcrypt hash is persisted, so the plaintext is returned exactly
// once, at generation time. Storing a new hash invalidates the prior code.
type SecurityCodeService struct {
	repo     prescription.Repository
	uow      uow.UnitOfWork
	isAdmin  AdminCheck
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger
}

func NewSecurityCodeService(
	repo prescription.Repository,
	u uow.UnitOfWork,
	isAdmin AdminCheck,
	auditSvc *AuditService,
	collector *metrics.Collector,
	log *zap.Logger,
) *SecurityCodeService {
	return &SecurityCodeService{
		repo:     repo,
		uow:      u,
		isAdmin:  isAdmin,
		auditSvc: auditSvc,
		metrics:  collector,
		log:      log,
	}
}

// Generate issues a fresh code for a verified, non-revoked prescription.
func (s *SecurityCodeService) Generate(ctx context.Context, prescriptionID uuid.UUID, actor domain.Actor, ip string) (string, error) {
	if !s.isAdmin(ctx, actor) {
		return "", ErrForbidden
	}

	code, err := randomCode()
	if err != nil {
		return "", fmt.Errorf("generating code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing code: %w", err)
	}

	err = s.uow.WithinPrescriptionTx(ctx, prescriptionID, func(r uow.Repos, p *prescription.Prescription) error {
		if p.Revoked || p.VerificationStatus != prescription.VerificationVerified {
			return &prescription.InvalidStateError{
				Op:                 "generate security code",
				VerificationStatus: p.VerificationStatus,
				Revoked:            p.Revoked,
			}
		}
		p.SecurityCodeHash = string(hash)
		return r.Prescriptions.Save(ctx, p)
	})
	if err != nil {
		return "", err
	}

	s.metrics.SecurityCodesIssued.Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: actor.UserID, UserRole: string(actor.Role),
		Action: "generate_code", ResourceType: "prescription", ResourceID: prescriptionID.String(), IPAddress: ip,
	})

	return code, nil
}

// ValidateCode checks a presented code against the prescription's active one.
// Superseded codes fail because only the latest hash is stored.
func (s *SecurityCodeService) ValidateCode(ctx context.Context, prescriptionID uuid.UUID, code string) (bool, error) {
	p, err := s.repo.GetByID(ctx, prescriptionID)
	if err != nil {
		return false, err
	}
	if p.SecurityCodeHash == "" || code == "" {
		return false, nil
	}
	err = bcrypt.CompareHashAndPassword([]byte(p.SecurityCodeHash), []byte(code))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
