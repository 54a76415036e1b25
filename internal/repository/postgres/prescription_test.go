package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/prescription"
	"github.com/google/uuid"
)

func TestPrescriptionRepository_CreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewPrescriptionRepository(db)
	ctx := context.Background()

	p := &prescription.Prescription{
		UserID:             uuid.New(),
		DocumentURL:        "s3://rx/doc-1.pdf",
		DoctorName:         "Dr. Okafor",
		Status:             prescription.StatusPending,
		VerificationStatus: prescription.VerificationUnverified,
	}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Fatal("ID not assigned on create")
	}
	if p.UploadDate.IsZero() {
		t.Fatal("UploadDate not defaulted on create")
	}

	got, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.DoctorName != "Dr. Okafor" || got.VerificationStatus != prescription.VerificationUnverified {
		t.Fatalf("unexpected prescription: %+v", got)
	}
}

func TestPrescriptionRepository_GetNotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewPrescriptionRepository(db)

	_, err := repo.GetByID(context.Background(), uuid.New())
	if !errors.Is(err, prescription.ErrPrescriptionNotFound) {
		t.Fatalf("err = %v, want ErrPrescriptionNotFound", err)
	}

	_, err = repo.GetByIDForUpdate(context.Background(), uuid.New())
	if !errors.Is(err, prescription.ErrPrescriptionNotFound) {
		t.Fatalf("ForUpdate err = %v, want ErrPrescriptionNotFound", err)
	}
}

func TestPrescriptionRepository_Save(t *testing.T) {
	db := openTestDB(t)
	repo := NewPrescriptionRepository(db)
	ctx := context.Background()

	p := &prescription.Prescription{UserID: uuid.New()}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	now := time.Now().UTC()
	verifier := uuid.New()
	p.Status = prescription.StatusApproved
	p.VerificationStatus = prescription.VerificationVerified
	p.VerifiedBy = &verifier
	p.VerificationDate = &now
	p.VerificationMethod = prescription.MethodPhone
	if err := repo.Save(ctx, p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.VerificationStatus != prescription.VerificationVerified || got.VerificationMethod != prescription.MethodPhone {
		t.Fatalf("verification fields not persisted: %+v", got)
	}
	if got.VerifiedBy == nil || *got.VerifiedBy != verifier {
		t.Fatal("VerifiedBy not persisted")
	}
}

func TestPrescriptionRepository_List(t *testing.T) {
	db := openTestDB(t)
	repo := NewPrescriptionRepository(db)
	ctx := context.Background()

	alice := uuid.New()
	bob := uuid.New()

	seed := []*prescription.Prescription{
		{UserID: alice, VerificationStatus: prescription.VerificationVerified, Status: prescription.StatusApproved},
		{UserID: alice, VerificationStatus: prescription.VerificationUnverified, Status: prescription.StatusPending},
		{UserID: bob, VerificationStatus: prescription.VerificationVerified, Status: prescription.StatusApproved, Revoked: true},
	}
	for _, p := range seed {
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	byUser, err := repo.List(ctx, &prescription.ListPrescriptionsQuery{UserID: &alice})
	if err != nil {
		t.Fatalf("List by user: %v", err)
	}
	if byUser.TotalCount != 2 || len(byUser.Prescriptions) != 2 {
		t.Fatalf("by user: total=%d len=%d, want 2/2", byUser.TotalCount, len(byUser.Prescriptions))
	}

	verified := prescription.VerificationVerified
	notRevoked := false
	filtered, err := repo.List(ctx, &prescription.ListPrescriptionsQuery{
		VerificationStatus: &verified,
		Revoked:            &notRevoked,
	})
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if filtered.TotalCount != 1 {
		t.Fatalf("filtered total = %d, want 1", filtered.TotalCount)
	}

	paged, err := repo.List(ctx, &prescription.ListPrescriptionsQuery{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("List paged: %v", err)
	}
	if paged.TotalCount != 3 || len(paged.Prescriptions) != 2 || paged.TotalPages != 2 {
		t.Fatalf("paging: total=%d len=%d pages=%d", paged.TotalCount, len(paged.Prescriptions), paged.TotalPages)
	}
}

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, 20},
		{-1, -5, 1, 20},
		{2, 50, 2, 50},
		{1, 500, 1, 20},
	}
	for _, tc := range cases {
		p, s := normalizePage(tc.page, tc.size)
		if p != tc.wantPage || s != tc.wantSize {
			t.Errorf("normalizePage(%d, %d) = (%d, %d), want (%d, %d)",
				tc.page, tc.size, p, s, tc.wantPage, tc.wantSize)
		}
	}
}
