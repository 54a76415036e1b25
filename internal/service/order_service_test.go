package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/prescription"
	"github.com/google/uuid"
)

func TestCreateOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Orders are created pending even against an unverified prescription;
	// the gate closes at approval, not at creation.
	p := env.uploadFor(t, env.customer.UserID)
	o := env.orderFor(t, env.customer.UserID, &p.ID)
	if o.Status != order.StatusPending {
		t.Fatalf("fresh order status = %s, want pending", o.Status)
	}

	// A referenced prescription must exist.
	missing := uuid.New()
	_, err := env.orderSvc.CreateOrder(ctx, &order.CreateOrderCommand{
		UserID:         env.customer.UserID,
		PrescriptionID: &missing,
		MedicationID:   uuid.New(),
		Quantity:       1,
	}, env.customer, "127.0.0.1")
	if !errors.Is(err, prescription.ErrPrescriptionNotFound) {
		t.Fatalf("missing prescription err = %v, want ErrPrescriptionNotFound", err)
	}

	// Over-the-counter orders carry no prescription at all.
	otc := env.orderFor(t, env.customer.UserID, nil)
	if otc.PrescriptionID != nil {
		t.Fatal("OTC order must not have a prescription reference")
	}

	_, err = env.orderSvc.CreateOrder(ctx, &order.CreateOrderCommand{
		UserID:       env.customer.UserID,
		MedicationID: uuid.New(),
		Quantity:     0,
	}, env.customer, "127.0.0.1")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("zero quantity err = %v, want ValidationError", err)
	}

	_, err = env.orderSvc.CreateOrder(ctx, &order.CreateOrderCommand{
		UserID:       uuid.New(),
		MedicationID: uuid.New(),
		Quantity:     1,
	}, env.customer, "127.0.0.1")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("cross-user order err = %v, want ErrForbidden", err)
	}
}

// Verified prescription, pending order: approval ships with a carrier and
// tracking number.
func TestApprove_ShipsAgainstVerifiedPrescription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := env.uploadFor(t, env.customer.UserID)
	env.verifyOK(t, p.ID)
	o := env.orderFor(t, env.customer.UserID, &p.ID)

	shipped, err := env.orderSvc.Approve(ctx, o.ID, env.pharmacist, "127.0.0.1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if shipped.Status != order.StatusShipped {
		t.Fatalf("status = %s, want shipped", shipped.Status)
	}
	if shipped.Carrier == "" {
		t.Fatal("carrier not assigned")
	}
	if !strings.HasPrefix(shipped.TrackingNumber, "PF") || len(shipped.TrackingNumber) != 12 {
		t.Fatalf("tracking number = %q", shipped.TrackingNumber)
	}
	if shipped.ShippedAt == nil {
		t.Fatal("ShippedAt not recorded")
	}
}

// Revocation committed before approval always blocks the shipment and the
// order placed afterwards stays pending.
func TestApprove_BlockedByRevokedPrescription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := env.uploadFor(t, env.customer.UserID)
	env.verifyOK(t, p.ID)
	if _, err := env.verificationSvc.Revoke(ctx, p.ID, "forged document", env.pharmacist, "127.0.0.1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	o := env.orderFor(t, env.customer.UserID, &p.ID)
	_, err := env.orderSvc.Approve(ctx, o.ID, env.pharmacist, "127.0.0.1")

	var invalid *order.PrescriptionInvalidError
	if !errors.As(err, &invalid) {
		t.Fatalf("approve err = %v, want PrescriptionInvalidError", err)
	}
	if !invalid.Revoked || invalid.Reason != "revoked" {
		t.Fatalf("error detail: %+v", invalid)
	}

	// No state change on failure: the order is still pending and unshipped.
	reloaded, err2 := env.orderRepo.GetByID(ctx, o.ID)
	if err2 != nil {
		t.Fatalf("reload: %v", err2)
	}
	if reloaded.Status != order.StatusPending || reloaded.TrackingNumber != "" {
		t.Fatalf("blocked order mutated: %+v", reloaded)
	}
}

func TestApprove_BlockedByExpiredPrescription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := env.uploadFor(t, env.customer.UserID)
	env.verifyOK(t, p.ID)
	o := env.orderFor(t, env.customer.UserID, &p.ID)

	past := time.Now().UTC().Add(-time.Hour)
	loaded, err := env.prescriptionRepo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	loaded.ExpirationDate = &past
	if err := env.prescriptionRepo.Save(ctx, loaded); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, err = env.orderSvc.Approve(ctx, o.ID, env.pharmacist, "127.0.0.1")
	var invalid *order.PrescriptionInvalidError
	if !errors.As(err, &invalid) {
		t.Fatalf("approve err = %v, want PrescriptionInvalidError", err)
	}
	if invalid.Reason != "expired" {
		t.Fatalf("reason = %q, want expired", invalid.Reason)
	}
}

func TestApprove_BlockedByUnverifiedPrescription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := env.uploadFor(t, env.customer.UserID)
	o := env.orderFor(t, env.customer.UserID, &p.ID)

	_, err := env.orderSvc.Approve(ctx, o.ID, env.pharmacist, "127.0.0.1")
	var invalid *order.PrescriptionInvalidError
	if !errors.As(err, &invalid) {
		t.Fatalf("approve err = %v, want PrescriptionInvalidError", err)
	}
	if invalid.Reason != "not yet verified" {
		t.Fatalf("reason = %q, want not yet verified", invalid.Reason)
	}
}

// Orders without a prescription reference ship ungated.
func TestApprove_OTCOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	o := env.orderFor(t, env.customer.UserID, nil)
	shipped, err := env.orderSvc.Approve(ctx, o.ID, env.pharmacist, "127.0.0.1")
	if err != nil {
		t.Fatalf("approve OTC: %v", err)
	}
	if shipped.Status != order.StatusShipped {
		t.Fatalf("status = %s, want shipped", shipped.Status)
	}
}

func TestApprove_Guards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	o := env.orderFor(t, env.customer.UserID, nil)

	_, err := env.orderSvc.Approve(ctx, o.ID, env.customer, "127.0.0.1")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("customer approve err = %v, want ErrForbidden", err)
	}

	if _, err := env.orderSvc.Approve(ctx, o.ID, env.pharmacist, "127.0.0.1"); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	_, err = env.orderSvc.Approve(ctx, o.ID, env.pharmacist, "127.0.0.1")
	if !errors.Is(err, order.ErrInvalidStatusTransition) {
		t.Fatalf("double approve err = %v, want ErrInvalidStatusTransition", err)
	}

	_, err = env.orderSvc.Approve(ctx, uuid.New(), env.pharmacist, "127.0.0.1")
	if !errors.Is(err, order.ErrOrderNotFound) {
		t.Fatalf("missing order err = %v, want ErrOrderNotFound", err)
	}
}

// A revocation racing an approval of the same prescription's order must end
// in exactly one of two states: the approval committed first and the order is
// shipped history, or the revocation won and the order is cancelled (by the
// cascade) or blocked (PrescriptionInvalidError) and later cancelled. The
// order is never left pending, and a blocked approval never ships.
func TestApprove_RacesRevocation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const rounds = 25
	for i := 0; i < rounds; i++ {
		p := env.uploadFor(t, env.customer.UserID)
		env.verifyOK(t, p.ID)
		o := env.orderFor(t, env.customer.UserID, &p.ID)

		var (
			wg         sync.WaitGroup
			approveErr error
			revokeErr  error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, approveErr = env.orderSvc.Approve(ctx, o.ID, env.pharmacist, "127.0.0.1")
		}()
		go func() {
			defer wg.Done()
			_, revokeErr = env.verificationSvc.Revoke(ctx, p.ID, "prescriber retracted", env.pharmacist, "127.0.0.1")
		}()
		wg.Wait()

		if revokeErr != nil {
			t.Fatalf("round %d: revoke: %v", i, revokeErr)
		}
		if approveErr != nil {
			// The only acceptable losses: the gate saw the revocation, or
			// the cascade cancelled the order before the approval locked it.
			var invalid *order.PrescriptionInvalidError
			if !errors.As(approveErr, &invalid) && !errors.Is(approveErr, order.ErrInvalidStatusTransition) {
				t.Fatalf("round %d: approve: %v", i, approveErr)
			}
		}

		rx, err := env.prescriptionRepo.GetByID(ctx, p.ID)
		if err != nil {
			t.Fatalf("round %d: reload prescription: %v", i, err)
		}
		if !rx.Revoked {
			t.Fatalf("round %d: revocation did not commit", i)
		}

		final, err := env.orderRepo.GetByID(ctx, o.ID)
		if err != nil {
			t.Fatalf("round %d: reload order: %v", i, err)
		}
		switch final.Status {
		case order.StatusShipped:
			if approveErr != nil {
				t.Fatalf("round %d: blocked approval still shipped", i)
			}
		case order.StatusCancelled:
			if approveErr == nil {
				t.Fatalf("round %d: approval succeeded but order is cancelled", i)
			}
		default:
			t.Fatalf("round %d: order left %s after revocation committed", i, final.Status)
		}
	}
}

func TestCancelOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	o := env.orderFor(t, env.customer.UserID, nil)
	cancelled, err := env.orderSvc.Cancel(ctx, o.ID, "changed my mind", env.customer, "127.0.0.1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != order.StatusCancelled || cancelled.CancellationReason != "changed my mind" {
		t.Fatalf("cancel fields: %+v", cancelled)
	}

	// Another customer cannot cancel an order they don't own.
	o2 := env.orderFor(t, env.customer.UserID, nil)
	stranger := env.customer
	stranger.UserID = uuid.New()
	_, err = env.orderSvc.Cancel(ctx, o2.ID, "nope", stranger, "127.0.0.1")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger cancel err = %v, want ErrForbidden", err)
	}

	// Shipped orders cannot be cancelled.
	o3 := env.orderFor(t, env.customer.UserID, nil)
	if _, err := env.orderSvc.Approve(ctx, o3.ID, env.pharmacist, "127.0.0.1"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	_, err = env.orderSvc.Cancel(ctx, o3.ID, "too late", env.customer, "127.0.0.1")
	if !errors.Is(err, order.ErrInvalidStatusTransition) {
		t.Fatalf("cancel shipped err = %v, want ErrInvalidStatusTransition", err)
	}
}

func TestGetAndListOrders_Ownership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mine := env.orderFor(t, env.customer.UserID, nil)
	other := env.orderFor(t, uuid.New(), nil)

	if _, err := env.orderSvc.GetOrder(ctx, mine.ID, env.customer); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := env.orderSvc.GetOrder(ctx, other.ID, env.customer); !errors.Is(err, ErrForbidden) {
		t.Fatalf("cross-user read err = %v, want ErrForbidden", err)
	}

	listed, err := env.orderSvc.ListOrders(ctx, &order.ListOrdersQuery{}, env.customer)
	if err != nil {
		t.Fatalf("list as customer: %v", err)
	}
	if listed.TotalCount != 1 {
		t.Fatalf("customer list total = %d, want 1", listed.TotalCount)
	}

	all, err := env.orderSvc.ListOrders(ctx, &order.ListOrdersQuery{}, env.admin)
	if err != nil {
		t.Fatalf("list as admin: %v", err)
	}
	if all.TotalCount != 2 {
		t.Fatalf("admin list total = %d, want 2", all.TotalCount)
	}
}
