package service

import (
	"context"
	"crypto/rand"
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

var carriers = []string{"MedExpress", "PharmaPost", "QuickShip RX"}

// OrderService gates fulfillment on prescription validity. Orders are always
// created pending; the gate closes at approval time, where the prescription's
// live state is read inside the same transaction as the shipment transition.
type OrderService struct {
	orderRepo        order.Repository
	prescriptionRepo prescription.Repository
	uow              uow.UnitOfWork
	isAdmin          AdminCheck
	notifier         notify.Notifier
	auditSvc         *AuditService
	metrics          *metrics.Collector
	log              *zap.Logger
}

func NewOrderService(
	orderRepo order.Repository,
	prescriptionRepo prescription.Repository,
	u uow.UnitOfWork,
	isAdmin AdminCheck,
	notifier notify.Notifier,
	auditSvc *AuditService,
	collector *metrics.Collector,
	log *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:        orderRepo,
		prescriptionRepo: prescriptionRepo,
		uow:              u,
		isAdmin:          isAdmin,
		notifier:         notifier,
		auditSvc:         auditSvc,
		metrics:          collector,
		log:              log,
	}
}

// CreateOrder always creates a pending order. A referenced prescription must
// exist, but its verification state is looked up for logging only; gating
// happens at approval time, after the pharmacist has signed off.
func (s *OrderService) CreateOrder(ctx context.Context, cmd *order.CreateOrderCommand, actor domain.Actor, ip string) (*order.Order, error) {
	var fields []string
	if cmd.MedicationID == uuid.Nil {
		fields = append(fields, "medication_id is required")
	}
	if cmd.Quantity <= 0 {
		fields = append(fields, "quantity must be positive")
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	if cmd.UserID != actor.UserID && !s.isAdmin(ctx, actor) {
		return nil, ErrForbidden
	}

	if cmd.PrescriptionID != nil {
		p, err := s.prescriptionRepo.GetByID(ctx, *cmd.PrescriptionID)
		if err != nil {
			return nil, err
		}
		valid, reason := p.IsValidForFulfillment(time.Now().UTC())
		s.log.Info("order references prescription",
			zap.String("prescription_id", p.ID.String()),
			zap.Bool("currently_valid", valid),
			zap.String("reason", reason),
		)
	}

	o := &order.Order{
		UserID:         cmd.UserID,
		PrescriptionID: cmd.PrescriptionID,
		MedicationID:   cmd.MedicationID,
		Quantity:       cmd.Quantity,
		TotalCents:     cmd.TotalCents,
		Status:         order.StatusPending,
	}

	if err := s.orderRepo.Create(ctx, o); err != nil {
		s.log.Error("failed to create order", zap.Error(err))
		return nil, fmt.Errorf("creating order: %w", err)
	}

	return o, nil
}

// Approve transitions a pending order to shipped. When the order references a
// prescription, the prescription row is locked and re-checked inside the same
// transaction as the shipment transition, so a revocation committed first
// always blocks the shipment. On failure the order stays pending; there is no
// automatic retry.
func (s *OrderService) Approve(ctx context.Context, orderID uuid.UUID, actor domain.Actor, ip string) (*order.Order, error) {
	if !s.isAdmin(ctx, actor) {
		return nil, ErrForbidden
	}

	var result *order.Order
	err := s.uow.WithinOrderTx(ctx, orderID, func(r uow.Repos, o *order.Order) error {
		if o.Status != order.StatusPending {
			return order.ErrInvalidStatusTransition
		}

		if o.PrescriptionID != nil {
			p, err := r.Prescriptions.GetByIDForUpdate(ctx, *o.PrescriptionID)
			if err != nil {
				return err
			}
			valid, reason := p.IsValidForFulfillment(time.Now().UTC())
			if valid && p.Status != prescription.StatusApproved {
				valid, reason = false, "not approved"
			}
			if !valid {
				return &order.PrescriptionInvalidError{
					PrescriptionID:     p.ID.String(),
					PrescriptionStatus: p.Status,
					VerificationStatus: p.VerificationStatus,
					Revoked:            p.Revoked,
					Reason:             reason,
				}
			}
		}

		carrier := carriers[int(o.ID[0])%len(carriers)]
		tracking, err := trackingNumber()
		if err != nil {
			return fmt.Errorf("assigning tracking number: %w", err)
		}
		if err := o.Ship(carrier, tracking); err != nil {
			return err
		}
		if err := r.Orders.Save(ctx, o); err != nil {
			return fmt.Errorf("saving order: %w", err)
		}
		result = o
		return nil
	})
	if err != nil {
		var invalid *order.PrescriptionInvalidError
		if errors.As(err, &invalid) {
			s.metrics.ShipmentsBlocked.WithLabelValues(invalid.Reason).Inc()
			s.log.Warn("shipment blocked by prescription state",
				zap.String("order_id", orderID.String()),
				zap.String("prescription_id", invalid.PrescriptionID),
				zap.String("reason", invalid.Reason),
			)
		}
		return nil, err
	}

	s.metrics.OrdersApproved.Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: actor.UserID, UserRole: string(actor.Role),
		Action: "approve", ResourceType: "order", ResourceID: orderID.String(), IPAddress: ip,
		Changes: fmt.Sprintf(`{"carrier":%q,"tracking_number":%q}`, result.Carrier, result.TrackingNumber),
	})
	s.notifier.Notify(ctx, result.UserID,
		fmt.Sprintf("Your order has shipped via %s, tracking number %s.", result.Carrier, result.TrackingNumber))

	return result, nil
}

// Cancel is the explicit cancellation path, available to the owner and to
// pharmacist-capable actors.
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID, reason string, actor domain.Actor, ip string) (*order.Order, error) {
	var result *order.Order
	err := s.uow.WithinOrderTx(ctx, orderID, func(r uow.Repos, o *order.Order) error {
		if o.UserID != actor.UserID && !s.isAdmin(ctx, actor) {
			return ErrForbidden
		}
		if err := o.Cancel(strings.TrimSpace(reason)); err != nil {
			return err
		}
		if err := r.Orders.Save(ctx, o); err != nil {
			return fmt.Errorf("saving order: %w", err)
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: actor.UserID, UserRole: string(actor.Role),
		Action: "cancel", ResourceType: "order", ResourceID: orderID.String(), IPAddress: ip,
	})

	return result, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID, actor domain.Actor) (*order.Order, error) {
	o, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != actor.UserID && !s.isAdmin(ctx, actor) {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *OrderService) ListOrders(ctx context.Context, q *order.ListOrdersQuery, actor domain.Actor) (*order.PagedOrders, error) {
	if !s.isAdmin(ctx, actor) {
		q.UserID = &actor.UserID
	}
	return s.orderRepo.List(ctx, q)
}

func trackingNumber() (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	digits := make([]byte, len(buf))
	for i, b := range buf {
		digits[i] = '0' + b%10
	}
	return "PF" + string(digits), nil
}
