package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/repository/postgres"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// recordingNotifier captures notifications so tests can assert on them.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	users    []uuid.UUID
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, userID)
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type testEnv struct {
	db                *gorm.DB
	prescriptionRepo  *postgres.PrescriptionRepository
	orderRepo         *postgres.OrderRepository
	verificationSvc   *VerificationService
	orderSvc          *OrderService
	securityCodeSvc   *SecurityCodeService
	notifier          *recordingNotifier
	pharmacist, admin domain.Actor
	customer          domain.Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&prescription.Prescription{}, &order.Order{}, &domain.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	// Every in-memory sqlite connection is its own database; a single pooled
	// connection keeps concurrent goroutines on the same one.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	log := zap.NewNop()
	collector := metrics.NewCollectorWith(prometheus.NewRegistry(), "pharmaflow_test")

	prescriptionRepo := postgres.NewPrescriptionRepository(db)
	orderRepo := postgres.NewOrderRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	u := postgres.NewGormUnitOfWork(db)

	auditSvc := NewAuditService(auditRepo, collector, log)
	t.Cleanup(auditSvc.Shutdown)

	notifier := &recordingNotifier{}

	return &testEnv{
		db:               db,
		prescriptionRepo: prescriptionRepo,
		orderRepo:        orderRepo,
		verificationSvc:  NewVerificationService(prescriptionRepo, u, RoleAdminCheck, notifier, auditSvc, collector, log),
		orderSvc:         NewOrderService(orderRepo, prescriptionRepo, u, RoleAdminCheck, notifier, auditSvc, collector, log),
		securityCodeSvc:  NewSecurityCodeService(prescriptionRepo, u, RoleAdminCheck, auditSvc, collector, log),
		notifier:         notifier,
		pharmacist:       domain.Actor{UserID: uuid.New(), Email: "rx@pharmaflow.test", Role: domain.RolePharmacist},
		admin:            domain.Actor{UserID: uuid.New(), Email: "admin@pharmaflow.test", Role: domain.RoleAdmin},
		customer:         domain.Actor{UserID: uuid.New(), Email: "pat@pharmaflow.test", Role: domain.RoleCustomer},
	}
}

// uploadFor seeds an unverified prescription owned by the given user.
func (e *testEnv) uploadFor(t *testing.T, userID uuid.UUID) *prescription.Prescription {
	t.Helper()
	p, err := e.verificationSvc.Upload(context.Background(), &prescription.UploadPrescriptionCommand{
		UserID:      userID,
		DocumentURL: "s3://rx/test.pdf",
		DoctorName:  "Dr. Ibanez",
	}, domain.Actor{UserID: userID, Role: domain.RoleCustomer}, "127.0.0.1")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return p
}

// verifyOK marks the prescription verified by the env pharmacist.
func (e *testEnv) verifyOK(t *testing.T, id uuid.UUID) *prescription.Prescription {
	t.Helper()
	p, err := e.verificationSvc.Verify(context.Background(), id, &prescription.VerifyCommand{
		Outcome: prescription.VerificationVerified,
		Method:  prescription.MethodManual,
		Notes:   "checked against the state registry",
	}, e.pharmacist, "127.0.0.1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	return p
}

// orderFor seeds a pending order for the user, optionally tied to a
// prescription.
func (e *testEnv) orderFor(t *testing.T, userID uuid.UUID, prescriptionID *uuid.UUID) *order.Order {
	t.Helper()
	o, err := e.orderSvc.CreateOrder(context.Background(), &order.CreateOrderCommand{
		UserID:         userID,
		PrescriptionID: prescriptionID,
		MedicationID:   uuid.New(),
		Quantity:       1,
		TotalCents:     1250,
	}, domain.Actor{UserID: userID, Role: domain.RoleCustomer}, "127.0.0.1")
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func futureDate(d time.Duration) *time.Time {
	ts := time.Now().UTC().Add(d)
	return &ts
}
