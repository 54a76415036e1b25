package service

import (
	"context"
	"errors"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain"
)

var ErrForbidden = errors.New("forbidden: insufficient permissions")

// AdminCheck is the injected authorization predicate. Services never consult
// sessions or middleware state directly; HTTP wiring derives this from the
// caller's verified claims.
type AdminCheck func(ctx context.Context, actor domain.Actor) bool

// RoleAdminCheck grants the pharmacist capability based on the actor's role.
func RoleAdminCheck(_ context.Context, actor domain.Actor) bool {
	return actor.Role.CanVerify()
}

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

type AuditEntry struct {
	UserID       interface{} // uuid.UUID
	UserRole     string
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	RequestID    string
	Changes      string
}
