package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for reconciliations
type Repository interface {
	// CreateReconciliation persists a new reconciliation. It returns a
	// conflict error when one already exists for the same
	// (tenant, bankAccount, periodStart, periodEnd).
	CreateReconciliation(ctx context.Context, rec *Reconciliation) error

	// FindReconciliationForTenant returns a reconciliation by ID scoped to
	// the tenant, or a not-found error.
	FindReconciliationForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Reconciliation, error)

	// FindReconciliationByPeriod returns the reconciliation for an exact
	// account and period, or nil when none exists.
	FindReconciliationByPeriod(ctx context.Context, tenantID uuid.UUID, bankAccount string, periodStart, periodEnd time.Time) (*Reconciliation, error)

	// FindLatestReconciled returns the most recent RECONCILED
	// reconciliation for the account ending before the given period start,
	// or nil when the account has none.
	FindLatestReconciled(ctx context.Context, tenantID uuid.UUID, bankAccount string, before time.Time) (*Reconciliation, error)

	// ListReconciliations returns all reconciliations for the tenant,
	// optionally filtered by bank account, newest period first.
	ListReconciliations(ctx context.Context, tenantID uuid.UUID, bankAccount string) ([]Reconciliation, error)
}
