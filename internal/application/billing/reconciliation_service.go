package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/reconciliation"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReconciliationService proves the ledger against bank statements period by
// period. A RECONCILED outcome locks every period transaction in the same
// atomic unit that persists the reconciliation.
type ReconciliationService struct {
	store  Store
	logger *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(store Store, logger *zap.Logger) *ReconciliationService {
	return &ReconciliationService{
		store:  store,
		logger: logger.Named("reconciliation"),
	}
}

// ReconcileRequest carries the bank-statement-asserted values for one period
type ReconcileRequest struct {
	TenantID       uuid.UUID
	Input          reconciliation.Input
	StatementLines []reconciliation.StatementLine
	Actor          string
}

// ReconcileResult is the outcome of one reconciliation run. Warning carries
// the cross-period continuity notice, empty when the opening balance lines
// up with the previous reconciled period.
type ReconcileResult struct {
	Reconciliation reconciliation.Reconciliation
	Warning        string
	Audit          AuditRecord
}

// Reconcile runs the balance formula for the requested period. A duplicate
// period is a conflict. A non-zero discrepancy is a successful outcome with
// status DISCREPANCY and no transaction is locked.
func (s *ReconciliationService) Reconcile(ctx context.Context, req ReconcileRequest) (*ReconcileResult, error) {
	existing, err := s.store.FindReconciliationByPeriod(
		ctx, req.TenantID, req.Input.BankAccount, req.Input.PeriodStart, req.Input.PeriodEnd)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewConflictError(fmt.Sprintf(
			"period %s to %s for account %s is already reconciled",
			req.Input.PeriodStart.Format(time.DateOnly),
			req.Input.PeriodEnd.Format(time.DateOnly),
			req.Input.BankAccount))
	}

	var result *ReconcileResult
	err = s.store.InTx(ctx, func(store Store) error {
		transactions, err := store.FindTransactionsInPeriod(
			ctx, req.TenantID, req.Input.BankAccount, req.Input.PeriodStart, req.Input.PeriodEnd)
		if err != nil {
			return err
		}

		rec, err := reconciliation.Build(req.TenantID, req.Input, transactions, req.StatementLines)
		if err != nil {
			return err
		}

		if err := store.CreateReconciliation(ctx, rec); err != nil {
			return err
		}

		if rec.Status == reconciliation.StatusReconciled {
			ids := make([]uuid.UUID, 0, len(transactions))
			for i := range transactions {
				ids = append(ids, transactions[i].ID)
			}
			if len(ids) > 0 {
				// All-or-nothing: a failure here rolls back the
				// reconciliation row as well
				if err := store.MarkTransactionsReconciled(ctx, req.TenantID, ids, rec.ID); err != nil {
					return err
				}
			}
		}

		previous, err := store.FindLatestReconciled(
			ctx, req.TenantID, req.Input.BankAccount, req.Input.PeriodStart)
		if err != nil {
			return err
		}

		result = &ReconcileResult{
			Reconciliation: *rec,
			Warning:        rec.ContinuityWarning(previous),
			Audit: newAuditRecord(req.Actor, "reconciliation.run", rec.ID, fmt.Sprintf(
				"account %s period %s to %s: %s, discrepancy %s",
				rec.BankAccount,
				rec.PeriodStart.Format(time.DateOnly),
				rec.PeriodEnd.Format(time.DateOnly),
				rec.Status, rec.Discrepancy)),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Warning != "" {
		s.logger.Warn("reconciliation continuity mismatch",
			zap.String("bank_account", req.Input.BankAccount),
			zap.String("warning", result.Warning))
	}
	return result, nil
}

// Get returns one reconciliation by ID
func (s *ReconciliationService) Get(ctx context.Context, tenantID, id uuid.UUID) (*reconciliation.Reconciliation, error) {
	return s.store.FindReconciliationForTenant(ctx, tenantID, id)
}

// List returns the tenant's reconciliations, optionally filtered by bank
// account, newest period first
func (s *ReconciliationService) List(ctx context.Context, tenantID uuid.UUID, bankAccount string) ([]reconciliation.Reconciliation, error) {
	return s.store.ListReconciliations(ctx, tenantID, bankAccount)
}
