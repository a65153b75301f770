package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/billing/backend/internal/domain/ledger"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AllocationService converts approved matches into Payment records while
// preserving the money invariants: a transaction is never over-allocated and
// an invoice is never over-paid. All writes for one request happen in a
// single atomic unit.
type AllocationService struct {
	store       Store
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	logger      *zap.Logger
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(store Store, idempotency shared.IdempotencyStore, logger *zap.Logger) *AllocationService {
	return &AllocationService{
		store:       store,
		idempotency: idempotency,
		idemConfig:  shared.DefaultIdempotencyConfig(),
		logger:      logger.Named("allocation"),
	}
}

// SetIdempotencyTTL overrides how long allocation idempotency keys are held
func (s *AllocationService) SetIdempotencyTTL(ttl time.Duration) {
	if ttl > 0 {
		s.idemConfig.TTL = ttl
	}
}

// AllocationItem is one target invoice and amount within an allocation request
type AllocationItem struct {
	InvoiceID uuid.UUID
	Amount    valueobject.Cents
}

// AllocateRequest carries one allocation batch against a single transaction
type AllocateRequest struct {
	TenantID      uuid.UUID
	TransactionID uuid.UUID
	Allocations   []AllocationItem
	MatchType     ledger.MatchType
	MatchedBy     ledger.MatchedBy
	Confidence    int
	Actor         string
	// IdempotencyKey, when set, guards against double-applying a retried
	// request. A replay is rejected with a conflict.
	IdempotencyKey string
}

// AllocateResult reports the created payments and the remainder left on the
// transaction. A positive remainder is the overpayment the caller must
// dispose of manually; it is never silently discarded.
type AllocateResult struct {
	Payments          []ledger.Payment
	UnallocatedAmount valueobject.Cents
	InvoicesUpdated   int
	Audit             AuditRecord
}

// Allocate validates and applies one allocation batch atomically. Validation
// fails fast with no partial writes; a post-write invariant check rolls the
// whole unit back on any sum mismatch.
func (s *AllocationService) Allocate(ctx context.Context, req AllocateRequest) (*AllocateResult, error) {
	if len(req.Allocations) == 0 {
		return nil, shared.NewValidationError("at least one allocation is required")
	}
	total := valueobject.Zero
	for _, item := range req.Allocations {
		if !item.Amount.IsPositive() {
			return nil, shared.NewValidationError("allocation amount must be positive")
		}
		total += item.Amount
	}
	if req.MatchType == "" {
		req.MatchType = ledger.MatchTypeManual
	}
	if req.MatchedBy == "" {
		req.MatchedBy = ledger.MatchedByUser
	}

	// The key is reserved up front so two concurrent submits cannot both
	// run, and released again when the unit fails to commit so a corrected
	// retry with the same key is not locked out.
	idemKey := ""
	if req.IdempotencyKey != "" && s.idempotency != nil {
		idemKey = allocationIdempotencyKey(req)
		fresh, err := s.idempotency.MarkProcessed(ctx, idemKey, s.idemConfig.TTL)
		if err != nil {
			return nil, fmt.Errorf("idempotency check: %w", err)
		}
		if !fresh {
			return nil, shared.NewConflictError(fmt.Sprintf(
				"allocation with idempotency key %q was already applied", req.IdempotencyKey))
		}
	}

	var result *AllocateResult
	err := s.store.InTx(ctx, func(store Store) error {
		tx, err := store.FindTransactionForTenant(ctx, req.TenantID, req.TransactionID)
		if err != nil {
			return err
		}
		if !tx.IsCredit {
			return shared.NewValidationError("only credit transactions can be allocated to invoices")
		}
		if tx.IsFullyAllocated() {
			return shared.NewConflictError(fmt.Sprintf(
				"transaction %s is already fully allocated", tx.ID))
		}
		if total > tx.UnallocatedAmount {
			return shared.NewValidationError(fmt.Sprintf(
				"allocation total %s exceeds transaction unallocated amount %s", total, tx.UnallocatedAmount))
		}

		payments := make([]ledger.Payment, 0, len(req.Allocations))
		for _, item := range req.Allocations {
			inv, err := store.FindInvoiceForTenant(ctx, req.TenantID, item.InvoiceID)
			if err != nil {
				return err
			}
			if inv.IsPaid() {
				return shared.NewValidationError(fmt.Sprintf(
					"invoice %s is already paid", inv.InvoiceNumber))
			}
			if err := inv.ApplyPayment(item.Amount); err != nil {
				return err
			}
			if err := tx.Allocate(item.Amount); err != nil {
				return err
			}

			payment, err := ledger.NewPayment(
				req.TenantID, inv.ID, tx.ID, item.Amount,
				req.MatchType, req.MatchedBy, req.Confidence)
			if err != nil {
				return err
			}

			if err := inv.CheckPaidInvariant(); err != nil {
				return err
			}
			if err := store.SaveInvoice(ctx, inv); err != nil {
				return err
			}
			if err := store.SavePayment(ctx, payment); err != nil {
				return err
			}
			payments = append(payments, *payment)
		}

		if err := tx.CheckAmountInvariant(); err != nil {
			return err
		}
		if err := store.SaveTransaction(ctx, tx); err != nil {
			return err
		}

		result = &AllocateResult{
			Payments:          payments,
			UnallocatedAmount: tx.UnallocatedAmount,
			InvoicesUpdated:   len(payments),
			Audit: newAuditRecord(req.Actor, "allocation.apply", tx.ID, fmt.Sprintf(
				"allocated %s across %d invoice(s), remainder %s",
				total, len(payments), tx.UnallocatedAmount)),
		}
		return nil
	})
	if err != nil {
		if idemKey != "" {
			if relErr := s.idempotency.Release(ctx, idemKey); relErr != nil {
				s.logger.Warn("failed to release idempotency key after rollback",
					zap.String("idempotency_key", req.IdempotencyKey),
					zap.Error(relErr))
			}
		}
		if shared.IsInvariantViolation(err) {
			s.logger.Error("allocation invariant violation",
				zap.String("transaction_id", req.TransactionID.String()),
				zap.Error(err))
		}
		return nil, err
	}

	if result.UnallocatedAmount.IsPositive() {
		s.logger.Info("allocation left unallocated remainder",
			zap.String("transaction_id", req.TransactionID.String()),
			zap.String("remainder", result.UnallocatedAmount.String()))
	}
	return result, nil
}

// ReverseRequest asks for one payment to be reversed
type ReverseRequest struct {
	TenantID  uuid.UUID
	PaymentID uuid.UUID
	Reason    string
	Actor     string
}

// ReverseResult reports the reversed payment and the restored balances
type ReverseResult struct {
	Payment           ledger.Payment
	InvoiceStatus     ledger.InvoiceStatus
	UnallocatedAmount valueobject.Cents
	Audit             AuditRecord
}

// ReversePayment undoes one payment: the payment is flagged reversed, the
// invoice paid amount is decremented and the transaction's unallocated
// remainder restored. Blocked with a conflict when the transaction has been
// reconciled.
func (s *AllocationService) ReversePayment(ctx context.Context, req ReverseRequest) (*ReverseResult, error) {
	if req.Reason == "" {
		return nil, shared.NewValidationError("reversal reason is required")
	}

	var result *ReverseResult
	err := s.store.InTx(ctx, func(store Store) error {
		payment, err := store.FindPaymentForTenant(ctx, req.TenantID, req.PaymentID)
		if err != nil {
			return err
		}
		tx, err := store.FindTransactionForTenant(ctx, req.TenantID, payment.TransactionID)
		if err != nil {
			return err
		}
		inv, err := store.FindInvoiceForTenant(ctx, req.TenantID, payment.InvoiceID)
		if err != nil {
			return err
		}

		// The reconciled lock is checked before any state changes
		if err := tx.ReleaseAllocation(payment.Amount); err != nil {
			return err
		}
		if err := payment.Reverse(req.Reason); err != nil {
			return err
		}
		if err := inv.ReversePayment(payment.Amount, time.Now()); err != nil {
			return err
		}

		if err := tx.CheckAmountInvariant(); err != nil {
			return err
		}
		if err := inv.CheckPaidInvariant(); err != nil {
			return err
		}

		if err := store.SavePayment(ctx, payment); err != nil {
			return err
		}
		if err := store.SaveInvoice(ctx, inv); err != nil {
			return err
		}
		if err := store.SaveTransaction(ctx, tx); err != nil {
			return err
		}

		result = &ReverseResult{
			Payment:           *payment,
			InvoiceStatus:     inv.Status,
			UnallocatedAmount: tx.UnallocatedAmount,
			Audit: newAuditRecord(req.Actor, "allocation.reverse", payment.ID, fmt.Sprintf(
				"reversed %s on invoice %s: %s", payment.Amount, inv.InvoiceNumber, req.Reason)),
		}
		return nil
	})
	if err != nil {
		if shared.IsInvariantViolation(err) {
			s.logger.Error("reversal invariant violation",
				zap.String("payment_id", req.PaymentID.String()),
				zap.Error(err))
		}
		return nil, err
	}
	return result, nil
}

func allocationIdempotencyKey(req AllocateRequest) string {
	var b strings.Builder
	b.WriteString("allocation:")
	b.WriteString(req.TenantID.String())
	b.WriteString(":")
	b.WriteString(req.IdempotencyKey)
	return b.String()
}
