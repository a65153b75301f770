package ledger

import (
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// TransactionStatus represents the allocation status of a bank transaction
type TransactionStatus string

const (
	TransactionStatusPending            TransactionStatus = "PENDING"             // Not yet allocated or categorized
	TransactionStatusPartiallyAllocated TransactionStatus = "PARTIALLY_ALLOCATED" // Some value allocated, remainder outstanding
	TransactionStatusAllocated          TransactionStatus = "ALLOCATED"           // Fully allocated
	TransactionStatusCategorized        TransactionStatus = "CATEGORIZED"         // Debit assigned an expense category
)

// IsValid checks if the status is a valid TransactionStatus
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusPartiallyAllocated,
		TransactionStatusAllocated, TransactionStatusCategorized:
		return true
	}
	return false
}

// String returns the string representation
func (s TransactionStatus) String() string {
	return string(s)
}

// IsAccounted reports whether the transaction counts towards the calculated
// balance during reconciliation. PENDING transactions do not.
func (s TransactionStatus) IsAccounted() bool {
	return s != TransactionStatusPending
}

// Transaction represents a normalized bank transaction imported by ingestion.
// Ingestion creates it; only the allocation path mutates the allocated and
// unallocated amounts, and only reconciliation flips IsReconciled. Once
// reconciled the record is immutable to all writers.
type Transaction struct {
	shared.TenantAggregateRoot
	BankAccount       string
	Date              time.Time
	Amount            valueobject.Cents // Signed: positive for credits, negative for debits
	IsCredit          bool
	Description       string
	Reference         string
	PayeeName         string
	Category          string // Expense category, debits only
	AllocatedAmount   valueobject.Cents
	UnallocatedAmount valueobject.Cents
	IsReconciled      bool
	ReconciliationID  *uuid.UUID // Set when reconciled, names the blocking reconciliation
	Status            TransactionStatus
}

// NewTransaction creates a new bank transaction from ingestion output
func NewTransaction(
	tenantID uuid.UUID,
	bankAccount string,
	date time.Time,
	amount valueobject.Cents,
	isCredit bool,
	description, reference, payeeName string,
) (*Transaction, error) {
	if bankAccount == "" {
		return nil, shared.NewValidationError("bank account cannot be empty")
	}
	if amount.IsZero() {
		return nil, shared.NewValidationError("transaction amount cannot be zero")
	}
	if isCredit && amount.IsNegative() {
		return nil, shared.NewValidationError("credit transaction amount must be positive")
	}
	if !isCredit && amount.IsPositive() {
		return nil, shared.NewValidationError("debit transaction amount must be negative")
	}

	unallocated := valueobject.Zero
	if isCredit {
		unallocated = amount
	}

	return &Transaction{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BankAccount:         bankAccount,
		Date:                date,
		Amount:              amount,
		IsCredit:            isCredit,
		Description:         description,
		Reference:           reference,
		PayeeName:           payeeName,
		AllocatedAmount:     valueobject.Zero,
		UnallocatedAmount:   unallocated,
		Status:              TransactionStatusPending,
	}, nil
}

// guardMutable returns a conflict if the transaction has been locked by a
// reconciliation. The conflict names the blocking reconciliation so the
// operator can find it.
func (t *Transaction) guardMutable() error {
	if !t.IsReconciled {
		return nil
	}
	if t.ReconciliationID != nil {
		return shared.NewConflictError(fmt.Sprintf(
			"transaction %s is locked by reconciliation %s", t.ID, t.ReconciliationID))
	}
	return shared.NewConflictError(fmt.Sprintf("transaction %s is reconciled and immutable", t.ID))
}

// Allocate reserves amount of this credit transaction for invoice payments.
// The sum of all payments against a transaction can never exceed its amount.
func (t *Transaction) Allocate(amount valueobject.Cents) error {
	if err := t.guardMutable(); err != nil {
		return err
	}
	if !t.IsCredit {
		return shared.NewValidationError("only credit transactions can be allocated")
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("allocation amount must be positive")
	}
	if amount > t.UnallocatedAmount {
		return shared.NewValidationError(fmt.Sprintf(
			"allocation %s exceeds transaction unallocated amount %s", amount, t.UnallocatedAmount))
	}

	t.AllocatedAmount += amount
	t.UnallocatedAmount -= amount
	t.refreshStatus()
	t.Touch()
	t.IncrementVersion()
	return nil
}

// Categorize assigns an expense category to a debit. Only categorized debits
// count towards the calculated balance during reconciliation.
func (t *Transaction) Categorize(category string) error {
	if err := t.guardMutable(); err != nil {
		return err
	}
	if t.IsCredit {
		return shared.NewValidationError("only debit transactions can be categorized")
	}
	if category == "" {
		return shared.NewValidationError("category cannot be empty")
	}
	t.Category = category
	t.Status = TransactionStatusCategorized
	t.Touch()
	t.IncrementVersion()
	return nil
}

// ReleaseAllocation returns amount to the unallocated remainder after a
// payment reversal
func (t *Transaction) ReleaseAllocation(amount valueobject.Cents) error {
	if err := t.guardMutable(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("release amount must be positive")
	}
	if amount > t.AllocatedAmount {
		return shared.NewInvariantViolation(fmt.Sprintf(
			"release %s exceeds allocated amount %s on transaction %s", amount, t.AllocatedAmount, t.ID))
	}

	t.AllocatedAmount -= amount
	t.UnallocatedAmount += amount
	t.refreshStatus()
	t.Touch()
	t.IncrementVersion()
	return nil
}

// MarkReconciled locks the transaction against all further mutation.
// The lock is irreversible and load-bearing for audit integrity.
func (t *Transaction) MarkReconciled(reconciliationID uuid.UUID) error {
	if t.IsReconciled {
		return t.guardMutable()
	}
	t.IsReconciled = true
	t.ReconciliationID = &reconciliationID
	t.Touch()
	t.IncrementVersion()
	return nil
}

// refreshStatus derives the status from the allocated amounts
func (t *Transaction) refreshStatus() {
	switch {
	case t.AllocatedAmount.IsZero():
		t.Status = TransactionStatusPending
	case t.UnallocatedAmount.IsZero():
		t.Status = TransactionStatusAllocated
	default:
		t.Status = TransactionStatusPartiallyAllocated
	}
}

// IsFullyAllocated reports whether no unallocated remainder is left
func (t *Transaction) IsFullyAllocated() bool {
	return t.IsCredit && t.UnallocatedAmount.IsZero()
}

// CheckAmountInvariant verifies allocated + unallocated == amount for credits.
// A failure is the fatal invariant class: it implies financial-data corruption.
func (t *Transaction) CheckAmountInvariant() error {
	if !t.IsCredit {
		return nil
	}
	if t.AllocatedAmount+t.UnallocatedAmount != t.Amount {
		return shared.NewInvariantViolation(fmt.Sprintf(
			"transaction %s: allocated %s + unallocated %s != amount %s",
			t.ID, t.AllocatedAmount, t.UnallocatedAmount, t.Amount))
	}
	if t.AllocatedAmount.IsNegative() || t.UnallocatedAmount.IsNegative() {
		return shared.NewInvariantViolation(fmt.Sprintf(
			"transaction %s: negative allocation amounts", t.ID))
	}
	return nil
}
