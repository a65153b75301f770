package ledger

import (
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// InvoiceStatus represents the status of an invoice.
// The machine is DRAFT → SENT → {PARTIALLY_PAID, PAID, OVERDUE}.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusSent          InvoiceStatus = "SENT"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusOverdue       InvoiceStatus = "OVERDUE"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// String returns the string representation
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsOpen reports whether the invoice can still receive payments and is
// eligible for matching and arrears
func (s InvoiceStatus) IsOpen() bool {
	return s == InvoiceStatusSent || s == InvoiceStatusPartiallyPaid || s == InvoiceStatusOverdue
}

// Invoice represents an invoice owed by a parent (billing account).
// Generation and VAT calculation are external; the core only tracks payment
// state against the fixed total.
type Invoice struct {
	shared.TenantAggregateRoot
	InvoiceNumber string
	ParentID      uuid.UUID
	ParentName    string
	Total         valueobject.Cents
	AmountPaid    valueobject.Cents
	Status        InvoiceStatus
	IssueDate     time.Time
	DueDate       time.Time
}

// NewInvoice creates a new invoice in DRAFT status
func NewInvoice(
	tenantID uuid.UUID,
	invoiceNumber string,
	parentID uuid.UUID,
	parentName string,
	total valueobject.Cents,
	issueDate, dueDate time.Time,
) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewValidationError("invoice number cannot be empty")
	}
	if parentID == uuid.Nil {
		return nil, shared.NewValidationError("parent ID cannot be empty")
	}
	if !total.IsPositive() {
		return nil, shared.NewValidationError("invoice total must be positive")
	}
	if dueDate.Before(issueDate) {
		return nil, shared.NewValidationError("due date cannot precede issue date")
	}

	return &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		InvoiceNumber:       invoiceNumber,
		ParentID:            parentID,
		ParentName:          parentName,
		Total:               total,
		AmountPaid:          valueobject.Zero,
		Status:              InvoiceStatusDraft,
		IssueDate:           issueDate,
		DueDate:             dueDate,
	}, nil
}

// Send transitions the invoice from DRAFT to SENT
func (inv *Invoice) Send() error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewConflictError(fmt.Sprintf(
			"invoice %s cannot be sent in %s status", inv.InvoiceNumber, inv.Status))
	}
	inv.Status = InvoiceStatusSent
	inv.Touch()
	inv.IncrementVersion()
	return nil
}

// Outstanding returns the unpaid balance
func (inv *Invoice) Outstanding() valueobject.Cents {
	return inv.Total - inv.AmountPaid
}

// ApplyPayment increments the paid amount and recomputes status.
// The invariant 0 <= AmountPaid <= Total holds at all times.
func (inv *Invoice) ApplyPayment(amount valueobject.Cents) error {
	if !inv.Status.IsOpen() {
		return shared.NewConflictError(fmt.Sprintf(
			"invoice %s cannot receive payments in %s status", inv.InvoiceNumber, inv.Status))
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("payment amount must be positive")
	}
	if amount > inv.Outstanding() {
		return shared.NewValidationError(fmt.Sprintf(
			"payment %s exceeds outstanding balance %s on invoice %s",
			amount, inv.Outstanding(), inv.InvoiceNumber))
	}

	inv.AmountPaid += amount
	inv.refreshPaymentStatus()
	inv.Touch()
	inv.IncrementVersion()
	return nil
}

// ReversePayment decrements the paid amount after a payment reversal
func (inv *Invoice) ReversePayment(amount valueobject.Cents, asOf time.Time) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("reversal amount must be positive")
	}
	if amount > inv.AmountPaid {
		return shared.NewInvariantViolation(fmt.Sprintf(
			"reversal %s exceeds paid amount %s on invoice %s", amount, inv.AmountPaid, inv.InvoiceNumber))
	}

	inv.AmountPaid -= amount
	if inv.AmountPaid.IsZero() {
		if asOf.After(inv.DueDate) {
			inv.Status = InvoiceStatusOverdue
		} else {
			inv.Status = InvoiceStatusSent
		}
	} else {
		inv.refreshPaymentStatus()
	}
	inv.Touch()
	inv.IncrementVersion()
	return nil
}

// refreshPaymentStatus recomputes status from the paid relation.
// A zero paid amount leaves the current status (SENT or OVERDUE) unchanged.
func (inv *Invoice) refreshPaymentStatus() {
	switch {
	case inv.AmountPaid.IsZero():
		// unchanged
	case inv.AmountPaid == inv.Total:
		inv.Status = InvoiceStatusPaid
	default:
		inv.Status = InvoiceStatusPartiallyPaid
	}
}

// MarkOverdue transitions a SENT invoice past its due date to OVERDUE
func (inv *Invoice) MarkOverdue(asOf time.Time) {
	if inv.Status == InvoiceStatusSent && asOf.After(inv.DueDate) {
		inv.Status = InvoiceStatusOverdue
		inv.Touch()
		inv.IncrementVersion()
	}
}

// IsPaid reports whether the invoice is fully settled
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// CheckPaidInvariant verifies 0 <= AmountPaid <= Total and that the status
// agrees with the paid relation
func (inv *Invoice) CheckPaidInvariant() error {
	if inv.AmountPaid.IsNegative() || inv.AmountPaid > inv.Total {
		return shared.NewInvariantViolation(fmt.Sprintf(
			"invoice %s: paid %s outside [0, %s]", inv.InvoiceNumber, inv.AmountPaid, inv.Total))
	}
	if inv.AmountPaid == inv.Total && inv.Status != InvoiceStatusPaid {
		return shared.NewInvariantViolation(fmt.Sprintf(
			"invoice %s: fully paid but status %s", inv.InvoiceNumber, inv.Status))
	}
	if inv.AmountPaid.IsPositive() && inv.AmountPaid < inv.Total && inv.Status != InvoiceStatusPartiallyPaid {
		return shared.NewInvariantViolation(fmt.Sprintf(
			"invoice %s: partially paid but status %s", inv.InvoiceNumber, inv.Status))
	}
	return nil
}
