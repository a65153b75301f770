package ledger

import (
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// MatchType tags how a payment was matched to its invoice
type MatchType string

const (
	MatchTypeExactReference MatchType = "EXACT_REFERENCE" // Invoice number verbatim in reference, exact amount
	MatchTypeParentAmount   MatchType = "PARENT_AMOUNT"   // Payee name matched the parent, exact amount
	MatchTypeAmountOnly     MatchType = "AMOUNT_ONLY"     // Amount matched with no corroboration
	MatchTypeManual         MatchType = "MANUAL"          // Human-approved allocation
)

// IsValid checks if the match type is valid
func (m MatchType) IsValid() bool {
	switch m {
	case MatchTypeExactReference, MatchTypeParentAmount, MatchTypeAmountOnly, MatchTypeManual:
		return true
	}
	return false
}

// String returns the string representation
func (m MatchType) String() string {
	return string(m)
}

// MatchedBy identifies the actor that approved an allocation
type MatchedBy string

const (
	MatchedByAI   MatchedBy = "AI"   // Auto-applied by the match engine
	MatchedByUser MatchedBy = "USER" // Approved by a human reviewer
)

// IsValid checks if the matched-by value is valid
func (m MatchedBy) IsValid() bool {
	return m == MatchedByAI || m == MatchedByUser
}

// Payment records the assignment of part or all of a transaction's value to a
// specific invoice. Payments are immutable once created except for the
// reversal flag, and are created exclusively by the allocation path.
type Payment struct {
	shared.TenantAggregateRoot
	InvoiceID       uuid.UUID
	TransactionID   uuid.UUID
	Amount          valueobject.Cents
	MatchType       MatchType
	MatchedBy       MatchedBy
	MatchConfidence int
	IsReversed      bool
	ReversedAt      *time.Time
	ReversalReason  string
}

// NewPayment creates a new payment record
func NewPayment(
	tenantID, invoiceID, transactionID uuid.UUID,
	amount valueobject.Cents,
	matchType MatchType,
	matchedBy MatchedBy,
	confidence int,
) (*Payment, error) {
	if invoiceID == uuid.Nil || transactionID == uuid.Nil {
		return nil, shared.NewValidationError("payment must reference an invoice and a transaction")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("payment amount must be positive")
	}
	if !matchType.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("invalid match type %q", matchType))
	}
	if !matchedBy.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("invalid matched-by %q", matchedBy))
	}
	if confidence < 0 || confidence > 100 {
		return nil, shared.NewValidationError("match confidence must be in [0, 100]")
	}

	return &Payment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		InvoiceID:           invoiceID,
		TransactionID:       transactionID,
		Amount:              amount,
		MatchType:           matchType,
		MatchedBy:           matchedBy,
		MatchConfidence:     confidence,
	}, nil
}

// Reverse flags the payment as reversed. The amount fields are untouched so
// the audit trail stays intact.
func (p *Payment) Reverse(reason string) error {
	if p.IsReversed {
		return shared.NewConflictError(fmt.Sprintf("payment %s is already reversed", p.ID))
	}
	if reason == "" {
		return shared.NewValidationError("reversal reason is required")
	}
	now := time.Now()
	p.IsReversed = true
	p.ReversedAt = &now
	p.ReversalReason = reason
	p.UpdatedAt = now
	p.IncrementVersion()
	return nil
}
