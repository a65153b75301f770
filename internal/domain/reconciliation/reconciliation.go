package reconciliation

import (
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/ledger"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Status represents the outcome of a reconciliation run
type Status string

const (
	StatusInProgress  Status = "IN_PROGRESS"
	StatusReconciled  Status = "RECONCILED"  // Formula held; period transactions locked
	StatusDiscrepancy Status = "DISCREPANCY" // Formula failed; typed discrepancy list produced
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusInProgress, StatusReconciled, StatusDiscrepancy:
		return true
	}
	return false
}

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// StatementLine is one line of the bank statement supplied alongside the
// asserted balances. Lines are only used to classify discrepancies.
type StatementLine struct {
	Date        time.Time
	Amount      valueobject.Cents // Signed, bank perspective
	Description string
}

// Input carries the bank-statement-asserted values for one period
type Input struct {
	BankAccount    string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	OpeningBalance valueobject.Cents
	ClosingBalance valueobject.Cents
}

// Reconciliation proves that the ledger agrees with the bank statement for
// one account and period. Exactly one may exist per
// (tenant, bankAccount, periodStart, periodEnd).
type Reconciliation struct {
	shared.TenantAggregateRoot
	BankAccount       string
	PeriodStart       time.Time
	PeriodEnd         time.Time
	OpeningBalance    valueobject.Cents
	ClosingBalance    valueobject.Cents // Bank-stated
	CalculatedBalance valueobject.Cents
	Discrepancy       valueobject.Cents // ClosingBalance - CalculatedBalance
	Status            Status
	MatchedCount      int
	UnmatchedCount    int
	Discrepancies     []Discrepancy // Populated only when Status is DISCREPANCY
}

// Build runs the balance formula for a period and classifies the outcome.
//
//	calculated = opening + Σ credits(accounted) − Σ |debits|(accounted)
//
// A zero discrepancy yields RECONCILED and the caller must lock every period
// transaction. A non-zero discrepancy is a first-class successful outcome,
// not an error: the engine never guesses a correction.
func Build(tenantID uuid.UUID, in Input, transactions []ledger.Transaction, lines []StatementLine) (*Reconciliation, error) {
	if in.BankAccount == "" {
		return nil, shared.NewValidationError("bank account cannot be empty")
	}
	if in.PeriodEnd.Before(in.PeriodStart) {
		return nil, shared.NewValidationError(fmt.Sprintf(
			"period end %s precedes period start %s",
			in.PeriodEnd.Format(time.DateOnly), in.PeriodStart.Format(time.DateOnly)))
	}

	calculated := in.OpeningBalance
	for i := range transactions {
		tx := &transactions[i]
		if !tx.Status.IsAccounted() {
			continue
		}
		if tx.IsCredit {
			calculated += tx.Amount
		} else {
			calculated -= tx.Amount.Abs()
		}
	}

	rec := &Reconciliation{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BankAccount:         in.BankAccount,
		PeriodStart:         in.PeriodStart,
		PeriodEnd:           in.PeriodEnd,
		OpeningBalance:      in.OpeningBalance,
		ClosingBalance:      in.ClosingBalance,
		CalculatedBalance:   calculated,
		Discrepancy:         in.ClosingBalance - calculated,
	}

	if rec.Discrepancy.IsZero() {
		rec.Status = StatusReconciled
		rec.MatchedCount = len(transactions)
		rec.UnmatchedCount = 0
		return rec, nil
	}

	rec.Status = StatusDiscrepancy
	rec.Discrepancies = Classify(transactions, lines, rec.Discrepancy)
	rec.MatchedCount = len(transactions) - countLedgerSide(rec.Discrepancies)
	rec.UnmatchedCount = len(rec.Discrepancies)
	return rec, nil
}

// ContinuityWarning compares a previous RECONCILED period's calculated
// balance with this period's asserted opening balance. A mismatch is a
// warning for the operator, never a hard failure.
func (r *Reconciliation) ContinuityWarning(previous *Reconciliation) string {
	if previous == nil || previous.Status != StatusReconciled {
		return ""
	}
	if previous.CalculatedBalance == r.OpeningBalance {
		return ""
	}
	return fmt.Sprintf(
		"opening balance %s does not match calculated balance %s of reconciliation %s (period ending %s)",
		r.OpeningBalance, previous.CalculatedBalance, previous.ID,
		previous.PeriodEnd.Format(time.DateOnly))
}

func countLedgerSide(discrepancies []Discrepancy) int {
	n := 0
	for _, d := range discrepancies {
		if d.Type == DiscrepancyInLedgerNotBank || d.Type == DiscrepancyAmountMismatch {
			n++
		}
	}
	return n
}
