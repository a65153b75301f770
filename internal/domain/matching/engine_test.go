package matching

import (
	"testing"
	"time"

	"github.com/billing/backend/internal/domain/ledger"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTenantID = uuid.New()

func newTestTransaction(t *testing.T, amount valueobject.Cents, reference, payeeName string) *ledger.Transaction {
	t.Helper()
	tx, err := ledger.NewTransaction(
		testTenantID, "NL91BANK0000000001", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		amount, true, "incoming payment", reference, payeeName,
	)
	require.NoError(t, err)
	return tx
}

func newOpenInvoice(t *testing.T, number, parentName string, total valueobject.Cents, dueDate time.Time) ledger.Invoice {
	t.Helper()
	inv, err := ledger.NewInvoice(
		testTenantID, number, uuid.New(), parentName, total,
		dueDate.AddDate(0, 0, -14), dueDate,
	)
	require.NoError(t, err)
	require.NoError(t, inv.Send())
	return *inv
}

func TestMatchExactReference(t *testing.T) {
	engine := NewEngine()
	due := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	invoices := []ledger.Invoice{
		newOpenInvoice(t, "INV-2025-0042", "John Smith", 345000, due),
		newOpenInvoice(t, "INV-2025-0043", "Mary Jones", 120000, due),
	}
	tx := newTestTransaction(t, 345000, "INV-2025-0042", "J SMITH")

	result := engine.Match(tx, invoices)

	assert.Equal(t, OutcomeAutoApply, result.Outcome)
	assert.Equal(t, ledger.MatchTypeExactReference, result.MatchType)
	assert.Equal(t, ConfidenceExactReference, result.Confidence)
	assert.False(t, result.Overpayment)
	require.NotNil(t, result.Best())
	assert.Equal(t, "INV-2025-0042", result.Best().Invoice.InvoiceNumber)
	assert.Equal(t, valueobject.Cents(345000), result.Best().AllocationAmount)
}

func TestMatchExactReferenceBeatsLowerTiers(t *testing.T) {
	// The reference tier wins even when other invoices share the amount
	engine := NewEngine()
	due := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	invoices := []ledger.Invoice{
		newOpenInvoice(t, "INV-2025-0042", "John Smith", 250000, due),
		newOpenInvoice(t, "INV-2025-0050", "Mary Jones", 250000, due),
	}
	tx := newTestTransaction(t, 250000, "payment INV-2025-0042", "MARY JONES")

	result := engine.Match(tx, invoices)

	assert.Equal(t, OutcomeAutoApply, result.Outcome)
	assert.Equal(t, ledger.MatchTypeExactReference, result.MatchType)
	assert.Equal(t, "INV-2025-0042", result.Best().Invoice.InvoiceNumber)
}

func TestMatchReferenceOverpayment(t *testing.T) {
	engine := NewEngine()
	due := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	invoices := []ledger.Invoice{
		newOpenInvoice(t, "INV-2025-0042", "John Smith", 300000, due),
	}
	tx := newTestTransaction(t, 345000, "INV-2025-0042", "J SMITH")

	result := engine.Match(tx, invoices)

	assert.Equal(t, OutcomeAutoApply, result.Outcome)
	assert.True(t, result.Overpayment)
	// Only the outstanding balance is applied; the rest stays unallocated
	assert.Equal(t, valueobject.Cents(300000), result.Best().AllocationAmount)
}

func TestMatchReferencePartialGoesToReview(t *testing.T) {
	engine := NewEngine()
	due := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	invoices := []ledger.Invoice{
		newOpenInvoice(t, "INV-2025-0042", "John Smith", 345000, due),
	}
	tx := newTestTransaction(t, 100000, "INV-2025-0042", "J SMITH")

	result := engine.Match(tx, invoices)

	assert.Equal(t, OutcomeReviewRequired, result.Outcome)
	assert.Equal(t, ConfidencePartial, result.Confidence)
	require.Len(t, result.Candidates, 1)
	assert.True(t, result.Candidates[0].Partial)
	assert.Equal(t, valueobject.Cents(100000), result.Candidates[0].AllocationAmount)
}

func TestMatchParentAmount(t *testing.T) {
	engine := NewEngine()
	due := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	invoices := []ledger.Invoice{
		newOpenInvoice(t, "INV-2025-0042", "John Smith", 345000, due),
		newOpenInvoice(t, "INV-2025-0043", "Mary Jones", 345000, due),
	}
	tx := newTestTransaction(t, 345000, "no invoice ref", "SMITH JOHN")

	result := engine.Match(tx, invoices)

	assert.Equal(t, OutcomeAutoApply, result.Outcome)
	assert.Equal(t, ledger.MatchTypeParentAmount, result.MatchType)
	assert.Equal(t, ConfidenceParentAmount, result.Confidence)
	assert.Equal(t, "INV-2025-0042", result.Best().Invoice.InvoiceNumber)
}

func TestMatchAmountOnlyAmbiguous(t *testing.T) {
	// Two invoices with the same outstanding amount and no corroboration:
	// both surface as candidates and the result requires review
	engine := NewEngine()
	earlier := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
	later := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	invoices := []ledger.Invoice{
		newOpenInvoice(t, "INV-2025-0040", "Mary Jones", 250000, later),
		newOpenInvoice(t, "INV-2025-0041", "Peter Brown", 250000, earlier),
	}
	tx := newTestTransaction(t, 250000, "", "SOMEONE ELSE")

	result := engine.Match(tx, invoices)

	assert.Equal(t, OutcomeReviewRequired, result.Outcome)
	assert.Equal(t, ledger.MatchTypeAmountOnly, result.MatchType)
	assert.Equal(t, ConfidenceAmountOnly, result.Confidence)
	require.Len(t, result.Candidates, 2)
	// Oldest due date ranks first on equal confidence
	assert.Equal(t, "INV-2025-0041", result.Candidates[0].Invoice.InvoiceNumber)
	assert.Equal(t, "INV-2025-0040", result.Candidates[1].Invoice.InvoiceNumber)
}

func TestMatchAmountOnlySingleStillReview(t *testing.T) {
	engine := NewEngine()
	due := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	invoices := []ledger.Invoice{
		newOpenInvoice(t, "INV-2025-0042", "John Smith", 250000, due),
	}
	tx := newTestTransaction(t, 250000, "", "UNRELATED PAYER")

	result := engine.Match(tx, invoices)

	assert.Equal(t, OutcomeReviewRequired, result.Outcome)
	assert.Equal(t, ConfidenceAmountOnly, result.Confidence)
	assert.Less(t, result.Confidence, AutoApplyThreshold)
}

func TestMatchPartialByName(t *testing.T) {
	engine := NewEngine()
	due := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	invoices := []ledger.Invoice{
		newOpenInvoice(t, "INV-2025-0042", "John Smith", 345000, due),
		newOpenInvoice(t, "INV-2025-0043", "Mary Jones", 120000, due),
	}
	tx := newTestTransaction(t, 150000, "monthly instalment", "J SMITH")

	result := engine.Match(tx, invoices)

	assert.Equal(t, OutcomeReviewRequired, result.Outcome)
	require.Len(t, result.Candidates, 1)
	assert.True(t, result.Candidates[0].Partial)
	assert.Equal(t, "INV-2025-0042", result.Candidates[0].Invoice.InvoiceNumber)
	assert.Equal(t, valueobject.Cents(150000), result.Candidates[0].AllocationAmount)
}

func TestMatchNoMatch(t *testing.T) {
	engine := NewEngine()
	due := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	invoices := []ledger.Invoice{
		newOpenInvoice(t, "INV-2025-0042", "John Smith", 345000, due),
	}
	tx := newTestTransaction(t, 999900, "unknown deposit", "STRANGER")

	result := engine.Match(tx, invoices)

	assert.Equal(t, OutcomeNoMatch, result.Outcome)
	assert.Equal(t, ConfidenceNoMatch, result.Confidence)
	assert.Empty(t, result.Candidates)
	assert.Nil(t, result.Best())
}

func TestMatchSkipsDebitsAndAllocated(t *testing.T) {
	engine := NewEngine()
	due := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	invoices := []ledger.Invoice{
		newOpenInvoice(t, "INV-2025-0042", "John Smith", 345000, due),
	}

	debit, err := ledger.NewTransaction(
		testTenantID, "NL91BANK0000000001", due, -345000, false,
		"INV-2025-0042", "INV-2025-0042", "J SMITH",
	)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoMatch, engine.Match(debit, invoices).Outcome)

	allocated := newTestTransaction(t, 345000, "INV-2025-0042", "J SMITH")
	require.NoError(t, allocated.Allocate(345000))
	assert.Equal(t, OutcomeNoMatch, engine.Match(allocated, invoices).Outcome)
}

func TestMatchIgnoresClosedInvoices(t *testing.T) {
	engine := NewEngine()
	due := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	paid := newOpenInvoice(t, "INV-2025-0042", "John Smith", 345000, due)
	require.NoError(t, paid.ApplyPayment(345000))

	draft, err := ledger.NewInvoice(
		testTenantID, "INV-2025-0044", uuid.New(), "John Smith", 345000,
		due.AddDate(0, 0, -14), due,
	)
	require.NoError(t, err)

	tx := newTestTransaction(t, 345000, "INV-2025-0042", "J SMITH")
	result := engine.Match(tx, []ledger.Invoice{paid, *draft})

	assert.Equal(t, OutcomeNoMatch, result.Outcome)
}

func TestMatchBatchPreservesOrder(t *testing.T) {
	engine := NewEngine()
	due := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	invoices := []ledger.Invoice{
		newOpenInvoice(t, "INV-2025-0042", "John Smith", 345000, due),
	}
	txs := []ledger.Transaction{
		*newTestTransaction(t, 345000, "INV-2025-0042", "J SMITH"),
		*newTestTransaction(t, 500, "", "NOBODY"),
	}

	results := engine.MatchBatch(txs, invoices)

	require.Len(t, results, 2)
	assert.Equal(t, OutcomeAutoApply, results[0].Outcome)
	assert.Equal(t, OutcomeNoMatch, results[1].Outcome)
}

func TestAutoApplyThresholdOrdering(t *testing.T) {
	assert.GreaterOrEqual(t, ConfidenceExactReference, AutoApplyThreshold)
	assert.GreaterOrEqual(t, ConfidenceParentAmount, AutoApplyThreshold)
	assert.Less(t, ConfidenceAmountOnly, AutoApplyThreshold)
	assert.Less(t, ConfidencePartial, AutoApplyThreshold)
}
