package ledger

import (
	"testing"
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCreditTransaction(t *testing.T, amount valueobject.Cents) *Transaction {
	t.Helper()
	tx, err := NewTransaction(
		uuid.New(), "NL91BANK0000000001",
		time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		amount, true, "incoming payment", "INV-2025-0042", "J SMITH",
	)
	require.NoError(t, err)
	return tx
}

func TestNewTransaction(t *testing.T) {
	tenantID := uuid.New()
	date := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	t.Run("valid credit", func(t *testing.T) {
		tx, err := NewTransaction(tenantID, "NL91BANK0000000001", date, 345000, true, "desc", "ref", "payee")
		require.NoError(t, err)
		assert.Equal(t, TransactionStatusPending, tx.Status)
		assert.Equal(t, valueobject.Cents(345000), tx.UnallocatedAmount)
		assert.Equal(t, valueobject.Zero, tx.AllocatedAmount)
		assert.True(t, tx.BelongsTo(tenantID))
		assert.False(t, tx.IsReconciled)
	})

	t.Run("valid debit has no unallocated amount", func(t *testing.T) {
		tx, err := NewTransaction(tenantID, "NL91BANK0000000001", date, -120000, false, "rent", "", "")
		require.NoError(t, err)
		assert.Equal(t, valueobject.Zero, tx.UnallocatedAmount)
	})

	tests := []struct {
		name        string
		bankAccount string
		amount      valueobject.Cents
		isCredit    bool
	}{
		{"empty bank account", "", 100, true},
		{"zero amount", "NL91BANK0000000001", 0, true},
		{"negative credit", "NL91BANK0000000001", -100, true},
		{"positive debit", "NL91BANK0000000001", 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTransaction(tenantID, tt.bankAccount, date, tt.amount, tt.isCredit, "", "", "")
			assert.Error(t, err)
		})
	}
}

func TestTransactionAllocate(t *testing.T) {
	t.Run("partial then full", func(t *testing.T) {
		tx := newCreditTransaction(t, 345000)

		require.NoError(t, tx.Allocate(100000))
		assert.Equal(t, TransactionStatusPartiallyAllocated, tx.Status)
		assert.Equal(t, valueobject.Cents(100000), tx.AllocatedAmount)
		assert.Equal(t, valueobject.Cents(245000), tx.UnallocatedAmount)
		assert.False(t, tx.IsFullyAllocated())

		require.NoError(t, tx.Allocate(245000))
		assert.Equal(t, TransactionStatusAllocated, tx.Status)
		assert.True(t, tx.IsFullyAllocated())
		assert.NoError(t, tx.CheckAmountInvariant())
	})

	t.Run("over-allocation rejected", func(t *testing.T) {
		tx := newCreditTransaction(t, 345000)
		err := tx.Allocate(345001)
		assert.Error(t, err)
		assert.Equal(t, TransactionStatusPending, tx.Status)
	})

	t.Run("zero and negative rejected", func(t *testing.T) {
		tx := newCreditTransaction(t, 345000)
		assert.Error(t, tx.Allocate(0))
		assert.Error(t, tx.Allocate(-1))
	})

	t.Run("debit cannot be allocated", func(t *testing.T) {
		tx, err := NewTransaction(
			uuid.New(), "NL91BANK0000000001", time.Now(), -100, false, "", "", "")
		require.NoError(t, err)
		assert.Error(t, tx.Allocate(100))
	})
}

func TestTransactionReleaseAllocation(t *testing.T) {
	tx := newCreditTransaction(t, 345000)
	require.NoError(t, tx.Allocate(345000))

	require.NoError(t, tx.ReleaseAllocation(100000))
	assert.Equal(t, TransactionStatusPartiallyAllocated, tx.Status)
	assert.Equal(t, valueobject.Cents(245000), tx.AllocatedAmount)
	assert.NoError(t, tx.CheckAmountInvariant())

	err := tx.ReleaseAllocation(300000)
	require.Error(t, err)
	assert.True(t, shared.IsInvariantViolation(err))
}

func TestTransactionReconciledLock(t *testing.T) {
	tx := newCreditTransaction(t, 345000)
	recID := uuid.New()
	require.NoError(t, tx.MarkReconciled(recID))
	assert.True(t, tx.IsReconciled)
	require.NotNil(t, tx.ReconciliationID)
	assert.Equal(t, recID, *tx.ReconciliationID)

	// Every mutation is refused and names the blocking reconciliation
	for _, err := range []error{
		tx.Allocate(100),
		tx.ReleaseAllocation(100),
		tx.MarkReconciled(uuid.New()),
	} {
		require.Error(t, err)
		de, ok := err.(*shared.DomainError)
		require.True(t, ok)
		assert.Equal(t, shared.CodeConflict, de.Code)
		assert.Contains(t, de.Message, recID.String())
	}
}

func TestTransactionAmountInvariant(t *testing.T) {
	tx := newCreditTransaction(t, 345000)
	require.NoError(t, tx.Allocate(100000))

	// Simulated corruption is detected
	tx.UnallocatedAmount = 999999
	err := tx.CheckAmountInvariant()
	require.Error(t, err)
	assert.True(t, shared.IsInvariantViolation(err))
}

func TestTransactionCategorize(t *testing.T) {
	debit, err := NewTransaction(
		uuid.New(), "NL91BANK0000000001", time.Now(), -120000, false, "rent", "", "")
	require.NoError(t, err)

	assert.Error(t, debit.Categorize(""))
	require.NoError(t, debit.Categorize("premises"))
	assert.Equal(t, TransactionStatusCategorized, debit.Status)
	assert.Equal(t, "premises", debit.Category)

	credit := newCreditTransaction(t, 100)
	assert.Error(t, credit.Categorize("premises"))
}

func TestTransactionStatusIsAccounted(t *testing.T) {
	assert.False(t, TransactionStatusPending.IsAccounted())
	assert.True(t, TransactionStatusPartiallyAllocated.IsAccounted())
	assert.True(t, TransactionStatusAllocated.IsAccounted())
	assert.True(t, TransactionStatusCategorized.IsAccounted())
}
