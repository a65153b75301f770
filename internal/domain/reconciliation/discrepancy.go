package reconciliation

import (
	"sort"
	"time"

	"github.com/billing/backend/internal/domain/ledger"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// DiscrepancyType classifies why a period failed to balance
type DiscrepancyType string

const (
	DiscrepancyInLedgerNotBank DiscrepancyType = "IN_LEDGER_NOT_BANK"
	DiscrepancyInBankNotLedger DiscrepancyType = "IN_BANK_NOT_LEDGER"
	DiscrepancyAmountMismatch  DiscrepancyType = "AMOUNT_MISMATCH"
)

// Discrepancy is one concrete difference between the ledger and the bank
// statement. The engine reports differences verbatim and never invents a
// correcting entry.
type Discrepancy struct {
	Type          DiscrepancyType
	TransactionID *uuid.UUID // Ledger side, when present
	Date          time.Time
	LedgerAmount  valueobject.Cents
	BankAmount    valueobject.Cents
	Description   string
}

type lineKey struct {
	date   string
	amount valueobject.Cents
}

// Classify diffs accounted ledger transactions against statement lines.
// Lines and transactions pair up on exact (date, signed amount); leftovers
// sharing a date pair as AMOUNT_MISMATCH; the rest are one-sided. With no
// statement lines at all the net difference is reported as a single
// AMOUNT_MISMATCH so the outcome is never an empty discrepancy list.
func Classify(transactions []ledger.Transaction, lines []StatementLine, netDifference valueobject.Cents) []Discrepancy {
	accounted := make([]*ledger.Transaction, 0, len(transactions))
	for i := range transactions {
		if transactions[i].Status.IsAccounted() {
			accounted = append(accounted, &transactions[i])
		}
	}

	if len(lines) == 0 {
		return []Discrepancy{{
			Type:         DiscrepancyAmountMismatch,
			LedgerAmount: valueobject.Zero,
			BankAmount:   netDifference,
			Description:  "closing balance differs from calculated balance; no statement lines supplied",
		}}
	}

	unmatchedLines := make(map[lineKey][]StatementLine)
	for _, ln := range lines {
		k := lineKey{date: ln.Date.Format(time.DateOnly), amount: ln.Amount}
		unmatchedLines[k] = append(unmatchedLines[k], ln)
	}

	var leftoverTx []*ledger.Transaction
	for _, tx := range accounted {
		k := lineKey{date: tx.Date.Format(time.DateOnly), amount: signedAmount(tx)}
		if queue := unmatchedLines[k]; len(queue) > 0 {
			unmatchedLines[k] = queue[1:]
			continue
		}
		leftoverTx = append(leftoverTx, tx)
	}

	var leftoverLines []StatementLine
	for _, queue := range unmatchedLines {
		leftoverLines = append(leftoverLines, queue...)
	}
	sort.Slice(leftoverLines, func(i, j int) bool {
		if !leftoverLines[i].Date.Equal(leftoverLines[j].Date) {
			return leftoverLines[i].Date.Before(leftoverLines[j].Date)
		}
		return leftoverLines[i].Amount < leftoverLines[j].Amount
	})

	var result []Discrepancy

	// Same-date leftovers are almost always the same underlying movement
	// recorded with different amounts.
	for _, tx := range leftoverTx {
		idx := -1
		for i, ln := range leftoverLines {
			if ln.Date.Format(time.DateOnly) == tx.Date.Format(time.DateOnly) {
				idx = i
				break
			}
		}
		if idx >= 0 {
			ln := leftoverLines[idx]
			leftoverLines = append(leftoverLines[:idx], leftoverLines[idx+1:]...)
			id := tx.ID
			result = append(result, Discrepancy{
				Type:          DiscrepancyAmountMismatch,
				TransactionID: &id,
				Date:          tx.Date,
				LedgerAmount:  signedAmount(tx),
				BankAmount:    ln.Amount,
				Description:   tx.Description,
			})
			continue
		}
		id := tx.ID
		result = append(result, Discrepancy{
			Type:          DiscrepancyInLedgerNotBank,
			TransactionID: &id,
			Date:          tx.Date,
			LedgerAmount:  signedAmount(tx),
			Description:   tx.Description,
		})
	}

	for _, ln := range leftoverLines {
		result = append(result, Discrepancy{
			Type:        DiscrepancyInBankNotLedger,
			Date:        ln.Date,
			BankAmount:  ln.Amount,
			Description: ln.Description,
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result
}

func signedAmount(tx *ledger.Transaction) valueobject.Cents {
	if tx.IsCredit {
		return tx.Amount
	}
	return -tx.Amount.Abs()
}
