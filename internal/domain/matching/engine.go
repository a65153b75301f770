package matching

import (
	"sort"

	"github.com/billing/backend/internal/domain/ledger"
	"github.com/billing/backend/internal/domain/shared/valueobject"
)

// Confidence scores per matching tier. Tier order is strict: a higher tier
// that fires is never downgraded even when a lower tier also matches.
const (
	ConfidenceExactReference = 100
	ConfidenceParentAmount   = 90
	ConfidenceAmountOnly     = 75
	ConfidencePartial        = 75
	ConfidenceNoMatch        = 0

	// AutoApplyThreshold is the minimum confidence for applying an
	// allocation without human review
	AutoApplyThreshold = 80
)

// MatchOutcome classifies a match result for routing
type MatchOutcome string

const (
	OutcomeAutoApply      MatchOutcome = "AUTO_APPLY"      // Confidence >= threshold, single candidate
	OutcomeReviewRequired MatchOutcome = "REVIEW_REQUIRED" // Confidence in [1, threshold), or ambiguous
	OutcomeNoMatch        MatchOutcome = "NO_MATCH"
)

// Candidate is one proposed invoice for a transaction
type Candidate struct {
	Invoice    *ledger.Invoice
	MatchType  ledger.MatchType
	Confidence int
	// AllocationAmount is what would be allocated to this invoice:
	// the smaller of the transaction remainder and the invoice outstanding
	AllocationAmount valueobject.Cents
	// Partial is set when the transaction will not fully settle the invoice
	Partial bool
}

// Result is the match engine's verdict for one transaction
type Result struct {
	Transaction *ledger.Transaction
	Outcome     MatchOutcome
	MatchType   ledger.MatchType // Meaningful only when Outcome != NO_MATCH
	Confidence  int
	Candidates  []Candidate
	// Overpayment is set when the transaction remainder exceeds the matched
	// invoice's outstanding balance: only that balance is auto-applied and
	// the rest stays unallocated for manual disposition.
	Overpayment bool
}

// Best returns the highest-ranked candidate, or nil for NO_MATCH
func (r *Result) Best() *Candidate {
	if len(r.Candidates) == 0 {
		return nil
	}
	return &r.Candidates[0]
}

// Engine proposes invoice matches for unallocated credit transactions.
// It is read-only and side-effect-free, safe for arbitrary concurrent use.
type Engine struct{}

// NewEngine creates a new match engine
func NewEngine() *Engine {
	return &Engine{}
}

// MatchBatch matches each transaction against the open invoices and returns
// one result per transaction, in input order.
func (e *Engine) MatchBatch(transactions []ledger.Transaction, invoices []ledger.Invoice) []Result {
	results := make([]Result, 0, len(transactions))
	for i := range transactions {
		results = append(results, *e.Match(&transactions[i], invoices))
	}
	return results
}

// Match evaluates the tier ladder for a single transaction:
// EXACT_REFERENCE (100), PARENT_AMOUNT (90), AMOUNT_ONLY (75),
// PARTIAL (75), NO_MATCH (0). The first tier that fires wins.
func (e *Engine) Match(tx *ledger.Transaction, invoices []ledger.Invoice) *Result {
	if !tx.IsCredit || !tx.UnallocatedAmount.IsPositive() {
		return noMatch(tx)
	}

	open := openInvoices(invoices)
	if len(open) == 0 {
		return noMatch(tx)
	}

	amount := tx.UnallocatedAmount

	// Tier 1: invoice number verbatim in reference/description
	if byRef := filterInvoices(open, func(inv *ledger.Invoice) bool {
		return ReferenceContains(tx.Reference, tx.Description, inv.InvoiceNumber)
	}); len(byRef) == 1 {
		inv := byRef[0]
		switch {
		case amount == inv.Outstanding():
			return autoApplied(tx, inv, ledger.MatchTypeExactReference, ConfidenceExactReference, false)
		case amount > inv.Outstanding():
			// Overpayment: settle the referenced invoice, leave the rest
			return autoApplied(tx, inv, ledger.MatchTypeExactReference, ConfidenceExactReference, true)
		}
		// Amount below outstanding: corroborated partial payment, tier 4
		return reviewRequired(tx, ledger.MatchTypeAmountOnly, ConfidencePartial, []Candidate{
			partialCandidate(inv, amount),
		})
	}

	// Tier 2: payee name matches the parent on exactly one outstanding
	// invoice with the exact amount
	byName := filterInvoices(open, func(inv *ledger.Invoice) bool {
		return NamesMatch(tx.PayeeName, inv.ParentName)
	})
	if exact := filterInvoices(byName, func(inv *ledger.Invoice) bool {
		return inv.Outstanding() == amount
	}); len(exact) == 1 {
		return autoApplied(tx, exact[0], ledger.MatchTypeParentAmount, ConfidenceParentAmount, false)
	}
	if len(byName) == 1 && amount > byName[0].Outstanding() {
		// Name-corroborated overpayment against the parent's only open invoice
		return autoApplied(tx, byName[0], ledger.MatchTypeParentAmount, ConfidenceParentAmount, true)
	}

	// Tier 3: amount equality with no corroboration. A single hit is still
	// forced into review; multiple hits are inherently ambiguous.
	if byAmount := filterInvoices(open, func(inv *ledger.Invoice) bool {
		return inv.Outstanding() == amount
	}); len(byAmount) > 0 {
		candidates := make([]Candidate, 0, len(byAmount))
		for _, inv := range byAmount {
			candidates = append(candidates, Candidate{
				Invoice:          inv,
				MatchType:        ledger.MatchTypeAmountOnly,
				Confidence:       ConfidenceAmountOnly,
				AllocationAmount: amount,
			})
		}
		return reviewRequired(tx, ledger.MatchTypeAmountOnly, ConfidenceAmountOnly, candidates)
	}

	// Tier 4: partial payment corroborated by name against exactly one
	// larger invoice (reference-corroborated partials are caught in tier 1)
	if partial := filterInvoices(byName, func(inv *ledger.Invoice) bool {
		return amount < inv.Outstanding()
	}); len(partial) == 1 {
		return reviewRequired(tx, ledger.MatchTypeAmountOnly, ConfidencePartial, []Candidate{
			partialCandidate(partial[0], amount),
		})
	}

	return noMatch(tx)
}

func openInvoices(invoices []ledger.Invoice) []*ledger.Invoice {
	open := make([]*ledger.Invoice, 0, len(invoices))
	for i := range invoices {
		if invoices[i].Status.IsOpen() && invoices[i].Outstanding().IsPositive() {
			open = append(open, &invoices[i])
		}
	}
	return open
}

func filterInvoices(invoices []*ledger.Invoice, keep func(*ledger.Invoice) bool) []*ledger.Invoice {
	out := make([]*ledger.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if keep(inv) {
			out = append(out, inv)
		}
	}
	return out
}

func partialCandidate(inv *ledger.Invoice, amount valueobject.Cents) Candidate {
	return Candidate{
		Invoice:          inv,
		MatchType:        ledger.MatchTypeAmountOnly,
		Confidence:       ConfidencePartial,
		AllocationAmount: amount,
		Partial:          true,
	}
}

func autoApplied(tx *ledger.Transaction, inv *ledger.Invoice, mt ledger.MatchType, confidence int, overpayment bool) *Result {
	alloc := tx.UnallocatedAmount
	if inv.Outstanding() < alloc {
		alloc = inv.Outstanding()
	}
	return &Result{
		Transaction: tx,
		Outcome:     OutcomeAutoApply,
		MatchType:   mt,
		Confidence:  confidence,
		Overpayment: overpayment,
		Candidates: []Candidate{{
			Invoice:          inv,
			MatchType:        mt,
			Confidence:       confidence,
			AllocationAmount: alloc,
		}},
	}
}

func reviewRequired(tx *ledger.Transaction, mt ledger.MatchType, confidence int, candidates []Candidate) *Result {
	// Rank by confidence descending, ties on due date ascending so the
	// oldest debt is suggested first
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Invoice.DueDate.Before(candidates[j].Invoice.DueDate)
	})
	return &Result{
		Transaction: tx,
		Outcome:     OutcomeReviewRequired,
		MatchType:   mt,
		Confidence:  confidence,
		Candidates:  candidates,
	}
}

func noMatch(tx *ledger.Transaction) *Result {
	return &Result{
		Transaction: tx,
		Outcome:     OutcomeNoMatch,
		Confidence:  ConfidenceNoMatch,
	}
}
