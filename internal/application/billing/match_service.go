package billing

import (
	"context"
	"fmt"

	"github.com/billing/backend/internal/domain/ledger"
	"github.com/billing/backend/internal/domain/matching"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MatchService runs the match engine over unallocated credits and applies
// the auto-apply policy: confident single-candidate matches are allocated
// immediately with matchedBy=AI, everything else is surfaced for review.
type MatchService struct {
	store      Store
	engine     *matching.Engine
	allocation *AllocationService
	logger     *zap.Logger
}

// NewMatchService creates a new MatchService
func NewMatchService(store Store, allocation *AllocationService, logger *zap.Logger) *MatchService {
	return &MatchService{
		store:      store,
		engine:     matching.NewEngine(),
		allocation: allocation,
		logger:     logger.Named("match"),
	}
}

// MatchRequest selects the transactions to match. With no IDs every
// unallocated credit of the tenant is matched.
type MatchRequest struct {
	TenantID       uuid.UUID
	TransactionIDs []uuid.UUID
	Actor          string
}

// SuggestedMatch is one review candidate surfaced to the operator
type SuggestedMatch struct {
	InvoiceID        uuid.UUID
	InvoiceNumber    string
	ParentName       string
	MatchType        ledger.MatchType
	Confidence       int
	AllocationAmount string
	Partial          bool
}

// TransactionMatch is the per-transaction outcome of a match run
type TransactionMatch struct {
	TransactionID    uuid.UUID
	Outcome          matching.MatchOutcome
	MatchType        ledger.MatchType
	Confidence       int
	AutoApplied      bool
	InvoiceID        *uuid.UUID
	Overpayment      bool
	SuggestedMatches []SuggestedMatch
}

// MatchResult summarizes one match run
type MatchResult struct {
	AutoApplied    int
	ReviewRequired int
	NoMatch        int
	Results        []TransactionMatch
	Audit          AuditRecord
}

// Match evaluates the tier ladder for the requested transactions and
// auto-applies confident matches. Transactions named in the request that
// have nothing left to allocate come back as NO_MATCH rather than an error,
// so a retried run never produces a duplicate payment.
func (s *MatchService) Match(ctx context.Context, req MatchRequest) (*MatchResult, error) {
	transactions, err := s.store.FindUnallocatedCredits(ctx, req.TenantID, req.TransactionIDs)
	if err != nil {
		return nil, err
	}
	invoices, err := s.store.FindOpenInvoices(ctx, req.TenantID, nil)
	if err != nil {
		return nil, err
	}

	// IDs requested but no longer unallocated still get a result row
	seen := make(map[uuid.UUID]bool, len(transactions))
	for i := range transactions {
		seen[transactions[i].ID] = true
	}

	result := &MatchResult{}
	for _, verdict := range s.engine.MatchBatch(transactions, invoices) {
		entry := TransactionMatch{
			TransactionID: verdict.Transaction.ID,
			Outcome:       verdict.Outcome,
			MatchType:     verdict.MatchType,
			Confidence:    verdict.Confidence,
			Overpayment:   verdict.Overpayment,
		}

		switch verdict.Outcome {
		case matching.OutcomeAutoApply:
			best := verdict.Best()
			alloc, err := s.allocation.Allocate(ctx, AllocateRequest{
				TenantID:      req.TenantID,
				TransactionID: verdict.Transaction.ID,
				Allocations: []AllocationItem{{
					InvoiceID: best.Invoice.ID,
					Amount:    best.AllocationAmount,
				}},
				MatchType:  verdict.MatchType,
				MatchedBy:  ledger.MatchedByAI,
				Confidence: verdict.Confidence,
				Actor:      req.Actor,
			})
			if err != nil {
				// A stale snapshot is not fatal to the batch. The invoice
				// list is read once per run, so an earlier apply in the
				// same run (or a concurrent allocation) can have settled
				// the invoice this entry targets. The individual apply
				// rolled back cleanly, so the entry is downgraded and the
				// rest of the batch continues. Invariant violations and
				// infrastructure errors still abort the run.
				if de, ok := err.(*shared.DomainError); ok && de.Code != shared.CodeInvariantViolation {
					s.logger.Warn("auto-apply skipped on stale snapshot",
						zap.String("transaction_id", verdict.Transaction.ID.String()),
						zap.String("code", de.Code),
						zap.Error(err))
					entry.Outcome = matching.OutcomeNoMatch
					entry.Confidence = matching.ConfidenceNoMatch
					result.NoMatch++
					result.Results = append(result.Results, entry)
					continue
				}
				return nil, err
			}
			invoiceID := best.Invoice.ID
			entry.AutoApplied = true
			entry.InvoiceID = &invoiceID
			result.AutoApplied++
			if alloc.UnallocatedAmount.IsPositive() {
				s.logger.Info("overpayment remainder left for manual disposition",
					zap.String("transaction_id", verdict.Transaction.ID.String()),
					zap.String("remainder", alloc.UnallocatedAmount.String()))
			}

		case matching.OutcomeReviewRequired:
			for _, c := range verdict.Candidates {
				entry.SuggestedMatches = append(entry.SuggestedMatches, SuggestedMatch{
					InvoiceID:        c.Invoice.ID,
					InvoiceNumber:    c.Invoice.InvoiceNumber,
					ParentName:       c.Invoice.ParentName,
					MatchType:        c.MatchType,
					Confidence:       c.Confidence,
					AllocationAmount: c.AllocationAmount.String(),
					Partial:          c.Partial,
				})
			}
			result.ReviewRequired++

		default:
			result.NoMatch++
		}
		result.Results = append(result.Results, entry)
	}

	// Explicitly requested transactions with nothing left to allocate
	for _, id := range req.TransactionIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		result.NoMatch++
		result.Results = append(result.Results, TransactionMatch{
			TransactionID: id,
			Outcome:       matching.OutcomeNoMatch,
			Confidence:    matching.ConfidenceNoMatch,
		})
	}

	result.Audit = newAuditRecord(req.Actor, "match.run", req.TenantID, fmt.Sprintf(
		"matched %d transaction(s): %d auto-applied, %d for review, %d unmatched",
		len(result.Results), result.AutoApplied, result.ReviewRequired, result.NoMatch))
	return result, nil
}
