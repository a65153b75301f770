package billing

import (
	"context"
	"time"

	"github.com/billing/backend/internal/domain/ledger"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ArrearsService derives the arrears read model from open invoices. It is
// read-only: invoices past due are marked OVERDUE only in the returned view,
// never written back.
type ArrearsService struct {
	store  Store
	logger *zap.Logger
}

// NewArrearsService creates a new ArrearsService
func NewArrearsService(store Store, logger *zap.Logger) *ArrearsService {
	return &ArrearsService{
		store:  store,
		logger: logger.Named("arrears"),
	}
}

// ArrearsRequest filters the arrears report. AsOf defaults to now; ParentID
// limits the report to one parent; MinOutstanding drops entries below the
// threshold.
type ArrearsRequest struct {
	TenantID       uuid.UUID
	AsOf           time.Time
	ParentID       *uuid.UUID
	MinOutstanding valueobject.Cents
}

// Report builds the aging summary, ranked debtor list and per-invoice
// entries as of a point in time.
func (s *ArrearsService) Report(ctx context.Context, req ArrearsRequest) (*ledger.ArrearsReport, error) {
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	invoices, err := s.store.FindOpenInvoices(ctx, req.TenantID, req.ParentID)
	if err != nil {
		return nil, err
	}

	// Overdue status is derived for the report only
	for i := range invoices {
		invoices[i].MarkOverdue(asOf)
	}

	report := ledger.CalculateArrears(invoices, asOf, req.MinOutstanding)
	s.logger.Debug("arrears report built",
		zap.String("tenant_id", req.TenantID.String()),
		zap.Int("entries", len(report.Entries)),
		zap.Int("debtors", len(report.Debtors)))
	return report, nil
}
