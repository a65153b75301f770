package billing

import (
	"context"
	"testing"
	"time"

	"github.com/billing/backend/internal/domain/ledger"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedInvoiceDue(t *testing.T, store *memStore, tenantID, parentID uuid.UUID, number, parentName string, total valueobject.Cents, dueDate time.Time) *ledger.Invoice {
	t.Helper()
	inv, err := ledger.NewInvoice(
		tenantID, number, parentID, parentName, total,
		dueDate.AddDate(0, 0, -14), dueDate)
	require.NoError(t, err)
	require.NoError(t, inv.Send())
	store.seedInvoice(inv)
	return inv
}

func TestArrearsReport(t *testing.T) {
	store := newMemStore()
	tenantID := uuid.New()
	smith := uuid.New()
	jones := uuid.New()
	asOf := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	// 45 days overdue, R2,000 outstanding: lands in the 30 bucket
	seedInvoiceDue(t, store, tenantID, smith, "INV-1", "John Smith", 200000, asOf.AddDate(0, 0, -45))
	// 10 days overdue
	seedInvoiceDue(t, store, tenantID, jones, "INV-2", "Mary Jones", 100000, asOf.AddDate(0, 0, -10))
	// Not yet due: excluded
	seedInvoiceDue(t, store, tenantID, jones, "INV-3", "Mary Jones", 999900, asOf.AddDate(0, 0, 10))

	svc := NewArrearsService(store, zap.NewNop())
	report, err := svc.Report(context.Background(), ArrearsRequest{TenantID: tenantID, AsOf: asOf})
	require.NoError(t, err)

	require.Len(t, report.Entries, 2)
	assert.Equal(t, "INV-1", report.Entries[0].InvoiceNumber)
	assert.Equal(t, 45, report.Entries[0].DaysOverdue)
	assert.Equal(t, ledger.AgingBucket30, report.Entries[0].Bucket)

	assert.Equal(t, valueobject.Cents(200000), report.Aging.Days30)
	assert.Equal(t, valueobject.Cents(100000), report.Aging.Current)
	assert.Equal(t, valueobject.Cents(300000), report.Aging.Total())

	require.Len(t, report.Debtors, 2)
	assert.Equal(t, smith, report.Debtors[0].ParentID)
	assert.Equal(t, 1, report.Debtors[0].InvoiceCount)
}

func TestArrearsParentFilter(t *testing.T) {
	store := newMemStore()
	tenantID := uuid.New()
	smith := uuid.New()
	asOf := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	seedInvoiceDue(t, store, tenantID, smith, "INV-1", "John Smith", 200000, asOf.AddDate(0, 0, -45))
	seedInvoiceDue(t, store, tenantID, uuid.New(), "INV-2", "Mary Jones", 100000, asOf.AddDate(0, 0, -10))

	svc := NewArrearsService(store, zap.NewNop())
	report, err := svc.Report(context.Background(), ArrearsRequest{
		TenantID: tenantID, AsOf: asOf, ParentID: &smith,
	})
	require.NoError(t, err)

	require.Len(t, report.Entries, 1)
	assert.Equal(t, smith, report.Entries[0].ParentID)
}

func TestArrearsMinOutstandingFilter(t *testing.T) {
	store := newMemStore()
	tenantID := uuid.New()
	asOf := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	seedInvoiceDue(t, store, tenantID, uuid.New(), "INV-1", "John Smith", 200000, asOf.AddDate(0, 0, -45))
	seedInvoiceDue(t, store, tenantID, uuid.New(), "INV-2", "Mary Jones", 500, asOf.AddDate(0, 0, -45))

	svc := NewArrearsService(store, zap.NewNop())
	report, err := svc.Report(context.Background(), ArrearsRequest{
		TenantID: tenantID, AsOf: asOf, MinOutstanding: 1000,
	})
	require.NoError(t, err)

	require.Len(t, report.Entries, 1)
	assert.Equal(t, "INV-1", report.Entries[0].InvoiceNumber)
}

func TestArrearsIsReadOnly(t *testing.T) {
	store := newMemStore()
	tenantID := uuid.New()
	asOf := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	inv := seedInvoiceDue(t, store, tenantID, uuid.New(), "INV-1", "John Smith", 200000, asOf.AddDate(0, 0, -45))

	svc := NewArrearsService(store, zap.NewNop())
	_, err := svc.Report(context.Background(), ArrearsRequest{TenantID: tenantID, AsOf: asOf})
	require.NoError(t, err)

	// The persisted invoice keeps its stored status; OVERDUE is derived in
	// the report view only
	stored, err := store.FindInvoiceForTenant(context.Background(), tenantID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.InvoiceStatusSent, stored.Status)
}
