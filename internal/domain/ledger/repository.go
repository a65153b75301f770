package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for the ledger aggregates.
// Every method is tenant-scoped; implementations must enforce the tenant
// filter on each read and write.
type Repository interface {
	// Transactions
	FindTransactionForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Transaction, error)
	// FindUnallocatedCredits returns credit transactions with an unallocated
	// remainder. With ids empty it returns all of them for the tenant.
	FindUnallocatedCredits(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]Transaction, error)
	FindTransactionsInPeriod(ctx context.Context, tenantID uuid.UUID, bankAccount string, start, end time.Time) ([]Transaction, error)
	SaveTransaction(ctx context.Context, tx *Transaction) error
	// MarkTransactionsReconciled locks the given transactions all-or-nothing
	MarkTransactionsReconciled(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, reconciliationID uuid.UUID) error

	// Invoices
	FindInvoiceForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	// FindOpenInvoices returns SENT/PARTIALLY_PAID/OVERDUE invoices,
	// optionally filtered to one parent
	FindOpenInvoices(ctx context.Context, tenantID uuid.UUID, parentID *uuid.UUID) ([]Invoice, error)
	SaveInvoice(ctx context.Context, inv *Invoice) error

	// Payments
	FindPaymentForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)
	FindPaymentsByTransaction(ctx context.Context, tenantID, transactionID uuid.UUID) ([]Payment, error)
	FindPaymentsByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]Payment, error)
	SavePayment(ctx context.Context, p *Payment) error
}
