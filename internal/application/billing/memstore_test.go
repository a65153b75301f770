package billing

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/billing/backend/internal/domain/ledger"
	"github.com/billing/backend/internal/domain/reconciliation"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// memStore is an in-memory Store for service tests. InTx snapshots the maps
// and restores them when fn fails, mirroring the rollback semantics of the
// real database-backed store.
type memStore struct {
	mu              sync.Mutex
	transactions    map[uuid.UUID]ledger.Transaction
	invoices        map[uuid.UUID]ledger.Invoice
	payments        map[uuid.UUID]ledger.Payment
	reconciliations map[uuid.UUID]reconciliation.Reconciliation
}

func newMemStore() *memStore {
	return &memStore{
		transactions:    make(map[uuid.UUID]ledger.Transaction),
		invoices:        make(map[uuid.UUID]ledger.Invoice),
		payments:        make(map[uuid.UUID]ledger.Payment),
		reconciliations: make(map[uuid.UUID]reconciliation.Reconciliation),
	}
}

func (m *memStore) seedTransaction(tx *ledger.Transaction) { m.transactions[tx.ID] = *tx }
func (m *memStore) seedInvoice(inv *ledger.Invoice)        { m.invoices[inv.ID] = *inv }

func (m *memStore) InTx(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapTx := cloneMap(m.transactions)
	snapInv := cloneMap(m.invoices)
	snapPay := cloneMap(m.payments)
	snapRec := cloneMap(m.reconciliations)

	if err := fn(m); err != nil {
		m.transactions = snapTx
		m.invoices = snapInv
		m.payments = snapPay
		m.reconciliations = snapRec
		return err
	}
	return nil
}

func cloneMap[V any](src map[uuid.UUID]V) map[uuid.UUID]V {
	dst := make(map[uuid.UUID]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (m *memStore) FindTransactionForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Transaction, error) {
	tx, ok := m.transactions[id]
	if !ok || !tx.BelongsTo(tenantID) {
		return nil, shared.NewNotFoundError(fmt.Sprintf("transaction %s not found", id))
	}
	return &tx, nil
}

func (m *memStore) FindUnallocatedCredits(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]ledger.Transaction, error) {
	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []ledger.Transaction
	for _, tx := range m.transactions {
		if !tx.BelongsTo(tenantID) || !tx.IsCredit || !tx.UnallocatedAmount.IsPositive() {
			continue
		}
		if len(ids) > 0 && !wanted[tx.ID] {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *memStore) FindTransactionsInPeriod(ctx context.Context, tenantID uuid.UUID, bankAccount string, start, end time.Time) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	for _, tx := range m.transactions {
		if !tx.BelongsTo(tenantID) || tx.BankAccount != bankAccount {
			continue
		}
		if tx.Date.Before(start) || tx.Date.After(end) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *memStore) SaveTransaction(ctx context.Context, tx *ledger.Transaction) error {
	m.transactions[tx.ID] = *tx
	return nil
}

func (m *memStore) MarkTransactionsReconciled(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, reconciliationID uuid.UUID) error {
	for _, id := range ids {
		tx, ok := m.transactions[id]
		if !ok || !tx.BelongsTo(tenantID) {
			return shared.NewNotFoundError(fmt.Sprintf("transaction %s not found", id))
		}
		if err := tx.MarkReconciled(reconciliationID); err != nil {
			return err
		}
		m.transactions[id] = tx
	}
	return nil
}

func (m *memStore) FindInvoiceForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok || !inv.BelongsTo(tenantID) {
		return nil, shared.NewNotFoundError(fmt.Sprintf("invoice %s not found", id))
	}
	return &inv, nil
}

func (m *memStore) FindOpenInvoices(ctx context.Context, tenantID uuid.UUID, parentID *uuid.UUID) ([]ledger.Invoice, error) {
	var out []ledger.Invoice
	for _, inv := range m.invoices {
		if !inv.BelongsTo(tenantID) || !inv.Status.IsOpen() {
			continue
		}
		if parentID != nil && inv.ParentID != *parentID {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvoiceNumber < out[j].InvoiceNumber })
	return out, nil
}

func (m *memStore) SaveInvoice(ctx context.Context, inv *ledger.Invoice) error {
	m.invoices[inv.ID] = *inv
	return nil
}

func (m *memStore) FindPaymentForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Payment, error) {
	p, ok := m.payments[id]
	if !ok || !p.BelongsTo(tenantID) {
		return nil, shared.NewNotFoundError(fmt.Sprintf("payment %s not found", id))
	}
	return &p, nil
}

func (m *memStore) FindPaymentsByTransaction(ctx context.Context, tenantID, transactionID uuid.UUID) ([]ledger.Payment, error) {
	var out []ledger.Payment
	for _, p := range m.payments {
		if p.BelongsTo(tenantID) && p.TransactionID == transactionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) FindPaymentsByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]ledger.Payment, error) {
	var out []ledger.Payment
	for _, p := range m.payments {
		if p.BelongsTo(tenantID) && p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) SavePayment(ctx context.Context, p *ledger.Payment) error {
	m.payments[p.ID] = *p
	return nil
}

func (m *memStore) CreateReconciliation(ctx context.Context, rec *reconciliation.Reconciliation) error {
	for _, existing := range m.reconciliations {
		if existing.TenantID == rec.TenantID &&
			existing.BankAccount == rec.BankAccount &&
			existing.PeriodStart.Equal(rec.PeriodStart) &&
			existing.PeriodEnd.Equal(rec.PeriodEnd) {
			return shared.NewConflictError("reconciliation already exists for period")
		}
	}
	m.reconciliations[rec.ID] = *rec
	return nil
}

func (m *memStore) FindReconciliationForTenant(ctx context.Context, tenantID, id uuid.UUID) (*reconciliation.Reconciliation, error) {
	rec, ok := m.reconciliations[id]
	if !ok || !rec.BelongsTo(tenantID) {
		return nil, shared.NewNotFoundError(fmt.Sprintf("reconciliation %s not found", id))
	}
	return &rec, nil
}

func (m *memStore) FindReconciliationByPeriod(ctx context.Context, tenantID uuid.UUID, bankAccount string, periodStart, periodEnd time.Time) (*reconciliation.Reconciliation, error) {
	for _, rec := range m.reconciliations {
		if rec.BelongsTo(tenantID) && rec.BankAccount == bankAccount &&
			rec.PeriodStart.Equal(periodStart) && rec.PeriodEnd.Equal(periodEnd) {
			return &rec, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindLatestReconciled(ctx context.Context, tenantID uuid.UUID, bankAccount string, before time.Time) (*reconciliation.Reconciliation, error) {
	var latest *reconciliation.Reconciliation
	for _, rec := range m.reconciliations {
		rec := rec
		if !rec.BelongsTo(tenantID) || rec.BankAccount != bankAccount {
			continue
		}
		if rec.Status != reconciliation.StatusReconciled || !rec.PeriodEnd.Before(before) {
			continue
		}
		if latest == nil || rec.PeriodEnd.After(latest.PeriodEnd) {
			latest = &rec
		}
	}
	return latest, nil
}

func (m *memStore) ListReconciliations(ctx context.Context, tenantID uuid.UUID, bankAccount string) ([]reconciliation.Reconciliation, error) {
	var out []reconciliation.Reconciliation
	for _, rec := range m.reconciliations {
		if !rec.BelongsTo(tenantID) {
			continue
		}
		if bankAccount != "" && rec.BankAccount != bankAccount {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.After(out[j].PeriodStart) })
	return out, nil
}

var _ Store = (*memStore)(nil)

// fakeIdempotencyStore is a map-backed shared.IdempotencyStore without TTL
// expiry, sufficient for exercising replay rejection
type fakeIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{seen: make(map[string]bool)}
}

func (f *fakeIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[key], nil
}

func (f *fakeIdempotencyStore) Release(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.seen, key)
	return nil
}

func (f *fakeIdempotencyStore) Close() error { return nil }

var _ shared.IdempotencyStore = (*fakeIdempotencyStore)(nil)
