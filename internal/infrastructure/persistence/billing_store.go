package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/billing/backend/internal/application/billing"
	"github.com/billing/backend/internal/domain/ledger"
	"github.com/billing/backend/internal/domain/reconciliation"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBillingStore implements the application billing store using GORM.
// Every query carries the tenant filter.
type GormBillingStore struct {
	db *gorm.DB
}

// NewGormBillingStore creates a new GormBillingStore
func NewGormBillingStore(db *gorm.DB) *GormBillingStore {
	return &GormBillingStore{db: db}
}

// InTx executes fn within a database transaction, passing a store bound to
// the transaction connection
func (s *GormBillingStore) InTx(ctx context.Context, fn func(billing.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormBillingStore(tx))
	})
}

// FindTransactionForTenant finds a transaction by ID within a tenant
func (s *GormBillingStore) FindTransactionForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Transaction, error) {
	var model models.TransactionModel
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(fmt.Sprintf("transaction %s not found", id))
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindUnallocatedCredits returns credit transactions with an unallocated
// remainder, oldest first. With ids empty it returns all of them.
func (s *GormBillingStore) FindUnallocatedCredits(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]ledger.Transaction, error) {
	query := s.db.WithContext(ctx).
		Where("tenant_id = ? AND is_credit = ? AND unallocated_amount > 0", tenantID, true)
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}

	var transactionModels []models.TransactionModel
	if err := query.Order("date ASC").Find(&transactionModels).Error; err != nil {
		return nil, err
	}
	return transactionsToDomain(transactionModels), nil
}

// FindTransactionsInPeriod returns all transactions for an account within a
// period, boundaries inclusive, oldest first
func (s *GormBillingStore) FindTransactionsInPeriod(ctx context.Context, tenantID uuid.UUID, bankAccount string, start, end time.Time) ([]ledger.Transaction, error) {
	var transactionModels []models.TransactionModel
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND bank_account = ? AND date >= ? AND date <= ?", tenantID, bankAccount, start, end).
		Order("date ASC").
		Find(&transactionModels).Error; err != nil {
		return nil, err
	}
	return transactionsToDomain(transactionModels), nil
}

// SaveTransaction persists a transaction, creating or updating as needed
func (s *GormBillingStore) SaveTransaction(ctx context.Context, tx *ledger.Transaction) error {
	return s.db.WithContext(ctx).Save(models.TransactionModelFromDomain(tx)).Error
}

// MarkTransactionsReconciled locks the given transactions all-or-nothing.
// It fails when any transaction is missing, belongs to another tenant, or
// is already locked by an earlier reconciliation.
func (s *GormBillingStore) MarkTransactionsReconciled(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, reconciliationID uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.TransactionModel{}).
			Where("tenant_id = ? AND id IN ? AND is_reconciled = ?", tenantID, ids, false).
			Updates(map[string]interface{}{
				"is_reconciled":     true,
				"reconciliation_id": reconciliationID,
				"updated_at":        time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != int64(len(ids)) {
			return shared.NewConflictError(fmt.Sprintf(
				"expected to lock %d transactions, locked %d", len(ids), result.RowsAffected))
		}
		return nil
	})
}

// FindInvoiceForTenant finds an invoice by ID within a tenant
func (s *GormBillingStore) FindInvoiceForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Invoice, error) {
	var model models.InvoiceModel
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(fmt.Sprintf("invoice %s not found", id))
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpenInvoices returns payable invoices, optionally filtered to one parent
func (s *GormBillingStore) FindOpenInvoices(ctx context.Context, tenantID uuid.UUID, parentID *uuid.UUID) ([]ledger.Invoice, error) {
	openStatuses := []string{
		string(ledger.InvoiceStatusSent),
		string(ledger.InvoiceStatusPartiallyPaid),
		string(ledger.InvoiceStatusOverdue),
	}

	query := s.db.WithContext(ctx).
		Where("tenant_id = ? AND status IN ?", tenantID, openStatuses)
	if parentID != nil {
		query = query.Where("parent_id = ?", *parentID)
	}

	var invoiceModels []models.InvoiceModel
	if err := query.Order("invoice_number ASC").Find(&invoiceModels).Error; err != nil {
		return nil, err
	}

	invoices := make([]ledger.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = *invoiceModels[i].ToDomain()
	}
	return invoices, nil
}

// SaveInvoice persists an invoice, creating or updating as needed
func (s *GormBillingStore) SaveInvoice(ctx context.Context, inv *ledger.Invoice) error {
	return s.db.WithContext(ctx).Save(models.InvoiceModelFromDomain(inv)).Error
}

// FindPaymentForTenant finds a payment by ID within a tenant
func (s *GormBillingStore) FindPaymentForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Payment, error) {
	var model models.PaymentModel
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(fmt.Sprintf("payment %s not found", id))
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPaymentsByTransaction returns all payments funded by one transaction
func (s *GormBillingStore) FindPaymentsByTransaction(ctx context.Context, tenantID, transactionID uuid.UUID) ([]ledger.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND transaction_id = ?", tenantID, transactionID).
		Order("created_at ASC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	return paymentsToDomain(paymentModels), nil
}

// FindPaymentsByInvoice returns all payments applied to one invoice
func (s *GormBillingStore) FindPaymentsByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]ledger.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Order("created_at ASC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	return paymentsToDomain(paymentModels), nil
}

// SavePayment persists a payment, creating or updating as needed
func (s *GormBillingStore) SavePayment(ctx context.Context, p *ledger.Payment) error {
	return s.db.WithContext(ctx).Save(models.PaymentModelFromDomain(p)).Error
}

// CreateReconciliation persists a new reconciliation. The unique period
// index turns a replay into a conflict error. The up-front lookup gives the
// common duplicate a clean answer; the index catches the concurrent one.
func (s *GormBillingStore) CreateReconciliation(ctx context.Context, rec *reconciliation.Reconciliation) error {
	existing, err := s.FindReconciliationByPeriod(ctx, rec.TenantID, rec.BankAccount, rec.PeriodStart, rec.PeriodEnd)
	if err != nil {
		return err
	}
	if existing != nil {
		return shared.NewConflictError("reconciliation already exists for period")
	}
	if err := s.db.WithContext(ctx).Create(models.ReconciliationModelFromDomain(rec)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewConflictError("reconciliation already exists for period")
		}
		return err
	}
	return nil
}

// FindReconciliationForTenant finds a reconciliation by ID within a tenant
func (s *GormBillingStore) FindReconciliationForTenant(ctx context.Context, tenantID, id uuid.UUID) (*reconciliation.Reconciliation, error) {
	var model models.ReconciliationModel
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(fmt.Sprintf("reconciliation %s not found", id))
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindReconciliationByPeriod returns the reconciliation for an exact account
// and period, or nil when none exists
func (s *GormBillingStore) FindReconciliationByPeriod(ctx context.Context, tenantID uuid.UUID, bankAccount string, periodStart, periodEnd time.Time) (*reconciliation.Reconciliation, error) {
	var model models.ReconciliationModel
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND bank_account = ? AND period_start = ? AND period_end = ?",
			tenantID, bankAccount, periodStart, periodEnd).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindLatestReconciled returns the most recent RECONCILED reconciliation for
// the account ending before the given time, or nil when none exists
func (s *GormBillingStore) FindLatestReconciled(ctx context.Context, tenantID uuid.UUID, bankAccount string, before time.Time) (*reconciliation.Reconciliation, error) {
	var model models.ReconciliationModel
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND bank_account = ? AND status = ? AND period_end < ?",
			tenantID, bankAccount, string(reconciliation.StatusReconciled), before).
		Order("period_end DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListReconciliations returns all reconciliations for the tenant, newest
// period first, optionally filtered by bank account
func (s *GormBillingStore) ListReconciliations(ctx context.Context, tenantID uuid.UUID, bankAccount string) ([]reconciliation.Reconciliation, error) {
	query := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if bankAccount != "" {
		query = query.Where("bank_account = ?", bankAccount)
	}

	var reconciliationModels []models.ReconciliationModel
	if err := query.Order("period_start DESC").Find(&reconciliationModels).Error; err != nil {
		return nil, err
	}

	reconciliations := make([]reconciliation.Reconciliation, len(reconciliationModels))
	for i := range reconciliationModels {
		reconciliations[i] = *reconciliationModels[i].ToDomain()
	}
	return reconciliations, nil
}

func transactionsToDomain(transactionModels []models.TransactionModel) []ledger.Transaction {
	transactions := make([]ledger.Transaction, len(transactionModels))
	for i := range transactionModels {
		transactions[i] = *transactionModels[i].ToDomain()
	}
	return transactions
}

func paymentsToDomain(paymentModels []models.PaymentModel) []ledger.Payment {
	payments := make([]ledger.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = *paymentModels[i].ToDomain()
	}
	return payments
}

var _ billing.Store = (*GormBillingStore)(nil)
