package models

import (
	"time"

	"github.com/billing/backend/internal/domain/ledger"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// TransactionModel is the GORM model for bank transactions.
// All monetary columns store integer cents.
type TransactionModel struct {
	TenantAggregateModel
	BankAccount       string     `gorm:"type:varchar(50);not null;index:idx_transaction_tenant_account"`
	Date              time.Time  `gorm:"not null;index"`
	Amount            int64      `gorm:"not null"`
	IsCredit          bool       `gorm:"not null"`
	Description       string     `gorm:"type:text"`
	Reference         string     `gorm:"type:varchar(100)"`
	PayeeName         string     `gorm:"type:varchar(255)"`
	Category          string     `gorm:"type:varchar(100)"`
	AllocatedAmount   int64      `gorm:"not null;default:0"`
	UnallocatedAmount int64      `gorm:"not null;default:0"`
	IsReconciled      bool       `gorm:"not null;default:false;index"`
	ReconciliationID  *uuid.UUID `gorm:"type:uuid;index"`
	Status            string     `gorm:"type:varchar(30);not null;index"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// TransactionModelFromDomain converts a domain transaction to its model
func TransactionModelFromDomain(tx *ledger.Transaction) *TransactionModel {
	m := &TransactionModel{
		BankAccount:       tx.BankAccount,
		Date:              tx.Date,
		Amount:            int64(tx.Amount),
		IsCredit:          tx.IsCredit,
		Description:       tx.Description,
		Reference:         tx.Reference,
		PayeeName:         tx.PayeeName,
		Category:          tx.Category,
		AllocatedAmount:   int64(tx.AllocatedAmount),
		UnallocatedAmount: int64(tx.UnallocatedAmount),
		IsReconciled:      tx.IsReconciled,
		ReconciliationID:  tx.ReconciliationID,
		Status:            string(tx.Status),
	}
	m.FromDomainTenantAggregateRoot(tx.TenantAggregateRoot)
	return m
}

// ToDomain converts the model to a domain transaction
func (m *TransactionModel) ToDomain() *ledger.Transaction {
	tx := &ledger.Transaction{
		BankAccount:       m.BankAccount,
		Date:              m.Date,
		Amount:            valueobject.Cents(m.Amount),
		IsCredit:          m.IsCredit,
		Description:       m.Description,
		Reference:         m.Reference,
		PayeeName:         m.PayeeName,
		Category:          m.Category,
		AllocatedAmount:   valueobject.Cents(m.AllocatedAmount),
		UnallocatedAmount: valueobject.Cents(m.UnallocatedAmount),
		IsReconciled:      m.IsReconciled,
		ReconciliationID:  m.ReconciliationID,
		Status:            ledger.TransactionStatus(m.Status),
	}
	m.PopulateTenantAggregateRoot(&tx.TenantAggregateRoot)
	return tx
}

// InvoiceModel is the GORM model for invoices
type InvoiceModel struct {
	TenantAggregateModel
	InvoiceNumber string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_tenant_number,priority:2"`
	ParentID      uuid.UUID `gorm:"type:uuid;not null;index"`
	ParentName    string    `gorm:"type:varchar(255);not null"`
	Total         int64     `gorm:"not null"`
	AmountPaid    int64     `gorm:"not null;default:0"`
	Status        string    `gorm:"type:varchar(30);not null;index"`
	IssueDate     time.Time `gorm:"not null"`
	DueDate       time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// InvoiceModelFromDomain converts a domain invoice to its model
func InvoiceModelFromDomain(inv *ledger.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		InvoiceNumber: inv.InvoiceNumber,
		ParentID:      inv.ParentID,
		ParentName:    inv.ParentName,
		Total:         int64(inv.Total),
		AmountPaid:    int64(inv.AmountPaid),
		Status:        string(inv.Status),
		IssueDate:     inv.IssueDate,
		DueDate:       inv.DueDate,
	}
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	return m
}

// ToDomain converts the model to a domain invoice
func (m *InvoiceModel) ToDomain() *ledger.Invoice {
	inv := &ledger.Invoice{
		InvoiceNumber: m.InvoiceNumber,
		ParentID:      m.ParentID,
		ParentName:    m.ParentName,
		Total:         valueobject.Cents(m.Total),
		AmountPaid:    valueobject.Cents(m.AmountPaid),
		Status:        ledger.InvoiceStatus(m.Status),
		IssueDate:     m.IssueDate,
		DueDate:       m.DueDate,
	}
	m.PopulateTenantAggregateRoot(&inv.TenantAggregateRoot)
	return inv
}

// PaymentModel is the GORM model for payment applications
type PaymentModel struct {
	TenantAggregateModel
	InvoiceID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	TransactionID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	Amount          int64      `gorm:"not null"`
	MatchType       string     `gorm:"type:varchar(30);not null"`
	MatchedBy       string     `gorm:"type:varchar(10);not null"`
	MatchConfidence int        `gorm:"not null;default:0"`
	IsReversed      bool       `gorm:"not null;default:false"`
	ReversedAt      *time.Time ``
	ReversalReason  string     `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// PaymentModelFromDomain converts a domain payment to its model
func PaymentModelFromDomain(p *ledger.Payment) *PaymentModel {
	m := &PaymentModel{
		InvoiceID:       p.InvoiceID,
		TransactionID:   p.TransactionID,
		Amount:          int64(p.Amount),
		MatchType:       string(p.MatchType),
		MatchedBy:       string(p.MatchedBy),
		MatchConfidence: p.MatchConfidence,
		IsReversed:      p.IsReversed,
		ReversedAt:      p.ReversedAt,
		ReversalReason:  p.ReversalReason,
	}
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	return m
}

// ToDomain converts the model to a domain payment
func (m *PaymentModel) ToDomain() *ledger.Payment {
	p := &ledger.Payment{
		InvoiceID:       m.InvoiceID,
		TransactionID:   m.TransactionID,
		Amount:          valueobject.Cents(m.Amount),
		MatchType:       ledger.MatchType(m.MatchType),
		MatchedBy:       ledger.MatchedBy(m.MatchedBy),
		MatchConfidence: m.MatchConfidence,
		IsReversed:      m.IsReversed,
		ReversedAt:      m.ReversedAt,
		ReversalReason:  m.ReversalReason,
	}
	m.PopulateTenantAggregateRoot(&p.TenantAggregateRoot)
	return p
}
