package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/billing/backend/internal/domain/reconciliation"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// DiscrepancyRecord is the JSONB representation of a classified discrepancy
type DiscrepancyRecord struct {
	Type          string     `json:"type"`
	TransactionID *uuid.UUID `json:"transaction_id,omitempty"`
	Date          time.Time  `json:"date"`
	LedgerAmount  int64      `json:"ledger_amount"`
	BankAmount    int64      `json:"bank_amount"`
	Description   string     `json:"description,omitempty"`
}

// DiscrepancyRecords is a slice of DiscrepancyRecord that implements
// GORM Scanner/Valuer for JSONB storage
type DiscrepancyRecords []DiscrepancyRecord

// Value implements driver.Valuer for JSONB storage
func (d DiscrepancyRecords) Value() (driver.Value, error) {
	if d == nil {
		return "[]", nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner for reading from JSONB
func (d *DiscrepancyRecords) Scan(value interface{}) error {
	if value == nil {
		*d = DiscrepancyRecords{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan DiscrepancyRecords: unsupported type")
	}

	if len(bytes) == 0 {
		*d = DiscrepancyRecords{}
		return nil
	}

	return json.Unmarshal(bytes, d)
}

// ReconciliationModel is the GORM model for period reconciliations.
// One reconciliation per (tenant, account, period) is enforced by the
// unique index.
type ReconciliationModel struct {
	TenantAggregateModel
	BankAccount       string             `gorm:"type:varchar(50);not null;uniqueIndex:idx_reconciliation_period,priority:2"`
	PeriodStart       time.Time          `gorm:"not null;uniqueIndex:idx_reconciliation_period,priority:3"`
	PeriodEnd         time.Time          `gorm:"not null;uniqueIndex:idx_reconciliation_period,priority:4"`
	OpeningBalance    int64              `gorm:"not null"`
	ClosingBalance    int64              `gorm:"not null"`
	CalculatedBalance int64              `gorm:"not null"`
	Discrepancy       int64              `gorm:"not null;default:0"`
	Status            string             `gorm:"type:varchar(20);not null;index"`
	MatchedCount      int                `gorm:"not null;default:0"`
	UnmatchedCount    int                `gorm:"not null;default:0"`
	Discrepancies     DiscrepancyRecords `gorm:"type:jsonb;default:'[]'"`
}

// TableName returns the table name for GORM
func (ReconciliationModel) TableName() string {
	return "reconciliations"
}

// ReconciliationModelFromDomain converts a domain reconciliation to its model
func ReconciliationModelFromDomain(rec *reconciliation.Reconciliation) *ReconciliationModel {
	records := make(DiscrepancyRecords, len(rec.Discrepancies))
	for i, d := range rec.Discrepancies {
		records[i] = DiscrepancyRecord{
			Type:          string(d.Type),
			TransactionID: d.TransactionID,
			Date:          d.Date,
			LedgerAmount:  int64(d.LedgerAmount),
			BankAmount:    int64(d.BankAmount),
			Description:   d.Description,
		}
	}

	m := &ReconciliationModel{
		BankAccount:       rec.BankAccount,
		PeriodStart:       rec.PeriodStart,
		PeriodEnd:         rec.PeriodEnd,
		OpeningBalance:    int64(rec.OpeningBalance),
		ClosingBalance:    int64(rec.ClosingBalance),
		CalculatedBalance: int64(rec.CalculatedBalance),
		Discrepancy:       int64(rec.Discrepancy),
		Status:            string(rec.Status),
		MatchedCount:      rec.MatchedCount,
		UnmatchedCount:    rec.UnmatchedCount,
		Discrepancies:     records,
	}
	m.FromDomainTenantAggregateRoot(rec.TenantAggregateRoot)
	return m
}

// ToDomain converts the model to a domain reconciliation
func (m *ReconciliationModel) ToDomain() *reconciliation.Reconciliation {
	discrepancies := make([]reconciliation.Discrepancy, len(m.Discrepancies))
	for i, r := range m.Discrepancies {
		discrepancies[i] = reconciliation.Discrepancy{
			Type:          reconciliation.DiscrepancyType(r.Type),
			TransactionID: r.TransactionID,
			Date:          r.Date,
			LedgerAmount:  valueobject.Cents(r.LedgerAmount),
			BankAmount:    valueobject.Cents(r.BankAmount),
			Description:   r.Description,
		}
	}

	rec := &reconciliation.Reconciliation{
		BankAccount:       m.BankAccount,
		PeriodStart:       m.PeriodStart,
		PeriodEnd:         m.PeriodEnd,
		OpeningBalance:    valueobject.Cents(m.OpeningBalance),
		ClosingBalance:    valueobject.Cents(m.ClosingBalance),
		CalculatedBalance: valueobject.Cents(m.CalculatedBalance),
		Discrepancy:       valueobject.Cents(m.Discrepancy),
		Status:            reconciliation.Status(m.Status),
		MatchedCount:      m.MatchedCount,
		UnmatchedCount:    m.UnmatchedCount,
		Discrepancies:     discrepancies,
	}
	m.PopulateTenantAggregateRoot(&rec.TenantAggregateRoot)
	return rec
}
