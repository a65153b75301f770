package ledger

import (
	"sort"
	"time"

	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// AgingBucket classifies how long an invoice has been overdue
type AgingBucket string

const (
	AgingBucketCurrent AgingBucket = "current" // [0, 30) days overdue
	AgingBucket30      AgingBucket = "30"      // [30, 60)
	AgingBucket60      AgingBucket = "60"      // [60, 90)
	AgingBucket90Plus  AgingBucket = "90+"     // [90, ∞)
)

const daysPerBucket = 30

// BucketForDays returns the aging bucket for a whole-day overdue count
func BucketForDays(days int) AgingBucket {
	switch {
	case days < daysPerBucket:
		return AgingBucketCurrent
	case days < 2*daysPerBucket:
		return AgingBucket30
	case days < 3*daysPerBucket:
		return AgingBucket60
	default:
		return AgingBucket90Plus
	}
}

// ArrearsEntry is one overdue invoice in the arrears read model
type ArrearsEntry struct {
	ParentID      uuid.UUID
	ParentName    string
	InvoiceID     uuid.UUID
	InvoiceNumber string
	Outstanding   valueobject.Cents
	DaysOverdue   int
	Bucket        AgingBucket
	DueDate       time.Time
}

// AgingSummary totals outstanding amounts per aging bucket
type AgingSummary struct {
	Current    valueobject.Cents
	Days30     valueobject.Cents
	Days60     valueobject.Cents
	Days90Plus valueobject.Cents
}

// Total returns the sum across all buckets
func (a AgingSummary) Total() valueobject.Cents {
	return a.Current + a.Days30 + a.Days60 + a.Days90Plus
}

// Debtor aggregates a parent's total overdue position
type Debtor struct {
	ParentID      uuid.UUID
	ParentName    string
	Outstanding   valueobject.Cents
	InvoiceCount  int
	OldestDueDate time.Time
}

// ArrearsReport is the complete arrears read model
type ArrearsReport struct {
	AsOf    time.Time
	Aging   AgingSummary
	Debtors []Debtor
	Entries []ArrearsEntry
}

// CalculateArrears derives the arrears read model from open invoices.
// Invoices not yet due as of asOf are excluded. Entries with outstanding
// below minOutstanding are filtered out. Debtors are ranked by total
// outstanding descending; ties break on the earliest due date so the
// oldest debt surfaces first.
func CalculateArrears(invoices []Invoice, asOf time.Time, minOutstanding valueobject.Cents) *ArrearsReport {
	report := &ArrearsReport{AsOf: asOf}
	debtorIndex := make(map[uuid.UUID]*Debtor)

	for i := range invoices {
		inv := &invoices[i]
		if !inv.Status.IsOpen() {
			continue
		}
		outstanding := inv.Outstanding()
		if !outstanding.IsPositive() || outstanding < minOutstanding {
			continue
		}
		if inv.DueDate.After(asOf) {
			continue
		}

		days := wholeDaysBetween(inv.DueDate, asOf)
		bucket := BucketForDays(days)

		report.Entries = append(report.Entries, ArrearsEntry{
			ParentID:      inv.ParentID,
			ParentName:    inv.ParentName,
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			Outstanding:   outstanding,
			DaysOverdue:   days,
			Bucket:        bucket,
			DueDate:       inv.DueDate,
		})

		switch bucket {
		case AgingBucketCurrent:
			report.Aging.Current += outstanding
		case AgingBucket30:
			report.Aging.Days30 += outstanding
		case AgingBucket60:
			report.Aging.Days60 += outstanding
		case AgingBucket90Plus:
			report.Aging.Days90Plus += outstanding
		}

		d, ok := debtorIndex[inv.ParentID]
		if !ok {
			d = &Debtor{
				ParentID:      inv.ParentID,
				ParentName:    inv.ParentName,
				OldestDueDate: inv.DueDate,
			}
			debtorIndex[inv.ParentID] = d
		}
		d.Outstanding += outstanding
		d.InvoiceCount++
		if inv.DueDate.Before(d.OldestDueDate) {
			d.OldestDueDate = inv.DueDate
		}
	}

	// Oldest debt first within each entry listing
	sort.Slice(report.Entries, func(i, j int) bool {
		if report.Entries[i].DaysOverdue != report.Entries[j].DaysOverdue {
			return report.Entries[i].DaysOverdue > report.Entries[j].DaysOverdue
		}
		return report.Entries[i].Outstanding > report.Entries[j].Outstanding
	})

	report.Debtors = make([]Debtor, 0, len(debtorIndex))
	for _, d := range debtorIndex {
		report.Debtors = append(report.Debtors, *d)
	}
	sort.Slice(report.Debtors, func(i, j int) bool {
		if report.Debtors[i].Outstanding != report.Debtors[j].Outstanding {
			return report.Debtors[i].Outstanding > report.Debtors[j].Outstanding
		}
		return report.Debtors[i].OldestDueDate.Before(report.Debtors[j].OldestDueDate)
	})

	return report
}

// wholeDaysBetween returns whole days from due to asOf, clamped at zero
func wholeDaysBetween(due, asOf time.Time) int {
	days := int(asOf.Sub(due).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
