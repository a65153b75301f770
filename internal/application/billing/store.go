package billing

import (
	"context"
	"time"

	"github.com/billing/backend/internal/domain/ledger"
	"github.com/billing/backend/internal/domain/reconciliation"
	"github.com/google/uuid"
)

// Store is the persistence surface the billing services operate on.
// InTx runs fn against a store bound to one atomic unit: every read and
// write inside fn commits or rolls back together. Two concurrent
// allocations against the same transaction serialize here, so the loser
// observes the reduced remainder and fails validation.
type Store interface {
	ledger.Repository
	reconciliation.Repository
	InTx(ctx context.Context, fn func(Store) error) error
}

// AuditRecord is returned alongside a service result so callers can persist
// or forward the audit trail. The core itself performs no ambient audit
// writes.
type AuditRecord struct {
	Actor    string    `json:"actor"`
	Action   string    `json:"action"`
	EntityID uuid.UUID `json:"entity_id"`
	Detail   string    `json:"detail"`
	At       time.Time `json:"at"`
}

func newAuditRecord(actor, action string, entityID uuid.UUID, detail string) AuditRecord {
	return AuditRecord{
		Actor:    actor,
		Action:   action,
		EntityID: entityID,
		Detail:   detail,
		At:       time.Now(),
	}
}
