package ports

import (
	"context"

	"github.com/dnstld/desk-buddy-sub000/internal/core/domain"
)

// ReconciliationJournal persists a durable record of sagas whose
// compensating writes failed, for manual repair by an operator. Writes are
// best-effort: a journal failure is logged but never masks the original
// error returned to the caller.
type ReconciliationJournal interface {
	Record(ctx context.Context, entry domain.Reconciliation) error
}
