package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dnstld/desk-buddy-sub000/internal/core/domain"
)

const reconciliationCollection = "reconciliations"

// ReconciliationJournal persists records of sagas whose compensating writes
// failed. The documents are read by operators, not by the service; nothing
// in this module ever consumes them automatically.
type ReconciliationJournal struct {
	coll *mongo.Collection
}

func NewReconciliationJournal(db *mongo.Database) *ReconciliationJournal {
	return &ReconciliationJournal{coll: db.Collection(reconciliationCollection)}
}

type reconciliationDoc struct {
	Operation string            `bson:"operation"`
	Step      string            `bson:"step"`
	Detail    map[string]string `bson:"detail,omitempty"`
	Cause     string            `bson:"cause"`
	UndoCause string            `bson:"undo_cause"`
	At        int64             `bson:"at"`
}

func (j *ReconciliationJournal) Record(ctx context.Context, entry domain.Reconciliation) error {
	doc := reconciliationDoc{
		Operation: entry.Operation,
		Step:      entry.Step,
		Detail:    entry.Detail,
		Cause:     entry.Cause,
		UndoCause: entry.UndoCause,
		At:        entry.At.Unix(),
	}
	if _, err := j.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert reconciliation: %w", err)
	}
	return nil
}
