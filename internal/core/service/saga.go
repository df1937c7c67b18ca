package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dnstld/desk-buddy-sub000/internal/api/metrics"
	"github.com/dnstld/desk-buddy-sub000/internal/core/domain"
	"github.com/dnstld/desk-buddy-sub000/internal/core/ports"
)

// sagaStep is one forward write in an ordered multi-row mutation, paired
// with the compensating write that undoes it. The backing store commits each
// statement independently, so atomicity across steps only exists through
// this pairing.
type sagaStep struct {
	name string
	run  func(ctx context.Context) error
	undo func(ctx context.Context) error // nil when the step needs no compensation
}

// runSaga executes steps in order. On the first failure it unwinds every
// completed step in reverse.
//
// Outcomes on failure of step i:
//   - all undo steps succeed and the failing error was a concurrency
//     conflict: the conflict is returned unchanged so the caller can re-run
//     the whole precondition check;
//   - all undo steps succeed otherwise: an internal error with code
//     "rolled_back" (end state equals start state);
//   - any undo step fails: the rows are inconsistent; the failure is
//     journalled and logged for manual repair, and an internal error with
//     code "reconcile_required" is returned.
func runSaga(ctx context.Context, log zerolog.Logger, journal ports.ReconciliationJournal, operation string, detail map[string]string, steps []sagaStep) error {
	for i, step := range steps {
		err := step.run(ctx)
		if err == nil {
			continue
		}

		log.Warn().Err(err).
			Str("operation", operation).
			Str("step", step.name).
			Msg("saga step failed, compensating")

		for j := i - 1; j >= 0; j-- {
			if steps[j].undo == nil {
				continue
			}
			undoErr := steps[j].undo(ctx)
			if undoErr == nil {
				continue
			}

			metrics.CompensationsTotal.WithLabelValues(operation, "failed").Inc()
			log.Error().Err(undoErr).
				Str("operation", operation).
				Str("failed_step", step.name).
				Str("undo_step", steps[j].name).
				Str("state", "reconcile_required").
				Msg("compensating write failed, manual reconciliation required")

			if journal != nil {
				entry := domain.Reconciliation{
					Operation: operation,
					Step:      steps[j].name,
					Detail:    detail,
					Cause:     err.Error(),
					UndoCause: undoErr.Error(),
					At:        time.Now().UTC(),
				}
				if jerr := journal.Record(ctx, entry); jerr != nil {
					log.Error().Err(jerr).Str("operation", operation).Msg("reconciliation journal write failed")
				}
			}

			return domain.Internal(domain.CodeReconcileRequired,
				"operation failed and rollback did not complete; manual reconciliation required")
		}

		metrics.CompensationsTotal.WithLabelValues(operation, "clean").Inc()

		if domain.KindOf(err) == domain.KindConflict {
			return err
		}
		return domain.Internal(domain.CodeRolledBack, "operation failed; changes rolled back")
	}
	return nil
}
