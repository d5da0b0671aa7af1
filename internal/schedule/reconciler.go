package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Reconciler drains the orphaned claim backlog: slots left booked by a
// failed compensation keep capacity out of the pool until the release is
// retried here.
type Reconciler struct {
	store     Store
	batchSize int
	log       zerolog.Logger
}

func NewReconciler(store Store, batchSize int, log zerolog.Logger) *Reconciler {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Reconciler{store: store, batchSize: batchSize, log: log}
}

// Run processes one batch of unresolved orphaned claims. Intended to be
// called periodically by the reconcile worker.
func (r *Reconciler) Run(ctx context.Context) error {
	orphans, err := r.store.FindUnresolvedOrphans(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("find unresolved orphans: %w", err)
	}

	for _, o := range orphans {
		// Resolve before releasing. The reverse order can leave a freed
		// slot still listed unresolved; if the slot is rebooked before
		// the next run, that run would release the new booking's claim.
		if err := r.store.ResolveOrphanedClaim(ctx, o.ID); err != nil {
			r.log.Error().Err(err).
				Int64("orphan_id", o.ID).
				Msg("failed to mark orphaned claim resolved, will retry next run")
			continue
		}

		err := r.store.ReleaseSlot(ctx, o.DoctorID, o.Date, o.StartTime)
		switch {
		case err == nil:
			r.log.Info().
				Int64("orphan_id", o.ID).
				Str("doctor_id", o.DoctorID.String()).
				Time("start_time", o.StartTime).
				Str("reason", o.Reason).
				Msg("orphaned claim reconciled")
		case errors.Is(err, ErrSlotNotFound):
			// Already released, or the grid was re-seeded. Either way
			// there is nothing left to free.
			r.log.Info().
				Int64("orphan_id", o.ID).
				Str("doctor_id", o.DoctorID.String()).
				Time("start_time", o.StartTime).
				Msg("orphaned claim no longer held")
		default:
			r.log.Error().Err(err).
				Int64("orphan_id", o.ID).
				Str("doctor_id", o.DoctorID.String()).
				Time("start_time", o.StartTime).
				Msg("orphaned claim release failed, requeueing")
			if rerr := r.store.RecordOrphanedClaim(ctx, o.DoctorID, o.Date, o.StartTime, o.Reason); rerr != nil {
				r.log.Error().Err(rerr).
					Int64("orphan_id", o.ID).
					Msg("failed to requeue orphaned claim; slot capacity is leaked")
			}
		}
	}

	return nil
}
