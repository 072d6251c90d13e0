package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/anjiri1684/chat_app/models"
	"github.com/anjiri1684/chat_app/presence"
	"github.com/google/uuid"
)

type PresenceStore interface {
	UserIDsWithStatus(ctx context.Context, status string) ([]uuid.UUID, error)
	SetStatus(ctx context.Context, userID uuid.UUID, status string, at time.Time) error
}

// PresenceReconciler marks users offline whose stored status says online but
// who no longer hold a live heartbeat, e.g. after a crash skipped the
// disconnect handling. It implements cron.Job.
type PresenceReconciler struct {
	Store   PresenceStore
	Tracker presence.Tracker
	Logger  *slog.Logger
	Timeout time.Duration
	Now     func() time.Time
}

func (r *PresenceReconciler) Run() {
	timeout := r.Timeout
	if timeout == 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	r.Logger.Debug("Running job: ReconcilePresence")
	n, err := r.Reconcile(ctx)
	if err != nil {
		r.Logger.Error("Error reconciling presence", "error", err)
		return
	}
	if n > 0 {
		r.Logger.Info("Marked stale users offline", "count", n)
	}
}

// Reconcile returns how many users it marked offline.
func (r *PresenceReconciler) Reconcile(ctx context.Context) (int, error) {
	stored, err := r.Store.UserIDsWithStatus(ctx, models.StatusOnline)
	if err != nil {
		return 0, err
	}
	if len(stored) == 0 {
		return 0, nil
	}
	live, err := r.Tracker.Filter(ctx, stored)
	if err != nil {
		return 0, err
	}
	alive := make(map[uuid.UUID]struct{}, len(live))
	for _, id := range live {
		alive[id] = struct{}{}
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	marked := 0
	for _, id := range stored {
		if _, ok := alive[id]; ok {
			continue
		}
		if err := r.Store.SetStatus(ctx, id, models.StatusOffline, now()); err != nil {
			r.Logger.Error("Could not mark user offline", "user_id", id, "error", err)
			continue
		}
		marked++
	}
	return marked, nil
}
