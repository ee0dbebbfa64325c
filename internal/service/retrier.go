package service

import (
	"context"
	"sync"
	"time"

	"github.com/hrdesk/notify-service/internal/config"
	"github.com/hrdesk/notify-service/internal/repo"
	"go.uber.org/zap"
)

// Retrier re-drives stale PENDING outbox records. One sweep per interval,
// never overlapping within an instance; per-record claims keep concurrent
// instances safe too.
type Retrier struct {
	notify *NotifyService
	repo   repo.RepositoryInterface
	cfg    config.NotifyConfig
	log    *zap.SugaredLogger

	sweepMu sync.Mutex
}

// NewRetrier returns Retrier.
func NewRetrier(notify *NotifyService, r repo.RepositoryInterface, cfg config.NotifyConfig, logger *zap.SugaredLogger) *Retrier {
	return &Retrier{notify: notify, repo: r, cfg: cfg, log: logger}
}

// Start runs the sweep loop until ctx is cancelled.
func (r *Retrier) Start(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	r.log.Infof("retrier started, interval=%s max_attempts=%d", r.cfg.SweepInterval, r.cfg.MaxAttempts)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("retrier stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep republishes due PENDING records and fails out exhausted ones.
// A sweep already in progress makes this call a no-op.
func (r *Retrier) Sweep(ctx context.Context) {
	if !r.sweepMu.TryLock() {
		return
	}
	defer r.sweepMu.Unlock()

	now := time.Now()
	recs, err := r.repo.ListDue(ctx, now, r.cfg.SweepBatch)
	if err != nil {
		r.log.Errorf("list due outbox: %v", err)
		return
	}

	for _, rec := range recs {
		if rec.AttemptCount >= r.cfg.MaxAttempts {
			ok, err := r.repo.MarkFailed(ctx, rec.MsgID)
			if err != nil {
				r.log.Errorf("msg %s fail update: %v", rec.MsgID, err)
				continue
			}
			if ok {
				// terminal; surfaced via the stats counters, never auto-retried
				r.log.Warnf("msg %s PENDING -> FAILED after %d attempts", rec.MsgID, rec.AttemptCount)
			}
			continue
		}

		// attempt_count doubles as an optimistic lock: a concurrent sweep or a
		// confirm landing first makes the claim a no-op and we skip the record.
		ok, err := r.repo.ClaimRetry(ctx, rec.MsgID, rec.AttemptCount, now.Add(r.cfg.AckTimeout))
		if err != nil {
			r.log.Errorf("msg %s retry claim: %v", rec.MsgID, err)
			continue
		}
		if !ok {
			continue
		}

		// same msgID, freshly fetched payload
		if err := r.notify.Send(ctx, rec.MsgID, rec.EmployeeID); err != nil {
			r.log.Warnf("msg %s republish attempt %d: %v", rec.MsgID, rec.AttemptCount+1, err)
			continue
		}
		r.log.Infof("msg %s republished, attempt %d", rec.MsgID, rec.AttemptCount+1)
	}
}
