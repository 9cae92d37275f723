package assistant

import (
	"context"
	"log/slog"
	"time"

	"github.com/nhle/mail-assistant/internal/mailbox"
	"github.com/nhle/mail-assistant/internal/model"
)

// recoveryInterval is the wait after a failed poll cycle, shorter than
// the regular interval so transient mailbox outages resolve quickly.
const recoveryInterval = time.Minute

// Runner is the polling loop: one logical worker per mailbox, draining
// all eligible messages sequentially each cycle before sleeping again.
// Messages never overlap in flight, which is what keeps learning-state
// writes free of races without locks.
type Runner struct {
	orch     *Orchestrator
	mailbox  mailbox.Mailbox
	criteria string
	interval time.Duration
	log      *slog.Logger
}

// NewRunner creates the polling loop around an orchestrator.
func NewRunner(
	orch *Orchestrator,
	mb mailbox.Mailbox,
	cfg model.AssistantConfig,
	log *slog.Logger,
) *Runner {
	return &Runner{
		orch:     orch,
		mailbox:  mb,
		criteria: cfg.SearchCriteria,
		interval: time.Duration(cfg.PollIntervalSec) * time.Second,
		log:      log,
	}
}

// Run polls until ctx is canceled. Cancellation is observed between
// messages, never mid-message, so any in-progress learning flush
// completes before Run returns.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("assistant started",
		"criteria", r.criteria,
		"interval", r.interval.String(),
	)

	for {
		if err := r.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			r.log.Error("poll cycle failed", "error", err)
			if !sleep(ctx, recoveryInterval) {
				break
			}
			continue
		}

		if !sleep(ctx, r.interval) {
			break
		}
	}

	r.log.Info("assistant stopped")
	return nil
}

// runCycle fetches one batch of candidates and processes them in the
// order the mailbox returned them. A failed message is logged via its
// journal record and does not halt the batch.
func (r *Runner) runCycle(ctx context.Context) error {
	messages, err := r.mailbox.FetchNew(ctx, r.criteria)
	if err != nil {
		return err
	}

	if len(messages) == 0 {
		return nil
	}
	r.log.Info("processing batch", "count", len(messages))

	for _, msg := range messages {
		if ctx.Err() != nil {
			return nil
		}
		res := r.orch.ProcessMessage(ctx, msg)
		r.log.Info("message done",
			"uid", msg.UID,
			"outcome", res.Outcome,
			"stage", string(res.Stage),
		)
	}

	return nil
}

// sleep waits for d, returning false when ctx was canceled first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
