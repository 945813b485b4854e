package workers

import (
	"context"
	"log/slog"
	"time"

	application "pollstream/contexts/polling/vote-engine/application"
	"pollstream/contexts/polling/vote-engine/application/commands"
	"pollstream/contexts/polling/vote-engine/ports"
)

// PollExpirer sweeps active polls that crossed expires_at and commits the
// closed transition. The vote path already closes expired polls lazily; the
// sweep covers polls nobody is voting on.
type PollExpirer struct {
	Polls     ports.PollRepository
	Lifecycle commands.PollUseCase
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (e PollExpirer) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(e.Logger)
	now := time.Now().UTC()
	if e.Clock != nil {
		now = e.Clock.Now().UTC()
	}
	limit := e.BatchSize
	if limit <= 0 {
		limit = 100
	}

	expired, err := e.Polls.ListExpiredActive(ctx, now, limit)
	if err != nil {
		logger.Error("poll expiry sweep failed",
			"event", "polling_poll_expiry_sweep_failed",
			"module", "polling/vote-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(expired) == 0 {
		return nil
	}

	closed := 0
	for _, poll := range expired {
		if _, err := e.Lifecycle.TransitionIfExpired(ctx, poll.PollID); err != nil {
			logger.Warn("poll expiry transition failed",
				"event", "polling_poll_expiry_transition_failed",
				"module", "polling/vote-engine",
				"layer", "worker",
				"poll_id", poll.PollID,
				"error", err.Error(),
			)
			continue
		}
		closed++
	}

	logger.Info("poll expiry sweep completed",
		"event", "polling_poll_expiry_sweep_completed",
		"module", "polling/vote-engine",
		"layer", "worker",
		"expired_count", len(expired),
		"closed_count", closed,
	)
	return nil
}
