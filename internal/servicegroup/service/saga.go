package service

import (
	"context"
	"log/slog"
)

// saga runs the remote-first coordination shared by Create and Delete: the
// harder-to-reverse remote action happens first, then the local transaction;
// if the local leg fails after the remote leg succeeded, the remote leg is
// unwound best-effort. The reverse order would risk an orphaned remote
// registration that is much harder to discover.
type saga struct {
	// forwardRemote performs the directory leg. Nil skips the remote side
	// entirely (integration disabled or a local-only operation).
	forwardRemote func(ctx context.Context) error
	// forwardLocal performs the store mutation in one transaction.
	forwardLocal func(ctx context.Context) error
	// compensateRemote undoes forwardRemote after a local failure. Its own
	// failure is logged at ERROR and swallowed; the local failure is what the
	// caller gets. At that point the remote and local state disagree and an
	// operator has to intervene, which no client retry would fix.
	compensateRemote func(ctx context.Context) error
}

// compensationObserver is notified when a compensation attempt fails.
type compensationObserver interface {
	onCompensationFailure()
}

// run executes the saga. Remote failures abort before any local mutation and
// are returned as-is for the caller to classify.
func (s saga) run(ctx context.Context, logger *slog.Logger, obs compensationObserver, attrs ...any) error {
	remoteDone := false
	if s.forwardRemote != nil {
		if err := s.forwardRemote(ctx); err != nil {
			return err
		}
		remoteDone = true
	}

	err := s.forwardLocal(ctx)
	if err == nil {
		return nil
	}

	if remoteDone && s.compensateRemote != nil {
		if compErr := s.compensateRemote(ctx); compErr != nil {
			logger.ErrorContext(ctx, "SML compensation failed, local and remote state now disagree",
				append(attrs, "error", compErr)...)
			if obs != nil {
				obs.onCompensationFailure()
			}
		}
	}
	return err
}
