// Package reconcile sweeps the identity provider for orphaned accounts:
// accounts whose provider record exists but whose principal document never
// got written, usually because a dual-write provisioning call died between
// its two steps.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"placedir/internal/domain"
)

// DefaultGracePeriod is how old a provider account must be before the sweep
// will consider it orphaned. Young accounts may still be mid-provisioning or
// waiting on the bootstrap handler.
const DefaultGracePeriod = 15 * time.Minute

// Sweeper deletes orphaned provider accounts on a cron schedule.
type Sweeper struct {
	provider   domain.IdentityProvider
	principals domain.PrincipalRepository
	audit      domain.AuditRepository
	grace      time.Duration
	cron       *cron.Cron
	logger     *slog.Logger
	now        func() time.Time
}

// NewSweeper creates a sweeper with the default grace period.
func NewSweeper(
	provider domain.IdentityProvider,
	principals domain.PrincipalRepository,
	audit domain.AuditRepository,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		provider:   provider,
		principals: principals,
		audit:      audit,
		grace:      DefaultGracePeriod,
		cron:       cron.New(),
		logger:     logger.With("component", "reconcile"),
		now:        time.Now,
	}
}

// WithGracePeriod overrides the orphan grace period.
func (s *Sweeper) WithGracePeriod(d time.Duration) *Sweeper {
	s.grace = d
	return s
}

// Start schedules the sweep and starts the cron runner.
func (s *Sweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			s.logger.Warn("sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("reconciliation sweeper started", "schedule", schedule, "grace", s.grace)
	return nil
}

// Stop halts the cron runner.
func (s *Sweeper) Stop() {
	s.cron.Stop()
	s.logger.Info("reconciliation sweeper stopped")
}

// Sweep deletes provider accounts older than the grace period that have no
// principal document. It returns the number of accounts removed. Individual
// failures are logged and skipped; the sweep runs again on the next tick.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.grace)
	accounts, err := s.provider.ListAccountsCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, acct := range accounts {
		_, err := s.principals.Get(ctx, acct.UID)
		if err == nil {
			continue
		}
		var notFound *domain.NotFoundError
		if !errors.As(err, &notFound) {
			s.logger.Warn("principal lookup failed", "uid", acct.UID, "error", err)
			continue
		}

		if err := s.provider.DeleteAccount(ctx, acct.UID); err != nil {
			if !errors.As(err, &notFound) {
				s.logger.Warn("orphan delete failed", "uid", acct.UID, "error", err)
				continue
			}
		}
		removed++
		s.logger.Info("removed orphaned provider account", "uid", acct.UID, "email", acct.Email)
		_ = s.audit.Insert(ctx, &domain.AuditEntry{
			Action:    "RECONCILE_ORPHAN_DELETE",
			TargetUID: acct.UID,
			Status:    "ALLOWED",
		})
	}
	return removed, nil
}
