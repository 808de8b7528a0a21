// Package bootstrap reacts to identity-provider account creation. Accounts
// provisioned by the lifecycle service already carry a role claim; anything
// else (self sign-up, out-of-band creation) is defaulted to standard_user
// after a delay-and-recheck. This is a best-effort race mitigation, not a
// lock: a lifecycle call that assigns its claim after the second check still
// gets overwritten, a window the product accepts.
package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"placedir/internal/domain"
)

// DefaultRecheckDelay is how long the handler waits before concluding no
// explicit provisioning call is in flight.
const DefaultRecheckDelay = 1500 * time.Millisecond

// Handler assigns default claims to accounts no one else claimed.
type Handler struct {
	provider   domain.IdentityProvider
	principals domain.PrincipalRepository
	audit      domain.AuditRepository
	delay      time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *slog.Logger
}

// NewHandler creates a bootstrap handler. delay <= 0 selects
// DefaultRecheckDelay.
func NewHandler(
	provider domain.IdentityProvider,
	principals domain.PrincipalRepository,
	audit domain.AuditRepository,
	delay time.Duration,
	logger *slog.Logger,
) *Handler {
	if delay <= 0 {
		delay = DefaultRecheckDelay
	}
	return &Handler{
		provider:   provider,
		principals: principals,
		audit:      audit,
		delay:      delay,
		sleep:      sleepCtx,
		logger:     logger,
	}
}

// OnAccountCreated is fired by the identity provider for every new account.
func (h *Handler) OnAccountCreated(ctx context.Context, uid, email string) {
	if err := h.handle(ctx, uid, email); err != nil {
		h.logger.Error("bootstrap failed", "uid", uid, "error", err)
		msg := err.Error()
		_ = h.audit.Insert(ctx, &domain.AuditEntry{
			ActorUID:     "",
			Action:       "BOOTSTRAP_DEFAULT_ROLE",
			TargetUID:    uid,
			Status:       "ERROR",
			ErrorMessage: &msg,
		})
	}
}

func (h *Handler) handle(ctx context.Context, uid, email string) error {
	claimed, err := h.roleClaimed(ctx, uid)
	if err != nil {
		return err
	}
	if claimed {
		return nil
	}

	// Give a concurrent lifecycle create time to finish its claim issuance.
	if err := h.sleep(ctx, h.delay); err != nil {
		return err
	}

	claimed, err = h.roleClaimed(ctx, uid)
	if err != nil {
		return err
	}
	if claimed {
		return nil
	}

	if err := h.provider.SetClaims(ctx, uid, domain.ClaimBundle{Role: domain.RoleStandardUser}); err != nil {
		return err
	}
	if err := h.principals.Upsert(ctx, &domain.Principal{
		UID:   uid,
		Role:  domain.RoleStandardUser,
		Email: email,
	}); err != nil {
		return err
	}

	h.logger.Info("assigned default role", "uid", uid, "role", domain.RoleStandardUser)
	_ = h.audit.Insert(ctx, &domain.AuditEntry{
		Action:    "BOOTSTRAP_DEFAULT_ROLE",
		TargetUID: uid,
		Status:    "ALLOWED",
	})
	return nil
}

// roleClaimed reports whether the account already carries a role claim. An
// account deleted between creation and now counts as claimed; there is
// nothing left to provision.
func (h *Handler) roleClaimed(ctx context.Context, uid string) (bool, error) {
	bundle, err := h.provider.GetClaims(ctx, uid)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return true, nil
		}
		return false, err
	}
	return bundle != nil && bundle.Role != "", nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
