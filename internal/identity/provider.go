// Package identity implements the external account authority as an embedded
// provider backed by SQLite. Production deployments front this with a real
// identity provider and verify its tokens via OIDC; the embedded provider
// exists so development and tests exercise the same lifecycle sequencing,
// including the account-created hook firing concurrently with explicit
// provisioning.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"placedir/internal/claims"
	"placedir/internal/db/repository"
	"placedir/internal/domain"
)

// Hook is invoked whenever any new account is created, regardless of which
// path created it.
type Hook func(ctx context.Context, uid, email string)

var _ domain.IdentityProvider = (*Provider)(nil)

// Provider implements domain.IdentityProvider.
type Provider struct {
	accounts *repository.ProviderAccountRepo
	codec    *claims.Codec
	logger   *slog.Logger

	mu       sync.Mutex
	hooks    []Hook
	syncFire bool
	wg       sync.WaitGroup
}

// Option configures a Provider.
type Option func(*Provider)

// WithSynchronousHooks makes account-created hooks run inline instead of in
// their own goroutine. Tests use this to make the bootstrap race
// deterministic.
func WithSynchronousHooks() Option {
	return func(p *Provider) { p.syncFire = true }
}

// NewProvider creates the embedded identity provider.
func NewProvider(accounts *repository.ProviderAccountRepo, codec *claims.Codec, logger *slog.Logger, opts ...Option) *Provider {
	p := &Provider{accounts: accounts, codec: codec, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscribe registers a hook fired on every account creation.
func (p *Provider) Subscribe(h Hook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, h)
}

// CreateAccount provisions a new account and fires the account-created hook.
// The hook runs concurrently with the caller's remaining steps, exactly the
// ordering hazard the bootstrap handler exists for.
func (p *Provider) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	if email == "" {
		return "", domain.ErrInvalidArgument("email is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", domain.ErrInternal(err, "account creation failed")
	}

	uid := domain.NewID()
	row := &repository.ProviderAccountRow{
		Account: domain.ProviderAccount{
			UID:         uid,
			Email:       email,
			DisplayName: displayName,
		},
		PasswordHash: string(hash),
	}
	if err := p.accounts.Insert(ctx, row); err != nil {
		var exists *domain.AlreadyExistsError
		if errors.As(err, &exists) {
			return "", domain.ErrAlreadyExists("an account with email %s already exists", email)
		}
		return "", domain.ErrInternal(err, "account creation failed")
	}

	p.fireHooks(uid, email)
	return uid, nil
}

func (p *Provider) fireHooks(uid, email string) {
	p.mu.Lock()
	hooks := make([]Hook, len(p.hooks))
	copy(hooks, p.hooks)
	inline := p.syncFire
	p.mu.Unlock()

	for _, h := range hooks {
		if inline {
			h(context.Background(), uid, email)
			continue
		}
		p.wg.Add(1)
		go func(h Hook) {
			defer p.wg.Done()
			h(context.Background(), uid, email)
		}(h)
	}
}

// WaitForHooks blocks until all in-flight hook invocations finish.
func (p *Provider) WaitForHooks() { p.wg.Wait() }

func (p *Provider) DeleteAccount(ctx context.Context, uid string) error {
	return p.accounts.Delete(ctx, uid)
}

func (p *Provider) DisableAccount(ctx context.Context, uid string) error {
	return p.accounts.SetDisabled(ctx, uid, true)
}

func (p *Provider) GetAccount(ctx context.Context, uid string) (*domain.ProviderAccount, error) {
	row, err := p.accounts.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	account := row.Account
	return &account, nil
}

func (p *Provider) SetClaims(ctx context.Context, uid string, bundle domain.ClaimBundle) error {
	return p.accounts.SetClaims(ctx, uid, bundle)
}

func (p *Provider) GetClaims(ctx context.Context, uid string) (*domain.ClaimBundle, error) {
	row, err := p.accounts.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	return row.Claims, nil
}

func (p *Provider) ListAccountsCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.ProviderAccount, error) {
	return p.accounts.ListCreatedBefore(ctx, cutoff)
}

// SignIn verifies credentials and mints a session token carrying the claim
// bundle as of now. Tokens minted earlier keep their stale bundle.
func (p *Provider) SignIn(ctx context.Context, email, password string) (string, error) {
	row, err := p.accounts.GetByEmail(ctx, email)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return "", domain.ErrUnauthenticated("invalid credentials")
		}
		return "", domain.ErrInternal(err, "sign-in failed")
	}
	if row.Account.Disabled {
		return "", domain.ErrPermissionDenied("account is blocked")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		return "", domain.ErrUnauthenticated("invalid credentials")
	}
	return p.mintToken(row)
}

// MintToken issues a session token for uid without checking credentials.
// Admin tooling only.
func (p *Provider) MintToken(ctx context.Context, uid string) (string, error) {
	row, err := p.accounts.Get(ctx, uid)
	if err != nil {
		return "", err
	}
	return p.mintToken(row)
}

func (p *Provider) mintToken(row *repository.ProviderAccountRow) (string, error) {
	bundle := domain.ClaimBundle{}
	if row.Claims != nil {
		bundle = *row.Claims
	}
	token, err := p.codec.Issue(row.Account.UID, bundle)
	if err != nil {
		return "", domain.ErrInternal(err, "token minting failed")
	}
	return token, nil
}
