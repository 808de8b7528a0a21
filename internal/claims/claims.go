// Package claims encodes and decodes the signed claim bundle attached to a
// principal's session token.
package claims

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"placedir/internal/domain"
)

// Claim keys used inside session tokens. The identity provider copies the
// bundle into every token it mints for the account; tokens minted before a
// claim change keep the stale bundle until the session is refreshed.
const (
	roleClaim  = "role"
	scopeClaim = "tenant"
)

// Codec signs and verifies claim bundles as HS256 JWTs.
type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec creates a codec for the given shared secret.
func NewCodec(secret, issuer string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("claim signing secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Codec{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a session token carrying the claim bundle for uid.
func (c *Codec) Issue(uid string, bundle domain.ClaimBundle) (string, error) {
	if uid == "" {
		return "", fmt.Errorf("uid is required")
	}
	now := c.now()
	mc := jwt.MapClaims{
		"sub": uid,
		"iss": c.issuer,
		"iat": now.Unix(),
		"exp": now.Add(c.ttl).Unix(),
	}
	if bundle.Role != "" {
		mc[roleClaim] = string(bundle.Role)
	}
	if bundle.ScopeRef != "" {
		mc[scopeClaim] = bundle.ScopeRef
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, mc)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign claim bundle: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature and expiry and returns the subject and
// its claim bundle.
func (c *Codec) Verify(tokenString string) (string, domain.ClaimBundle, error) {
	tok, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method == nil || token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now))
	if err != nil {
		return "", domain.ClaimBundle{}, fmt.Errorf("token verification failed: %w", err)
	}

	raw, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", domain.ClaimBundle{}, fmt.Errorf("parse claims: unsupported claim type %T", tok.Claims)
	}
	sub, _ := raw["sub"].(string)
	if sub == "" {
		return "", domain.ClaimBundle{}, fmt.Errorf("token has no subject")
	}

	bundle, _ := FromRaw(map[string]interface{}(raw))
	return sub, bundle, nil
}

// FromRaw extracts a claim bundle from pre-verified raw token claims. The
// second return is false when no role claim is present (an unprovisioned
// account). An invalid role value also reports false so a forged or stale
// role string never maps onto a real one.
func FromRaw(raw map[string]interface{}) (domain.ClaimBundle, bool) {
	roleStr, _ := raw[roleClaim].(string)
	if roleStr == "" {
		return domain.ClaimBundle{}, false
	}
	role := domain.Role(roleStr)
	if !role.Valid() {
		return domain.ClaimBundle{}, false
	}
	bundle := domain.ClaimBundle{Role: role}
	if scope, ok := raw[scopeClaim].(string); ok {
		bundle.ScopeRef = scope
	}
	return bundle, true
}
