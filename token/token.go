// Package token issues and single-use-validates the signed credentials that
// authorize one score increment each.
package token

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"scorekit/core"
)

// DefaultTTL is how long an issued token stays redeemable.
const DefaultTTL = 5 * time.Minute

// DefaultRetention is how long a consumed marker outlives the token it
// blocks. It must be at least the TTL so a spent token can never replay
// inside its own validity window.
const DefaultRetention = 24 * time.Hour

// Store tracks token lifecycle server-side. Save records a pending token;
// Consume atomically flips it pending -> consumed, returning true exactly
// once per id even under concurrent calls.
type Store interface {
	Save(ctx context.Context, id string, ttl time.Duration) error
	Consume(ctx context.Context, id string, retain time.Duration) (bool, error)
}

// Service signs tokens with a server-held key. The payload embeds an
// absolute expiry, so a stolen token is dead past that instant even if the
// store loses its state, plus an unpredictable nonce so no two tokens are
// byte-identical.
type Service struct {
	key       []byte
	ttl       time.Duration
	retention time.Duration
	store     Store
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTTL overrides the token lifetime.
func WithTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithRetention overrides how long consumed markers are kept.
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a token service. The key must be non-empty and the
// store non-nil.
func NewService(key []byte, store Store, opts ...Option) (*Service, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("token: empty signing key")
	}
	if store == nil {
		return nil, fmt.Errorf("token: nil store")
	}
	s := &Service{
		key:       append([]byte(nil), key...),
		ttl:       DefaultTTL,
		retention: DefaultRetention,
		store:     store,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.retention < s.ttl {
		s.retention = s.ttl
	}
	return s, nil
}

// TTL returns the configured token lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue creates a fresh token for (user, category) and records it pending.
func (s *Service) Issue(ctx context.Context, user core.UserID, category core.Category) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("token: nonce: %w", err)
	}
	id := hex.EncodeToString(nonce)
	expiry := s.now().Add(s.ttl).Unix()
	payload := encodePayload(user, category, expiry, id)
	sig := s.sign(payload)
	if err := s.store.Save(ctx, id, s.ttl); err != nil {
		return "", core.WrapStorage(err)
	}
	raw := payload + "|" + hex.EncodeToString(sig)
	return base64.RawURLEncoding.EncodeToString([]byte(raw)), nil
}

// Consume verifies and burns a token as a single atomic check-and-mark.
// Exactly one concurrent caller can succeed per token. Everyone else,
// including every forged, expired, mismatched or replayed presentation, gets
// core.ErrForbidden with no further detail. On success the token's id is
// returned for the audit trail.
func (s *Service) Consume(ctx context.Context, encoded string, user core.UserID, category core.Category) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", core.ErrForbidden
	}
	parts := strings.Split(string(raw), "|")
	if len(parts) != 5 {
		return "", core.ErrForbidden
	}
	payload := strings.Join(parts[:4], "|")
	sig, err := hex.DecodeString(parts[4])
	if err != nil || !hmac.Equal(sig, s.sign(payload)) {
		return "", core.ErrForbidden
	}
	if core.UserID(parts[0]) != user || core.Category(parts[1]) != category {
		return "", core.ErrForbidden
	}
	expiry, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || s.now().Unix() >= expiry {
		return "", core.ErrForbidden
	}
	id := parts[3]
	ok, err := s.store.Consume(ctx, id, s.retention)
	if err != nil {
		return "", core.WrapStorage(err)
	}
	if !ok {
		return "", core.ErrForbidden
	}
	return id, nil
}

func (s *Service) sign(payload string) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

func encodePayload(user core.UserID, category core.Category, expiry int64, id string) string {
	// Identifiers are normalized before issuance, so '|' can never occur in
	// them.
	return string(user) + "|" + string(category) + "|" + strconv.FormatInt(expiry, 10) + "|" + id
}
