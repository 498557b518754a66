package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"invizible.art/internal/apperr"
	"invizible.art/internal/obs"
)

// TokenCodec converts principal ids to bearer tokens and back.
type TokenCodec interface {
	Issue(principalID int64, ttl time.Duration) (string, time.Time, error)
	Resolve(token string) (int64, error)
}

var _ TokenCodec = (*Codec)(nil)

// LoginResult is returned to a caller that presented valid credentials.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Principal Principal `json:"user"`
	UserAgent string    `json:"user_agent,omitempty"`
}

// Service issues, validates and revokes bearer tokens.
type Service struct {
	store Store
	codec TokenCodec
	ttl   time.Duration
	log   *zap.Logger
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl <= 0 {
			return fmt.Errorf("auth: token ttl must be positive, got %s", ttl)
		}
		s.ttl = ttl
		return nil
	}
}

// WithTokenExpiration sets the token lifetime from a relative-time expression
// such as "7 days". Unreadable expressions fall back to one week.
func WithTokenExpiration(expr string) ServiceOption {
	return WithTokenTTL(ParseDuration(expr))
}

// WithLogger overrides the service logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) error {
		if l != nil {
			s.log = l
		}
		return nil
	}
}

// NewService constructs Service with optional configuration.
func NewService(store Store, codec TokenCodec, opts ...ServiceOption) (*Service, error) {
	if store == nil || codec == nil {
		return nil, errors.New("auth: store and codec are required")
	}
	svc := &Service{
		store: store,
		codec: codec,
		ttl:   time.Duration(DefaultDurationMillis) * time.Millisecond,
		log:   obs.Logger().Named("auth"),
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// TokenTTL reports the lifetime applied to new tokens.
func (s *Service) TokenTTL() time.Duration { return s.ttl }

// Login verifies credentials and issues a token recorded as active in the ledger.
func (s *Service) Login(ctx context.Context, name, password, userAgent string) (LoginResult, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return LoginResult{}, apperr.Validation("name and password are required")
	}

	p, err := s.store.Principals().FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			burnPasswordCheck(password)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, apperr.Internal(err, "login failed")
	}
	if err := VerifyPassword(p.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, exp, err := s.codec.Issue(p.ID, s.ttl)
	if err != nil {
		return LoginResult{}, apperr.Internal(err, "login failed")
	}
	rec := &TokenRecord{
		Token:            token,
		PrincipalID:      p.ID,
		ExpiresAt:        exp,
		ClientDescriptor: userAgent,
	}
	if err := s.store.Tokens().Insert(ctx, rec); err != nil {
		return LoginResult{}, apperr.Internal(err, "login failed")
	}

	s.log.Info("login", zap.Int64("principal_id", p.ID), zap.Int64("token_id", rec.ID), zap.Time("expires_at", exp))
	return LoginResult{
		Token:     token,
		ExpiresAt: exp,
		Principal: p.Sanitized(),
		UserAgent: userAgent,
	}, nil
}

// Authenticate resolves token to a principal id. It fails closed: any ledger
// error, a revoked or unknown token, or a codec failure yields false. The
// ledger is consulted before the codec so revoked tokens never get decrypted.
func (s *Service) Authenticate(ctx context.Context, token string) (int64, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		obs.AuthRejected("missing")
		return 0, false
	}

	active, err := s.store.Tokens().IsActive(ctx, token)
	if err != nil {
		s.log.Warn("token ledger lookup failed", zap.Error(err))
		obs.AuthRejected("ledger_error")
		return 0, false
	}
	if !active {
		obs.AuthRejected("inactive")
		return 0, false
	}

	id, err := s.codec.Resolve(token)
	if err != nil {
		reason := "invalid"
		switch {
		case errors.Is(err, ErrTokenExpired):
			reason = "expired"
		case errors.Is(err, ErrDecryptionFailed):
			reason = "decryption"
		}
		s.log.Debug("token rejected", zap.String("reason", reason), zap.Error(err))
		obs.AuthRejected(reason)
		return 0, false
	}
	return id, true
}

// Identify authenticates token and loads the principal it names.
func (s *Service) Identify(ctx context.Context, token string) (*Principal, bool) {
	id, ok := s.Authenticate(ctx, token)
	if !ok {
		return nil, false
	}
	p, err := s.store.Principals().Find(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn("principal lookup failed", zap.Int64("principal_id", id), zap.Error(err))
		}
		obs.AuthRejected("unknown_principal")
		return nil, false
	}
	sanitized := p.Sanitized()
	return &sanitized, true
}

// Logout revokes token. Revoking an already inactive token is a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrUnauthenticated
	}
	if err := s.store.Tokens().Revoke(ctx, token); err != nil {
		return apperr.Internal(err, "logout failed")
	}
	s.log.Info("logout", zap.Int64("principal_id", FromContext(ctx).PrincipalID()))
	return nil
}

// CreatePrincipal provisions a login with a bcrypt-hashed password.
func (s *Service) CreatePrincipal(ctx context.Context, name, password string) (*Principal, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 255 {
		return nil, apperr.Validation("name must be between 1 and 255 characters")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, apperr.Validation("password is required")
	}
	p := &Principal{Name: name, PasswordHash: hash}
	if err := s.store.Principals().Create(ctx, p); err != nil {
		return nil, apperr.Internal(err, "create principal failed")
	}
	sanitized := p.Sanitized()
	return &sanitized, nil
}
