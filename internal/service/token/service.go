package token

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/docweave/backend/internal/domain"
	"github.com/docweave/backend/pkg/auth"
)

const deniedTokenKeyPrefix = "denied_token:"

// IdentityVerifier confirms that a claimed (session, user) pair denotes a
// currently authenticated principal at the upstream identity provider.
type IdentityVerifier interface {
	VerifySession(ctx context.Context, sessionID, userID string) (bool, error)
}

// CacheRepository is the optional denylist backend for rotated-out refresh
// token ids. A nil cache leaves the issuer fully stateless.
type CacheRepository interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// Service is the credential issuer: it converts verified upstream identity
// assertions into signed access/refresh token pairs and rotates them.
// It keeps no record of issuance; validity is enforced by signature + claims.
type Service struct {
	verifier IdentityVerifier
	tokens   *auth.TokenManager
	cache    CacheRepository // optional, can be nil
}

func NewService(verifier IdentityVerifier, tokens *auth.TokenManager, cache CacheRepository) *Service {
	return &Service{
		verifier: verifier,
		tokens:   tokens,
		cache:    cache,
	}
}

// Exchange verifies the (session, user) pair against the identity provider
// and mints a fresh token pair. Missing inputs and failed verification both
// surface as domain.ErrInvalidSession; provider outages surface as wrapped
// internal errors so the transport layer can answer 500 instead of 401.
func (s *Service) Exchange(ctx context.Context, sessionID, userID string) (*domain.TokenPair, error) {
	if sessionID == "" || userID == "" {
		return nil, domain.ErrInvalidSession
	}

	ok, err := s.verifier.VerifySession(ctx, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("session verification failed: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidSession
	}

	return s.generatePair(userID)
}

// Refresh validates a refresh token and issues a brand-new rotated pair.
// The presented token's lifetime is never extended; when a denylist cache is
// configured its token id is retired for the remainder of that lifetime.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	if s.isDenied(ctx, claims.TokenID) {
		return nil, domain.ErrInvalidToken
	}
	s.denyToken(ctx, claims.TokenID, time.Until(claims.ExpiresAt.Time))

	return s.generatePair(claims.UserID)
}

func (s *Service) generatePair(userID string) (*domain.TokenPair, error) {
	accessToken, err := s.tokens.GenerateAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.tokens.GenerateRefreshToken(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func (s *Service) isDenied(ctx context.Context, tokenID string) bool {
	if s.cache == nil {
		return false
	}
	val, err := s.cache.Get(ctx, deniedTokenKeyPrefix+tokenID)
	return err == nil && val != ""
}

// denyToken retires a rotated-out refresh token id for its remaining lifetime.
// Best effort: a denylist write failure downgrades to stateless rotation and
// must not fail the refresh itself.
func (s *Service) denyToken(ctx context.Context, tokenID string, ttl time.Duration) {
	if s.cache == nil || ttl <= 0 {
		return
	}
	if err := s.cache.Set(ctx, deniedTokenKeyPrefix+tokenID, "1", ttl); err != nil {
		log.Printf("[TOKEN] Warning: Failed to denylist rotated refresh token: %v", err)
	}
}
