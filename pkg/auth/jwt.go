package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type discriminator carried in every claim set. A refresh endpoint must
// never accept an access token and vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims represents the JWT claims for both access and refresh tokens.
// TokenID is a fresh UUID per token, so two tokens minted in the same
// millisecond are still distinguishable (and refresh tokens revocable by id).
type Claims struct {
	UserID    string `json:"user_id"`
	TokenID   string `json:"token_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies token pairs under a single process-wide
// secret. It is constructed once at startup from validated config.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL returns the configured access token lifetime.
func (tm *TokenManager) AccessTTL() time.Duration {
	return tm.accessTTL
}

// GenerateAccessToken creates a short-lived signed access token for userID.
func (tm *TokenManager) GenerateAccessToken(userID string) (string, error) {
	return tm.generate(userID, TokenTypeAccess, tm.accessTTL)
}

// GenerateRefreshToken creates a long-lived signed refresh token for userID.
func (tm *TokenManager) GenerateRefreshToken(userID string) (string, error) {
	return tm.generate(userID, TokenTypeRefresh, tm.refreshTTL)
}

func (tm *TokenManager) generate(userID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		TokenID:   uuid.NewString(),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// ValidateAccessToken verifies signature, expiry and the access type claim.
func (tm *TokenManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	return tm.validate(tokenString, TokenTypeAccess)
}

// ValidateRefreshToken verifies signature, expiry and the refresh type claim.
func (tm *TokenManager) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return tm.validate(tokenString, TokenTypeRefresh)
}

func (tm *TokenManager) validate(tokenString, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return tm.secret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.TokenType != wantType {
		return nil, errors.New("wrong token type")
	}
	if claims.UserID == "" {
		return nil, errors.New("token missing subject")
	}

	return claims, nil
}
