package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultAccessTokenTTL  = 30 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

var (
	// ErrTokenExpired means the signature checked out but the token is past exp.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers every other signature/structure failure.
	ErrTokenInvalid = errors.New("invalid token")
)

// TokenClaims is the payload of both access and refresh tokens. The JTI is
// derived from subject and issue time, so it is reproducible but still unique
// per issuance second.
type TokenClaims struct {
	SubjectID int64 `json:"sub_id"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 access/refresh tokens. It is
// stateless: everything is reconstructed from a verified signature.
type TokenService struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService builds a token service. Access and refresh keys may be the
// same secret; TTLs of zero fall back to the defaults (30m / 7d).
func NewTokenService(accessKey, refreshKey string, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL == 0 {
		accessTTL = defaultAccessTokenTTL
	}
	if refreshTTL == 0 {
		refreshTTL = defaultRefreshTokenTTL
	}
	return &TokenService{
		accessKey:  []byte(accessKey),
		refreshKey: []byte(refreshKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func buildClaims(subjectID int64, ttl time.Duration) TokenClaims {
	now := time.Now()
	iat := now.Unix()
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d-%d", subjectID, iat)))

	return TokenClaims{
		SubjectID: subjectID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        hex.EncodeToString(sum[:]),
		},
	}
}

func (s *TokenService) sign(claims TokenClaims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// IssueAccess signs a short-lived access token for the subject.
func (s *TokenService) IssueAccess(subjectID int64) (string, error) {
	return s.sign(buildClaims(subjectID, s.accessTTL), s.accessKey)
}

// IssueRefresh signs a long-lived refresh token for the subject.
func (s *TokenService) IssueRefresh(subjectID int64) (string, error) {
	return s.sign(buildClaims(subjectID, s.refreshTTL), s.refreshKey)
}

func verify(tokenStr string, key []byte) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// VerifyAccess validates an access token and returns its claims.
func (s *TokenService) VerifyAccess(tokenStr string) (*TokenClaims, error) {
	return verify(tokenStr, s.accessKey)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (s *TokenService) VerifyRefresh(tokenStr string) (*TokenClaims, error) {
	return verify(tokenStr, s.refreshKey)
}
