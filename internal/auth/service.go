package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/calivra/calivra_bank/internal/config"
	"github.com/calivra/calivra_bank/internal/identity"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenInvalidated = errors.New("token version invalidated")
)

// Claims is the JWT payload for both access and refresh tokens.
type Claims struct {
	Email   string `json:"email"`
	Role    string `json:"role"`
	Version int    `json:"ver"`
	jwt.RegisteredClaims
}

type Service struct {
	cfg config.Config
	ids *identity.Service
	now func() time.Time
}

func NewService(cfg config.Config, ids *identity.Service) *Service {
	return &Service{cfg: cfg, ids: ids, now: time.Now}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Issue signs an access and refresh token for user at its current token version.
func (s *Service) Issue(user identity.User) (TokenPair, error) {
	access, err := s.sign(user, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(user, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(s.cfg.AccessTokenTTL.Seconds())}, nil
}

func (s *Service) sign(user identity.User, secret string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Email:   user.Email,
		Role:    user.Role,
		Version: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.cfg.AppName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseAccess verifies an access token signature and expiry.
func (s *Service) ParseAccess(token string) (Claims, error) {
	return s.parse(token, s.cfg.JWTSecret)
}

func (s *Service) parse(token, secret string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Authorize resolves an access token to a session, rejecting tokens whose
// version no longer matches the user's.
func (s *Service) Authorize(ctx context.Context, token string) (Session, error) {
	claims, err := s.ParseAccess(token)
	if err != nil {
		return Session{}, err
	}
	user, err := s.ids.Get(ctx, claims.Subject)
	if err != nil || user.TokenVersion != claims.Version {
		return Session{}, ErrTokenInvalidated
	}
	return Session{UserID: user.ID, Email: user.Email, Role: user.Role, TokenVersion: user.TokenVersion}, nil
}

// Refresh verifies the refresh token and issues a new pair at the same version.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.parse(refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return TokenPair{}, err
	}
	user, err := s.ids.Get(ctx, claims.Subject)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	if user.TokenVersion != claims.Version {
		return TokenPair{}, ErrTokenInvalidated
	}
	return s.Issue(user)
}

// Logout increments token version so older tokens become invalid.
func (s *Service) Logout(ctx context.Context, userID string) error {
	_, err := s.ids.BumpTokenVersion(ctx, userID)
	return err
}
