package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"proficiency-scoring/internal/logger"
)

const roleReviewer = "reviewer"

var ErrInvalidJWTToken = errors.New("invalid jwt token")

// ReviewerClaims are the JWT claims of an integrity reviewer.
type ReviewerClaims struct {
	ReviewerID string `json:"reviewer_id"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService issues and validates reviewer tokens for the admin routes.
type AuthService interface {
	CreateJWT(ctx context.Context, reviewerID string, ttl time.Duration) (string, error)
	ValidateJWT(ctx context.Context, tokenString string) (*ReviewerClaims, error)
}

type authServiceImpl struct {
	secret []byte
}

// NewAuthService requires a non-empty signing secret.
func NewAuthService(secret string) (AuthService, error) {
	if secret == "" {
		return nil, errors.New("admin jwt secret is not configured")
	}
	return &authServiceImpl{secret: []byte(secret)}, nil
}

func (s *authServiceImpl) CreateJWT(ctx context.Context, reviewerID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ReviewerClaims{
		ReviewerID: reviewerID,
		Role:       roleReviewer,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   reviewerID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *authServiceImpl) ValidateJWT(ctx context.Context, tokenString string) (*ReviewerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ReviewerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			logger.Get().Warn("JWT token expired", zap.Error(err))
		} else {
			logger.Get().Warn("JWT validation failed", zap.Error(err))
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWTToken, err)
	}

	claims, ok := token.Claims.(*ReviewerClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidJWTToken
	}
	if claims.Role != roleReviewer {
		return nil, fmt.Errorf("%w: role %q may not review sessions", ErrInvalidJWTToken, claims.Role)
	}
	return claims, nil
}
