package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/user/nftmarket/backend/internal/logger"
	"github.com/user/nftmarket/backend/internal/models"
)

const issuer = "nftmarket"

// Claims defines the structure of the JWT payload
type Claims struct {
	Principal models.Principal `json:"principal"`
	Username  string           `json:"username"`
	jwt.RegisteredClaims
}

// Signer issues and validates HS256 tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner falls back to an insecure development secret when secret is empty.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if secret == "" {
		logger.Warn("auth.jwt_secret not set, using default insecure secret")
		secret = "!!REPLACE_THIS_WITH_A_STRONG_SECRET_KEY!!"
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateJWT creates a token for the given principal.
func (s *Signer) GenerateJWT(principal models.Principal, username string) (string, error) {
	now := s.now()
	claims := &Claims{
		Principal: principal,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(principal),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateJWT validates a token string and returns its claims.
func (s *Signer) ValidateJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err // Handles expiration, invalid signature, etc.
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Principal == "" {
		return nil, errors.New("token carries no principal")
	}
	return claims, nil
}
