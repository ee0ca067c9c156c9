package utils

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Guards are the two mutually exclusive authentication realms.
const (
	GuardUser  = "user"
	GuardAdmin = "admin"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type CustomClaims struct {
	Guard string `json:"guard"`
	jwt.RegisteredClaims
}

// SubjectID returns the numeric principal id carried in the subject claim.
func (c *CustomClaims) SubjectID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "NagoyaMeshi",
	}
}

func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

func (tm *TokenManager) GenerateToken(id uint, guard string) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		Guard: guard,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(id), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tm.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

func (tm *TokenManager) ParseToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tm.issuer))

	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	if claims.Guard != GuardUser && claims.Guard != GuardAdmin {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
