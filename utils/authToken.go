package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/o1egl/paseto"
)

// TokenType tells access and refresh tokens apart.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
)

// TokenClaims struct represents the data carried by a token.
type TokenClaims struct {
	ID        string    `json:"jti"`
	AccountID uint      `json:"account_id"`
	Role      string    `json:"role"`
	Type      TokenType `json:"token_type"`
	IssuedAt  time.Time `json:"iat"`
	Expiry    time.Time `json:"exp"`
}

// TokenCodec turns claims into a signed string and back.
type TokenCodec interface {
	Encode(claims TokenClaims) (string, error)
	Decode(token string) (*TokenClaims, error)
}

// JWTCodec signs tokens with HS256.
type JWTCodec struct {
	secret []byte
}

func NewJWTCodec(secret string) *JWTCodec {
	return &JWTCodec{secret: []byte(secret)}
}

type jwtClaims struct {
	AccountID uint      `json:"account_id"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

func (c *JWTCodec) Encode(claims TokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		AccountID: claims.AccountID,
		Role:      claims.Role,
		TokenType: claims.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        claims.ID,
			Subject:   strconv.FormatUint(uint64(claims.AccountID), 10),
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.Expiry),
		},
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (c *JWTCodec) Decode(tokenString string) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}

	out := &TokenClaims{
		ID:        claims.ID,
		AccountID: claims.AccountID,
		Role:      claims.Role,
		Type:      claims.TokenType,
		Expiry:    claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// PasetoCodec encrypts tokens as PASETO v2 local tokens.
type PasetoCodec struct {
	key []byte
	v2  *paseto.V2
}

// NewPasetoCodec requires a 32 byte symmetric key.
func NewPasetoCodec(symmetricKey string) (*PasetoCodec, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be 32 bytes long, got %d", len(symmetricKey))
	}
	return &PasetoCodec{key: []byte(symmetricKey), v2: paseto.NewV2()}, nil
}

func (c *PasetoCodec) Encode(claims TokenClaims) (string, error) {
	token, err := c.v2.Encrypt(c.key, claims, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

func (c *PasetoCodec) Decode(tokenString string) (*TokenClaims, error) {
	var claims TokenClaims
	if err := c.v2.Decrypt(tokenString, c.key, &claims, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if time.Now().After(claims.Expiry) {
		return nil, ErrTokenExpired
	}
	return &claims, nil
}
