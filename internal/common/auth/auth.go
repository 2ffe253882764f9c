package auth

import (
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"
)

const RoleAdmin = "admin"

var (
	ErrNoSecret     = errors.New("admin jwt secret is not configured")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the payload of an operator token.
type Claims struct {
	Subject string `json:"sub_name"`
	Role    string `json:"role"`
	jwt.StandardClaims
}

// Signer issues and verifies HS256 operator tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *Signer) Generate(subject, role string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}
	now := s.now()
	claims := Claims{
		Subject: subject,
		Role:    role,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.ttl).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Signer) Parse(tokenStr string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrNoSecret
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
