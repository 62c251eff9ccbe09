package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"

	"localtube/pkg/models"
)

var ErrInvalidToken = errors.New("auth: invalid session token")

// Claims is what the session cookie carries. The JWT id is the session id.
type Claims struct {
	Username string `json:"username"`
	jwt.StandardClaims
}

// TokenSigner signs and verifies session tokens with an HMAC secret.
type TokenSigner struct {
	secret []byte
}

func NewTokenSigner(secret string) (*TokenSigner, error) {
	if secret == "" {
		return nil, errors.New("session secret cannot be empty")
	}
	return &TokenSigner{secret: []byte(secret)}, nil
}

func (t *TokenSigner) Sign(sess *models.Session) (string, error) {
	claims := Claims{
		Username: sess.Username,
		StandardClaims: jwt.StandardClaims{
			Id:        sess.ID,
			Subject:   strconv.FormatUint(uint64(sess.UserID), 10),
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: sess.ExpiresAt.Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry of token.
func (t *TokenSigner) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Id == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
