package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/google/uuid"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 30 * 24 * time.Hour

	typeAccess  = "access"
	typeRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// Tokens is the pair handed to a client after sign in.
type Tokens struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// tokenClaims are the claims this package reads back from a token.
type tokenClaims struct {
	UserID    string
	ID        string
	ExpiresAt time.Time
}

// TokenIssuer signs and parses HS256 tokens.
type TokenIssuer struct {
	signingKey []byte
	now        func() time.Time
}

func NewTokenIssuer(signingKey string, now func() time.Time) *TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{signingKey: []byte(signingKey), now: now}
}

func (t *TokenIssuer) sign(userID, kind string, ttl time.Duration) (string, time.Time, error) {
	issuedAt := t.now()
	expiresAt := issuedAt.Add(ttl)
	claims := jwt.MapClaims{
		"id":  userID,
		"typ": kind,
		"jti": uuid.NewString(),
		"iat": issuedAt.Unix(),
		"exp": expiresAt.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create %s token: %w", kind, err)
	}
	return signed, expiresAt, nil
}

// Issue creates an access token and a refresh token for userID.
func (t *TokenIssuer) Issue(userID string) (*Tokens, error) {
	access, accessExp, err := t.sign(userID, typeAccess, AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := t.sign(userID, typeRefresh, RefreshTokenTTL)
	if err != nil {
		return nil, err
	}
	return &Tokens{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// ParseAccess returns the user id of a valid access token.
func (t *TokenIssuer) ParseAccess(token string) (string, error) {
	claims, err := t.parse(token, typeAccess)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (t *TokenIssuer) parseRefresh(token string) (*tokenClaims, error) {
	return t.parse(token, typeRefresh)
}

func (t *TokenIssuer) parse(raw, kind string) (*tokenClaims, error) {
	parser := &jwt.Parser{}
	token, err := parser.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.signingKey, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	// jwt-go validates exp against the wall clock; check it against ours too.
	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}
	expiresAt := time.Unix(int64(exp), 0)
	if !t.now().Before(expiresAt) {
		return nil, ErrExpiredToken
	}

	if typ, _ := claims["typ"].(string); typ != kind {
		return nil, ErrInvalidToken
	}
	userID, _ := claims["id"].(string)
	jti, _ := claims["jti"].(string)
	if userID == "" || jti == "" {
		return nil, ErrInvalidToken
	}
	return &tokenClaims{UserID: userID, ID: jti, ExpiresAt: expiresAt}, nil
}
