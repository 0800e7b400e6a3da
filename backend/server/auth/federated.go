package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/form3tech-oss/jwt-go"
)

// FederatedIdentity is what a verified identity-provider token asserts.
type FederatedIdentity struct {
	Subject  string
	Email    string
	Name     string
	Picture  string
	Verified bool
}

// FederatedVerifier checks RS256 ID tokens issued by an external identity
// provider against its public key and the expected audience.
type FederatedVerifier struct {
	key      *rsa.PublicKey
	audience string
}

// NewFederatedVerifier parses a PEM encoded RSA public key.
func NewFederatedVerifier(pemKey []byte, audience string) (*FederatedVerifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("parsing federated public key: %w", err)
	}
	return &FederatedVerifier{key: key, audience: audience}, nil
}

// LoadFederatedVerifier reads the PEM key at path.
func LoadFederatedVerifier(path, audience string) (*FederatedVerifier, error) {
	pemKey, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading federated public key: %w", err)
	}
	return NewFederatedVerifier(pemKey, audience)
}

// Verify validates idToken and extracts the identity it carries.
func (v *FederatedVerifier) Verify(idToken string) (*FederatedIdentity, error) {
	token, err := jwt.Parse(idToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.key, nil
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
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	}

	identity := &FederatedIdentity{}
	identity.Subject, _ = claims["sub"].(string)
	identity.Email, _ = claims["email"].(string)
	identity.Name, _ = claims["name"].(string)
	identity.Picture, _ = claims["picture"].(string)
	identity.Verified, _ = claims["email_verified"].(bool)
	if identity.Subject == "" || identity.Email == "" {
		return nil, fmt.Errorf("%w: subject and email are required", ErrInvalidToken)
	}
	return identity, nil
}
