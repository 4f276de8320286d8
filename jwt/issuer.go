package jwt

import (
	"crypto/ed25519"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the algorithm an [Issuer] signs with.
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA over Ed25519.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256.
	MethodHS256 SigningMethod = "hs256"
)

// IssuerConfig configures an [Issuer].
type IssuerConfig struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	KeyID         string
}

// Issuer produces signed credentials from [Claims]. The client never needs
// one to operate; it exists for servers, fixtures and the demo API that hand
// credentials to the client.
type Issuer struct {
	config IssuerConfig
	key    interface{}
}

// NewIssuer validates cfg and returns an [Issuer].
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	var key interface{}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
		key = append([]byte(nil), cfg.PrivateKey...)
	case MethodEd25519:
		edKey, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		key = edKey
	default:
		return nil, errors.New("unsupported signing method")
	}
	return &Issuer{config: cfg, key: key}, nil
}

// Encode signs claims into a three-segment credential carrying sub, role,
// iat and exp.
func (i *Issuer) Encode(claims Claims) (string, error) {
	if i == nil {
		return "", errors.New("nil issuer")
	}
	role := claims.Role
	wc := wireClaims{
		Role: &role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(unixTime(claims.IssuedAt)),
			ExpiresAt: jwt.NewNumericDate(unixTime(claims.ExpiresAt)),
		},
	}

	token := jwt.NewWithClaims(i.method(), wc)
	if i.config.KeyID != "" {
		token.Header["kid"] = i.config.KeyID
	}
	return token.SignedString(i.key)
}

func (i *Issuer) method() jwt.SigningMethod {
	if i.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}
