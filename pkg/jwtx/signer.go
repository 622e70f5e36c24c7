package jwtx

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Default server signing algorithms.
const (
	AlgorithmRS256 = "RS256"
	AlgorithmES256 = "ES256"
)

// Signer signs JWTs with one private key.
type Signer interface {
	Alg() string
	KID() string
	Sign(claims jwt.Claims) (string, error)
	PublicJWK() JWK
}

// signingAlg describes a JWS algorithm the server can sign with. curve is
// nil for the RSA family.
type signingAlg struct {
	method jwt.SigningMethod
	curve  elliptic.Curve
}

var signingAlgs = map[string]signingAlg{
	"RS256": {method: jwt.SigningMethodRS256},
	"RS384": {method: jwt.SigningMethodRS384},
	"RS512": {method: jwt.SigningMethodRS512},
	"PS256": {method: jwt.SigningMethodPS256},
	"PS384": {method: jwt.SigningMethodPS384},
	"PS512": {method: jwt.SigningMethodPS512},
	"ES256": {method: jwt.SigningMethodES256, curve: elliptic.P256()},
	"ES384": {method: jwt.SigningMethodES384, curve: elliptic.P384()},
	"ES512": {method: jwt.SigningMethodES512, curve: elliptic.P521()},
}

func lookupAlg(alg string) (signingAlg, error) {
	sa, ok := signingAlgs[alg]
	if !ok {
		return signingAlg{}, fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
	}
	return sa, nil
}

// NewSigner builds a Signer for alg from a PEM private key. RSA keys may be
// PKCS1 or PKCS8. EC keys are PKCS8 on the curve alg names.
func NewSigner(alg, kid string, pemKey []byte) (Signer, error) {
	sa, err := lookupAlg(alg)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM private key")
	}

	if sa.curve == nil {
		key, err := parseRSAKey(block)
		if err != nil {
			return nil, err
		}
		return &keySigner{kid: kid, method: sa.method, key: key, jwk: NewRSAJWK(kid, alg, &key.PublicKey)}, nil
	}

	key, err := parseECKey(block)
	if err != nil {
		return nil, err
	}
	if got, want := key.Curve.Params().Name, sa.curve.Params().Name; got != want {
		return nil, fmt.Errorf("jwtx: %s needs a %s key, got %s", alg, want, got)
	}
	return &keySigner{kid: kid, method: sa.method, key: key, jwk: NewECJWK(kid, alg, &key.PublicKey)}, nil
}

func parseRSAKey(block *pem.Block) (*rsa.PrivateKey, error) {
	if block.Type == "RSA PRIVATE KEY" {
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse RSA key: %w", err)
		}
		return key, nil
	}
	key, err := parsePKCS8[*rsa.PrivateKey](block)
	if err != nil {
		return nil, err
	}
	return key, nil
}

func parseECKey(block *pem.Block) (*ecdsa.PrivateKey, error) {
	return parsePKCS8[*ecdsa.PrivateKey](block)
}

func parsePKCS8[K any](block *pem.Block) (K, error) {
	var zero K
	if block.Type != "PRIVATE KEY" {
		return zero, fmt.Errorf("jwtx: unsupported PEM type %q, want PKCS8 PRIVATE KEY", block.Type)
	}
	priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return zero, fmt.Errorf("jwtx: parse PKCS8: %w", err)
	}
	key, ok := priv.(K)
	if !ok {
		return zero, fmt.Errorf("jwtx: PKCS8 key is %T, want %T", priv, zero)
	}
	return key, nil
}

type keySigner struct {
	kid    string
	method jwt.SigningMethod
	key    any
	jwk    JWK
}

func (s *keySigner) Alg() string    { return s.method.Alg() }
func (s *keySigner) KID() string    { return s.kid }
func (s *keySigner) PublicJWK() JWK { return s.jwk }

func (s *keySigner) Sign(claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(s.method, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}
