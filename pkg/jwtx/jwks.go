package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
)

// KeyFamily groups signing algorithms by the kind of public key they need.
type KeyFamily string

const (
	FamilyRSA KeyFamily = "RSA"
	FamilyEC  KeyFamily = "EC"
)

// FamilyForAlg maps a JWS "alg" header value to the key family able to
// verify it.
func FamilyForAlg(alg string) (KeyFamily, error) {
	switch alg {
	case "RS256", "RS384", "RS512", "PS256", "PS384", "PS512":
		return FamilyRSA, nil
	case "ES256", "ES384", "ES512":
		return FamilyEC, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
	}
}

var curves = map[string]elliptic.Curve{
	"P-256": elliptic.P256(),
	"P-384": elliptic.P384(),
	"P-521": elliptic.P521(),
}

// JWK represents a public key in JSON Web Key format (RFC 7517).
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`

	// RSA
	N string `json:"n,omitempty"`
	E string `json:"e,omitempty"`

	// EC
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

// JWKS is a JSON Web Key Set (RFC 7517).
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// Find returns the key with the given kid and family.
func (s JWKS) Find(kid string, family KeyFamily) (JWK, bool) {
	for _, k := range s.Keys {
		if k.Kid == kid && k.Family() == family {
			return k, true
		}
	}
	return JWK{}, false
}

// NewRSAJWK builds a signing JWK for an RSA public key.
func NewRSAJWK(kid, alg string, pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Alg: alg,
		Kid: kid,
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// NewECJWK builds a signing JWK for an ECDSA public key on P-256, P-384
// or P-521. Coordinates are left-padded to the curve's field size.
func NewECJWK(kid, alg string, pub *ecdsa.PublicKey) JWK {
	params := pub.Curve.Params()
	size := (params.BitSize + 7) / 8

	return JWK{
		Kty: "EC",
		Use: "sig",
		Alg: alg,
		Kid: kid,
		Crv: params.Name,
		X:   base64.RawURLEncoding.EncodeToString(pub.X.FillBytes(make([]byte, size))),
		Y:   base64.RawURLEncoding.EncodeToString(pub.Y.FillBytes(make([]byte, size))),
	}
}

// Family reports the key family of the JWK.
func (j JWK) Family() KeyFamily { return KeyFamily(j.Kty) }

// PublicKey decodes the JWK into *rsa.PublicKey or *ecdsa.PublicKey.
func (j JWK) PublicKey() (crypto.PublicKey, error) {
	switch j.Family() {
	case FamilyRSA:
		nb, err := base64.RawURLEncoding.DecodeString(j.N)
		if err != nil {
			return nil, fmt.Errorf("jwtx: decode n: %w", err)
		}
		eb, err := base64.RawURLEncoding.DecodeString(j.E)
		if err != nil {
			return nil, fmt.Errorf("jwtx: decode e: %w", err)
		}
		if len(nb) == 0 || len(eb) == 0 {
			return nil, errors.New("jwtx: empty RSA parameters")
		}
		return &rsa.PublicKey{
			N: new(big.Int).SetBytes(nb),
			E: int(new(big.Int).SetBytes(eb).Int64()),
		}, nil

	case FamilyEC:
		curve, ok := curves[j.Crv]
		if !ok {
			return nil, errors.New("jwtx: unsupported EC curve " + j.Crv)
		}
		xb, err := base64.RawURLEncoding.DecodeString(j.X)
		if err != nil {
			return nil, fmt.Errorf("jwtx: decode x: %w", err)
		}
		yb, err := base64.RawURLEncoding.DecodeString(j.Y)
		if err != nil {
			return nil, fmt.Errorf("jwtx: decode y: %w", err)
		}
		return &ecdsa.PublicKey{
			Curve: curve,
			X:     new(big.Int).SetBytes(xb),
			Y:     new(big.Int).SetBytes(yb),
		}, nil

	default:
		return nil, errors.New("jwtx: unsupported kty " + j.Kty)
	}
}
