// Package group wraps a cyclic group of known order behind one contract so
// the Schnorr verifier works identically over a multiplicative subgroup of
// integers mod p and over an elliptic curve.
package group

import (
	"crypto/rand"
	"errors"
	"math/big"
)

var (
	// ErrInvalidElement is returned when bytes do not decode to a valid
	// element of the group: wrong length, value outside the field, point
	// not on the curve, the identity, or an element outside the prime
	// subgroup.
	ErrInvalidElement = errors.New("invalid group element")

	// ErrInvalidParameters is returned when group parameters are rejected
	// at construction time.
	ErrInvalidParameters = errors.New("invalid group parameters")
)

// Element is an immutable element of a group. Implementations are only
// meaningful within the group that produced them; mixing elements from
// different groups is a programming error.
type Element interface {
	// Bytes returns the canonical fixed-width encoding of the element.
	Bytes() []byte

	// Equal reports whether the receiver and other are the same element.
	Equal(other Element) bool

	// IsIdentity reports whether the element is the group identity.
	IsIdentity() bool
}

// Group abstracts the arithmetic the Schnorr protocol needs. All scalar
// arguments are reduced modulo the group order before use.
type Group interface {
	// Name identifies the concrete group, e.g. "secp256k1" or "modp-2048".
	Name() string

	// Order returns the order n of the subgroup generated by the
	// generator. Callers must not mutate the returned value.
	Order() *big.Int

	// Generator returns the base element G.
	Generator() Element

	// ScalarBaseMult computes k*G.
	ScalarBaseMult(k *big.Int) Element

	// ScalarMult computes k*P.
	ScalarMult(p Element, k *big.Int) Element

	// Add computes P + Q.
	Add(p, q Element) Element

	// Decode parses untrusted bytes into a validated element. It returns
	// ErrInvalidElement for anything that is not a non-identity element of
	// the order-n subgroup.
	Decode(b []byte) (Element, error)

	// RandomScalar draws a uniform scalar in [0, n) from crypto/rand.
	RandomScalar() (*big.Int, error)
}

// randomScalar is the shared RandomScalar implementation.
func randomScalar(n *big.Int) (*big.Int, error) {
	return rand.Int(rand.Reader, n)
}
