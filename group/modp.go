package group

import (
	"fmt"
	"math/big"
	"strings"
)

// ModPGroup is a multiplicative subgroup of Z_p^* with generator g and order
// n dividing p-1. The group operation is multiplication mod p, so "Add" is
// modular multiplication and "ScalarMult" is modular exponentiation.
type ModPGroup struct {
	p       *big.Int
	g       *big.Int
	n       *big.Int
	name    string
	byteLen int
}

// NewModPGroup constructs a mod-p group after validating that g generates a
// subgroup of order n: 1 < g < p, g^n = 1 mod p and g != 1.
func NewModPGroup(name string, p, g, n *big.Int) (*ModPGroup, error) {
	if p == nil || g == nil || n == nil {
		return nil, fmt.Errorf("%w: nil parameter", ErrInvalidParameters)
	}
	if p.Cmp(big.NewInt(3)) < 0 || !p.ProbablyPrime(32) {
		return nil, fmt.Errorf("%w: modulus is not prime", ErrInvalidParameters)
	}
	one := big.NewInt(1)
	if g.Cmp(one) <= 0 || g.Cmp(p) >= 0 {
		return nil, fmt.Errorf("%w: generator out of range", ErrInvalidParameters)
	}
	if n.Sign() <= 0 || new(big.Int).Mod(new(big.Int).Sub(p, one), n).Sign() != 0 {
		return nil, fmt.Errorf("%w: order does not divide p-1", ErrInvalidParameters)
	}
	if new(big.Int).Exp(g, n, p).Cmp(one) != 0 {
		return nil, fmt.Errorf("%w: generator does not have the claimed order", ErrInvalidParameters)
	}
	return &ModPGroup{
		p:       new(big.Int).Set(p),
		g:       new(big.Int).Set(g),
		n:       new(big.Int).Set(n),
		name:    name,
		byteLen: (p.BitLen() + 7) / 8,
	}, nil
}

// Demo1019 returns the tiny demo group g=2, p=1019, n=1018. Its order is
// small enough to brute-force and composite; it exists for fast tests and
// protocol demos, never for real deployments.
func Demo1019() *ModPGroup {
	g, err := NewModPGroup("modp-demo-1019", big.NewInt(1019), big.NewInt(2), big.NewInt(1018))
	if err != nil {
		panic(err)
	}
	return g
}

// modp2048PHex is the 2048-bit MODP safe prime from RFC 3526, group 14.
const modp2048PHex = `
FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E08
8A67CC74020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B
302B0A6DF25F14374FE1356D6D51C245E485B576625E7EC6F44C42E9
A637ED6B0BFF5CB6F406B7EDEE386BFB5A899FA5AE9F24117C4B1FE6
49286651ECE45B3DC2007CB8A163BF0598DA48361C55D39A69163FA8
FD24CF5F83655D23DCA3AD961C62F356208552BB9ED529077096966D
670C354E4ABC9804F1746C08CA18217C32905E462E36CE3BE39E772C
180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF695581718
3995497CEA956AE515D2261898FA051015728E5A8AACAA68FFFFFFFF
FFFFFFFF`

// ModP2048 returns the RFC 3526 2048-bit MODP group with generator 2. The
// prime is a safe prime p = 2q+1 and 2 is a quadratic residue mod p, so the
// generator has prime order q = (p-1)/2.
func ModP2048() *ModPGroup {
	p, ok := new(big.Int).SetString(strings.ReplaceAll(strings.TrimSpace(modp2048PHex), "\n", ""), 16)
	if !ok {
		panic("modp2048: bad prime constant")
	}
	q := new(big.Int).Rsh(new(big.Int).Sub(p, big.NewInt(1)), 1)
	g, err := NewModPGroup("modp-2048", p, big.NewInt(2), q)
	if err != nil {
		panic(err)
	}
	return g
}

type modpElement struct {
	v       *big.Int
	byteLen int
}

func (e *modpElement) Bytes() []byte {
	return e.v.FillBytes(make([]byte, e.byteLen))
}

func (e *modpElement) Equal(other Element) bool {
	o, ok := other.(*modpElement)
	return ok && e.v.Cmp(o.v) == 0
}

func (e *modpElement) IsIdentity() bool {
	return e.v.Cmp(big.NewInt(1)) == 0
}

func (g *ModPGroup) elem(v *big.Int) *modpElement {
	return &modpElement{v: v, byteLen: g.byteLen}
}

// Name implements Group.
func (g *ModPGroup) Name() string { return g.name }

// Order implements Group.
func (g *ModPGroup) Order() *big.Int { return g.n }

// Generator implements Group.
func (g *ModPGroup) Generator() Element {
	return g.elem(new(big.Int).Set(g.g))
}

// ScalarBaseMult computes g^k mod p.
func (g *ModPGroup) ScalarBaseMult(k *big.Int) Element {
	return g.ScalarMult(g.Generator(), k)
}

// ScalarMult computes P^k mod p.
func (g *ModPGroup) ScalarMult(p Element, k *big.Int) Element {
	e := p.(*modpElement)
	kk := new(big.Int).Mod(k, g.n)
	return g.elem(new(big.Int).Exp(e.v, kk, g.p))
}

// Add computes P*Q mod p; multiplication is the group operation here.
func (g *ModPGroup) Add(p, q Element) Element {
	a := p.(*modpElement)
	b := q.(*modpElement)
	v := new(big.Int).Mul(a.v, b.v)
	return g.elem(v.Mod(v, g.p))
}

// Decode parses a fixed-width big-endian residue. It rejects values outside
// (1, p) and residues that are not in the order-n subgroup, so small-subgroup
// and identity elements never reach the verifier.
func (g *ModPGroup) Decode(b []byte) (Element, error) {
	if len(b) != g.byteLen {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidElement, g.byteLen, len(b))
	}
	v := new(big.Int).SetBytes(b)
	one := big.NewInt(1)
	if v.Cmp(one) <= 0 || v.Cmp(g.p) >= 0 {
		return nil, fmt.Errorf("%w: residue out of range", ErrInvalidElement)
	}
	if new(big.Int).Exp(v, g.n, g.p).Cmp(one) != 0 {
		return nil, fmt.Errorf("%w: residue outside the order-n subgroup", ErrInvalidElement)
	}
	return g.elem(v), nil
}

// RandomScalar implements Group.
func (g *ModPGroup) RandomScalar() (*big.Int, error) {
	return randomScalar(g.n)
}
