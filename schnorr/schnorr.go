// Package schnorr implements the verification side of the Schnorr
// identification protocol over any group.Group: given a registered public key
// Y = x*G, a prover who knows x commits to R = k*G and answers a challenge c
// with s = k + c*x mod n. The verifier accepts iff s*G == R + c*Y.
package schnorr

import (
	"crypto/sha256"
	"math/big"

	"github.com/zkvault/zkvault/group"
)

// bindDomain separates challenge-binding hashes from any other use of
// SHA-256 over the same inputs.
const bindDomain = "zkvault/1/bind"

// Verify checks s*G == R + c*Y in the given group. Y and R must already be
// validated elements; c and s are scalars reduced mod the group order by the
// group arithmetic itself.
func Verify(g group.Group, y, r group.Element, c, s *big.Int) bool {
	left := g.ScalarBaseMult(s)
	right := g.Add(r, g.ScalarMult(y, c))
	return left.Equal(right)
}

// BindChallenge derives the effective challenge c' = H(domain || c || R || Y)
// mod n. Binding the server's random value to the specific commitment and
// public key removes any ambiguity about which commitment a challenge was
// answered for.
func BindChallenge(g group.Group, c *big.Int, r, y group.Element) *big.Int {
	width := (g.Order().BitLen() + 7) / 8
	h := sha256.New()
	h.Write([]byte(bindDomain))
	h.Write(c.FillBytes(make([]byte, width)))
	h.Write(r.Bytes())
	h.Write(y.Bytes())
	bound := new(big.Int).SetBytes(h.Sum(nil))
	return bound.Mod(bound, g.Order())
}
