package group

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModPGroupRejectsBadParameters(t *testing.T) {
	cases := []struct {
		name    string
		p, g, n int64
	}{
		{"composite modulus", 1018, 2, 1017},
		{"generator one", 1019, 1, 1018},
		{"generator out of range", 1019, 1020, 1018},
		{"order does not divide p-1", 1019, 2, 1000},
		{"wrong generator order", 1019, 2, 509},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewModPGroup("bad", big.NewInt(tc.p), big.NewInt(tc.g), big.NewInt(tc.n))
			assert.ErrorIs(t, err, ErrInvalidParameters)
		})
	}
}

func TestDemo1019Arithmetic(t *testing.T) {
	g := Demo1019()

	require.Equal(t, int64(1018), g.Order().Int64())

	// g^3 * g^4 == g^7
	left := g.Add(g.ScalarBaseMult(big.NewInt(3)), g.ScalarBaseMult(big.NewInt(4)))
	right := g.ScalarBaseMult(big.NewInt(7))
	assert.True(t, left.Equal(right))

	// 2^7 mod 1019 = 128
	assert.Equal(t, []byte{0x00, 0x80}, right.Bytes())

	// Scalars reduce mod the order: g^(n+5) == g^5
	wrapped := g.ScalarBaseMult(big.NewInt(1018 + 5))
	assert.True(t, wrapped.Equal(g.ScalarBaseMult(big.NewInt(5))))
}

func TestModPDecodeRoundTrip(t *testing.T) {
	g := Demo1019()

	k, err := g.RandomScalar()
	require.NoError(t, err)
	p := g.ScalarBaseMult(k)
	if p.IsIdentity() {
		t.Skip("drew the zero scalar")
	}

	decoded, err := g.Decode(p.Bytes())
	require.NoError(t, err)
	assert.True(t, decoded.Equal(p))
}

func TestModPDecodeRejections(t *testing.T) {
	g := Demo1019()

	cases := []struct {
		name string
		b    []byte
	}{
		{"empty", nil},
		{"wrong length", []byte{0x02}},
		{"too long", []byte{0x00, 0x00, 0x02}},
		{"zero", []byte{0x00, 0x00}},
		{"identity", []byte{0x00, 0x01}},
		{"equal to p", big.NewInt(1019).FillBytes(make([]byte, 2))},
		{"above p", big.NewInt(4000).FillBytes(make([]byte, 2))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := g.Decode(tc.b)
			assert.ErrorIs(t, err, ErrInvalidElement)
		})
	}
}

func TestModP2048RejectsNonSubgroupElement(t *testing.T) {
	g := ModP2048()

	// For a safe prime p = 3 mod 4, p-1 is a quadratic non-residue, so it
	// lies outside the order-q subgroup of squares.
	pMinusOne := new(big.Int).Sub(g.p, big.NewInt(1))
	_, err := g.Decode(pMinusOne.FillBytes(make([]byte, 256)))
	assert.ErrorIs(t, err, ErrInvalidElement)

	// The generator itself decodes fine.
	_, err = g.Decode(g.Generator().Bytes())
	assert.NoError(t, err)
}

func TestModP2048SchnorrRelation(t *testing.T) {
	g := ModP2048()

	x, err := g.RandomScalar()
	require.NoError(t, err)
	k, err := g.RandomScalar()
	require.NoError(t, err)
	c, err := g.RandomScalar()
	require.NoError(t, err)

	y := g.ScalarBaseMult(x)
	r := g.ScalarBaseMult(k)

	s := new(big.Int).Mul(c, x)
	s.Add(s, k)
	s.Mod(s, g.Order())

	left := g.ScalarBaseMult(s)
	right := g.Add(r, g.ScalarMult(y, c))
	assert.True(t, left.Equal(right))
}
