// Package tokenizer provides the two bearer token formats: opaque random
// tokens resolved purely server-side, and ES256 JWTs whose JTI keys the
// session store so revocation stays server-side.
package tokenizer

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/zkvault/zkvault/core"
	"github.com/zkvault/zkvault/ports"
)

// opaqueTokenBytes is the entropy of an opaque bearer token.
const opaqueTokenBytes = 32

// OpaqueTokenizer issues random hex tokens. The token carries no meaning
// beyond being the session store key.
type OpaqueTokenizer struct{}

// NewOpaqueTokenizer creates an opaque tokenizer.
func NewOpaqueTokenizer() *OpaqueTokenizer {
	return &OpaqueTokenizer{}
}

// Issue implements ports.Tokenizer.
func (t *OpaqueTokenizer) Issue(session *core.Session) (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Parse implements ports.Tokenizer. The token itself is the lookup key; only
// its shape is checked here, existence is the store's call.
func (t *OpaqueTokenizer) Parse(token string) (string, error) {
	if len(token) != opaqueTokenBytes*2 {
		return "", core.ErrUnauthenticated
	}
	if _, err := hex.DecodeString(token); err != nil {
		return "", core.ErrUnauthenticated
	}
	return token, nil
}

var _ ports.Tokenizer = (*OpaqueTokenizer)(nil)
