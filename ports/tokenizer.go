package ports

import "github.com/zkvault/zkvault/core"

// Tokenizer converts sessions to bearer tokens and tokens back to session
// store lookup keys. The opaque implementation uses the random token itself
// as the key; the JWT implementation embeds the session in signed claims and
// keys the store by JTI so revocation stays server-side.
type Tokenizer interface {
	// Issue returns the bearer token string for a session.
	Issue(session *core.Session) (string, error)

	// Parse validates the token shape and returns the session store key.
	// It returns core.ErrUnauthenticated for tokens it cannot accept.
	Parse(token string) (string, error)
}
