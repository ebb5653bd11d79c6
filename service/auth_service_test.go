package service

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkvault/zkvault/adapters/directory"
	"github.com/zkvault/zkvault/adapters/store"
	"github.com/zkvault/zkvault/adapters/tokenizer"
	"github.com/zkvault/zkvault/adapters/vault"
	"github.com/zkvault/zkvault/core"
	"github.com/zkvault/zkvault/group"
	"github.com/zkvault/zkvault/schnorr"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeEvents struct {
	mu       sync.Mutex
	logins   []string
	lockouts []string
	logouts  []string
}

func (f *fakeEvents) PublishLogin(ctx context.Context, username, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins = append(f.logins, username)
	return nil
}

func (f *fakeEvents) PublishLockout(ctx context.Context, username string, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lockouts = append(f.lockouts, username)
	return nil
}

func (f *fakeEvents) PublishLogout(ctx context.Context, username, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts = append(f.logouts, username)
	return nil
}

type testEnv struct {
	svc      *AuthService
	grp      group.Group
	clock    *fakeClock
	attempts *store.MemoryAttemptStore
	events   *fakeEvents
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()
	grp := group.Demo1019()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	attempts := store.NewMemoryAttemptStore()
	events := &fakeEvents{}

	cfg := Config{
		Group:      grp,
		Directory:  directory.NewMemoryDirectory(),
		Vault:      vault.NewMemoryVault(),
		Challenges: store.NewMemoryChallengeStore(),
		Sessions:   store.NewMemorySessionStore(),
		Attempts:   attempts,
		Tokenizer:  tokenizer.NewOpaqueTokenizer(),
		Events:     events,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	svc := NewAuthService(cfg)
	svc.now = clock.Now
	svc.guard.now = clock.Now
	svc.sessions.now = clock.Now

	return &testEnv{svc: svc, grp: grp, clock: clock, attempts: attempts, events: events}
}

// register creates an account whose secret is x and returns the public key.
func (e *testEnv) register(t *testing.T, username string, x int64) group.Element {
	t.Helper()
	y := e.grp.ScalarBaseMult(big.NewInt(x))
	_, err := e.svc.Register(context.Background(), RegisterRequest{
		Username:  username,
		PublicKey: y.Bytes(),
		Salt:      "c2FsdA",
		KDF:       core.KDFParams{Alg: "argon2id", MemKiB: 65536, Iterations: 3, Parallelism: 1},
	})
	require.NoError(t, err)
	return y
}

// prove builds an honest proof for the challenge using secret x and nonce k.
func (e *testEnv) prove(t *testing.T, username string, challenge *core.Challenge, x, k int64, bound bool) VerifyRequest {
	t.Helper()
	n := e.grp.Order()
	r := e.grp.ScalarBaseMult(big.NewInt(k))
	y := e.grp.ScalarBaseMult(big.NewInt(x))

	c := challenge.C
	if bound {
		c = schnorr.BindChallenge(e.grp, challenge.C, r, y)
	}

	s := new(big.Int).Mul(c, big.NewInt(x))
	s.Add(s, big.NewInt(k))
	s.Mod(s, n)
	sBytes := s.Bytes()
	if len(sBytes) == 0 {
		sBytes = []byte{0}
	}

	return VerifyRequest{
		Username:    username,
		ChallengeID: challenge.ID,
		R:           r.Bytes(),
		S:           sBytes,
	}
}

func TestVerifyDemoFlow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// Secret x=7, commitment nonce k=3 over the small demo group.
	env.register(t, "alice", 7)

	challenge, err := env.svc.CreateChallenge(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", challenge.Username)
	assert.True(t, challenge.C.Sign() >= 0)

	req := env.prove(t, "alice", challenge, 7, 3, false)
	token, session, err := env.svc.Verify(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "alice", session.Username)
	assert.Equal(t, []string{"alice"}, env.events.logins)

	// Replaying the exact same proof hits the spent challenge.
	_, _, err = env.svc.Verify(ctx, req)
	assert.ErrorIs(t, err, core.ErrChallengeUsed)
}

func TestVerifyWithChallengeBinding(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, func(cfg *Config) { cfg.ChallengeBinding = true })

	env.register(t, "alice", 7)

	challenge, err := env.svc.CreateChallenge(ctx, "alice")
	require.NoError(t, err)

	// A response built against the raw c no longer verifies.
	raw := env.prove(t, "alice", challenge, 7, 3, false)
	bound := env.prove(t, "alice", challenge, 7, 3, true)
	if string(raw.S) != string(bound.S) {
		_, _, err = env.svc.Verify(ctx, raw)
		assert.ErrorIs(t, err, core.ErrInvalidProof)

		challenge, err = env.svc.CreateChallenge(ctx, "alice")
		require.NoError(t, err)
		bound = env.prove(t, "alice", challenge, 7, 3, true)
	}

	_, session, err := env.svc.Verify(ctx, bound)
	require.NoError(t, err)
	assert.Equal(t, "alice", session.Username)
}

func TestVerifyInvalidProofBurnsChallenge(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.register(t, "alice", 7)

	challenge, err := env.svc.CreateChallenge(ctx, "alice")
	require.NoError(t, err)

	// Well-formed but wrong: response shifted by one.
	req := env.prove(t, "alice", challenge, 7, 3, false)
	s := new(big.Int).SetBytes(req.S)
	s.Add(s, big.NewInt(1))
	s.Mod(s, env.grp.Order())
	req.S = s.Bytes()
	if len(req.S) == 0 {
		req.S = []byte{0}
	}

	_, _, err = env.svc.Verify(ctx, req)
	assert.ErrorIs(t, err, core.ErrInvalidProof)

	record, err := env.attempts.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, record.FailedAttempts)

	// The challenge is spent despite the failure; the honest retry needs a
	// fresh one.
	honest := env.prove(t, "alice", challenge, 7, 3, false)
	_, _, err = env.svc.Verify(ctx, honest)
	assert.ErrorIs(t, err, core.ErrChallengeUsed)
}

func TestVerifyMalformedProofLeavesChallengeAlive(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.register(t, "alice", 7)

	challenge, err := env.svc.CreateChallenge(ctx, "alice")
	require.NoError(t, err)

	// Garbage commitment bytes.
	_, _, err = env.svc.Verify(ctx, VerifyRequest{
		Username:    "alice",
		ChallengeID: challenge.ID,
		R:           []byte{0xff, 0xff, 0xff},
		S:           []byte{0x01},
	})
	assert.ErrorIs(t, err, core.ErrMalformedProof)

	// Response scalar out of range.
	honest := env.prove(t, "alice", challenge, 7, 3, false)
	tooBig := new(big.Int).Set(env.grp.Order())
	_, _, err = env.svc.Verify(ctx, VerifyRequest{
		Username:    "alice",
		ChallengeID: challenge.ID,
		R:           honest.R,
		S:           tooBig.Bytes(),
	})
	assert.ErrorIs(t, err, core.ErrMalformedProof)

	// Neither attempt burned the challenge or counted toward lockout.
	record, err := env.attempts.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, record.FailedAttempts)

	_, _, err = env.svc.Verify(ctx, honest)
	assert.NoError(t, err)
}

func TestLockout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, func(cfg *Config) {
		cfg.MaxAttempts = 3
		cfg.BlockDuration = 10 * time.Minute
		// Challenges must outlive the block so the post-unblock replay
		// below exercises the same challenge, not a fresh one.
		cfg.ChallengeTTL = 30 * time.Minute
	})

	env.register(t, "alice", 7)

	badVerify := func() error {
		challenge, err := env.svc.CreateChallenge(ctx, "alice")
		require.NoError(t, err)
		req := env.prove(t, "alice", challenge, 7, 3, false)
		s := new(big.Int).SetBytes(req.S)
		s.Add(s, big.NewInt(1))
		s.Mod(s, env.grp.Order())
		req.S = s.Bytes()
		if len(req.S) == 0 {
			req.S = []byte{0}
		}
		_, _, err = env.svc.Verify(ctx, req)
		return err
	}

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, badVerify(), core.ErrInvalidProof)
	}
	assert.Equal(t, []string{"alice"}, env.events.lockouts)

	// While blocked, nothing past the guard runs: the challenge survives.
	challenge, err := env.svc.CreateChallenge(ctx, "alice")
	require.NoError(t, err)
	req := env.prove(t, "alice", challenge, 7, 3, false)
	_, _, err = env.svc.Verify(ctx, req)
	assert.ErrorIs(t, err, core.ErrLockedOut)
	var lockout *core.LockoutError
	require.ErrorAs(t, err, &lockout)
	assert.Equal(t, env.clock.Now().Add(10*time.Minute), lockout.Until)

	// Other usernames are unaffected.
	env.register(t, "bob", 11)
	bobChallenge, err := env.svc.CreateChallenge(ctx, "bob")
	require.NoError(t, err)
	_, _, err = env.svc.Verify(ctx, env.prove(t, "bob", bobChallenge, 11, 5, false))
	assert.NoError(t, err)

	// Once the window elapses the slate is clean, and the challenge the
	// blocked attempt carried is still consumable: the guard refused it
	// before the store was touched.
	env.clock.Advance(11 * time.Minute)
	_, _, err = env.svc.Verify(ctx, req)
	require.NoError(t, err)

	record, err := env.attempts.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, record.FailedAttempts)
}

func TestChallengeExpiry(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.register(t, "alice", 7)

	challenge, err := env.svc.CreateChallenge(ctx, "alice")
	require.NoError(t, err)
	req := env.prove(t, "alice", challenge, 7, 3, false)

	env.clock.Advance(DefaultChallengeTTL + time.Second)
	_, _, err = env.svc.Verify(ctx, req)
	assert.ErrorIs(t, err, core.ErrChallengeExpired)
}

func TestVerifyUnknownUserAndMismatch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.svc.CreateChallenge(ctx, "ghost")
	assert.ErrorIs(t, err, core.ErrUnknownUser)

	env.register(t, "alice", 7)
	env.register(t, "bob", 11)

	challenge, err := env.svc.CreateChallenge(ctx, "alice")
	require.NoError(t, err)

	// Bob cannot answer a challenge issued to alice.
	req := env.prove(t, "bob", challenge, 11, 5, false)
	_, _, err = env.svc.Verify(ctx, req)
	assert.ErrorIs(t, err, core.ErrChallengeNotFound)

	_, _, err = env.svc.Verify(ctx, VerifyRequest{
		Username:    "ghost",
		ChallengeID: challenge.ID,
		R:           req.R,
		S:           req.S,
	})
	assert.ErrorIs(t, err, core.ErrUnknownUser)

	_, _, err = env.svc.Verify(ctx, VerifyRequest{
		Username:    "alice",
		ChallengeID: "no-such-challenge",
		R:           req.R,
		S:           req.S,
	})
	assert.ErrorIs(t, err, core.ErrChallengeNotFound)
}

func login(t *testing.T, env *testEnv, username string, x int64) string {
	t.Helper()
	challenge, err := env.svc.CreateChallenge(context.Background(), username)
	require.NoError(t, err)
	token, _, err := env.svc.Verify(context.Background(), env.prove(t, username, challenge, x, 3, false))
	require.NoError(t, err)
	return token
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.register(t, "alice", 7)
	token := login(t, env, "alice", 7)

	session, err := env.svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", session.Username)
	assert.True(t, session.ExpiresAt.IsZero())

	require.NoError(t, env.svc.Logout(ctx, token))
	assert.Equal(t, []string{"alice"}, env.events.logouts)

	_, err = env.svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	// Logging out an already-dead token is a no-op.
	require.NoError(t, env.svc.Logout(ctx, token))
	require.NoError(t, env.svc.Logout(ctx, "garbage"))
}

func TestSessionTTL(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, func(cfg *Config) { cfg.SessionTTL = 30 * time.Minute })

	env.register(t, "alice", 7)
	token := login(t, env, "alice", 7)

	env.clock.Advance(29 * time.Minute)
	_, err := env.svc.Authenticate(ctx, token)
	require.NoError(t, err)

	env.clock.Advance(2 * time.Minute)
	_, err = env.svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestVault(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.register(t, "alice", 7)
	token := login(t, env, "alice", 7)

	record, err := env.svc.GetVault(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, record)

	_, err = env.svc.GetVault(ctx, "garbage")
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	_, err = env.svc.PutVault(ctx, token, json.RawMessage(`not json`))
	assert.ErrorIs(t, err, core.ErrInvalidRequest)

	first, err := env.svc.PutVault(ctx, token, json.RawMessage(`{"ciphertext":"AAAA"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	env.clock.Advance(time.Minute)
	second, err := env.svc.PutVault(ctx, token, json.RawMessage(`{"ciphertext":"BBBB"}`))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	got, err := env.svc.GetVault(ctx, token)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ciphertext":"BBBB"}`, string(got.Blob))
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.svc.Register(ctx, RegisterRequest{PublicKey: []byte{0x00, 0x02}})
	assert.ErrorIs(t, err, core.ErrInvalidRequest)

	// The identity element is not a usable public key.
	_, err = env.svc.Register(ctx, RegisterRequest{
		Username:  "alice",
		PublicKey: []byte{0x00, 0x01},
	})
	assert.ErrorIs(t, err, group.ErrInvalidElement)

	identity, err := env.svc.Register(ctx, RegisterRequest{
		Username:  "alice",
		PublicKey: env.grp.ScalarBaseMult(big.NewInt(7)).Bytes(),
		Salt:      "c2FsdA",
		KDF:       core.KDFParams{Alg: "argon2id", MemKiB: 65536, Iterations: 3, Parallelism: 1},
		VaultBlob: json.RawMessage(`{"ciphertext":"AAAA"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "argon2id", identity.KDF.Alg)

	_, err = env.svc.Register(ctx, RegisterRequest{
		Username:  "alice",
		PublicKey: env.grp.ScalarBaseMult(big.NewInt(9)).Bytes(),
	})
	assert.ErrorIs(t, err, core.ErrUserExists)

	// The initial vault blob landed.
	token := login(t, env, "alice", 7)
	record, err := env.svc.GetVault(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.JSONEq(t, `{"ciphertext":"AAAA"}`, string(record.Blob))
}
