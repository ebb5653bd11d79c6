// Package service wires the challenge manager, proof verifier, brute-force
// guard and session manager into the authentication engine. No password ever
// reaches this code: login is a Schnorr proof of knowledge of the discrete
// log behind the registered public key.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/zkvault/zkvault/core"
	"github.com/zkvault/zkvault/group"
	"github.com/zkvault/zkvault/observability"
	"github.com/zkvault/zkvault/ports"
	"github.com/zkvault/zkvault/schnorr"
)

// DefaultChallengeTTL is how long an issued challenge stays consumable.
const DefaultChallengeTTL = 2 * time.Minute

// Config assembles an AuthService. Group, Directory, Vault, Challenges,
// Sessions and Tokenizer are required; the rest is optional or defaulted.
type Config struct {
	Group      group.Group
	Directory  ports.IdentityDirectory
	Vault      ports.VaultStore
	Challenges ports.ChallengeStore
	Sessions   ports.SessionStore
	Attempts   ports.AttemptStore
	Tokenizer  ports.Tokenizer

	Events ports.EventPublisher  // optional, nil disables publishing
	Logger *observability.Logger // optional, nil discards

	ChallengeTTL  time.Duration // default 2m
	SessionTTL    time.Duration // 0 means sessions end on logout only
	MaxAttempts   int           // default 5
	BlockDuration time.Duration // default 15m

	// ChallengeBinding selects the canonical verification equation: the
	// effective challenge becomes H(c || R || Y) mod n instead of the
	// server's raw c. Disable only for the legacy demo flow.
	ChallengeBinding bool
}

// AuthService is the authentication engine. It is safe for concurrent use;
// all shared state lives behind the injected stores.
type AuthService struct {
	group      group.Group
	directory  ports.IdentityDirectory
	vault      ports.VaultStore
	challenges ports.ChallengeStore
	sessions   *SessionManager
	guard      *Guard
	events     ports.EventPublisher
	logger     *observability.Logger

	challengeTTL time.Duration
	bind         bool
	now          func() time.Time
}

// NewAuthService creates the engine from its collaborators.
func NewAuthService(cfg Config) *AuthService {
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = DefaultChallengeTTL
	}
	return &AuthService{
		group:        cfg.Group,
		directory:    cfg.Directory,
		vault:        cfg.Vault,
		challenges:   cfg.Challenges,
		sessions:     NewSessionManager(cfg.Sessions, cfg.Tokenizer, cfg.SessionTTL),
		guard:        NewGuard(cfg.Attempts, cfg.MaxAttempts, cfg.BlockDuration),
		events:       cfg.Events,
		logger:       cfg.Logger,
		challengeTTL: cfg.ChallengeTTL,
		bind:         cfg.ChallengeBinding,
		now:          time.Now,
	}
}

// RegisterRequest carries a new account: the encoded public key Y = x*G plus
// the client-side KDF metadata and optional initial vault ciphertext.
type RegisterRequest struct {
	Username  string
	PublicKey []byte
	Salt      string
	KDF       core.KDFParams
	VaultBlob json.RawMessage
}

// Register validates the public key against the group and stores the
// identity. Rejecting the identity element and off-subgroup keys here keeps
// forged-key material out of every later verification.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*core.Identity, error) {
	if req.Username == "" {
		return nil, fmt.Errorf("%w: empty username", core.ErrInvalidRequest)
	}
	if _, err := s.group.Decode(req.PublicKey); err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}

	identity := &core.Identity{
		Username:  req.Username,
		PublicKey: req.PublicKey,
		Salt:      req.Salt,
		KDF:       req.KDF,
		CreatedAt: s.now(),
	}
	if err := s.directory.Create(ctx, identity); err != nil {
		return nil, err
	}

	if len(req.VaultBlob) > 0 {
		record := &core.VaultRecord{
			ID:        uuid.New().String(),
			Blob:      req.VaultBlob,
			CreatedAt: s.now(),
			UpdatedAt: s.now(),
		}
		if _, err := s.vault.Put(ctx, req.Username, record); err != nil {
			return nil, err
		}
	}

	s.logger.Info("user_registered", map[string]any{"username": req.Username, "group": s.group.Name()})
	return identity, nil
}

// CreateChallenge issues a fresh single-use challenge for the username.
// Issuance is the only point where username existence is checked; that keeps
// the UnknownUser signal to one well-defined place.
func (s *AuthService) CreateChallenge(ctx context.Context, username string) (*core.Challenge, error) {
	if _, err := s.directory.Lookup(ctx, username); err != nil {
		return nil, err
	}

	c, err := s.group.RandomScalar()
	if err != nil {
		return nil, fmt.Errorf("draw challenge scalar: %w", err)
	}

	now := s.now()
	challenge := &core.Challenge{
		ID:        uuid.New().String(),
		Username:  username,
		C:         c,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.challengeTTL),
	}
	if err := s.challenges.Save(ctx, challenge); err != nil {
		return nil, err
	}

	s.logger.Info("challenge_issued", map[string]any{"username": username, "challenge_id": challenge.ID})
	return challenge, nil
}

// VerifyRequest carries a proof submission: the commitment R = k*G and the
// response s = k + c*x mod n, both as encoded bytes.
type VerifyRequest struct {
	Username    string
	ChallengeID string
	R           []byte
	S           []byte
}

// Verify runs the Schnorr check against the stored challenge. The stored c is
// never replaced by anything the client sends. A well-formed but false proof
// burns the challenge and counts toward lockout; malformed input does
// neither.
func (s *AuthService) Verify(ctx context.Context, req VerifyRequest) (string, *core.Session, error) {
	if err := s.guard.Check(ctx, req.Username); err != nil {
		return "", nil, err
	}

	identity, err := s.directory.Lookup(ctx, req.Username)
	if err != nil {
		return "", nil, err
	}

	// Peek before decoding so challenge errors surface first, but do not
	// consume yet: malformed submissions must not burn the challenge.
	challenge, err := s.challenges.Get(ctx, req.ChallengeID, s.now())
	if err != nil {
		return "", nil, err
	}
	if challenge.Username != req.Username {
		return "", nil, core.ErrChallengeNotFound
	}

	y, err := s.group.Decode(identity.PublicKey)
	if err != nil {
		return "", nil, fmt.Errorf("%w: stored public key does not decode", core.ErrStoreOperationFailed)
	}
	r, err := s.group.Decode(req.R)
	if err != nil {
		return "", nil, fmt.Errorf("%w: commitment: %v", core.ErrMalformedProof, err)
	}
	respScalar, err := s.parseScalar(req.S)
	if err != nil {
		return "", nil, err
	}

	// The proof is structurally sound, so the challenge is spent now no
	// matter how the equation comes out. A guessed or intercepted response
	// can never be retried against the same challenge.
	challenge, err = s.challenges.Consume(ctx, req.ChallengeID, s.now())
	if err != nil {
		return "", nil, err
	}

	c := challenge.C
	if s.bind {
		c = schnorr.BindChallenge(s.group, challenge.C, r, y)
	}

	if !schnorr.Verify(s.group, y, r, c, respScalar) {
		s.recordFailure(ctx, req.Username, challenge.ID)
		return "", nil, core.ErrInvalidProof
	}

	if err := s.guard.RecordSuccess(ctx, req.Username); err != nil {
		return "", nil, err
	}
	token, session, err := s.sessions.Issue(ctx, req.Username)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("login_succeeded", map[string]any{"username": req.Username, "session_id": session.ID})
	if s.events != nil {
		if err := s.events.PublishLogin(ctx, req.Username, session.ID); err != nil {
			s.logger.Warn("publish_login_failed", map[string]any{"error": err.Error()})
		}
	}
	return token, session, nil
}

func (s *AuthService) recordFailure(ctx context.Context, username, challengeID string) {
	locked, until, err := s.guard.RecordFailure(ctx, username)
	if err != nil {
		s.logger.Error("record_failure_failed", map[string]any{"username": username, "error": err.Error()})
		return
	}
	s.logger.Info("login_failed", map[string]any{"username": username, "challenge_id": challengeID})
	if locked {
		s.logger.Warn("account_locked", map[string]any{"username": username, "until": until})
		if s.events != nil {
			if err := s.events.PublishLockout(ctx, username, until); err != nil {
				s.logger.Warn("publish_lockout_failed", map[string]any{"error": err.Error()})
			}
		}
	}
}

func (s *AuthService) parseScalar(b []byte) (*big.Int, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty response scalar", core.ErrMalformedProof)
	}
	v := new(big.Int).SetBytes(b)
	if v.Cmp(s.group.Order()) >= 0 {
		return nil, fmt.Errorf("%w: response scalar out of range", core.ErrMalformedProof)
	}
	return v, nil
}

// Authenticate resolves a bearer token to its session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*core.Session, error) {
	return s.sessions.Resolve(ctx, token)
}

// Logout revokes the session behind the token. Unknown tokens are a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	session, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, core.ErrUnauthenticated) {
			return nil
		}
		return err
	}
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return err
	}

	s.logger.Info("logout", map[string]any{"username": session.Username, "session_id": session.ID})
	if s.events != nil {
		if err := s.events.PublishLogout(ctx, session.Username, session.ID); err != nil {
			s.logger.Warn("publish_logout_failed", map[string]any{"error": err.Error()})
		}
	}
	return nil
}

// GetVault returns the caller's vault record after resolving the token. The
// blob stays opaque ciphertext end to end.
func (s *AuthService) GetVault(ctx context.Context, token string) (*core.VaultRecord, error) {
	session, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.vault.Get(ctx, session.Username)
}

// PutVault stores a new vault blob for the caller. ID and CreatedAt survive
// across updates; the store applies that merge atomically.
func (s *AuthService) PutVault(ctx context.Context, token string, blob json.RawMessage) (*core.VaultRecord, error) {
	session, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 || !json.Valid(blob) {
		return nil, fmt.Errorf("%w: vault blob is not valid JSON", core.ErrInvalidRequest)
	}

	now := s.now()
	return s.vault.Put(ctx, session.Username, &core.VaultRecord{
		ID:        uuid.New().String(),
		Blob:      blob,
		CreatedAt: now,
		UpdatedAt: now,
	})
}
