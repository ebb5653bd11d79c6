// Package http exposes the authentication engine over gin. The transport
// only parses and encodes; every decision belongs to the service.
package http

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"github.com/zkvault/zkvault/core"
	"github.com/zkvault/zkvault/group"
	"github.com/zkvault/zkvault/service"
)

// AuthHandlers contains the HTTP handlers for auth and vault endpoints.
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates the handlers.
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{authService: authService}
}

// Register handles account registration.
func (h *AuthHandlers) Register(c *gin.Context) {
	var req struct {
		Username  string          `json:"username" binding:"required"`
		PublicKey string          `json:"public_y" binding:"required"`
		Salt      string          `json:"salt_kdf"`
		KDF       core.KDFParams  `json:"kdf_params"`
		VaultBlob json.RawMessage `json:"vault_blob"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	publicKey, err := hex.DecodeString(req.PublicKey)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "public_y is not valid hex"})
		return
	}

	identity, err := h.authService.Register(c.Request.Context(), service.RegisterRequest{
		Username:  req.Username,
		PublicKey: publicKey,
		Salt:      req.Salt,
		KDF:       req.KDF,
		VaultBlob: req.VaultBlob,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"username":   identity.Username,
		"created_at": identity.CreatedAt,
	})
}

// Challenge handles challenge issuance.
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	challenge, err := h.authService.CreateChallenge(c.Request.Context(), req.Username)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenge_id": challenge.ID,
		"c":            hex.EncodeToString(challenge.C.Bytes()),
		"expires_at":   challenge.ExpiresAt,
	})
}

// Verify handles proof submission and, on success, session issuance.
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req struct {
		Username    string `json:"username" binding:"required"`
		ChallengeID string `json:"challenge_id" binding:"required"`
		R           string `json:"R" binding:"required"`
		S           string `json:"s" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	rBytes, err := hex.DecodeString(req.R)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "R is not valid hex"})
		return
	}
	sBytes, err := hex.DecodeString(req.S)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "s is not valid hex"})
		return
	}

	token, session, err := h.authService.Verify(c.Request.Context(), service.VerifyRequest{
		Username:    req.Username,
		ChallengeID: req.ChallengeID,
		R:           rBytes,
		S:           sBytes,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := gin.H{
		"session_token": token,
		"token_type":    "Bearer",
	}
	if !session.ExpiresAt.IsZero() {
		resp["expires_at"] = session.ExpiresAt
	}
	c.JSON(http.StatusOK, resp)
}

// Logout revokes the caller's session. Revoking an unknown token still
// reports success.
func (h *AuthHandlers) Logout(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization header is required"})
		return
	}
	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the authenticated username.
func (h *AuthHandlers) Me(c *gin.Context) {
	username, exists := c.Get(ctxUsername)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user not found in context"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": username})
}

// GetVault returns the caller's encrypted vault blob.
func (h *AuthHandlers) GetVault(c *gin.Context) {
	record, err := h.authService.GetVault(c.Request.Context(), c.GetString(ctxToken))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if record == nil {
		c.JSON(http.StatusOK, gin.H{"vault": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"vault": record})
}

// PutVault stores a new encrypted vault blob for the caller.
func (h *AuthHandlers) PutVault(c *gin.Context) {
	var req struct {
		VaultBlob json.RawMessage `json:"vault_blob" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	record, err := h.authService.PutVault(c.Request.Context(), c.GetString(ctxToken), req.VaultBlob)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vault": record})
}

// writeError maps service errors onto status codes. Unexpected errors go to
// Sentry and come back as a plain 500.
func (h *AuthHandlers) writeError(c *gin.Context, err error) {
	var lockout *core.LockoutError
	if errors.As(err, &lockout) {
		retryAfter := int(time.Until(lockout.Until).Seconds()) + 1
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":        "account locked out",
			"locked_until": lockout.Until,
		})
		return
	}

	switch {
	case errors.Is(err, core.ErrUnknownUser):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown user"})
	case errors.Is(err, core.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
	case errors.Is(err, core.ErrChallengeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "challenge not found"})
	case errors.Is(err, core.ErrChallengeExpired):
		c.JSON(http.StatusGone, gin.H{"error": "challenge has expired"})
	case errors.Is(err, core.ErrChallengeUsed):
		c.JSON(http.StatusConflict, gin.H{"error": "challenge already used"})
	case errors.Is(err, core.ErrMalformedProof), errors.Is(err, group.ErrInvalidElement), errors.Is(err, core.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request"})
	case errors.Is(err, core.ErrInvalidProof):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid proof"})
	case errors.Is(err, core.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	default:
		sentry.CaptureException(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
