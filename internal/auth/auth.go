// Package auth authenticates callers of the match API with bearer tokens,
// checked against a static token or an external HTTP service.
package auth

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/saolsen/gameplay/game"
	"github.com/saolsen/gameplay/games"
)

var (
	// ErrInvalidToken indicates the token is definitively invalid.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrUnavailable indicates the auth service is unreachable or unavailable.
	// Callers may choose to fail open (allow) or fail closed (reject).
	ErrUnavailable = errors.New("auth: unavailable")

	// ErrForbidden means the caller is known but may not start this match.
	ErrForbidden = errors.New("auth: forbidden")
)

// Identity is an account allowed to start matches.
type Identity struct {
	Account string `json:"account"`
	Name    string `json:"name"`
	// Games the account may start; empty means any.
	Games []game.Kind `json:"games,omitempty"`
	// MaxPlayers caps the seats in a match the account starts; zero means
	// no cap beyond the game's own.
	MaxPlayers int `json:"max_players,omitempty"`
}

// Permits reports whether the account may start a match of kind with the
// given number of players. A nil identity, as from NoopValidator, may start
// anything.
func (id *Identity) Permits(kind game.Kind, players int) error {
	if id == nil {
		return nil
	}
	if len(id.Games) > 0 && !slices.Contains(id.Games, kind) {
		return fmt.Errorf("%w: %s may not start %s matches", ErrForbidden, id.Account, kind)
	}
	if id.MaxPlayers > 0 && players > id.MaxPlayers {
		return fmt.Errorf("%w: %s may seat at most %d players", ErrForbidden, id.Account, id.MaxPlayers)
	}
	return nil
}

// Validator validates authentication tokens.
type Validator interface {
	// Validate checks if a token is valid and returns the caller's identity.
	// Returns:
	//   - (*Identity, nil) if token is valid
	//   - (nil, ErrInvalidToken) if token is definitively invalid
	//   - (nil, ErrUnavailable) if auth service is unavailable
	//   - (nil, nil) if auth is disabled (NoopValidator only)
	Validate(ctx context.Context, token string) (*Identity, error)
}

const (
	validateTimeout = 500 * time.Millisecond
	maxResponseSize = 64 << 10
)

// HTTPValidator asks an account service whether a token may start matches.
// The service answers POST {"token": ...} with
//
//	{"valid": true, "account": "acct_1", "name": "alice", "games": ["poker"], "max_players": 6}
//
// or {"valid": false, "error": "expired"}.
type HTTPValidator struct {
	url         string
	client      *http.Client
	adminSecret string
}

// NewHTTPValidator creates a validator that calls an external HTTP endpoint.
func NewHTTPValidator(url string, adminSecret string) *HTTPValidator {
	return &HTTPValidator{
		url:         url,
		adminSecret: adminSecret,
		client:      &http.Client{Timeout: validateTimeout},
	}
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid      bool        `json:"valid"`
	Account    string      `json:"account,omitempty"`
	Name       string      `json:"name,omitempty"`
	Games      []game.Kind `json:"games,omitempty"`
	MaxPlayers int         `json:"max_players,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// identity maps an answer from the account service. A valid answer must
// name an account and only grant games this server plays.
func (r *validateResponse) identity() (*Identity, error) {
	if !r.Valid {
		if r.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidToken, r.Error)
		}
		return nil, ErrInvalidToken
	}
	if r.Account == "" {
		return nil, fmt.Errorf("%w: valid token without an account", ErrUnavailable)
	}
	if r.MaxPlayers < 0 {
		return nil, fmt.Errorf("%w: negative max_players %d", ErrUnavailable, r.MaxPlayers)
	}
	for _, k := range r.Games {
		if _, ok := games.Lookup(k); !ok {
			return nil, fmt.Errorf("%w: grant for unknown game %q", ErrUnavailable, k)
		}
	}
	name := r.Name
	if name == "" {
		name = r.Account
	}
	return &Identity{Account: r.Account, Name: name, Games: r.Games, MaxPlayers: r.MaxPlayers}, nil
}

// statusError classifies a non-200 answer from the account service.
func statusError(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrInvalidToken
	case code == http.StatusTooManyRequests, code >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrUnavailable, code)
	}
}

func (v *HTTPValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	body, err := json.Marshal(validateRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.adminSecret != "" {
		req.Header.Set("X-Admin-Secret", v.adminSecret)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if err := statusError(resp.StatusCode); err != nil {
		return nil, err
	}

	var answer validateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&answer); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrUnavailable, err)
	}
	return answer.identity()
}

// StaticValidator accepts a single shared token.
type StaticValidator struct {
	token []byte
	name  string
}

// NewStaticValidator accepts token and identifies its holder as name.
func NewStaticValidator(token, name string) *StaticValidator {
	return &StaticValidator{token: []byte(token), name: name}
}

func (v *StaticValidator) Validate(_ context.Context, token string) (*Identity, error) {
	if token == "" || subtle.ConstantTimeCompare([]byte(token), v.token) != 1 {
		return nil, ErrInvalidToken
	}
	return &Identity{Account: v.name, Name: v.name}, nil
}

// NoopValidator allows all requests without validation (dev mode).
type NoopValidator struct{}

// NewNoopValidator creates a validator that allows all requests.
func NewNoopValidator() *NoopValidator {
	return &NoopValidator{}
}

func (v *NoopValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	return nil, nil
}
