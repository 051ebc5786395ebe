// Package userinfo normalizes the identity payload returned by the
// user-info endpoint into the canonical session profile.
package userinfo

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	autherrors "github.com/adminsuite/go-session-client/internal/errors"
	"github.com/adminsuite/go-session-client/session"
)

// DefaultHomePath is assigned to profiles resolved from the server, which
// carries no home path of its own.
const DefaultHomePath = "/"

// DegradedHomePath is assigned to profiles synthesized after a failed
// identity lookup.
const DegradedHomePath = "/dashboard/analysis"

// Transport fetches the raw identity payload for the current session.
type Transport interface {
	UserInfo(ctx context.Context) (json.RawMessage, error)
}

// Resolver converts identity payloads into session.UserProfile values. It
// tolerates missing fields and falls back to a degraded profile when the
// lookup fails but a stored access token still exists.
type Resolver struct {
	api    Transport
	tokens session.AccessStore
	log    zerolog.Logger
}

// Option defines a function type to modify the Resolver instance.
type Option func(*Resolver)

// WithLogger sets the resolver's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Resolver) {
		r.log = log
	}
}

// New initializes a Resolver with required dependencies.
func New(api Transport, tokens session.AccessStore, options ...Option) (*Resolver, error) {
	if api == nil {
		return nil, errors.New("[userinfo.New] transport is required")
	}
	if tokens == nil {
		return nil, errors.New("[userinfo.New] access store is required")
	}

	resolver := &Resolver{
		api:    api,
		tokens: tokens,
		log:    zerolog.Nop(),
	}
	for _, opt := range options {
		opt(resolver)
	}
	return resolver, nil
}

// The user-info endpoint answers in one of two shapes: a wrapped envelope
// where code 0 marks success and the identity lives in data, or a flat OIDC
// claims object. The discriminant is the presence of a zero code field with
// a non-empty data member.
type envelope struct {
	Code    *int            `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type identityClaims struct {
	Sub               string   `json:"sub"`
	PreferredUsername string   `json:"preferred_username"`
	Name              string   `json:"name"`
	Picture           string   `json:"picture"`
	Roles             []string `json:"roles"`
}

// Resolve fetches and normalizes the identity for the current session.
//
// A transport failure with a stored access token degrades into a synthetic
// admin profile rather than failing the session: the credentials were
// already proven valid, only the secondary lookup broke. With no token, an
// empty payload, or an identity without a subject, resolution is a hard
// failure signalled by ErrEmptyUserInfo.
func (r *Resolver) Resolve(ctx context.Context) (*session.UserProfile, error) {
	raw, err := r.api.UserInfo(ctx)
	if err != nil {
		token := r.tokens.Token()
		if token.Empty() {
			// No session to degrade into.
			return nil, autherrors.Wrapf(autherrors.ErrEmptyUserInfo, "fetch failed without a stored token (%v)", err)
		}
		r.log.Debug().Err(err).Msg("user info fetch failed, degrading profile")
		return session.DegradedProfile("", DegradedHomePath, token.AccessToken), nil
	}

	if emptyPayload(raw) {
		return nil, autherrors.ErrEmptyUserInfo
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrap(err, "[Resolver.Resolve] decode payload")
	}

	var claims identityClaims
	if env.Code != nil && *env.Code == 0 && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &claims); err != nil {
			return nil, errors.Wrap(err, "[Resolver.Resolve] decode envelope data")
		}
	} else {
		if err := json.Unmarshal(raw, &claims); err != nil {
			return nil, errors.Wrap(err, "[Resolver.Resolve] decode flat payload")
		}
	}

	if claims.Sub == "" && claims.PreferredUsername == "" {
		return nil, autherrors.ErrEmptyUserInfo
	}

	roles := claims.Roles
	if roles == nil {
		roles = []string{}
	}

	return &session.UserProfile{
		UserID:      claims.Sub,
		Username:    claims.PreferredUsername,
		DisplayName: firstNonEmpty(claims.PreferredUsername, claims.Name),
		AvatarURL:   claims.Picture,
		HomePath:    DefaultHomePath,
		Roles:       roles,
		Token:       r.tokens.Token().AccessToken,
	}, nil
}

func emptyPayload(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
