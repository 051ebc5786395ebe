// Package authflow sequences the authentication session lifecycle: login
// orchestration (token acquisition, identity resolution, store population,
// navigation) and logout/session reset.
package authflow

import (
	"context"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	autherrors "github.com/adminsuite/go-session-client/internal/errors"
	"github.com/adminsuite/go-session-client/session"
	"github.com/adminsuite/go-session-client/transport"
)

const (
	// DefaultHomePath is the navigation target when the resolved profile
	// carries none of its own.
	DefaultHomePath = "/analytics"

	// DefaultLoginPath is the login surface the logout flow returns to.
	DefaultLoginPath = "/auth/login"

	defaultFallbackDelay = 500 * time.Millisecond
)

// TokenAPI is the transport surface the orchestrator consumes.
type TokenAPI interface {
	Token(ctx context.Context, creds transport.Credentials) (*transport.TokenResponse, error)
	Revoke(ctx context.Context) error
	AccessCodes(ctx context.Context) ([]string, error)
}

// ProfileResolver converts the server identity into a session profile.
type ProfileResolver interface {
	Resolve(ctx context.Context) (*session.UserProfile, error)
}

// Stores holds the session-scoped state the orchestrator owns. The stores
// are passed in explicitly; the orchestrator never reaches for ambient
// state.
type Stores struct {
	Access session.AccessStore
	User   session.UserStore
}

// Manager drives login and logout against the injected capabilities.
type Manager struct {
	stores        Stores
	api           TokenAPI
	resolver      ProfileResolver
	nav           Navigator
	notify        Notifier
	log           zerolog.Logger
	nowTime       func() time.Time
	fallbackDelay time.Duration
	homePath      string
	loginPath     string
	busy          atomic.Bool
}

// Option defines a function type to modify the Manager instance.
type Option func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithLogger sets the orchestrator's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// WithFallbackDelay overrides the delay before the post-navigation guard
// re-checks the current path.
func WithFallbackDelay(delay time.Duration) Option {
	return func(m *Manager) {
		m.fallbackDelay = delay
	}
}

// WithHomePath overrides the default post-login navigation target.
func WithHomePath(path string) Option {
	return func(m *Manager) {
		m.homePath = path
	}
}

// WithLoginPath overrides the login surface path used by Logout.
func WithLoginPath(path string) Option {
	return func(m *Manager) {
		m.loginPath = path
	}
}

// NewManager initializes a Manager with required dependencies.
func NewManager(stores Stores, api TokenAPI, resolver ProfileResolver, nav Navigator, notify Notifier, options ...Option) (*Manager, error) {
	if stores.Access == nil {
		return nil, errors.New("[NewManager] access store is required")
	}
	if stores.User == nil {
		return nil, errors.New("[NewManager] user store is required")
	}
	if api == nil {
		return nil, errors.New("[NewManager] token API is required")
	}
	if resolver == nil {
		return nil, errors.New("[NewManager] profile resolver is required")
	}
	if nav == nil {
		return nil, errors.New("[NewManager] navigator is required")
	}
	if notify == nil {
		return nil, errors.New("[NewManager] notifier is required")
	}

	manager := &Manager{
		stores:        stores,
		api:           api,
		resolver:      resolver,
		nav:           nav,
		notify:        notify,
		log:           zerolog.Nop(),
		nowTime:       time.Now,
		fallbackDelay: defaultFallbackDelay,
		homePath:      DefaultHomePath,
		loginPath:     DefaultLoginPath,
	}

	for _, opt := range options {
		opt(manager)
	}

	return manager, nil
}

// LoginLoading reports whether a login attempt is currently in flight.
func (m *Manager) LoginLoading() bool {
	return m.busy.Load()
}

// Login drives the full authentication sequence: token exchange, joined
// identity + access-code fetch, store population, and the navigation
// decision. It never returns an error; every terminal outcome is reported
// through exactly one notification, and failures yield a nil profile.
//
// A second Login while one is in flight is rejected outright rather than
// interleaved, so two attempts can never race on the store writes.
//
// onSuccess, when non-nil, owns post-login navigation.
func (m *Manager) Login(ctx context.Context, creds transport.Credentials, onSuccess func(context.Context) error) *session.UserProfile {
	if !m.busy.CompareAndSwap(false, true) {
		m.notify.Error("login failed", autherrors.ErrLoginInFlight.Error())
		return nil
	}
	defer m.busy.Store(false)

	log := m.log.With().
		Str("attempt_id", uuid.New().String()).
		Str("username", creds.Username).
		Logger()

	result, err := m.api.Token(ctx, creds)
	if err != nil {
		log.Error().Err(err).Msg("token exchange failed")
		m.notify.Error("login failed", err.Error())
		return nil
	}
	if !result.HasAccessToken() {
		log.Error().Msg("token response missing access_token")
		m.notify.Error("login failed", "server response missing access token")
		return nil
	}

	tokens := session.NewTokenSet(result.AccessToken, result.TokenType, result.RefreshToken, result.ExpiresIn, m.nowTime())
	m.stores.Access.SetToken(tokens)
	log.Debug().Time("expires_at", tokens.ExpiresAt).Msg("access token stored")

	var (
		profile *session.UserProfile
		codes   []string
	)
	// A join, not a race: both fetches complete before the continuation.
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		resolved, err := m.resolver.Resolve(groupCtx)
		if err != nil {
			if autherrors.Is(err, autherrors.ErrEmptyUserInfo) {
				// No identity to work with; the degraded-profile
				// synthesis below takes over.
				return nil
			}
			return errors.Wrap(err, "resolve user info")
		}
		profile = resolved
		return nil
	})
	group.Go(func() error {
		fetched, err := m.api.AccessCodes(groupCtx)
		if err != nil {
			return errors.Wrap(err, "fetch access codes")
		}
		codes = fetched
		return nil
	})
	if err := group.Wait(); err != nil {
		// The token is valid; do not strand the user on the login page.
		log.Error().Err(err).Msg("post-login fetch failed")
		m.notify.Error(
			"login succeeded but user info fetch failed",
			"you are signed in, but your user information could not be loaded; some features may be unavailable",
		)
		m.completeNavigation(ctx, onSuccess, m.homePath, log)
		return nil
	}

	if profile == nil {
		profile = session.DegradedProfile(creds.Username, m.homePath, tokens.AccessToken)
	}

	if profile.Degraded {
		// The fetched access codes are not stored for a degraded profile:
		// they belong to an identity the lookup could not confirm.
		m.stores.User.SetUserInfo(profile)
		log.Warn().Msg("user info degraded, stored fallback profile")
		m.notify.Warning(
			"limited user info",
			"signed in with a default profile; some features may be unavailable",
		)
		m.finishLogin(ctx, onSuccess, profile, log)
		return profile
	}

	m.stores.User.SetUserInfo(profile)
	m.stores.Access.SetAccessCodes(codes)
	m.finishLogin(ctx, onSuccess, profile, log)
	m.notify.Success("login successful", "welcome back: "+displayName(profile))
	log.Info().Str("user_id", profile.UserID).Msg("login complete")
	return profile
}

// finishLogin applies the post-population navigation decision. A login that
// renews an expired session clears the flag and stays on the current page;
// a fresh login hands navigation to the callback or the router.
func (m *Manager) finishLogin(ctx context.Context, onSuccess func(context.Context) error, profile *session.UserProfile, log zerolog.Logger) {
	if m.stores.Access.LoginExpired() {
		m.stores.Access.SetLoginExpired(false)
		log.Debug().Msg("session renewed, skipping navigation")
		return
	}

	target := profile.HomePath
	if target == "" {
		target = m.homePath
	}
	m.completeNavigation(ctx, onSuccess, target, log)
}

func (m *Manager) completeNavigation(ctx context.Context, onSuccess func(context.Context) error, target string, log zerolog.Logger) {
	if onSuccess != nil {
		if err := onSuccess(ctx); err != nil {
			log.Error().Err(err).Msg("success callback failed")
		}
		return
	}
	if err := m.nav.Replace(target, nil); err != nil {
		log.Error().Err(err).Str("target", target).Msg("navigation failed")
	}
	m.scheduleNavigationFallback(ctx, target, log)
}

// scheduleNavigationFallback guards against a route guard bouncing the user
// back to the login page after Replace has returned. The check re-reads the
// current path before acting, so it is a no-op once navigation has landed,
// and it is cancelled with the login context.
func (m *Manager) scheduleNavigationFallback(ctx context.Context, target string, log zerolog.Logger) {
	timer := time.NewTimer(m.fallbackDelay)
	go func() {
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if !strings.Contains(m.nav.CurrentPath(), "login") {
			return
		}
		log.Warn().Str("target", target).Msg("still on the login page after navigation, forcing hard redirect")
		m.nav.ForceAssign(target)
	}()
}

// Logout revokes the session and resets all local state. Revocation is
// best-effort: logout always completes locally regardless of server
// reachability. When redirect is true the current full path is attached so
// the login surface can return the user afterwards.
func (m *Manager) Logout(ctx context.Context, redirect bool) {
	if err := m.api.Revoke(ctx); err != nil {
		// The one place a revocation failure is intentionally dropped.
		m.log.Debug().Err(err).Msg("token revocation failed, continuing local logout")
	}

	currentPath := m.nav.CurrentFullPath()
	session.ResetAll(m.stores.Access, m.stores.User)
	m.stores.Access.SetLoginExpired(false)

	query := url.Values{}
	if redirect {
		query.Set("redirect", currentPath)
	}
	if err := m.nav.Replace(m.loginPath, query); err != nil {
		m.log.Error().Err(err).Msg("navigation to login surface failed")
	}
}

// FetchUserInfo re-resolves the profile and stores it when present. Callers
// use it to recover a session holding a token but no profile. An absent
// identity is not an error: both returns are nil.
func (m *Manager) FetchUserInfo(ctx context.Context) (*session.UserProfile, error) {
	profile, err := m.resolver.Resolve(ctx)
	if err != nil {
		if autherrors.Is(err, autherrors.ErrEmptyUserInfo) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "[Manager.FetchUserInfo] resolve")
	}
	if profile != nil {
		m.stores.User.SetUserInfo(profile)
	}
	return profile, nil
}

func displayName(profile *session.UserProfile) string {
	if profile.DisplayName != "" {
		return profile.DisplayName
	}
	return profile.Username
}
