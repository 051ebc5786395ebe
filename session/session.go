package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Sentinel values used when identity resolution fails but a valid access
// token exists. A profile carrying these is marked Degraded so downstream
// consumers can distinguish it from a verified identity.
const (
	DegradedUserID      = "unknown"
	DegradedDisplayName = "Admin User"
)

// DegradedRoles is the role set granted to a degraded profile.
var DegradedRoles = []string{"Admin"}

// TokenSet holds the bearer credentials for the current session.
// It is written by the login orchestrator when a token is issued, renewed by
// the transport's refresh path, and destroyed on logout.
type TokenSet struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	ExpiresAt    time.Time
}

// NewTokenSet builds a TokenSet from a token endpoint response. Expiry is
// issuedAt + expiresIn seconds; when the server omits expires_in the JWT exp
// claim is used instead (parsed without signature verification, since the
// client has no key material and only needs the expiry hint).
func NewTokenSet(accessToken, tokenType, refreshToken string, expiresIn int, issuedAt time.Time) TokenSet {
	ts := TokenSet{
		AccessToken:  accessToken,
		TokenType:    tokenType,
		RefreshToken: refreshToken,
	}
	if expiresIn > 0 {
		ts.ExpiresAt = issuedAt.Add(time.Duration(expiresIn) * time.Second)
	} else {
		ts.ExpiresAt = jwtExpiry(accessToken)
	}
	return ts
}

// Empty reports whether no access token is held.
func (ts TokenSet) Empty() bool {
	return ts.AccessToken == ""
}

// Token converts the set into an oauth2 token so callers can reuse its
// expiry semantics.
func (ts TokenSet) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  ts.AccessToken,
		TokenType:    ts.TokenType,
		RefreshToken: ts.RefreshToken,
		Expiry:       ts.ExpiresAt,
	}
}

// Valid reports whether the set holds a non-expired access token.
func (ts TokenSet) Valid() bool {
	return ts.Token().Valid()
}

func jwtExpiry(rawToken string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// UserProfile is the canonical resolved identity for the session.
type UserProfile struct {
	UserID      string
	Username    string
	DisplayName string
	AvatarURL   string
	Description string
	HomePath    string
	Roles       []string

	// Token duplicates the session access token for convenience.
	Token string

	// Degraded marks a synthesized profile (see DegradedProfile).
	Degraded bool
}

// DegradedProfile synthesizes a profile for a session whose identity lookup
// failed while a valid access token exists. The username falls back to
// "admin" when the caller has nothing better to offer.
func DegradedProfile(username, homePath, accessToken string) *UserProfile {
	displayName := username
	if username == "" {
		username = "admin"
		displayName = DegradedDisplayName
	}
	return &UserProfile{
		UserID:      DegradedUserID,
		Username:    username,
		DisplayName: displayName,
		HomePath:    homePath,
		Roles:       append([]string(nil), DegradedRoles...),
		Token:       accessToken,
		Degraded:    true,
	}
}
