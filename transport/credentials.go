package transport

import "net/url"

// OAuth2 grant types and the defaults applied when the caller leaves the
// corresponding credential field empty.
const (
	GrantTypePassword     = "password"
	GrantTypeRefreshToken = "refresh_token"

	DefaultClientID     = "password-client"
	DefaultClientSecret = "password-client-secret"
	DefaultScope        = "api"
)

// Credentials holds the parameters for a password-grant token request.
// Credentials are transient: they exist only for the duration of a login
// call and are never stored.
type Credentials struct {
	Username string
	Password string

	// Optional OAuth2 overrides. Zero values fall back to the client's
	// configured defaults.
	GrantType    string
	ClientID     string
	ClientSecret string
	Scope        string

	// Extra fields are passed through to the token endpoint verbatim,
	// except where they would shadow a reserved OAuth2 field.
	Extra map[string]string
}

var reservedFormFields = map[string]struct{}{
	"grant_type":    {},
	"client_id":     {},
	"client_secret": {},
	"username":      {},
	"password":      {},
	"scope":         {},
	"refresh_token": {},
}

// form encodes the credentials merged against the supplied defaults.
func (c Credentials) form(clientID, clientSecret, scope string) url.Values {
	form := url.Values{}
	form.Set("grant_type", firstNonEmpty(c.GrantType, GrantTypePassword))
	form.Set("client_id", firstNonEmpty(c.ClientID, clientID))
	form.Set("client_secret", firstNonEmpty(c.ClientSecret, clientSecret))
	form.Set("username", c.Username)
	form.Set("password", c.Password)
	form.Set("scope", firstNonEmpty(c.Scope, scope))
	for key, value := range c.Extra {
		if _, reserved := reservedFormFields[key]; reserved {
			continue
		}
		form.Set(key, value)
	}
	return form
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
