package transport

// TokenResponse represents the response from an OAuth2 token request.
// This is the standard OAuth2 token endpoint response format as defined in
// RFC 6749, returned for both the password and refresh_token grants.
type TokenResponse struct {
	// AccessToken is the bearer token used to access protected resources.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	AccessToken string `json:"access_token"`

	// TokenType indicates how to use the access token, typically "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	// Note: This is a hint - JWT tokens also carry an "exp" claim.
	ExpiresIn int `json:"expires_in"`

	// RefreshToken is an opaque token used to obtain new access tokens.
	// Only present when the server issues one for the granted scope.
	RefreshToken string `json:"refresh_token,omitempty"`

	// IDToken is the OpenID Connect ID token, present when the "openid"
	// scope was requested. Unused by the session core but preserved.
	IDToken string `json:"id_token,omitempty"`

	// Scope indicates the access token's granted permissions.
	Scope string `json:"scope,omitempty"`
}

// HasAccessToken reports whether the response carries a usable token. The
// login orchestrator treats a response without one as a shape error, not a
// best-effort parse.
func (tr *TokenResponse) HasAccessToken() bool {
	return tr != nil && tr.AccessToken != ""
}
