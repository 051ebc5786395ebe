package session

// AccessStore holds the token-scoped session state: the bearer credentials,
// the granted access codes, and the login-expired flag.
type AccessStore interface {
	SetToken(TokenSet)
	Token() TokenSet
	SetAccessCodes([]string)
	AccessCodes() []string
	SetLoginExpired(bool)
	LoginExpired() bool
	Reset()
}

// UserStore holds the resolved user profile.
type UserStore interface {
	SetUserInfo(*UserProfile)
	UserInfo() *UserProfile
	Reset()
}

// ResetAll returns every session-scoped store to its initial state.
func ResetAll(access AccessStore, user UserStore) {
	access.Reset()
	user.Reset()
}
