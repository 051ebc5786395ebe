// Package transport performs the OAuth2 wire exchanges for the session
// client: the password-grant token exchange, refresh, best-effort revoke,
// and the bearer-authenticated user-info and access-code fetches.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	autherrors "github.com/adminsuite/go-session-client/internal/errors"
	"github.com/adminsuite/go-session-client/session"
)

// Endpoints holds the URLs of the authorization server surfaces the client
// talks to. AccessCodesURL may be empty when the server exposes no
// permission-code endpoint; the fetch then yields an empty list.
type Endpoints struct {
	TokenURL       string
	RevokeURL      string
	UserInfoURL    string
	AccessCodesURL string
}

// StatusError is returned when the server answers with an HTTP error status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Client talks to the token, revoke, user-info and access-code endpoints.
// It reads and renews the session token through the injected AccessStore.
type Client struct {
	httpClient   *http.Client
	endpoints    Endpoints
	store        session.AccessStore
	clientID     string
	clientSecret string
	scope        string
	nowTime      func() time.Time
	log          zerolog.Logger
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for all requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithClientCredentials overrides the default OAuth2 client credentials and
// scope merged into every token request.
func WithClientCredentials(clientID, clientSecret, scope string) Option {
	return func(c *Client) {
		c.clientID = clientID
		c.clientSecret = clientSecret
		c.scope = scope
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

// WithLogger sets the logger used for wire-level debug output.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New initializes a Client with required dependencies.
func New(endpoints Endpoints, store session.AccessStore, options ...Option) (*Client, error) {
	if endpoints.TokenURL == "" {
		return nil, errors.New("[transport.New] token URL is required")
	}
	if store == nil {
		return nil, errors.New("[transport.New] access store is required")
	}

	client := &Client{
		httpClient:   http.DefaultClient,
		endpoints:    endpoints,
		store:        store,
		clientID:     DefaultClientID,
		clientSecret: DefaultClientSecret,
		scope:        DefaultScope,
		nowTime:      time.Now,
		log:          zerolog.Nop(),
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

// NewFromIssuer resolves the endpoint URLs from the issuer's OIDC discovery
// document and initializes a Client with them.
func NewFromIssuer(ctx context.Context, issuer string, store session.AccessStore, options ...Option) (*Client, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, errors.Wrap(err, "[transport.NewFromIssuer] oidc.NewProvider")
	}

	var doc struct {
		UserInfoEndpoint   string `json:"userinfo_endpoint"`
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	if err := provider.Claims(&doc); err != nil {
		return nil, errors.Wrap(err, "[transport.NewFromIssuer] provider.Claims")
	}

	endpoints := Endpoints{
		TokenURL:    provider.Endpoint().TokenURL,
		UserInfoURL: doc.UserInfoEndpoint,
		RevokeURL:   doc.RevocationEndpoint,
	}
	return New(endpoints, store, options...)
}

// Token performs the password-grant exchange with the credentials merged
// against the client defaults. The raw response shape is returned so the
// caller can apply its own contract check on access_token.
func (c *Client) Token(ctx context.Context, creds Credentials) (*TokenResponse, error) {
	response, err := c.tokenRequest(ctx, creds.form(c.clientID, c.clientSecret, c.scope))
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Token] token request")
	}
	return response, nil
}

// Refresh exchanges the stored refresh token for a new token set and
// persists it into the access store. Failure is surfaced to the caller: the
// interceptor layer owns the decision to force a logout.
func (c *Client) Refresh(ctx context.Context) (session.TokenSet, error) {
	current := c.store.Token()
	if current.RefreshToken == "" {
		return session.TokenSet{}, autherrors.ErrNoRefreshToken
	}

	form := url.Values{}
	form.Set("grant_type", GrantTypeRefreshToken)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("refresh_token", current.RefreshToken)

	response, err := c.tokenRequest(ctx, form)
	if err != nil {
		return session.TokenSet{}, errors.Wrap(err, "[Client.Refresh] token request")
	}
	if !response.HasAccessToken() {
		return session.TokenSet{}, autherrors.ErrMissingAccessToken
	}

	// Servers that do not rotate refresh tokens omit the field; keep the
	// stored one in that case.
	refreshToken := response.RefreshToken
	if refreshToken == "" {
		refreshToken = current.RefreshToken
	}

	renewed := session.NewTokenSet(response.AccessToken, response.TokenType, refreshToken, response.ExpiresIn, c.nowTime())
	c.store.SetToken(renewed)
	c.log.Debug().Time("expires_at", renewed.ExpiresAt).Msg("access token renewed")
	return renewed, nil
}

// Revoke invalidates the current session on the server. Callers treat
// failure as best-effort; the error is returned so the discard happens at a
// single documented call site.
func (c *Client) Revoke(ctx context.Context) error {
	if c.endpoints.RevokeURL == "" {
		return nil
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.RevokeURL, nil)
	if err != nil {
		return errors.Wrap(err, "[Client.Revoke] build request")
	}
	c.authorize(request)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return errors.Wrap(err, "[Client.Revoke] do request")
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(response.Body)
		return &StatusError{StatusCode: response.StatusCode, Body: string(body)}
	}
	return nil
}

// UserInfo fetches the raw identity payload using the stored access token.
// The payload is returned undecoded: the resolver owns the envelope-or-flat
// shape handling.
func (c *Client) UserInfo(ctx context.Context) (json.RawMessage, error) {
	token := c.store.Token()
	if token.Empty() {
		return nil, autherrors.ErrNoAccessToken
	}
	if !token.Valid() {
		c.log.Debug().Time("expires_at", token.ExpiresAt).Msg("presenting an expired access token to the user info endpoint")
	}

	body, err := c.bearerGet(ctx, c.endpoints.UserInfoURL)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.UserInfo] fetch")
	}
	return json.RawMessage(body), nil
}

// AccessCodes fetches the permission codes granted to the session. Servers
// without a code endpoint yield an empty list.
func (c *Client) AccessCodes(ctx context.Context) ([]string, error) {
	if c.endpoints.AccessCodesURL == "" {
		return []string{}, nil
	}

	body, err := c.bearerGet(ctx, c.endpoints.AccessCodesURL)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.AccessCodes] fetch")
	}

	var codes []string
	if err := json.Unmarshal(body, &codes); err == nil {
		return codes, nil
	}

	// Some deployments wrap the list in the standard response envelope.
	var envelope struct {
		Code int      `json:"code"`
		Data []string `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.Wrap(err, "[Client.AccessCodes] decode response")
	}
	if envelope.Data == nil {
		return []string{}, nil
	}
	return envelope.Data, nil
}

func (c *Client) tokenRequest(ctx context.Context, form url.Values) (*TokenResponse, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer func() { _ = response.Body.Close() }()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if response.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{StatusCode: response.StatusCode, Body: string(body)}
	}

	tokenResponse := &TokenResponse{}
	if err := json.Unmarshal(body, tokenResponse); err != nil {
		return nil, errors.Wrap(err, "decode token response")
	}
	return tokenResponse, nil
}

func (c *Client) bearerGet(ctx context.Context, endpointURL string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	c.authorize(request)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer func() { _ = response.Body.Close() }()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if response.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{StatusCode: response.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (c *Client) authorize(request *http.Request) {
	token := c.store.Token().Token()
	if token.AccessToken != "" {
		token.SetAuthHeader(request)
	}
}
