package transport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	autherrors "github.com/adminsuite/go-session-client/internal/errors"
	"github.com/adminsuite/go-session-client/session"
	"github.com/adminsuite/go-session-client/session/memstore"
	"github.com/adminsuite/go-session-client/transport"
)

var testIssuedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, serverURL string, store session.AccessStore) *transport.Client {
	t.Helper()

	client, err := transport.New(transport.Endpoints{
		TokenURL:       serverURL + "/connect/token",
		RevokeURL:      serverURL + "/connect/revoke",
		UserInfoURL:    serverURL + "/connect/userinfo",
		AccessCodesURL: serverURL + "/api/access-codes",
	}, store, transport.WithNowTime(func() time.Time { return testIssuedAt }))
	require.NoError(t, err)
	return client
}

func TestTokenSendsFormWithDefaults(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/connect/token", r.URL.Path)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{}
		for key := range r.PostForm {
			gotForm[key] = r.PostForm.Get(key)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "T1",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, memstore.NewAccessStore())
	response, err := client.Token(context.Background(), transport.Credentials{
		Username: "alice",
		Password: "pw",
		Extra:    map[string]string{"tenant": "acme", "password": "smuggled"},
	})
	require.NoError(t, err)
	require.True(t, response.HasAccessToken())
	require.Equal(t, "T1", response.AccessToken)
	require.Equal(t, 3600, response.ExpiresIn)

	require.Equal(t, "password", gotForm["grant_type"])
	require.Equal(t, transport.DefaultClientID, gotForm["client_id"])
	require.Equal(t, transport.DefaultClientSecret, gotForm["client_secret"])
	require.Equal(t, "alice", gotForm["username"])
	require.Equal(t, "pw", gotForm["password"]) // reserved fields cannot be shadowed by extras
	require.Equal(t, transport.DefaultScope, gotForm["scope"])
	require.Equal(t, "acme", gotForm["tenant"])
}

func TestTokenCredentialOverrides(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"client_id": r.PostForm.Get("client_id"),
			"scope":     r.PostForm.Get("scope"),
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "T1"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, memstore.NewAccessStore())
	_, err := client.Token(context.Background(), transport.Credentials{
		Username: "alice",
		Password: "pw",
		ClientID: "custom-client",
		Scope:    "api offline_access",
	})
	require.NoError(t, err)
	require.Equal(t, "custom-client", gotForm["client_id"])
	require.Equal(t, "api offline_access", gotForm["scope"])
}

func TestTokenServerErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, memstore.NewAccessStore())
	_, err := client.Token(context.Background(), transport.Credentials{Username: "alice", Password: "wrong"})
	require.Error(t, err)

	var statusErr *transport.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
}

func TestRefreshPersistsRenewedToken(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"grant_type":    r.PostForm.Get("grant_type"),
			"refresh_token": r.PostForm.Get("refresh_token"),
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "T2",
			"token_type":    "Bearer",
			"expires_in":    1800,
			"refresh_token": "R2",
		})
	}))
	defer server.Close()

	store := memstore.NewAccessStore()
	store.SetToken(session.TokenSet{AccessToken: "T1", RefreshToken: "R1"})

	client := newTestClient(t, server.URL, store)
	renewed, err := client.Refresh(context.Background())
	require.NoError(t, err)

	require.Equal(t, "refresh_token", gotForm["grant_type"])
	require.Equal(t, "R1", gotForm["refresh_token"])
	require.Equal(t, "T2", renewed.AccessToken)
	require.Equal(t, "R2", renewed.RefreshToken)
	require.Equal(t, testIssuedAt.Add(1800*time.Second), renewed.ExpiresAt)
	require.Equal(t, "T2", store.Token().AccessToken)
}

func TestRefreshKeepsUnrotatedRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "T2", "expires_in": 1800})
	}))
	defer server.Close()

	store := memstore.NewAccessStore()
	store.SetToken(session.TokenSet{AccessToken: "T1", RefreshToken: "R1"})

	client := newTestClient(t, server.URL, store)
	renewed, err := client.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, "R1", renewed.RefreshToken)
}

func TestRefreshWithoutStoredToken(t *testing.T) {
	client := newTestClient(t, "http://localhost:0", memstore.NewAccessStore())
	_, err := client.Refresh(context.Background())
	require.ErrorIs(t, err, autherrors.ErrNoRefreshToken)
}

func TestRefreshSurfacesServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	store := memstore.NewAccessStore()
	store.SetToken(session.TokenSet{AccessToken: "T1", RefreshToken: "R1"})

	client := newTestClient(t, server.URL, store)
	_, err := client.Refresh(context.Background())
	require.Error(t, err)
	// The stored token set is untouched on failure.
	require.Equal(t, "T1", store.Token().AccessToken)
}

func TestUserInfoSendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer T1", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"sub": "u1", "preferred_username": "alice"})
	}))
	defer server.Close()

	store := memstore.NewAccessStore()
	store.SetToken(session.TokenSet{AccessToken: "T1", TokenType: "Bearer"})

	client := newTestClient(t, server.URL, store)
	raw, err := client.UserInfo(context.Background())
	require.NoError(t, err)
	require.Contains(t, string(raw), `"sub"`)
}

func TestUserInfoWithoutToken(t *testing.T) {
	client := newTestClient(t, "http://localhost:0", memstore.NewAccessStore())
	_, err := client.UserInfo(context.Background())
	require.ErrorIs(t, err, autherrors.ErrNoAccessToken)
}

func TestRevoke(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := memstore.NewAccessStore()
	store.SetToken(session.TokenSet{AccessToken: "T1", TokenType: "Bearer"})

	client := newTestClient(t, server.URL, store)
	require.NoError(t, client.Revoke(context.Background()))
	require.Equal(t, "Bearer T1", gotAuth)
}

func TestRevokeWithoutEndpointIsNoOp(t *testing.T) {
	client, err := transport.New(transport.Endpoints{TokenURL: "http://localhost:0/token"}, memstore.NewAccessStore())
	require.NoError(t, err)
	require.NoError(t, client.Revoke(context.Background()))
}

func TestAccessCodesBareArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`["AC_100","AC_200"]`))
	}))
	defer server.Close()

	store := memstore.NewAccessStore()
	store.SetToken(session.TokenSet{AccessToken: "T1"})

	client := newTestClient(t, server.URL, store)
	codes, err := client.AccessCodes(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"AC_100", "AC_200"}, codes)
}

func TestAccessCodesEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":0,"data":["AC_100"],"message":"Success"}`))
	}))
	defer server.Close()

	store := memstore.NewAccessStore()
	store.SetToken(session.TokenSet{AccessToken: "T1"})

	client := newTestClient(t, server.URL, store)
	codes, err := client.AccessCodes(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"AC_100"}, codes)
}

func TestAccessCodesWithoutEndpoint(t *testing.T) {
	client, err := transport.New(transport.Endpoints{TokenURL: "http://localhost:0/token"}, memstore.NewAccessStore())
	require.NoError(t, err)

	codes, err := client.AccessCodes(context.Background())
	require.NoError(t, err)
	require.Empty(t, codes)
}

func TestNewFromIssuerDiscoversEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 server.URL,
			"authorization_endpoint": server.URL + "/connect/authorize",
			"token_endpoint":         server.URL + "/connect/token",
			"userinfo_endpoint":      server.URL + "/connect/userinfo",
			"revocation_endpoint":    server.URL + "/connect/revoke",
			"jwks_uri":               server.URL + "/.well-known/jwks.json",
		})
	})
	mux.HandleFunc("/connect/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "password", r.PostForm.Get("grant_type"))
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "T1", "expires_in": 3600})
	})

	client, err := transport.NewFromIssuer(context.Background(), server.URL, memstore.NewAccessStore())
	require.NoError(t, err)

	response, err := client.Token(context.Background(), transport.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	require.True(t, response.HasAccessToken())
}

func TestNewRequiresTokenURL(t *testing.T) {
	_, err := transport.New(transport.Endpoints{}, memstore.NewAccessStore())
	require.Error(t, err)
}
