package identity_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/gmail-connect/identity"
	apperrors "github.com/jrsteele09/gmail-connect/internal/errors"
	"github.com/jrsteele09/gmail-connect/server/cookiestore"
	"github.com/jrsteele09/gmail-connect/sessions"
	"github.com/jrsteele09/gmail-connect/token"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testClientID  = "client-id"
	mailboxScope  = "https://www.googleapis.com/auth/gmail.readonly"
	grantedScopes = "openid email " + mailboxScope
)

// fakeIDP is a minimal token endpoint that signs RS256 ID tokens.
type fakeIDP struct {
	t   *testing.T
	srv *httptest.Server
	key *rsa.PrivateKey

	mu           sync.Mutex
	nonce        string
	challenge    string
	scope        string
	refreshToken string
	subject      string
	usedCodes    map[string]bool
	calls        int
}

func newFakeIDP(t *testing.T) *fakeIDP {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &fakeIDP{
		t:            t,
		key:          key,
		scope:        grantedScopes,
		refreshToken: "prt",
		subject:      "u1",
		usedCodes:    make(map[string]bool),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.token))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeIDP) token(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	require.NoError(f.t, r.ParseForm())
	code := r.PostForm.Get("code")
	switch {
	case code == "boom":
		http.Error(w, "upstream exploded", http.StatusBadGateway)
		return
	case code != "abc123" || f.usedCodes[code]:
		writeOAuthError(w, "invalid_grant")
		return
	}
	f.usedCodes[code] = true

	sum := sha256.Sum256([]byte(r.PostForm.Get("code_verifier")))
	if base64.RawURLEncoding.EncodeToString(sum[:]) != f.challenge {
		writeOAuthError(w, "invalid_grant")
		return
	}

	now := time.Now()
	idToken, err := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, jwtlib.MapClaims{
		"iss":   f.srv.URL,
		"sub":   f.subject,
		"aud":   testClientID,
		"email": "a@x.com",
		"nonce": f.nonce,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}).SignedString(f.key)
	require.NoError(f.t, err)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  "ptok",
		"token_type":    "Bearer",
		"expires_in":    3599,
		"refresh_token": f.refreshToken,
		"scope":         f.scope,
		"id_token":      idToken,
	})
}

func writeOAuthError(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_, _ = io.WriteString(w, `{"error":"`+code+`","error_description":"Bad Request"}`)
}

func (f *fakeIDP) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixture struct {
	idp      *fakeIDP
	provider *identity.OIDCProvider
	repo     *sessions.InMemoryRepo
	tokens   *token.Issuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	idp := newFakeIDP(t)

	tokens, err := token.NewIssuer([]byte("0123456789abcdef0123456789abcdef"), "http://localhost:8080", time.Hour, nil)
	require.NoError(t, err)

	verifier := oidc.NewVerifier(idp.srv.URL,
		&oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&idp.key.PublicKey}},
		&oidc.Config{ClientID: testClientID})

	repo := sessions.NewInMemoryRepo()
	provider := identity.NewOIDCProvider(identity.Settings{
		ClientID:      testClientID,
		ClientSecret:  "secret",
		RedirectURL:   "http://localhost:8080/auth/callback",
		SignInScopes:  []string{"openid", "email"},
		MailboxScopes: []string{mailboxScope},
		SessionMaxAge: 24 * time.Hour,
	}, oauth2.Endpoint{
		AuthURL:   idp.srv.URL + "/authorize",
		TokenURL:  idp.srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}, verifier, repo, tokens)

	return &fixture{idp: idp, provider: provider, repo: repo, tokens: tokens}
}

// start runs the redirect leg and returns the browser's cookies and the auth URL query.
func (f *fixture) start(t *testing.T, flow identity.Flow) ([]*http.Cookie, url.Values) {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/auth/gmail", nil)
	w := httptest.NewRecorder()

	raw, err := f.provider.AuthCodeURL(cookiestore.NewWritable(w, r), flow)
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	f.idp.mu.Lock()
	f.idp.nonce = q.Get("nonce")
	f.idp.challenge = q.Get("code_challenge")
	f.idp.mu.Unlock()
	return w.Result().Cookies(), q
}

func callbackContext(cookies []*http.Cookie) (cookiestore.Context, *httptest.ResponseRecorder) {
	r := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	return cookiestore.NewWritable(w, r), w
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthCodeURL_MailboxFlow(t *testing.T) {
	f := newFixture(t)
	cookies, q := f.start(t, identity.FlowMailbox)

	require.Equal(t, testClientID, q.Get("client_id"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "offline", q.Get("access_type"))
	require.Equal(t, "consent", q.Get("prompt"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.NotEmpty(t, q.Get("nonce"))
	require.Contains(t, strings.Fields(q.Get("scope")), mailboxScope)
	require.Contains(t, strings.Fields(q.Get("scope")), "openid")

	state := findCookie(cookies, "gc_oauth_state")
	require.NotNil(t, state)
	require.Equal(t, q.Get("state"), state.Value)
	require.True(t, state.HttpOnly)
}

func TestAuthCodeURL_SignInFlowHasNoMailboxScope(t *testing.T) {
	f := newFixture(t)
	_, q := f.start(t, identity.FlowSignIn)

	require.NotContains(t, strings.Fields(q.Get("scope")), mailboxScope)
	require.Empty(t, q.Get("access_type"))
}

func TestAuthCodeURL_RequiresWritableContext(t *testing.T) {
	f := newFixture(t)
	r := httptest.NewRequest(http.MethodGet, "/auth/gmail", nil)

	_, err := f.provider.AuthCodeURL(cookiestore.NewReadOnly(r), identity.FlowMailbox)
	require.ErrorIs(t, err, apperrors.ErrWriteRejected)
}

func TestExchange_MailboxFlowCarriesProviderTokens(t *testing.T) {
	f := newFixture(t)
	cookies, q := f.start(t, identity.FlowMailbox)
	ctx, w := callbackContext(cookies)

	session, err := f.provider.ExchangeCodeForSession(context.Background(), ctx, "abc123", q.Get("state"))
	require.NoError(t, err)
	require.Equal(t, sessions.User{ID: "u1", Email: "a@x.com"}, session.User)
	require.Equal(t, "ptok", session.ProviderAccessToken)
	require.Equal(t, "prt", *session.ProviderRefreshToken)
	require.WithinDuration(t, time.Now().Add(3599*time.Second), session.ProviderTokenExpiry, 10*time.Second)
	require.NotEmpty(t, session.AccessToken)

	claims, err := f.tokens.Verify(session.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.Subject)

	// The session cookie is visible to a fresh read in the same request.
	again, err := f.provider.GetSession(context.Background(), ctx)
	require.NoError(t, err)
	require.NotNil(t, again)
	require.Equal(t, session.ID, again.ID)

	sessionCookie := findCookie(w.Result().Cookies(), identity.SessionCookieName)
	require.NotNil(t, sessionCookie)
	require.Equal(t, session.ID, sessionCookie.Value)
	require.Equal(t, -1, findCookie(w.Result().Cookies(), "gc_oauth_state").MaxAge)
}

func TestExchange_SignInFlowHasNoProviderTokens(t *testing.T) {
	f := newFixture(t)
	f.idp.scope = "openid email"
	cookies, q := f.start(t, identity.FlowSignIn)
	ctx, _ := callbackContext(cookies)

	session, err := f.provider.ExchangeCodeForSession(context.Background(), ctx, "abc123", q.Get("state"))
	require.NoError(t, err)
	require.True(t, session.Valid())
	require.False(t, session.HasProviderToken())
	require.Nil(t, session.ProviderRefreshToken)
}

func TestExchange_MissingRefreshTokenStaysNil(t *testing.T) {
	f := newFixture(t)
	f.idp.refreshToken = ""
	cookies, q := f.start(t, identity.FlowMailbox)
	ctx, _ := callbackContext(cookies)

	session, err := f.provider.ExchangeCodeForSession(context.Background(), ctx, "abc123", q.Get("state"))
	require.NoError(t, err)
	require.Equal(t, "ptok", session.ProviderAccessToken)
	require.Nil(t, session.ProviderRefreshToken)
}

func TestExchange_Failures(t *testing.T) {
	tests := []struct {
		name         string
		code         string
		state        func(q url.Values) string
		providerCode string
		transport    bool
		idpCalls     int
	}{
		{
			name:         "provider rejects code",
			code:         "bad",
			state:        func(q url.Values) string { return q.Get("state") },
			providerCode: "invalid_grant",
			idpCalls:     1,
		},
		{
			name:      "token endpoint fails",
			code:      "boom",
			state:     func(q url.Values) string { return q.Get("state") },
			transport: true,
			idpCalls:  1,
		},
		{
			name:         "state mismatch",
			code:         "abc123",
			state:        func(url.Values) string { return "forged" },
			providerCode: identity.ErrorCodeInvalidState,
			idpCalls:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			cookies, q := f.start(t, identity.FlowMailbox)
			ctx, _ := callbackContext(cookies)

			session, err := f.provider.ExchangeCodeForSession(context.Background(), ctx, tt.code, tt.state(q))
			require.Error(t, err)
			require.Nil(t, session)
			require.Equal(t, tt.idpCalls, f.idp.callCount())

			var pe *apperrors.ProviderExchangeError
			if tt.transport {
				require.ErrorIs(t, err, apperrors.ErrTransport)
				require.False(t, apperrors.As(err, &pe))
				return
			}
			require.True(t, apperrors.As(err, &pe))
			require.Equal(t, tt.providerCode, pe.Code)
		})
	}
}

func TestExchange_CodeReplayFailsCleanly(t *testing.T) {
	f := newFixture(t)
	cookies, q := f.start(t, identity.FlowMailbox)

	ctx, _ := callbackContext(cookies)
	_, err := f.provider.ExchangeCodeForSession(context.Background(), ctx, "abc123", q.Get("state"))
	require.NoError(t, err)

	// Same browser cookies, same code: the provider refuses the second redemption.
	ctx, _ = callbackContext(cookies)
	session, err := f.provider.ExchangeCodeForSession(context.Background(), ctx, "abc123", q.Get("state"))
	require.Error(t, err)
	require.Nil(t, session)

	var pe *apperrors.ProviderExchangeError
	require.True(t, apperrors.As(err, &pe))
	require.Equal(t, "invalid_grant", pe.Code)
}

func exchange(t *testing.T, f *fixture) *sessions.Session {
	t.Helper()
	cookies, q := f.start(t, identity.FlowMailbox)
	ctx, _ := callbackContext(cookies)
	session, err := f.provider.ExchangeCodeForSession(context.Background(), ctx, "abc123", q.Get("state"))
	require.NoError(t, err)
	return session
}

func TestGetSession_ReadOnlyContextStillReads(t *testing.T) {
	f := newFixture(t)
	session := exchange(t, f)

	stored, err := f.repo.Get(session.ID)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.AddCookie(&http.Cookie{Name: identity.SessionCookieName, Value: session.ID})

	got, err := f.provider.GetSession(context.Background(), cookiestore.NewReadOnly(r))
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "u1", got.User.ID)
	// The cookie refresh was refused, so the server-side expiry did not slide.
	require.Equal(t, stored.ExpiresAt, got.ExpiresAt)
}

func TestGetSession_NoCookieOrUnknownSession(t *testing.T) {
	f := newFixture(t)

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	got, err := f.provider.GetSession(context.Background(), cookiestore.NewReadOnly(r))
	require.NoError(t, err)
	require.Nil(t, got)

	r.AddCookie(&http.Cookie{Name: identity.SessionCookieName, Value: "unknown"})
	got, err = f.provider.GetSession(context.Background(), cookiestore.NewReadOnly(r))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestGetSession_ExpiredSessionIsGone(t *testing.T) {
	f := newFixture(t)
	session := exchange(t, f)

	stored, err := f.repo.Get(session.ID)
	require.NoError(t, err)
	stored.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, f.repo.Upsert(stored))

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.AddCookie(&http.Cookie{Name: identity.SessionCookieName, Value: session.ID})
	got, err := f.provider.GetSession(context.Background(), cookiestore.NewWritable(httptest.NewRecorder(), r))
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = f.repo.Get(session.ID)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestGetSession_ReissuesExpiredAccessToken(t *testing.T) {
	f := newFixture(t)
	session := exchange(t, f)

	stored, err := f.repo.Get(session.ID)
	require.NoError(t, err)
	stored.AccessToken = "stale"
	stored.AccessTokenExpiry = time.Now().Add(-time.Second)
	require.NoError(t, f.repo.Upsert(stored))

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.AddCookie(&http.Cookie{Name: identity.SessionCookieName, Value: session.ID})
	got, err := f.provider.GetSession(context.Background(), cookiestore.NewReadOnly(r))
	require.NoError(t, err)
	require.NotEqual(t, "stale", got.AccessToken)
	require.True(t, got.AccessTokenExpiry.After(time.Now()))

	_, err = f.tokens.Verify(got.AccessToken)
	require.NoError(t, err)
}

func TestSignOut_RevokesAndForgets(t *testing.T) {
	f := newFixture(t)
	session := exchange(t, f)

	r := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	r.AddCookie(&http.Cookie{Name: identity.SessionCookieName, Value: session.ID})
	w := httptest.NewRecorder()

	require.NoError(t, f.provider.SignOut(context.Background(), cookiestore.NewWritable(w, r)))

	_, err := f.repo.Get(session.ID)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	_, err = f.tokens.Verify(session.AccessToken)
	require.ErrorIs(t, err, apperrors.ErrTokenRevoked)
	require.False(t, f.tokens.Introspect(session.AccessToken).Active)
	require.Equal(t, -1, findCookie(w.Result().Cookies(), identity.SessionCookieName).MaxAge)
}
