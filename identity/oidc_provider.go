package identity

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/jrsteele09/gmail-connect/internal/config"
	apperrors "github.com/jrsteele09/gmail-connect/internal/errors"
	"github.com/jrsteele09/gmail-connect/internal/utils"
	"github.com/jrsteele09/gmail-connect/server/cookiestore"
	"github.com/jrsteele09/gmail-connect/sessions"
	"github.com/jrsteele09/gmail-connect/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Error codes reported for flow-state failures detected locally.
const (
	ErrorCodeInvalidState = "invalid_state"
	ErrorCodeInvalidNonce = "invalid_nonce"
)

// Settings configure an OIDCProvider.
type Settings struct {
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	SignInScopes  []string
	MailboxScopes []string

	FlowCookieMaxAge time.Duration
	SessionMaxAge    time.Duration

	// HTTPClient is used for discovery and token calls. nil means http.DefaultClient.
	HTTPClient *http.Client
}

// SettingsFromConfig builds Settings from the loaded configuration.
func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		ClientID:         cfg.GetClientID(),
		ClientSecret:     cfg.GetClientSecret(),
		RedirectURL:      cfg.GetRedirectURL(),
		SignInScopes:     cfg.GetSignInScopes(),
		MailboxScopes:    cfg.GetMailboxScopes(),
		FlowCookieMaxAge: cfg.GetFlowCookieMaxAge(),
		SessionMaxAge:    cfg.GetMaxSessionAge(),
		HTTPClient:       &http.Client{Timeout: 15 * time.Second},
	}
}

var _ Provider = (*OIDCProvider)(nil)

// OIDCProvider runs the authorization-code flow with PKCE against an OpenID
// Connect provider and keeps the resulting sessions in a sessions.Repo.
type OIDCProvider struct {
	settings Settings
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	sessions sessions.Repo
	tokens   *token.Issuer
}

// Discover fetches the issuer's discovery document and builds a provider from it.
func Discover(ctx context.Context, issuer string, settings Settings, repo sessions.Repo, tokens *token.Issuer) (*OIDCProvider, error) {
	if settings.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, settings.HTTPClient)
	}
	op, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("[identity Discover] failed to create OIDC provider: %w", err)
	}
	verifier := op.Verifier(&oidc.Config{ClientID: settings.ClientID})
	return NewOIDCProvider(settings, op.Endpoint(), verifier, repo, tokens), nil
}

// NewOIDCProvider builds a provider from explicit endpoints.
func NewOIDCProvider(settings Settings, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier, repo sessions.Repo, tokens *token.Issuer) *OIDCProvider {
	if settings.FlowCookieMaxAge <= 0 {
		settings.FlowCookieMaxAge = 10 * time.Minute
	}
	if settings.SessionMaxAge <= 0 {
		settings.SessionMaxAge = 30 * 24 * time.Hour
	}
	return &OIDCProvider{
		settings: settings,
		oauth: &oauth2.Config{
			ClientID:     settings.ClientID,
			ClientSecret: settings.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  settings.RedirectURL,
		},
		verifier: verifier,
		sessions: repo,
		tokens:   tokens,
	}
}

func (p *OIDCProvider) AuthCodeURL(cookies cookiestore.Context, flow Flow) (string, error) {
	if !cookies.Writable() {
		return "", fmt.Errorf("[identity AuthCodeURL] %w", apperrors.ErrWriteRejected)
	}

	state, err := randomString(24)
	if err != nil {
		return "", fmt.Errorf("[identity AuthCodeURL] state: %w", err)
	}
	nonce, err := randomString(24)
	if err != nil {
		return "", fmt.Errorf("[identity AuthCodeURL] nonce: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	opts := cookiestore.DefaultOptions(p.settings.FlowCookieMaxAge)
	for name, value := range map[string]string{
		stateCookieName:    state,
		nonceCookieName:    nonce,
		verifierCookieName: verifier,
		flowCookieName:     string(flow),
	} {
		if err := cookies.Set(name, value, opts); err != nil {
			return "", fmt.Errorf("[identity AuthCodeURL] %w", err)
		}
	}

	cfg := *p.oauth
	cfg.Scopes = p.scopes(flow)

	authOpts := []oauth2.AuthCodeOption{
		oauth2.S256ChallengeOption(verifier),
		oidc.Nonce(nonce),
	}
	if flow == FlowMailbox {
		// A refresh token is only re-issued on explicit consent.
		authOpts = append(authOpts,
			oauth2.AccessTypeOffline,
			oauth2.SetAuthURLParam("prompt", "consent"),
			oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		)
	}
	return cfg.AuthCodeURL(state, authOpts...), nil
}

func (p *OIDCProvider) ExchangeCodeForSession(ctx context.Context, cookies cookiestore.Context, code, state string) (*sessions.Session, error) {
	expectedState, ok := cookies.Get(stateCookieName)
	if !ok || state == "" || subtle.ConstantTimeCompare([]byte(expectedState), []byte(state)) != 1 {
		return nil, &apperrors.ProviderExchangeError{Code: ErrorCodeInvalidState}
	}
	verifier, _ := cookies.Get(verifierCookieName)
	nonce, _ := cookies.Get(nonceCookieName)
	flowValue, _ := cookies.Get(flowCookieName)
	p.clearFlowCookies(cookies)

	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	tok, err := p.oauth.Exchange(p.clientContext(ctx), code, opts...)
	if err != nil {
		return nil, exchangeError(err)
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("[identity Exchange] no id_token in token response: %w", apperrors.ErrTransport)
	}
	idToken, err := p.verifier.Verify(p.clientContext(ctx), rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("[identity Exchange] %w: id token verification failed: %v", apperrors.ErrTransport, err)
	}
	if nonce != "" && subtle.ConstantTimeCompare([]byte(idToken.Nonce), []byte(nonce)) != 1 {
		return nil, &apperrors.ProviderExchangeError{Code: ErrorCodeInvalidNonce}
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("[identity Exchange] %w: failed to extract claims: %v", apperrors.ErrTransport, err)
	}
	if idToken.Subject == "" {
		return nil, fmt.Errorf("[identity Exchange] %w", apperrors.ErrMissingIdentity)
	}

	session, err := p.newSession(idToken.Subject, claims.Email)
	if err != nil {
		return nil, err
	}
	if p.mailboxGranted(tok, Flow(flowValue)) {
		session.ProviderAccessToken = tok.AccessToken
		session.ProviderRefreshToken = utils.NonEmpty(tok.RefreshToken)
		session.ProviderTokenExpiry = tok.Expiry
	}

	if err := p.sessions.Upsert(session); err != nil {
		return nil, fmt.Errorf("[identity Exchange] failed to store session: %w", err)
	}
	if err := cookies.Set(SessionCookieName, session.ID, cookiestore.DefaultOptions(p.settings.SessionMaxAge)); err != nil {
		_ = p.sessions.Delete(session.ID)
		return nil, fmt.Errorf("[identity Exchange] session cookie: %w", err)
	}

	log.Info().Str("user_id", session.User.ID).Str("email", session.User.Email).
		Bool("mailbox_granted", session.HasProviderToken()).Msg("session created")
	return session, nil
}

func (p *OIDCProvider) GetSession(_ context.Context, cookies cookiestore.Context) (*sessions.Session, error) {
	sessionID, ok := cookies.Get(SessionCookieName)
	if !ok {
		return nil, nil
	}

	session, err := p.sessions.Get(sessionID)
	if errors.Is(err, apperrors.ErrSessionNotFound) {
		_ = cookies.Remove(SessionCookieName, cookiestore.DefaultOptions(0))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[identity GetSession] %w", err)
	}

	now := NowTimeFunc()
	if session.Expired(now) {
		_ = p.sessions.Delete(sessionID)
		_ = cookies.Remove(SessionCookieName, cookiestore.DefaultOptions(0))
		return nil, nil
	}
	if !session.Valid() {
		return nil, fmt.Errorf("[identity GetSession] %w", apperrors.ErrMissingIdentity)
	}

	dirty := false
	if !now.Before(session.AccessTokenExpiry) {
		access, err := p.tokens.Issue(session.User.ID, session.User.Email)
		if err != nil {
			return nil, fmt.Errorf("[identity GetSession] reissue access token: %w", err)
		}
		session.AccessToken = access.Token
		session.AccessTokenExpiry = access.Expiry
		dirty = true
	}

	// Sliding expiry only advances when the cookie could be rewritten.
	if err := cookies.Set(SessionCookieName, sessionID, cookiestore.DefaultOptions(p.settings.SessionMaxAge)); err == nil {
		session.ExpiresAt = now.Add(p.settings.SessionMaxAge)
		dirty = true
	}

	if dirty {
		if err := p.sessions.Upsert(session); err != nil {
			return nil, fmt.Errorf("[identity GetSession] %w", err)
		}
	}
	return session, nil
}

func (p *OIDCProvider) SignOut(_ context.Context, cookies cookiestore.Context) error {
	sessionID, ok := cookies.Get(SessionCookieName)
	if !ok {
		return nil
	}

	if session, err := p.sessions.Get(sessionID); err == nil {
		if err := p.tokens.RevokeToken(session.AccessToken); err != nil {
			log.Warn().Err(err).Str("user_id", session.User.ID).Msg("failed to revoke access token")
		}
		if err := p.sessions.Delete(sessionID); err != nil {
			return fmt.Errorf("[identity SignOut] %w", err)
		}
	}

	if err := cookies.Remove(SessionCookieName, cookiestore.DefaultOptions(0)); err != nil {
		return fmt.Errorf("[identity SignOut] %w", err)
	}
	return nil
}

func (p *OIDCProvider) newSession(userID, email string) (*sessions.Session, error) {
	access, err := p.tokens.Issue(userID, email)
	if err != nil {
		return nil, fmt.Errorf("[identity newSession] %w", err)
	}
	refresh, err := token.NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("[identity newSession] %w", err)
	}
	now := NowTimeFunc()
	return &sessions.Session{
		ID:                uuid.New().String(),
		AccessToken:       access.Token,
		RefreshToken:      refresh,
		AccessTokenExpiry: access.Expiry,
		User:              sessions.User{ID: userID, Email: email},
		CreatedAt:         now,
		ExpiresAt:         now.Add(p.settings.SessionMaxAge),
	}, nil
}

func (p *OIDCProvider) scopes(flow Flow) []string {
	scopes := slices.Clone(p.settings.SignInScopes)
	if !slices.Contains(scopes, oidc.ScopeOpenID) {
		scopes = append([]string{oidc.ScopeOpenID}, scopes...)
	}
	if flow == FlowMailbox {
		scopes = append(scopes, p.settings.MailboxScopes...)
	}
	return scopes
}

// mailboxGranted reports whether the token response carries delegated
// mailbox access. An omitted scope means the requested scopes were granted.
func (p *OIDCProvider) mailboxGranted(tok *oauth2.Token, flow Flow) bool {
	granted, _ := tok.Extra("scope").(string)
	if granted == "" {
		return flow == FlowMailbox
	}
	for _, scope := range strings.Fields(granted) {
		if slices.Contains(p.settings.MailboxScopes, scope) {
			return true
		}
	}
	return false
}

func (p *OIDCProvider) clearFlowCookies(cookies cookiestore.Context) {
	opts := cookiestore.DefaultOptions(0)
	for _, name := range []string{stateCookieName, nonceCookieName, verifierCookieName, flowCookieName} {
		_ = cookies.Remove(name, opts)
	}
}

func (p *OIDCProvider) clientContext(ctx context.Context) context.Context {
	if p.settings.HTTPClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, p.settings.HTTPClient)
}

// exchangeError separates provider rejections, which carry an OAuth error
// code, from transport and parse failures.
func exchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode != "" {
		return &apperrors.ProviderExchangeError{
			Code:        retrieveErr.ErrorCode,
			Description: retrieveErr.ErrorDescription,
		}
	}
	return fmt.Errorf("[identity Exchange] %w: %v", apperrors.ErrTransport, err)
}

func randomString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
