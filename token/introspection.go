package token

import (
	"strings"

	apperrors "github.com/jrsteele09/gmail-connect/internal/errors"
)

// Introspection is the RFC 7662 view of an application access token. When
// Active is false no other field is populated.
type Introspection struct {
	Active bool    `json:"active"`
	Sub    *string `json:"sub,omitempty"`   // Users unique ID
	Email  *string `json:"email,omitempty"` // Mailbox owner
	Iss    *string `json:"iss,omitempty"`
	Aud    *string `json:"aud,omitempty"`
	Exp    *int64  `json:"exp,omitempty"`
	Iat    *int64  `json:"iat,omitempty"`
	JTI    *string `json:"jti,omitempty"`

	// MailboxConnected is filled in by the HTTP layer from the connection store.
	MailboxConnected *bool `json:"mailbox_connected,omitempty"`
}

// Introspect reports whether raw is a live token minted by this issuer.
// Malformed, expired, foreign and revoked tokens are all simply inactive.
func (i *Issuer) Introspect(raw string) *Introspection {
	if strings.TrimSpace(raw) == "" {
		return &Introspection{Active: false}
	}
	claims, err := i.Verify(raw)
	if err != nil {
		return &Introspection{Active: false}
	}

	sub, email, iss, jti := claims.Subject, claims.Email, claims.Issuer, claims.ID
	out := &Introspection{
		Active: true,
		Sub:    &sub,
		Email:  &email,
		Iss:    &iss,
		JTI:    &jti,
	}
	if len(claims.Audience) > 0 {
		aud := claims.Audience[0]
		out.Aud = &aud
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Unix()
		out.Exp = &exp
	}
	if claims.IssuedAt != nil {
		iat := claims.IssuedAt.Unix()
		out.Iat = &iat
	}
	return out
}

// RevokeToken verifies raw and adds its jti to the revocation list. Tokens
// that no longer verify are already unusable and are ignored.
func (i *Issuer) RevokeToken(raw string) error {
	claims, err := i.Verify(raw)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrInvalidToken) || apperrors.Is(err, apperrors.ErrTokenExpired) || apperrors.Is(err, apperrors.ErrTokenRevoked) {
			return nil
		}
		return err
	}
	return i.Revoke(claims.ID, claims.ExpiresAt.Time)
}
