package sessions

import "time"

// User is the authenticated identity carried by a session.
type User struct {
	ID    string
	Email string
}

// Session is the server-side view of one authenticated browser. It is never
// persisted verbatim outside the session store; only derived fields reach
// the connection store.
type Session struct {
	ID string

	// Tokens for this application's own backend. AccessToken is the bearer
	// sent to the ingestion service. RefreshToken is minted with the session
	// for clients of the backend; nothing in this service redeems it.
	AccessToken       string
	RefreshToken      string
	AccessTokenExpiry time.Time

	// Delegated tokens issued by the identity provider. Absent unless the
	// mailbox scope was granted.
	ProviderAccessToken  string
	ProviderRefreshToken *string
	ProviderTokenExpiry  time.Time // zero when the provider did not say

	User User

	CreatedAt time.Time
	ExpiresAt time.Time
}

// Valid reports whether the session may be used to key a credential record.
func (s *Session) Valid() bool {
	return s != nil && s.User.ID != ""
}

// HasProviderToken reports whether delegated access was granted in this session.
func (s *Session) HasProviderToken() bool {
	return s != nil && s.ProviderAccessToken != ""
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
