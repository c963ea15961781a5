package token

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/gmail-connect/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const accessTokenKeyInfo = "gmail-connect access token v1"

// Claims carried by an application access token. The ingestion service
// authenticates the user from these and looks up provider credentials itself.
type Claims struct {
	Email string `json:"email"`
	jwtlib.RegisteredClaims
}

// AccessToken is a signed token plus the metadata needed to track it.
type AccessToken struct {
	Token  string
	JTI    string
	Expiry time.Time
}

// Issuer mints and verifies the application's own HS256 access tokens
type Issuer struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	revoked  RevokedTokenCache
}

// NewIssuer derives the signing key from secret.
func NewIssuer(secret []byte, issuer string, ttl time.Duration, revoked RevokedTokenCache) (*Issuer, error) {
	key, err := DeriveKey(secret, accessTokenKeyInfo)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if revoked == nil {
		revoked = NewInMemoryRevokedTokenCache()
	}
	return &Issuer{
		key:      key,
		issuer:   issuer,
		audience: issuer,
		ttl:      ttl,
		revoked:  revoked,
	}, nil
}

// Issue creates an access token for the given user.
func (i *Issuer) Issue(userID, email string) (AccessToken, error) {
	if userID == "" {
		return AccessToken{}, apperrors.ErrMissingIdentity
	}
	now := NowTimeFunc()
	exp := now.Add(i.ttl)
	jti := uuid.New().String()

	claims := Claims{
		Email: email,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   userID,
			Audience:  jwtlib.ClaimStrings{i.audience},
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(exp),
			ID:        jti, // Unique token ID for revocation
		},
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return AccessToken{}, fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return AccessToken{Token: signed, JTI: jti, Expiry: exp}, nil
}

// Verify checks signature, issuer, audience, expiry and revocation.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwtlib.ParseWithClaims(raw, claims, i.verificationKey,
		jwtlib.WithIssuer(i.issuer),
		jwtlib.WithAudience(i.audience),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(NowTimeFunc),
	)
	if err != nil {
		if apperrors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, apperrors.Wrapf(apperrors.ErrTokenExpired, "verify: %v", err)
		}
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "verify: %v", err)
	}
	if !parsed.Valid {
		return nil, apperrors.ErrInvalidToken
	}
	if claims.ID != "" && i.revoked.IsRevoked(claims.ID) {
		return nil, apperrors.ErrTokenRevoked
	}
	return claims, nil
}

// Revoke marks a jti as revoked until it would have expired anyway.
func (i *Issuer) Revoke(jti string, exp time.Time) error {
	if jti == "" {
		return nil
	}
	return i.revoked.Add(jti, exp)
}

func (i *Issuer) verificationKey(t *jwtlib.Token) (any, error) {
	if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return i.key, nil
}
