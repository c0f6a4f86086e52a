// Package credential contains the immutable cookie-backed credentials a
// Steam session is made of.
package credential

import (
	"net/http"

	"steam-provider/internal/steam"
)

// Credential is a named, domain-scoped session token.
type Credential struct {
	name   string
	value  string
	domain string
	secure bool
}

func New(name, value, domain string, secure bool) Credential {
	return Credential{name: name, value: value, domain: domain, secure: secure}
}

func (c Credential) Name() string   { return c.name }
func (c Credential) Value() string  { return c.value }
func (c Credential) Domain() string { return c.domain }
func (c Credential) Secure() bool   { return c.secure }

// WithDomain returns a copy of the credential asserted to another domain.
func (c Credential) WithDomain(domain string) Credential {
	c.domain = domain
	return c
}

// Cookie renders the credential as a cookie for the jar.
func (c Credential) Cookie() *http.Cookie {
	return &http.Cookie{
		Name:   c.name,
		Value:  c.value,
		Domain: c.domain,
		Path:   "/",
		Secure: c.secure,
	}
}

// SecureLogin is the `steamLoginSecure` cookie produced by a successful login.
type SecureLogin struct {
	Credential
}

func NewSecureLogin(c Credential) (SecureLogin, error) {
	if c.name != steam.SecureLoginCookie {
		return SecureLogin{}, &steam.ValidationError{
			Field:    "secure login name",
			Expected: steam.SecureLoginCookie,
			Got:      c.name,
		}
	}
	return SecureLogin{Credential: c}, nil
}

// SecureLoginFromToken composes the cookie value "{steamId}||{accessToken}".
func SecureLoginFromToken(steamId, accessToken, domain string) SecureLogin {
	return SecureLogin{Credential: New(
		steam.SecureLoginCookie,
		steamId+"||"+accessToken,
		domain,
		true,
	)}
}

// WithDomain keeps the SecureLogin type, the name is unaffected by re-domaining.
func (s SecureLogin) WithDomain(domain string) SecureLogin {
	return SecureLogin{Credential: s.Credential.WithDomain(domain)}
}

// StoreSession is the store's `sessionid` cookie.
type StoreSession struct {
	Credential
}

func NewStoreSession(c Credential) (StoreSession, error) {
	if c.name != steam.StoreSessionCookie {
		return StoreSession{}, &steam.ValidationError{
			Field:    "store session name",
			Expected: steam.StoreSessionCookie,
			Got:      c.name,
		}
	}
	if c.domain != steam.StoreDomain {
		return StoreSession{}, &steam.ValidationError{
			Field:    "store session domain",
			Expected: steam.StoreDomain,
			Got:      c.domain,
		}
	}
	return StoreSession{Credential: c}, nil
}
