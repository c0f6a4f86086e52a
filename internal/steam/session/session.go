package session

import (
	"context"

	"steam-provider/internal/steam"
	"steam-provider/internal/steam/credential"
	"steam-provider/internal/steam/transport"
)

// Site is the Steam site a session acts against.
type Site int

const (
	// Store sessions act as a curator.
	Store Site = iota
	Community
)

func (s Site) Domain() string {
	if s == Community {
		return steam.CommunityDomain
	}
	return steam.StoreDomain
}

func (s Site) String() string {
	if s == Community {
		return "community"
	}
	return "store"
}

// Session bundles a secure login and a store session id, both already
// asserted to the site's domain. It is read-only once created.
type Session struct {
	site         Site
	secureLogin  credential.SecureLogin
	storeSession credential.StoreSession
	payload      *LoginPayload
}

// Create logs in and mints a store session tied to that login.
func Create(ctx context.Context, n Negotiator, site Site, username, password string) (Session, error) {
	payload, login, err := n.Login(ctx, username, password)
	if err != nil {
		return Session{}, err
	}
	s, err := CreateFromCredential(ctx, n, site, login)
	if err != nil {
		return Session{}, err
	}
	s.payload = &payload
	return s, nil
}

// CreateFromCredential skips the login handshake and reuses a secure login
// from an earlier one. Nothing renews it, an expired credential shows up as
// redirects or 401s from the resources using the session.
func CreateFromCredential(ctx context.Context, n Negotiator, site Site, login credential.SecureLogin) (Session, error) {
	// the store session id is bound to whoever requests it
	n.client.Cookies().Store(login.WithDomain(steam.StoreDomain).Credential)

	storeSession, err := n.CreateStoreSession(ctx)
	if err != nil {
		return Session{}, err
	}
	return Session{
		site:         site,
		secureLogin:  login.WithDomain(site.Domain()),
		storeSession: storeSession,
	}, nil
}

func (s Session) Site() Site {
	return s.site
}

func (s Session) SecureLogin() credential.SecureLogin {
	return s.secureLogin
}

// SessionId is the value forms posted under this session must echo.
func (s Session) SessionId() string {
	return s.storeSession.Value()
}

// Payload is only present on sessions made by Create.
func (s Session) Payload() (LoginPayload, bool) {
	if s.payload == nil {
		return LoginPayload{}, false
	}
	return *s.payload, true
}

// Credentials returns the cookies requests under this session carry.
func (s Session) Credentials() []credential.Credential {
	return []credential.Credential{
		s.secureLogin.Credential,
		s.storeSession.WithDomain(s.site.Domain()),
	}
}

// Apply stores the session's credentials in a cookie store.
func (s Session) Apply(cookies *transport.CookieStore) {
	for _, c := range s.Credentials() {
		cookies.Store(c)
	}
}
