package transport

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"steam-provider/internal/steam/credential"
)

type cookieKey struct {
	name   string
	domain string
}

// CookieStore is the cookie store collaborator: credentials stored here are
// sent with every request made to the site their domain resolves to.
type CookieStore struct {
	mutex       sync.Mutex
	jar         *cookiejar.Jar
	resolve     func(domain string) *url.URL
	credentials map[cookieKey]credential.Credential
	order       []cookieKey
}

func newCookieStore(jar *cookiejar.Jar, resolve func(domain string) *url.URL) *CookieStore {
	return &CookieStore{
		jar:         jar,
		resolve:     resolve,
		credentials: make(map[cookieKey]credential.Credential),
	}
}

// Store puts a credential into the jar, replacing any credential with the
// same name and domain.
func (s *CookieStore) Store(c credential.Credential) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := cookieKey{name: c.Name(), domain: c.Domain()}
	if _, exists := s.credentials[key]; !exists {
		s.order = append(s.order, key)
	}
	s.credentials[key] = c

	site := s.resolve(c.Domain())
	cookie := c.Cookie()
	// host-only so the cookie also sticks when the site is remapped (ex. in tests)
	cookie.Domain = ""
	cookie.Secure = c.Secure() && site.Scheme == "https"
	s.jar.SetCookies(site, []*http.Cookie{cookie})
}

// All returns every credential stored, in the order they were first stored.
func (s *CookieStore) All() []credential.Credential {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	out := make([]credential.Credential, len(s.order))
	for i, key := range s.order {
		out[i] = s.credentials[key]
	}
	return out
}

// Lookup finds a cookie the jar would send to the site `domain` resolves to,
// this includes cookies set by the server.
func (s *CookieStore) Lookup(domain, name string) (credential.Credential, bool) {
	site := s.resolve(domain)
	for _, cookie := range s.jar.Cookies(site) {
		if cookie.Name == name {
			return credential.New(cookie.Name, cookie.Value, domain, site.Scheme == "https"), true
		}
	}
	return credential.Credential{}, false
}
