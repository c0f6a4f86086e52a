// Package steam holds what every part of the Steam provider shares: the site
// domains, the cookie names sessions are built from and the error taxonomy.
package steam

const (
	StoreDomain     = "store.steampowered.com"
	CommunityDomain = "steamcommunity.com"

	// SecureLoginCookie is the cookie holding "{steamid}||{access token}".
	SecureLoginCookie = "steamLoginSecure"
	// StoreSessionCookie is the CSRF session id the store and community
	// echo back in form bodies.
	StoreSessionCookie = "sessionid"
)

const (
	DefaultApiUrl       = "https://api.steampowered.com"
	DefaultStoreUrl     = "https://" + StoreDomain
	DefaultCommunityUrl = "https://" + CommunityDomain
)
