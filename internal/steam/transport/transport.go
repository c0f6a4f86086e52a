// Package transport is the http collaborator every Steam request goes through.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"steam-provider/internal/components/assert"
	"steam-provider/internal/components/telemetry"
	"steam-provider/internal/steam"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const report_transport_new = "transport.new"

// Endpoints are the base urls of the three Steam sites, they are only
// overridden in tests.
type Endpoints struct {
	Api       string
	Store     string
	Community string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Api:       steam.DefaultApiUrl,
		Store:     steam.DefaultStoreUrl,
		Community: steam.DefaultCommunityUrl,
	}
}

type Options struct {
	Endpoints Endpoints
	// RequestsPerSecond limits the request rate, <= 0 disables limiting.
	RequestsPerSecond float64
	Timeout           time.Duration
	// CloudflareBypass wraps the transport with browser-like TLS settings.
	CloudflareBypass bool
	// Dump receives every completed http exchange, may be nil.
	Dump telemetry.MessageOutput
}

type Client struct {
	api       *url.URL
	store     *url.URL
	community *url.URL

	http       *resty.Client
	noRedirect *resty.Client
	cookies    *CookieStore
	tel        telemetry.API
}

// redactedFields never show up in traffic dumps.
var redactedFields = []string{
	steam.SecureLoginCookie,
	"encrypted_password",
	"access_token",
	"refresh_token",
	"password",
}

func New(tel telemetry.API, opts Options) (*Client, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("steam_transport", tel)

	if opts.Endpoints == (Endpoints{}) {
		opts.Endpoints = DefaultEndpoints()
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}

	api, err := url.Parse(opts.Endpoints.Api)
	if err != nil {
		tel.ReportBroken(report_transport_new, fmt.Errorf("parse api url: %w", err))
		return nil, err
	}
	store, err := url.Parse(opts.Endpoints.Store)
	if err != nil {
		tel.ReportBroken(report_transport_new, fmt.Errorf("parse store url: %w", err))
		return nil, err
	}
	community, err := url.Parse(opts.Endpoints.Community)
	if err != nil {
		tel.ReportBroken(report_transport_new, fmt.Errorf("parse community url: %w", err))
		return nil, err
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	var roundTripper http.RoundTripper = http.DefaultTransport.(*http.Transport).Clone()
	if opts.CloudflareBypass {
		roundTripper = cloudflarebp.AddCloudFlareByPass(roundTripper)
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		// max burst >= 1 just means that no requests will be dropped
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	c := &Client{
		api:       api,
		store:     store,
		community: community,
		tel:       tel,
	}
	c.cookies = newCookieStore(jar, c.SiteUrl)

	newResty := func() *resty.Client {
		httpClient := resty.NewWithClient(&http.Client{
			Jar:       jar,
			Transport: roundTripper,
		})
		httpClient.SetTimeout(opts.Timeout)
		httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
		if limiter != nil {
			httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
				return limiter.Wait(req.Context())
			})
		}
		telemetry.InstrumentResty(httpClient, tel, telemetry.RestyOptions{
			Dump:   opts.Dump,
			Redact: redactedFields,
		})
		return httpClient
	}

	c.http = newResty()
	c.http.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(
		api.Hostname(),
		store.Hostname(),
		community.Hostname(),
		"login.steampowered.com",
		"help.steampowered.com",
	))

	c.noRedirect = newResty()
	c.noRedirect.SetRedirectPolicy(resty.RedirectPolicyFunc(
		func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	))

	return c, nil
}

// R starts a request that follows redirects within Steam's sites.
func (c *Client) R(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx)
}

// RNoRedirect starts a request that returns redirect responses as-is, this is
// how the store signals an unknown identifier.
func (c *Client) RNoRedirect(ctx context.Context) *resty.Request {
	return c.noRedirect.R().SetContext(ctx)
}

func (c *Client) Cookies() *CookieStore {
	return c.cookies
}

func (c *Client) ApiUrl(path string) string {
	return c.api.JoinPath(path).String()
}

func (c *Client) StoreUrl(path string) string {
	return c.store.JoinPath(path).String()
}

func (c *Client) CommunityUrl(path string) string {
	return c.community.JoinPath(path).String()
}

// SiteUrl maps a credential domain onto the base url requests for that
// domain are made to.
func (c *Client) SiteUrl(domain string) *url.URL {
	switch domain {
	case steam.CommunityDomain:
		return c.community
	case steam.StoreDomain:
		return c.store
	}
	return &url.URL{Scheme: "https", Host: domain, Path: "/"}
}

// CheckStatus converts a non-2xx response into an UnexpectedStatusError.
func CheckStatus(res *resty.Response) error {
	if res.IsSuccess() {
		return nil
	}
	return &steam.UnexpectedStatusError{
		Url:        res.Request.URL,
		StatusCode: res.StatusCode(),
	}
}
