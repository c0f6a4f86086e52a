// Package resource holds the single-shot Steam operations. Each operation
// is a Request descriptor, Client.Do executes any of them.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"steam-provider/internal/components/assert"
	"steam-provider/internal/components/telemetry"
	"steam-provider/internal/steam"
	"steam-provider/internal/steam/scrape"
	"steam-provider/internal/steam/session"
	"steam-provider/internal/steam/transport"
	"steam-provider/pkg/formenc"

	"github.com/go-resty/resty/v2"
)

const report_resource_do = "resource.do"

var ErrNoSession = errors.New("resource: request requires a session")

// Request describes one http exchange with a Steam site.
type Request struct {
	Method string
	Site   session.Site
	// Path is relative to the site's base url.
	Path  string
	Query url.Values
	Form  formenc.Fields
	// Authenticated requests carry the session's cookies and echo its
	// session id in the form.
	Authenticated bool
	// CaptureRedirect returns redirects instead of following them.
	CaptureRedirect bool
	Cookies         []*http.Cookie
}

// Result is the provider's response, uninterpreted.
type Result struct {
	StatusCode int
	Location   string
	Body       []byte
}

// Redirected reports if the provider answered with a redirect, only
// possible for requests that capture them.
func (r Result) Redirected() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

func (r Result) Decode(out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return steam.NewParseError(steam.ReasonMalformedJson, "resource result", err)
	}
	return nil
}

// Success reads the provider's result code, a body without one is not
// successful.
func (r Result) Success() bool {
	var res struct {
		Success scrape.ResultCode `json:"success"`
	}
	if json.Unmarshal(r.Body, &res) != nil {
		return false
	}
	return res.Success.OK()
}

type Client struct {
	transport *transport.Client
	session   *session.Session
	tel       telemetry.API
}

func NewClient(t *transport.Client, tel telemetry.API) Client {
	assert.NotNil(t)
	assert.NotNil(tel)
	return Client{
		transport: t,
		tel:       telemetry.NewScopedAPI("steam_resource", tel),
	}
}

// WithSession returns a client that can execute authenticated requests.
func (c Client) WithSession(s session.Session) Client {
	c.session = &s
	return c
}

func (c Client) siteUrl(req Request) string {
	if req.Site == session.Community {
		return c.transport.CommunityUrl(req.Path)
	}
	return c.transport.StoreUrl(req.Path)
}

// Do executes a request. Non-2xx statuses fail with UnexpectedStatusError
// except for captured redirects, anything else the provider answers with
// is returned as-is.
func (c Client) Do(ctx context.Context, req Request) (Result, error) {
	form := req.Form
	if req.Authenticated {
		if c.session == nil {
			return Result{}, ErrNoSession
		}
		c.session.Apply(c.transport.Cookies())
		if req.Method != http.MethodGet {
			form = form.Add(steam.StoreSessionCookie, c.session.SessionId())
		}
	}

	var r *resty.Request
	if req.CaptureRedirect {
		r = c.transport.RNoRedirect(ctx)
	} else {
		r = c.transport.R(ctx)
	}
	if req.Query != nil {
		r.SetQueryParamsFromValues(req.Query)
	}
	if len(req.Cookies) > 0 {
		r.SetCookies(req.Cookies)
	}
	if req.Method != http.MethodGet && len(form) > 0 {
		r.SetHeader("content-type", "application/x-www-form-urlencoded; charset=UTF-8")
		r.SetBody(formenc.Encode(form))
	}

	endpoint := c.siteUrl(req)
	res, err := r.Execute(req.Method, endpoint)
	if err != nil {
		c.tel.ReportBroken(report_resource_do, err, req.Method, endpoint)
		return Result{}, err
	}

	result := Result{
		StatusCode: res.StatusCode(),
		Location:   res.Header().Get("location"),
		Body:       res.Body(),
	}
	if req.CaptureRedirect && result.Redirected() {
		return result, nil
	}
	if err := transport.CheckStatus(res); err != nil {
		c.tel.ReportWarning(report_resource_do, err)
		return result, err
	}
	return result, nil
}
