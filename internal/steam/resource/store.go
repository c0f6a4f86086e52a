package resource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"steam-provider/internal/steam"
	"steam-provider/internal/steam/scrape"
	"steam-provider/internal/steam/session"
)

// GetAppDetails captures redirects, the store redirects unknown apps to
// its front page.
func GetAppDetails(appId int) Request {
	return Request{
		Method: http.MethodGet,
		Site:   session.Store,
		Path:   fmt.Sprintf("/app/%d/", appId),
		Query:  url.Values{"l": {"english"}, "cc": {"us"}},
		// skips the age gate
		Cookies: []*http.Cookie{
			{Name: "birthtime", Value: "0"},
			{Name: "wants_mature_content", Value: "1"},
		},
		CaptureRedirect: true,
	}
}

func GetUserGames(steamId string) Request {
	return Request{
		Method: http.MethodGet,
		Site:   session.Community,
		Path:   fmt.Sprintf("/profiles/%s/games/", steamId),
		Query:  url.Values{"tab": {"all"}, "l": {"english"}},
	}
}

func (c Client) AppDetails(ctx context.Context, appId int) (scrape.AppDetails, error) {
	res, err := c.Do(ctx, GetAppDetails(appId))
	if err != nil {
		return scrape.AppDetails{}, err
	}
	if res.Redirected() {
		return scrape.AppDetails{}, &steam.InvalidTargetError{
			Target: fmt.Sprintf("app %d (redirected to %s)", appId, res.Location),
		}
	}
	return scrape.ParseAppDetails(res.Body)
}

func (c Client) UserGames(ctx context.Context, steamId string) (scrape.UserGames, error) {
	res, err := c.Do(ctx, GetUserGames(steamId))
	if err != nil {
		return scrape.UserGames{}, err
	}
	return scrape.ParseUserGames(res.Body)
}
