package scrape

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"steam-provider/internal/steam"
	"steam-provider/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	renderContextMarker = "window.SSR.renderContext=JSON.parse("

	playerLinkDetailsQuery = "PlayerLinkDetails"
	ownedGamesQuery        = "OwnedGames"

	// visibility states below this are private or friends only
	publicVisibilityState = 3
)

type renderContext struct {
	QueryData string `json:"queryData"`
}

type renderQuery struct {
	QueryKey []json.RawMessage `json:"queryKey"`
	State    struct {
		Data json.RawMessage `json:"data"`
	} `json:"state"`
}

type renderQueries struct {
	Queries []renderQuery `json:"queries"`
}

type playerLinkDetails struct {
	PublicData struct {
		SteamId         string `json:"steamid"`
		VisibilityState int    `json:"visibility_state"`
		PersonaName     string `json:"persona_name"`
	} `json:"public_data"`
}

type ownedGame struct {
	AppId           int    `json:"appid"`
	Name            string `json:"name"`
	PlaytimeForever int    `json:"playtime_forever"`
	LastPlayed      int64  `json:"rtime_last_played"`
}

func (q renderQueries) find(name string) (json.RawMessage, bool) {
	for _, query := range q.Queries {
		if len(query.QueryKey) == 0 {
			continue
		}
		var key string
		if err := json.Unmarshal(query.QueryKey[0], &key); err != nil {
			continue
		}
		if key == name {
			return query.State.Data, true
		}
	}
	return nil, false
}

// ParseUserGames parses a community profile's games page. The data lives in
// a script as a JSON string literal, holding an object whose `queryData` is
// itself JSON encoded.
func ParseUserGames(body []byte) (UserGames, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return UserGames{}, steam.NewParseError(steam.ReasonMalformedHtml, "games page", err)
	}

	script, found := htmlutil.ScriptContaining(doc, renderContextMarker)
	if !found {
		return UserGames{}, steam.NewRecoverableMarkupError(steam.ReasonEmbeddedData, renderContextMarker)
	}
	literal := script[strings.Index(script, renderContextMarker)+len(renderContextMarker):]

	var encodedContext string
	if err := json.NewDecoder(strings.NewReader(literal)).Decode(&encodedContext); err != nil {
		return UserGames{}, steam.NewParseError(steam.ReasonEmbeddedData, "render context literal", err)
	}
	var renderCtx renderContext
	if err := json.Unmarshal([]byte(encodedContext), &renderCtx); err != nil {
		return UserGames{}, steam.NewParseError(steam.ReasonEmbeddedData, "render context", err)
	}
	var queries renderQueries
	if err := json.Unmarshal([]byte(renderCtx.QueryData), &queries); err != nil {
		return UserGames{}, steam.NewParseError(steam.ReasonEmbeddedData, "query data", err)
	}

	rawDetails, found := queries.find(playerLinkDetailsQuery)
	if !found {
		return UserGames{}, steam.NewParseError(steam.ReasonQueryMissing, playerLinkDetailsQuery, nil)
	}
	var details playerLinkDetails
	if err := json.Unmarshal(rawDetails, &details); err != nil {
		return UserGames{}, steam.NewParseError(steam.ReasonMalformedJson, playerLinkDetailsQuery, err)
	}
	if details.PublicData.VisibilityState < publicVisibilityState {
		return UserGames{}, steam.NewParseError(steam.ReasonProfilePrivate, details.PublicData.SteamId, nil)
	}

	rawGames, found := queries.find(ownedGamesQuery)
	if !found {
		return UserGames{}, steam.NewParseError(steam.ReasonQueryMissing, ownedGamesQuery, nil)
	}
	var owned []ownedGame
	if err := json.Unmarshal(rawGames, &owned); err != nil {
		return UserGames{}, steam.NewParseError(steam.ReasonMalformedJson, ownedGamesQuery, err)
	}
	if len(owned) == 0 {
		return UserGames{}, steam.NewParseError(steam.ReasonGamesEmpty, details.PublicData.SteamId, nil)
	}

	games := UserGames{
		SteamId:     details.PublicData.SteamId,
		PersonaName: details.PublicData.PersonaName,
		Games:       make([]OwnedGame, len(owned)),
	}
	for i, game := range owned {
		games.Games[i] = OwnedGame{
			AppId:           game.AppId,
			Name:            game.Name,
			PlaytimeMinutes: game.PlaytimeForever,
		}
		if game.LastPlayed > 0 {
			games.Games[i].LastPlayed = time.Unix(game.LastPlayed, 0).UTC()
		}
	}
	return games, nil
}
