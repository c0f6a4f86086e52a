package scrape

import (
	"encoding/json"
	"strconv"

	"steam-provider/internal/steam"
)

type curatorListsResponse struct {
	Success ResultCode `json:"success"`
	Lists   []struct {
		ListId json.Number `json:"listid"`
		Title  string      `json:"title"`
		Blurb  string      `json:"blurb"`
		Apps   []struct {
			AppId json.Number `json:"appid"`
		} `json:"apps"`
	} `json:"lists"`
}

// ParseCuratorLists decodes the curator admin's list of lists.
func ParseCuratorLists(body []byte) ([]CuratorList, error) {
	var res curatorListsResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, steam.NewParseError(steam.ReasonMalformedJson, "curator lists", err)
	}
	if !res.Success.OK() {
		return nil, steam.NewParseError(steam.ReasonUnexpectedResponse, string(body), nil)
	}

	lists := make([]CuratorList, len(res.Lists))
	for i, list := range res.Lists {
		lists[i] = CuratorList{
			ListId: list.ListId.String(),
			Title:  list.Title,
			Blurb:  list.Blurb,
		}
		for _, app := range list.Apps {
			id, err := strconv.Atoi(app.AppId.String())
			if err != nil {
				return nil, steam.NewParseError(steam.ReasonMalformedJson, "curator list app id", err)
			}
			lists[i].AppIds = append(lists[i].AppIds, id)
		}
	}
	return lists, nil
}
