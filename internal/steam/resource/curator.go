package resource

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"steam-provider/internal/steam/scrape"
	"steam-provider/internal/steam/session"
	"steam-provider/pkg/formenc"

	"github.com/antzucaro/matchr"
)

// RecommendationState is the verdict of a curator review.
type RecommendationState int

const (
	Recommended RecommendationState = iota
	NotRecommended
	Informational
)

func curatorPath(clanId int, action string) string {
	return fmt.Sprintf("/curator/%d/admin/%s", clanId, action)
}

// CuratorListInput creates a list when ListId is empty and overwrites the
// list otherwise.
type CuratorListInput struct {
	ListId    string
	Title     string
	Blurb     string
	AppIds    []int
	Published bool
}

func PutCuratorList(clanId int, list CuratorListInput) Request {
	state := 0
	if list.Published {
		state = 1
	}
	return Request{
		Method: http.MethodPost,
		Site:   session.Store,
		Path:   curatorPath(clanId, "ajaxcreatelist"),
		Form: formenc.Fields{}.
			Add("listid", list.ListId).
			Add("title", list.Title).
			Add("blurb", list.Blurb).
			Add("appids", list.AppIds).
			Add("state", state).
			Add("type", 2),
		Authenticated: true,
	}
}

func DeleteCuratorList(clanId int, listId string) Request {
	return Request{
		Method:        http.MethodPost,
		Site:          session.Store,
		Path:          curatorPath(clanId, "ajaxdeletelist"),
		Form:          formenc.Fields{}.Add("listid", listId),
		Authenticated: true,
	}
}

func GetCuratorLists(clanId int) Request {
	return Request{
		Method:        http.MethodGet,
		Site:          session.Store,
		Path:          curatorPath(clanId, "ajaxgetlists"),
		Authenticated: true,
	}
}

type CuratorReview struct {
	AppId          int
	Blurb          string
	Url            string
	Recommendation RecommendationState
}

func PutCuratorReview(clanId int, review CuratorReview) Request {
	return Request{
		Method: http.MethodPost,
		Site:   session.Store,
		Path:   curatorPath(clanId, "ajaxcreatereview"),
		Form: formenc.Fields{}.
			Add("appid", review.AppId).
			Add("blurb", review.Blurb).
			Add("link_url", review.Url).
			Add("recommendation_state", int(review.Recommendation)),
		Authenticated: true,
	}
}

func DeleteCuratorReviews(clanId int, appIds []int) Request {
	return Request{
		Method:        http.MethodPost,
		Site:          session.Store,
		Path:          curatorPath(clanId, "ajaxdeletereviews"),
		Form:          formenc.Fields{}.Add("delete", appIds),
		Authenticated: true,
	}
}

// CuratorLists executes GetCuratorLists and parses its result.
func (c Client) CuratorLists(ctx context.Context, clanId int) ([]scrape.CuratorList, error) {
	res, err := c.Do(ctx, GetCuratorLists(clanId))
	if err != nil {
		return nil, err
	}
	return scrape.ParseCuratorLists(res.Body)
}

// minListSimilarity is the lowest Jaro-Winkler similarity a title may have
// to be considered a match.
const minListSimilarity = 0.85

// FindCuratorList returns the list whose title is closest to `title`.
func FindCuratorList(lists []scrape.CuratorList, title string) (scrape.CuratorList, bool) {
	type candidate struct {
		list  scrape.CuratorList
		score float64
	}
	var candidates []candidate
	needle := strings.ToLower(strings.TrimSpace(title))
	for _, list := range lists {
		score := matchr.JaroWinkler(needle, strings.ToLower(list.Title), false)
		if score >= minListSimilarity {
			candidates = append(candidates, candidate{list: list, score: score})
		}
	}
	if len(candidates) == 0 {
		return scrape.CuratorList{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	return candidates[0].list, true
}
