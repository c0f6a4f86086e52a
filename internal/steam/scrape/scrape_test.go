package scrape

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"steam-provider/internal/steam"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/reviews.html
var reviewsHtml string

//go:embed testdata/app.html
var appHtml []byte

//go:embed testdata/dlc.html
var dlcHtml []byte

//go:embed testdata/games.html
var gamesHtml []byte

//go:embed testdata/games_private.html
var gamesPrivateHtml []byte

//go:embed testdata/games_empty.html
var gamesEmptyHtml []byte

//go:embed testdata/curator_lists.json
var curatorListsJson []byte

var now = time.Date(2024, time.October, 15, 13, 30, 0, 0, time.UTC)

func requireReason(t testing.TB, err error, reason steam.ParseReason) {
	t.Helper()
	got, ok := steam.ParseReasonOf(err)
	require.True(t, ok, "expected a parse error, got %v", err)
	require.Equal(t, reason, got)
}

func intPtr(v int) *int {
	return &v
}

func TestParseReviews(t *testing.T) {
	reviews, err := ParseReviews(reviewsHtml, now)
	if err != nil {
		t.Fatal(err)
	}

	expected := []Review{
		{
			ReviewId:        170071669,
			UserId:          22202,
			Positive:        true,
			Date:            time.Date(2020, time.March, 3, 0, 0, 0, 0, time.UTC),
			Source:          SourceSteam,
			PlaytimeMinutes: intPtr(74070),
		},
		{
			ReviewId:        170071670,
			UserId:          4294967295,
			Positive:        false,
			Date:            time.Date(2024, time.July, 14, 0, 0, 0, 0, time.UTC),
			Source:          SourceKey,
			PlaytimeMinutes: intPtr(90),
		},
		{
			ReviewId: 170071671,
			UserId:   1,
			Positive: true,
			Date:     time.Date(2013, time.December, 31, 0, 0, 0, 0, time.UTC),
			Source:   SourceSteam,
		},
	}
	if diff := cmp.Diff(expected, reviews); diff != "" {
		t.Fatal(diff)
	}

	lowerBound := time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC)
	for _, review := range reviews {
		require.True(t, review.Date.After(lowerBound))
		require.True(t, review.Date.Before(now))
		require.Equal(t, review.Date, review.Date.Truncate(24*time.Hour))
	}
}

func TestParseReviewsEmpty(t *testing.T) {
	reviews, err := ParseReviews("", now)
	require.NoError(t, err)
	require.Empty(t, reviews)
}

func TestParseUserId(t *testing.T) {
	for _, invalid := range []string{"0", "4294967296", "-1", "abc", ""} {
		_, err := ParseUserId(invalid)
		requireReason(t, err, steam.ReasonUserId)
	}

	id, err := ParseUserId("4294967295")
	require.NoError(t, err)
	require.Equal(t, uint32(4294967295), id)

	id, err = ParseUserId("1")
	require.NoError(t, err)
	require.Equal(t, uint32(1), id)
}

func TestParseReviewCardFailures(t *testing.T) {
	card := func(replace, with string) string {
		first := reviewsHtml[:strings.Index(reviewsHtml, `<div class="review_box partial">`)]
		return strings.Replace(first, replace, with, 1)
	}

	cases := []struct {
		name        string
		fragment    string
		reason      steam.ParseReason
		recoverable bool
	}{
		{"user id zero", card(`data-miniprofile="22202"`, `data-miniprofile="0"`), steam.ReasonUserId, false},
		{"user id overflow", card(`data-miniprofile="22202"`, `data-miniprofile="4294967296"`), steam.ReasonUserId, false},
		{"miniprofile missing", card(`data-miniprofile="22202"`, ``), steam.ReasonUserId, true},
		{"unknown label", card(`>Recommended<`, `>Maybe<`), steam.ReasonRecommendation, false},
		{"unknown source", card(`icon_review_steam.png`, `icon_review_gift.png`), steam.ReasonSource, false},
		{"bad date", card(`Posted: March 3, 2020`, `Posted 3/3/2020`), steam.ReasonDate, false},
		{"content missing", card(`id="ReviewContentrecentall170071669"`, ``), steam.ReasonReviewId, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseReviews(c.fragment, now)
			requireReason(t, err, c.reason)
			require.Equal(t, c.recoverable, steam.IsRecoverable(err))
		})
	}
}

func TestParsePostedDate(t *testing.T) {
	date, err := ParsePostedDate("Posted: January 2", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC), date)

	// the year is taken from the clock, so this lands in the future
	newYear := time.Date(2025, time.January, 1, 0, 5, 0, 0, time.UTC)
	date, err = ParsePostedDate("Posted: December 31", newYear)
	require.NoError(t, err)
	require.Equal(t, 2025, date.Year())
}

func TestParsePlaytime(t *testing.T) {
	minutes, found, err := ParsePlaytime("0.1 hrs on record (0.1 hrs at review time)")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 6, minutes)

	_, found, err = ParsePlaytime("3.0 hrs on record")
	require.NoError(t, err)
	require.False(t, found)
}

func TestParseReviewTotal(t *testing.T) {
	total, err := ParseReviewTotal(`<div class="user_reviews_summary_row">... the <b>1,234</b> user reviews ...</div>`)
	require.NoError(t, err)
	require.Equal(t, 1234, total)

	total, err = ParseReviewTotal(`<b>0</b>`)
	require.NoError(t, err)
	require.Equal(t, 0, total)

	_, err = ParseReviewTotal(`No user reviews`)
	requireReason(t, err, steam.ReasonTotalMissing)
}

func TestParseReviewPage(t *testing.T) {
	page, err := ParseReviewPage([]byte(`{"success":true,"html":"","recommendationids":[],"cursor":"AoJ4"}`))
	require.NoError(t, err)
	require.True(t, bool(page.Success))
	require.Nil(t, page.ReviewScore)
	require.Equal(t, "AoJ4", page.Cursor)

	page, err = ParseReviewPage([]byte(`{"success":2,"review_score":"<b>3</b>","recommendationids":["1",2]}`))
	require.NoError(t, err)
	require.True(t, bool(page.Success))
	require.NotNil(t, page.ReviewScore)
	require.Len(t, page.RecommendationIds, 2)

	_, err = ParseReviewPage([]byte(`<html>`))
	requireReason(t, err, steam.ReasonMalformedJson)
}

func TestParseAppDetails(t *testing.T) {
	details, err := ParseAppDetails(appHtml)
	if err != nil {
		t.Fatal(err)
	}

	compat := DeckVerified
	release := time.Date(2011, time.April, 18, 0, 0, 0, 0, time.UTC)
	expected := AppDetails{
		AppId:  620,
		Name:   "Portal 2",
		Type:   AppTypeGame,
		Genres: []string{"Action", "Adventure"},
		Tags: []Tag{
			{Id: 1685, Name: "Co-op", Count: 4815},
			{Id: 3871, Name: "Puzzle", Count: 4520},
		},
		Languages:         []string{"English", "French"},
		ReleaseDate:       &release,
		Price:             &Price{Final: 499, Original: 999, DiscountPercent: 50},
		Platforms:         Platforms{Windows: true, Mac: true, Linux: true},
		DeckCompatibility: &compat,
		ReviewScore:       &ReviewScore{Percent: 98, Total: 412345},
		Developers:        []ProfileRef{{Name: "Valve", Vanity: "valve"}},
		Publishers:        []ProfileRef{{Name: "Valve Publishing", CuratorId: 4}},
	}
	if diff := cmp.Diff(expected, details); diff != "" {
		t.Fatal(diff)
	}
}

func TestParseAppDetailsDlc(t *testing.T) {
	details, err := ParseAppDetails(dlcHtml)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 1200, details.AppId)
	require.Equal(t, "Some Game - Soundtrack", details.Name)
	require.Equal(t, AppTypeDlc, details.Type)
	require.Equal(t, 1100, details.ParentAppId)
	require.Nil(t, details.ReleaseDate)
	require.Nil(t, details.DeckCompatibility)
	require.Nil(t, details.ReviewScore)
	require.Equal(t, &Price{Free: true}, details.Price)
	require.Equal(t, Platforms{}, details.Platforms)
}

func TestParseAppDetailsFailures(t *testing.T) {
	html := string(appHtml)

	_, err := ParseAppDetails([]byte(strings.Replace(html, `class="v6 app`, `class="v7 app`, 1)))
	requireReason(t, err, steam.ReasonPageVersion)

	_, err = ParseAppDetails([]byte(strings.Replace(html, `class="v6 app`, `class="v6 sub`, 1)))
	requireReason(t, err, steam.ReasonPageType)

	_, err = ParseAppDetails([]byte(strings.Replace(html, `/app/620/Portal_2/`, `/sub/620/`, 1)))
	requireReason(t, err, steam.ReasonAppIdMissing)

	_, err = ParseAppDetails([]byte(strings.Replace(html, `Portal&nbsp;2</div>`, `</div>`, 1)))
	requireReason(t, err, steam.ReasonAppName)
	require.True(t, steam.IsRecoverable(err))

	_, err = ParseAppDetails([]byte(strings.Replace(html, `resolved_category&quot;:3`, `resolved_category&quot;:7`, 1)))
	requireReason(t, err, steam.ReasonDeckCompatibility)

	_, err = ParseAppDetails([]byte(strings.Replace(html, `data-discount="50"`, `data-discount="lots"`, 1)))
	requireReason(t, err, steam.ReasonPrice)
}

func TestSteamDeckCompatibilityRoundTrip(t *testing.T) {
	for _, compat := range []SteamDeckCompatibility{DeckUnsupported, DeckPlayable, DeckVerified} {
		t.Run(compat.String(), func(t *testing.T) {
			back, ok := SteamDeckCompatibilityFromId(compat.Id())
			require.True(t, ok)
			require.Equal(t, compat, back)
		})
	}
	_, ok := SteamDeckCompatibilityFromId(0)
	require.False(t, ok)
}

func TestParseUserGames(t *testing.T) {
	games, err := ParseUserGames(gamesHtml)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "76561197960287930", games.SteamId)
	require.Equal(t, "Rabscuttle", games.PersonaName)

	expected := []OwnedGame{
		{AppId: 620, Name: "Portal 2", PlaytimeMinutes: 1234, LastPlayed: time.Unix(1700000000, 0).UTC()},
		{AppId: 400, Name: "Portal"},
	}
	if diff := cmp.Diff(expected, games.Games); diff != "" {
		t.Fatal(diff)
	}
}

func TestParseUserGamesFailures(t *testing.T) {
	_, err := ParseUserGames(gamesPrivateHtml)
	requireReason(t, err, steam.ReasonProfilePrivate)

	_, err = ParseUserGames(gamesEmptyHtml)
	requireReason(t, err, steam.ReasonGamesEmpty)

	_, err = ParseUserGames([]byte(`<html><body><script>var x = 1;</script></body></html>`))
	requireReason(t, err, steam.ReasonEmbeddedData)
	require.True(t, steam.IsRecoverable(err))

	missingQuery := strings.Replace(string(gamesHtml), "OwnedGames", "RecentGames", 1)
	_, err = ParseUserGames([]byte(missingQuery))
	requireReason(t, err, steam.ReasonQueryMissing)
}

func TestParseCuratorLists(t *testing.T) {
	lists, err := ParseCuratorLists(curatorListsJson)
	if err != nil {
		t.Fatal(err)
	}
	expected := []CuratorList{
		{ListId: "12345", Title: "Best Puzzle Games", Blurb: "Brain teasers.", AppIds: []int{620, 400}},
		{ListId: "67890", Title: "Cozy Games"},
	}
	if diff := cmp.Diff(expected, lists); diff != "" {
		t.Fatal(diff)
	}

	_, err = ParseCuratorLists([]byte(`{"success":false}`))
	requireReason(t, err, steam.ReasonUnexpectedResponse)
}

func TestSuccessFlag(t *testing.T) {
	cases := map[string]bool{
		`{"success":1}`:     true,
		`{"success":true}`:  true,
		`{"success":"1"}`:   true,
		`{"success":0}`:     false,
		`{"success":false}`: false,
		`{"success":2}`:     true,
		`{"success":42}`:    true,
		`{"success":"-1"}`:  true,
		`{}`:                false,
	}
	for body, expected := range cases {
		t.Run(body, func(t *testing.T) {
			page, err := ParseReviewPage([]byte(body))
			require.NoError(t, err)
			require.Equal(t, expected, bool(page.Success))
		})
	}

	_, err := ParseReviewPage([]byte(`{"success":"yes"}`))
	require.Error(t, err)
	require.True(t, errors.As(err, new(*steam.ParseError)), fmt.Sprint(err))
}

func TestResultCode(t *testing.T) {
	cases := map[string]bool{
		`{"success":1}`:    true,
		`{"success":"1"}`:  true,
		`{"success":true}`: true,
		`{"success":8}`:    false,
		`{"success":2}`:    false,
		`{"success":0}`:    false,
		`{}`:               false,
	}
	for body, expected := range cases {
		t.Run(body, func(t *testing.T) {
			var res struct {
				Success ResultCode `json:"success"`
			}
			require.NoError(t, json.Unmarshal([]byte(body), &res))
			require.Equal(t, expected, res.Success.OK())
		})
	}

	_, err := ParseCuratorLists([]byte(`{"success":8}`))
	requireReason(t, err, steam.ReasonUnexpectedResponse)
}
