// Package scrape turns raw Steam payloads into typed records. Every parser
// here is pure: no I/O, the clock is passed in.
package scrape

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"steam-provider/internal/steam"
	"steam-provider/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

var (
	totalRegex    = regexp.MustCompile(`<b>([\d,]+)</b>`)
	nonDigitRegex = regexp.MustCompile(`\D`)
	postedRegex   = regexp.MustCompile(`Posted: ([A-Za-z]+) (\d{1,2})(?:, (\d{4}))?`)
	hoursRegex    = regexp.MustCompile(`\(([\d,.]+) hrs at review time\)`)
)

const (
	recommendedLabel    = "Recommended"
	notRecommendedLabel = "Not Recommended"

	steamSourceIcon = "icon_review_steam.png"
	keySourceIcon   = "icon_review_key.png"
)

// ParseReviewPage decodes one response of the reviews endpoint.
func ParseReviewPage(body []byte) (ReviewPage, error) {
	var page ReviewPage
	if err := json.Unmarshal(body, &page); err != nil {
		return ReviewPage{}, steam.NewParseError(steam.ReasonMalformedJson, "review page", err)
	}
	return page, nil
}

// ParseReviewTotal extracts the review count from the review score
// fragment, ex. `... of the <b>1,234</b> user reviews ...`.
func ParseReviewTotal(fragment string) (int, error) {
	groups := totalRegex.FindStringSubmatch(fragment)
	if len(groups) < 2 {
		return 0, steam.NewParseError(steam.ReasonTotalMissing, fragment, nil)
	}
	total, err := strconv.Atoi(strings.ReplaceAll(groups[1], ",", ""))
	if err != nil {
		return 0, steam.NewParseError(steam.ReasonTotalMalformed, groups[1], err)
	}
	return total, nil
}

// ParseReviews parses every review card in an html fragment. `now` decides
// the year of dates the page prints without one.
func ParseReviews(fragment string, now time.Time) ([]Review, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, steam.NewParseError(steam.ReasonMalformedHtml, "review cards", err)
	}

	var reviews []Review
	for _, node := range doc.Find("div.review_box").Nodes {
		review, err := ParseReviewCard(goquery.NewDocumentFromNode(node).Selection, now)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}

// ParseReviewCard parses a single `div.review_box`.
func ParseReviewCard(card *goquery.Selection, now time.Time) (Review, error) {
	var review Review

	contentId, ok := card.Find("[id^=ReviewContent]").Attr("id")
	if !ok {
		return Review{}, steam.NewRecoverableMarkupError(steam.ReasonReviewId, "review content element missing")
	}
	reviewId, err := strconv.ParseInt(nonDigitRegex.ReplaceAllString(contentId, ""), 10, 64)
	if err != nil {
		return Review{}, steam.NewParseError(steam.ReasonReviewId, contentId, err)
	}
	review.ReviewId = reviewId

	miniprofile, ok := card.Find("[data-miniprofile]").Attr("data-miniprofile")
	if !ok {
		return Review{}, steam.NewRecoverableMarkupError(steam.ReasonUserId, "miniprofile missing")
	}
	userId, err := ParseUserId(miniprofile)
	if err != nil {
		return Review{}, err
	}
	review.UserId = userId

	title := card.Find(".title")
	if title.Length() == 0 {
		return Review{}, steam.NewRecoverableMarkupError(steam.ReasonRecommendation, "title missing")
	}
	switch htmlutil.Text(title) {
	case recommendedLabel:
		review.Positive = true
	case notRecommendedLabel:
		review.Positive = false
	default:
		return Review{}, steam.NewParseError(steam.ReasonRecommendation, htmlutil.Text(title), nil)
	}

	posted := card.Find(".postedDate")
	if posted.Length() == 0 {
		return Review{}, steam.NewRecoverableMarkupError(steam.ReasonDate, "posted date missing")
	}
	date, err := ParsePostedDate(htmlutil.Text(posted), now)
	if err != nil {
		return Review{}, err
	}
	review.Date = date

	icon, ok := card.Find(".review_source img").Attr("src")
	if !ok {
		return Review{}, steam.NewRecoverableMarkupError(steam.ReasonSource, "source icon missing")
	}
	source, err := ParseSource(icon)
	if err != nil {
		return Review{}, err
	}
	review.Source = source

	hours := card.Find(".hours")
	if hours.Length() > 0 {
		playtime, found, err := ParsePlaytime(htmlutil.Text(hours))
		if err != nil {
			return Review{}, err
		}
		if found {
			review.PlaytimeMinutes = &playtime
		}
	}

	return review, nil
}

// ParseUserId accepts account ids in [1, 2^32-1].
func ParseUserId(text string) (uint32, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, steam.NewParseError(steam.ReasonUserId, text, err)
	}
	if id < 1 || id > math.MaxUint32 {
		return 0, steam.NewParseError(steam.ReasonUserId, fmt.Sprintf("%d out of range", id), nil)
	}
	return uint32(id), nil
}

// ParsePostedDate parses "Posted: March 3[, 2020]". The year is omitted when
// it is the current one, so a review posted on Dec 31 and read on Jan 1
// lands in the wrong year.
func ParsePostedDate(text string, now time.Time) (time.Time, error) {
	groups := postedRegex.FindStringSubmatch(text)
	if len(groups) < 4 {
		return time.Time{}, steam.NewParseError(steam.ReasonDate, text, nil)
	}
	year := groups[3]
	if year == "" {
		year = strconv.Itoa(now.Year())
	}
	date, err := time.Parse("January 2 2006", fmt.Sprintf("%s %s %s", groups[1], groups[2], year))
	if err != nil {
		return time.Time{}, steam.NewParseError(steam.ReasonDate, text, err)
	}
	return date, nil
}

func ParseSource(iconUrl string) (Source, error) {
	iconUrl = strings.SplitN(iconUrl, "?", 2)[0]
	switch {
	case strings.HasSuffix(iconUrl, steamSourceIcon):
		return SourceSteam, nil
	case strings.HasSuffix(iconUrl, keySourceIcon):
		return SourceKey, nil
	}
	return 0, steam.NewParseError(steam.ReasonSource, iconUrl, nil)
}

// ParsePlaytime returns the playtime at review time in minutes, found is
// false when the text carries no such fragment.
func ParsePlaytime(text string) (minutes int, found bool, err error) {
	groups := hoursRegex.FindStringSubmatch(text)
	if len(groups) < 2 {
		return 0, false, nil
	}
	hours, err := strconv.ParseFloat(strings.ReplaceAll(groups[1], ",", ""), 64)
	if err != nil {
		return 0, false, steam.NewParseError(steam.ReasonPlaytime, groups[1], err)
	}
	return int(hours * 60), true, nil
}
