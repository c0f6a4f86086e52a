package scrape

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"steam-provider/internal/steam"
	"steam-provider/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	pageVersionToken = "v6"
	pageTypeToken    = "app"
)

var (
	appUrlRegex       = regexp.MustCompile(`/app/(\d+)`)
	tagModalRegex     = regexp.MustCompile(`(?s)InitAppTagModal\(\s*\d+,\s*(\[.*?\]),`)
	reviewScoreRegex  = regexp.MustCompile(`(\d+)% of the ([\d,]+) user reviews`)
	curatorUrlRegex   = regexp.MustCompile(`/curator/(\d+)`)
	developerUrlRegex = regexp.MustCompile(`/(?:developer|publisher|franchise)/([^/?#]+)`)
)

var releaseDateLayouts = []string{
	"Jan 2, 2006",
	"2 Jan, 2006",
	"January 2, 2006",
}

// ParseAppDetails parses a store app page. Every field is extracted on its
// own and fails with its own reason.
func ParseAppDetails(body []byte) (AppDetails, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return AppDetails{}, steam.NewParseError(steam.ReasonMalformedHtml, "app page", err)
	}

	if !htmlutil.HasClassTokens(doc, pageVersionToken) {
		return AppDetails{}, steam.NewParseError(steam.ReasonPageVersion, doc.Find("body").AttrOr("class", ""), nil)
	}
	if !htmlutil.HasClassTokens(doc, pageTypeToken) {
		return AppDetails{}, steam.NewParseError(steam.ReasonPageType, doc.Find("body").AttrOr("class", ""), nil)
	}

	var details AppDetails

	details.AppId, err = parseAppId(doc)
	if err != nil {
		return AppDetails{}, err
	}

	details.Name = htmlutil.Text(doc.Find("#appHubAppName"))
	if details.Name == "" {
		details.Name = htmlutil.Text(doc.Find(".apphub_AppName"))
	}
	if details.Name == "" {
		return AppDetails{}, steam.NewRecoverableMarkupError(steam.ReasonAppName, "app name empty")
	}

	details.Type, details.ParentAppId = parseAppType(doc)

	doc.Find(`#genresAndManufacturer a[href*="/genre/"]`).Each(func(_ int, s *goquery.Selection) {
		details.Genres = append(details.Genres, htmlutil.Text(s))
	})

	details.Tags, err = parseTags(doc)
	if err != nil {
		return AppDetails{}, err
	}

	doc.Find("table.game_language_options tr").Each(func(_ int, row *goquery.Selection) {
		if row.HasClass("unsupported") {
			return
		}
		cell := row.Find("td").First()
		if cell.Length() == 0 {
			return
		}
		details.Languages = append(details.Languages, htmlutil.Text(cell))
	})

	details.ReleaseDate, err = parseReleaseDate(doc)
	if err != nil {
		return AppDetails{}, err
	}

	details.Price, err = parsePrice(doc)
	if err != nil {
		return AppDetails{}, err
	}

	platforms := doc.Find(".game_area_purchase_platform").First()
	if platforms.Length() == 0 {
		platforms = doc.Selection
	}
	details.Platforms = Platforms{
		Windows: platforms.Find(".platform_img.win").Length() > 0,
		Mac:     platforms.Find(".platform_img.mac").Length() > 0,
		Linux:   platforms.Find(".platform_img.linux").Length() > 0,
	}

	details.DeckCompatibility, err = parseDeckCompatibility(doc)
	if err != nil {
		return AppDetails{}, err
	}

	details.ReviewScore, err = parseReviewScore(doc)
	if err != nil {
		return AppDetails{}, err
	}

	doc.Find(".dev_row").Each(func(_ int, row *goquery.Selection) {
		label := strings.ToLower(htmlutil.Text(row.Find(".subtitle")))
		var refs []ProfileRef
		row.Find("a").Each(func(_ int, a *goquery.Selection) {
			refs = append(refs, parseProfileRef(a))
		})
		switch {
		case strings.HasPrefix(label, "developer"):
			details.Developers = append(details.Developers, refs...)
		case strings.HasPrefix(label, "publisher"):
			details.Publishers = append(details.Publishers, refs...)
		}
	})

	return details, nil
}

func parseAppId(doc *goquery.Document) (int, error) {
	canonical := doc.Find(`link[rel="canonical"]`).AttrOr("href", "")
	groups := appUrlRegex.FindStringSubmatch(canonical)
	if len(groups) < 2 {
		return 0, steam.NewParseError(steam.ReasonAppIdMissing, canonical, nil)
	}
	id, err := strconv.Atoi(groups[1])
	if err != nil {
		return 0, steam.NewParseError(steam.ReasonAppIdMissing, canonical, err)
	}
	return id, nil
}

func parentAppId(bubble *goquery.Selection) int {
	var parent int
	bubble.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		groups := appUrlRegex.FindStringSubmatch(a.AttrOr("href", ""))
		if len(groups) < 2 {
			return true
		}
		parent, _ = strconv.Atoi(groups[1])
		return false
	})
	return parent
}

func parseAppType(doc *goquery.Document) (AppType, int) {
	if bubble := doc.Find(".game_area_dlc_bubble"); bubble.Length() > 0 {
		return AppTypeDlc, parentAppId(bubble)
	}
	if bubble := doc.Find(".game_area_demo_bubble"); bubble.Length() > 0 {
		return AppTypeDemo, parentAppId(bubble)
	}
	if bubble := doc.Find(".game_area_mod_bubble"); bubble.Length() > 0 {
		return AppTypeMod, parentAppId(bubble)
	}
	isSeries := false
	doc.Find(".breadcrumbs a").Each(func(_ int, a *goquery.Selection) {
		if htmlutil.Text(a) == "All Videos" {
			isSeries = true
		}
	})
	if isSeries {
		return AppTypeSeries, 0
	}
	return AppTypeGame, 0
}

func parseTags(doc *goquery.Document) ([]Tag, error) {
	script, found := htmlutil.ScriptContaining(doc, "InitAppTagModal")
	if !found {
		return nil, nil
	}
	groups := tagModalRegex.FindStringSubmatch(script)
	if len(groups) < 2 {
		return nil, steam.NewParseError(steam.ReasonTags, "tag modal arguments", nil)
	}
	var tags []Tag
	if err := json.Unmarshal([]byte(groups[1]), &tags); err != nil {
		return nil, steam.NewParseError(steam.ReasonTags, "tag json", err)
	}
	return tags, nil
}

func parseReleaseDate(doc *goquery.Document) (*time.Time, error) {
	date := doc.Find(".release_date .date")
	if date.Length() == 0 {
		return nil, nil
	}
	text := htmlutil.Text(date)
	if text == "" {
		return nil, steam.NewRecoverableMarkupError(steam.ReasonReleaseDate, "release date empty")
	}
	for _, layout := range releaseDateLayouts {
		parsed, err := time.Parse(layout, text)
		if err == nil {
			return &parsed, nil
		}
	}
	// "Coming soon", "Q3 2025" and the like
	return nil, nil
}

func parseCents(text string) (int, error) {
	digits := nonDigitRegex.ReplaceAllString(text, "")
	return strconv.Atoi(digits)
}

func parsePrice(doc *goquery.Document) (*Price, error) {
	area := doc.Find(".game_area_purchase_game").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.ParentsFiltered(".dynamic_bundle_description").Length() == 0
	}).First()
	if area.Length() == 0 {
		return nil, nil
	}

	if discount := area.Find(".discount_block[data-price-final]").First(); discount.Length() > 0 {
		final, err := strconv.Atoi(discount.AttrOr("data-price-final", ""))
		if err != nil {
			return nil, steam.NewParseError(steam.ReasonPrice, "discount final price", err)
		}
		price := &Price{Final: final, Original: final}
		if percent := discount.AttrOr("data-discount", ""); percent != "" {
			price.DiscountPercent, err = strconv.Atoi(percent)
			if err != nil {
				return nil, steam.NewParseError(steam.ReasonPrice, "discount percent", err)
			}
		}
		if original := discount.Find(".discount_original_price"); original.Length() > 0 {
			price.Original, err = parseCents(htmlutil.Text(original))
			if err != nil {
				return nil, steam.NewParseError(steam.ReasonPrice, "original price", err)
			}
		}
		return price, nil
	}

	if regular := area.Find(".game_purchase_price[data-price-final]").First(); regular.Length() > 0 {
		final, err := strconv.Atoi(regular.AttrOr("data-price-final", ""))
		if err != nil {
			return nil, steam.NewParseError(steam.ReasonPrice, "final price", err)
		}
		return &Price{Final: final, Original: final}, nil
	}

	text := strings.ToLower(htmlutil.Text(area.Find(".game_purchase_price, .game_purchase_action")))
	if strings.Contains(text, "free") {
		return &Price{Free: true}, nil
	}
	return nil, steam.NewParseError(steam.ReasonPrice, text, nil)
}

type deckProps struct {
	ResolvedCategory int `json:"resolved_category"`
}

func parseDeckCompatibility(doc *goquery.Document) (*SteamDeckCompatibility, error) {
	props, ok := doc.Find(`[data-featuretarget="deck-verified-results"]`).Attr("data-props")
	if !ok {
		return nil, nil
	}
	var parsed deckProps
	if err := json.Unmarshal([]byte(props), &parsed); err != nil {
		return nil, steam.NewParseError(steam.ReasonDeckCompatibility, "deck props", err)
	}
	if parsed.ResolvedCategory == 0 {
		// unknown
		return nil, nil
	}
	compat, ok := SteamDeckCompatibilityFromId(parsed.ResolvedCategory)
	if !ok {
		return nil, steam.NewParseError(steam.ReasonDeckCompatibility, strconv.Itoa(parsed.ResolvedCategory), nil)
	}
	return &compat, nil
}

func parseReviewScore(doc *goquery.Document) (*ReviewScore, error) {
	tooltip, ok := doc.Find(".user_reviews_summary_row[data-tooltip-html]").First().Attr("data-tooltip-html")
	if !ok {
		return nil, nil
	}
	groups := reviewScoreRegex.FindStringSubmatch(tooltip)
	if len(groups) < 3 {
		// not enough reviews for a score yet
		return nil, nil
	}
	percent, err := strconv.Atoi(groups[1])
	if err != nil {
		return nil, steam.NewParseError(steam.ReasonReviewScore, groups[1], err)
	}
	total, err := strconv.Atoi(strings.ReplaceAll(groups[2], ",", ""))
	if err != nil {
		return nil, steam.NewParseError(steam.ReasonReviewScore, groups[2], err)
	}
	return &ReviewScore{Percent: percent, Total: total}, nil
}

func parseProfileRef(a *goquery.Selection) ProfileRef {
	ref := ProfileRef{Name: htmlutil.Text(a)}
	href := a.AttrOr("href", "")
	if groups := curatorUrlRegex.FindStringSubmatch(href); len(groups) == 2 {
		ref.CuratorId, _ = strconv.Atoi(groups[1])
		return ref
	}
	if groups := developerUrlRegex.FindStringSubmatch(href); len(groups) == 2 {
		ref.Vanity = groups[1]
	}
	return ref
}
