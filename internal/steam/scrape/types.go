package scrape

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Success is the review endpoint's success flag, true or any non-zero number.
type Success bool

func (s *Success) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	switch string(data) {
	case "true":
		*s = true
		return nil
	case "false", "null", "":
		*s = false
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("success flag: %w", err)
	}
	*s = n != 0
	return nil
}

// ResultCode is the result code the curator admin endpoints answer with in
// their success field. Only 1 is OK, 8 for instance is an invalid parameter.
type ResultCode int

func (c *ResultCode) UnmarshalJSON(data []byte) error {
	var flag Success
	if err := flag.UnmarshalJSON(data); err != nil {
		return err
	}
	n, err := strconv.Atoi(string(bytes.Trim(data, `"`)))
	switch {
	case err == nil:
		*c = ResultCode(n)
	case bool(flag):
		*c = 1
	default:
		*c = 0
	}
	return nil
}

func (c ResultCode) OK() bool {
	return c == 1
}

// Source is where the reviewer got the product from.
type Source int

const (
	// SourceSteam is a purchase on the platform itself.
	SourceSteam Source = iota
	// SourceKey is a product key activated on the platform.
	SourceKey
)

func (s Source) String() string {
	switch s {
	case SourceSteam:
		return "steam"
	case SourceKey:
		return "key"
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

type Review struct {
	ReviewId int64
	UserId   uint32
	Positive bool
	// Date is at UTC midnight.
	Date   time.Time
	Source Source
	// PlaytimeMinutes is nil when the card does not show playtime at review time.
	PlaytimeMinutes *int
}

// ReviewPage is one response of the reviews endpoint.
type ReviewPage struct {
	Success           Success           `json:"success"`
	ReviewScore       *string           `json:"review_score"`
	RecommendationIds []json.RawMessage `json:"recommendationids"`
	Html              string            `json:"html"`
	Cursor            string            `json:"cursor"`
}

type AppType int

const (
	AppTypeGame AppType = iota
	AppTypeDlc
	AppTypeDemo
	AppTypeMod
	AppTypeSeries
)

func (t AppType) String() string {
	switch t {
	case AppTypeGame:
		return "game"
	case AppTypeDlc:
		return "dlc"
	case AppTypeDemo:
		return "demo"
	case AppTypeMod:
		return "mod"
	case AppTypeSeries:
		return "series"
	}
	return fmt.Sprintf("AppType(%d)", int(t))
}

// SteamDeckCompatibility mirrors the store's resolved deck category.
type SteamDeckCompatibility int

const (
	DeckUnsupported SteamDeckCompatibility = iota + 1
	DeckPlayable
	DeckVerified
)

var deckCompatibilityIds = map[SteamDeckCompatibility]int{
	DeckUnsupported: 1,
	DeckPlayable:    2,
	DeckVerified:    3,
}

// SteamDeckCompatibilityFromId maps the store's category id onto the enum.
func SteamDeckCompatibilityFromId(id int) (SteamDeckCompatibility, bool) {
	for compat, compatId := range deckCompatibilityIds {
		if compatId == id {
			return compat, true
		}
	}
	return 0, false
}

func (c SteamDeckCompatibility) Id() int {
	return deckCompatibilityIds[c]
}

func (c SteamDeckCompatibility) String() string {
	switch c {
	case DeckUnsupported:
		return "unsupported"
	case DeckPlayable:
		return "playable"
	case DeckVerified:
		return "verified"
	}
	return fmt.Sprintf("SteamDeckCompatibility(%d)", int(c))
}

type Tag struct {
	Id    int    `json:"tagid"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Price amounts are in cents of the store's currency.
type Price struct {
	Free            bool
	Final           int
	Original        int
	DiscountPercent int
}

type Platforms struct {
	Windows bool
	Mac     bool
	Linux   bool
}

type ReviewScore struct {
	Percent int
	Total   int
}

// ProfileRef points at a developer or publisher, by curator id when the
// store links to a curator page and by vanity name otherwise.
type ProfileRef struct {
	Name      string
	CuratorId int
	Vanity    string
}

type AppDetails struct {
	AppId int
	Name  string
	Type  AppType
	// ParentAppId is set for DLC and demos.
	ParentAppId int
	Genres      []string
	Tags        []Tag
	Languages   []string
	// ReleaseDate is nil while the store shows no concrete date.
	ReleaseDate       *time.Time
	Price             *Price
	Platforms         Platforms
	DeckCompatibility *SteamDeckCompatibility
	ReviewScore       *ReviewScore
	Developers        []ProfileRef
	Publishers        []ProfileRef
}

type OwnedGame struct {
	AppId           int
	Name            string
	PlaytimeMinutes int
	LastPlayed      time.Time
}

type UserGames struct {
	SteamId     string
	PersonaName string
	Games       []OwnedGame
}

type CuratorList struct {
	ListId string
	Title  string
	Blurb  string
	AppIds []int
}
