package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"steam-provider/internal/components/chrono"
	"steam-provider/internal/components/telemetry"
	"steam-provider/internal/steam"
	"steam-provider/internal/steam/credential"
	"steam-provider/internal/steam/session"
	"steam-provider/internal/steam/transport"

	"github.com/stretchr/testify/require"
)

type page struct {
	status      int
	success     any
	reviewScore *string
	ids         []int
	html        *string
	cursor      string
}

type fakeReviews struct {
	t     *testing.T
	mutex sync.Mutex
	pages []page
	// cursors requested in order
	cursors   []string
	lastQuery map[string]string
	// cookies sent with each review page request
	cookies []map[string]string
}

func score(total int) *string {
	s := fmt.Sprintf(`<div class="user_reviews_summary_row">Of the <b>%s</b> user reviews</div>`, commas(total))
	return &s
}

func commas(n int) string {
	s := fmt.Sprint(n)
	var out []string
	for len(s) > 3 {
		out = append([]string{s[len(s)-3:]}, out...)
		s = s[:len(s)-3]
	}
	return strings.Join(append([]string{s}, out...), ",")
}

func card(id int) string {
	return fmt.Sprintf(`<div class="review_box">
	<div class="avatar"><a href="#" data-miniprofile="%d"></a></div>
	<div class="title ellipsis">Recommended</div>
	<div class="hours">2.0 hrs on record (1.0 hrs at review time)</div>
	<div class="postedDate">Posted: March 3, 2020</div>
	<div class="review_source"><img src="https://store.akamai.steamstatic.com/public/images/v6/icon_review_steam.png"></div>
	<div class="content" id="ReviewContentrecentall%d">review</div>
</div>`, id+1000, id)
}

func reviewPage(from, to int, cursor string) page {
	var ids []int
	for id := from; id < to; id++ {
		ids = append(ids, id)
	}
	return page{ids: ids, cursor: cursor}
}

func emptyPage() page {
	return page{ids: []int{}, cursor: "ignored"}
}

func (f *fakeReviews) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if r.URL.Path == "/store/" {
		http.SetCookie(w, &http.Cookie{Name: steam.StoreSessionCookie, Value: "5e55i0n", Path: "/"})
		return
	}
	if !strings.HasPrefix(r.URL.Path, "/store/appreviews/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	f.lastQuery = map[string]string{}
	for key := range r.URL.Query() {
		f.lastQuery[key] = r.URL.Query().Get(key)
	}
	f.cursors = append(f.cursors, r.URL.Query().Get("cursor"))
	sent := map[string]string{}
	for _, cookie := range r.Cookies() {
		sent[cookie.Name] = cookie.Value
	}
	f.cookies = append(f.cookies, sent)
	if len(f.pages) == 0 {
		f.t.Errorf("unexpected request for cursor %s", r.URL.Query().Get("cursor"))
		w.WriteHeader(http.StatusTeapot)
		return
	}
	p := f.pages[0]
	f.pages = f.pages[1:]

	if p.status != 0 {
		w.WriteHeader(p.status)
		return
	}

	body := map[string]any{
		"success":           1,
		"recommendationids": p.ids,
		"cursor":            p.cursor,
	}
	if p.success != nil {
		body["success"] = p.success
	}
	if p.reviewScore != nil {
		body["review_score"] = *p.reviewScore
	}
	if p.html != nil {
		body["html"] = *p.html
	} else {
		var html strings.Builder
		for _, id := range p.ids {
			html.WriteString(card(id))
		}
		body["html"] = html.String()
	}

	w.Header().Set("content-type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		panic(err)
	}
}

func (f *fakeReviews) requestedCursors() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]string(nil), f.cursors...)
}

func (f *fakeReviews) sentCookies() []map[string]string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]map[string]string(nil), f.cookies...)
}

func (f *fakeReviews) query() map[string]string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.lastQuery
}

func newClient(t *testing.T, server *httptest.Server) *transport.Client {
	client, err := transport.New(&telemetry.RecordingAPI{}, transport.Options{
		Endpoints: transport.Endpoints{
			Api:       server.URL,
			Store:     server.URL + "/store",
			Community: server.URL + "/community",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func newFetcherServer(t *testing.T, pages ...page) (*fakeReviews, *httptest.Server, Fetcher) {
	fake := &fakeReviews{t: t, pages: pages}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	clock := chrono.FixedTime{At: time.Date(2024, time.October, 15, 0, 0, 0, 0, time.UTC)}
	return fake, server, NewFetcher(newClient(t, server), clock, &telemetry.RecordingAPI{}, DefaultOptions())
}

func newFetcher(t *testing.T, pages ...page) (*fakeReviews, Fetcher) {
	fake, _, fetcher := newFetcherServer(t, pages...)
	return fake, fetcher
}

func withScore(p page, total int) page {
	p.reviewScore = score(total)
	return p
}

func drain(t *testing.T, stream *Stream) []int64 {
	t.Helper()
	var ids []int64
	for stream.Next() {
		ids = append(ids, stream.Review().ReviewId)
	}
	return ids
}

func TestNoReviews(t *testing.T) {
	fake, fetcher := newFetcher(t, withScore(emptyPage(), 0))

	stream := fetcher.Fetch(context.Background(), Query{AppId: 10})
	ids := drain(t, stream)
	require.NoError(t, stream.Err())
	require.Empty(t, ids)

	total, err := stream.Total().Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, total)
	require.Equal(t, []string{"*"}, fake.requestedCursors())
}

func TestSinglePage(t *testing.T) {
	fake, fetcher := newFetcher(t,
		withScore(reviewPage(0, 20, "c1"), 20),
		emptyPage(),
	)

	reviews, total, err := fetcher.FetchAll(context.Background(), Query{AppId: 10})
	require.NoError(t, err)
	require.Equal(t, 20, total)
	require.Len(t, reviews, 20)

	unique := map[int64]struct{}{}
	for _, review := range reviews {
		unique[review.ReviewId] = struct{}{}
		require.NotNil(t, review.PlaytimeMinutes)
		require.Equal(t, 60, *review.PlaytimeMinutes)
	}
	require.Len(t, unique, 20)
	require.Equal(t, []string{"*", "c1"}, fake.requestedCursors())
}

func TestQueryParams(t *testing.T) {
	fake, fetcher := newFetcher(t,
		withScore(reviewPage(0, 1, "c1"), 1),
		emptyPage(),
	)

	day := time.Date(2023, time.May, 4, 15, 0, 0, 0, time.UTC)
	reviews, total, err := fetcher.FetchAll(context.Background(), ForDay(10, day))
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.Equal(t, 1, total)

	start := time.Date(2023, time.May, 4, 0, 0, 0, 0, time.UTC)
	require.Equal(t, map[string]string{
		"filter":                   "recent",
		"purchase_type":            "all",
		"language":                 "all",
		"review_type":              "all",
		"filter_offtopic_activity": "0",
		"start_date":               fmt.Sprint(start.Unix()),
		"end_date":                 fmt.Sprint(start.Add(24*time.Hour - time.Second).Unix()),
		"date_range_type":          "include",
		"cc":                       "us",
		"l":                        "english",
		"cursor":                   "c1",
	}, fake.query())
}

func TestMultiplePages(t *testing.T) {
	fake, fetcher := newFetcher(t,
		withScore(reviewPage(0, 20, "c1"), 40),
		reviewPage(20, 40, "c2"),
		emptyPage(),
	)

	reviews, total, err := fetcher.FetchAll(context.Background(), Query{AppId: 10})
	require.NoError(t, err)
	require.Equal(t, 40, total)
	require.Len(t, reviews, 40)
	require.Equal(t, int64(39), reviews[39].ReviewId)
	require.Equal(t, []string{"*", "c1", "c2"}, fake.requestedCursors())
}

func TestTotalOnLaterPage(t *testing.T) {
	fake, fetcher := newFetcher(t,
		reviewPage(0, 20, "c1"),
		withScore(reviewPage(20, 40, "c2"), 40),
		emptyPage(),
	)

	stream := fetcher.Fetch(context.Background(), Query{AppId: 10})
	require.True(t, stream.Next())
	require.False(t, stream.Total().Resolved())

	ids := drain(t, stream)
	require.NoError(t, stream.Err())
	require.Len(t, ids, 39)
	require.Equal(t, 40, stream.Count())

	total, err := stream.Total().Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 40, total)
	require.Equal(t, []string{"*", "c1", "c2"}, fake.requestedCursors())
}

func TestNoTotalAnnounced(t *testing.T) {
	fake, fetcher := newFetcher(t,
		reviewPage(0, 20, "c1"),
		emptyPage(),
	)

	stream := fetcher.Fetch(context.Background(), Query{AppId: 10})
	require.Len(t, drain(t, stream), 20)
	require.NoError(t, stream.Err())

	_, err := stream.Total().Wait(context.Background())
	require.ErrorIs(t, err, ErrNoTotal)
	// no retries without a total to fall short of
	require.Equal(t, []string{"*", "c1"}, fake.requestedCursors())

	_, fetcher = newFetcher(t, reviewPage(0, 5, "c1"), emptyPage())
	reviews, total, err := fetcher.FetchAll(context.Background(), Query{AppId: 10})
	require.NoError(t, err)
	require.Len(t, reviews, 5)
	require.Equal(t, -1, total)
}

func TestFetchWithSession(t *testing.T) {
	fake, server, fetcher := newFetcherServer(t,
		withScore(reviewPage(0, 20, "c1"), 40),
		emptyPage(),
		reviewPage(20, 40, "c2"),
		emptyPage(),
	)

	// the session is negotiated on a client of its own, so its cookies only
	// reach the fetcher's requests through the session itself
	negotiator := session.NewNegotiator(newClient(t, server), &telemetry.RecordingAPI{})
	login := credential.SecureLoginFromToken("76561197960287930", "access", steam.StoreDomain)
	s, err := session.CreateFromCredential(context.Background(), negotiator, session.Store, login)
	require.NoError(t, err)

	reviews, total, err := fetcher.WithSession(s).FetchAll(context.Background(), Query{AppId: 10})
	require.NoError(t, err)
	require.Len(t, reviews, 40)
	require.Equal(t, 40, total)
	require.Equal(t, []string{"*", "c1", "c1", "c2"}, fake.requestedCursors())

	sent := fake.sentCookies()
	require.Len(t, sent, 4)
	for _, cookies := range sent {
		require.Equal(t, "76561197960287930||access", cookies[steam.SecureLoginCookie])
		require.Equal(t, "5e55i0n", cookies[steam.StoreSessionCookie])
	}
}

func TestFetchWithoutSessionSendsNoCredentials(t *testing.T) {
	fake, fetcher := newFetcher(t, withScore(reviewPage(0, 1, "c1"), 1), emptyPage())

	_, _, err := fetcher.FetchAll(context.Background(), Query{AppId: 10})
	require.NoError(t, err)
	for _, cookies := range fake.sentCookies() {
		require.NotContains(t, cookies, steam.SecureLoginCookie)
		require.NotContains(t, cookies, steam.StoreSessionCookie)
	}
}

func TestRetryExhausted(t *testing.T) {
	pages := []page{withScore(reviewPage(0, 90, "c1"), 100)}
	for i := 0; i < 6; i++ {
		pages = append(pages, emptyPage())
	}
	fake, fetcher := newFetcher(t, pages...)

	stream := fetcher.Fetch(context.Background(), Query{AppId: 10})
	ids := drain(t, stream)
	require.Len(t, ids, 90)

	var mismatch *steam.TotalMismatchError
	require.True(t, errors.As(stream.Err(), &mismatch))
	require.Contains(t, stream.Err().Error(), "Expected: 100, got: 90")

	// the total was announced before the stream failed
	total, err := stream.Total().Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 100, total)

	require.Equal(t, []string{"*", "c1", "c1", "c1", "c1", "c1", "c1"}, fake.requestedCursors())
}

func TestRetryRecovers(t *testing.T) {
	fake, fetcher := newFetcher(t,
		withScore(reviewPage(0, 20, "c1"), 40),
		emptyPage(),
		emptyPage(),
		emptyPage(),
		emptyPage(),
		emptyPage(),
		reviewPage(20, 40, "c2"),
		emptyPage(),
	)

	reviews, total, err := fetcher.FetchAll(context.Background(), Query{AppId: 10})
	require.NoError(t, err)
	require.Equal(t, 40, total)
	require.Len(t, reviews, 40)
	require.Equal(t, []string{"*", "c1", "c1", "c1", "c1", "c1", "c1", "c2"}, fake.requestedCursors())
}

func TestUnderReportTolerance(t *testing.T) {
	fake, fetcher := newFetcher(t,
		withScore(reviewPage(0, 20, "c1"), 22),
		emptyPage(),
	)

	reviews, total, err := fetcher.FetchAll(context.Background(), Query{AppId: 10})
	require.NoError(t, err)
	require.Equal(t, 22, total)
	require.Len(t, reviews, 20)
	require.Len(t, fake.requestedCursors(), 2)
}

func TestMoreThanTotal(t *testing.T) {
	_, fetcher := newFetcher(t, withScore(reviewPage(0, 2, "c1"), 1))

	stream := fetcher.Fetch(context.Background(), Query{AppId: 10})
	ids := drain(t, stream)
	require.Len(t, ids, 1)

	var mismatch *steam.TotalMismatchError
	require.True(t, errors.As(stream.Err(), &mismatch))
	require.Equal(t, 1, mismatch.Expected)
	require.Equal(t, 2, mismatch.Got)
}

func TestFailuresResolveTotal(t *testing.T) {
	noCards := "<div>nothing here</div>"
	cases := []struct {
		name  string
		page  page
		check func(t *testing.T, err error)
	}{
		{
			name: "status",
			page: page{status: http.StatusInternalServerError},
			check: func(t *testing.T, err error) {
				var status *steam.UnexpectedStatusError
				require.True(t, errors.As(err, &status))
				require.Equal(t, http.StatusInternalServerError, status.StatusCode)
			},
		},
		{
			name: "not successful",
			page: page{success: 0, ids: []int{}, reviewScore: score(3)},
			check: func(t *testing.T, err error) {
				var invalid *steam.InvalidTargetError
				require.True(t, errors.As(err, &invalid))
			},
		},
		{
			name: "total malformed",
			page: func() page {
				p := reviewPage(0, 3, "c1")
				s := "<b>,</b>"
				p.reviewScore = &s
				return p
			}(),
			check: func(t *testing.T, err error) {
				reason, ok := steam.ParseReasonOf(err)
				require.True(t, ok)
				require.Equal(t, steam.ReasonTotalMalformed, reason)
			},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, fetcher := newFetcher(t, c.page)
			stream := fetcher.Fetch(context.Background(), Query{AppId: 10})
			require.Empty(t, drain(t, stream))
			c.check(t, stream.Err())

			require.True(t, stream.Total().Resolved())
			_, err := stream.Total().Wait(context.Background())
			require.Equal(t, stream.Err(), err)
		})
	}

	t.Run("no review cards", func(t *testing.T) {
		p := withScore(reviewPage(0, 3, "c1"), 3)
		p.html = &noCards
		_, fetcher := newFetcher(t, p)
		stream := fetcher.Fetch(context.Background(), Query{AppId: 10})
		require.Empty(t, drain(t, stream))
		require.True(t, steam.IsRecoverable(stream.Err()))

		// the total itself was readable
		total, err := stream.Total().Wait(context.Background())
		require.NoError(t, err)
		require.Equal(t, 3, total)
	})
}

func TestCloseResolvesTotal(t *testing.T) {
	fake, fetcher := newFetcher(t)

	stream := fetcher.Fetch(context.Background(), Query{AppId: 10})
	require.NoError(t, stream.Close())
	require.False(t, stream.Next())
	require.NoError(t, stream.Err())

	_, err := stream.Total().Wait(context.Background())
	require.ErrorIs(t, err, ErrStreamClosed)
	require.Empty(t, fake.requestedCursors())
}

func TestCancelledContext(t *testing.T) {
	_, fetcher := newFetcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stream := fetcher.Fetch(ctx, Query{AppId: 10})
	require.False(t, stream.Next())
	require.ErrorIs(t, stream.Err(), context.Canceled)

	_, err := stream.Total().Wait(context.Background())
	require.ErrorIs(t, err, context.Canceled)
}

func TestTotalBeforeDrain(t *testing.T) {
	_, fetcher := newFetcher(t,
		withScore(reviewPage(0, 20, "c1"), 40),
		reviewPage(20, 40, "c2"),
		emptyPage(),
	)

	stream := fetcher.Fetch(context.Background(), Query{AppId: 10})

	totalCh := make(chan int, 1)
	go func() {
		total, err := stream.Total().Wait(context.Background())
		if err != nil {
			t.Error(err)
		}
		totalCh <- total
	}()

	require.True(t, stream.Next())
	// resolved as soon as the first page is in, long before the stream ends
	require.Equal(t, 40, <-totalCh)
	require.Equal(t, 1, stream.Count())

	drain(t, stream)
	require.NoError(t, stream.Err())
	require.Equal(t, 40, stream.Count())
}

func TestTotalSettlesOnce(t *testing.T) {
	total := newTotal()
	require.False(t, total.Resolved())
	require.True(t, total.resolve(5))
	require.False(t, total.reject(errors.New("late")))
	require.False(t, total.resolve(6))
	require.True(t, total.Resolved())

	value, err := total.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, value)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pending := newTotal()
	_, err = pending.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, pending.Resolved())

	require.True(t, pending.reject(ErrNoTotal))
	require.True(t, pending.Resolved())
	_, err = pending.Wait(context.Background())
	require.ErrorIs(t, err, ErrNoTotal)
}
