// Package reviews pages through an app's reviews on the store.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strconv"
	"time"

	"steam-provider/internal/components/assert"
	"steam-provider/internal/components/chrono"
	"steam-provider/internal/components/telemetry"
	"steam-provider/internal/steam"
	"steam-provider/internal/steam/scrape"
	"steam-provider/internal/steam/session"
	"steam-provider/internal/steam/transport"
)

const (
	report_fetch_page   = "fetch.page"
	report_fetch_retry  = "fetch.retry"
	report_fetch_total  = "fetch.total"
	report_fetch_count  = "fetch.count"
	report_fetch_failed = "fetch.failed"
)

const initialCursor = "*"

// ErrStreamClosed is what the total resolves to when a stream is closed
// before any page announced it.
var ErrStreamClosed = errors.New("review stream closed")

// ErrNoTotal is what the total resolves to when a stream ends without any
// page announcing it.
var ErrNoTotal = errors.New("no page announced a review total")

// Query selects the reviews of one app. Zero Start or End leaves that side
// of the date range open.
type Query struct {
	AppId int
	Start time.Time
	End   time.Time
}

// ForDay selects the reviews of one app posted on the UTC day of `day`.
func ForDay(appId int, day time.Time) Query {
	start := day.UTC().Truncate(24 * time.Hour)
	return Query{
		AppId: appId,
		Start: start,
		End:   start.Add(24*time.Hour - time.Second),
	}
}

func dateParam(t time.Time) string {
	if t.IsZero() {
		return "-1"
	}
	return strconv.FormatInt(t.Unix(), 10)
}

func (q Query) params() url.Values {
	params := url.Values{}
	params.Set("filter", "recent")
	params.Set("purchase_type", "all")
	params.Set("language", "all")
	params.Set("review_type", "all")
	params.Set("filter_offtopic_activity", "0")
	params.Set("start_date", dateParam(q.Start))
	params.Set("end_date", dateParam(q.End))
	params.Set("date_range_type", "include")
	params.Set("cc", "us")
	// pins the date format of review cards
	params.Set("l", "english")
	return params
}

type Options struct {
	// MaxRetries is how many times an empty page at the same cursor is
	// re-requested while the count is short of the total.
	MaxRetries int
	// Tolerance is how far short of the total an empty page is still
	// accepted as the end.
	Tolerance int
	// RetryDelay is waited (plus up to half of it as jitter) before a retry.
	RetryDelay time.Duration
}

func DefaultOptions() Options {
	return Options{MaxRetries: 5, Tolerance: 2}
}

type Fetcher struct {
	client  *transport.Client
	session *session.Session
	time    chrono.TimeAPI
	tel     telemetry.API
	opts    Options
}

func NewFetcher(client *transport.Client, time chrono.TimeAPI, tel telemetry.API, opts Options) Fetcher {
	assert.NotNil(client)
	assert.NotNil(time)
	assert.NotNil(tel)
	return Fetcher{
		client: client,
		time:   time,
		tel:    telemetry.NewScopedAPI("steam_reviews", tel),
		opts:   opts,
	}
}

// WithSession returns a fetcher whose requests carry the session's credentials.
func (f Fetcher) WithSession(s session.Session) Fetcher {
	f.session = &s
	return f
}

// Fetch returns a stream over the query's reviews. Nothing is requested
// until the first call to Next.
func (f Fetcher) Fetch(ctx context.Context, q Query) *Stream {
	return &Stream{
		fetcher: f,
		ctx:     ctx,
		query:   q,
		params:  q.params(),
		cursor:  initialCursor,
		total:   newTotal(),
	}
}

// FetchAll drains a stream. The total is -1 when no page announced one.
func (f Fetcher) FetchAll(ctx context.Context, q Query) ([]scrape.Review, int, error) {
	stream := f.Fetch(ctx, q)
	defer stream.Close()

	var out []scrape.Review
	for stream.Next() {
		out = append(out, stream.Review())
	}
	if err := stream.Err(); err != nil {
		return out, 0, err
	}
	total, err := stream.Total().Wait(ctx)
	if errors.Is(err, ErrNoTotal) {
		return out, -1, nil
	}
	return out, total, err
}

// Stream yields reviews one at a time, fetching a page whenever the
// previous one is used up. Pages are fetched strictly in sequence since
// each one's cursor comes from the one before it.
type Stream struct {
	fetcher Fetcher
	ctx     context.Context
	query   Query
	params  url.Values

	cursor   string
	total    *Total
	expected int
	hasTotal bool
	count    int
	retry    int

	buffer    []scrape.Review
	current   scrape.Review
	exhausted bool
	done      bool
	err       error
}

// Total can be waited on from another goroutine while the stream is pulled.
func (s *Stream) Total() *Total {
	return s.total
}

// Count is the number of reviews yielded so far.
func (s *Stream) Count() int {
	return s.count
}

// Review is the review the last successful call to Next advanced to.
func (s *Stream) Review() scrape.Review {
	return s.current
}

// Err is the error that ended the stream, if any.
func (s *Stream) Err() error {
	return s.err
}

// Next advances to the next review, false means the stream has ended and Err
// tells whether it ended because of a failure.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	for len(s.buffer) == 0 {
		if s.exhausted {
			s.finish(nil)
			return false
		}
		if err := s.fetchPage(); err != nil {
			s.finish(err)
			return false
		}
	}

	if s.hasTotal && s.count >= s.expected {
		s.finish(&steam.TotalMismatchError{Expected: s.expected, Got: s.count + 1})
		return false
	}

	s.current = s.buffer[0]
	s.buffer = s.buffer[1:]
	s.count++
	return true
}

// Close abandons the stream, a total not resolved yet resolves to ErrStreamClosed.
func (s *Stream) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	s.buffer = nil
	s.total.reject(ErrStreamClosed)
	return nil
}

func (s *Stream) finish(err error) {
	s.done = true
	s.err = err
	s.buffer = nil

	f := s.fetcher
	if err != nil {
		s.total.reject(err)
		f.tel.ReportBroken(report_fetch_failed, err, s.query.AppId, s.count)
		return
	}
	// no-op when a page announced the total
	s.total.reject(ErrNoTotal)
	f.tel.ReportCount(report_fetch_count, int64(s.count))
}

func (s *Stream) wait() error {
	delay := s.fetcher.opts.RetryDelay
	if delay <= 0 {
		return nil
	}
	delay += rand.N(delay/2 + 1)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

func (s *Stream) fetchPage() error {
	f := s.fetcher
	if err := s.ctx.Err(); err != nil {
		return err
	}
	if s.retry > 0 {
		if err := s.wait(); err != nil {
			return err
		}
	}
	if f.session != nil {
		f.session.Apply(f.client.Cookies())
	}

	s.params.Set("cursor", s.cursor)
	f.tel.ReportDebug(report_fetch_page, s.query.AppId, s.cursor, s.retry)

	endpoint := f.client.StoreUrl(fmt.Sprintf("/appreviews/%d", s.query.AppId))
	res, err := f.client.R(s.ctx).
		SetQueryParamsFromValues(s.params).
		Get(endpoint)
	if err != nil {
		return err
	}
	if err := transport.CheckStatus(res); err != nil {
		return err
	}

	page, err := scrape.ParseReviewPage(res.Body())
	if err != nil {
		return err
	}
	if !page.Success {
		return &steam.InvalidTargetError{Target: fmt.Sprintf("app %d", s.query.AppId)}
	}

	// the total is taken from the first page that carries it
	if !s.hasTotal && page.ReviewScore != nil {
		total, err := scrape.ParseReviewTotal(*page.ReviewScore)
		if err != nil {
			return err
		}
		s.expected = total
		s.hasTotal = true
		s.total.resolve(total)
		f.tel.ReportCount(report_fetch_total, int64(total))
	}

	if len(page.RecommendationIds) == 0 {
		// without a total there is nothing to retry towards
		if !s.hasTotal || s.count >= s.expected-f.opts.Tolerance {
			s.exhausted = true
			return nil
		}
		s.retry++
		if s.retry > f.opts.MaxRetries {
			return &steam.TotalMismatchError{Expected: s.expected, Got: s.count}
		}
		f.tel.ReportWarning(report_fetch_retry, s.query.AppId, s.cursor, s.retry, s.count, s.expected)
		return nil
	}

	reviews, err := scrape.ParseReviews(page.Html, f.time.Now())
	if err != nil {
		return err
	}
	if len(reviews) == 0 {
		return steam.NewRecoverableMarkupError(
			steam.ReasonNoReviewCards,
			fmt.Sprintf("%d recommendation ids", len(page.RecommendationIds)),
		)
	}

	s.buffer = reviews
	s.cursor = page.Cursor
	s.retry = 0
	return nil
}
