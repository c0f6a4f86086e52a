package commands

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"steam-provider/internal/components/db"
	"steam-provider/internal/steam/reviews"
	"steam-provider/internal/steam/session"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

var (
	reviewsStart string
	reviewsEnd   string
	reviewsDay   string
	// reviewsSession fetches under the saved or configured login
	reviewsSession bool
)

func init() {
	reviewsCmd.Flags().StringVar(&reviewsStart, "start", "", "Only fetch reviews posted on or after this date (YYYY-MM-DD).")
	reviewsCmd.Flags().StringVar(&reviewsEnd, "end", "", "Only fetch reviews posted before this date (YYYY-MM-DD).")
	reviewsCmd.Flags().StringVar(&reviewsDay, "day", "", "Only fetch reviews posted on this date (YYYY-MM-DD), overrides --start and --end.")
	reviewsCmd.Flags().BoolVar(&reviewsSession, "session", false, "Fetch while logged in, with the saved login or the username and password of the config.")
	rootCmd.AddCommand(reviewsCmd)
}

func parseQuery(appId int) (reviews.Query, error) {
	if reviewsDay != "" {
		day, err := time.Parse(dateLayout, reviewsDay)
		if err != nil {
			return reviews.Query{}, fmt.Errorf("--day: %w", err)
		}
		return reviews.ForDay(appId, day), nil
	}
	q := reviews.Query{AppId: appId}
	if reviewsStart != "" {
		start, err := time.Parse(dateLayout, reviewsStart)
		if err != nil {
			return reviews.Query{}, fmt.Errorf("--start: %w", err)
		}
		q.Start = start
	}
	if reviewsEnd != "" {
		end, err := time.Parse(dateLayout, reviewsEnd)
		if err != nil {
			return reviews.Query{}, fmt.Errorf("--end: %w", err)
		}
		q.End = end.Add(-time.Second)
	}
	return q, nil
}

func nullableUnix(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

var reviewsCmd = &cobra.Command{
	Use:   "reviews <appid> [--start <date>] [--end <date>] [--day <date>] [--session]",
	Short: "Fetches the reviews of an app into the database, cross-checking them against the total Steam announces.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		g := getGlobals(ctx)

		appId, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("app id: %w", err)
		}
		q, err := parseQuery(appId)
		if err != nil {
			return err
		}

		opts := reviews.DefaultOptions()
		if g.config.RetryDelay != "" {
			opts.RetryDelay, err = time.ParseDuration(g.config.RetryDelay)
			if err != nil {
				return fmt.Errorf("retry_delay: %w", err)
			}
		}
		fetcher := reviews.NewFetcher(g.transport, g.time, g.tel, opts)
		if reviewsSession {
			s, err := openSession(ctx, g, session.Store)
			if err != nil {
				return fmt.Errorf("open session: %w", err)
			}
			fetcher = fetcher.WithSession(s)
		}

		runId, err := g.qry.CreateFetchRun(ctx, db.CreateFetchRunParams{
			AppID:     int64(appId),
			StartDate: nullableUnix(q.Start),
			EndDate:   nullableUnix(q.End),
			StartedAt: g.time.Now().Unix(),
		})
		if err != nil {
			return err
		}

		stream := fetcher.Fetch(ctx, q)
		defer stream.Close()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			total, err := stream.Total().Wait(ctx)
			if err != nil {
				return
			}
			slog.Info("steam reports reviews", "app", appId, "total", total)
			if err := g.qry.SetFetchRunTotal(context.WithoutCancel(ctx), runId, int64(total)); err != nil {
				slog.Warn("save total", "err", err)
			}
		}()

		positive := 0
		for stream.Next() {
			review := stream.Review()
			if review.Positive {
				positive++
			}
			var playtime sql.NullInt64
			if review.PlaytimeMinutes != nil {
				playtime = sql.NullInt64{Int64: int64(*review.PlaytimeMinutes), Valid: true}
			}
			err := g.qry.SaveReview(ctx, db.Review{
				ReviewID:        review.ReviewId,
				AppID:           int64(appId),
				UserID:          int64(review.UserId),
				Positive:        review.Positive,
				PostedAt:        review.Date.Unix(),
				Source:          review.Source.String(),
				PlaytimeMinutes: playtime,
				FetchRunID:      runId,
			})
			if err != nil {
				stream.Close()
				wg.Wait()
				return fmt.Errorf("save review: %w", err)
			}
		}
		wg.Wait()

		status := db.FetchDone
		var fetchErr sql.NullString
		if err := stream.Err(); err != nil {
			status = db.FetchFailed
			fetchErr = sql.NullString{String: err.Error(), Valid: true}
		}
		err = g.qry.FinishFetchRun(context.WithoutCancel(ctx), db.FinishFetchRunParams{
			ID:         runId,
			Count:      int64(stream.Count()),
			Status:     status,
			Error:      fetchErr,
			FinishedAt: g.time.Now().Unix(),
		})
		if err != nil {
			slog.Warn("finish fetch run", "err", err)
		}
		if err := stream.Err(); err != nil {
			return err
		}

		total := "-"
		if announced, err := stream.Total().Wait(ctx); err == nil {
			total = strconv.Itoa(announced)
		}
		t := newTable()
		t.AppendHeader(table.Row{"App", "Total", "Fetched", "Positive", "Negative"})
		t.AppendRow(table.Row{appId, total, stream.Count(), positive, stream.Count() - positive})
		t.Render()
		return nil
	},
}
