package db

import (
	"context"
	"database/sql"
)

const saveCredential = `
insert into credential (name, domain, value, secure, saved_at)
values (?, ?, ?, ?, ?)
on conflict (name, domain) do update set
    value = excluded.value,
    secure = excluded.secure,
    saved_at = excluded.saved_at
`

func (q *Queries) SaveCredential(ctx context.Context, arg Credential) error {
	_, err := q.db.ExecContext(ctx, saveCredential,
		arg.Name,
		arg.Domain,
		arg.Value,
		arg.Secure,
		arg.SavedAt,
	)
	return err
}

const getCredential = `
select name, domain, value, secure, saved_at from credential
where name = ? and domain = ?
`

func (q *Queries) GetCredential(ctx context.Context, name, domain string) (Credential, error) {
	row := q.db.QueryRowContext(ctx, getCredential, name, domain)
	var i Credential
	err := row.Scan(
		&i.Name,
		&i.Domain,
		&i.Value,
		&i.Secure,
		&i.SavedAt,
	)
	return i, err
}

const deleteCredential = `
delete from credential where name = ? and domain = ?
`

func (q *Queries) DeleteCredential(ctx context.Context, name, domain string) error {
	_, err := q.db.ExecContext(ctx, deleteCredential, name, domain)
	return err
}

const createFetchRun = `
insert into fetch_run (app_id, start_date, end_date, status, started_at)
values (?, ?, ?, ?, ?)
returning id
`

type CreateFetchRunParams struct {
	AppID     int64
	StartDate sql.NullInt64
	EndDate   sql.NullInt64
	StartedAt int64
}

func (q *Queries) CreateFetchRun(ctx context.Context, arg CreateFetchRunParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createFetchRun,
		arg.AppID,
		arg.StartDate,
		arg.EndDate,
		FetchRunning,
		arg.StartedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const setFetchRunTotal = `
update fetch_run set total = ? where id = ?
`

func (q *Queries) SetFetchRunTotal(ctx context.Context, id, total int64) error {
	_, err := q.db.ExecContext(ctx, setFetchRunTotal, total, id)
	return err
}

const finishFetchRun = `
update fetch_run set count = ?, status = ?, error = ?, finished_at = ?
where id = ?
`

type FinishFetchRunParams struct {
	ID         int64
	Count      int64
	Status     FetchStatus
	Error      sql.NullString
	FinishedAt int64
}

func (q *Queries) FinishFetchRun(ctx context.Context, arg FinishFetchRunParams) error {
	_, err := q.db.ExecContext(ctx, finishFetchRun,
		arg.Count,
		arg.Status,
		arg.Error,
		arg.FinishedAt,
		arg.ID,
	)
	return err
}

const getFetchRun = `
select id, app_id, start_date, end_date, total, count, status, error, started_at, finished_at
from fetch_run where id = ?
`

func (q *Queries) GetFetchRun(ctx context.Context, id int64) (FetchRun, error) {
	row := q.db.QueryRowContext(ctx, getFetchRun, id)
	var i FetchRun
	err := row.Scan(
		&i.ID,
		&i.AppID,
		&i.StartDate,
		&i.EndDate,
		&i.Total,
		&i.Count,
		&i.Status,
		&i.Error,
		&i.StartedAt,
		&i.FinishedAt,
	)
	return i, err
}

const saveReview = `
insert into review (review_id, app_id, user_id, positive, posted_at, source, playtime_minutes, fetch_run_id)
values (?, ?, ?, ?, ?, ?, ?, ?)
on conflict (review_id) do update set
    positive = excluded.positive,
    playtime_minutes = excluded.playtime_minutes,
    fetch_run_id = excluded.fetch_run_id
`

func (q *Queries) SaveReview(ctx context.Context, arg Review) error {
	_, err := q.db.ExecContext(ctx, saveReview,
		arg.ReviewID,
		arg.AppID,
		arg.UserID,
		arg.Positive,
		arg.PostedAt,
		arg.Source,
		arg.PlaytimeMinutes,
		arg.FetchRunID,
	)
	return err
}

const getReviewsForApp = `
select review_id, app_id, user_id, positive, posted_at, source, playtime_minutes, fetch_run_id
from review where app_id = ?
order by posted_at desc, review_id desc
`

func (q *Queries) GetReviewsForApp(ctx context.Context, appID int64) ([]Review, error) {
	rows, err := q.db.QueryContext(ctx, getReviewsForApp, appID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Review
	for rows.Next() {
		var i Review
		if err := rows.Scan(
			&i.ReviewID,
			&i.AppID,
			&i.UserID,
			&i.Positive,
			&i.PostedAt,
			&i.Source,
			&i.PlaytimeMinutes,
			&i.FetchRunID,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
