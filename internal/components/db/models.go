package db

import "database/sql"

type FetchStatus string

const (
	FetchRunning   FetchStatus = "running"
	FetchDone      FetchStatus = "done"
	FetchFailed    FetchStatus = "failed"
	FetchAbandoned FetchStatus = "abandoned"
)

type Credential struct {
	Name    string
	Domain  string
	Value   string
	Secure  bool
	SavedAt int64
}

type FetchRun struct {
	ID         int64
	AppID      int64
	StartDate  sql.NullInt64
	EndDate    sql.NullInt64
	Total      sql.NullInt64
	Count      int64
	Status     FetchStatus
	Error      sql.NullString
	StartedAt  int64
	FinishedAt sql.NullInt64
}

type Review struct {
	ReviewID        int64
	AppID           int64
	UserID          int64
	Positive        bool
	PostedAt        int64
	Source          string
	PlaytimeMinutes sql.NullInt64
	FetchRunID      int64
}
