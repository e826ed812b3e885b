package model

import "time"

// UserSetting is a key/value configuration row.
type UserSetting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// IngestRun records one invocation of the ingestion workflow.
type IngestRun struct {
	ID           string
	Source       string
	Mode         string
	RowsRead     int
	RowsInserted int
	RowsSkipped  int
	RowsReplaced int
	StartedAt    time.Time
	FinishedAt   time.Time
	Error        *string
}
