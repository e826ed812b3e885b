package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SuggestionStatus represents the lifecycle state of a suggestion.
type SuggestionStatus string

const (
	SuggestionActive      SuggestionStatus = "active"
	SuggestionDismissed   SuggestionStatus = "dismissed"
	SuggestionImplemented SuggestionStatus = "implemented"
)

// Valid reports whether s is a known status.
func (s SuggestionStatus) Valid() bool {
	switch s {
	case SuggestionActive, SuggestionDismissed, SuggestionImplemented:
		return true
	}
	return false
}

// Suggestion is an actionable recommendation, optionally tied to a Goal.
type Suggestion struct {
	ID                int64
	GoalID            *int64
	SuggestionType    string
	Content           string
	Reason            *string
	ImpactDescription *string
	ImpactNumeric     *decimal.Decimal
	Priority          int // higher = more urgent
	Status            SuggestionStatus
	CreatedAt         time.Time
	ImplementedAt     *time.Time
}

// Record returns the insert mapping for s. An empty Status is left to the
// column default.
func (s Suggestion) Record() Record {
	rec := Record{
		"suggestion_type": s.SuggestionType,
		"content":         s.Content,
		"priority":        s.Priority,
	}
	if s.GoalID != nil {
		rec["goal_id"] = *s.GoalID
	}
	if s.Reason != nil {
		rec["reason"] = *s.Reason
	}
	if s.ImpactDescription != nil {
		rec["impact_description"] = *s.ImpactDescription
	}
	if s.ImpactNumeric != nil {
		rec["impact_numeric"] = *s.ImpactNumeric
	}
	if s.Status != "" {
		rec["status"] = string(s.Status)
	}
	return rec
}
