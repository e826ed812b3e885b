package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fincopilot/fincopilot/internal/model"
)

const suggestionColumns = `id, goal_id, suggestion_type, content, reason, impact_description,
	impact_numeric, priority, status, created_at, implemented_at`

// SuggestionFilter narrows ListSuggestions. Zero fields match everything.
type SuggestionFilter struct {
	GoalID *int64
	Status model.SuggestionStatus
}

// CreateSuggestion inserts sg and returns its id. A goal_id must name an
// existing goal.
func (s *Store) CreateSuggestion(ctx context.Context, sg model.Suggestion) (int64, error) {
	if sg.Content == "" {
		return 0, fmt.Errorf("suggestion content is required")
	}
	if sg.Status != "" && !sg.Status.Valid() {
		return 0, fmt.Errorf("invalid suggestion status %q", sg.Status)
	}
	rec := sg.Record()
	if sg.Status == model.SuggestionImplemented {
		rec["implemented_at"] = formatTimestamp(time.Now())
	}
	id, _, err := s.InsertOne(ctx, KindSuggestion, rec)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func scanSuggestion(row rowScanner) (model.Suggestion, error) {
	var (
		sg                model.Suggestion
		goalID            sql.NullInt64
		reason, impactTxt sql.NullString
		impact            decimal.NullDecimal
		status            string
		created           nullTime
		implemented       nullTime
	)
	err := row.Scan(&sg.ID, &goalID, &sg.SuggestionType, &sg.Content, &reason, &impactTxt,
		&impact, &sg.Priority, &status, &created, &implemented)
	if err != nil {
		return model.Suggestion{}, err
	}
	if goalID.Valid {
		id := goalID.Int64
		sg.GoalID = &id
	}
	sg.Reason = nullStringPtr(reason)
	sg.ImpactDescription = nullStringPtr(impactTxt)
	if impact.Valid {
		d := impact.Decimal
		sg.ImpactNumeric = &d
	}
	sg.Status = model.SuggestionStatus(status)
	sg.CreatedAt = created.Time
	sg.ImplementedAt = implemented.Ptr()
	return sg, nil
}

// ListSuggestions returns suggestions by priority, highest first.
func (s *Store) ListSuggestions(ctx context.Context, f SuggestionFilter) ([]model.Suggestion, error) {
	var (
		where []string
		args  []any
	)
	if f.GoalID != nil {
		where = append(where, "goal_id = ?")
		args = append(args, *f.GoalID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	query := "SELECT " + suggestionColumns + " FROM suggestions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY priority DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing suggestions: %w", err)
	}
	defer rows.Close()

	var out []model.Suggestion
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning suggestion: %w", err)
		}
		out = append(out, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing suggestions: %w", err)
	}
	return out, nil
}

// Suggestion returns the suggestion with the given id, or ErrNotFound.
func (s *Store) Suggestion(ctx context.Context, id int64) (model.Suggestion, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+suggestionColumns+" FROM suggestions WHERE id = ?", id)
	sg, err := scanSuggestion(row)
	if notFound(err) {
		return model.Suggestion{}, fmt.Errorf("suggestion %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Suggestion{}, fmt.Errorf("loading suggestion %d: %w", id, err)
	}
	return sg, nil
}

// SetSuggestionStatus moves a suggestion to status. implemented_at is set
// on the first transition to implemented and cleared on any other status.
func (s *Store) SetSuggestionStatus(ctx context.Context, id int64, status model.SuggestionStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid suggestion status %q", status)
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE suggestions
			SET status = ?,
			    implemented_at = CASE WHEN ? = 'implemented' THEN COALESCE(implemented_at, ?) ELSE NULL END
			WHERE id = ?`,
			string(status), string(status), formatTimestamp(time.Now()), id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("setting suggestion %d to %s: %w", id, status, err)
	}
	s.log.Debug().Int64("suggestion_id", id).Str("status", string(status)).Msg("suggestion status changed")
	return nil
}
