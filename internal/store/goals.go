package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fincopilot/fincopilot/internal/model"
)

const goalColumns = `goal_id, name, goal_type, target_amount, current_amount, target_date,
	monthly_target, is_active, created_at, last_updated`

// CreateGoal inserts g and returns its goal_id.
func (s *Store) CreateGoal(ctx context.Context, g model.Goal) (int64, error) {
	if !g.GoalType.Valid() {
		return 0, fmt.Errorf("invalid goal type %q", g.GoalType)
	}
	if g.Name == "" {
		return 0, fmt.Errorf("goal name is required")
	}
	id, _, err := s.InsertOne(ctx, KindGoal, g.Record())
	if err != nil {
		return 0, err
	}
	s.log.Info().Int64("goal_id", id).Str("name", g.Name).Msg("goal created")
	return id, nil
}

func scanGoal(row rowScanner) (model.Goal, error) {
	var (
		g          model.Goal
		goalType   string
		targetDate sql.NullString
		monthly    decimal.NullDecimal
		active     int
		created    nullTime
		updated    nullTime
	)
	err := row.Scan(&g.ID, &g.Name, &goalType, &g.TargetAmount, &g.CurrentAmount,
		&targetDate, &monthly, &active, &created, &updated)
	if err != nil {
		return model.Goal{}, err
	}
	g.GoalType = model.GoalType(goalType)
	if targetDate.Valid && targetDate.String != "" {
		td, err := time.Parse(model.DateFormat, targetDate.String)
		if err != nil {
			return model.Goal{}, fmt.Errorf("goal %d: bad target_date %q: %w", g.ID, targetDate.String, err)
		}
		g.TargetDate = &td
	}
	if monthly.Valid {
		m := monthly.Decimal
		g.MonthlyTarget = &m
	}
	g.IsActive = active != 0
	g.CreatedAt = created.Time
	g.LastUpdated = updated.Time
	return g, nil
}

// Goal returns the goal with the given id, or ErrNotFound.
func (s *Store) Goal(ctx context.Context, id int64) (model.Goal, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+goalColumns+" FROM goals WHERE goal_id = ?", id)
	g, err := scanGoal(row)
	if notFound(err) {
		return model.Goal{}, fmt.Errorf("goal %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Goal{}, fmt.Errorf("loading goal %d: %w", id, err)
	}
	return g, nil
}

// ListGoals returns goals ordered by id.
func (s *Store) ListGoals(ctx context.Context, activeOnly bool) ([]model.Goal, error) {
	query := "SELECT " + goalColumns + " FROM goals"
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY goal_id"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing goals: %w", err)
	}
	defer rows.Close()

	var goals []model.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing goals: %w", err)
	}
	return goals, nil
}

// UpdateGoalProgress sets current_amount and refreshes last_updated.
func (s *Store) UpdateGoalProgress(ctx context.Context, id int64, current decimal.Decimal) error {
	return s.updateGoal(ctx, id, "current_amount = ?", current)
}

// SetGoalActive toggles is_active and refreshes last_updated.
func (s *Store) SetGoalActive(ctx context.Context, id int64, active bool) error {
	v := 0
	if active {
		v = 1
	}
	return s.updateGoal(ctx, id, "is_active = ?", v)
}

func (s *Store) updateGoal(ctx context.Context, id int64, set string, arg any) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE goals SET "+set+", last_updated = ? WHERE goal_id = ?",
			arg, formatTimestamp(time.Now()), id)
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
		return fmt.Errorf("updating goal %d: %w", id, err)
	}
	s.log.Debug().Int64("goal_id", id).Msg("goal updated")
	return nil
}
