// Package ingest is the single entry point for loading bank transactions:
// it normalizes raw input and hands it to the store in one write.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fincopilot/fincopilot/internal/importer"
	"github.com/fincopilot/fincopilot/internal/model"
	"github.com/fincopilot/fincopilot/internal/store"
)

// ErrIngest matches every error returned by Service.Ingest.
var ErrIngest = errors.New("ingest failed")

// Mode selects how an ingest treats rows that may already be stored.
type Mode string

const (
	// ModeDefault appends every row.
	ModeDefault Mode = ""
	// ModeAdd appends only rows whose ref_no is not stored yet.
	ModeAdd Mode = "add"
	// ModeOverwrite replaces stored rows in each account's date range.
	ModeOverwrite Mode = "overwrite"
)

func (m Mode) String() string {
	if m == ModeDefault {
		return "default"
	}
	return string(m)
}

// ParseMode maps a command-line value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default", "none":
		return ModeDefault, nil
	case "add":
		return ModeAdd, nil
	case "overwrite":
		return ModeOverwrite, nil
	default:
		return ModeDefault, fmt.Errorf("unknown ingest mode %q (want add or overwrite)", s)
	}
}

// Result summarizes one Ingest call.
type Result struct {
	RunID    string
	Read     int // rows produced by normalization
	Inserted int
	Skipped  int // rows dropped by ModeAdd
	Replaced int // stored rows deleted by ModeOverwrite
}

// Store is the persistence the facade needs.
type Store interface {
	InsertTransactions(ctx context.Context, txns []model.Transaction) (int, error)
	ExistingRefs(ctx context.Context, refs []string) (map[string]bool, error)
	ReplaceTransactions(ctx context.Context, scopes []store.Scope, txns []model.Transaction) (deleted, inserted int, err error)
	RecordIngestRun(ctx context.Context, run model.IngestRun) error
}

// Normalizer turns a Source into transactions.
type Normalizer interface {
	Normalize(src importer.Source) ([]model.Transaction, error)
}

// Service orchestrates normalization and persistence.
type Service struct {
	store      Store
	normalizer Normalizer
	log        zerolog.Logger
	now        func() time.Time
}

// NewService creates a Service.
func NewService(st Store, n Normalizer, log zerolog.Logger) *Service {
	return &Service{
		store:      st,
		normalizer: n,
		log:        log.With().Str("component", "ingest").Logger(),
		now:        time.Now,
	}
}

// Ingest normalizes src and writes the result according to mode. Input
// without rows writes nothing. Every call that reaches the store issues
// exactly one write and records an ingest run.
func (s *Service) Ingest(ctx context.Context, src importer.Source, mode Mode) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	log := s.log.With().Str("run_id", res.RunID).Str("mode", mode.String()).Logger()
	started := s.now()

	switch mode {
	case ModeDefault, ModeAdd, ModeOverwrite:
	default:
		return res, fmt.Errorf("%w: unknown mode %q", ErrIngest, string(mode))
	}

	txns, err := s.normalizer.Normalize(src)
	if err != nil {
		log.Error().Err(err).Msg("normalization failed")
		return res, fmt.Errorf("%w: %w", ErrIngest, err)
	}
	res.Read = len(txns)
	if len(txns) == 0 {
		log.Warn().Err(store.ErrEmptyInput).Msg("EmptyInputWarning: nothing to ingest")
		return res, nil
	}

	switch mode {
	case ModeDefault:
		res.Inserted, err = s.store.InsertTransactions(ctx, txns)
	case ModeAdd:
		err = s.ingestAdd(ctx, txns, &res)
	case ModeOverwrite:
		res.Replaced, res.Inserted, err = s.store.ReplaceTransactions(ctx, Scopes(txns), txns)
	}

	s.recordRun(ctx, src, mode, started, res, err)

	if err != nil {
		log.Error().Err(err).Int("rows", res.Read).Msg("writing transactions failed")
		// Driver errors are flattened so they stay out of the caller's chain.
		return res, fmt.Errorf("%w: %v", ErrIngest, err)
	}
	log.Info().
		Int("read", res.Read).
		Int("inserted", res.Inserted).
		Int("skipped", res.Skipped).
		Int("replaced", res.Replaced).
		Msg("ingest complete")
	return res, nil
}

// ingestAdd drops rows whose ref_no is already stored. Rows without a ref_no
// and rows sharing a ref_no within the batch are kept: only the store decides
// what is a duplicate.
func (s *Service) ingestAdd(ctx context.Context, txns []model.Transaction, res *Result) error {
	var refs []string
	for _, t := range txns {
		if t.RefNo != nil {
			refs = append(refs, *t.RefNo)
		}
	}
	existing, err := s.store.ExistingRefs(ctx, refs)
	if err != nil {
		return err
	}

	fresh := make([]model.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.RefNo != nil && existing[*t.RefNo] {
			res.Skipped++
			continue
		}
		fresh = append(fresh, t)
	}
	if len(fresh) == 0 {
		s.log.Info().Int("skipped", res.Skipped).Msg("every row is already stored")
		return nil
	}

	res.Inserted, err = s.store.InsertTransactions(ctx, fresh)
	return err
}

// Scopes returns one scope per account covering the earliest to latest date
// that account has in txns, in order of first appearance. Rows without an
// account share one scope.
func Scopes(txns []model.Transaction) []store.Scope {
	var (
		scopes []store.Scope
		index  = make(map[string]int)
	)
	for _, t := range txns {
		key := "\x00"
		if t.Account != nil {
			key = "a:" + *t.Account
		}
		i, ok := index[key]
		if !ok {
			index[key] = len(scopes)
			scopes = append(scopes, store.Scope{Account: t.Account, From: t.Date, To: t.Date})
			continue
		}
		if t.Date.Before(scopes[i].From) {
			scopes[i].From = t.Date
		}
		if t.Date.After(scopes[i].To) {
			scopes[i].To = t.Date
		}
	}
	return scopes
}

func (s *Service) recordRun(ctx context.Context, src importer.Source, mode Mode, started time.Time, res Result, runErr error) {
	run := model.IngestRun{
		ID:           res.RunID,
		Source:       describe(src),
		Mode:         mode.String(),
		RowsRead:     res.Read,
		RowsInserted: res.Inserted,
		RowsSkipped:  res.Skipped,
		RowsReplaced: res.Replaced,
		StartedAt:    started,
		FinishedAt:   s.now(),
	}
	if runErr != nil {
		msg := runErr.Error()
		run.Error = &msg
		run.RowsInserted, run.RowsReplaced = 0, 0
	}
	if err := s.store.RecordIngestRun(ctx, run); err != nil {
		s.log.Warn().Err(err).Str("run_id", run.ID).Msg("could not record ingest run")
	}
}

// describe labels a source for the audit trail.
func describe(src importer.Source) string {
	switch v := src.(type) {
	case importer.Path:
		if strings.ContainsAny(string(v), "\n,") {
			return "inline text"
		}
		return string(v)
	case importer.Text:
		return "inline text"
	case importer.Table:
		return "table"
	default:
		return fmt.Sprintf("%T", src)
	}
}
