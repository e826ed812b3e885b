package importer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fincopilot/fincopilot/internal/model"
)

// DefaultDateLayouts are tried in order when parsing transaction_date.
var DefaultDateLayouts = []string{
	model.DateFormat,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02-Jan-2006",
	"02 Jan 2006",
}

// Options configures a Normalizer.
type Options struct {
	Format         string   // registry key; defaults to "canonical"
	Source         string   // provenance stamped on every row; defaults to "File"
	DefaultAccount string   // used for rows whose account cell is blank
	DateLayouts    []string // defaults to DefaultDateLayouts
}

// Normalizer turns tabular input into canonical transactions.
type Normalizer struct {
	parser Parser
	opts   Options
	log    zerolog.Logger
}

// NewNormalizer creates a Normalizer using the parser registered for
// opts.Format.
func NewNormalizer(reg *Registry, opts Options, log zerolog.Logger) (*Normalizer, error) {
	if opts.Format == "" {
		opts.Format = FormatCanonical
	}
	if opts.Source == "" {
		opts.Source = model.SourceFile
	}
	if len(opts.DateLayouts) == 0 {
		opts.DateLayouts = DefaultDateLayouts
	}
	p := reg.Get(opts.Format)
	if p == nil {
		return nil, fmt.Errorf("unknown import format %q", opts.Format)
	}
	return &Normalizer{
		parser: p,
		opts:   opts,
		log:    log.With().Str("component", "normalizer").Str("format", p.Format()).Logger(),
	}, nil
}

// Normalize resolves src and converts every row into a Transaction, in
// input order. Input without data rows yields an empty result; a missing
// path whose literal text has no rows is a LoadError.
func (n *Normalizer) Normalize(src Source) ([]model.Transaction, error) {
	label, table, err := n.load(src)
	if err != nil {
		n.log.Error().Err(err).Msg("loading input failed")
		return nil, err
	}
	if len(table.Rows) == 0 {
		n.log.Debug().Str("source", label).Msg("input has no rows")
		return nil, nil
	}

	txns, err := n.normalizeTable(label, table)
	if err != nil {
		n.log.Error().Err(err).Msg("normalizing input failed")
		return nil, err
	}
	n.log.Debug().Str("source", label).Int("rows", len(txns)).Msg("normalized input")
	return txns, nil
}

// inlineLabel names in-memory content in errors and logs.
const inlineLabel = "inline text"

func (n *Normalizer) load(src Source) (string, Table, error) {
	switch s := src.(type) {
	case Table:
		return "table", s, nil
	case Text:
		t, err := n.parse(inlineLabel, strings.NewReader(string(s)))
		return inlineLabel, t, err
	case Path:
		return n.loadPath(string(s))
	default:
		return "", Table{}, &SourceError{Source: fmt.Sprintf("%T", src), Err: ErrWrongFileType}
	}
}

func (n *Normalizer) loadPath(raw string) (string, Table, error) {
	path := ExpandPath(raw)
	f, err := os.Open(path)
	if isNotFound(err) {
		n.log.Debug().Str("path", path).Msg("no such file, parsing input as literal content")
		t, perr := n.parse(inlineLabel, strings.NewReader(raw))
		if perr != nil {
			return inlineLabel, Table{}, perr
		}
		// A rowless literal is most likely a mistyped filename.
		if len(t.Rows) == 0 {
			return path, Table{}, &LoadError{Source: path, Err: err}
		}
		return inlineLabel, t, nil
	}
	if err != nil {
		return path, Table{}, &LoadError{Source: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return path, Table{}, &LoadError{Source: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return path, Table{}, &SourceError{Source: path, Err: ErrWrongFileType}
	}

	t, err := n.parse(path, f)
	return path, t, err
}

// isNotFound also accepts ENAMETOOLONG, which is what opening a long run of
// literal content as a path produces.
func isNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENAMETOOLONG)
}

func (n *Normalizer) parse(label string, r io.Reader) (Table, error) {
	t, err := n.parser.Parse(r)
	if err == nil {
		return t, nil
	}
	var lerr *LoadError
	if errors.As(err, &lerr) {
		return Table{}, &LoadError{Source: label, Line: lerr.Line, Err: lerr.Err}
	}
	return Table{}, &LoadError{Source: label, Err: err}
}

func (n *Normalizer) normalizeTable(label string, t Table) ([]model.Transaction, error) {
	idx, err := t.index()
	if err != nil {
		return nil, &LoadError{Source: label, Line: 1, Err: err}
	}

	txns := make([]model.Transaction, 0, len(t.Rows))
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return nil, &LoadError{Source: label, Line: i + 2, Err: fmt.Errorf("expected %d fields, got %d", len(t.Columns), len(row))}
		}
		txn, err := n.normalizeRow(idx, row)
		if err != nil {
			return nil, &LoadError{Source: label, Line: i + 2, Err: err}
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func (n *Normalizer) normalizeRow(idx columnIndex, row []string) (model.Transaction, error) {
	date, err := n.parseDate(idx.cell(row, ColDate))
	if err != nil {
		return model.Transaction{}, err
	}

	credit, err := parseAmount(idx.cell(row, ColCredit))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing credit: %w", err)
	}
	debit, err := parseAmount(idx.cell(row, ColDebit))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing debit: %w", err)
	}

	txn := model.Transaction{
		Date:        date,
		Description: idx.cell(row, ColDescription),
		Type:        model.TxnDebit,
		Amount:      debit.Abs(),
		Account:     model.StringPtr(idx.cell(row, ColAccount)),
		RefNo:       model.StringPtr(idx.cell(row, ColRefNo)),
		Category:    model.StringPtr(idx.cell(row, ColCategory)),
		Source:      n.opts.Source,
	}
	if credit.IsPositive() {
		txn.Type = model.TxnCredit
		txn.Amount = credit
	}
	if src := idx.cell(row, ColSource); src != "" {
		txn.Source = src
	}
	if txn.Account == nil {
		txn.Account = model.StringPtr(n.opts.DefaultAccount)
	}

	if cell := idx.cell(row, ColClosingBalance); !isBlank(cell) {
		bal, err := parseAmount(cell)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing closing_balance: %w", err)
		}
		txn.ClosingBalance = &bal
	}
	return txn, nil
}

func (n *Normalizer) parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing transaction_date")
	}
	for _, layout := range n.opts.DateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing date %q: no matching layout", s)
}

// isBlank reports whether a cell holds no value. "nan" is what spreadsheet
// and dataframe exports write for empty numeric cells.
func isBlank(s string) bool {
	return s == "" || s == "-" || strings.EqualFold(s, "nan")
}

// parseAmount parses a money cell, treating blanks as zero. Thousands
// separators are dropped and "(12.50)" reads as -12.50.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if isBlank(s) {
		return decimal.Zero, nil
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer(",", "", " ", "").Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}
