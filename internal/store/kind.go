package store

// Kind identifies an entity table.
type Kind int

const (
	KindTransaction Kind = iota + 1
	KindGoal
	KindSuggestion
	KindUserSetting
	KindIngestRun
)

// Kinds lists every declared entity in schema order.
var Kinds = []Kind{KindTransaction, KindGoal, KindSuggestion, KindUserSetting, KindIngestRun}

type kindDef struct {
	table     string
	key       string
	refColumn string
	columns   map[string]bool
}

func columnSet(cols ...string) map[string]bool {
	m := make(map[string]bool, len(cols))
	for _, c := range cols {
		m[c] = true
	}
	return m
}

var kindDefs = map[Kind]kindDef{
	KindTransaction: {
		table:     "transactions",
		key:       "id",
		refColumn: "ref_no",
		columns: columnSet("transaction_date", "description", "amount", "type",
			"closing_balance", "account", "ref_no", "category", "source"),
	},
	KindGoal: {
		table: "goals",
		key:   "goal_id",
		columns: columnSet("name", "goal_type", "target_amount", "current_amount",
			"target_date", "monthly_target", "is_active"),
	},
	KindSuggestion: {
		table: "suggestions",
		key:   "id",
		columns: columnSet("goal_id", "suggestion_type", "content", "reason",
			"impact_description", "impact_numeric", "priority", "status", "implemented_at"),
	},
	KindUserSetting: {
		table:   "user_settings",
		key:     "key",
		columns: columnSet("key", "value"),
	},
	KindIngestRun: {
		table: "ingest_runs",
		key:   "id",
		columns: columnSet("id", "source", "mode", "rows_read", "rows_inserted",
			"rows_skipped", "rows_replaced", "started_at", "finished_at", "error"),
	},
}

// Table returns the table name backing k.
func (k Kind) Table() string { return kindDefs[k].table }

func (k Kind) String() string {
	if def, ok := kindDefs[k]; ok {
		return def.table
	}
	return "unknown"
}

func (k Kind) def() (kindDef, bool) {
	def, ok := kindDefs[k]
	return def, ok
}
