package dataset

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/filterkeeper/internal/types"
)

// LoadRows runs query and appends every result row to the top level of t.
// Result columns are matched to table columns by name; unmatched result
// columns are ignored and unmatched table columns stay absent. Values are
// coerced to the declared column type when the driver returns text.
func LoadRows(ctx context.Context, db *sqlx.DB, t *Table, query string, args ...any) (int, error) {
	rows, err := db.QueryxContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", t.ID(), err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		cells := make(map[string]any)
		if err := rows.MapScan(cells); err != nil {
			return n, fmt.Errorf("load %s: scan row %d: %w", t.ID(), n, err)
		}
		values := make([]types.Value, len(t.columns))
		for i, c := range t.columns {
			raw, ok := cells[c.ID]
			if !ok {
				continue
			}
			values[i] = Coerce(types.FromNative(raw), c.Type)
		}
		if _, err := t.Append(types.TopLevel, values...); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("load %s: %w", t.ID(), err)
	}
	return n, nil
}

// Coerce converts text returned by a driver or a fixture into the declared type.
// Values that do not parse are kept as text.
func Coerce(v types.Value, typ types.DataType) types.Value {
	if v.Kind() != types.KindText {
		if typ == types.TypeBool {
			if n, ok := v.AsInt(); ok {
				return types.Bool(n != 0)
			}
		}
		return v
	}
	s := v.String()
	switch typ {
	case types.TypeInteger:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return types.Int(n)
		}
	case types.TypeFloat:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return types.Float(f)
		}
	case types.TypeBool:
		if b, err := strconv.ParseBool(s); err == nil {
			return types.Bool(b)
		}
	case types.TypeTime:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, s); err == nil {
				return types.Time(ts)
			}
		}
	case types.TypeID:
		return types.ID(s)
	}
	return v
}
