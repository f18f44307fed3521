package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// sqliteTimeLayout is fixed width so TEXT timestamps compare lexically.
const sqliteTimeLayout = "2006-01-02 15:04:05.000"

type dialect struct {
	name         string
	driver       string
	migrationDir string
	numbered     bool
}

var (
	dialectSQLite = dialect{
		name:         "sqlite",
		driver:       "sqlite",
		migrationDir: "migrations/sqlite",
	}
	dialectPostgres = dialect{
		name:         "postgres",
		driver:       "postgres",
		migrationDir: "migrations/postgres",
		numbered:     true,
	}
)

// dialectForDSN selects postgres for postgres:// URLs and sqlite otherwise.
func dialectForDSN(dsn string) dialect {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return dialectPostgres
	}
	return dialectSQLite
}

// rebind rewrites '?' placeholders as $1..$n for numbered dialects.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) timeArg(t time.Time) any {
	if d.numbered {
		return t.UTC()
	}
	return t.UTC().Format(sqliteTimeLayout)
}

func (d dialect) parseTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		return parseTimeString(v)
	case []byte:
		return parseTimeString(string(v))
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", raw)
	}
}

func parseTimeString(value string) (time.Time, error) {
	for _, layout := range []string{sqliteTimeLayout, "2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse timestamp %q", value)
}
