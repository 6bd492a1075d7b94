package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

type sqlBackendKind string

const (
	backendSQLite   sqlBackendKind = "sqlite"
	backendMySQL    sqlBackendKind = "mysql"
	backendPostgres sqlBackendKind = "postgres"
	backendMongoDB  sqlBackendKind = "mongodb"
)

func backendKind(name string) sqlBackendKind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "":
		return backendSQLite
	case "mysql":
		return backendMySQL
	case "postgres", "postgresql":
		return backendPostgres
	case "mongodb", "mongo":
		return backendMongoDB
	default:
		return sqlBackendKind(name)
	}
}

func placeholder(k sqlBackendKind, idx int) string {
	if k == backendPostgres {
		return fmt.Sprintf("$%d", idx)
	}
	return "?"
}

// rebind rewrites '?' placeholders for the dialect. Queries never contain a literal '?'.
func rebind(k sqlBackendKind, q string) string {
	if k != backendPostgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// upsertSQL builds a single-statement insert-or-update keyed on key.
func upsertSQL(k sqlBackendKind, table string, cols []string, key string) string {
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = placeholder(k, i+1)
	}
	var sets []string
	for _, c := range cols {
		if c == key {
			continue
		}
		switch k {
		case backendMySQL:
			sets = append(sets, fmt.Sprintf("%s=VALUES(%s)", c, c))
		case backendPostgres:
			sets = append(sets, fmt.Sprintf("%s=EXCLUDED.%s", c, c))
		default:
			sets = append(sets, fmt.Sprintf("%s=excluded.%s", c, c))
		}
	}
	head := fmt.Sprintf("INSERT INTO %s(%s) VALUES(%s)", table, strings.Join(cols, ", "), strings.Join(ph, ", "))
	if k == backendMySQL {
		return head + " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	return head + fmt.Sprintf(" ON CONFLICT(%s) DO UPDATE SET ", key) + strings.Join(sets, ", ")
}

func setDBPoolDefaults(db *sql.DB, maxOpen int) {
	if db == nil {
		return
	}
	if maxOpen <= 0 {
		maxOpen = 4
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(0)
}
