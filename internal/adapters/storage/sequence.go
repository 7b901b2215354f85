package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// SlugsContaining returns every slug in table that contains base, ordered by slug.
// When scopeColumn is set only rows whose scopeColumn equals scopeID are searched.
// Table and column names come from store code, never from callers.
// PRE: base is a slug (lowercase letters, digits, hyphens), so it holds no LIKE wildcards
func SlugsContaining(ctx context.Context, q sqlx.ExtContext, table, scopeColumn, scopeID, base string) ([]string, error) {
	query := `SELECT slug FROM ` + table + ` WHERE slug LIKE ?`
	args := []any{"%" + base + "%"}
	if scopeColumn != "" {
		query += ` AND ` + scopeColumn + ` = ?`
		args = append(args, scopeID)
	}
	query += ` ORDER BY slug`

	var slugs []string
	if err := sqlx.SelectContext(ctx, q, &slugs, q.Rebind(query), args...); err != nil {
		return nil, Classify(err, table+" slugs")
	}
	return slugs, nil
}

// NextOrdinal returns one past the highest ordinal among the children of parentID,
// or 1 when there are none.
// PRE: called inside the transaction that inserts the child
func NextOrdinal(ctx context.Context, q sqlx.ExtContext, table, parentColumn, parentID string) (int, error) {
	var next int
	err := sqlx.GetContext(ctx, q, &next, q.Rebind(
		`SELECT COALESCE(MAX(ordinal), 0) + 1 FROM `+table+` WHERE `+parentColumn+` = ?`), parentID)
	if err != nil {
		return 0, Classify(err, table+" order")
	}
	return next, nil
}
