package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Query collects select options.
type Query struct {
	filters []filter
	order   string
	desc    bool
	limit   int
}

type filter struct {
	field string
	value string
}

// QueryOption narrows a Select.
type QueryOption func(*Query)

// Eq keeps rows whose document field equals value (text comparison).
func Eq(field, value string) QueryOption {
	return func(q *Query) { q.filters = append(q.filters, filter{field: field, value: value}) }
}

// OrderBy sorts by a document field using jsonb ordering, so numbers sort numerically.
func OrderBy(field string, desc bool) QueryOption {
	return func(q *Query) { q.order, q.desc = field, desc }
}

// Limit caps the number of rows.
func Limit(n int) QueryOption {
	return func(q *Query) { q.limit = n }
}

// NewQuery applies opts to an empty Query.
func NewQuery(opts ...QueryOption) Query {
	var q Query
	for _, opt := range opts {
		opt(&q)
	}
	return q
}

// Match reports whether a decoded document satisfies every Eq filter.
// Values are compared in their text form, as the ->> operator does.
func (q Query) Match(doc map[string]any) bool {
	for _, f := range q.filters {
		v, ok := doc[f.field]
		if !ok || fmt.Sprint(v) != f.value {
			return false
		}
	}
	return true
}

// MaxRows returns the Limit, or 0 when unbounded.
func (q Query) MaxRows() int { return q.limit }

// Table runs statements against one collection table.
type Table struct {
	client *Client
	name   string
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

func (t *Table) ident() string { return pgx.Identifier{t.name}.Sanitize() }

// buildSelect renders the SELECT statement and its arguments for q.
func (t *Table) buildSelect(q Query) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, len(q.filters)*2+2)
	fmt.Fprintf(&sb, "SELECT doc FROM %s", t.ident())
	for i, f := range q.filters {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		args = append(args, f.field, f.value)
		fmt.Fprintf(&sb, "doc->>($%d::text) = $%d::text", len(args)-1, len(args))
	}
	if q.order != "" {
		args = append(args, q.order)
		fmt.Fprintf(&sb, " ORDER BY doc->($%d::text)", len(args))
		if q.desc {
			sb.WriteString(" DESC")
		}
	} else {
		sb.WriteString(" ORDER BY updated_at")
	}
	if q.limit > 0 {
		args = append(args, q.limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	return sb.String(), args
}

// Select returns the raw JSON documents matching opts.
func (t *Table) Select(ctx context.Context, opts ...QueryOption) ([][]byte, error) {
	if t.client == nil || t.client.pool == nil {
		return nil, ErrNoConnection
	}
	sql, args := t.buildSelect(NewQuery(opts...))

	rows, err := t.client.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, &QueryError{Table: t.name, Op: "select", Err: err}
	}
	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) ([]byte, error) {
		var doc []byte
		err := row.Scan(&doc)
		return doc, err
	})
	if err != nil {
		return nil, &QueryError{Table: t.name, Op: "select", Err: err}
	}
	return docs, nil
}

// Insert adds a new row; an existing id is an error.
func (t *Table) Insert(ctx context.Context, id string, doc []byte) error {
	sql := fmt.Sprintf("INSERT INTO %s (id, doc) VALUES ($1, $2)", t.ident())
	_, err := t.exec(ctx, "insert", sql, id, doc)
	return err
}

// Update replaces the document of an existing row.
func (t *Table) Update(ctx context.Context, id string, doc []byte) error {
	sql := fmt.Sprintf("UPDATE %s SET doc = $2, updated_at = now() WHERE id = $1", t.ident())
	n, err := t.exec(ctx, "update", sql, id, doc)
	if err != nil {
		return err
	}
	if n == 0 {
		return &QueryError{Table: t.name, Op: "update", Err: ErrNotFound}
	}
	return nil
}

// Upsert inserts or replaces the row for id.
func (t *Table) Upsert(ctx context.Context, id string, doc []byte) error {
	sql := fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`, t.ident())
	_, err := t.exec(ctx, "upsert", sql, id, doc)
	return err
}

// Delete removes the row for id.
func (t *Table) Delete(ctx context.Context, id string) error {
	sql := fmt.Sprintf("DELETE FROM %s WHERE id = $1", t.ident())
	n, err := t.exec(ctx, "delete", sql, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return &QueryError{Table: t.name, Op: "delete", Err: ErrNotFound}
	}
	return nil
}

func (t *Table) exec(ctx context.Context, op, sql string, args ...any) (int64, error) {
	if t.client == nil || t.client.pool == nil {
		return 0, ErrNoConnection
	}
	tag, err := t.client.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, &QueryError{Table: t.name, Op: op, Err: err}
	}
	return tag.RowsAffected(), nil
}
