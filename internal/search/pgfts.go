package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

const pgAuthorLabel = `COALESCE(NULLIF(TRIM(u.display_name), ''), NULLIF(TRIM(u.handle), ''), TRIM(u.real_name), '')`

// Search queries messages using plainto_tsquery and ts_rank, with
// ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := "m.fts @@ plainto_tsquery('english', $1)"
	args := []any{q.Text}
	if q.FilterAuthorID != "" {
		where += " AND m.author_id = $2"
		args = append(args, q.FilterAuthorID)
	}

	countSQL := fmt.Sprintf(`SELECT count(*) FROM messages m WHERE %s`, where)

	dataSQL := fmt.Sprintf(`
		SELECT m.id,
			ts_headline('english', m.body, plainto_tsquery('english', $1), 'MaxFragments=1,MaxWords=30') AS snippet,
			%s AS author_label,
			m.author_id,
			EXTRACT(EPOCH FROM m.created_at)::bigint AS created_at,
			ts_rank(m.fts, plainto_tsquery('english', $1)) AS rank
		FROM messages m
		JOIN users u ON u.id = m.author_id
		WHERE %s
		ORDER BY rank DESC, m.created_at DESC, m.id DESC
		LIMIT %d OFFSET %d`, pgAuthorLabel, where, limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var rank float64
		if err := rows.Scan(&r.ID, &r.Snippet, &r.AuthorLabel, &r.AuthorID, &r.CreatedAt, &rank); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all indexable messages for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]MessageRecord, error) {
	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT m.id, m.body, %s, m.author_id, EXTRACT(EPOCH FROM m.created_at)::bigint
		FROM messages m
		JOIN users u ON u.id = m.author_id
	`, pgAuthorLabel))
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	records := make([]MessageRecord, 0)
	for rows.Next() {
		var r MessageRecord
		if err := rows.Scan(&r.ID, &r.Body, &r.AuthorLabel, &r.AuthorID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return records, nil
}
