package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jobradar/jobradar/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostingStore reads and prunes job postings.
type PostingStore struct {
	pool *pgxpool.Pool
}

func NewPostingStore(pool *pgxpool.Pool) *PostingStore {
	return &PostingStore{pool: pool}
}

const postingColumns = `id, title, company, location, tags, salary, url, source, discovered_at`

func scanPostings(rows pgx.Rows) ([]*model.Posting, error) {
	defer rows.Close()

	var postings []*model.Posting
	for rows.Next() {
		var p model.Posting
		err := rows.Scan(&p.ID, &p.Title, &p.Company, &p.Location, &p.Tags, &p.Salary, &p.URL, &p.Source, &p.DiscoveredAt)
		if err != nil {
			return nil, fmt.Errorf("scanning posting: %w", err)
		}
		postings = append(postings, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading postings: %w", err)
	}
	return postings, nil
}

// ByIDs resolves posting ids to postings. Missing ids are silently dropped;
// a trigger may reference postings already pruned.
func (s *PostingStore) ByIDs(ctx context.Context, ids []string) ([]*model.Posting, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `SELECT `+postingColumns+` FROM postings WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("querying postings by id: %w", err)
	}
	return scanPostings(rows)
}

// RecentWindow returns at most limit postings discovered at or after since,
// newest first.
func (s *PostingStore) RecentWindow(ctx context.Context, since time.Time, limit int) ([]*model.Posting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+postingColumns+` FROM postings WHERE discovered_at >= $1 ORDER BY discovered_at DESC LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent postings: %w", err)
	}
	return scanPostings(rows)
}

// DeleteOlderThan removes at most limit postings discovered before the
// cutoff and reports how many went. Match records referencing them are
// removed by the foreign key cascade.
func (s *PostingStore) DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM postings WHERE ctid IN (
			SELECT ctid FROM postings WHERE discovered_at < $1 LIMIT $2
		)`,
		cutoff, limit,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting stale postings: %w", err)
	}
	return tag.RowsAffected(), nil
}
