package store

import (
	"context"
	"fmt"

	"github.com/jobradar/jobradar/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultBatchLimit = 200
	maxBatchLimit     = 500
)

// MatchStore is the match ledger. Uniqueness of (user, profile, posting) is
// enforced by the table's primary key; writes that lose the race simply
// report zero rows.
type MatchStore struct {
	pool       *pgxpool.Pool
	batchLimit int
}

func NewMatchStore(pool *pgxpool.Pool, batchLimit int) *MatchStore {
	if batchLimit <= 0 {
		batchLimit = defaultBatchLimit
	}
	if batchLimit > maxBatchLimit {
		batchLimit = maxBatchLimit
	}
	return &MatchStore{pool: pool, batchLimit: batchLimit}
}

const insertMatchSQL = `
	INSERT INTO matches (user_id, profile_id, posting_id, score, reasons, weaknesses, suggestions, matched_keywords, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (user_id, profile_id, posting_id) DO NOTHING`

func insertArgs(r *model.MatchRecord) []any {
	return []any{
		r.UserID, r.ProfileID, r.PostingID, r.Score,
		r.Reasons, r.Weaknesses, r.Suggestions, r.MatchedKeywords, r.CreatedAt,
	}
}

// TryCreate writes one match record and reports whether this call created
// it. A false return means the record already existed.
func (s *MatchStore) TryCreate(ctx context.Context, record *model.MatchRecord) (bool, error) {
	tag, err := s.pool.Exec(ctx, insertMatchSQL, insertArgs(record)...)
	if err != nil {
		return false, fmt.Errorf("inserting match: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CreateBatch writes records in chunks of at most the configured batch limit
// and returns the subset this call actually created. Records rejected by the
// uniqueness guard are left out of the result, not reported as errors.
func (s *MatchStore) CreateBatch(ctx context.Context, records []*model.MatchRecord) ([]*model.MatchRecord, error) {
	created := make([]*model.MatchRecord, 0, len(records))

	for _, chunk := range chunkRecords(records, s.batchLimit) {
		batch := &pgx.Batch{}
		for _, r := range chunk {
			batch.Queue(insertMatchSQL, insertArgs(r)...)
		}

		results := s.pool.SendBatch(ctx, batch)
		for _, r := range chunk {
			tag, err := results.Exec()
			if err != nil {
				results.Close()
				return created, fmt.Errorf("inserting match batch: %w", err)
			}
			if tag.RowsAffected() == 1 {
				created = append(created, r)
			}
		}
		if err := results.Close(); err != nil {
			return created, fmt.Errorf("closing match batch: %w", err)
		}
	}

	return created, nil
}

// Exists reports whether a match for the candidate is already in the ledger.
// With an empty profile id the check spans all of the user's profiles.
func (s *MatchStore) Exists(ctx context.Context, userID, profileID, postingID string) (bool, error) {
	var (
		query = `SELECT EXISTS (SELECT 1 FROM matches WHERE user_id = $1 AND posting_id = $2)`
		args  = []any{userID, postingID}
	)
	if profileID != "" {
		query = `SELECT EXISTS (SELECT 1 FROM matches WHERE user_id = $1 AND posting_id = $2 AND profile_id = $3)`
		args = append(args, profileID)
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking match existence: %w", err)
	}
	return exists, nil
}

const matchColumns = `user_id, profile_id, posting_id, score, reasons, weaknesses, suggestions,
	matched_keywords, viewed, saved, applied, notified_at, created_at`

// ListByUser returns the user's matches, best score first. A non-empty
// profileID narrows the listing to that profile.
func (s *MatchStore) ListByUser(ctx context.Context, userID, profileID string, limit int) ([]*model.MatchRecord, error) {
	var (
		query = `SELECT ` + matchColumns + ` FROM matches WHERE user_id = $1 ORDER BY score DESC, created_at DESC LIMIT $2`
		args  = []any{userID, limit}
	)
	if profileID != "" {
		query = `SELECT ` + matchColumns + ` FROM matches WHERE user_id = $1 AND profile_id = $2 ORDER BY score DESC, created_at DESC LIMIT $3`
		args = []any{userID, profileID, limit}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying matches for user %s: %w", userID, err)
	}
	defer rows.Close()

	var records []*model.MatchRecord
	for rows.Next() {
		var r model.MatchRecord
		err := rows.Scan(
			&r.UserID, &r.ProfileID, &r.PostingID, &r.Score, &r.Reasons, &r.Weaknesses, &r.Suggestions,
			&r.MatchedKeywords, &r.Viewed, &r.Saved, &r.Applied, &r.NotifiedAt, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading matches: %w", err)
	}
	return records, nil
}

// ClaimNotification marks the record as notified and reports whether this
// call won the claim. At most one caller ever gets true per record.
func (s *MatchStore) ClaimNotification(ctx context.Context, userID, profileID, postingID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE matches SET notified_at = now()
		 WHERE user_id = $1 AND profile_id = $2 AND posting_id = $3 AND notified_at IS NULL`,
		userID, profileID, postingID,
	)
	if err != nil {
		return false, fmt.Errorf("claiming notification: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func chunkRecords(records []*model.MatchRecord, size int) [][]*model.MatchRecord {
	if len(records) == 0 {
		return nil
	}

	chunks := make([][]*model.MatchRecord, 0, (len(records)+size-1)/size)
	for size < len(records) {
		chunks = append(chunks, records[:size])
		records = records[size:]
	}
	return append(chunks, records)
}
