package store

import (
	"context"
	"fmt"

	"github.com/jobradar/jobradar/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileStore reads users and their search profiles.
type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

const userColumns = `id, email, active, notify_email, notify_in_app, notify_push,
	legacy_keywords, legacy_excludes, legacy_min_score, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Active, &u.NotifyEmail, &u.NotifyInApp, &u.NotifyPush,
		&u.LegacyKeywords, &u.LegacyExcludes, &u.LegacyMinScore, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ActiveUsers returns every user eligible for matching.
func (s *ProfileStore) ActiveUsers(ctx context.Context) ([]*model.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying active users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading users: %w", err)
	}
	return users, nil
}

func (s *ProfileStore) UserByID(ctx context.Context, userID string) (*model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", userID, err)
	}
	return u, nil
}

const profileColumns = `id, user_id, name, include_keywords, exclude_keywords, avoid_companies,
	min_score, location, remote, salary, active, created_at, updated_at`

// ActiveProfiles returns the user's active search profiles, oldest first.
func (s *ProfileStore) ActiveProfiles(ctx context.Context, userID string) ([]*model.SearchProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM search_profiles WHERE user_id = $1 AND active ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying profiles for user %s: %w", userID, err)
	}
	defer rows.Close()

	var profiles []*model.SearchProfile
	for rows.Next() {
		var p model.SearchProfile
		err := rows.Scan(
			&p.ID, &p.UserID, &p.Name, &p.IncludeKeywords, &p.ExcludeKeywords, &p.AvoidCompanies,
			&p.MinScore, &p.Location, &p.Remote, &p.Salary, &p.Active, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		profiles = append(profiles, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading profiles: %w", err)
	}
	return profiles, nil
}
