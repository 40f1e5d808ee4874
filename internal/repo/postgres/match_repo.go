package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studymate/backend/internal/domain/enums"
	"github.com/studymate/backend/internal/domain/model"
	"github.com/studymate/backend/internal/repo"
)

type MatchRepo struct {
	pool *pgxpool.Pool
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

// FindByUsers returns the pair's match and holds a row lock on it until the
// transaction ends, so concurrent likes on one pair are applied one after
// another.
func (r *MatchRepo) FindByUsers(ctx context.Context, tx pgx.Tx, userID, targetID int64) (model.Match, error) {
	if userID <= 0 || targetID <= 0 {
		return model.Match{}, fmt.Errorf("invalid match lookup payload")
	}
	if err := requireTx(tx); err != nil {
		return model.Match{}, err
	}

	low, high := model.PairKey(userID, targetID)

	var (
		m      model.Match
		status string
	)
	err := tx.QueryRow(ctx, `
SELECT id, user_a_id, user_b_id, status, liked_by_a, liked_by_b, created_at, updated_at
FROM matches
WHERE LEAST(user_a_id, user_b_id) = $1
	AND GREATEST(user_a_id, user_b_id) = $2
FOR UPDATE
`, low, high).Scan(&m.ID, &m.UserAID, &m.UserBID, &status, &m.LikedByA, &m.LikedByB, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Match{}, repo.ErrMatchNotFound
		}
		return model.Match{}, fmt.Errorf("find match: %w", err)
	}

	parsed, err := enums.ParseMatchStatus(status)
	if err != nil {
		return model.Match{}, fmt.Errorf("decode match %d: %w", m.ID, err)
	}
	m.Status = parsed

	return m, nil
}

// Create inserts m. ErrMatchExists means another transaction created the
// pair's row first.
func (r *MatchRepo) Create(ctx context.Context, tx pgx.Tx, m model.Match) (model.Match, error) {
	if m.UserAID <= 0 || m.UserBID <= 0 || m.UserAID == m.UserBID {
		return model.Match{}, fmt.Errorf("invalid match payload")
	}
	if err := requireTx(tx); err != nil {
		return model.Match{}, err
	}

	err := tx.QueryRow(ctx, `
INSERT INTO matches (
	user_a_id,
	user_b_id,
	status,
	liked_by_a,
	liked_by_b,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
ON CONFLICT DO NOTHING
RETURNING id, created_at, updated_at
`, m.UserAID, m.UserBID, string(m.Status), m.LikedByA, m.LikedByB).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Match{}, repo.ErrMatchExists
		}
		return model.Match{}, fmt.Errorf("create match: %w", err)
	}

	return m, nil
}

func (r *MatchRepo) Update(ctx context.Context, tx pgx.Tx, m model.Match) (model.Match, error) {
	if m.ID <= 0 {
		return model.Match{}, fmt.Errorf("invalid match update payload")
	}
	if err := requireTx(tx); err != nil {
		return model.Match{}, err
	}

	err := tx.QueryRow(ctx, `
UPDATE matches
SET status = $2,
	liked_by_a = $3,
	liked_by_b = $4,
	updated_at = NOW()
WHERE id = $1
RETURNING updated_at
`, m.ID, string(m.Status), m.LikedByA, m.LikedByB).Scan(&m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Match{}, repo.ErrMatchNotFound
		}
		return model.Match{}, fmt.Errorf("update match: %w", err)
	}

	return m, nil
}

func (r *MatchRepo) DeleteByUsers(ctx context.Context, tx pgx.Tx, userID, targetID int64) (bool, error) {
	if userID <= 0 || targetID <= 0 {
		return false, fmt.Errorf("invalid match delete payload")
	}
	if err := requireTx(tx); err != nil {
		return false, err
	}

	low, high := model.PairKey(userID, targetID)

	result, err := tx.Exec(ctx, `
DELETE FROM matches
WHERE LEAST(user_a_id, user_b_id) = $1
	AND GREATEST(user_a_id, user_b_id) = $2
`, low, high)
	if err != nil {
		return false, fmt.Errorf("delete match: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *MatchRepo) DeleteForUser(ctx context.Context, tx pgx.Tx, userID int64) (int64, error) {
	if err := requireTx(tx); err != nil {
		return 0, err
	}

	result, err := tx.Exec(ctx, `
DELETE FROM matches
WHERE user_a_id = $1 OR user_b_id = $1
`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user matches: %w", err)
	}

	return result.RowsAffected(), nil
}
