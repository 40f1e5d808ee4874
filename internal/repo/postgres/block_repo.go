package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studymate/backend/internal/domain/model"
	"github.com/studymate/backend/internal/repo"
)

type BlockRepo struct {
	pool *pgxpool.Pool
}

func NewBlockRepo(pool *pgxpool.Pool) *BlockRepo {
	return &BlockRepo{pool: pool}
}

func (r *BlockRepo) Create(ctx context.Context, tx pgx.Tx, blockerID, blockedID int64) (model.Block, error) {
	if blockerID <= 0 || blockedID <= 0 || blockerID == blockedID {
		return model.Block{}, fmt.Errorf("invalid block payload")
	}
	if err := requireTx(tx); err != nil {
		return model.Block{}, err
	}

	b := model.Block{BlockerID: blockerID, BlockedID: blockedID}
	err := tx.QueryRow(ctx, `
INSERT INTO blocks (
	blocker_id,
	blocked_id,
	created_at
) VALUES ($1, $2, NOW())
ON CONFLICT (blocker_id, blocked_id) DO NOTHING
RETURNING id, created_at
`, blockerID, blockedID).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Block{}, repo.ErrBlockExists
		}
		return model.Block{}, fmt.Errorf("create block: %w", err)
	}

	return b, nil
}

func (r *BlockRepo) Exists(ctx context.Context, tx pgx.Tx, blockerID, blockedID int64) (bool, error) {
	if err := requireTx(tx); err != nil {
		return false, err
	}

	var exists bool
	if err := tx.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM blocks WHERE blocker_id = $1 AND blocked_id = $2
)
`, blockerID, blockedID).Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup block: %w", err)
	}

	return exists, nil
}

func (r *BlockRepo) ExistsBetween(ctx context.Context, tx pgx.Tx, userA, userB int64) (bool, error) {
	if err := requireTx(tx); err != nil {
		return false, err
	}

	var exists bool
	if err := tx.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1
	FROM blocks
	WHERE (blocker_id = $1 AND blocked_id = $2)
		OR (blocker_id = $2 AND blocked_id = $1)
)
`, userA, userB).Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup blocks between users: %w", err)
	}

	return exists, nil
}

func (r *BlockRepo) DeleteForUser(ctx context.Context, tx pgx.Tx, userID int64) (int64, error) {
	if err := requireTx(tx); err != nil {
		return 0, err
	}

	result, err := tx.Exec(ctx, `
DELETE FROM blocks
WHERE blocker_id = $1 OR blocked_id = $1
`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user blocks: %w", err)
	}

	return result.RowsAffected(), nil
}
