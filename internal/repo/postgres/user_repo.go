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

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) FindByID(ctx context.Context, tx pgx.Tx, userID int64) (model.User, error) {
	if userID <= 0 {
		return model.User{}, repo.ErrUserNotFound
	}
	if err := requireTx(tx); err != nil {
		return model.User{}, err
	}

	var u model.User
	err := tx.QueryRow(ctx, `
SELECT id, display_name, email, status, created_at
FROM users
WHERE id = $1
`, userID).Scan(&u.ID, &u.DisplayName, &u.Email, &u.Status, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, repo.ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("find user: %w", err)
	}

	return u, nil
}

func (r *UserRepo) Delete(ctx context.Context, tx pgx.Tx, userID int64) (bool, error) {
	if err := requireTx(tx); err != nil {
		return false, err
	}

	result, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}

	return result.RowsAffected() > 0, nil
}
