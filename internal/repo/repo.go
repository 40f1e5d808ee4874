// Package repo holds the contracts shared by every storage backend: the
// transaction runner and the lookup sentinels services match against.
package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrMatchExists          = errors.New("match already exists")
	ErrChannelNotFound      = errors.New("channel not found")
	ErrChannelExists        = errors.New("individual channel already exists")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrBlockExists          = errors.New("block already exists")
)

// Transactor runs fn inside one transaction. A non-nil error from fn rolls
// back every write made through tx.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}
