package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/studymate/backend/internal/domain/model"
	"github.com/studymate/backend/internal/repo"
)

var ErrDependenciesNil = errors.New("accounts dependencies are not configured")

type UserStore interface {
	FindByID(ctx context.Context, tx pgx.Tx, userID int64) (model.User, error)
	Delete(ctx context.Context, tx pgx.Tx, userID int64) (bool, error)
}

type ChannelTeardown interface {
	TeardownUserChannelsInTx(ctx context.Context, tx pgx.Tx, userID int64) error
}

type MessageStore interface {
	DeleteBySender(ctx context.Context, tx pgx.Tx, senderID int64) (int64, error)
}

// UserScopedStore deletes every row that references a user.
type UserScopedStore interface {
	DeleteForUser(ctx context.Context, tx pgx.Tx, userID int64) (int64, error)
}

type Service struct {
	tx            repo.Transactor
	users         UserStore
	channels      ChannelTeardown
	messages      MessageStore
	matches       UserScopedStore
	notifications UserScopedStore
	blocks        UserScopedStore
	reports       UserScopedStore
	logger        *zap.Logger
}

type Dependencies struct {
	Transactor        repo.Transactor
	UserStore         UserStore
	Channels          ChannelTeardown
	MessageStore      MessageStore
	MatchStore        UserScopedStore
	NotificationStore UserScopedStore
	BlockStore        UserScopedStore
	ReportStore       UserScopedStore
	Logger            *zap.Logger
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		tx:            deps.Transactor,
		users:         deps.UserStore,
		channels:      deps.Channels,
		messages:      deps.MessageStore,
		matches:       deps.MatchStore,
		notifications: deps.NotificationStore,
		blocks:        deps.BlockStore,
		reports:       deps.ReportStore,
		logger:        logger,
	}
}

// Delete removes userID and everything that references it in one
// transaction. Deleting an unknown user is a no-op.
func (s *Service) Delete(ctx context.Context, userID int64) error {
	if s.tx == nil || s.users == nil || s.channels == nil || s.messages == nil ||
		s.matches == nil || s.notifications == nil || s.blocks == nil || s.reports == nil {
		return ErrDependenciesNil
	}

	var (
		deleted bool
		counts  = make(map[string]int64, 5)
	)
	err := s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := s.users.FindByID(txCtx, tx, userID); err != nil {
			if errors.Is(err, repo.ErrUserNotFound) {
				return nil
			}
			return fmt.Errorf("find user %d: %w", userID, err)
		}

		if err := s.channels.TeardownUserChannelsInTx(txCtx, tx, userID); err != nil {
			return err
		}

		n, err := s.messages.DeleteBySender(txCtx, tx, userID)
		if err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		counts["messages"] = n

		for _, step := range []struct {
			name  string
			store UserScopedStore
		}{
			{name: "matches", store: s.matches},
			{name: "notifications", store: s.notifications},
			{name: "blocks", store: s.blocks},
			{name: "reports", store: s.reports},
		} {
			n, err := step.store.DeleteForUser(txCtx, tx, userID)
			if err != nil {
				return fmt.Errorf("delete %s: %w", step.name, err)
			}
			counts[step.name] = n
		}

		deleted, err = s.users.Delete(txCtx, tx, userID)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if deleted {
		s.logger.Info("account deleted",
			zap.Int64("user_id", userID),
			zap.Int64("messages", counts["messages"]),
			zap.Int64("matches", counts["matches"]),
			zap.Int64("notifications", counts["notifications"]),
			zap.Int64("blocks", counts["blocks"]),
			zap.Int64("reports", counts["reports"]),
		)
	}
	return nil
}
