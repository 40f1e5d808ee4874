package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/studymate/backend/internal/domain/enums"
	"github.com/studymate/backend/internal/domain/faults"
	"github.com/studymate/backend/internal/domain/model"
	"github.com/studymate/backend/internal/repo"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

var ErrDependenciesNil = errors.New("notifications dependencies are not configured")

type UserStore interface {
	FindByID(ctx context.Context, tx pgx.Tx, userID int64) (model.User, error)
}

type NotificationStore interface {
	Create(ctx context.Context, tx pgx.Tx, n model.Notification) (model.Notification, error)
	ListForUser(ctx context.Context, tx pgx.Tx, userID int64, limit int) ([]model.Notification, error)
	CountUnread(ctx context.Context, tx pgx.Tx, userID int64) (int, error)
	MarkRead(ctx context.Context, tx pgx.Tx, userID, notificationID int64) (bool, error)
	MarkAllRead(ctx context.Context, tx pgx.Tx, userID int64) (int64, error)
}

// Publisher pushes committed notifications to realtime subscribers.
type Publisher interface {
	Publish(ctx context.Context, n model.Notification) error
}

type Service struct {
	tx        repo.Transactor
	users     UserStore
	store     NotificationStore
	publisher Publisher
	logger    *zap.Logger
}

type Dependencies struct {
	Transactor        repo.Transactor
	UserStore         UserStore
	NotificationStore NotificationStore
	Publisher         Publisher
	Logger            *zap.Logger
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		tx:        deps.Transactor,
		users:     deps.UserStore,
		store:     deps.NotificationStore,
		publisher: deps.Publisher,
		logger:    logger,
	}
}

// Create stores one unread notification and publishes it once committed.
func (s *Service) Create(ctx context.Context, userID int64, message string, typ enums.NotificationType, relatedEntityID int64) (model.Notification, error) {
	if s.tx == nil {
		return model.Notification{}, ErrDependenciesNil
	}

	var created model.Notification
	if err := s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		n, err := s.CreateInTx(txCtx, tx, userID, message, typ, relatedEntityID)
		if err != nil {
			return err
		}
		created = n
		return nil
	}); err != nil {
		return model.Notification{}, err
	}

	s.Publish(ctx, created)
	return created, nil
}

func (s *Service) CreateInTx(ctx context.Context, tx pgx.Tx, userID int64, message string, typ enums.NotificationType, relatedEntityID int64) (model.Notification, error) {
	if s.users == nil || s.store == nil {
		return model.Notification{}, ErrDependenciesNil
	}
	if _, err := s.findUser(ctx, tx, userID); err != nil {
		return model.Notification{}, err
	}

	n, err := s.store.Create(ctx, tx, model.Notification{
		UserID:          userID,
		Message:         message,
		Type:            typ,
		RelatedEntityID: relatedEntityID,
	})
	if err != nil {
		return model.Notification{}, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

// NotifyLikeInTx tells targetUserID that likingUserID liked them.
func (s *Service) NotifyLikeInTx(ctx context.Context, tx pgx.Tx, targetUserID, likingUserID, matchID int64) (model.Notification, error) {
	liker, err := s.findUser(ctx, tx, likingUserID)
	if err != nil {
		return model.Notification{}, err
	}

	return s.CreateInTx(ctx, tx, targetUserID, displayName(liker)+" liked your profile!", enums.NotificationTypeLike, matchID)
}

// NotifyMatchInTx sends each side of a match a notification naming the other.
func (s *Service) NotifyMatchInTx(ctx context.Context, tx pgx.Tx, userAID, userBID, matchID int64) ([]model.Notification, error) {
	userA, err := s.findUser(ctx, tx, userAID)
	if err != nil {
		return nil, err
	}
	userB, err := s.findUser(ctx, tx, userBID)
	if err != nil {
		return nil, err
	}

	toA, err := s.CreateInTx(ctx, tx, userA.ID, "You matched with "+displayName(userB)+"!", enums.NotificationTypeMatch, matchID)
	if err != nil {
		return nil, err
	}
	toB, err := s.CreateInTx(ctx, tx, userB.ID, "You matched with "+displayName(userA)+"!", enums.NotificationTypeMatch, matchID)
	if err != nil {
		return nil, err
	}
	return []model.Notification{toA, toB}, nil
}

// Publish is best effort. It must only be called after the creating
// transaction committed.
func (s *Service) Publish(ctx context.Context, items ...model.Notification) {
	if s.publisher == nil {
		return
	}
	for _, n := range items {
		if err := s.publisher.Publish(ctx, n); err != nil {
			s.logger.Warn("publish notification failed",
				zap.Int64("notification_id", n.ID),
				zap.Int64("user_id", n.UserID),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) List(ctx context.Context, userID int64, limit int) ([]model.Notification, error) {
	if s.tx == nil || s.store == nil {
		return nil, ErrDependenciesNil
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var items []model.Notification
	err := s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		var err error
		items, err = s.store.ListForUser(txCtx, tx, userID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	if s.tx == nil || s.store == nil {
		return 0, ErrDependenciesNil
	}

	var count int
	err := s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		var err error
		count, err = s.store.CountUnread(txCtx, tx, userID)
		return err
	})
	return count, err
}

// MarkRead marks one of userID's notifications read. Notifications owned by
// someone else are reported as missing.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID int64) error {
	if s.tx == nil || s.store == nil {
		return ErrDependenciesNil
	}

	return s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		ok, err := s.store.MarkRead(txCtx, tx, userID, notificationID)
		if err != nil {
			return err
		}
		if !ok {
			return faults.NotFound("notification not found")
		}
		return nil
	})
}

func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	if s.tx == nil || s.store == nil {
		return 0, ErrDependenciesNil
	}

	var changed int64
	err := s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		var err error
		changed, err = s.store.MarkAllRead(txCtx, tx, userID)
		return err
	})
	return changed, err
}

func (s *Service) findUser(ctx context.Context, tx pgx.Tx, userID int64) (model.User, error) {
	if s.users == nil {
		return model.User{}, ErrDependenciesNil
	}
	user, err := s.users.FindByID(ctx, tx, userID)
	if errors.Is(err, repo.ErrUserNotFound) {
		return model.User{}, faults.NotFound(fmt.Sprintf("user %d not found", userID))
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user %d: %w", userID, err)
	}
	return user, nil
}

func displayName(u model.User) string {
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	return fmt.Sprintf("User %d", u.ID)
}
