package matches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/studymate/backend/internal/domain/enums"
	"github.com/studymate/backend/internal/domain/faults"
	"github.com/studymate/backend/internal/domain/model"
	"github.com/studymate/backend/internal/repo"
)

var ErrDependenciesNil = errors.New("matches dependencies are not configured")

type UserStore interface {
	FindByID(ctx context.Context, tx pgx.Tx, userID int64) (model.User, error)
}

// MatchStore.FindByUsers must lock the row it returns for the rest of the
// transaction.
type MatchStore interface {
	FindByUsers(ctx context.Context, tx pgx.Tx, userID, targetID int64) (model.Match, error)
	Create(ctx context.Context, tx pgx.Tx, m model.Match) (model.Match, error)
	Update(ctx context.Context, tx pgx.Tx, m model.Match) (model.Match, error)
	DeleteByUsers(ctx context.Context, tx pgx.Tx, userID, targetID int64) (bool, error)
}

type BlockChecker interface {
	ExistsBetween(ctx context.Context, tx pgx.Tx, userA, userB int64) (bool, error)
}

type ChannelRegistry interface {
	FindOrCreateIndividualInTx(ctx context.Context, tx pgx.Tx, userA, userB int64) (model.Channel, error)
}

type Notifier interface {
	NotifyLikeInTx(ctx context.Context, tx pgx.Tx, targetUserID, likingUserID, matchID int64) (model.Notification, error)
	NotifyMatchInTx(ctx context.Context, tx pgx.Tx, userAID, userBID, matchID int64) ([]model.Notification, error)
	Publish(ctx context.Context, items ...model.Notification)
}

type LikeLimiter interface {
	AllowLike(ctx context.Context, userID int64) error
}

type Service struct {
	tx       repo.Transactor
	users    UserStore
	matches  MatchStore
	blocks   BlockChecker
	channels ChannelRegistry
	notifier Notifier
	limiter  LikeLimiter
	logger   *zap.Logger
}

type Dependencies struct {
	Transactor  repo.Transactor
	UserStore   UserStore
	MatchStore  MatchStore
	BlockStore  BlockChecker
	Channels    ChannelRegistry
	Notifier    Notifier
	LikeLimiter LikeLimiter
	Logger      *zap.Logger
}

type MatchView struct {
	ID        int64
	UserAID   int64
	UserBID   int64
	Status    enums.MatchStatus
	LikedByA  bool
	LikedByB  bool
	ChannelID int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func ToMatchView(m model.Match) MatchView {
	return MatchView{
		ID:        m.ID,
		UserAID:   m.UserAID,
		UserBID:   m.UserBID,
		Status:    m.Status,
		LikedByA:  m.LikedByA,
		LikedByB:  m.LikedByB,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		tx:       deps.Transactor,
		users:    deps.UserStore,
		matches:  deps.MatchStore,
		blocks:   deps.BlockStore,
		channels: deps.Channels,
		notifier: deps.Notifier,
		limiter:  deps.LikeLimiter,
		logger:   logger,
	}
}

// Like records actingUserID's interest in targetUserID. The first like of a
// pair sends the target two LIKE notifications, one on creation and one after
// the flag update. A mutual like accepts the match, opens the pair's
// individual channel and notifies both users.
func (s *Service) Like(ctx context.Context, actingUserID, targetUserID int64) (MatchView, error) {
	if err := s.ready(); err != nil {
		return MatchView{}, err
	}
	if err := validatePair(actingUserID, targetUserID); err != nil {
		return MatchView{}, err
	}
	if s.limiter != nil {
		if err := s.limiter.AllowLike(ctx, actingUserID); err != nil {
			return MatchView{}, err
		}
	}

	var (
		view    MatchView
		created []model.Notification
	)
	if err := s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		created = created[:0]
		if err := s.requireUsers(txCtx, tx, actingUserID, targetUserID); err != nil {
			return err
		}

		blocked, err := s.blocks.ExistsBetween(txCtx, tx, actingUserID, targetUserID)
		if err != nil {
			return fmt.Errorf("check block: %w", err)
		}
		if blocked {
			return faults.Blocked("interaction between these users is blocked")
		}

		m, found, err := s.findMatch(txCtx, tx, actingUserID, targetUserID)
		if err != nil {
			return err
		}
		if !found {
			m, found, err = s.createFirstLike(txCtx, tx, actingUserID, targetUserID)
			if err != nil {
				return err
			}
			if !found {
				n, err := s.notifier.NotifyLikeInTx(txCtx, tx, targetUserID, actingUserID, m.ID)
				if err != nil {
					return err
				}
				created = append(created, n)
			}
		}

		if m.Status == enums.MatchStatusRejected {
			return faults.Blocked("this pair has been rejected")
		}

		other, _ := m.OtherUserID(actingUserID)
		wasAlreadyLiked := m.LikedBy(other)
		wasAccepted := m.Status == enums.MatchStatusAccepted
		m.SetLiked(actingUserID, true)

		if m.Mutual() {
			m.Status = enums.MatchStatusAccepted
		}
		m, err = s.matches.Update(txCtx, tx, m)
		if err != nil {
			return fmt.Errorf("update match: %w", err)
		}
		view = ToMatchView(m)

		switch {
		case m.Mutual():
			ch, err := s.channels.FindOrCreateIndividualInTx(txCtx, tx, m.UserAID, m.UserBID)
			if err != nil {
				return err
			}
			view.ChannelID = ch.ID
			if wasAccepted {
				return nil
			}
			items, err := s.notifier.NotifyMatchInTx(txCtx, tx, m.UserAID, m.UserBID, m.ID)
			if err != nil {
				return err
			}
			created = append(created, items...)
		case !wasAlreadyLiked:
			n, err := s.notifier.NotifyLikeInTx(txCtx, tx, targetUserID, actingUserID, m.ID)
			if err != nil {
				return err
			}
			created = append(created, n)
		}
		return nil
	}); err != nil {
		return MatchView{}, err
	}

	s.notifier.Publish(ctx, created...)
	if view.Status == enums.MatchStatusAccepted {
		s.logger.Debug("match accepted",
			zap.Int64("match_id", view.ID),
			zap.Int64("channel_id", view.ChannelID),
		)
	}
	return view, nil
}

// Dislike marks the pair REJECTED and clears the acting side's like. A pair
// with no match gets a REJECTED row with both flags cleared.
func (s *Service) Dislike(ctx context.Context, actingUserID, targetUserID int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := validatePair(actingUserID, targetUserID); err != nil {
		return err
	}

	return s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if err := s.requireUsers(txCtx, tx, actingUserID, targetUserID); err != nil {
			return err
		}

		m, found, err := s.findMatch(txCtx, tx, actingUserID, targetUserID)
		if err != nil {
			return err
		}
		if !found {
			m, err = s.matches.Create(txCtx, tx, model.Match{
				UserAID: actingUserID,
				UserBID: targetUserID,
				Status:  enums.MatchStatusRejected,
			})
			if err == nil {
				return nil
			}
			if !errors.Is(err, repo.ErrMatchExists) {
				return fmt.Errorf("create match: %w", err)
			}
			if m, err = s.matches.FindByUsers(txCtx, tx, actingUserID, targetUserID); err != nil {
				return fmt.Errorf("reload match: %w", err)
			}
		}

		m.SetLiked(actingUserID, false)
		m.Status = enums.MatchStatusRejected
		if _, err := s.matches.Update(txCtx, tx, m); err != nil {
			return fmt.Errorf("update match: %w", err)
		}
		return nil
	})
}

func (s *Service) DeleteMatchBetween(ctx context.Context, userAID, userBID int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		return s.DeleteMatchBetweenInTx(txCtx, tx, userAID, userBID)
	})
}

// DeleteMatchBetweenInTx removes the pair's match if there is one.
func (s *Service) DeleteMatchBetweenInTx(ctx context.Context, tx pgx.Tx, userAID, userBID int64) error {
	if _, err := s.matches.DeleteByUsers(ctx, tx, userAID, userBID); err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	return nil
}

// createFirstLike inserts a PENDING match with the acting user as side A.
// When a concurrent transaction won the insert, the locked existing row is
// returned with found set.
func (s *Service) createFirstLike(ctx context.Context, tx pgx.Tx, actingUserID, targetUserID int64) (model.Match, bool, error) {
	m, err := s.matches.Create(ctx, tx, model.Match{
		UserAID:  actingUserID,
		UserBID:  targetUserID,
		Status:   enums.MatchStatusPending,
		LikedByA: true,
	})
	if err == nil {
		return m, false, nil
	}
	if !errors.Is(err, repo.ErrMatchExists) {
		return model.Match{}, false, fmt.Errorf("create match: %w", err)
	}

	existing, err := s.matches.FindByUsers(ctx, tx, actingUserID, targetUserID)
	if err != nil {
		return model.Match{}, false, fmt.Errorf("reload match: %w", err)
	}
	return existing, true, nil
}

func (s *Service) findMatch(ctx context.Context, tx pgx.Tx, userA, userB int64) (model.Match, bool, error) {
	m, err := s.matches.FindByUsers(ctx, tx, userA, userB)
	if errors.Is(err, repo.ErrMatchNotFound) {
		return model.Match{}, false, nil
	}
	if err != nil {
		return model.Match{}, false, fmt.Errorf("find match: %w", err)
	}
	return m, true, nil
}

func (s *Service) requireUsers(ctx context.Context, tx pgx.Tx, ids ...int64) error {
	for _, id := range ids {
		_, err := s.users.FindByID(ctx, tx, id)
		if errors.Is(err, repo.ErrUserNotFound) {
			return faults.NotFound(fmt.Sprintf("user %d not found", id))
		}
		if err != nil {
			return fmt.Errorf("find user %d: %w", id, err)
		}
	}
	return nil
}

func (s *Service) ready() error {
	if s.tx == nil || s.users == nil || s.matches == nil || s.blocks == nil || s.channels == nil || s.notifier == nil {
		return ErrDependenciesNil
	}
	return nil
}

func validatePair(actingUserID, targetUserID int64) error {
	if actingUserID <= 0 || targetUserID <= 0 {
		return faults.BadRequest("user ids must be positive")
	}
	if actingUserID == targetUserID {
		return faults.BadRequest("users cannot act on themselves")
	}
	return nil
}
