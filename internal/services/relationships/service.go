package relationships

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/studymate/backend/internal/domain/faults"
	"github.com/studymate/backend/internal/domain/model"
	"github.com/studymate/backend/internal/pkg/validate"
	"github.com/studymate/backend/internal/repo"
)

const maxReasonLength = 1000

var ErrDependenciesNil = errors.New("relationships dependencies are not configured")

type UserStore interface {
	FindByID(ctx context.Context, tx pgx.Tx, userID int64) (model.User, error)
}

type BlockStore interface {
	Create(ctx context.Context, tx pgx.Tx, blockerID, blockedID int64) (model.Block, error)
	Exists(ctx context.Context, tx pgx.Tx, blockerID, blockedID int64) (bool, error)
	ExistsBetween(ctx context.Context, tx pgx.Tx, userA, userB int64) (bool, error)
}

type ReportStore interface {
	Create(ctx context.Context, tx pgx.Tx, reporterID, reportedID int64, reason string) (model.Report, error)
}

type ChannelCascade interface {
	DeleteIndividualBetweenInTx(ctx context.Context, tx pgx.Tx, userA, userB int64) error
}

type MatchCascade interface {
	DeleteMatchBetweenInTx(ctx context.Context, tx pgx.Tx, userAID, userBID int64) error
}

type ReportLimiter interface {
	AllowReport(ctx context.Context, userID int64) error
}

type Service struct {
	tx       repo.Transactor
	users    UserStore
	blocks   BlockStore
	reports  ReportStore
	channels ChannelCascade
	matches  MatchCascade
	limiter  ReportLimiter
	logger   *zap.Logger
}

type Dependencies struct {
	Transactor    repo.Transactor
	UserStore     UserStore
	BlockStore    BlockStore
	ReportStore   ReportStore
	Channels      ChannelCascade
	Matches       MatchCascade
	ReportLimiter ReportLimiter
	Logger        *zap.Logger
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		tx:       deps.Transactor,
		users:    deps.UserStore,
		blocks:   deps.BlockStore,
		reports:  deps.ReportStore,
		channels: deps.Channels,
		matches:  deps.Matches,
		limiter:  deps.ReportLimiter,
		logger:   logger,
	}
}

// Block records blockerID blocking blockedID and removes the pair's
// individual channel and match in the same transaction.
func (s *Service) Block(ctx context.Context, blockerID, blockedID int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	if blockerID == blockedID {
		return faults.BadRequest("users cannot block themselves")
	}

	if err := s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if err := s.requireUsers(txCtx, tx, blockerID, blockedID); err != nil {
			return err
		}

		exists, err := s.blocks.Exists(txCtx, tx, blockerID, blockedID)
		if err != nil {
			return fmt.Errorf("check block: %w", err)
		}
		if exists {
			return faults.Conflict("user is already blocked")
		}
		if _, err := s.blocks.Create(txCtx, tx, blockerID, blockedID); err != nil {
			if errors.Is(err, repo.ErrBlockExists) {
				return faults.Conflict("user is already blocked")
			}
			return fmt.Errorf("create block: %w", err)
		}

		return s.cascade(txCtx, tx, blockerID, blockedID)
	}); err != nil {
		return err
	}

	s.logger.Info("user blocked",
		zap.Int64("blocker_id", blockerID),
		zap.Int64("blocked_id", blockedID),
	)
	return nil
}

// Report stores an audit record and cascades exactly like Block.
func (s *Service) Report(ctx context.Context, reporterID, reportedID int64, reason string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if reporterID == reportedID {
		return faults.BadRequest("users cannot report themselves")
	}
	reason = strings.TrimSpace(reason)
	if !validate.Required(reason) {
		return faults.BadRequest("report reason is required")
	}
	if !validate.MaxRunes(reason, maxReasonLength) {
		return faults.BadRequest(fmt.Sprintf("report reason must be at most %d characters", maxReasonLength))
	}
	if err := s.checkReportRate(ctx, reporterID); err != nil {
		return err
	}

	if err := s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if err := s.requireUsers(txCtx, tx, reporterID, reportedID); err != nil {
			return err
		}
		if _, err := s.reports.Create(txCtx, tx, reporterID, reportedID, reason); err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		return s.cascade(txCtx, tx, reporterID, reportedID)
	}); err != nil {
		return err
	}

	s.logger.Info("user reported",
		zap.Int64("reporter_id", reporterID),
		zap.Int64("reported_id", reportedID),
	)
	return nil
}

// IsInteractionBlocked reports whether either user blocked the other.
func (s *Service) IsInteractionBlocked(ctx context.Context, userA, userB int64) (bool, error) {
	if s.tx == nil || s.blocks == nil {
		return false, ErrDependenciesNil
	}

	var blocked bool
	err := s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		var err error
		blocked, err = s.blocks.ExistsBetween(txCtx, tx, userA, userB)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("check interaction block: %w", err)
	}
	return blocked, nil
}

func (s *Service) checkReportRate(ctx context.Context, reporterID int64) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.AllowReport(ctx, reporterID)
}

func (s *Service) cascade(ctx context.Context, tx pgx.Tx, userA, userB int64) error {
	if err := s.channels.DeleteIndividualBetweenInTx(ctx, tx, userA, userB); err != nil {
		return err
	}
	return s.matches.DeleteMatchBetweenInTx(ctx, tx, userA, userB)
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
	if s.tx == nil || s.users == nil || s.blocks == nil || s.reports == nil || s.channels == nil || s.matches == nil {
		return ErrDependenciesNil
	}
	return nil
}
