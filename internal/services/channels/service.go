package channels

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
	"github.com/studymate/backend/internal/pkg/validate"
	"github.com/studymate/backend/internal/repo"
)

const maxMessageLength = 4000

var ErrDependenciesNil = errors.New("channels dependencies are not configured")

type UserStore interface {
	FindByID(ctx context.Context, tx pgx.Tx, userID int64) (model.User, error)
}

type ChannelStore interface {
	Create(ctx context.Context, tx pgx.Tx, ch model.Channel) (model.Channel, error)
	FindByID(ctx context.Context, tx pgx.Tx, channelID int64) (model.Channel, error)
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, channelID int64) (model.Channel, error)
	ListForUser(ctx context.Context, tx pgx.Tx, userID int64) ([]model.Channel, error)
	ListIndividualForUser(ctx context.Context, tx pgx.Tx, userID int64) ([]model.Channel, error)
	UpdateDetails(ctx context.Context, tx pgx.Tx, channelID int64, name, image string) error
	AddParticipant(ctx context.Context, tx pgx.Tx, p model.Participant) (model.Participant, error)
	RemoveParticipant(ctx context.Context, tx pgx.Tx, channelID, userID int64) (bool, error)
	SetParticipantRole(ctx context.Context, tx pgx.Tx, channelID, userID int64, role enums.ParticipantRole) error
	Delete(ctx context.Context, tx pgx.Tx, channelID int64) (bool, error)
}

type MessageStore interface {
	Create(ctx context.Context, tx pgx.Tx, msg model.Message) (model.Message, error)
	ListByChannel(ctx context.Context, tx pgx.Tx, channelID int64) ([]model.Message, error)
	DeleteByChannel(ctx context.Context, tx pgx.Tx, channelID int64) (int64, error)
}

type Service struct {
	tx       repo.Transactor
	users    UserStore
	channels ChannelStore
	messages MessageStore
	logger   *zap.Logger
}

type Dependencies struct {
	Transactor   repo.Transactor
	UserStore    UserStore
	ChannelStore ChannelStore
	MessageStore MessageStore
	Logger       *zap.Logger
}

type CreateChannelInput struct {
	Type           enums.ChannelType
	Name           string
	Image          string
	ParticipantIDs []int64
}

// UpdateChannelInput replaces a group's participant set. Nil Name or Image
// keeps the current value.
type UpdateChannelInput struct {
	ActorID        int64
	Name           *string
	Image          *string
	ParticipantIDs []int64
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		tx:       deps.Transactor,
		users:    deps.UserStore,
		channels: deps.ChannelStore,
		messages: deps.MessageStore,
		logger:   logger,
	}
}

func (s *Service) CreateChannel(ctx context.Context, in CreateChannelInput) (ChannelView, error) {
	if err := s.ready(); err != nil {
		return ChannelView{}, err
	}

	var created model.Channel
	if err := s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		ch, err := s.CreateChannelInTx(txCtx, tx, in)
		if err != nil {
			return err
		}
		created = ch
		return nil
	}); err != nil {
		return ChannelView{}, err
	}

	return ToChannelView(created), nil
}

// CreateChannelInTx makes the first participant admin and everyone else a
// member. An individual channel request for a pair that already has one
// returns the existing channel.
func (s *Service) CreateChannelInTx(ctx context.Context, tx pgx.Tx, in CreateChannelInput) (model.Channel, error) {
	ids := uniqueIDs(in.ParticipantIDs)
	if len(ids) == 0 {
		return model.Channel{}, faults.BadRequest("participant list must not be empty")
	}

	switch in.Type {
	case enums.ChannelTypeIndividual:
		if len(ids) != 2 || len(in.ParticipantIDs) != 2 {
			return model.Channel{}, faults.BadRequest("individual channel requires exactly two participants")
		}
	case enums.ChannelTypeGroup:
	default:
		return model.Channel{}, faults.BadRequest(fmt.Sprintf("unknown channel type %q", in.Type))
	}

	users, err := s.resolveUsers(ctx, tx, ids)
	if err != nil {
		return model.Channel{}, err
	}

	ch := model.Channel{
		Type:  in.Type,
		Name:  strings.TrimSpace(in.Name),
		Image: strings.TrimSpace(in.Image),
	}
	for i, id := range ids {
		role := enums.ParticipantRoleMember
		if i == 0 {
			role = enums.ParticipantRoleAdmin
		}
		ch.Participants = append(ch.Participants, model.Participant{UserID: id, Role: role})
	}

	if ch.IsIndividual() {
		existing, ok, err := s.findIndividual(ctx, tx, ids[0], ids[1])
		if err != nil {
			return model.Channel{}, err
		}
		if ok {
			return existing, nil
		}
		ch.Name = pairName(users[0], users[1])
	}

	return s.createChannel(ctx, tx, ch)
}

// FindOrCreateIndividualInTx returns the channel whose participants are
// exactly {userA, userB}, creating it with both as members when absent.
func (s *Service) FindOrCreateIndividualInTx(ctx context.Context, tx pgx.Tx, userA, userB int64) (model.Channel, error) {
	if userA == userB {
		return model.Channel{}, faults.BadRequest("individual channel requires two distinct users")
	}

	existing, ok, err := s.findIndividual(ctx, tx, userA, userB)
	if err != nil {
		return model.Channel{}, err
	}
	if ok {
		return existing, nil
	}

	users, err := s.resolveUsers(ctx, tx, []int64{userA, userB})
	if err != nil {
		return model.Channel{}, err
	}

	return s.createChannel(ctx, tx, model.Channel{
		Type: enums.ChannelTypeIndividual,
		Name: pairName(users[0], users[1]),
		Participants: []model.Participant{
			{UserID: userA, Role: enums.ParticipantRoleMember},
			{UserID: userB, Role: enums.ParticipantRoleMember},
		},
	})
}

func (s *Service) FindOrCreateIndividual(ctx context.Context, userA, userB int64) (ChannelView, error) {
	if err := s.ready(); err != nil {
		return ChannelView{}, err
	}

	var ch model.Channel
	if err := s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		var err error
		ch, err = s.FindOrCreateIndividualInTx(txCtx, tx, userA, userB)
		return err
	}); err != nil {
		return ChannelView{}, err
	}
	return ToChannelView(ch), nil
}

func (s *Service) ListForUser(ctx context.Context, userID int64) ([]ChannelView, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var items []model.Channel
	if err := s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		var err error
		items, err = s.channels.ListForUser(txCtx, tx, userID)
		return err
	}); err != nil {
		return nil, fmt.Errorf("list channels for user %d: %w", userID, err)
	}
	return ToChannelViews(items), nil
}

func (s *Service) SendMessage(ctx context.Context, channelID, senderID int64, content string) (MessageView, error) {
	if err := s.ready(); err != nil {
		return MessageView{}, err
	}
	content = strings.TrimSpace(content)
	if !validate.Required(content) {
		return MessageView{}, faults.BadRequest("message content must not be empty")
	}
	if !validate.MaxRunes(content, maxMessageLength) {
		return MessageView{}, faults.BadRequest(fmt.Sprintf("message content must be at most %d characters", maxMessageLength))
	}

	var created model.Message
	if err := s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		ch, err := s.findChannel(txCtx, tx, channelID, false)
		if err != nil {
			return err
		}
		if _, err := s.findUser(txCtx, tx, senderID); err != nil {
			return err
		}
		if !ch.HasParticipant(senderID) {
			return faults.Unauthorized("sender is not a participant of this channel")
		}

		created, err = s.messages.Create(txCtx, tx, model.Message{
			ChannelID: ch.ID,
			SenderID:  senderID,
			Content:   content,
		})
		if err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		return nil
	}); err != nil {
		return MessageView{}, err
	}

	return ToMessageView(created), nil
}

// GetHistory returns the channel's messages oldest first.
func (s *Service) GetHistory(ctx context.Context, channelID int64) ([]MessageView, error) {
	return s.history(ctx, channelID, 0)
}

// GetHistoryForUser is GetHistory restricted to current participants.
func (s *Service) GetHistoryForUser(ctx context.Context, channelID, userID int64) ([]MessageView, error) {
	if userID <= 0 {
		return nil, faults.Unauthorized("user is required")
	}
	return s.history(ctx, channelID, userID)
}

func (s *Service) history(ctx context.Context, channelID, viewerID int64) ([]MessageView, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var items []model.Message
	if err := s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		ch, err := s.findChannel(txCtx, tx, channelID, false)
		if err != nil {
			return err
		}
		if viewerID > 0 && !ch.HasParticipant(viewerID) {
			return faults.Unauthorized("user is not a participant of this channel")
		}
		items, err = s.messages.ListByChannel(txCtx, tx, ch.ID)
		if err != nil {
			return fmt.Errorf("list messages: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return ToMessageViews(items), nil
}

// UpdateChannel renames a group and replaces its participant set. Kept
// participants keep their roles. When the admin is dropped the first
// remaining participant in join order is promoted.
func (s *Service) UpdateChannel(ctx context.Context, channelID int64, in UpdateChannelInput) (ChannelView, error) {
	if err := s.ready(); err != nil {
		return ChannelView{}, err
	}

	var updated model.Channel
	if err := s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		ch, err := s.findChannel(txCtx, tx, channelID, true)
		if err != nil {
			return err
		}
		if ch.IsIndividual() {
			return faults.BadRequest("individual channels cannot be updated")
		}
		if in.ActorID > 0 && !ch.HasParticipant(in.ActorID) {
			return faults.Unauthorized("user is not a participant of this channel")
		}

		ids := uniqueIDs(in.ParticipantIDs)
		if len(ids) == 0 {
			return faults.BadRequest("participant list must not be empty")
		}
		if _, err := s.resolveUsers(txCtx, tx, ids); err != nil {
			return err
		}

		wanted := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			wanted[id] = struct{}{}
		}
		for _, p := range ch.Participants {
			if _, keep := wanted[p.UserID]; keep {
				continue
			}
			if _, err := s.channels.RemoveParticipant(txCtx, tx, ch.ID, p.UserID); err != nil {
				return fmt.Errorf("remove participant %d: %w", p.UserID, err)
			}
		}
		for _, id := range ids {
			if ch.HasParticipant(id) {
				continue
			}
			if _, err := s.channels.AddParticipant(txCtx, tx, model.Participant{
				ChannelID: ch.ID,
				UserID:    id,
				Role:      enums.ParticipantRoleMember,
			}); err != nil {
				return fmt.Errorf("add participant %d: %w", id, err)
			}
		}

		name, image := ch.Name, ch.Image
		if in.Name != nil {
			name = strings.TrimSpace(*in.Name)
		}
		if in.Image != nil {
			image = strings.TrimSpace(*in.Image)
		}
		if err := s.channels.UpdateDetails(txCtx, tx, ch.ID, name, image); err != nil {
			return fmt.Errorf("update channel details: %w", err)
		}

		updated, err = s.ensureAdmin(txCtx, tx, ch.ID)
		return err
	}); err != nil {
		return ChannelView{}, err
	}

	return ToChannelView(updated), nil
}

func (s *Service) DeleteIndividualChannelBetween(ctx context.Context, userA, userB int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		return s.DeleteIndividualBetweenInTx(txCtx, tx, userA, userB)
	})
}

// DeleteIndividualBetweenInTx removes every individual channel shared by the
// pair together with its messages.
func (s *Service) DeleteIndividualBetweenInTx(ctx context.Context, tx pgx.Tx, userA, userB int64) error {
	items, err := s.channels.ListIndividualForUser(ctx, tx, userA)
	if err != nil {
		return fmt.Errorf("list individual channels: %w", err)
	}

	for _, ch := range items {
		if !ch.HasParticipant(userB) {
			continue
		}
		if err := s.deleteChannel(ctx, tx, ch.ID); err != nil {
			return err
		}
		s.logger.Debug("individual channel deleted",
			zap.Int64("channel_id", ch.ID),
			zap.Int64("user_a", userA),
			zap.Int64("user_b", userB),
		)
	}
	return nil
}

func (s *Service) TeardownUserChannels(ctx context.Context, userID int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		return s.TeardownUserChannelsInTx(txCtx, tx, userID)
	})
}

// TeardownUserChannelsInTx removes userID from every channel. Individual
// channels and groups left empty are deleted with their messages. A group
// that lost its admin promotes the first remaining participant.
func (s *Service) TeardownUserChannelsInTx(ctx context.Context, tx pgx.Tx, userID int64) error {
	items, err := s.channels.ListForUser(ctx, tx, userID)
	if err != nil {
		return fmt.Errorf("list channels for teardown: %w", err)
	}

	for _, ch := range items {
		if ch.IsIndividual() {
			if err := s.deleteChannel(ctx, tx, ch.ID); err != nil {
				return err
			}
			continue
		}

		if _, err := s.channels.RemoveParticipant(ctx, tx, ch.ID, userID); err != nil {
			return fmt.Errorf("remove participant %d: %w", userID, err)
		}
		if len(ch.Participants) <= 1 {
			if err := s.deleteChannel(ctx, tx, ch.ID); err != nil {
				return err
			}
			continue
		}
		if _, err := s.ensureAdmin(ctx, tx, ch.ID); err != nil {
			return err
		}
	}
	return nil
}

// ensureAdmin promotes the first participant in join order when the channel
// has none, and returns the reloaded channel.
func (s *Service) ensureAdmin(ctx context.Context, tx pgx.Tx, channelID int64) (model.Channel, error) {
	ch, err := s.findChannel(ctx, tx, channelID, false)
	if err != nil {
		return model.Channel{}, err
	}
	if len(ch.Participants) == 0 || ch.AdminCount() > 0 {
		return ch, nil
	}

	first := ch.Participants[0].UserID
	if err := s.channels.SetParticipantRole(ctx, tx, ch.ID, first, enums.ParticipantRoleAdmin); err != nil {
		return model.Channel{}, fmt.Errorf("promote admin: %w", err)
	}
	ch.Participants[0].Role = enums.ParticipantRoleAdmin
	return ch, nil
}

func (s *Service) createChannel(ctx context.Context, tx pgx.Tx, ch model.Channel) (model.Channel, error) {
	created, err := s.channels.Create(ctx, tx, ch)
	if errors.Is(err, repo.ErrChannelExists) {
		existing, ok, findErr := s.findIndividual(ctx, tx, ch.Participants[0].UserID, ch.Participants[1].UserID)
		if findErr != nil {
			return model.Channel{}, findErr
		}
		if ok {
			return existing, nil
		}
	}
	if err != nil {
		return model.Channel{}, fmt.Errorf("create channel: %w", err)
	}
	return created, nil
}

func (s *Service) deleteChannel(ctx context.Context, tx pgx.Tx, channelID int64) error {
	if _, err := s.messages.DeleteByChannel(ctx, tx, channelID); err != nil {
		return fmt.Errorf("delete messages of channel %d: %w", channelID, err)
	}
	if _, err := s.channels.Delete(ctx, tx, channelID); err != nil {
		return fmt.Errorf("delete channel %d: %w", channelID, err)
	}
	return nil
}

func (s *Service) findIndividual(ctx context.Context, tx pgx.Tx, userA, userB int64) (model.Channel, bool, error) {
	items, err := s.channels.ListIndividualForUser(ctx, tx, userA)
	if err != nil {
		return model.Channel{}, false, fmt.Errorf("list individual channels: %w", err)
	}
	for _, ch := range items {
		if ch.HasExactly(userA, userB) {
			return ch, true, nil
		}
	}
	return model.Channel{}, false, nil
}

func (s *Service) findChannel(ctx context.Context, tx pgx.Tx, channelID int64, forUpdate bool) (model.Channel, error) {
	var (
		ch  model.Channel
		err error
	)
	if forUpdate {
		ch, err = s.channels.FindByIDForUpdate(ctx, tx, channelID)
	} else {
		ch, err = s.channels.FindByID(ctx, tx, channelID)
	}
	if errors.Is(err, repo.ErrChannelNotFound) {
		return model.Channel{}, faults.NotFound(fmt.Sprintf("channel %d not found", channelID))
	}
	if err != nil {
		return model.Channel{}, fmt.Errorf("find channel %d: %w", channelID, err)
	}
	return ch, nil
}

func (s *Service) resolveUsers(ctx context.Context, tx pgx.Tx, ids []int64) ([]model.User, error) {
	out := make([]model.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.findUser(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *Service) findUser(ctx context.Context, tx pgx.Tx, userID int64) (model.User, error) {
	u, err := s.users.FindByID(ctx, tx, userID)
	if errors.Is(err, repo.ErrUserNotFound) {
		return model.User{}, faults.NotFound(fmt.Sprintf("user %d not found", userID))
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user %d: %w", userID, err)
	}
	return u, nil
}

func (s *Service) ready() error {
	if s.tx == nil || s.users == nil || s.channels == nil || s.messages == nil {
		return ErrDependenciesNil
	}
	return nil
}

func pairName(a, b model.User) string {
	return displayName(a) + "&" + displayName(b)
}

func displayName(u model.User) string {
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	return fmt.Sprintf("User %d", u.ID)
}

// uniqueIDs drops duplicates, keeping first occurrence order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
