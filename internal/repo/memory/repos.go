package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/studymate/backend/internal/domain/enums"
	"github.com/studymate/backend/internal/domain/model"
	"github.com/studymate/backend/internal/repo"
)

// Every repo below is only called from inside Store.WithinTx, which already
// holds the lock, so none of them lock on their own.

type UserRepo struct{ store *Store }

func (r *UserRepo) FindByID(_ context.Context, _ pgx.Tx, userID int64) (model.User, error) {
	u, ok := r.store.state.users[userID]
	if !ok {
		return model.User{}, repo.ErrUserNotFound
	}
	return u, nil
}

func (r *UserRepo) Delete(_ context.Context, _ pgx.Tx, userID int64) (bool, error) {
	if _, ok := r.store.state.users[userID]; !ok {
		return false, nil
	}
	delete(r.store.state.users, userID)
	return true, nil
}

type MatchRepo struct{ store *Store }

func (r *MatchRepo) FindByUsers(_ context.Context, _ pgx.Tx, userID, targetID int64) (model.Match, error) {
	if m, ok := r.find(userID, targetID); ok {
		return m, nil
	}
	return model.Match{}, repo.ErrMatchNotFound
}

func (r *MatchRepo) find(userID, targetID int64) (model.Match, bool) {
	low, high := model.PairKey(userID, targetID)
	for _, m := range r.store.state.matches {
		a, b := model.PairKey(m.UserAID, m.UserBID)
		if a == low && b == high {
			return m, true
		}
	}
	return model.Match{}, false
}

func (r *MatchRepo) Create(_ context.Context, _ pgx.Tx, m model.Match) (model.Match, error) {
	if m.UserAID <= 0 || m.UserBID <= 0 || m.UserAID == m.UserBID {
		return model.Match{}, fmt.Errorf("invalid match payload")
	}
	if _, ok := r.find(m.UserAID, m.UserBID); ok {
		return model.Match{}, repo.ErrMatchExists
	}

	now := r.store.clock()
	m.ID = r.store.state.nextID()
	m.CreatedAt = now
	m.UpdatedAt = now
	r.store.state.matches[m.ID] = m
	return m, nil
}

func (r *MatchRepo) Update(_ context.Context, _ pgx.Tx, m model.Match) (model.Match, error) {
	if _, ok := r.store.state.matches[m.ID]; !ok {
		return model.Match{}, repo.ErrMatchNotFound
	}
	m.UpdatedAt = r.store.clock()
	r.store.state.matches[m.ID] = m
	return m, nil
}

func (r *MatchRepo) DeleteByUsers(_ context.Context, _ pgx.Tx, userID, targetID int64) (bool, error) {
	m, ok := r.find(userID, targetID)
	if !ok {
		return false, nil
	}
	delete(r.store.state.matches, m.ID)
	return true, nil
}

func (r *MatchRepo) DeleteForUser(_ context.Context, _ pgx.Tx, userID int64) (int64, error) {
	var n int64
	for id, m := range r.store.state.matches {
		if m.HasUser(userID) {
			delete(r.store.state.matches, id)
			n++
		}
	}
	return n, nil
}

// All returns every stored match ordered by id.
func (r *MatchRepo) All() []model.Match {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	out := make([]model.Match, 0, len(r.store.state.matches))
	for _, m := range r.store.state.matches {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type ChannelRepo struct{ store *Store }

func (r *ChannelRepo) Create(_ context.Context, _ pgx.Tx, ch model.Channel) (model.Channel, error) {
	if len(ch.Participants) == 0 {
		return model.Channel{}, fmt.Errorf("channel requires participants")
	}
	if ch.IsIndividual() {
		if len(ch.Participants) != 2 {
			return model.Channel{}, fmt.Errorf("individual channel requires two participants")
		}
		a, b := ch.Participants[0].UserID, ch.Participants[1].UserID
		for _, existing := range r.store.state.channels {
			if existing.IsIndividual() && existing.HasExactly(a, b) {
				return model.Channel{}, repo.ErrChannelExists
			}
		}
	}

	now := r.store.clock()
	ch.ID = r.store.state.nextID()
	ch.CreatedAt = now
	ch.UpdatedAt = now
	ch = cloneChannel(ch)
	for i := range ch.Participants {
		ch.Participants[i].ChannelID = ch.ID
		ch.Participants[i].JoinedAt = now
	}
	r.store.state.channels[ch.ID] = ch
	return cloneChannel(ch), nil
}

func (r *ChannelRepo) FindByID(_ context.Context, _ pgx.Tx, channelID int64) (model.Channel, error) {
	ch, ok := r.store.state.channels[channelID]
	if !ok {
		return model.Channel{}, repo.ErrChannelNotFound
	}
	return cloneChannel(ch), nil
}

func (r *ChannelRepo) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, channelID int64) (model.Channel, error) {
	return r.FindByID(ctx, tx, channelID)
}

func (r *ChannelRepo) ListForUser(_ context.Context, _ pgx.Tx, userID int64) ([]model.Channel, error) {
	return r.list(userID, ""), nil
}

func (r *ChannelRepo) ListIndividualForUser(_ context.Context, _ pgx.Tx, userID int64) ([]model.Channel, error) {
	return r.list(userID, enums.ChannelTypeIndividual), nil
}

func (r *ChannelRepo) list(userID int64, channelType enums.ChannelType) []model.Channel {
	out := make([]model.Channel, 0)
	for _, ch := range r.store.state.channels {
		if channelType != "" && ch.Type != channelType {
			continue
		}
		if ch.HasParticipant(userID) {
			out = append(out, cloneChannel(ch))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *ChannelRepo) UpdateDetails(_ context.Context, _ pgx.Tx, channelID int64, name, image string) error {
	ch, ok := r.store.state.channels[channelID]
	if !ok {
		return repo.ErrChannelNotFound
	}
	ch.Name = name
	ch.Image = image
	ch.UpdatedAt = r.store.clock()
	r.store.state.channels[channelID] = ch
	return nil
}

func (r *ChannelRepo) AddParticipant(_ context.Context, _ pgx.Tx, p model.Participant) (model.Participant, error) {
	ch, ok := r.store.state.channels[p.ChannelID]
	if !ok {
		return model.Participant{}, repo.ErrChannelNotFound
	}
	for i := range ch.Participants {
		if ch.Participants[i].UserID == p.UserID {
			ch.Participants[i].Role = p.Role
			r.store.state.channels[ch.ID] = ch
			return ch.Participants[i], nil
		}
	}
	p.JoinedAt = r.store.clock()
	ch.Participants = append(ch.Participants, p)
	r.store.state.channels[ch.ID] = ch
	return p, nil
}

func (r *ChannelRepo) RemoveParticipant(_ context.Context, _ pgx.Tx, channelID, userID int64) (bool, error) {
	ch, ok := r.store.state.channels[channelID]
	if !ok {
		return false, nil
	}
	kept := ch.Participants[:0:0]
	removed := false
	for _, p := range ch.Participants {
		if p.UserID == userID {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	ch.Participants = kept
	r.store.state.channels[channelID] = ch
	return removed, nil
}

func (r *ChannelRepo) SetParticipantRole(_ context.Context, _ pgx.Tx, channelID, userID int64, role enums.ParticipantRole) error {
	ch, ok := r.store.state.channels[channelID]
	if !ok {
		return repo.ErrChannelNotFound
	}
	for i := range ch.Participants {
		if ch.Participants[i].UserID == userID {
			ch.Participants[i].Role = role
			r.store.state.channels[channelID] = ch
			return nil
		}
	}
	return fmt.Errorf("participant %d not found in channel %d", userID, channelID)
}

func (r *ChannelRepo) Delete(_ context.Context, _ pgx.Tx, channelID int64) (bool, error) {
	if _, ok := r.store.state.channels[channelID]; !ok {
		return false, nil
	}
	delete(r.store.state.channels, channelID)
	for id, msg := range r.store.state.messages {
		if msg.ChannelID == channelID {
			delete(r.store.state.messages, id)
		}
	}
	return true, nil
}

// All returns every stored channel ordered by id.
func (r *ChannelRepo) All() []model.Channel {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	out := make([]model.Channel, 0, len(r.store.state.channels))
	for _, ch := range r.store.state.channels {
		out = append(out, cloneChannel(ch))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type MessageRepo struct{ store *Store }

func (r *MessageRepo) Create(_ context.Context, _ pgx.Tx, msg model.Message) (model.Message, error) {
	if _, ok := r.store.state.channels[msg.ChannelID]; !ok {
		return model.Message{}, repo.ErrChannelNotFound
	}
	msg.ID = r.store.state.nextID()
	msg.CreatedAt = r.store.clock()
	r.store.state.messages[msg.ID] = msg
	return msg, nil
}

func (r *MessageRepo) ListByChannel(_ context.Context, _ pgx.Tx, channelID int64) ([]model.Message, error) {
	out := make([]model.Message, 0)
	for _, msg := range r.store.state.messages {
		if msg.ChannelID == channelID {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MessageRepo) DeleteByChannel(_ context.Context, _ pgx.Tx, channelID int64) (int64, error) {
	return r.deleteWhere(func(msg model.Message) bool { return msg.ChannelID == channelID }), nil
}

func (r *MessageRepo) DeleteBySender(_ context.Context, _ pgx.Tx, senderID int64) (int64, error) {
	return r.deleteWhere(func(msg model.Message) bool { return msg.SenderID == senderID }), nil
}

func (r *MessageRepo) deleteWhere(match func(model.Message) bool) int64 {
	var n int64
	for id, msg := range r.store.state.messages {
		if match(msg) {
			delete(r.store.state.messages, id)
			n++
		}
	}
	return n
}

// Count returns the number of stored messages.
func (r *MessageRepo) Count() int {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return len(r.store.state.messages)
}

type NotificationRepo struct{ store *Store }

func (r *NotificationRepo) Create(_ context.Context, _ pgx.Tx, n model.Notification) (model.Notification, error) {
	if n.UserID <= 0 {
		return model.Notification{}, fmt.Errorf("invalid notification payload")
	}
	n.ID = r.store.state.nextID()
	n.Read = false
	n.CreatedAt = r.store.clock()
	r.store.state.notifications[n.ID] = n
	return n, nil
}

func (r *NotificationRepo) ListForUser(_ context.Context, _ pgx.Tx, userID int64, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	out := make([]model.Notification, 0)
	for _, n := range r.store.state.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *NotificationRepo) CountUnread(_ context.Context, _ pgx.Tx, userID int64) (int, error) {
	count := 0
	for _, n := range r.store.state.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *NotificationRepo) MarkRead(_ context.Context, _ pgx.Tx, userID, notificationID int64) (bool, error) {
	n, ok := r.store.state.notifications[notificationID]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.Read = true
	r.store.state.notifications[notificationID] = n
	return true, nil
}

func (r *NotificationRepo) MarkAllRead(_ context.Context, _ pgx.Tx, userID int64) (int64, error) {
	var changed int64
	for id, n := range r.store.state.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			r.store.state.notifications[id] = n
			changed++
		}
	}
	return changed, nil
}

func (r *NotificationRepo) DeleteForUser(_ context.Context, _ pgx.Tx, userID int64) (int64, error) {
	var n int64
	for id, item := range r.store.state.notifications {
		if item.UserID == userID {
			delete(r.store.state.notifications, id)
			n++
		}
	}
	return n, nil
}

func (r *NotificationRepo) DeleteReadOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var n int64
	for id, item := range r.store.state.notifications {
		if item.Read && item.CreatedAt.Before(cutoff) {
			delete(r.store.state.notifications, id)
			n++
		}
	}
	return n, nil
}

// All returns every stored notification ordered by id.
func (r *NotificationRepo) All() []model.Notification {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	out := make([]model.Notification, 0, len(r.store.state.notifications))
	for _, n := range r.store.state.notifications {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type BlockRepo struct{ store *Store }

func (r *BlockRepo) Create(_ context.Context, _ pgx.Tx, blockerID, blockedID int64) (model.Block, error) {
	if blockerID <= 0 || blockedID <= 0 || blockerID == blockedID {
		return model.Block{}, fmt.Errorf("invalid block payload")
	}
	if r.exists(blockerID, blockedID) {
		return model.Block{}, repo.ErrBlockExists
	}
	b := model.Block{
		ID:        r.store.state.nextID(),
		BlockerID: blockerID,
		BlockedID: blockedID,
		CreatedAt: r.store.clock(),
	}
	r.store.state.blocks[b.ID] = b
	return b, nil
}

func (r *BlockRepo) Exists(_ context.Context, _ pgx.Tx, blockerID, blockedID int64) (bool, error) {
	return r.exists(blockerID, blockedID), nil
}

func (r *BlockRepo) ExistsBetween(_ context.Context, _ pgx.Tx, userA, userB int64) (bool, error) {
	return r.exists(userA, userB) || r.exists(userB, userA), nil
}

func (r *BlockRepo) exists(blockerID, blockedID int64) bool {
	for _, b := range r.store.state.blocks {
		if b.BlockerID == blockerID && b.BlockedID == blockedID {
			return true
		}
	}
	return false
}

func (r *BlockRepo) DeleteForUser(_ context.Context, _ pgx.Tx, userID int64) (int64, error) {
	var n int64
	for id, b := range r.store.state.blocks {
		if b.BlockerID == userID || b.BlockedID == userID {
			delete(r.store.state.blocks, id)
			n++
		}
	}
	return n, nil
}

type ReportRepo struct{ store *Store }

func (r *ReportRepo) Create(_ context.Context, _ pgx.Tx, reporterID, reportedID int64, reason string) (model.Report, error) {
	if reporterID <= 0 || reportedID <= 0 || reporterID == reportedID {
		return model.Report{}, fmt.Errorf("invalid report payload")
	}
	if strings.TrimSpace(reason) == "" {
		return model.Report{}, fmt.Errorf("report reason is required")
	}
	rep := model.Report{
		ID:         r.store.state.nextID(),
		ReporterID: reporterID,
		ReportedID: reportedID,
		Reason:     strings.TrimSpace(reason),
		CreatedAt:  r.store.clock(),
	}
	r.store.state.reports[rep.ID] = rep
	return rep, nil
}

func (r *ReportRepo) DeleteForUser(_ context.Context, _ pgx.Tx, userID int64) (int64, error) {
	var n int64
	for id, rep := range r.store.state.reports {
		if rep.ReporterID == userID || rep.ReportedID == userID {
			delete(r.store.state.reports, id)
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored reports.
func (r *ReportRepo) Count() int {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return len(r.store.state.reports)
}
