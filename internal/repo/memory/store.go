// Package memory is a single-process storage backend. Transactions are
// serialised behind one mutex and rolled back by restoring a snapshot, which
// gives the same all-or-nothing behaviour the postgres backend provides.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/studymate/backend/internal/domain/model"
	"github.com/studymate/backend/internal/repo"
)

type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

type state struct {
	seq           int64
	users         map[int64]model.User
	matches       map[int64]model.Match
	channels      map[int64]model.Channel
	messages      map[int64]model.Message
	notifications map[int64]model.Notification
	blocks        map[int64]model.Block
	reports       map[int64]model.Report
}

var _ repo.Transactor = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		state: newState(),
		now:   time.Now,
	}
}

func newState() *state {
	return &state{
		users:         make(map[int64]model.User),
		matches:       make(map[int64]model.Match),
		channels:      make(map[int64]model.Channel),
		messages:      make(map[int64]model.Message),
		notifications: make(map[int64]model.Notification),
		blocks:        make(map[int64]model.Block),
		reports:       make(map[int64]model.Report),
	}
}

func (s *state) clone() *state {
	out := newState()
	out.seq = s.seq
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.matches {
		out.matches[k] = v
	}
	for k, v := range s.channels {
		out.channels[k] = cloneChannel(v)
	}
	for k, v := range s.messages {
		out.messages[k] = v
	}
	for k, v := range s.notifications {
		out.notifications[k] = v
	}
	for k, v := range s.blocks {
		out.blocks[k] = v
	}
	for k, v := range s.reports {
		out.reports[k] = v
	}
	return out
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

func cloneChannel(ch model.Channel) model.Channel {
	ch.Participants = append([]model.Participant(nil), ch.Participants...)
	return ch
}

// WithinTx runs fn while holding the store lock. Store methods must not call
// WithinTx again from inside fn.
func (s *Store) WithinTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(ctx, nil); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// SetClock replaces the time source used for created/updated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SeedUser registers a user. Registration lives outside this service, so the
// memory backend needs a way to load accounts.
func (s *Store) SeedUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID <= 0 {
		u.ID = s.state.nextID()
	} else if u.ID > s.state.seq {
		s.state.seq = u.ID
	}
	if u.Status == "" {
		u.Status = "active"
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	s.state.users[u.ID] = u
	return u
}

func (s *Store) Users() *UserRepo                 { return &UserRepo{store: s} }
func (s *Store) Matches() *MatchRepo             { return &MatchRepo{store: s} }
func (s *Store) Channels() *ChannelRepo           { return &ChannelRepo{store: s} }
func (s *Store) Messages() *MessageRepo           { return &MessageRepo{store: s} }
func (s *Store) Notifications() *NotificationRepo { return &NotificationRepo{store: s} }
func (s *Store) Blocks() *BlockRepo               { return &BlockRepo{store: s} }
func (s *Store) Reports() *ReportRepo             { return &ReportRepo{store: s} }

func (s *Store) clock() time.Time {
	return s.now().UTC()
}
