package channels

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/studymate/backend/internal/domain/enums"
	"github.com/studymate/backend/internal/domain/faults"
	"github.com/studymate/backend/internal/domain/model"
	"github.com/studymate/backend/internal/repo/memory"
)

func TestCreateChannelValidation(t *testing.T) {
	store, users := seededStore(3)
	svc := newTestService(store)
	a, b, c := users[0].ID, users[1].ID, users[2].ID

	tests := []struct {
		name string
		in   CreateChannelInput
		kind error
	}{
		{name: "empty participants", in: CreateChannelInput{Type: enums.ChannelTypeGroup}, kind: faults.ErrBadRequest},
		{name: "individual with three", in: CreateChannelInput{Type: enums.ChannelTypeIndividual, ParticipantIDs: []int64{a, b, c}}, kind: faults.ErrBadRequest},
		{name: "individual with one", in: CreateChannelInput{Type: enums.ChannelTypeIndividual, ParticipantIDs: []int64{a}}, kind: faults.ErrBadRequest},
		{name: "individual with same user twice", in: CreateChannelInput{Type: enums.ChannelTypeIndividual, ParticipantIDs: []int64{a, a}}, kind: faults.ErrBadRequest},
		{name: "unknown type", in: CreateChannelInput{Type: "broadcast", ParticipantIDs: []int64{a}}, kind: faults.ErrBadRequest},
		{name: "unknown user", in: CreateChannelInput{Type: enums.ChannelTypeGroup, ParticipantIDs: []int64{a, 999}}, kind: faults.ErrNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateChannel(context.Background(), tc.in)
			if !errors.Is(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
		})
	}

	if got := len(store.Channels().All()); got != 0 {
		t.Fatalf("failed creates must not persist channels, found %d", got)
	}
}

func TestCreateGroupChannelAssignsFirstAdmin(t *testing.T) {
	store, users := seededStore(3)
	svc := newTestService(store)

	view, err := svc.CreateChannel(context.Background(), CreateChannelInput{
		Type:           enums.ChannelTypeGroup,
		Name:           " Algebra ",
		ParticipantIDs: []int64{users[1].ID, users[0].ID, users[2].ID},
	})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if view.Name != "Algebra" {
		t.Fatalf("unexpected name: %q", view.Name)
	}
	if len(view.Participants) != 3 {
		t.Fatalf("expected three participants, got %d", len(view.Participants))
	}
	if view.Participants[0].UserID != users[1].ID || view.Participants[0].Role != enums.ParticipantRoleAdmin {
		t.Fatalf("first participant must be admin: %+v", view.Participants[0])
	}
	for _, p := range view.Participants[1:] {
		if p.Role != enums.ParticipantRoleMember {
			t.Fatalf("expected member role: %+v", p)
		}
	}
}

func TestCreateIndividualChannelNamesPairAndReusesExisting(t *testing.T) {
	store, users := seededStore(2)
	svc := newTestService(store)
	ctx := context.Background()

	first, err := svc.CreateChannel(ctx, CreateChannelInput{
		Type:           enums.ChannelTypeIndividual,
		ParticipantIDs: []int64{users[0].ID, users[1].ID},
	})
	if err != nil {
		t.Fatalf("create individual: %v", err)
	}
	if first.Name != "User1&User2" {
		t.Fatalf("unexpected synthesized name: %q", first.Name)
	}

	second, err := svc.CreateChannel(ctx, CreateChannelInput{
		Type:           enums.ChannelTypeIndividual,
		ParticipantIDs: []int64{users[1].ID, users[0].ID},
	})
	if err != nil {
		t.Fatalf("create individual again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected existing channel %d, got %d", first.ID, second.ID)
	}

	found, err := svc.FindOrCreateIndividual(ctx, users[1].ID, users[0].ID)
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	if found.ID != first.ID {
		t.Fatalf("expected existing channel %d, got %d", first.ID, found.ID)
	}
	if got := len(store.Channels().All()); got != 1 {
		t.Fatalf("expected one channel, found %d", got)
	}
}

func TestFindOrCreateIndividualCreatesMembersOnly(t *testing.T) {
	store, users := seededStore(3)
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.CreateChannel(ctx, CreateChannelInput{
		Type:           enums.ChannelTypeGroup,
		ParticipantIDs: []int64{users[0].ID, users[1].ID},
	}); err != nil {
		t.Fatalf("create group: %v", err)
	}

	view, err := svc.FindOrCreateIndividual(ctx, users[0].ID, users[1].ID)
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	if view.Type != enums.ChannelTypeIndividual {
		t.Fatalf("group channel with the same pair must not be reused")
	}
	for _, p := range view.Participants {
		if p.Role != enums.ParticipantRoleMember {
			t.Fatalf("auto-created pair channel must have members only: %+v", p)
		}
	}
}

func TestSendMessageAndHistory(t *testing.T) {
	store, users := seededStore(3)
	svc := newTestService(store)
	ctx := context.Background()
	a, b, outsider := users[0].ID, users[1].ID, users[2].ID

	ch, err := svc.FindOrCreateIndividual(ctx, a, b)
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}

	history, err := svc.GetHistory(ctx, ch.ID)
	if err != nil {
		t.Fatalf("empty history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d", len(history))
	}

	for _, tc := range []struct {
		sender  int64
		content string
	}{{a, "hi"}, {b, "hello"}, {a, "study at 5?"}} {
		if _, err := svc.SendMessage(ctx, ch.ID, tc.sender, tc.content); err != nil {
			t.Fatalf("send %q: %v", tc.content, err)
		}
	}

	if _, err := svc.SendMessage(ctx, ch.ID, outsider, "let me in"); !errors.Is(err, faults.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized for outsider, got %v", err)
	}
	if _, err := svc.SendMessage(ctx, ch.ID, 999, "ghost"); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected NotFound for missing sender, got %v", err)
	}
	if _, err := svc.SendMessage(ctx, 999, a, "nowhere"); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected NotFound for missing channel, got %v", err)
	}
	if _, err := svc.SendMessage(ctx, ch.ID, a, "   "); !errors.Is(err, faults.ErrBadRequest) {
		t.Fatalf("expected BadRequest for blank content, got %v", err)
	}
	if _, err := svc.SendMessage(ctx, ch.ID, a, strings.Repeat("x", maxMessageLength+1)); !errors.Is(err, faults.ErrBadRequest) {
		t.Fatalf("expected BadRequest for oversized content, got %v", err)
	}

	history, err = svc.GetHistory(ctx, ch.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 || history[0].Content != "hi" || history[2].Content != "study at 5?" {
		t.Fatalf("unexpected history order: %+v", history)
	}

	if _, err := svc.GetHistory(ctx, 999); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected NotFound for missing channel history, got %v", err)
	}
	if _, err := svc.GetHistoryForUser(ctx, ch.ID, outsider); !errors.Is(err, faults.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized for outsider history, got %v", err)
	}
}

func TestListForUser(t *testing.T) {
	store, users := seededStore(3)
	svc := newTestService(store)
	ctx := context.Background()

	items, err := svc.ListForUser(ctx, users[0].ID)
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil list, got %+v", items)
	}

	if _, err := svc.FindOrCreateIndividual(ctx, users[0].ID, users[1].ID); err != nil {
		t.Fatalf("create pair: %v", err)
	}
	if _, err := svc.CreateChannel(ctx, CreateChannelInput{Type: enums.ChannelTypeGroup, ParticipantIDs: []int64{users[2].ID, users[0].ID}}); err != nil {
		t.Fatalf("create group: %v", err)
	}

	items, err = svc.ListForUser(ctx, users[0].ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected two channels, got %d", len(items))
	}
}

func TestUpdateChannel(t *testing.T) {
	store, users := seededStore(4)
	svc := newTestService(store)
	ctx := context.Background()
	a, b, c, d := users[0].ID, users[1].ID, users[2].ID, users[3].ID

	group, err := svc.CreateChannel(ctx, CreateChannelInput{Type: enums.ChannelTypeGroup, Name: "old", ParticipantIDs: []int64{a, b, c}})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	name := "new"
	view, err := svc.UpdateChannel(ctx, group.ID, UpdateChannelInput{Name: &name, ParticipantIDs: []int64{a, c, d}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if view.Name != "new" {
		t.Fatalf("unexpected name: %q", view.Name)
	}
	if got := participantIDs(view); !equalIDs(got, []int64{a, c, d}) {
		t.Fatalf("unexpected participants: %v", got)
	}
	if view.Participants[0].Role != enums.ParticipantRoleAdmin {
		t.Fatalf("unaffected admin must keep admin role")
	}

	view, err = svc.UpdateChannel(ctx, group.ID, UpdateChannelInput{ParticipantIDs: []int64{d, c}})
	if err != nil {
		t.Fatalf("update dropping admin: %v", err)
	}
	if view.Name != "new" {
		t.Fatalf("nil name must keep the current name, got %q", view.Name)
	}
	if countAdmins(view) != 1 || view.Participants[0].UserID != c || view.Participants[0].Role != enums.ParticipantRoleAdmin {
		t.Fatalf("expected first remaining participant promoted: %+v", view.Participants)
	}

	pair, err := svc.FindOrCreateIndividual(ctx, a, b)
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	if _, err := svc.UpdateChannel(ctx, pair.ID, UpdateChannelInput{ParticipantIDs: []int64{a, b}}); !errors.Is(err, faults.ErrBadRequest) {
		t.Fatalf("expected BadRequest for individual update, got %v", err)
	}
	if _, err := svc.UpdateChannel(ctx, group.ID, UpdateChannelInput{}); !errors.Is(err, faults.ErrBadRequest) {
		t.Fatalf("expected BadRequest for empty participants, got %v", err)
	}
	if _, err := svc.UpdateChannel(ctx, group.ID, UpdateChannelInput{ParticipantIDs: []int64{c, 999}}); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected NotFound for unknown participant, got %v", err)
	}
	if _, err := svc.UpdateChannel(ctx, 999, UpdateChannelInput{ParticipantIDs: []int64{c}}); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected NotFound for unknown channel, got %v", err)
	}
	if _, err := svc.UpdateChannel(ctx, group.ID, UpdateChannelInput{ActorID: a, ParticipantIDs: []int64{a}}); !errors.Is(err, faults.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized for non-participant actor, got %v", err)
	}

	current := findChannel(t, store, group.ID)
	if got := current.ParticipantIDs(); !equalIDs(got, []int64{c, d}) {
		t.Fatalf("failed updates must not change membership: %v", got)
	}
}

func TestDeleteIndividualBetween(t *testing.T) {
	store, users := seededStore(3)
	svc := newTestService(store)
	ctx := context.Background()
	a, b, c := users[0].ID, users[1].ID, users[2].ID

	pair, err := svc.FindOrCreateIndividual(ctx, a, b)
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	other, err := svc.FindOrCreateIndividual(ctx, a, c)
	if err != nil {
		t.Fatalf("create other pair: %v", err)
	}
	if _, err := svc.SendMessage(ctx, pair.ID, a, "hi"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := svc.DeleteIndividualChannelBetween(ctx, b, a); err != nil {
		t.Fatalf("delete between: %v", err)
	}
	if err := svc.DeleteIndividualChannelBetween(ctx, b, a); err != nil {
		t.Fatalf("second delete must be a no-op: %v", err)
	}

	channels := store.Channels().All()
	if len(channels) != 1 || channels[0].ID != other.ID {
		t.Fatalf("expected only the unrelated pair channel to remain: %+v", channels)
	}
	if got := store.Messages().Count(); got != 0 {
		t.Fatalf("expected pair messages deleted, found %d", got)
	}
}

func TestTeardownUserChannels(t *testing.T) {
	store, users := seededStore(4)
	svc := newTestService(store)
	ctx := context.Background()
	a, b, c, d := users[0].ID, users[1].ID, users[2].ID, users[3].ID

	group, err := svc.CreateChannel(ctx, CreateChannelInput{Type: enums.ChannelTypeGroup, ParticipantIDs: []int64{a, b, c}})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	solo, err := svc.CreateChannel(ctx, CreateChannelInput{Type: enums.ChannelTypeGroup, ParticipantIDs: []int64{a}})
	if err != nil {
		t.Fatalf("create solo group: %v", err)
	}
	untouched, err := svc.CreateChannel(ctx, CreateChannelInput{Type: enums.ChannelTypeGroup, ParticipantIDs: []int64{d, b}})
	if err != nil {
		t.Fatalf("create untouched group: %v", err)
	}
	pair, err := svc.FindOrCreateIndividual(ctx, a, d)
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	if _, err := svc.SendMessage(ctx, pair.ID, d, "hey"); err != nil {
		t.Fatalf("send pair: %v", err)
	}
	if _, err := svc.SendMessage(ctx, solo.ID, a, "note"); err != nil {
		t.Fatalf("send solo: %v", err)
	}
	if _, err := svc.SendMessage(ctx, group.ID, b, "kept"); err != nil {
		t.Fatalf("send group: %v", err)
	}

	if err := svc.TeardownUserChannels(ctx, a); err != nil {
		t.Fatalf("teardown: %v", err)
	}

	for _, ch := range store.Channels().All() {
		if ch.HasParticipant(a) {
			t.Fatalf("channel %d still contains torn down user", ch.ID)
		}
		if ch.Type == enums.ChannelTypeGroup && len(ch.Participants) > 0 && ch.AdminCount() != 1 {
			t.Fatalf("group %d must have exactly one admin: %+v", ch.ID, ch.Participants)
		}
		if ch.ID == pair.ID || ch.ID == solo.ID {
			t.Fatalf("channel %d should have been deleted", ch.ID)
		}
	}

	remaining := findChannel(t, store, group.ID)
	if got := remaining.ParticipantIDs(); !equalIDs(got, []int64{b, c}) {
		t.Fatalf("unexpected remaining participants: %v", got)
	}
	if remaining.Participants[0].Role != enums.ParticipantRoleAdmin {
		t.Fatalf("expected %d promoted to admin", b)
	}
	if untouchedNow := findChannel(t, store, untouched.ID); untouchedNow.Participants[0].UserID != d {
		t.Fatalf("unrelated group changed: %+v", untouchedNow)
	}
	if got := store.Messages().Count(); got != 1 {
		t.Fatalf("expected only the surviving group's message left, found %d", got)
	}
}

func TestToChannelViewCopiesParticipants(t *testing.T) {
	ch := model.Channel{
		ID:   3,
		Type: enums.ChannelTypeGroup,
		Participants: []model.Participant{
			{ChannelID: 3, UserID: 1, Role: enums.ParticipantRoleAdmin},
		},
	}
	view := ToChannelView(ch)
	view.Participants[0].Role = enums.ParticipantRoleMember
	if ch.Participants[0].Role != enums.ParticipantRoleAdmin {
		t.Fatalf("view must not alias the entity participants")
	}
}

func newTestService(store *memory.Store) *Service {
	return NewService(Dependencies{
		Transactor:   store,
		UserStore:    store.Users(),
		ChannelStore: store.Channels(),
		MessageStore: store.Messages(),
	})
}

func seededStore(n int) (*memory.Store, []model.User) {
	store := memory.NewStore()
	users := make([]model.User, 0, n)
	for i := 1; i <= n; i++ {
		users = append(users, store.SeedUser(model.User{DisplayName: "User" + string(rune('0'+i))}))
	}
	return store, users
}

func findChannel(t *testing.T, store *memory.Store, channelID int64) model.Channel {
	t.Helper()
	var ch model.Channel
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx pgx.Tx) error {
		var err error
		ch, err = store.Channels().FindByID(ctx, tx, channelID)
		return err
	})
	if err != nil {
		t.Fatalf("find channel %d: %v", channelID, err)
	}
	return ch
}

func participantIDs(view ChannelView) []int64 {
	ids := make([]int64, 0, len(view.Participants))
	for _, p := range view.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

func countAdmins(view ChannelView) int {
	n := 0
	for _, p := range view.Participants {
		if p.Role == enums.ParticipantRoleAdmin {
			n++
		}
	}
	return n
}

func equalIDs(got, want []int64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
