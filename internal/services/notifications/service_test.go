package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/studymate/backend/internal/domain/enums"
	"github.com/studymate/backend/internal/domain/faults"
	"github.com/studymate/backend/internal/domain/model"
	"github.com/studymate/backend/internal/repo/memory"
)

func TestCreateRequiresExistingUser(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store, nil, nil)

	_, err := svc.Create(context.Background(), 404, "hello", enums.NotificationTypeLike, 0)
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if got := len(store.Notifications().All()); got != 0 {
		t.Fatalf("expected no stored notification, found %d", got)
	}
}

func TestCreatePublishesAfterCommit(t *testing.T) {
	store := memory.NewStore()
	user := store.SeedUser(model.User{DisplayName: "Alice"})
	pub := &publisherStub{}
	svc := newTestService(store, pub, nil)

	n, err := svc.Create(context.Background(), user.ID, "hello", enums.NotificationTypeMatch, 9)
	if err != nil {
		t.Fatalf("create notification: %v", err)
	}
	if n.Read || n.UserID != user.ID || n.RelatedEntityID != 9 {
		t.Fatalf("unexpected notification: %+v", n)
	}
	if len(pub.published) != 1 || pub.published[0].ID != n.ID {
		t.Fatalf("expected one publish of the created notification, got %+v", pub.published)
	}
}

func TestPublishFailureIsLoggedNotReturned(t *testing.T) {
	store := memory.NewStore()
	user := store.SeedUser(model.User{DisplayName: "Alice"})
	core, logs := observer.New(zap.WarnLevel)
	svc := newTestService(store, &publisherStub{err: errors.New("redis down")}, zap.New(core))

	if _, err := svc.Create(context.Background(), user.ID, "hello", enums.NotificationTypeLike, 0); err != nil {
		t.Fatalf("publish failure must not fail create: %v", err)
	}
	if logs.FilterMessage("publish notification failed").Len() != 1 {
		t.Fatalf("expected one warn log for failed publish")
	}
}

func TestNotifyLikeAndMatchMessages(t *testing.T) {
	store := memory.NewStore()
	alice := store.SeedUser(model.User{DisplayName: "Alice"})
	bob := store.SeedUser(model.User{DisplayName: "Bob"})
	svc := newTestService(store, nil, nil)

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx pgx.Tx) error {
		like, err := svc.NotifyLikeInTx(ctx, tx, bob.ID, alice.ID, 77)
		if err != nil {
			return err
		}
		if like.UserID != bob.ID || like.Message != "Alice liked your profile!" || like.Type != enums.NotificationTypeLike {
			t.Fatalf("unexpected like notification: %+v", like)
		}

		matched, err := svc.NotifyMatchInTx(ctx, tx, alice.ID, bob.ID, 77)
		if err != nil {
			return err
		}
		if len(matched) != 2 {
			t.Fatalf("expected two match notifications, got %d", len(matched))
		}
		if matched[0].UserID != alice.ID || matched[0].Message != "You matched with Bob!" {
			t.Fatalf("unexpected notification for A: %+v", matched[0])
		}
		if matched[1].UserID != bob.ID || matched[1].Message != "You matched with Alice!" {
			t.Fatalf("unexpected notification for B: %+v", matched[1])
		}
		for _, n := range matched {
			if n.Type != enums.NotificationTypeMatch || n.RelatedEntityID != 77 {
				t.Fatalf("unexpected match notification: %+v", n)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func TestInboxReadState(t *testing.T) {
	store := memory.NewStore()
	alice := store.SeedUser(model.User{DisplayName: "Alice"})
	bob := store.SeedUser(model.User{DisplayName: "Bob"})
	svc := newTestService(store, nil, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, alice.ID, "one", enums.NotificationTypeLike, 0)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := svc.Create(ctx, alice.ID, "two", enums.NotificationTypeLike, 0); err != nil {
		t.Fatalf("create second: %v", err)
	}

	if err := svc.MarkRead(ctx, bob.ID, first.ID); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected NotFound for foreign notification, got %v", err)
	}
	if err := svc.MarkRead(ctx, alice.ID, first.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	unread, err := svc.UnreadCount(ctx, alice.ID)
	if err != nil || unread != 1 {
		t.Fatalf("unexpected unread count %d err=%v", unread, err)
	}

	changed, err := svc.MarkAllRead(ctx, alice.ID)
	if err != nil || changed != 1 {
		t.Fatalf("mark all read: changed=%d err=%v", changed, err)
	}

	items, err := svc.List(ctx, alice.ID, 500)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected two notifications, got %d", len(items))
	}
	for _, n := range items {
		if !n.Read {
			t.Fatalf("expected every notification read: %+v", n)
		}
	}
}

type publisherStub struct {
	err       error
	published []model.Notification
}

func (p *publisherStub) Publish(_ context.Context, n model.Notification) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, n)
	return nil
}

func newTestService(store *memory.Store, pub Publisher, logger *zap.Logger) *Service {
	deps := Dependencies{
		Transactor:        store,
		UserStore:         store.Users(),
		NotificationStore: store.Notifications(),
		Logger:            logger,
	}
	if pub != nil {
		deps.Publisher = pub
	}
	return NewService(deps)
}
