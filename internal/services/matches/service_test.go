package matches

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/studymate/backend/internal/domain/enums"
	"github.com/studymate/backend/internal/domain/faults"
	"github.com/studymate/backend/internal/domain/model"
	"github.com/studymate/backend/internal/repo/memory"
	"github.com/studymate/backend/internal/services/channels"
	"github.com/studymate/backend/internal/services/notifications"
	"github.com/studymate/backend/internal/services/rate"
)

type fixture struct {
	store *memory.Store
	svc   *Service
	alice model.User
	bob   model.User
}

func TestFirstLikeCreatesPendingMatchAndNotifiesTarget(t *testing.T) {
	f := newFixture(t, nil)

	view, err := f.svc.Like(context.Background(), f.alice.ID, f.bob.ID)
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if view.Status != enums.MatchStatusPending || !view.LikedByA || view.LikedByB {
		t.Fatalf("unexpected match view: %+v", view)
	}
	if view.UserAID != f.alice.ID || view.UserBID != f.bob.ID {
		t.Fatalf("acting user must be side A: %+v", view)
	}

	likes := notificationsFor(f.store, f.bob.ID, enums.NotificationTypeLike)
	if len(likes) != 2 {
		t.Fatalf("expected the first like to send two LIKE notifications, got %d", len(likes))
	}
	for _, n := range likes {
		if n.Message != "Alice liked your profile!" {
			t.Fatalf("unexpected like message: %q", n.Message)
		}
	}
	if got := notificationsFor(f.store, f.alice.ID, ""); len(got) != 0 {
		t.Fatalf("liking user must not be notified, got %d", len(got))
	}
}

func TestMutualLikeAcceptsAndOpensChannel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.svc.Like(ctx, f.alice.ID, f.bob.ID); err != nil {
		t.Fatalf("first like: %v", err)
	}
	view, err := f.svc.Like(ctx, f.bob.ID, f.alice.ID)
	if err != nil {
		t.Fatalf("second like: %v", err)
	}
	if view.Status != enums.MatchStatusAccepted || !view.LikedByA || !view.LikedByB {
		t.Fatalf("unexpected match view: %+v", view)
	}
	if view.ChannelID == 0 {
		t.Fatalf("expected channel id on accepted match")
	}

	assertMutualInvariant(t, f.store)

	for _, user := range []model.User{f.alice, f.bob} {
		matched := notificationsFor(f.store, user.ID, enums.NotificationTypeMatch)
		if len(matched) != 1 || matched[0].RelatedEntityID != view.ID {
			t.Fatalf("expected one MATCH notification for %d, got %+v", user.ID, matched)
		}
	}
	if got := notificationsFor(f.store, f.alice.ID, enums.NotificationTypeLike); len(got) != 0 {
		t.Fatalf("mutual like must not send a LIKE notification, got %d", len(got))
	}

	again, err := f.svc.Like(ctx, f.alice.ID, f.bob.ID)
	if err != nil {
		t.Fatalf("like on accepted match: %v", err)
	}
	if again.ChannelID != view.ChannelID {
		t.Fatalf("accepted pair must keep its channel")
	}
	if got := notificationsFor(f.store, f.bob.ID, enums.NotificationTypeMatch); len(got) != 1 {
		t.Fatalf("repeat like must not resend MATCH notifications, got %d", len(got))
	}
}

func TestDislikeWithoutMatchCreatesRejected(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := f.svc.Dislike(ctx, f.alice.ID, f.bob.ID); err != nil {
			t.Fatalf("dislike #%d: %v", i+1, err)
		}
		all := f.store.Matches().All()
		if len(all) != 1 {
			t.Fatalf("expected one match row, got %d", len(all))
		}
		m := all[0]
		if m.Status != enums.MatchStatusRejected || m.LikedByA || m.LikedByB {
			t.Fatalf("unexpected match after dislike #%d: %+v", i+1, m)
		}
	}
}

func TestDislikeClearsActingSideOnly(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.svc.Like(ctx, f.alice.ID, f.bob.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := f.svc.Dislike(ctx, f.bob.ID, f.alice.ID); err != nil {
		t.Fatalf("dislike: %v", err)
	}

	m := f.store.Matches().All()[0]
	if m.Status != enums.MatchStatusRejected || !m.LikedByA || m.LikedByB {
		t.Fatalf("unexpected match: %+v", m)
	}
}

func TestLikeAgainstRejectedMatchIsBlocked(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if err := f.svc.Dislike(ctx, f.alice.ID, f.bob.ID); err != nil {
		t.Fatalf("dislike: %v", err)
	}
	before := len(f.store.Notifications().All())

	_, err := f.svc.Like(ctx, f.bob.ID, f.alice.ID)
	if !errors.Is(err, faults.ErrBlocked) {
		t.Fatalf("expected Blocked, got %v", err)
	}
	if m := f.store.Matches().All()[0]; m.Status != enums.MatchStatusRejected || m.LikedByB {
		t.Fatalf("rejected match must be unchanged: %+v", m)
	}
	if got := len(f.store.Notifications().All()); got != before {
		t.Fatalf("blocked like must not notify")
	}
}

func TestLikeRefusedWhenBlockExists(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	err := f.store.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := f.store.Blocks().Create(ctx, tx, f.bob.ID, f.alice.ID)
		return err
	})
	if err != nil {
		t.Fatalf("seed block: %v", err)
	}

	if _, err := f.svc.Like(ctx, f.alice.ID, f.bob.ID); !errors.Is(err, faults.ErrBlocked) {
		t.Fatalf("expected Blocked, got %v", err)
	}
	if got := len(f.store.Matches().All()); got != 0 {
		t.Fatalf("blocked like must not create a match, got %d", got)
	}
}

func TestLikeValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.svc.Like(ctx, f.alice.ID, f.alice.ID); !errors.Is(err, faults.ErrBadRequest) {
		t.Fatalf("expected BadRequest for self like, got %v", err)
	}
	if _, err := f.svc.Like(ctx, f.alice.ID, 999); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected NotFound for missing target, got %v", err)
	}
	if err := f.svc.Dislike(ctx, 999, f.alice.ID); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected NotFound for missing actor, got %v", err)
	}
}

func TestLikeRateLimited(t *testing.T) {
	f := newFixture(t, likeLimiterStub{err: rate.TooFastError{RetryAfterSec: 12}})

	_, err := f.svc.Like(context.Background(), f.alice.ID, f.bob.ID)
	tf, ok := rate.IsTooFast(err)
	if !ok {
		t.Fatalf("expected TooFastError, got %v", err)
	}
	if tf.RetryAfter() != 12 {
		t.Fatalf("unexpected retry_after: %d", tf.RetryAfter())
	}
	if got := len(f.store.Matches().All()); got != 0 {
		t.Fatalf("limited like must not touch storage")
	}
}

func TestMutualLikeRollsBackWhenNotificationFails(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.svc.Like(ctx, f.alice.ID, f.bob.ID); err != nil {
		t.Fatalf("first like: %v", err)
	}
	notificationsBefore := len(f.store.Notifications().All())

	boom := errors.New("notification store down")
	f.svc.notifier = failingMatchNotifier{Notifier: f.svc.notifier, err: boom}

	if _, err := f.svc.Like(ctx, f.bob.ID, f.alice.ID); !errors.Is(err, boom) {
		t.Fatalf("expected notification failure, got %v", err)
	}

	m := f.store.Matches().All()[0]
	if m.Status != enums.MatchStatusPending || m.LikedByB {
		t.Fatalf("match update must roll back: %+v", m)
	}
	if got := len(f.store.Channels().All()); got != 0 {
		t.Fatalf("channel creation must roll back, found %d", got)
	}
	if got := len(f.store.Notifications().All()); got != notificationsBefore {
		t.Fatalf("notifications must roll back: before=%d after=%d", notificationsBefore, got)
	}
}

func TestConcurrentMutualLikesAcceptOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, pair := range [][2]int64{{f.alice.ID, f.bob.ID}, {f.bob.ID, f.alice.ID}} {
		wg.Add(1)
		go func(acting, target int64) {
			defer wg.Done()
			if _, err := f.svc.Like(ctx, acting, target); err != nil {
				errs <- err
			}
		}(pair[0], pair[1])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent like: %v", err)
	}

	all := f.store.Matches().All()
	if len(all) != 1 || all[0].Status != enums.MatchStatusAccepted {
		t.Fatalf("expected one accepted match, got %+v", all)
	}
	assertMutualInvariant(t, f.store)

	matched := 0
	for _, n := range f.store.Notifications().All() {
		if n.Type == enums.NotificationTypeMatch {
			matched++
		}
	}
	if matched != 2 {
		t.Fatalf("expected exactly two MATCH notifications, got %d", matched)
	}
}

func TestDeleteMatchBetween(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if err := f.svc.DeleteMatchBetween(ctx, f.alice.ID, f.bob.ID); err != nil {
		t.Fatalf("delete absent match: %v", err)
	}
	if _, err := f.svc.Like(ctx, f.alice.ID, f.bob.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := f.svc.DeleteMatchBetween(ctx, f.bob.ID, f.alice.ID); err != nil {
		t.Fatalf("delete match: %v", err)
	}
	if got := len(f.store.Matches().All()); got != 0 {
		t.Fatalf("expected match deleted, found %d", got)
	}

	view, err := f.svc.Like(ctx, f.bob.ID, f.alice.ID)
	if err != nil {
		t.Fatalf("like after delete: %v", err)
	}
	if view.Status != enums.MatchStatusPending || view.UserAID != f.bob.ID {
		t.Fatalf("pair must start over from absent: %+v", view)
	}
}

type likeLimiterStub struct {
	err error
}

func (s likeLimiterStub) AllowLike(context.Context, int64) error {
	return s.err
}

type failingMatchNotifier struct {
	Notifier
	err error
}

func (n failingMatchNotifier) NotifyMatchInTx(context.Context, pgx.Tx, int64, int64, int64) ([]model.Notification, error) {
	return nil, n.err
}

func newFixture(t *testing.T, limiter LikeLimiter) fixture {
	t.Helper()

	store := memory.NewStore()
	alice := store.SeedUser(model.User{DisplayName: "Alice"})
	bob := store.SeedUser(model.User{DisplayName: "Bob"})

	notifier := notifications.NewService(notifications.Dependencies{
		Transactor:        store,
		UserStore:         store.Users(),
		NotificationStore: store.Notifications(),
	})
	registry := channels.NewService(channels.Dependencies{
		Transactor:   store,
		UserStore:    store.Users(),
		ChannelStore: store.Channels(),
		MessageStore: store.Messages(),
	})

	svc := NewService(Dependencies{
		Transactor:  store,
		UserStore:   store.Users(),
		MatchStore:  store.Matches(),
		BlockStore:  store.Blocks(),
		Channels:    registry,
		Notifier:    notifier,
		LikeLimiter: limiter,
	})

	return fixture{store: store, svc: svc, alice: alice, bob: bob}
}

func notificationsFor(store *memory.Store, userID int64, typ enums.NotificationType) []model.Notification {
	var out []model.Notification
	for _, n := range store.Notifications().All() {
		if n.UserID != userID {
			continue
		}
		if typ != "" && n.Type != typ {
			continue
		}
		out = append(out, n)
	}
	return out
}

func assertMutualInvariant(t *testing.T, store *memory.Store) {
	t.Helper()

	for _, m := range store.Matches().All() {
		if !m.Mutual() {
			continue
		}
		if m.Status != enums.MatchStatusAccepted {
			t.Fatalf("mutual match %d is %s", m.ID, m.Status)
		}
		found := 0
		for _, ch := range store.Channels().All() {
			if ch.IsIndividual() && ch.HasExactly(m.UserAID, m.UserBID) {
				found++
			}
		}
		if found != 1 {
			t.Fatalf("expected one individual channel for match %d, found %d", m.ID, found)
		}
	}
}
