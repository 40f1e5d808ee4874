package apiapp

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/studymate/backend/internal/repo"
	"github.com/studymate/backend/internal/repo/memory"
	pgrepo "github.com/studymate/backend/internal/repo/postgres"
	accountssvc "github.com/studymate/backend/internal/services/accounts"
	channelssvc "github.com/studymate/backend/internal/services/channels"
	"github.com/studymate/backend/internal/services/matches"
	notificationssvc "github.com/studymate/backend/internal/services/notifications"
	"github.com/studymate/backend/internal/services/rate"
	relationshipssvc "github.com/studymate/backend/internal/services/relationships"
)

type userRepository interface {
	accountssvc.UserStore
}

type matchRepository interface {
	matches.MatchStore
	accountssvc.UserScopedStore
}

type messageRepository interface {
	channelssvc.MessageStore
	accountssvc.MessageStore
}

type notificationRepository interface {
	notificationssvc.NotificationStore
	accountssvc.UserScopedStore
	DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type blockRepository interface {
	relationshipssvc.BlockStore
	accountssvc.UserScopedStore
}

type reportRepository interface {
	relationshipssvc.ReportStore
	accountssvc.UserScopedStore
}

var (
	_ userRepository           = (*pgrepo.UserRepo)(nil)
	_ matchRepository          = (*pgrepo.MatchRepo)(nil)
	_ messageRepository        = (*pgrepo.MessageRepo)(nil)
	_ notificationRepository   = (*pgrepo.NotificationRepo)(nil)
	_ blockRepository          = (*pgrepo.BlockRepo)(nil)
	_ reportRepository         = (*pgrepo.ReportRepo)(nil)
	_ channelssvc.ChannelStore = (*pgrepo.ChannelRepo)(nil)

	_ userRepository           = (*memory.UserRepo)(nil)
	_ matchRepository          = (*memory.MatchRepo)(nil)
	_ messageRepository        = (*memory.MessageRepo)(nil)
	_ notificationRepository   = (*memory.NotificationRepo)(nil)
	_ blockRepository          = (*memory.BlockRepo)(nil)
	_ reportRepository         = (*memory.ReportRepo)(nil)
	_ channelssvc.ChannelStore = (*memory.ChannelRepo)(nil)
)

// storage is the set of repositories one backend provides. Postgres and the
// in-process store fill it with the same shapes.
type storage struct {
	driver        string
	transactor    repo.Transactor
	users         userRepository
	matches       matchRepository
	channels      channelssvc.ChannelStore
	messages      messageRepository
	notifications notificationRepository
	blocks        blockRepository
	reports       reportRepository
}

func postgresStorage(pool *pgxpool.Pool) storage {
	return storage{
		driver:        "postgres",
		transactor:    pgrepo.NewTxManager(pool),
		users:         pgrepo.NewUserRepo(pool),
		matches:       pgrepo.NewMatchRepo(pool),
		channels:      pgrepo.NewChannelRepo(pool),
		messages:      pgrepo.NewMessageRepo(pool),
		notifications: pgrepo.NewNotificationRepo(pool),
		blocks:        pgrepo.NewBlockRepo(pool),
		reports:       pgrepo.NewReportRepo(pool),
	}
}

func memoryStorage(store *memory.Store) storage {
	return storage{
		driver:        "memory",
		transactor:    store,
		users:         store.Users(),
		matches:       store.Matches(),
		channels:      store.Channels(),
		messages:      store.Messages(),
		notifications: store.Notifications(),
		blocks:        store.Blocks(),
		reports:       store.Reports(),
	}
}

type services struct {
	notifications *notificationssvc.Service
	channels      *channelssvc.Service
	matches       *matches.Service
	relationships *relationshipssvc.Service
	accounts      *accountssvc.Service
}

// newServices wires the domain services on top of st. limiter may be nil,
// which turns rate checks off; publisher may be nil, which keeps
// notifications in storage only.
func newServices(st storage, limiter *rate.Limiter, publisher notificationssvc.Publisher, log *zap.Logger) services {
	notificationService := notificationssvc.NewService(notificationssvc.Dependencies{
		Transactor:        st.transactor,
		UserStore:         st.users,
		NotificationStore: st.notifications,
		Publisher:         publisher,
		Logger:            log.Named("notifications"),
	})
	channelService := channelssvc.NewService(channelssvc.Dependencies{
		Transactor:   st.transactor,
		UserStore:    st.users,
		ChannelStore: st.channels,
		MessageStore: st.messages,
		Logger:       log.Named("channels"),
	})
	matchService := matches.NewService(matches.Dependencies{
		Transactor:  st.transactor,
		UserStore:   st.users,
		MatchStore:  st.matches,
		BlockStore:  st.blocks,
		Channels:    channelService,
		Notifier:    notificationService,
		LikeLimiter: limiter,
		Logger:      log.Named("matches"),
	})
	relationshipService := relationshipssvc.NewService(relationshipssvc.Dependencies{
		Transactor:    st.transactor,
		UserStore:     st.users,
		BlockStore:    st.blocks,
		ReportStore:   st.reports,
		Channels:      channelService,
		Matches:       matchService,
		ReportLimiter: limiter,
		Logger:        log.Named("relationships"),
	})
	accountService := accountssvc.NewService(accountssvc.Dependencies{
		Transactor:        st.transactor,
		UserStore:         st.users,
		Channels:          channelService,
		MessageStore:      st.messages,
		MatchStore:        st.matches,
		NotificationStore: st.notifications,
		BlockStore:        st.blocks,
		ReportStore:       st.reports,
		Logger:            log.Named("accounts"),
	})

	return services{
		notifications: notificationService,
		channels:      channelService,
		matches:       matchService,
		relationships: relationshipService,
		accounts:      accountService,
	}
}
