package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	accountssvc "github.com/studymate/backend/internal/services/accounts"
	authsvc "github.com/studymate/backend/internal/services/auth"
	channelssvc "github.com/studymate/backend/internal/services/channels"
	matchessvc "github.com/studymate/backend/internal/services/matches"
	notificationssvc "github.com/studymate/backend/internal/services/notifications"
	relationshipssvc "github.com/studymate/backend/internal/services/relationships"
	"github.com/studymate/backend/internal/transport/http/handlers"
)

type Dependencies struct {
	Verifier            *authsvc.Verifier
	MatchService        *matchessvc.Service
	ChannelService      *channelssvc.Service
	RelationshipService *relationshipssvc.Service
	NotificationService *notificationssvc.Service
	AccountService      *accountssvc.Service
	StorageDriver       string
	Logger              *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.StorageDriver)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchService, deps.Logger)
	channelsHandler := handlers.NewChannelsHandler(deps.ChannelService, deps.Logger)
	relationshipsHandler := handlers.NewRelationshipsHandler(deps.RelationshipService, deps.Logger)
	notificationsHandler := handlers.NewNotificationsHandler(deps.NotificationService, deps.Logger)
	accountHandler := handlers.NewAccountHandler(deps.AccountService, deps.Logger)
	authMW := AuthMiddleware(deps.Verifier, deps.Logger)

	r.Get("/healthz", healthHandler.Handle)

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMW)

		r.Post("/matches/like", matchesHandler.Like)
		r.Post("/matches/dislike", matchesHandler.Dislike)

		r.Get("/channels", channelsHandler.List)
		r.Post("/channels", channelsHandler.Create)
		r.Put("/channels/{channelID}", channelsHandler.Update)
		r.Get("/channels/{channelID}/messages", channelsHandler.History)
		r.Post("/channels/{channelID}/messages", channelsHandler.SendMessage)

		r.Post("/block", relationshipsHandler.Block)
		r.Post("/report", relationshipsHandler.Report)

		r.Get("/notifications", notificationsHandler.List)
		r.Post("/notifications/read_all", notificationsHandler.MarkAllRead)
		r.Post("/notifications/{notificationID}/read", notificationsHandler.MarkRead)

		r.Delete("/me", accountHandler.Delete)
	})
}
