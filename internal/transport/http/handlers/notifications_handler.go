package handlers

import (
	"net/http"

	"go.uber.org/zap"

	notificationssvc "github.com/studymate/backend/internal/services/notifications"
	"github.com/studymate/backend/internal/transport/http/dto"
	httperrors "github.com/studymate/backend/internal/transport/http/errors"
)

type NotificationsHandler struct {
	service *notificationssvc.Service
	log     *zap.Logger
}

func NewNotificationsHandler(service *notificationssvc.Service, log *zap.Logger) *NotificationsHandler {
	return &NotificationsHandler{service: service, log: nopIfNil(log)}
}

func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "NOTIFICATIONS_SERVICE_UNAVAILABLE", "notifications service is unavailable")
		return
	}

	items, err := h.service.List(r.Context(), identity.UserID, parseIntOrDefault(r.URL.Query().Get("limit"), 50))
	if err != nil {
		writeServiceError(w, h.log, err, "failed to load notifications")
		return
	}
	unread, err := h.service.UnreadCount(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, h.log, err, "failed to load notifications")
		return
	}

	resp := dto.NotificationsResponse{
		Items:       make([]dto.NotificationResponse, 0, len(items)),
		UnreadCount: unread,
	}
	for _, n := range items {
		resp.Items = append(resp.Items, dto.NotificationResponse{
			ID:              n.ID,
			Message:         n.Message,
			Type:            string(n.Type),
			RelatedEntityID: n.RelatedEntityID,
			Read:            n.Read,
			CreatedAt:       n.CreatedAt,
		})
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "NOTIFICATIONS_SERVICE_UNAVAILABLE", "notifications service is unavailable")
		return
	}
	notificationID, ok := pathID(r, "notificationID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid notification id")
		return
	}

	if err := h.service.MarkRead(r.Context(), identity.UserID, notificationID); err != nil {
		writeServiceError(w, h.log, err, "failed to mark notification read")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "NOTIFICATIONS_SERVICE_UNAVAILABLE", "notifications service is unavailable")
		return
	}

	updated, err := h.service.MarkAllRead(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, h.log, err, "failed to mark notifications read")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MarkAllReadResponse{OK: true, Updated: updated})
}
