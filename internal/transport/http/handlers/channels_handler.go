package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/studymate/backend/internal/domain/enums"
	channelssvc "github.com/studymate/backend/internal/services/channels"
	"github.com/studymate/backend/internal/transport/http/dto"
	httperrors "github.com/studymate/backend/internal/transport/http/errors"
)

type ChannelsHandler struct {
	service *channelssvc.Service
	log     *zap.Logger
}

func NewChannelsHandler(service *channelssvc.Service, log *zap.Logger) *ChannelsHandler {
	return &ChannelsHandler{service: service, log: nopIfNil(log)}
}

func (h *ChannelsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "CHANNELS_SERVICE_UNAVAILABLE", "channels service is unavailable")
		return
	}

	items, err := h.service.ListForUser(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, h.log, err, "failed to load channels")
		return
	}

	resp := dto.ChannelsResponse{Items: make([]dto.ChannelResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, toChannelResponse(item))
	}
	httperrors.Write(w, http.StatusOK, resp)
}

// Create requires the caller to be one of the participants.
func (h *ChannelsHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "CHANNELS_SERVICE_UNAVAILABLE", "channels service is unavailable")
		return
	}

	var req dto.CreateChannelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	channelType, err := enums.ParseChannelType(req.Type)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}
	if len(req.ParticipantIDs) > 0 && !containsID(req.ParticipantIDs, identity.UserID) {
		writeBadRequest(w, "VALIDATION_ERROR", "caller must be a participant")
		return
	}

	view, err := h.service.CreateChannel(r.Context(), channelssvc.CreateChannelInput{
		Type:           channelType,
		Name:           req.Name,
		Image:          req.Image,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		writeServiceError(w, h.log, err, "failed to create channel")
		return
	}

	httperrors.Write(w, http.StatusCreated, toChannelResponse(view))
}

func (h *ChannelsHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "CHANNELS_SERVICE_UNAVAILABLE", "channels service is unavailable")
		return
	}
	channelID, ok := pathID(r, "channelID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid channel id")
		return
	}

	var req dto.UpdateChannelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	view, err := h.service.UpdateChannel(r.Context(), channelID, channelssvc.UpdateChannelInput{
		ActorID:        identity.UserID,
		Name:           req.Name,
		Image:          req.Image,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		writeServiceError(w, h.log, err, "failed to update channel")
		return
	}

	httperrors.Write(w, http.StatusOK, toChannelResponse(view))
}

func (h *ChannelsHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "CHANNELS_SERVICE_UNAVAILABLE", "channels service is unavailable")
		return
	}
	channelID, ok := pathID(r, "channelID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid channel id")
		return
	}

	var req dto.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	msg, err := h.service.SendMessage(r.Context(), channelID, identity.UserID, req.Content)
	if err != nil {
		writeServiceError(w, h.log, err, "failed to send message")
		return
	}

	httperrors.Write(w, http.StatusCreated, toMessageResponse(msg))
}

func (h *ChannelsHandler) History(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "CHANNELS_SERVICE_UNAVAILABLE", "channels service is unavailable")
		return
	}
	channelID, ok := pathID(r, "channelID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid channel id")
		return
	}

	items, err := h.service.GetHistoryForUser(r.Context(), channelID, identity.UserID)
	if err != nil {
		writeServiceError(w, h.log, err, "failed to load messages")
		return
	}

	resp := dto.MessagesResponse{Items: make([]dto.MessageResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, toMessageResponse(item))
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func toChannelResponse(view channelssvc.ChannelView) dto.ChannelResponse {
	participants := make([]dto.ParticipantResponse, 0, len(view.Participants))
	for _, p := range view.Participants {
		participants = append(participants, dto.ParticipantResponse{
			UserID:   p.UserID,
			Role:     string(p.Role),
			JoinedAt: p.JoinedAt,
		})
	}

	return dto.ChannelResponse{
		ID:           view.ID,
		Type:         string(view.Type),
		Name:         view.Name,
		Image:        view.Image,
		Participants: participants,
		CreatedAt:    view.CreatedAt,
		UpdatedAt:    view.UpdatedAt,
	}
}

func toMessageResponse(view channelssvc.MessageView) dto.MessageResponse {
	return dto.MessageResponse{
		ID:        view.ID,
		ChannelID: view.ChannelID,
		SenderID:  view.SenderID,
		Content:   view.Content,
		CreatedAt: view.CreatedAt,
	}
}

func containsID(ids []int64, target int64) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
