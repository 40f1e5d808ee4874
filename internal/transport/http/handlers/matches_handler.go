package handlers

import (
	"net/http"

	"go.uber.org/zap"

	matchessvc "github.com/studymate/backend/internal/services/matches"
	"github.com/studymate/backend/internal/transport/http/dto"
	httperrors "github.com/studymate/backend/internal/transport/http/errors"
)

type MatchesHandler struct {
	service *matchessvc.Service
	log     *zap.Logger
}

func NewMatchesHandler(service *matchessvc.Service, log *zap.Logger) *MatchesHandler {
	return &MatchesHandler{service: service, log: nopIfNil(log)}
}

func (h *MatchesHandler) Like(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	var req dto.TargetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	view, err := h.service.Like(r.Context(), identity.UserID, req.TargetID)
	if err != nil {
		writeServiceError(w, h.log, err, "failed to like user")
		return
	}

	httperrors.Write(w, http.StatusOK, toMatchResponse(view))
}

func (h *MatchesHandler) Dislike(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	var req dto.TargetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	if err := h.service.Dislike(r.Context(), identity.UserID, req.TargetID); err != nil {
		writeServiceError(w, h.log, err, "failed to dislike user")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func toMatchResponse(view matchessvc.MatchView) dto.MatchResponse {
	resp := dto.MatchResponse{
		ID:        view.ID,
		UserAID:   view.UserAID,
		UserBID:   view.UserBID,
		Status:    string(view.Status),
		LikedByA:  view.LikedByA,
		LikedByB:  view.LikedByB,
		CreatedAt: view.CreatedAt,
		UpdatedAt: view.UpdatedAt,
	}
	if view.ChannelID > 0 {
		channelID := view.ChannelID
		resp.ChannelID = &channelID
	}
	return resp
}
