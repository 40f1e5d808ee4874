package handlers

import (
	"net/http"

	"go.uber.org/zap"

	relationshipssvc "github.com/studymate/backend/internal/services/relationships"
	"github.com/studymate/backend/internal/transport/http/dto"
	httperrors "github.com/studymate/backend/internal/transport/http/errors"
)

type RelationshipsHandler struct {
	service *relationshipssvc.Service
	log     *zap.Logger
}

func NewRelationshipsHandler(service *relationshipssvc.Service, log *zap.Logger) *RelationshipsHandler {
	return &RelationshipsHandler{service: service, log: nopIfNil(log)}
}

func (h *RelationshipsHandler) Block(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "RELATIONSHIPS_SERVICE_UNAVAILABLE", "relationships service is unavailable")
		return
	}

	var req dto.BlockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	if err := h.service.Block(r.Context(), identity.UserID, req.TargetID); err != nil {
		writeServiceError(w, h.log, err, "failed to block user")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *RelationshipsHandler) Report(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "RELATIONSHIPS_SERVICE_UNAVAILABLE", "relationships service is unavailable")
		return
	}

	var req dto.ReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	if err := h.service.Report(r.Context(), identity.UserID, req.TargetID, req.Reason); err != nil {
		writeServiceError(w, h.log, err, "failed to report user")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}
