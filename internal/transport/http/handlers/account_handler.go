package handlers

import (
	"net/http"

	"go.uber.org/zap"

	accountssvc "github.com/studymate/backend/internal/services/accounts"
	"github.com/studymate/backend/internal/transport/http/dto"
	httperrors "github.com/studymate/backend/internal/transport/http/errors"
)

type AccountHandler struct {
	service *accountssvc.Service
	log     *zap.Logger
}

func NewAccountHandler(service *accountssvc.Service, log *zap.Logger) *AccountHandler {
	return &AccountHandler{service: service, log: nopIfNil(log)}
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "ACCOUNTS_SERVICE_UNAVAILABLE", "accounts service is unavailable")
		return
	}

	if err := h.service.Delete(r.Context(), identity.UserID); err != nil {
		writeServiceError(w, h.log, err, "failed to delete account")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}
