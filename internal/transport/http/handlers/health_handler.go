package handlers

import (
	"net/http"

	"github.com/studymate/backend/internal/transport/http/dto"
	httperrors "github.com/studymate/backend/internal/transport/http/errors"
)

type HealthHandler struct {
	storage string
}

func NewHealthHandler(storage string) *HealthHandler {
	return &HealthHandler{storage: storage}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, _ *http.Request) {
	httperrors.Write(w, http.StatusOK, dto.HealthResponse{Status: "ok", Storage: h.storage})
}
