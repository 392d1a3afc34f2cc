package handler

import (
	"encoding/json"
	"net/http"

	coupleapp "github.com/duetapp/duet-api/internal/application/couple"
	"github.com/duetapp/duet-api/internal/domain"
	"github.com/duetapp/duet-api/internal/pkg/validate"
	"github.com/duetapp/duet-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// 5 MiB is plenty for an avatar.
const maxAvatarBytes = 5 << 20

// CoupleHandler handles couple profile endpoints.
type CoupleHandler struct {
	svc coupleapp.Service
}

func NewCoupleHandler(svc coupleapp.Service) *CoupleHandler { return &CoupleHandler{svc: svc} }

func (h *CoupleHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), claims.CoupleID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CoupleHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateCoupleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	c, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), claims.CoupleID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CoupleHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	body := http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	url, err := h.svc.UploadAvatar(r.Context(), chi.URLParam(r, "id"), claims.CoupleID, body, r.Header.Get("Content-Type"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		AvatarURL string `json:"avatar_url"`
	}{AvatarURL: url})
}
