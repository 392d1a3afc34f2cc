package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/duetapp/duet-api/internal/application/registration"
	"github.com/duetapp/duet-api/internal/application/verification"
	"github.com/duetapp/duet-api/internal/domain"
	"github.com/duetapp/duet-api/internal/pkg/carryover"
	"github.com/duetapp/duet-api/internal/pkg/validate"
	"github.com/go-chi/chi/v5"
)

// RegistrationHandler handles the onboarding workflow endpoints.
type RegistrationHandler struct {
	svc      registration.Service
	verifier verification.Service
	carryTTL time.Duration
}

func NewRegistrationHandler(svc registration.Service, verifier verification.Service, carryTTL time.Duration) *RegistrationHandler {
	return &RegistrationHandler{svc: svc, verifier: verifier, carryTTL: carryTTL}
}

func (h *RegistrationHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req domain.InitiateRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	c, err := h.svc.Initiate(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}

	carryover.Write(w, carryover.Record{
		CoupleID: c.CoupleID,
		EmailA:   req.EmailA,
		EmailB:   req.EmailB,
	}, h.carryTTL)

	writeJSON(w, http.StatusCreated, RegistrationEnvelope{
		CoupleID: c.CoupleID,
		Status:   string(c.Status),
		Message:  "verification challenges sent to both partners",
	})
}

func (h *RegistrationHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *RegistrationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	// Body for API clients, query parameter for challenge links.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		req.Token = r.URL.Query().Get("token")
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token required")
		return
	}

	res, err := h.verifier.Redeem(r.Context(), req.Token)
	if err != nil {
		httpError(w, err)
		return
	}

	msg := "address verified; waiting for your partner"
	if res.BothVerified {
		msg = "both partners verified; registration can be completed"
	}
	writeJSON(w, http.StatusOK, VerificationEnvelope{
		CoupleID:     res.CoupleID,
		Email:        res.Email,
		BothVerified: res.BothVerified,
		Message:      msg,
	})
}

func (h *RegistrationHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slot string `json:"slot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.Resend(r.Context(), chi.URLParam(r, "id"), req.Slot); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "fresh verification challenge sent"})
}

func (h *RegistrationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req domain.CompleteRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Body field, then the completion link's query parameter, then the
	// carryover cookie from the initiating browser.
	if req.CoupleID == "" {
		req.CoupleID = r.URL.Query().Get("couple_id")
	}
	req.CoupleID = carryover.ResolveCoupleID(req.CoupleID, r)
	if req.CoupleID == "" {
		writeError(w, http.StatusBadRequest, "couple_id required")
		return
	}

	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	c, err := h.svc.Complete(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}

	carryover.Clear(w)
	writeJSON(w, http.StatusOK, RegistrationEnvelope{
		CoupleID: c.CoupleID,
		Status:   string(c.Status),
		Message:  "registration completed",
	})
}
