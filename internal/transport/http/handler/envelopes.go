package handler

import (
	"encoding/json"
	"net/http"

	"github.com/duetapp/duet-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RegistrationEnvelope wraps initiation responses.
type RegistrationEnvelope struct {
	CoupleID string `json:"couple_id"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
}

// VerificationEnvelope wraps token redemption responses.
type VerificationEnvelope struct {
	CoupleID     string `json:"couple_id"`
	Email        string `json:"email"`
	BothVerified bool   `json:"both_verified"`
	Message      string `json:"message,omitempty"`
}

// AuthEnvelope wraps login/refresh responses. The domain types keep secrets
// out of JSON themselves (password_hash and refresh_token carry `json:"-"`).
type AuthEnvelope struct {
	AccessToken  string          `json:"access_token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	Session      *domain.Session `json:"session,omitempty"`
	Partner      *domain.Partner `json:"partner,omitempty"`
}

// SessionListEnvelope wraps the couple's session listing.
type SessionListEnvelope struct {
	Sessions []domain.Session `json:"sessions"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
