// Package carryover implements the client-held correlation record that lets a
// later visit rejoin an in-progress registration. The record is a cookie the
// client carries across navigation; the server never treats it as authority —
// readiness is always re-derived from the store by registration id.
package carryover

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"
)

const cookieName = "duet_registration"

// Record correlates an in-progress registration across page visits and
// device handoffs: the registration id plus the two contact addresses shown
// on the completion step.
type Record struct {
	CoupleID string `json:"couple_id"`
	EmailA   string `json:"email_a"`
	EmailB   string `json:"email_b"`
}

// Write stores the record as a base64-JSON cookie. maxAge bounds how long an
// abandoned registration stays resumable from this browser.
func Write(w http.ResponseWriter, rec Record, maxAge time.Duration) {
	b, err := json.Marshal(rec)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    base64.RawURLEncoding.EncodeToString(b),
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read returns the stored record, if any. A malformed cookie reads as absent.
func Read(r *http.Request) (*Record, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return nil, false
	}
	b, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil, false
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil || rec.CoupleID == "" {
		return nil, false
	}
	return &rec, true
}

// Clear purges the record; called after a successful completion since the
// record is single-use and must not outlive the flow.
func Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ResolveCoupleID picks the registration id for a completion-step visit.
// An explicit id (carried in a verification email's completion link) always
// wins over the locally stored record, which lets either partner's device
// arrive at the completion step even though only one device initiated.
func ResolveCoupleID(explicit string, r *http.Request) string {
	if explicit != "" {
		return explicit
	}
	if rec, ok := Read(r); ok {
		return rec.CoupleID
	}
	return ""
}
