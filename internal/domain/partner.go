package domain

import "time"

// Partner slot labels. A couple has exactly one partner per slot; the pair is
// fixed at initiation and never resized.
const (
	SlotA = "partner_a"
	SlotB = "partner_b"
)

// SiblingSlot returns the other slot of the pair.
func SiblingSlot(slot string) string {
	if slot == SlotA {
		return SlotB
	}
	return SlotA
}

// SlotLabel returns the short human-facing label ("A" / "B") for a slot.
func SlotLabel(slot string) string {
	if slot == SlotA {
		return "A"
	}
	return "B"
}

// ValidSlot reports whether slot is one of the two fixed slot names.
func ValidSlot(slot string) bool {
	return slot == SlotA || slot == SlotB
}

// Partner is one of the two fixed positions in a couple.
// PK: couple_id, SK: slot. Email is immutable after initiation; Verified is
// monotonic false→true; DisplayName and PasswordHash are written exactly once
// by the completion gate.
type Partner struct {
	CoupleID     string     `json:"couple_id" dynamodbav:"couple_id"`
	Slot         string     `json:"slot" dynamodbav:"slot"`
	Email        string     `json:"email" dynamodbav:"email"`
	Verified     bool       `json:"verified" dynamodbav:"verified"`
	// PendingExpiresAt mirrors the couple's retention deadline (table TTL).
	// Removed by the completion transaction so activated rows never age out,
	// and so an abandoned registration cannot hold its addresses hostage.
	PendingExpiresAt int64 `json:"-" dynamodbav:"pending_expires_at,omitempty"`
	DisplayName  string     `json:"display_name,omitempty" dynamodbav:"display_name"`
	PasswordHash string     `json:"-" dynamodbav:"password_hash"`
	GoogleSub    string     `json:"-" dynamodbav:"google_sub"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty" dynamodbav:"verified_at"`
	CreatedAt    time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// PartnerCredential carries the completion-gate write for one slot.
type PartnerCredential struct {
	DisplayName  string
	PasswordHash string
}
