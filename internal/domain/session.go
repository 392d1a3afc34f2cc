package domain

import "time"

// Session is one logged-in device context for an activated partner.
type Session struct {
	SessionID        string    `json:"id" dynamodbav:"session_id"`
	CoupleID         string    `json:"couple_id" dynamodbav:"couple_id"`
	Slot             string    `json:"slot" dynamodbav:"slot"`
	Enable           bool      `json:"enable" dynamodbav:"enable"`
	RefreshToken     string    `json:"-" dynamodbav:"refresh_token"`
	RefreshExpiresAt int64     `json:"-" dynamodbav:"refresh_expires_at"`
	CreatedAt        time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time `json:"updated" dynamodbav:"updated_at"`
	Partner          *Partner  `json:"partner,omitempty" dynamodbav:"-"`
}
