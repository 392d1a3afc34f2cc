package domain

import "time"

// CoupleStatus is the lifecycle state of a joint registration.
type CoupleStatus string

const (
	// CoupleStatusPending means the registration exists but at least one
	// partner has not finished the flow. Only pending couples accept token
	// issuance, redemption, or completion.
	CoupleStatusPending CoupleStatus = "pending"
	// CoupleStatusCompleted is terminal: both partners verified and the
	// completion gate ran exactly once.
	CoupleStatusCompleted CoupleStatus = "completed"
	// CoupleStatusExpired is terminal: the pending registration outlived its
	// retention deadline without completing.
	CoupleStatusExpired CoupleStatus = "expired"
)

// Couple is one joint registration / account. It owns exactly two Partner
// records (slots A and B) keyed by its id.
type Couple struct {
	CoupleID        string       `json:"id" dynamodbav:"couple_id"`
	CoupleName      string       `json:"couple_name" dynamodbav:"couple_name"`
	AnniversaryDate *string      `json:"anniversary_date,omitempty" dynamodbav:"anniversary_date"` // YYYY-MM-DD
	AvatarURL       *string      `json:"avatar_url,omitempty" dynamodbav:"avatar_url"`
	Status          CoupleStatus `json:"status" dynamodbav:"status"`
	// PendingExpiresAt is the retention deadline (Unix seconds) for a
	// registration that never completes; it doubles as the DynamoDB TTL.
	PendingExpiresAt int64     `json:"-" dynamodbav:"pending_expires_at"`
	CreatedAt        time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time `json:"updated" dynamodbav:"updated_at"`
}

type InitiateRegistrationRequest struct {
	EmailA          string  `json:"email_a" validate:"required"`
	EmailB          string  `json:"email_b" validate:"required"`
	CoupleName      string  `json:"couple_name" validate:"required,max=100"`
	AnniversaryDate *string `json:"anniversary_date" validate:"omitempty,dateonly"`
}

type CompleteRegistrationRequest struct {
	CoupleID     string `json:"couple_id"`
	DisplayNameA string `json:"display_name_a" validate:"required,max=50"`
	PasswordA    string `json:"password_a" validate:"required"`
	DisplayNameB string `json:"display_name_b" validate:"required,max=50"`
	PasswordB    string `json:"password_b" validate:"required"`
}

type UpdateCoupleRequest struct {
	CoupleName      *string `json:"couple_name" validate:"omitempty,max=100"`
	AnniversaryDate *string `json:"anniversary_date" validate:"omitempty,dateonly"`
}
