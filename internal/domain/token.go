package domain

// Token purposes. Verification tokens prove control of a contact address
// during onboarding; password-reset tokens reuse the same single-use,
// expiring machinery after activation.
const (
	TokenPurposeVerify        = "verify"
	TokenPurposePasswordReset = "password_reset"
)

// VerificationToken is a single-use, expiring credential bound to exactly one
// (couple, slot) pair. Value is the table's partition key; redemption flips
// Consumed exactly once and is the record's only mutation.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type VerificationToken struct {
	Value     string `json:"-" dynamodbav:"token_value"`
	CoupleID  string `json:"couple_id" dynamodbav:"couple_id"`
	Slot      string `json:"slot" dynamodbav:"slot"`
	Purpose   string `json:"purpose" dynamodbav:"purpose"`
	IssuedAt  int64  `json:"issued_at" dynamodbav:"issued_at"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
	Consumed  bool   `json:"consumed" dynamodbav:"consumed"`
}

// VerificationResult is what a successful redemption reports back: the
// address that was just proven, and whether the sibling slot has verified too
// (the flag downstream UI uses to prompt for completion or keep waiting).
type VerificationResult struct {
	CoupleID     string `json:"couple_id"`
	Slot         string `json:"slot"`
	Email        string `json:"email"`
	BothVerified bool   `json:"both_verified"`
}
