package domain

import "time"

// EmailVerification stores the pending code for an email address.
// PK: email. ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type EmailVerification struct {
	Email     string    `json:"email" dynamodbav:"email"`
	CodeHash  string    `json:"-" dynamodbav:"code_hash"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"`
	Attempts  int       `json:"attempts" dynamodbav:"attempts"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
}

// MaxVerificationAttempts is how many wrong codes an address may submit before
// its pending code is discarded.
const MaxVerificationAttempts = 5

// Expired reports whether the code is past its expiry at now. The TTL sweeper
// removes items lazily, so readers must check this themselves.
func (v *EmailVerification) Expired(now time.Time) bool {
	return v.ExpiresAt <= now.Unix()
}
