package domain

import "time"

// Invite is a single-use registration code for faculty accounts.
// Only the bcrypt hash of the code is stored.
type Invite struct {
	InviteID  string     `json:"id" dynamodbav:"invite_id"`
	Email     string     `json:"email" dynamodbav:"email"`
	CodeHash  string     `json:"-" dynamodbav:"code_hash"`
	Role      string     `json:"role" dynamodbav:"role"`
	IsUsed    bool       `json:"is_used" dynamodbav:"is_used"`
	CreatedBy string     `json:"created_by" dynamodbav:"created_by"`
	UsedAt    *time.Time `json:"used_at,omitempty" dynamodbav:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created" dynamodbav:"created_at"`
}

type CreateInviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyInviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=10"`
}
