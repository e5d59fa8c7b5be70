package domain

import "time"

// DeviceToken is a push token registered by a user's device. The token string is the key.
type DeviceToken struct {
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Token     string    `json:"token" dynamodbav:"token"`
	Platform  string    `json:"platform,omitempty" dynamodbav:"platform,omitempty"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}

type RegisterTokenRequest struct {
	Token    string `json:"token" validate:"required,max=4096"`
	Platform string `json:"platform" validate:"omitempty,oneof=android ios web"`
}
