package domain

import "time"

type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id" firestore:"uid"`
	Email        string    `json:"email" dynamodbav:"email" firestore:"email"`
	FullName     string    `json:"full_name" dynamodbav:"full_name" firestore:"fullName"`
	Role         string    `json:"role" dynamodbav:"role" firestore:"role"`
	UniversityID string    `json:"university_id,omitempty" dynamodbav:"university_id,omitempty" firestore:"universityId"`
	IsActive     bool      `json:"is_active" dynamodbav:"is_active" firestore:"isActive"`
	IsApproved   bool      `json:"is_approved" dynamodbav:"is_approved" firestore:"isApproved"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at" firestore:"createdAt"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at" firestore:"-"`
}
