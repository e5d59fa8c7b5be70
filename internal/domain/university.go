package domain

import "time"

type University struct {
	UniversityID string       `json:"id" dynamodbav:"university_id"`
	Name         string       `json:"name" dynamodbav:"name"`
	City         string       `json:"city" dynamodbav:"city"`
	Domains      []string     `json:"domains" dynamodbav:"domains,stringset,omitempty"`
	AllowedIDs   []string     `json:"allowed_ids" dynamodbav:"allowed_ids,stringset,omitempty"`
	Departments  []Department `json:"departments" dynamodbav:"departments"`
	CreatedAt    time.Time    `json:"created" dynamodbav:"created_at"`
}

type Department struct {
	ID       string    `json:"id" dynamodbav:"id"`
	Name     string    `json:"name" dynamodbav:"name"`
	Sections []Section `json:"sections" dynamodbav:"sections"`
}

type Section struct {
	Name  string `json:"name" dynamodbav:"name"`
	Shift string `json:"shift" dynamodbav:"shift"`
}

// UniversityAdmin grants a user admin rights over one university.
// PK: university_id, SK: user_id.
type UniversityAdmin struct {
	UniversityID string    `json:"university_id" dynamodbav:"university_id"`
	UserID       string    `json:"user_id" dynamodbav:"user_id"`
	Role         string    `json:"role" dynamodbav:"role"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
}

type SuperAdmin struct {
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Email     string    `json:"email,omitempty" dynamodbav:"email,omitempty"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}
