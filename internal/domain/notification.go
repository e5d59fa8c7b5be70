package domain

import "time"

// Category is the business module a notification originates from.
type Category string

const (
	CategoryAnnouncement        Category = "announcement"
	CategoryTimetable           Category = "timetable"
	CategoryLostAndFound        Category = "lostAndFound"
	CategoryMarketplace         Category = "marketplace"
	CategoryJobPosting          Category = "jobPosting"
	CategoryComplaintInProgress Category = "complaintInProgress"
	CategoryCustom              Category = "custom"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryAnnouncement, CategoryTimetable, CategoryLostAndFound, CategoryMarketplace,
		CategoryJobPosting, CategoryComplaintInProgress, CategoryCustom:
		return true
	}
	return false
}

const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Notification is the durable history record that also drives push delivery.
// Sent is the delivery state: false while pending, true once a send call round-tripped.
type Notification struct {
	NotificationID   string         `json:"id" dynamodbav:"notification_id" firestore:"-"`
	Title            string         `json:"title" dynamodbav:"title" firestore:"title"`
	Body             string         `json:"body" dynamodbav:"body" firestore:"body"`
	Category         Category       `json:"type" dynamodbav:"type" firestore:"type"`
	Priority         string         `json:"priority" dynamodbav:"priority" firestore:"priority"`
	UniversityID     *string        `json:"university_id,omitempty" dynamodbav:"university_id,omitempty" firestore:"universityId"`
	UserID           *string        `json:"user_id,omitempty" dynamodbav:"user_id,omitempty" firestore:"userId"`
	Data             map[string]any `json:"data" dynamodbav:"data" firestore:"data"`
	ImageRef         *string        `json:"image_ref,omitempty" dynamodbav:"image_ref,omitempty" firestore:"imageUrl"`
	Sent             bool           `json:"is_push_sent" dynamodbav:"is_push_sent" firestore:"isPushSent"`
	IsRead           bool           `json:"is_read" dynamodbav:"is_read" firestore:"isRead"`
	PermanentFailure bool           `json:"permanent_failure" dynamodbav:"permanent_failure" firestore:"pushFailed"`
	Attempts         int            `json:"attempts" dynamodbav:"attempts" firestore:"attempts"`
	DeliveredTargets int            `json:"delivered_targets" dynamodbav:"delivered_targets" firestore:"deliveredTargets"`
	FailedTargets    int            `json:"failed_targets" dynamodbav:"failed_targets" firestore:"failedTargets"`
	LastError        *string        `json:"last_error,omitempty" dynamodbav:"last_error,omitempty" firestore:"lastError"`
	LastAttemptAt    *time.Time     `json:"last_attempt_at,omitempty" dynamodbav:"last_attempt_at,omitempty" firestore:"lastAttempt"`
	CreatedAt        time.Time      `json:"created" dynamodbav:"created_at,unixtime" firestore:"createdAt"`
}

// TargetUserID returns the direct-delivery user, or "" for broadcasts.
func (n *Notification) TargetUserID() string {
	if n.UserID == nil {
		return ""
	}
	return *n.UserID
}

// TargetUniversityID returns the broadcast university, or "".
func (n *Notification) TargetUniversityID() string {
	if n.UniversityID == nil {
		return ""
	}
	return *n.UniversityID
}

// DeliveryUpdate is the set of fields the outcome recorder writes after an attempt.
// An empty LastError clears the stored diagnostic.
type DeliveryUpdate struct {
	Sent             bool
	PermanentFailure bool
	Attempts         int
	DeliveredTargets int
	FailedTargets    int
	LastError        string
	AttemptedAt      time.Time
}

// StrPtr returns nil for "" and a pointer to s otherwise.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
