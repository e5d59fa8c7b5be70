package domain

// Announcement is the subset of an announcement post the image migration touches.
type Announcement struct {
	AnnouncementID string  `json:"id" dynamodbav:"announcement_id"`
	UniversityID   string  `json:"university_id" dynamodbav:"university_id"`
	Title          string  `json:"title" dynamodbav:"title"`
	ImageURL       *string `json:"image_url,omitempty" dynamodbav:"image_url,omitempty"`
	ImageBase64    *string `json:"image_base64,omitempty" dynamodbav:"image_base64,omitempty"`
}
