package dynamo

// DynamoDB attribute names used in update expressions and index definitions.
const (
	fieldPending          = "pending"
	fieldIsPushSent       = "is_push_sent"
	fieldPermanentFailure = "permanent_failure"
	fieldAttempts         = "attempts"
	fieldDeliveredTargets = "delivered_targets"
	fieldFailedTargets    = "failed_targets"
	fieldLastError        = "last_error"
	fieldLastAttemptAt    = "last_attempt_at"
	fieldIsRead           = "is_read"
	fieldCreatedAt        = "created_at"

	fieldIsUsed  = "is_used"
	fieldUsedAt  = "used_at"
	fieldDomains = "domains"

	fieldImageURL    = "image_url"
	fieldImageBase64 = "image_base64"

	indexPending          = "pending-created_at-index"
	indexUserCreated      = "user_id-created_at-index"
	indexUniversityCreate = "university_id-created_at-index"
	indexEmail            = "email-index"
	indexRole             = "role-index"
	indexInviteEmail      = "email-created_at-index"
)

// pendingMarker is the value of the sparse pending attribute.
const pendingMarker = "1"
