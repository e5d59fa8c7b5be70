package firestore

import (
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"

	"github.com/campus-push/internal/domain"
)

func TestDeliveryUpdates(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	ups := deliveryUpdates(domain.DeliveryUpdate{Sent: true, Attempts: 1, DeliveredTargets: 3, AttemptedAt: at})
	byPath := map[string]interface{}{}
	for _, u := range ups {
		byPath[u.Path] = u.Value
	}
	assert.Equal(t, true, byPath["isPushSent"])
	assert.Equal(t, false, byPath["pushFailed"])
	assert.Equal(t, 3, byPath["deliveredTargets"])
	assert.Equal(t, firestore.Increment(1), byPath["attempts"])
	assert.Equal(t, firestore.Delete, byPath["lastError"])
	assert.Equal(t, at, byPath["lastAttempt"])

	ups = deliveryUpdates(domain.DeliveryUpdate{LastError: "unavailable", AttemptedAt: at})
	for _, u := range ups {
		if u.Path == "lastError" {
			assert.Equal(t, "unavailable", u.Value)
		}
	}
}

func TestSupersededBy(t *testing.T) {
	sent := map[string]interface{}{"isPushSent": true}
	pending := map[string]interface{}{"isPushSent": false}
	legacy := map[string]interface{}{"title": "no delivery fields yet"}

	assert.True(t, supersededBy(sent, domain.DeliveryUpdate{LastError: "timeout"}))
	assert.True(t, supersededBy(sent, domain.DeliveryUpdate{PermanentFailure: true}))
	assert.False(t, supersededBy(sent, domain.DeliveryUpdate{Sent: true}))
	assert.False(t, supersededBy(pending, domain.DeliveryUpdate{LastError: "timeout"}))
	assert.False(t, supersededBy(legacy, domain.DeliveryUpdate{LastError: "timeout"}))
}

func TestPendingRecord_MissingFailureFieldCountsAsPending(t *testing.T) {
	// Decoding a document without pushFailed leaves the zero value.
	var n domain.Notification
	assert.True(t, pendingRecord(&n))

	n.PermanentFailure = true
	assert.False(t, pendingRecord(&n))
	n.PermanentFailure = false
	n.Sent = true
	assert.False(t, pendingRecord(&n))
}
