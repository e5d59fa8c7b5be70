package fcm

import (
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-push/internal/domain"
)

func TestTopicMessage(t *testing.T) {
	p := &domain.Payload{
		Title:    "New Item Listed",
		Body:     "Phone for 5000",
		ImageURL: "https://img.example/p.png",
		Priority: domain.PriorityHigh,
		Data:     map[string]string{"postId": "mp1", "notificationId": "n1"},
	}
	m := topicMessage("university_AIRU", p)
	assert.Equal(t, "university_AIRU", m.Topic)
	assert.Empty(t, m.Token)
	assert.Equal(t, p.Data, m.Data)
	assert.Equal(t, "high", m.Android.Priority)
	require.NotNil(t, m.Android.Notification)
	assert.Equal(t, p.ImageURL, m.Android.Notification.ImageURL)
	assert.Equal(t, "10", m.APNS.Headers["apns-priority"])
	assert.True(t, m.APNS.Payload.Aps.MutableContent)
	assert.Equal(t, p.ImageURL, m.APNS.FCMOptions.ImageURL)
}

func TestMulticastMessage_NormalPriorityNoImage(t *testing.T) {
	m := multicastMessage([]string{"a", "b"}, &domain.Payload{Title: "t", Priority: domain.PriorityNormal})
	assert.Equal(t, []string{"a", "b"}, m.Tokens)
	assert.Equal(t, "normal", m.Android.Priority)
	assert.Nil(t, m.Android.Notification)
	assert.Equal(t, "5", m.APNS.Headers["apns-priority"])
	assert.Nil(t, m.APNS.FCMOptions)
}

func TestTokenResults(t *testing.T) {
	responses := []*messaging.SendResponse{
		{Success: true, MessageID: "m1"},
		{Success: false, Error: errors.New("invalid argument")},
	}
	got := tokenResults([]string{"a", "b", "c"}, responses)
	require.Len(t, got, 3)
	assert.Equal(t, domain.TokenResult{Token: "a", Success: true}, got[0])
	assert.Equal(t, "b", got[1].Token)
	assert.False(t, got[1].Success)
	assert.Equal(t, "invalid argument", got[1].Error)
	assert.False(t, got[1].Unregistered)
	assert.Equal(t, "no response from fcm", got[2].Error)
}
