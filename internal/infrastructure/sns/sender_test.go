package sns

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-push/internal/domain"
)

func TestMessage(t *testing.T) {
	raw, err := message(&domain.Payload{
		Title: "Timetable Updated",
		Body:  "The schedule for Class has changed.",
		Data:  map[string]string{"notificationId": "n1"},
	})
	require.NoError(t, err)

	var env map[string]string
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Equal(t, "The schedule for Class has changed.", env["default"])

	var gcm struct {
		Notification map[string]string `json:"notification"`
		Data         map[string]string `json:"data"`
		Android      map[string]string `json:"android"`
	}
	require.NoError(t, json.Unmarshal([]byte(env["GCM"]), &gcm))
	assert.Equal(t, "Timetable Updated", gcm.Notification["title"])
	assert.Equal(t, "n1", gcm.Data["notificationId"])
	assert.Equal(t, "HIGH", gcm.Android["priority"])

	var apns map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(env["APNS"]), &apns))
	assert.Equal(t, "n1", apns["notificationId"])
	assert.Equal(t, env["APNS"], env["APNS_SANDBOX"])
}

func TestTopicARN(t *testing.T) {
	tr := &Transport{topicPrefix: "arn:aws:sns:us-east-1:123456789012:"}
	assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:university_AIRU", tr.topicARN("university_AIRU"))
}
