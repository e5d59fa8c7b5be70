package fcm

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"

	"github.com/campus-push/internal/domain"
)

// maxMulticast is the FCM limit on tokens per multicast call.
const maxMulticast = 500

// Transport delivers payloads through Firebase Cloud Messaging.
type Transport struct {
	client *messaging.Client
}

func NewTransport(client *messaging.Client) *Transport {
	return &Transport{client: client}
}

func (t *Transport) SendToTopic(ctx context.Context, topic string, p *domain.Payload) error {
	if _, err := t.client.Send(ctx, topicMessage(topic, p)); err != nil {
		return fmt.Errorf("fcm send to topic: %w", err)
	}
	return nil
}

// SendToTokens sends in chunks of 500. A chunk that fails as a whole fails the call.
func (t *Transport) SendToTokens(ctx context.Context, tokens []string, p *domain.Payload) ([]domain.TokenResult, error) {
	results := make([]domain.TokenResult, 0, len(tokens))
	for start := 0; start < len(tokens); start += maxMulticast {
		end := min(start+maxMulticast, len(tokens))
		chunk := tokens[start:end]
		br, err := t.client.SendEachForMulticast(ctx, multicastMessage(chunk, p))
		if err != nil {
			return nil, fmt.Errorf("fcm multicast: %w", err)
		}
		results = append(results, tokenResults(chunk, br.Responses)...)
	}
	return results, nil
}

// SubscribeToTopic adds tokens to a topic. Per-token failures are reported as one error.
func (t *Transport) SubscribeToTopic(ctx context.Context, tokens []string, topic string) error {
	resp, err := t.client.SubscribeToTopic(ctx, tokens, topic)
	if err != nil {
		return fmt.Errorf("fcm subscribe to %s: %w", topic, err)
	}
	if resp.FailureCount > 0 {
		reason := ""
		if len(resp.Errors) > 0 {
			reason = resp.Errors[0].Reason
		}
		return fmt.Errorf("fcm subscribe to %s: %d of %d tokens failed: %s", topic, resp.FailureCount, len(tokens), reason)
	}
	return nil
}

func tokenResults(tokens []string, responses []*messaging.SendResponse) []domain.TokenResult {
	out := make([]domain.TokenResult, len(tokens))
	for i, tok := range tokens {
		out[i] = domain.TokenResult{Token: tok}
		if i >= len(responses) || responses[i] == nil {
			out[i].Error = "no response from fcm"
			continue
		}
		r := responses[i]
		if r.Success {
			out[i].Success = true
			continue
		}
		if r.Error != nil {
			out[i].Error = r.Error.Error()
			out[i].Unregistered = messaging.IsUnregistered(r.Error)
		}
	}
	return out
}

func topicMessage(topic string, p *domain.Payload) *messaging.Message {
	return &messaging.Message{
		Topic:        topic,
		Notification: notification(p),
		Data:         p.Data,
		Android:      androidConfig(p),
		APNS:         apnsConfig(p),
	}
}

func multicastMessage(tokens []string, p *domain.Payload) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: notification(p),
		Data:         p.Data,
		Android:      androidConfig(p),
		APNS:         apnsConfig(p),
	}
}

func notification(p *domain.Payload) *messaging.Notification {
	return &messaging.Notification{Title: p.Title, Body: p.Body, ImageURL: p.ImageURL}
}

func androidConfig(p *domain.Payload) *messaging.AndroidConfig {
	prio := "high"
	if p.Priority == domain.PriorityNormal {
		prio = "normal"
	}
	cfg := &messaging.AndroidConfig{Priority: prio}
	if p.ImageURL != "" {
		cfg.Notification = &messaging.AndroidNotification{ImageURL: p.ImageURL}
	}
	return cfg
}

func apnsConfig(p *domain.Payload) *messaging.APNSConfig {
	prio := "10"
	if p.Priority == domain.PriorityNormal {
		prio = "5"
	}
	cfg := &messaging.APNSConfig{
		Headers: map[string]string{"apns-priority": prio},
		Payload: &messaging.APNSPayload{Aps: &messaging.Aps{MutableContent: p.ImageURL != ""}},
	}
	if p.ImageURL != "" {
		cfg.FCMOptions = &messaging.APNSFCMOptions{ImageURL: p.ImageURL}
	}
	return cfg
}
