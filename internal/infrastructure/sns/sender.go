package sns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/campus-push/internal/config"
	"github.com/campus-push/internal/domain"
	"github.com/campus-push/internal/infrastructure/awscfg"
)

// Transport publishes push payloads through SNS mobile push. Topics map to
// "<prefix><topic>" ARNs; tokens are platform endpoint ARNs.
type Transport struct {
	client      *sns.Client
	topicPrefix string
}

func NewTransport(ctx context.Context, cfg *config.Config) (*Transport, error) {
	awsCfg, err := awscfg.Load(ctx, cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	clientOpts := []func(*sns.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return &Transport{client: sns.NewFromConfig(awsCfg, clientOpts...), topicPrefix: cfg.SNSTopicARNPrefix}, nil
}

func (t *Transport) topicARN(topic string) string {
	return t.topicPrefix + topic
}

func (t *Transport) SendToTopic(ctx context.Context, topic string, p *domain.Payload) error {
	msg, err := message(p)
	if err != nil {
		return err
	}
	_, err = t.client.Publish(ctx, &sns.PublishInput{
		TopicArn:         aws.String(t.topicARN(topic)),
		Message:          aws.String(msg),
		MessageStructure: aws.String("json"),
	})
	if err != nil {
		return fmt.Errorf("sns publish to topic: %w", err)
	}
	return nil
}

// SendToTokens publishes once per endpoint. SNS has no multicast, so every
// failure is per target and the call itself never fails after encoding.
func (t *Transport) SendToTokens(ctx context.Context, tokens []string, p *domain.Payload) ([]domain.TokenResult, error) {
	msg, err := message(p)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TokenResult, len(tokens))
	for i, endpoint := range tokens {
		out[i] = domain.TokenResult{Token: endpoint}
		_, err := t.client.Publish(ctx, &sns.PublishInput{
			TargetArn:        aws.String(endpoint),
			Message:          aws.String(msg),
			MessageStructure: aws.String("json"),
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("sns publish: %w", ctx.Err())
			}
			var disabled *types.EndpointDisabledException
			out[i].Error = err.Error()
			out[i].Unregistered = errors.As(err, &disabled)
			continue
		}
		out[i].Success = true
	}
	return out, nil
}

// SubscribeToTopic subscribes each endpoint to the topic's ARN.
func (t *Transport) SubscribeToTopic(ctx context.Context, tokens []string, topic string) error {
	var errs []error
	for _, endpoint := range tokens {
		_, err := t.client.Subscribe(ctx, &sns.SubscribeInput{
			TopicArn: aws.String(t.topicARN(topic)),
			Protocol: aws.String("application"),
			Endpoint: aws.String(endpoint),
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("sns subscribe to %s: %w", topic, errors.Join(errs...))
	}
	return nil
}

// message builds the per-platform JSON envelope SNS expects with MessageStructure=json.
func message(p *domain.Payload) (string, error) {
	fcm := map[string]interface{}{
		"notification": map[string]string{"title": p.Title, "body": p.Body, "image": p.ImageURL},
		"data":         p.Data,
		"android":      map[string]string{"priority": strings.ToUpper(priority(p))},
	}
	aps := map[string]interface{}{
		"aps": map[string]interface{}{
			"alert":           map[string]string{"title": p.Title, "body": p.Body},
			"mutable-content": 1,
		},
	}
	for k, v := range p.Data {
		aps[k] = v
	}

	gcmJSON, err := json.Marshal(fcm)
	if err != nil {
		return "", fmt.Errorf("encode gcm message: %w", err)
	}
	apnsJSON, err := json.Marshal(aps)
	if err != nil {
		return "", fmt.Errorf("encode apns message: %w", err)
	}
	envelope, err := json.Marshal(map[string]string{
		"default":      p.Body,
		"GCM":          string(gcmJSON),
		"APNS":         string(apnsJSON),
		"APNS_SANDBOX": string(apnsJSON),
	})
	if err != nil {
		return "", fmt.Errorf("encode sns envelope: %w", err)
	}
	return string(envelope), nil
}

func priority(p *domain.Payload) string {
	if p.Priority == domain.PriorityNormal {
		return domain.PriorityNormal
	}
	return domain.PriorityHigh
}
