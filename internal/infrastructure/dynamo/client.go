package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/campus-push/internal/config"
	"github.com/campus-push/internal/infrastructure/awscfg"
)

// clientRetries covers throttling when a poll cycle writes a full batch at once.
const clientRetries = 5

// NewClient builds the DynamoDB client shared by every repo. AWS_ENDPOINT_URL
// points it at LocalStack.
func NewClient(ctx context.Context, cfg *config.Config) (*dynamodb.Client, error) {
	awsCfg, err := awscfg.Load(ctx, cfg, "")
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.RetryMaxAttempts = clientRetries
		if cfg.AWSEndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		}
	}), nil
}
