package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/campus-push/internal/domain"
)

// DeviceTokenRepo stores push tokens keyed by (user_id, token). Re-registering
// a token overwrites it, so a user never holds duplicates.
type DeviceTokenRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewDeviceTokenRepo(client *dynamodb.Client, tableName string) *DeviceTokenRepo {
	return &DeviceTokenRepo{client: client, tableName: tableName}
}

func (r *DeviceTokenRepo) Put(ctx context.Context, t *domain.DeviceToken) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal device token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *DeviceTokenRepo) DeleteToken(ctx context.Context, userID, token string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("user_id", userID, "token", token),
	})
	return err
}

// ListTokens returns every token string registered for userID.
func (r *DeviceTokenRepo) ListTokens(ctx context.Context, userID string) ([]string, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    aws.String("user_id = :u"),
		ProjectionExpression:      aws.String("#t"),
		ExpressionAttributeNames:  map[string]string{"#t": "token"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":u": &types.AttributeValueMemberS{Value: userID}},
	})
	var tokens []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if v, ok := item["token"].(*types.AttributeValueMemberS); ok {
				tokens = append(tokens, v.Value)
			}
		}
	}
	return tokens, nil
}
