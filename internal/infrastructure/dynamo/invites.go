package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/campus-push/internal/domain"
)

type InviteRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewInviteRepo(client *dynamodb.Client, tableName string) *InviteRepo {
	return &InviteRepo{client: client, tableName: tableName}
}

func (r *InviteRepo) Put(ctx context.Context, inv *domain.Invite) error {
	item, err := attributevalue.MarshalMap(inv)
	if err != nil {
		return fmt.Errorf("marshal invite: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// ListUnusedByEmail returns the email's unused invites, newest first.
func (r *InviteRepo) ListUnusedByEmail(ctx context.Context, email string) ([]domain.Invite, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexInviteEmail),
		KeyConditionExpression: aws.String("email = :e"),
		FilterExpression:       aws.String("#u = :f"),
		ExpressionAttributeNames: map[string]string{
			"#u": fieldIsUsed,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e": &types.AttributeValueMemberS{Value: email},
			":f": &types.AttributeValueMemberBOOL{Value: false},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	var invites []domain.Invite
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &invites); err != nil {
		return nil, err
	}
	return invites, nil
}

// MarkUsed flips is_used once. A second call fails with ErrConflict.
func (r *InviteRepo) MarkUsed(ctx context.Context, inviteID string, at time.Time) error {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldIsUsed: true, fieldUsedAt: at})
	if err != nil {
		return err
	}
	ue.Values[":unused"] = &types.AttributeValueMemberBOOL{Value: false}
	ue.Names["#used"] = fieldIsUsed
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("invite_id", inviteID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("#used = :unused"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("invite already used: %w", domain.ErrConflict)
	}
	return err
}
