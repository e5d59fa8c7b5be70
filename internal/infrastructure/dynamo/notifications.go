package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/campus-push/internal/domain"
)

// NotificationRepo provides typed DynamoDB operations for the notifications table.
// Unsettled records carry a sparse "pending" attribute that feeds the pending index.
type NotificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewNotificationRepo(client *dynamodb.Client, tableName string) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName}
}

func marshalNotification(n *domain.Notification) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	if !n.Sent && !n.PermanentFailure {
		item[fieldPending] = &types.AttributeValueMemberS{Value: pendingMarker}
	}
	return item, nil
}

// Create appends a new record. An existing id is a conflict.
func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	item, err := marshalNotification(n)
	if err != nil {
		return err
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(notification_id)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("notification %s: %w", n.NotificationID, domain.ErrConflict)
	}
	return err
}

func (r *NotificationRepo) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("notification_id", notificationID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// deliveryUpdateExpr maps an attempt outcome onto the record's attributes.
// Settled records drop out of the pending index.
func deliveryUpdateExpr(u domain.DeliveryUpdate) (updateExpr, string, error) {
	set := map[string]interface{}{
		fieldIsPushSent:       u.Sent,
		fieldPermanentFailure: u.PermanentFailure,
		fieldDeliveredTargets: u.DeliveredTargets,
		fieldFailedTargets:    u.FailedTargets,
		fieldLastAttemptAt:    u.AttemptedAt,
	}
	var remove []string
	if u.LastError == "" {
		remove = append(remove, fieldLastError)
	} else {
		set[fieldLastError] = u.LastError
	}
	if u.Sent || u.PermanentFailure {
		remove = append(remove, fieldPending)
	} else {
		set[fieldPending] = pendingMarker
	}
	ue, err := buildUpdateExpr(set, remove...)
	if err != nil {
		return ue, "", err
	}
	if ue.Values == nil {
		ue.Values = make(map[string]types.AttributeValue)
	}

	// Concurrent attempts each count.
	ue.Expr += " ADD #attempts :one"
	ue.Names["#attempts"] = fieldAttempts
	ue.Values[":one"] = &types.AttributeValueMemberN{Value: "1"}

	cond := "attribute_exists(notification_id)"
	if !u.Sent {
		// A failure never overwrites a record another run already delivered.
		cond += " AND (attribute_not_exists(#sent) OR #sent = :false)"
		ue.Names["#sent"] = fieldIsPushSent
		ue.Values[":false"] = &types.AttributeValueMemberBOOL{Value: false}
	}
	return ue, cond, nil
}

// RecordDelivery applies one attempt outcome to an existing record. A failed
// attempt on a record that is already sent returns domain.ErrAlreadySent and
// leaves the record untouched.
func (r *NotificationRepo) RecordDelivery(ctx context.Context, notificationID string, u domain.DeliveryUpdate) error {
	ue, cond, err := deliveryUpdateExpr(u)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.tableName),
		Key:                                 strKey("notification_id", notificationID),
		UpdateExpression:                    aws.String(ue.Expr),
		ConditionExpression:                 aws.String(cond),
		ExpressionAttributeNames:            ue.Names,
		ExpressionAttributeValues:           ue.Values,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return conditionFailure(notificationID, ccf)
	}
	return err
}

// conditionFailure tells a missing record from one that is already sent.
func conditionFailure(notificationID string, ccf *types.ConditionalCheckFailedException) error {
	if len(ccf.Item) == 0 {
		return fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
	}
	return fmt.Errorf("notification %s: %w", notificationID, domain.ErrAlreadySent)
}

// ListPending returns up to limit unsettled records, oldest first.
func (r *NotificationRepo) ListPending(ctx context.Context, limit int) ([]domain.Notification, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexPending),
		KeyConditionExpression: aws.String("#p = :p"),
		ExpressionAttributeNames: map[string]string{
			"#p": fieldPending,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: pendingMarker},
		},
		ScanIndexForward: aws.Bool(true),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, err
	}
	var notifications []domain.Notification
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// ListByUser returns a user's direct notifications, newest first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID string, limit int32) ([]domain.Notification, error) {
	return r.queryNewest(ctx, indexUserCreated, "user_id", userID, limit)
}

// ListByUniversity returns a university's broadcast history, newest first.
func (r *NotificationRepo) ListByUniversity(ctx context.Context, universityID string, limit int32) ([]domain.Notification, error) {
	return r.queryNewest(ctx, indexUniversityCreate, "university_id", universityID, limit)
}

func (r *NotificationRepo) queryNewest(ctx context.Context, index, attr, value string, limit int32) ([]domain.Notification, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String(attr + " = :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(limit),
	})
	if err != nil {
		return nil, err
	}
	var notifications []domain.Notification
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *NotificationRepo) MarkAsRead(ctx context.Context, notificationID string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldIsRead: true})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("notification_id", notificationID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

