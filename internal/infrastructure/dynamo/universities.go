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

type UniversityRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewUniversityRepo(client *dynamodb.Client, tableName string) *UniversityRepo {
	return &UniversityRepo{client: client, tableName: tableName}
}

func (r *UniversityRepo) Put(ctx context.Context, u *domain.University) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal university: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *UniversityRepo) Get(ctx context.Context, universityID string) (*domain.University, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("university_id", universityID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("university %s: %w", universityID, domain.ErrNotFound)
	}
	var u domain.University
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// AddDomain adds an email domain to the university's string set. Adding an
// existing domain is a no-op; the university must exist.
func (r *UniversityRepo) AddDomain(ctx context.Context, universityID, emailDomain string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey("university_id", universityID),
		UpdateExpression:         aws.String("ADD #d :d"),
		ConditionExpression:      aws.String("attribute_exists(university_id)"),
		ExpressionAttributeNames: map[string]string{"#d": fieldDomains},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":d": &types.AttributeValueMemberSS{Value: []string{emailDomain}},
		},
	})
	return notFoundOnConditionFail(err, "university "+universityID)
}
