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

// AdminRepo covers the super_admins table and the per-university admins table.
type AdminRepo struct {
	client           *dynamodb.Client
	superAdminsTable string
	uniAdminsTable   string
}

func NewAdminRepo(client *dynamodb.Client, superAdminsTable, uniAdminsTable string) *AdminRepo {
	return &AdminRepo{client: client, superAdminsTable: superAdminsTable, uniAdminsTable: uniAdminsTable}
}

func (r *AdminRepo) PutSuperAdmin(ctx context.Context, a *domain.SuperAdmin) error {
	return r.put(ctx, r.superAdminsTable, a)
}

func (r *AdminRepo) PutUniversityAdmin(ctx context.Context, a *domain.UniversityAdmin) error {
	return r.put(ctx, r.uniAdminsTable, a)
}

func (r *AdminRepo) IsSuperAdmin(ctx context.Context, userID string) (bool, error) {
	return r.exists(ctx, r.superAdminsTable, strKey("user_id", userID))
}

func (r *AdminRepo) IsUniversityAdmin(ctx context.Context, universityID, userID string) (bool, error) {
	return r.exists(ctx, r.uniAdminsTable, compositeKey("university_id", universityID, "user_id", userID))
}

func (r *AdminRepo) put(ctx context.Context, table string, v interface{}) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal admin: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	})
	return err
}

func (r *AdminRepo) exists(ctx context.Context, table string, key map[string]types.AttributeValue) (bool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       key,
	})
	if err != nil {
		return false, err
	}
	return out.Item != nil, nil
}

func notFoundOnConditionFail(err error, what string) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return err
}
