package dynamo

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/campus-push/internal/config"
)

// Bootstrap creates all DynamoDB tables and GSIs if they don't already exist.
// Safe to call on every startup.
func Bootstrap(ctx context.Context, client *dynamodb.Client, tables config.DynamoTables, log logrus.FieldLogger) {
	for _, in := range tableDefinitions(tables) {
		createTable(ctx, client, in, log)
	}
}

func tableDefinitions(tables config.DynamoTables) []*dynamodb.CreateTableInput {
	return []*dynamodb.CreateTableInput{
		{
			TableName:   aws.String(tables.Notifications),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				attr("notification_id", types.ScalarAttributeTypeS),
				attr(fieldPending, types.ScalarAttributeTypeS),
				attr("user_id", types.ScalarAttributeTypeS),
				attr("university_id", types.ScalarAttributeTypeS),
				attr(fieldCreatedAt, types.ScalarAttributeTypeN),
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("notification_id"), KeyType: types.KeyTypeHash},
			},
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi(indexPending, fieldPending, fieldCreatedAt),
				gsi(indexUserCreated, "user_id", fieldCreatedAt),
				gsi(indexUniversityCreate, "university_id", fieldCreatedAt),
			},
		},
		{
			TableName:   aws.String(tables.DeviceTokens),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				attr("user_id", types.ScalarAttributeTypeS),
				attr("token", types.ScalarAttributeTypeS),
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("user_id"), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String("token"), KeyType: types.KeyTypeRange},
			},
		},
		{
			TableName:   aws.String(tables.Users),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				attr("user_id", types.ScalarAttributeTypeS),
				attr("email", types.ScalarAttributeTypeS),
				attr("role", types.ScalarAttributeTypeS),
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("user_id"), KeyType: types.KeyTypeHash},
			},
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi(indexEmail, "email", ""),
				gsi(indexRole, "role", ""),
			},
		},
		{
			TableName:   aws.String(tables.Universities),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				attr("university_id", types.ScalarAttributeTypeS),
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("university_id"), KeyType: types.KeyTypeHash},
			},
		},
		{
			TableName:   aws.String(tables.UniversityAdmins),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				attr("university_id", types.ScalarAttributeTypeS),
				attr("user_id", types.ScalarAttributeTypeS),
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("university_id"), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String("user_id"), KeyType: types.KeyTypeRange},
			},
		},
		{
			TableName:   aws.String(tables.SuperAdmins),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				attr("user_id", types.ScalarAttributeTypeS),
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("user_id"), KeyType: types.KeyTypeHash},
			},
		},
		{
			TableName:   aws.String(tables.Invites),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				attr("invite_id", types.ScalarAttributeTypeS),
				attr("email", types.ScalarAttributeTypeS),
				attr(fieldCreatedAt, types.ScalarAttributeTypeS),
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("invite_id"), KeyType: types.KeyTypeHash},
			},
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi(indexInviteEmail, "email", fieldCreatedAt),
			},
		},
		{
			TableName:   aws.String(tables.Announcements),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				attr("announcement_id", types.ScalarAttributeTypeS),
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("announcement_id"), KeyType: types.KeyTypeHash},
			},
		},
	}
}

func attr(name string, t types.ScalarAttributeType) types.AttributeDefinition {
	return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: t}
}

// gsi builds a GSI descriptor. If sortKey is empty, only a hash key is added.
func gsi(indexName, hashKey, sortKey string) types.GlobalSecondaryIndex {
	ks := []types.KeySchemaElement{
		{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
	}
	if sortKey != "" {
		ks = append(ks, types.KeySchemaElement{
			AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange,
		})
	}
	return types.GlobalSecondaryIndex{
		IndexName:  aws.String(indexName),
		KeySchema:  ks,
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func createTable(ctx context.Context, client *dynamodb.Client, input *dynamodb.CreateTableInput, log logrus.FieldLogger) {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		// ResourceInUseException means the table already exists.
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			log.WithError(err).WithField("table", *input.TableName).Warn("could not create table")
		}
		return
	}
	log.WithField("table", *input.TableName).Info("created table")
}
