package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/campus-push/internal/domain"
)

type AnnouncementRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAnnouncementRepo(client *dynamodb.Client, tableName string) *AnnouncementRepo {
	return &AnnouncementRepo{client: client, tableName: tableName}
}

// ListWithImageURL scans for announcements that still reference a remote image.
func (r *AnnouncementRepo) ListWithImageURL(ctx context.Context) ([]domain.Announcement, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		FilterExpression:         aws.String("attribute_exists(#u)"),
		ExpressionAttributeNames: map[string]string{"#u": fieldImageURL},
	})
	var out []domain.Announcement
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []domain.Announcement
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

// ReplaceImage stores the embedded image and drops the remote URL.
func (r *AnnouncementRepo) ReplaceImage(ctx context.Context, announcementID, imageBase64 string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldImageBase64: imageBase64}, fieldImageURL)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("announcement_id", announcementID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}
