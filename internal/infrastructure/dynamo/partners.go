package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/duetapp/duet-api/internal/domain"
)

// PartnerRepo provides typed DynamoDB operations for the partners table.
// PK: couple_id, SK: slot ("partner_a" | "partner_b").
type PartnerRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewPartnerRepo(client *dynamodb.Client, tableName string) *PartnerRepo {
	return &PartnerRepo{client: client, tableName: tableName}
}

func (r *PartnerRepo) Put(ctx context.Context, p *domain.Partner) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal partner: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *PartnerRepo) Get(ctx context.Context, coupleID, slot string) (*domain.Partner, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("couple_id", coupleID, "slot", slot),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("partner not found: %w", domain.ErrNotFound)
	}
	var p domain.Partner
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByEmail looks up a partner via the email-index GSI.
func (r *PartnerRepo) GetByEmail(ctx context.Context, email string) (*domain.Partner, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("email-index"),
		KeyConditionExpression:    aws.String("email = :e"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":e": &types.AttributeValueMemberS{Value: email}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("partner not found: %w", domain.ErrNotFound)
	}
	var p domain.Partner
	if err := attributevalue.UnmarshalMap(out.Items[0], &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkVerified sets the slot's verified flag. The write is idempotent — the
// flag is monotonic, so re-verifying an already-verified slot just rewrites
// true. Returns the updated partner (read-after-write via ALL_NEW).
func (r *PartnerRepo) MarkVerified(ctx context.Context, coupleID, slot string) (*domain.Partner, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 compositeKey("couple_id", coupleID, "slot", slot),
		UpdateExpression:    aws.String("SET verified = :t, verified_at = if_not_exists(verified_at, :now), updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(couple_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":   &types.AttributeValueMemberBOOL{Value: true},
			":now": &types.AttributeValueMemberS{Value: now},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, err
	}
	var p domain.Partner
	if err := attributevalue.UnmarshalMap(out.Attributes, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PartnerRepo) Update(ctx context.Context, coupleID, slot string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       compositeKey("couple_id", coupleID, "slot", slot),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}
