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
	"github.com/duetapp/duet-api/internal/domain"
)

// CoupleRepo provides typed DynamoDB operations for the couples table.
type CoupleRepo struct {
	client        *dynamodb.Client
	tableName     string
	partnersTable string
}

func NewCoupleRepo(client *dynamodb.Client, tableName, partnersTable string) *CoupleRepo {
	return &CoupleRepo{client: client, tableName: tableName, partnersTable: partnersTable}
}

func (r *CoupleRepo) Put(ctx context.Context, c *domain.Couple) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal couple: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *CoupleRepo) Get(ctx context.Context, coupleID string) (*domain.Couple, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("couple_id", coupleID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("couple not found: %w", domain.ErrNotFound)
	}
	var c domain.Couple
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CoupleRepo) Update(ctx context.Context, coupleID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("couple_id", coupleID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// MarkExpired flips a still-pending couple to expired. A no-op race loser is
// fine here; the condition only prevents clobbering a completed registration.
func (r *CoupleRepo) MarkExpired(ctx context.Context, coupleID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey("couple_id", coupleID),
		UpdateExpression:         aws.String("SET #st = :expired, updated_at = :now"),
		ConditionExpression:      aws.String("#st = :pending"),
		ExpressionAttributeNames: map[string]string{"#st": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expired": &types.AttributeValueMemberS{Value: string(domain.CoupleStatusExpired)},
			":pending": &types.AttributeValueMemberS{Value: string(domain.CoupleStatusPending)},
			":now":     &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return nil
	}
	return err
}

// CompleteActivation is the completion gate's atomic transition: flip the
// couple from pending to completed and write both partners' credentials in a
// single transaction. Each leg carries its own condition so a racing second
// submission, or a slot that lost its verified flag, cancels the whole
// transaction with no partial writes.
func (r *CoupleRepo) CompleteActivation(ctx context.Context, coupleID string, credA, credB domain.PartnerCredential) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.client.TransactWriteItems(ctx, r.completeActivationInput(coupleID, credA, credB, now))
	if err == nil {
		return nil
	}

	// Map the cancelled leg back to a workflow outcome. Reasons line up with
	// the transact items: [0] couple status guard, [1]/[2] partner verified
	// guards.
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for i, reason := range tce.CancellationReasons {
			if reason.Code == nil || *reason.Code != "ConditionalCheckFailed" {
				continue
			}
			switch i {
			case 0:
				return fmt.Errorf("registration is no longer pending: %w", domain.ErrAlreadyCompleted)
			case 1:
				return fmt.Errorf("partner A is not verified: %w", domain.ErrVerificationIncomplete)
			default:
				return fmt.Errorf("partner B is not verified: %w", domain.ErrVerificationIncomplete)
			}
		}
	}
	return err
}

// completeActivationInput builds the completion transaction. All three legs
// REMOVE pending_expires_at: that attribute is the DynamoDB TTL on both
// tables, and a completed registration must never be swept by the expiry
// sweeper.
func (r *CoupleRepo) completeActivationInput(coupleID string, credA, credB domain.PartnerCredential, now string) *dynamodb.TransactWriteItemsInput {
	coupleUpdate := types.TransactWriteItem{
		Update: &types.Update{
			TableName:                aws.String(r.tableName),
			Key:                      strKey("couple_id", coupleID),
			UpdateExpression:         aws.String("SET #st = :completed, updated_at = :now REMOVE pending_expires_at"),
			ConditionExpression:      aws.String("attribute_exists(couple_id) AND #st = :pending"),
			ExpressionAttributeNames: map[string]string{"#st": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":completed": &types.AttributeValueMemberS{Value: string(domain.CoupleStatusCompleted)},
				":pending":   &types.AttributeValueMemberS{Value: string(domain.CoupleStatusPending)},
				":now":       &types.AttributeValueMemberS{Value: now},
			},
		},
	}

	partnerUpdate := func(slot string, cred domain.PartnerCredential) types.TransactWriteItem {
		return types.TransactWriteItem{
			Update: &types.Update{
				TableName:           aws.String(r.partnersTable),
				Key:                 compositeKey("couple_id", coupleID, "slot", slot),
				UpdateExpression:    aws.String("SET display_name = :dn, password_hash = :ph, updated_at = :now REMOVE pending_expires_at"),
				ConditionExpression: aws.String("verified = :true"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":dn":   &types.AttributeValueMemberS{Value: cred.DisplayName},
					":ph":   &types.AttributeValueMemberS{Value: cred.PasswordHash},
					":now":  &types.AttributeValueMemberS{Value: now},
					":true": &types.AttributeValueMemberBOOL{Value: true},
				},
			},
		}
	}

	return &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			coupleUpdate,
			partnerUpdate(domain.SlotA, credA),
			partnerUpdate(domain.SlotB, credB),
		},
	}
}
