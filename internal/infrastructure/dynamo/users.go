package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-bff-auth/internal/domain"
)

// User attribute names used in update expressions.
const (
	FieldName            = "name"
	FieldUsername        = "username"
	FieldAvatar          = "avatar"
	FieldEmailVerified   = "is_email_verified"
	FieldProfileComplete = "is_profile_complete"
	FieldProviders       = "providers"
	FieldSignInProvider  = "sign_in_provider"
	FieldGoogleSub       = "google_sub"
	FieldAppleSub        = "apple_sub"
	fieldUpdatedAt       = "updated_at"
	uniqueKeyAttr        = "unique_key"
	uniqueEmailPrefix    = "email#"
	uniqueUsernamePrefix = "username#"
)

// uniqueClaim is an item of the user_uniques table. Its presence reserves an
// email or username for one user.
type uniqueClaim struct {
	UniqueKey string `dynamodbav:"unique_key"`
	UserID    string `dynamodbav:"user_id"`
}

// UserRepo provides typed DynamoDB operations for the users table. Email and
// username uniqueness is enforced through claims in the uniques table, written
// in the same transaction as the user item.
type UserRepo struct {
	client      API
	tableName   string
	uniqueTable string
	now         func() time.Time
}

func NewUserRepo(client API, tableName, uniqueTable string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName, uniqueTable: uniqueTable, now: time.Now}
}

// Create writes the user together with its email and username claims.
// A taken email or username surfaces as domain.ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	items := []types.TransactWriteItem{
		{Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(user_id)"),
		}},
	}
	claimPut, err := r.claimPut(uniqueEmailPrefix+u.Email, u.UserID)
	if err != nil {
		return err
	}
	items = append(items, claimPut)
	if u.Username != "" {
		claimPut, err := r.claimPut(uniqueUsernamePrefix+usernameKey(u.Username), u.UserID)
		if err != nil {
			return err
		}
		items = append(items, claimPut)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	return mapWriteErr("create user", err)
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.queryGSI(ctx, "username-index", "username", username)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.queryGSI(ctx, "email-index", "email", email)
}

func (r *UserRepo) GetByGoogleSub(ctx context.Context, sub string) (*domain.User, error) {
	return r.queryGSI(ctx, "google_sub-index", FieldGoogleSub, sub)
}

func (r *UserRepo) GetByAppleSub(ctx context.Context, sub string) (*domain.User, error) {
	return r.queryGSI(ctx, "apple_sub-index", FieldAppleSub, sub)
}

// GetByIdentity finds the record an unbound identity refers to: by provider
// subject first, then by email only when the email is verified.
func (r *UserRepo) GetByIdentity(ctx context.Context, id domain.Identity) (*domain.User, error) {
	var bySub func(context.Context, string) (*domain.User, error)
	switch id.Provider {
	case domain.ProviderGoogle:
		bySub = r.GetByGoogleSub
	case domain.ProviderApple:
		bySub = r.GetByAppleSub
	}
	if bySub != nil && id.Subject != "" {
		u, err := bySub(ctx, id.Subject)
		if !errors.Is(err, domain.ErrNotFound) {
			return u, err
		}
	}
	if !id.EmailVerified || id.Email == "" {
		return nil, fmt.Errorf("user by unverified identity: %w", domain.ErrNotFound)
	}
	return r.GetByEmail(ctx, id.Email)
}

// UsernameTaken checks the claim table, which is case-insensitive and
// consistent, unlike the username GSI.
func (r *UserRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.uniqueTable),
		Key:            strKey(uniqueKeyAttr, uniqueUsernamePrefix+usernameKey(username)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("get username claim: %w", err)
	}
	return out.Item != nil, nil
}

// Update sets the given attributes and bumps updated_at.
func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]any) error {
	upd, err := r.updateItem(userID, updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 upd.TableName,
		Key:                       upd.Key,
		UpdateExpression:          upd.UpdateExpression,
		ConditionExpression:       upd.ConditionExpression,
		ExpressionAttributeNames:  upd.ExpressionAttributeNames,
		ExpressionAttributeValues: upd.ExpressionAttributeValues,
	})
	if conditionFailed(err) {
		return fmt.Errorf("update user %s: %w", userID, domain.ErrNotFound)
	}
	return mapWriteErr("update user", err)
}

// UpdateWithUsername applies updates and moves the username claim from
// oldUsername to newUsername in one transaction.
func (r *UserRepo) UpdateWithUsername(ctx context.Context, userID, oldUsername, newUsername string, updates map[string]any) error {
	if strings.EqualFold(oldUsername, newUsername) {
		updates[FieldUsername] = newUsername
		return r.Update(ctx, userID, updates)
	}
	updates[FieldUsername] = newUsername
	upd, err := r.updateItem(userID, updates)
	if err != nil {
		return err
	}
	claimPut, err := r.claimPut(uniqueUsernamePrefix+usernameKey(newUsername), userID)
	if err != nil {
		return err
	}
	items := []types.TransactWriteItem{{Update: upd}, claimPut}
	if oldUsername != "" {
		items = append(items, types.TransactWriteItem{Delete: &types.Delete{
			TableName:           aws.String(r.uniqueTable),
			Key:                 strKey(uniqueKeyAttr, uniqueUsernamePrefix+usernameKey(oldUsername)),
			ConditionExpression: aws.String("user_id = :uid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": &types.AttributeValueMemberS{Value: userID},
			},
		}})
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if canceledAt(err, 0) {
		return fmt.Errorf("update user %s: %w", userID, domain.ErrNotFound)
	}
	return mapWriteErr("update username", err)
}

func (r *UserRepo) updateItem(userID string, updates map[string]any) (*types.Update, error) {
	updates[fieldUpdatedAt] = r.now().UTC()
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	ue.Names["#pk"] = "user_id"
	return &types.Update{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	}, nil
}

func (r *UserRepo) claimPut(key, userID string) (types.TransactWriteItem, error) {
	item, err := attributevalue.MarshalMap(uniqueClaim{UniqueKey: key, UserID: userID})
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("marshal claim: %w", err)
	}
	return types.TransactWriteItem{Put: &types.Put{
		TableName:           aws.String(r.uniqueTable),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(unique_key)"),
	}}, nil
}

func (r *UserRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.User, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", index, err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user by %s: %w", attr, domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

func usernameKey(username string) string {
	return strings.ToLower(username)
}
