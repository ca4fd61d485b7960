package video

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Compile-time check that DynamoDBRepository implements Repository.
var _ Repository = (*DynamoDBRepository)(nil)

// DynamoDBAPI is the subset of *dynamodb.Client used by DynamoDBRepository.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoDBRepository stores videos in a DynamoDB table keyed by "id".
type DynamoDBRepository struct {
	client    DynamoDBAPI
	tableName string
}

// NewDynamoDBRepository creates a repository for tableName.
func NewDynamoDBRepository(client DynamoDBAPI, tableName string) (*DynamoDBRepository, error) {
	if tableName == "" {
		return nil, errors.New("DynamoDB table name cannot be empty")
	}
	return &DynamoDBRepository{client: client, tableName: tableName}, nil
}

// Claim writes v with a condition that the ID is not yet present.
func (r *DynamoDBRepository) Claim(ctx context.Context, v *Video) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal video: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrVideoAlreadyExists
		}
		return fmt.Errorf("claim video %s: %w", v.ID, err)
	}
	return nil
}

// Save writes v unconditionally.
func (r *DynamoDBRepository) Save(ctx context.Context, v *Video) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal video: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("save video %s: %w", v.ID, err)
	}
	return nil
}

// FindByID reads the video with the given ID.
func (r *DynamoDBRepository) FindByID(ctx context.Context, id string) (*Video, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrVideoNotFound
	}

	var v Video
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, fmt.Errorf("unmarshal video: %w", err)
	}
	return &v, nil
}

// List scans the whole table, following pagination.
func (r *DynamoDBRepository) List(ctx context.Context) ([]*Video, error) {
	var (
		videos   []*Video
		startKey map[string]types.AttributeValue
	)
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan videos: %w", err)
		}

		var page []*Video
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal videos: %w", err)
		}
		videos = append(videos, page...)

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sort.Slice(videos, func(i, j int) bool {
		return videos[i].CreatedAt.Before(videos[j].CreatedAt)
	})
	if videos == nil {
		videos = []*Video{}
	}
	return videos, nil
}
