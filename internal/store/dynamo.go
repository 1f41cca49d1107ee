package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

// Single-table key layout: every record of a project shares PK.
const (
	pkPrefix = "PROJECT#"
	skMeta   = "META"
	skSave   = "SAVE#"
)

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoProjectStore implements ProjectStore on a DynamoDB table with
// string keys PK and SK.
type DynamoProjectStore struct {
	client    DynamoAPI
	tableName string
	// retention sets the expiresAt TTL attribute when positive.
	retention time.Duration
}

var _ ProjectStore = (*DynamoProjectStore)(nil)

// NewDynamoProjectStore creates a store for tableName. A positive retention
// makes DynamoDB expire records that long after their last write.
func NewDynamoProjectStore(client DynamoAPI, tableName string, retention time.Duration) *DynamoProjectStore {
	return &DynamoProjectStore{client: client, tableName: tableName, retention: retention}
}

func projectPK(projectID string) string {
	return pkPrefix + projectID
}

// saveSK sorts lexically in save order.
func saveSK(savedAtMillis int64) string {
	return fmt.Sprintf("%s%013d", skSave, savedAtMillis)
}

func (s *DynamoProjectStore) putItem(ctx context.Context, pk, sk string, data any) error {
	item, err := attributevalue.MarshalMap(data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: sk}
	if s.retention > 0 {
		expires := time.Now().Add(s.retention).Unix()
		item["expiresAt"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expires, 10)}
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem PK=%s SK=%s: %w", pk, sk, err)
	}
	return nil
}

// getItem returns false if the item does not exist.
func (s *DynamoProjectStore) getItem(ctx context.Context, pk, sk string, out any) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return false, fmt.Errorf("GetItem PK=%s SK=%s: %w", pk, sk, err)
	}
	if result.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal PK=%s SK=%s: %w", pk, sk, err)
	}
	return true, nil
}

func (s *DynamoProjectStore) PutProject(ctx context.Context, project *Project) error {
	if project.CreatedAt == 0 {
		project.CreatedAt = time.Now().Unix()
	}
	if err := s.putItem(ctx, projectPK(project.ID), skMeta, project); err != nil {
		return fmt.Errorf("put project %s: %w", project.ID, err)
	}
	log.Debug().Str("projectId", project.ID).Int("saveCount", project.SaveCount).Msg("Project persisted to DynamoDB")
	return nil
}

func (s *DynamoProjectStore) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var project Project
	found, err := s.getItem(ctx, projectPK(projectID), skMeta, &project)
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", projectID, err)
	}
	if !found {
		return nil, nil
	}
	project.ID = projectID
	return &project, nil
}

func (s *DynamoProjectStore) PutSave(ctx context.Context, projectID string, save *SavedVersion) error {
	if err := s.putItem(ctx, projectPK(projectID), saveSK(save.SavedAt), save); err != nil {
		return fmt.Errorf("put save %s/%s: %w", projectID, save.Key, err)
	}
	log.Debug().Str("projectId", projectID).Str("key", save.Key).Int("versionIndex", save.VersionIndex).Msg("Save recorded in DynamoDB")
	return nil
}

func (s *DynamoProjectStore) ListSaves(ctx context.Context, projectID string) ([]*SavedVersion, error) {
	pk := projectPK(projectID)
	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :skPrefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":       &types.AttributeValueMemberS{Value: pk},
			":skPrefix": &types.AttributeValueMemberS{Value: skSave},
		},
	}

	var saves []*SavedVersion
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("Query PK=%s SK prefix=%s: %w", pk, skSave, err)
		}
		for _, item := range result.Items {
			var save SavedVersion
			if err := attributevalue.UnmarshalMap(item, &save); err != nil {
				return nil, fmt.Errorf("unmarshal save of %s: %w", projectID, err)
			}
			save.ProjectID = projectID
			saves = append(saves, &save)
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	sort.SliceStable(saves, func(i, j int) bool { return saves[i].SavedAt < saves[j].SavedAt })
	return saves, nil
}
