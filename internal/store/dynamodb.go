package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"wondernav/pkg/logging"
)

// DynamoAPI is the subset of *dynamodb.Client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type DynamoConfig struct {
	Table          string
	KeyAttribute   string
	ValueAttribute string
}

// DynamoStore implements ChatStore on a DynamoDB table keyed by the request body.
type DynamoStore struct {
	client    DynamoAPI
	table     string
	keyAttr   string
	valueAttr string
}

// NewDynamoStore creates a DynamoDB-backed store. Empty config fields fall back to the defaults.
func NewDynamoStore(client DynamoAPI, cfg DynamoConfig) *DynamoStore {
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.KeyAttribute == "" {
		cfg.KeyAttribute = DefaultKeyAttribute
	}
	if cfg.ValueAttribute == "" {
		cfg.ValueAttribute = DefaultValueAttribute
	}
	return &DynamoStore{
		client:    client,
		table:     cfg.Table,
		keyAttr:   cfg.KeyAttribute,
		valueAttr: cfg.ValueAttribute,
	}
}

// NewDynamoClient loads the default AWS credential chain once.
// A non-empty endpoint points the client at DynamoDB Local or LocalStack.
func NewDynamoClient(ctx context.Context, endpoint string, optFns ...func(*config.LoadOptions) error) (*dynamodb.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func (s *DynamoStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			s.keyAttr: &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return "", false, &LookupError{Backend: "dynamodb", Err: err}
	}

	if resp.Item == nil {
		return "", false, nil
	}

	attr, ok := resp.Item[s.valueAttr]
	if !ok {
		logging.L(ctx).Warn("chat_record_malformed",
			zap.String("table", s.table),
			zap.String("key", key),
			zap.String("reason", "value attribute missing"),
		)
		return "", false, nil
	}

	output, ok := attr.(*types.AttributeValueMemberS)
	if !ok {
		logging.L(ctx).Warn("chat_record_malformed",
			zap.String("table", s.table),
			zap.String("key", key),
			zap.String("reason", fmt.Sprintf("value attribute has type %T", attr)),
		)
		return "", false, nil
	}

	return output.Value, true, nil
}

// Put writes a two-attribute item. No condition expression: concurrent writers race and the last one wins.
func (s *DynamoStore) Put(ctx context.Context, key, value string) error {
	item, err := attributevalue.MarshalMap(map[string]string{
		s.keyAttr:   key,
		s.valueAttr: value,
	})
	if err != nil {
		return &WriteError{Backend: "dynamodb", Err: fmt.Errorf("marshal item: %w", err)}
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return &WriteError{Backend: "dynamodb", Err: err}
	}

	return nil
}
