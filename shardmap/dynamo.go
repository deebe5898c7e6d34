package shardmap

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ceyewan/shardkit/clog"
	"github.com/ceyewan/shardkit/xerrors"
)

// DynamoAPI DynamoStore 使用的 DynamoDB 接口子集，*dynamodb.Client 满足该接口
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoConfig DynamoDB 客户端配置
type DynamoConfig struct {
	Table string `mapstructure:"table"`
	// Region 为空时使用 AWS 默认配置链
	Region string `mapstructure:"region"`
	// Endpoint 指向 DynamoDB Local 等兼容服务
	Endpoint string `mapstructure:"endpoint"`
}

// NewDynamoClient 通过 AWS 默认配置链创建 DynamoDB 客户端
func NewDynamoClient(ctx context.Context, cfg DynamoConfig) (*dynamodb.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, xerrors.Wrap(err, "shardmap: load aws config")
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

type dynamoItem struct {
	ShardKey string `dynamodbav:"shard_key"`
	Shard    string `dynamodbav:"shard"`
}

// DynamoStore 以 attribute_not_exists(shard_key) 条件写入映射
type DynamoStore struct {
	client DynamoAPI
	table  string
	logger clog.Logger
}

// NewDynamoStore 创建 DynamoDB 映射存储
func NewDynamoStore(client DynamoAPI, opts ...Option) (*DynamoStore, error) {
	if client == nil {
		return nil, xerrors.Wrap(ErrInvalidConfig, "dynamodb client is required")
	}
	o := applyOptions("dynamodb", opts...)
	if o.table == "" {
		o.table = DefaultTable
	}
	return &DynamoStore{client: client, table: o.table, logger: o.logger.With(clog.String("table", o.table))}, nil
}

// Migrate 表不存在时创建映射表并等待其可用
func (s *DynamoStore) Migrate(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return xerrors.Wrap(err, "shardmap: describe table")
	}

	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("shard_key"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("shard_key"), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return xerrors.Wrapf(err, "shardmap: create table %s", s.table)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}, 2*time.Minute); err != nil {
		return xerrors.Wrapf(err, "shardmap: wait for table %s", s.table)
	}
	s.logger.InfoContext(ctx, "mapping table created")
	return nil
}

func (s *DynamoStore) Record(ctx context.Context, shardKey, shard string) error {
	if err := validateMapping(shardKey, shard); err != nil {
		return err
	}
	item, err := attributevalue.MarshalMap(dynamoItem{ShardKey: shardKey, Shard: shard})
	if err != nil {
		return xerrors.Wrap(err, "shardmap: marshal mapping")
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(shard_key)"),
	})
	if err == nil {
		return nil
	}
	var conflict *types.ConditionalCheckFailedException
	if errors.As(err, &conflict) {
		return xerrors.Wrapf(ErrDuplicateKey, "key %q", shardKey)
	}
	s.logger.ErrorContext(ctx, "record mapping failed", clog.String("shard_key", shardKey), clog.Error(err))
	return xerrors.Wrap(err, "shardmap: dynamodb put item")
}

func (s *DynamoStore) Lookup(ctx context.Context, shardKey string) (string, error) {
	if err := validateKey(shardKey); err != nil {
		return "", err
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"shard_key": &types.AttributeValueMemberS{Value: shardKey},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrap(err, "shardmap: dynamodb get item")
	}
	if out.Item == nil {
		return "", xerrors.Wrapf(ErrNotFound, "key %q", shardKey)
	}
	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return "", xerrors.Wrap(err, "shardmap: unmarshal mapping")
	}
	return item.Shard, nil
}
