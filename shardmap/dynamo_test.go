package shardmap

import (
	"context"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo 内存实现，只支持 shard_key 哈希键与 attribute_not_exists 条件
type fakeDynamo struct {
	mu      sync.Mutex
	tables  map[string]map[string]map[string]types.AttributeValue
	creates int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{tables: make(map[string]map[string]map[string]types.AttributeValue)}
}

func hashKey(item map[string]types.AttributeValue) string {
	if v, ok := item["shard_key"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table, ok := f.tables[aws.ToString(in.TableName)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found")}
	}
	key := hashKey(in.Item)
	if _, exists := table[key]; exists && aws.ToString(in.ConditionExpression) == "attribute_not_exists(shard_key)" {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("conditional request failed")}
	}
	table[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table, ok := f.tables[aws.ToString(in.TableName)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found")}
	}
	return &dynamodb.GetItemOutput{Item: table[hashKey(in.Key)]}, nil
}

func (f *fakeDynamo) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.TableName)
	if _, ok := f.tables[name]; ok {
		return nil, &types.ResourceInUseException{Message: aws.String("table exists")}
	}
	f.tables[name] = make(map[string]map[string]types.AttributeValue)
	f.creates++
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeDynamo) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tables[aws.ToString(in.TableName)]; !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found")}
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   in.TableName,
		TableStatus: types.TableStatusActive,
	}}, nil
}

func TestDynamoStore(t *testing.T) {
	client := newFakeDynamo()
	store, err := NewDynamoStore(client, WithTable("shard_mappings_test"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.Migrate(context.Background()))
	assert.Equal(t, 1, client.creates)

	runStoreContract(t, store)
}

func TestDynamoStoreItemLayout(t *testing.T) {
	client := newFakeDynamo()
	store, err := NewDynamoStore(client)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.Record(context.Background(), "u-1", "shard_a"))

	item := client.tables[DefaultTable]["u-1"]
	require.NotNil(t, item)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "shard_a"}, item["shard"])
}

func TestDynamoStoreMissingTable(t *testing.T) {
	store, err := NewDynamoStore(newFakeDynamo())
	require.NoError(t, err)
	err = store.Record(context.Background(), "u-1", "shard_a")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateKey)
}
