package dynamodb

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"snippets-backend/domain/core/entities/fixtures"
	"snippets-backend/domain/core/valueobjects"
	"snippets-backend/pkg/common"
	pkgerrors "snippets-backend/pkg/errors"
)

// fakeClient keeps items in memory. Query honours the partition and the
// NODE# prefix but ignores filter expressions.
type fakeClient struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	counters map[string]int
	pageSize int
	queries  []*dynamodb.QueryInput
	err      error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		items:    make(map[string]map[string]types.AttributeValue),
		counters: make(map[string]int),
	}
}

func attrS(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func itemKey(key map[string]types.AttributeValue) string {
	return attrS(key["PK"]) + "|" + attrS(key["SK"])
}

func (f *fakeClient) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeClient) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.items[itemKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeClient) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	k := itemKey(in.Key)
	if attrS(in.Key["SK"]) == counterSK {
		f.counters[k]++
		return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{
			"Value": &types.AttributeValueMemberN{Value: strconv.Itoa(f.counters[k])},
		}}, nil
	}

	item, ok := f.items[k]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: stringPtr("The conditional request failed")}
	}
	// the only item update is a move; the destination is the value that is a node id
	for _, v := range in.ExpressionAttributeValues {
		if _, err := valueobjects.NewRemoteIDFromString(attrS(v)); err == nil {
			item["ParentID"] = v
		}
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeClient) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	delete(f.items, itemKey(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeClient) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, in)
	if f.err != nil {
		return nil, f.err
	}

	var pk string
	for _, v := range in.ExpressionAttributeValues {
		if s := attrS(v); strings.HasPrefix(s, "USER#") {
			pk = s
		}
	}

	var keys []string
	for k := range f.items {
		if strings.HasPrefix(k, pk+"|"+nodeSKPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ExclusiveStartKey != nil {
		last := itemKey(in.ExclusiveStartKey)
		start = sort.SearchStrings(keys, last) + 1
	}
	end := len(keys)
	if f.pageSize > 0 && start+f.pageSize < end {
		end = start + f.pageSize
	}

	out := &dynamodb.QueryOutput{}
	for _, k := range keys[start:end] {
		out.Items = append(out.Items, f.items[k])
	}
	if end < len(keys) {
		last := f.items[keys[end-1]]
		out.LastEvaluatedKey = map[string]types.AttributeValue{"PK": last["PK"], "SK": last["SK"]}
	}
	return out, nil
}

func stringPtr(s string) *string { return &s }

var remoteNS = valueobjects.NewNamespace(valueobjects.RemoteID("0"), 0)

func newStore(client Client) *NodeStore {
	s := NewNodeStore(client, "snippets", remoteNS, zap.NewNop())
	s.now = func() time.Time { return fixtures.FixedTime }
	return s
}

func userCtx(id string) context.Context {
	return common.WithUserID(context.Background(), id)
}

func TestItemMapping(t *testing.T) {
	node := fixtures.Remote("42").
		WithParent("7").
		WithTitle("Email sign-off").
		WithBody("Best,\nSam").
		WithColor("purple").
		WithOrder(1.5).
		Build()

	item := toItem("USER#u1", node, fixtures.FixedTime)
	assert.Equal(t, "USER#u1", item.PK)
	assert.Equal(t, "NODE#42", item.SK)
	assert.Equal(t, entityTypeNode, item.EntityType)

	av, err := attributevalue.MarshalMap(item)
	require.NoError(t, err)

	var decoded nodeItem
	require.NoError(t, attributevalue.UnmarshalMap(av, &decoded))
	assert.Equal(t, node.Attributes(), fromItem(decoded).Attributes())
}

func TestItemMapping_TopLevelOmitsParent(t *testing.T) {
	av, err := attributevalue.MarshalMap(toItem("USER#u1", fixtures.Remote("3").Build(), fixtures.FixedTime))
	require.NoError(t, err)

	_, ok := av["ParentID"]
	assert.False(t, ok)
}

func TestNodeStore_RequiresUser(t *testing.T) {
	store := newStore(newFakeClient())
	ctx := context.Background()

	_, err := store.ListAll(ctx)
	assert.ErrorIs(t, err, pkgerrors.ErrAuthenticationRequired)

	_, err = store.NextID(ctx)
	assert.ErrorIs(t, err, pkgerrors.ErrAuthenticationRequired)
}

func TestNodeStore_SaveGetDelete(t *testing.T) {
	store := newStore(newFakeClient())
	ctx := userCtx("u1")

	node := fixtures.Remote("5").WithParent("2").Build().WithProvenance(valueobjects.ProvenanceRemote)
	saved, err := store.Save(ctx, node)
	require.NoError(t, err)
	assert.Equal(t, valueobjects.Provenance(""), saved.Provenance())

	got, err := store.GetOne(ctx, "5")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2", got.ParentKey())

	other, err := store.GetOne(userCtx("u2"), "5")
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, store.Delete(ctx, "5"))
	got, err = store.GetOne(ctx, "5")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNodeStore_ListAllPaginatesInIDOrder(t *testing.T) {
	client := newFakeClient()
	client.pageSize = 2
	store := newStore(client)
	ctx := userCtx("u1")

	for _, id := range []string{"10", "2", "1", "33", "4"} {
		_, err := store.Save(ctx, fixtures.Remote(id).Build())
		require.NoError(t, err)
	}
	_, err := store.Save(userCtx("u2"), fixtures.Remote("7").Build())
	require.NoError(t, err)

	nodes, err := store.ListAll(ctx)
	require.NoError(t, err)

	var got []string
	for _, n := range nodes {
		got = append(got, n.Key())
	}
	assert.Equal(t, []string{"1", "2", "4", "10", "33"}, got)
	assert.Len(t, client.queries, 3)
}

func TestNodeStore_ListChildrenFilters(t *testing.T) {
	client := newFakeClient()
	store := newStore(client)
	ctx := userCtx("u1")

	parent := valueobjects.RemoteID("12")
	_, err := store.ListChildren(ctx, &parent)
	require.NoError(t, err)
	_, err = store.ListChildren(ctx, nil)
	require.NoError(t, err)

	require.Len(t, client.queries, 2)
	assert.NotNil(t, client.queries[0].FilterExpression)
	assert.Contains(t, *client.queries[1].FilterExpression, "attribute_not_exists")

	var values []string
	for _, v := range client.queries[0].ExpressionAttributeValues {
		values = append(values, attrS(v))
	}
	assert.Contains(t, values, "12")
}

func TestNodeStore_Move(t *testing.T) {
	client := newFakeClient()
	store := newStore(client)
	ctx := userCtx("u1")

	_, err := store.Save(ctx, fixtures.Remote("5").WithParent("2").Build())
	require.NoError(t, err)

	require.NoError(t, store.Move(ctx, "5", "9"))
	got, err := store.GetOne(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "9", got.ParentKey())

	// missing node fails the condition and is ignored
	assert.NoError(t, store.Move(ctx, "404", "9"))
}

func TestNodeStore_NextID(t *testing.T) {
	store := newStore(newFakeClient())

	first, err := store.NextID(userCtx("u1"))
	require.NoError(t, err)
	second, err := store.NextID(userCtx("u1"))
	require.NoError(t, err)
	other, err := store.NextID(userCtx("u2"))
	require.NoError(t, err)

	assert.Equal(t, valueobjects.RemoteID("1"), first)
	assert.Equal(t, valueobjects.RemoteID("2"), second)
	assert.Equal(t, valueobjects.RemoteID("1"), other)
}

func TestClassify(t *testing.T) {
	throttled := classify("list_all", &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"})
	assert.True(t, pkgerrors.IsSourceUnavailable(throttled))

	other := classify("get", &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "no table"})
	assert.True(t, pkgerrors.IsType(other, pkgerrors.ErrorTypeDatabase))

	assert.ErrorIs(t, classify("get", context.Canceled), context.Canceled)
}

func TestNodeStore_ErrorsAreClassified(t *testing.T) {
	client := newFakeClient()
	client.err = &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException"}
	store := newStore(client)

	_, err := store.ListAll(userCtx("u1"))
	assert.True(t, pkgerrors.IsSourceUnavailable(err))

	_, err = store.Save(userCtx("u1"), fixtures.Remote("1").Build())
	assert.True(t, pkgerrors.IsSourceUnavailable(err))
}
