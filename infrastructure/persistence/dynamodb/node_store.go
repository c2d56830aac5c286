// Package dynamodb stores the remote snippet hierarchy in a single DynamoDB
// table, partitioned by user.
package dynamodb

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"snippets-backend/application/ports"
	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/valueobjects"
	"snippets-backend/pkg/common"
	pkgerrors "snippets-backend/pkg/errors"
)

// Client is the subset of the DynamoDB API the store uses
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

const (
	entityTypeNode = "NODE"
	nodeSKPrefix   = "NODE#"
	counterSK      = "COUNTER#NODE"
)

// nodeItem is the table item of one node
type nodeItem struct {
	PK         string  `dynamodbav:"PK"`
	SK         string  `dynamodbav:"SK"`
	EntityType string  `dynamodbav:"EntityType"`
	NodeID     string  `dynamodbav:"NodeID"`
	ParentID   *string `dynamodbav:"ParentID,omitempty"`
	Kind       string  `dynamodbav:"Kind"`
	Title      string  `dynamodbav:"Title"`
	Body       string  `dynamodbav:"Body"`
	ColorID    string  `dynamodbav:"ColorID"`
	OrderIndex float64 `dynamodbav:"OrderIndex"`
	CreatedAt  string  `dynamodbav:"CreatedAt"`
	UpdatedAt  string  `dynamodbav:"UpdatedAt"`
}

func userPK(userID string) string {
	return "USER#" + userID
}

func nodeSK(id valueobjects.RemoteID) string {
	return nodeSKPrefix + id.String()
}

// NodeStore is the remote store. Every call is scoped to the user in the
// context and fails with AuthenticationRequired when there is none.
type NodeStore struct {
	client    Client
	tableName string
	ns        valueobjects.Namespace[valueobjects.RemoteID]
	now       func() time.Time
	logger    *zap.Logger
}

var _ ports.RemoteStore = (*NodeStore)(nil)

// NewNodeStore creates the remote store on tableName
func NewNodeStore(client Client, tableName string, ns valueobjects.Namespace[valueobjects.RemoteID], logger *zap.Logger) *NodeStore {
	return &NodeStore{
		client:    client,
		tableName: tableName,
		ns:        ns,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *NodeStore) partition(ctx context.Context) (string, error) {
	userID, ok := common.GetUserID(ctx)
	if !ok {
		return "", pkgerrors.NewAuthenticationRequiredError()
	}
	return userPK(userID), nil
}

func (s *NodeStore) key(pk string, id valueobjects.RemoteID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: nodeSK(id)},
	}
}

func toItem(pk string, n entities.Node[valueobjects.RemoteID], updatedAt time.Time) nodeItem {
	item := nodeItem{
		PK:         pk,
		SK:         nodeSK(n.ID()),
		EntityType: entityTypeNode,
		NodeID:     n.ID().String(),
		Kind:       n.Kind().String(),
		Title:      n.Title(),
		Body:       n.Body(),
		ColorID:    string(n.ColorID()),
		OrderIndex: n.OrderIndex(),
		CreatedAt:  n.CreatedAt(),
		UpdatedAt:  updatedAt.UTC().Format(time.RFC3339),
	}
	if p, ok := n.ParentID(); ok {
		ps := p.String()
		item.ParentID = &ps
	}
	return item
}

func fromItem(item nodeItem) entities.Node[valueobjects.RemoteID] {
	attrs := entities.NodeAttributes[valueobjects.RemoteID]{
		ID:         valueobjects.RemoteID(item.NodeID),
		Kind:       valueobjects.Kind(item.Kind),
		Title:      item.Title,
		Body:       item.Body,
		ColorID:    valueobjects.ColorID(item.ColorID),
		OrderIndex: item.OrderIndex,
		CreatedAt:  item.CreatedAt,
	}
	if item.ParentID != nil {
		p := valueobjects.RemoteID(*item.ParentID)
		attrs.ParentID = &p
	}
	return entities.ReconstructNode(attrs)
}

// query runs a paginated query and returns the nodes in id order, which is
// the order the server assigned them
func (s *NodeStore) query(ctx context.Context, op string, pk string, filter *expression.ConditionBuilder) ([]entities.Node[valueobjects.RemoteID], error) {
	keyExpr := expression.Key("PK").Equal(expression.Value(pk)).
		And(expression.Key("SK").BeginsWith(nodeSKPrefix))
	builder := expression.NewBuilder().WithKeyCondition(keyExpr)
	if filter != nil {
		builder = builder.WithFilter(*filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var nodes []entities.Node[valueobjects.RemoteID]
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify(op, err)
		}
		for _, raw := range page.Items {
			var item nodeItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				s.logger.Warn("Failed to parse node item", zap.Error(err))
				continue
			}
			nodes = append(nodes, fromItem(item))
		}
	}

	slices.SortStableFunc(nodes, func(a, b entities.Node[valueobjects.RemoteID]) int {
		return cmp.Compare(seqOf(a.ID()), seqOf(b.ID()))
	})
	return nodes, nil
}

func seqOf(id valueobjects.RemoteID) uint64 {
	seq, err := id.Seq()
	if err != nil {
		return math.MaxUint64
	}
	return seq
}

func (s *NodeStore) ListChildren(ctx context.Context, parentID *valueobjects.RemoteID) ([]entities.Node[valueobjects.RemoteID], error) {
	pk, err := s.partition(ctx)
	if err != nil {
		return nil, err
	}

	var filter expression.ConditionBuilder
	if parentID == nil || s.ns.IsRoot(*parentID) {
		root := s.ns.Root().String()
		filter = expression.Or(
			expression.Name("ParentID").AttributeNotExists(),
			expression.Name("ParentID").Equal(expression.Value(root)),
			expression.Name("ParentID").Equal(expression.Value("")),
		).And(expression.Name("NodeID").NotEqual(expression.Value(root)))
	} else {
		filter = expression.Name("ParentID").Equal(expression.Value(parentID.String()))
	}
	return s.query(ctx, "list_children", pk, &filter)
}

func (s *NodeStore) ListAll(ctx context.Context) ([]entities.Node[valueobjects.RemoteID], error) {
	pk, err := s.partition(ctx)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, "list_all", pk, nil)
}

func (s *NodeStore) GetOne(ctx context.Context, id valueobjects.RemoteID) (*entities.Node[valueobjects.RemoteID], error) {
	pk, err := s.partition(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(pk, id),
	})
	if err != nil {
		return nil, classify("get", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item nodeItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to parse node %s: %w", id, err)
	}
	n := fromItem(item)
	return &n, nil
}

func (s *NodeStore) Save(ctx context.Context, node entities.Node[valueobjects.RemoteID]) (entities.Node[valueobjects.RemoteID], error) {
	pk, err := s.partition(ctx)
	if err != nil {
		return node, err
	}

	av, err := attributevalue.MarshalMap(toItem(pk, node, s.now()))
	if err != nil {
		return node, fmt.Errorf("failed to marshal node: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}); err != nil {
		return node, classify("save", err)
	}

	s.logger.Debug("Node saved", zap.String("node_id", node.ID().String()))
	return node.WithoutChildren().WithProvenance(""), nil
}

func (s *NodeStore) Delete(ctx context.Context, id valueobjects.RemoteID) error {
	pk, err := s.partition(ctx)
	if err != nil {
		return err
	}

	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(pk, id),
	}); err != nil {
		return classify("delete", err)
	}
	return nil
}

// Move re-parents an existing node. Moving a node that no longer exists is a
// no-op.
func (s *NodeStore) Move(ctx context.Context, nodeID, destinationGroupID valueobjects.RemoteID) error {
	pk, err := s.partition(ctx)
	if err != nil {
		return err
	}

	update := expression.
		Set(expression.Name("ParentID"), expression.Value(destinationGroupID.String())).
		Set(expression.Name("UpdatedAt"), expression.Value(s.now().UTC().Format(time.RFC3339)))
	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.Name("PK").AttributeExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       s.key(pk, nodeID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return nil
	}
	if err != nil {
		return classify("move", err)
	}
	return nil
}

// NextID increments the user's node counter and returns the new value
func (s *NodeStore) NextID(ctx context.Context) (valueobjects.RemoteID, error) {
	pk, err := s.partition(ctx)
	if err != nil {
		return "", err
	}

	expr, err := expression.NewBuilder().
		WithUpdate(expression.Add(expression.Name("Value"), expression.Value(1))).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build expression: %w", err)
	}

	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: counterSK},
		},
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return "", classify("next_id", err)
	}

	v, ok := result.Attributes["Value"].(*types.AttributeValueMemberN)
	if !ok {
		return "", fmt.Errorf("counter update returned no value")
	}
	seq, err := strconv.ParseUint(v.Value, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid counter value %q: %w", v.Value, err)
	}
	return valueobjects.NewRemoteID(seq), nil
}

// classify marks throttling as a retryable source failure and wraps every
// other API error as a database error
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ProvisionedThroughputExceededException", "ThrottlingException", "RequestLimitExceeded":
			return pkgerrors.NewSourceUnavailableError(string(valueobjects.ProvenanceRemote), err).
				WithDetail("operation", op).
				WithDetail("aws_code", apiErr.ErrorCode())
		}
	}
	return pkgerrors.NewDatabaseError(op, err)
}
