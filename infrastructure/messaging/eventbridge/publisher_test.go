package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"snippets-backend/domain/core/valueobjects"
	"snippets-backend/domain/events"
)

type fakeClient struct {
	calls  []*eventbridge.PutEventsInput
	err    error
	failed int32
}

func (f *fakeClient) PutEvents(_ context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	out := &eventbridge.PutEventsOutput{FailedEntryCount: f.failed}
	for i := range in.Entries {
		entry := types.PutEventsResultEntry{EventId: aws.String("evt")}
		if int32(i) < f.failed {
			entry = types.PutEventsResultEntry{ErrorCode: aws.String("InternalFailure"), ErrorMessage: aws.String("boom")}
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

func savedEvents(n int) []events.DomainEvent {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]events.DomainEvent, 0, n)
	for i := 0; i < n; i++ {
		ref := valueobjects.NodeRef{Provenance: valueobjects.ProvenanceRemote, ID: "7"}
		out = append(out, events.NewNodeSaved(ref, "0", valueobjects.KindLeaf, "Greeting", "user-1", ts))
	}
	return out
}

func TestPublisher_BatchesByTen(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, "snippets-bus", zap.NewNop())

	require.NoError(t, p.Publish(context.Background(), savedEvents(23)))

	require.Len(t, client.calls, 3)
	assert.Len(t, client.calls[0].Entries, 10)
	assert.Len(t, client.calls[1].Entries, 10)
	assert.Len(t, client.calls[2].Entries, 3)
}

func TestPublisher_EntryShape(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, "snippets-bus", zap.NewNop())

	require.NoError(t, p.Publish(context.Background(), savedEvents(1)))

	entry := client.calls[0].Entries[0]
	assert.Equal(t, "snippets-bus", aws.ToString(entry.EventBusName))
	assert.Equal(t, events.SourceSnippets, aws.ToString(entry.Source))
	assert.Equal(t, events.EventTypeNodeSaved, aws.ToString(entry.DetailType))
	assert.Equal(t, []string{"snippet:remote:7"}, entry.Resources)

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, "Greeting", detail["title"])
	assert.Equal(t, "user-1", detail["user_id"])
}

func TestPublisher_NothingToSend(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, "snippets-bus", zap.NewNop())

	require.NoError(t, p.Publish(context.Background(), nil))
	assert.Empty(t, client.calls)
}

func TestPublisher_Errors(t *testing.T) {
	t.Run("client error stops at first batch", func(t *testing.T) {
		client := &fakeClient{err: errors.New("network down")}
		p := NewPublisher(client, "snippets-bus", zap.NewNop())

		err := p.Publish(context.Background(), savedEvents(15))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "network down")
		assert.Len(t, client.calls, 1)
	})

	t.Run("failed entries are reported", func(t *testing.T) {
		client := &fakeClient{failed: 2}
		p := NewPublisher(client, "snippets-bus", zap.NewNop())

		err := p.Publish(context.Background(), savedEvents(4))
		require.Error(t, err)
		assert.Equal(t, "2 events failed to publish", err.Error())
	})
}
