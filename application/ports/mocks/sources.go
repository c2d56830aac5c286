// Package mocks provides testify mocks for the application ports.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/valueobjects"
	"snippets-backend/domain/events"
)

// MockNodeStore is a mock implementation of ports.NodeStore
type MockNodeStore[K valueobjects.Key] struct {
	mock.Mock
}

func (m *MockNodeStore[K]) ListChildren(ctx context.Context, parentID *K) ([]entities.Node[K], error) {
	args := m.Called(ctx, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Node[K]), args.Error(1)
}

func (m *MockNodeStore[K]) ListAll(ctx context.Context) ([]entities.Node[K], error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Node[K]), args.Error(1)
}

func (m *MockNodeStore[K]) GetOne(ctx context.Context, id K) (*entities.Node[K], error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Node[K]), args.Error(1)
}

func (m *MockNodeStore[K]) Save(ctx context.Context, node entities.Node[K]) (entities.Node[K], error) {
	args := m.Called(ctx, node)
	return args.Get(0).(entities.Node[K]), args.Error(1)
}

func (m *MockNodeStore[K]) Delete(ctx context.Context, id K) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockNodeStore[K]) Move(ctx context.Context, nodeID, destinationGroupID K) error {
	args := m.Called(ctx, nodeID, destinationGroupID)
	return args.Error(0)
}

func (m *MockNodeStore[K]) NextID(ctx context.Context) (K, error) {
	args := m.Called(ctx)
	return args.Get(0).(K), args.Error(1)
}

// MockEventPublisher is a mock implementation of ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}
