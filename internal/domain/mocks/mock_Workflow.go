// Package mocks holds testify mocks of the domain interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"moodlekit.dev/pkg/moodlekit/internal/domain"
)

// MockWorkflow is a mock type for the Workflow type.
type MockWorkflow struct {
	mock.Mock
}

// NewMockWorkflow creates a new instance of MockWorkflow. It also registers a testing
// interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockWorkflow(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWorkflow {
	mockWorkflow := &MockWorkflow{}
	mockWorkflow.Mock.Test(t)

	t.Cleanup(func() { mockWorkflow.AssertExpectations(t) })

	return mockWorkflow
}

// Extract provides a mock function with given fields: ctx, args.
func (_m *MockWorkflow) Extract(ctx context.Context, args domain.ExtractArgs) error {
	return _m.Called(ctx, args).Error(0)
}

// Compile provides a mock function with given fields: ctx, args.
func (_m *MockWorkflow) Compile(ctx context.Context, args domain.CompileArgs) error {
	return _m.Called(ctx, args).Error(0)
}

// List provides a mock function with given fields: ctx, args.
func (_m *MockWorkflow) List(ctx context.Context, args domain.ListArgs) error {
	return _m.Called(ctx, args).Error(0)
}

// Merge provides a mock function with given fields: ctx, args.
func (_m *MockWorkflow) Merge(ctx context.Context, args domain.MergeArgs) error {
	return _m.Called(ctx, args).Error(0)
}

// Discover provides a mock function with given fields: ctx, args.
func (_m *MockWorkflow) Discover(ctx context.Context, args domain.DiscoverArgs) error {
	return _m.Called(ctx, args).Error(0)
}

var _ domain.Workflow = (*MockWorkflow)(nil)
