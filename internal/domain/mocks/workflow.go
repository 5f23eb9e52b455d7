package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	domain "gooze.dev/pkg/ninjaturtles/internal/domain"
)

// MockWorkflow is a mock type for the Workflow type.
type MockWorkflow struct {
	mock.Mock
}

// MockWorkflow_Expecter records typed expectations.
type MockWorkflow_Expecter struct {
	mock *mock.Mock
}

// EXPECT returns the typed expecter.
func (_m *MockWorkflow) EXPECT() *MockWorkflow_Expecter {
	return &MockWorkflow_Expecter{mock: &_m.Mock}
}

// Estimate provides a mock function with given fields: ctx, args.
func (_m *MockWorkflow) Estimate(ctx context.Context, args domain.EstimateArgs) error {
	ret := _m.Called(ctx, args)

	if rf, ok := ret.Get(0).(func(context.Context, domain.EstimateArgs) error); ok {
		return rf(ctx, args)
	}

	return ret.Error(0)
}

// Estimate is a helper method to define mock.On call.
func (_e *MockWorkflow_Expecter) Estimate(ctx interface{}, args interface{}) *mock.Call {
	return _e.mock.On("Estimate", ctx, args)
}

// Merge provides a mock function with given fields: ctx, args.
func (_m *MockWorkflow) Merge(ctx context.Context, args domain.MergeArgs) error {
	ret := _m.Called(ctx, args)

	if rf, ok := ret.Get(0).(func(context.Context, domain.MergeArgs) error); ok {
		return rf(ctx, args)
	}

	return ret.Error(0)
}

// Merge is a helper method to define mock.On call.
func (_e *MockWorkflow_Expecter) Merge(ctx interface{}, args interface{}) *mock.Call {
	return _e.mock.On("Merge", ctx, args)
}

// Run provides a mock function with given fields: ctx, args.
func (_m *MockWorkflow) Run(ctx context.Context, args domain.RunArgs) error {
	ret := _m.Called(ctx, args)

	if rf, ok := ret.Get(0).(func(context.Context, domain.RunArgs) error); ok {
		return rf(ctx, args)
	}

	return ret.Error(0)
}

// Run is a helper method to define mock.On call.
func (_e *MockWorkflow_Expecter) Run(ctx interface{}, args interface{}) *mock.Call {
	return _e.mock.On("Run", ctx, args)
}

// View provides a mock function with given fields: ctx, args.
func (_m *MockWorkflow) View(ctx context.Context, args domain.ViewArgs) error {
	ret := _m.Called(ctx, args)

	if rf, ok := ret.Get(0).(func(context.Context, domain.ViewArgs) error); ok {
		return rf(ctx, args)
	}

	return ret.Error(0)
}

// View is a helper method to define mock.On call.
func (_e *MockWorkflow_Expecter) View(ctx interface{}, args interface{}) *mock.Call {
	return _e.mock.On("View", ctx, args)
}

// NewMockWorkflow creates a new instance of MockWorkflow. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockWorkflow(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWorkflow {
	m := &MockWorkflow{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
