package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	adapter "gooze.dev/pkg/ninjaturtles/internal/adapter"
	model "gooze.dev/pkg/ninjaturtles/internal/model"
)

// MockTestRunnerAdapter is a mock type for the TestRunnerAdapter type.
type MockTestRunnerAdapter struct {
	mock.Mock
}

// MockTestRunnerAdapter_Expecter records typed expectations.
type MockTestRunnerAdapter_Expecter struct {
	mock *mock.Mock
}

// EXPECT returns the typed expecter.
func (_m *MockTestRunnerAdapter) EXPECT() *MockTestRunnerAdapter_Expecter {
	return &MockTestRunnerAdapter_Expecter{mock: &_m.Mock}
}

// Run provides a mock function with given fields: ctx, dir, assemblyFile, tests.
func (_m *MockTestRunnerAdapter) Run(ctx context.Context, dir model.Path, assemblyFile string, tests []string) (adapter.RunOutcome, string, error) {
	ret := _m.Called(ctx, dir, assemblyFile, tests)

	if rf, ok := ret.Get(0).(func(context.Context, model.Path, string, []string) (adapter.RunOutcome, string, error)); ok {
		return rf(ctx, dir, assemblyFile, tests)
	}

	var r0 adapter.RunOutcome
	if v, ok := ret.Get(0).(adapter.RunOutcome); ok {
		r0 = v
	}

	return r0, ret.String(1), ret.Error(2)
}

// Run is a helper method to define mock.On call.
func (_e *MockTestRunnerAdapter_Expecter) Run(ctx interface{}, dir interface{}, assemblyFile interface{}, tests interface{}) *mock.Call {
	return _e.mock.On("Run", ctx, dir, assemblyFile, tests)
}

// NewMockTestRunnerAdapter creates a new instance of MockTestRunnerAdapter.
// It also registers a testing interface on the mock and a cleanup function to
// assert the mocks expectations.
func NewMockTestRunnerAdapter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTestRunnerAdapter {
	m := &MockTestRunnerAdapter{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
