package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	domain "gooze.dev/pkg/ninjaturtles/internal/domain"
	turtles "gooze.dev/pkg/ninjaturtles/internal/domain/turtles"
	model "gooze.dev/pkg/ninjaturtles/internal/model"
)

// MockOrchestrator is a mock type for the Orchestrator type.
type MockOrchestrator struct {
	mock.Mock
}

// MockOrchestrator_Expecter records typed expectations.
type MockOrchestrator_Expecter struct {
	mock *mock.Mock
}

// EXPECT returns the typed expecter.
func (_m *MockOrchestrator) EXPECT() *MockOrchestrator_Expecter {
	return &MockOrchestrator_Expecter{mock: &_m.Mock}
}

// TestMethod provides a mock function with given fields: ctx, job, turtle.
func (_m *MockOrchestrator) TestMethod(ctx context.Context, job domain.MethodJob, turtle turtles.Turtle) (model.MethodResult, error) {
	ret := _m.Called(ctx, job, turtle)

	if rf, ok := ret.Get(0).(func(context.Context, domain.MethodJob, turtles.Turtle) (model.MethodResult, error)); ok {
		return rf(ctx, job, turtle)
	}

	var r0 model.MethodResult
	if v, ok := ret.Get(0).(model.MethodResult); ok {
		r0 = v
	}

	return r0, ret.Error(1)
}

// TestMethod is a helper method to define mock.On call.
func (_e *MockOrchestrator_Expecter) TestMethod(ctx interface{}, job interface{}, turtle interface{}) *mock.Call {
	return _e.mock.On("TestMethod", ctx, job, turtle)
}

// NewMockOrchestrator creates a new instance of MockOrchestrator. It also
// registers a testing interface on the mock and a cleanup function to assert
// the mocks expectations.
func NewMockOrchestrator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockOrchestrator {
	m := &MockOrchestrator{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
