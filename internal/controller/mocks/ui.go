package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	controller "gooze.dev/pkg/ninjaturtles/internal/controller"
	model "gooze.dev/pkg/ninjaturtles/internal/model"
)

// MockUI is a mock type for the UI type.
type MockUI struct {
	mock.Mock
}

// MockUI_Expecter records typed expectations.
type MockUI_Expecter struct {
	mock *mock.Mock
}

// EXPECT returns the typed expecter.
func (_m *MockUI) EXPECT() *MockUI_Expecter {
	return &MockUI_Expecter{mock: &_m.Mock}
}

// Close provides a mock function with given fields: ctx.
func (_m *MockUI) Close(ctx context.Context) {
	_m.Called(ctx)
}

// Close is a helper method to define mock.On call.
func (_e *MockUI_Expecter) Close(ctx interface{}) *mock.Call {
	return _e.mock.On("Close", ctx)
}

// DisplayEstimation provides a mock function with given fields: ctx, estimates, err.
func (_m *MockUI) DisplayEstimation(ctx context.Context, estimates []model.Estimate, err error) error {
	ret := _m.Called(ctx, estimates, err)

	return ret.Error(0)
}

// DisplayEstimation is a helper method to define mock.On call.
func (_e *MockUI_Expecter) DisplayEstimation(ctx interface{}, estimates interface{}, err interface{}) *mock.Call {
	return _e.mock.On("DisplayEstimation", ctx, estimates, err)
}

// DisplayMethodResult provides a mock function with given fields: ctx, result.
func (_m *MockUI) DisplayMethodResult(ctx context.Context, result model.MethodResult) {
	_m.Called(ctx, result)
}

// DisplayMethodResult is a helper method to define mock.On call.
func (_e *MockUI_Expecter) DisplayMethodResult(ctx interface{}, result interface{}) *mock.Call {
	return _e.mock.On("DisplayMethodResult", ctx, result)
}

// DisplayMutantOutcome provides a mock function with given fields: ctx, outcome.
func (_m *MockUI) DisplayMutantOutcome(ctx context.Context, outcome model.MutantOutcome) {
	_m.Called(ctx, outcome)
}

// DisplayMutantOutcome is a helper method to define mock.On call.
func (_e *MockUI_Expecter) DisplayMutantOutcome(ctx interface{}, outcome interface{}) *mock.Call {
	return _e.mock.On("DisplayMutantOutcome", ctx, outcome)
}

// DisplayMutationScore provides a mock function with given fields: ctx, summary, score.
func (_m *MockUI) DisplayMutationScore(ctx context.Context, summary model.Summary, score float64) {
	_m.Called(ctx, summary, score)
}

// DisplayMutationScore is a helper method to define mock.On call.
func (_e *MockUI_Expecter) DisplayMutationScore(ctx interface{}, summary interface{}, score interface{}) *mock.Call {
	return _e.mock.On("DisplayMutationScore", ctx, summary, score)
}

// DisplayReport provides a mock function with given fields: ctx, report.
func (_m *MockUI) DisplayReport(ctx context.Context, report model.ReportSnapshot) error {
	ret := _m.Called(ctx, report)

	return ret.Error(0)
}

// DisplayReport is a helper method to define mock.On call.
func (_e *MockUI_Expecter) DisplayReport(ctx interface{}, report interface{}) *mock.Call {
	return _e.mock.On("DisplayReport", ctx, report)
}

// DisplayRunInfo provides a mock function with given fields: ctx, info.
func (_m *MockUI) DisplayRunInfo(ctx context.Context, info model.RunInfo) {
	_m.Called(ctx, info)
}

// DisplayRunInfo is a helper method to define mock.On call.
func (_e *MockUI_Expecter) DisplayRunInfo(ctx interface{}, info interface{}) *mock.Call {
	return _e.mock.On("DisplayRunInfo", ctx, info)
}

// DisplayStartingMethod provides a mock function with given fields: ctx, target, turtle, workerID.
func (_m *MockUI) DisplayStartingMethod(ctx context.Context, target string, turtle string, workerID int) {
	_m.Called(ctx, target, turtle, workerID)
}

// DisplayStartingMethod is a helper method to define mock.On call.
func (_e *MockUI_Expecter) DisplayStartingMethod(ctx interface{}, target interface{}, turtle interface{}, workerID interface{}) *mock.Call {
	return _e.mock.On("DisplayStartingMethod", ctx, target, turtle, workerID)
}

// Start provides a mock function with given fields: ctx, options.
func (_m *MockUI) Start(ctx context.Context, options ...controller.StartOption) error {
	args := []interface{}{ctx}
	for _, o := range options {
		args = append(args, o)
	}

	ret := _m.Called(args...)

	return ret.Error(0)
}

// Start is a helper method to define mock.On call.
func (_e *MockUI_Expecter) Start(ctx interface{}, options ...interface{}) *mock.Call {
	return _e.mock.On("Start", append([]interface{}{ctx}, options...)...)
}

// Wait provides a mock function with given fields: ctx.
func (_m *MockUI) Wait(ctx context.Context) {
	_m.Called(ctx)
}

// Wait is a helper method to define mock.On call.
func (_e *MockUI_Expecter) Wait(ctx interface{}) *mock.Call {
	return _e.mock.On("Wait", ctx)
}

// NewMockUI creates a new instance of MockUI. It also registers a testing
// interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockUI(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockUI {
	m := &MockUI{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
