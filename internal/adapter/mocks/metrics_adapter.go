package mocks

import (
	"time"

	mock "github.com/stretchr/testify/mock"

	model "gooze.dev/pkg/ninjaturtles/internal/model"
)

// MockMetricsAdapter is a mock type for the MetricsAdapter type.
type MockMetricsAdapter struct {
	mock.Mock
}

// MockMetricsAdapter_Expecter records typed expectations.
type MockMetricsAdapter_Expecter struct {
	mock *mock.Mock
}

// EXPECT returns the typed expecter.
func (_m *MockMetricsAdapter) EXPECT() *MockMetricsAdapter_Expecter {
	return &MockMetricsAdapter_Expecter{mock: &_m.Mock}
}

// Flush provides a mock function with given fields: path.
func (_m *MockMetricsAdapter) Flush(path model.Path) error {
	ret := _m.Called(path)

	return ret.Error(0)
}

// Flush is a helper method to define mock.On call.
func (_e *MockMetricsAdapter_Expecter) Flush(path interface{}) *mock.Call {
	return _e.mock.On("Flush", path)
}

// RecordMethod provides a mock function with given fields: turtle, passed.
func (_m *MockMetricsAdapter) RecordMethod(turtle string, passed bool) {
	_m.Called(turtle, passed)
}

// RecordMethod is a helper method to define mock.On call.
func (_e *MockMetricsAdapter_Expecter) RecordMethod(turtle interface{}, passed interface{}) *mock.Call {
	return _e.mock.On("RecordMethod", turtle, passed)
}

// RecordMutant provides a mock function with given fields: turtle, status, duration.
func (_m *MockMetricsAdapter) RecordMutant(turtle string, status model.TestStatus, duration time.Duration) {
	_m.Called(turtle, status, duration)
}

// RecordMutant is a helper method to define mock.On call.
func (_e *MockMetricsAdapter_Expecter) RecordMutant(turtle interface{}, status interface{}, duration interface{}) *mock.Call {
	return _e.mock.On("RecordMutant", turtle, status, duration)
}

// RecordScore provides a mock function with given fields: score.
func (_m *MockMetricsAdapter) RecordScore(score float64) {
	_m.Called(score)
}

// RecordScore is a helper method to define mock.On call.
func (_e *MockMetricsAdapter_Expecter) RecordScore(score interface{}) *mock.Call {
	return _e.mock.On("RecordScore", score)
}

// NewMockMetricsAdapter creates a new instance of MockMetricsAdapter. It also
// registers a testing interface on the mock and a cleanup function to assert
// the mocks expectations.
func NewMockMetricsAdapter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockMetricsAdapter {
	m := &MockMetricsAdapter{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
