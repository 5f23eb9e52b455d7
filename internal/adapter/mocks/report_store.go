package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	model "gooze.dev/pkg/ninjaturtles/internal/model"
)

// MockReportStore is a mock type for the ReportStore type.
type MockReportStore struct {
	mock.Mock
}

// MockReportStore_Expecter records typed expectations.
type MockReportStore_Expecter struct {
	mock *mock.Mock
}

// EXPECT returns the typed expecter.
func (_m *MockReportStore) EXPECT() *MockReportStore_Expecter {
	return &MockReportStore_Expecter{mock: &_m.Mock}
}

// Merge provides a mock function with given fields: ctx, path, report.
func (_m *MockReportStore) Merge(ctx context.Context, path model.Path, report *model.Report) error {
	ret := _m.Called(ctx, path, report)

	if rf, ok := ret.Get(0).(func(context.Context, model.Path, *model.Report) error); ok {
		return rf(ctx, path, report)
	}

	return ret.Error(0)
}

// Merge is a helper method to define mock.On call.
func (_e *MockReportStore_Expecter) Merge(ctx interface{}, path interface{}, report interface{}) *mock.Call {
	return _e.mock.On("Merge", ctx, path, report)
}

// Read provides a mock function with given fields: ctx, path.
func (_m *MockReportStore) Read(ctx context.Context, path model.Path) (*model.Report, error) {
	ret := _m.Called(ctx, path)

	if rf, ok := ret.Get(0).(func(context.Context, model.Path) (*model.Report, error)); ok {
		return rf(ctx, path)
	}

	var r0 *model.Report
	if v, ok := ret.Get(0).(*model.Report); ok {
		r0 = v
	}

	return r0, ret.Error(1)
}

// Read is a helper method to define mock.On call.
func (_e *MockReportStore_Expecter) Read(ctx interface{}, path interface{}) *mock.Call {
	return _e.mock.On("Read", ctx, path)
}

// Write provides a mock function with given fields: ctx, path, report.
func (_m *MockReportStore) Write(ctx context.Context, path model.Path, report *model.Report) error {
	ret := _m.Called(ctx, path, report)

	if rf, ok := ret.Get(0).(func(context.Context, model.Path, *model.Report) error); ok {
		return rf(ctx, path, report)
	}

	return ret.Error(0)
}

// Write is a helper method to define mock.On call.
func (_e *MockReportStore_Expecter) Write(ctx interface{}, path interface{}, report interface{}) *mock.Call {
	return _e.mock.On("Write", ctx, path, report)
}

// NewMockReportStore creates a new instance of MockReportStore. It also
// registers a testing interface on the mock and a cleanup function to assert
// the mocks expectations.
func NewMockReportStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockReportStore {
	m := &MockReportStore{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
