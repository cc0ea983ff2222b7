// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package turandot is a generated GoMock package.
package turandot

import (
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"
)

// MockExecutor is a mock of Executor interface.
type MockExecutor struct {
	ctrl     *gomock.Controller
	recorder *MockExecutorMockRecorder
}

// MockExecutorMockRecorder is the mock recorder for MockExecutor.
type MockExecutorMockRecorder struct {
	mock *MockExecutor
}

// NewMockExecutor creates a new mock instance.
func NewMockExecutor(ctrl *gomock.Controller) *MockExecutor {
	mock := &MockExecutor{ctrl: ctrl}
	mock.recorder = &MockExecutorMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockExecutor) EXPECT() *MockExecutorMockRecorder {
	return m.recorder
}

// Run mocks base method.
func (m *MockExecutor) Run(arg0 BlockContext, arg1 Transaction, arg2 StateReader) (ExecutionResult, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Run", arg0, arg1, arg2)
	ret0, _ := ret[0].(ExecutionResult)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Run indicates an expected call of Run.
func (mr *MockExecutorMockRecorder) Run(arg0, arg1, arg2 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Run", reflect.TypeOf((*MockExecutor)(nil).Run), arg0, arg1, arg2)
}

// MockBlockHashSource is a mock of BlockHashSource interface.
type MockBlockHashSource struct {
	ctrl     *gomock.Controller
	recorder *MockBlockHashSourceMockRecorder
}

// MockBlockHashSourceMockRecorder is the mock recorder for MockBlockHashSource.
type MockBlockHashSourceMockRecorder struct {
	mock *MockBlockHashSource
}

// NewMockBlockHashSource creates a new mock instance.
func NewMockBlockHashSource(ctrl *gomock.Controller) *MockBlockHashSource {
	mock := &MockBlockHashSource{ctrl: ctrl}
	mock.recorder = &MockBlockHashSourceMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockBlockHashSource) EXPECT() *MockBlockHashSourceMockRecorder {
	return m.recorder
}

// BlockHash mocks base method.
func (m *MockBlockHashSource) BlockHash(arg0 int64) (BlockHash, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "BlockHash", arg0)
	ret0, _ := ret[0].(BlockHash)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// BlockHash indicates an expected call of BlockHash.
func (mr *MockBlockHashSourceMockRecorder) BlockHash(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "BlockHash", reflect.TypeOf((*MockBlockHashSource)(nil).BlockHash), arg0)
}
