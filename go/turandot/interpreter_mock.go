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

// MockInterpreter is a mock of Interpreter interface.
type MockInterpreter struct {
	ctrl     *gomock.Controller
	recorder *MockInterpreterMockRecorder
}

// MockInterpreterMockRecorder is the mock recorder for MockInterpreter.
type MockInterpreterMockRecorder struct {
	mock *MockInterpreter
}

// NewMockInterpreter creates a new mock instance.
func NewMockInterpreter(ctrl *gomock.Controller) *MockInterpreter {
	mock := &MockInterpreter{ctrl: ctrl}
	mock.recorder = &MockInterpreterMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockInterpreter) EXPECT() *MockInterpreterMockRecorder {
	return m.recorder
}

// Run mocks base method.
func (m *MockInterpreter) Run(arg0 Parameters) (Result, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Run", arg0)
	ret0, _ := ret[0].(Result)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Run indicates an expected call of Run.
func (mr *MockInterpreterMockRecorder) Run(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Run", reflect.TypeOf((*MockInterpreter)(nil).Run), arg0)
}

// MockSyscallContext is a mock of SyscallContext interface.
type MockSyscallContext struct {
	ctrl     *gomock.Controller
	recorder *MockSyscallContextMockRecorder
}

// MockSyscallContextMockRecorder is the mock recorder for MockSyscallContext.
type MockSyscallContextMockRecorder struct {
	mock *MockSyscallContext
}

// NewMockSyscallContext creates a new mock instance.
func NewMockSyscallContext(ctrl *gomock.Controller) *MockSyscallContext {
	mock := &MockSyscallContext{ctrl: ctrl}
	mock.recorder = &MockSyscallContextMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockSyscallContext) EXPECT() *MockSyscallContextMockRecorder {
	return m.recorder
}

// UseSteps mocks base method.
func (m *MockSyscallContext) UseSteps(arg0 Steps) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "UseSteps", arg0)
	ret0, _ := ret[0].(error)
	return ret0
}

// UseSteps indicates an expected call of UseSteps.
func (mr *MockSyscallContextMockRecorder) UseSteps(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "UseSteps", reflect.TypeOf((*MockSyscallContext)(nil).UseSteps), arg0)
}

// StepsLeft mocks base method.
func (m *MockSyscallContext) StepsLeft() Steps {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "StepsLeft")
	ret0, _ := ret[0].(Steps)
	return ret0
}

// StepsLeft indicates an expected call of StepsLeft.
func (mr *MockSyscallContextMockRecorder) StepsLeft() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "StepsLeft", reflect.TypeOf((*MockSyscallContext)(nil).StepsLeft))
}

// StorageRead mocks base method.
func (m *MockSyscallContext) StorageRead(arg0 StorageKey) (Felt, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "StorageRead", arg0)
	ret0, _ := ret[0].(Felt)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// StorageRead indicates an expected call of StorageRead.
func (mr *MockSyscallContextMockRecorder) StorageRead(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "StorageRead", reflect.TypeOf((*MockSyscallContext)(nil).StorageRead), arg0)
}

// StorageWrite mocks base method.
func (m *MockSyscallContext) StorageWrite(arg0 StorageKey, arg1 Felt) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "StorageWrite", arg0, arg1)
	ret0, _ := ret[0].(error)
	return ret0
}

// StorageWrite indicates an expected call of StorageWrite.
func (mr *MockSyscallContextMockRecorder) StorageWrite(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "StorageWrite", reflect.TypeOf((*MockSyscallContext)(nil).StorageWrite), arg0, arg1)
}

// EmitEvent mocks base method.
func (m *MockSyscallContext) EmitEvent(arg0, arg1 []Felt) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "EmitEvent", arg0, arg1)
	ret0, _ := ret[0].(error)
	return ret0
}

// EmitEvent indicates an expected call of EmitEvent.
func (mr *MockSyscallContextMockRecorder) EmitEvent(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "EmitEvent", reflect.TypeOf((*MockSyscallContext)(nil).EmitEvent), arg0, arg1)
}

// SendMessageToL1 mocks base method.
func (m *MockSyscallContext) SendMessageToL1(arg0 Felt, arg1 []Felt) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SendMessageToL1", arg0, arg1)
	ret0, _ := ret[0].(error)
	return ret0
}

// SendMessageToL1 indicates an expected call of SendMessageToL1.
func (mr *MockSyscallContextMockRecorder) SendMessageToL1(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SendMessageToL1", reflect.TypeOf((*MockSyscallContext)(nil).SendMessageToL1), arg0, arg1)
}

// CallContract mocks base method.
func (m *MockSyscallContext) CallContract(arg0 Address, arg1 Selector, arg2 []Felt) ([]Felt, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CallContract", arg0, arg1, arg2)
	ret0, _ := ret[0].([]Felt)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// CallContract indicates an expected call of CallContract.
func (mr *MockSyscallContextMockRecorder) CallContract(arg0, arg1, arg2 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CallContract", reflect.TypeOf((*MockSyscallContext)(nil).CallContract), arg0, arg1, arg2)
}

// LibraryCall mocks base method.
func (m *MockSyscallContext) LibraryCall(arg0 ClassHash, arg1 Selector, arg2 []Felt) ([]Felt, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "LibraryCall", arg0, arg1, arg2)
	ret0, _ := ret[0].([]Felt)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// LibraryCall indicates an expected call of LibraryCall.
func (mr *MockSyscallContextMockRecorder) LibraryCall(arg0, arg1, arg2 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "LibraryCall", reflect.TypeOf((*MockSyscallContext)(nil).LibraryCall), arg0, arg1, arg2)
}

// Deploy mocks base method.
func (m *MockSyscallContext) Deploy(arg0 ClassHash, arg1 Felt, arg2 []Felt) (Address, []Felt, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Deploy", arg0, arg1, arg2)
	ret0, _ := ret[0].(Address)
	ret1, _ := ret[1].([]Felt)
	ret2, _ := ret[2].(error)
	return ret0, ret1, ret2
}

// Deploy indicates an expected call of Deploy.
func (mr *MockSyscallContextMockRecorder) Deploy(arg0, arg1, arg2 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Deploy", reflect.TypeOf((*MockSyscallContext)(nil).Deploy), arg0, arg1, arg2)
}

// ReplaceClass mocks base method.
func (m *MockSyscallContext) ReplaceClass(arg0 ClassHash) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ReplaceClass", arg0)
	ret0, _ := ret[0].(error)
	return ret0
}

// ReplaceClass indicates an expected call of ReplaceClass.
func (mr *MockSyscallContextMockRecorder) ReplaceClass(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ReplaceClass", reflect.TypeOf((*MockSyscallContext)(nil).ReplaceClass), arg0)
}

// GetExecutionInfo mocks base method.
func (m *MockSyscallContext) GetExecutionInfo() (ExecutionInfo, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetExecutionInfo")
	ret0, _ := ret[0].(ExecutionInfo)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetExecutionInfo indicates an expected call of GetExecutionInfo.
func (mr *MockSyscallContextMockRecorder) GetExecutionInfo() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetExecutionInfo", reflect.TypeOf((*MockSyscallContext)(nil).GetExecutionInfo))
}

// GetBlockHash mocks base method.
func (m *MockSyscallContext) GetBlockHash(arg0 int64) (BlockHash, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetBlockHash", arg0)
	ret0, _ := ret[0].(BlockHash)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetBlockHash indicates an expected call of GetBlockHash.
func (mr *MockSyscallContextMockRecorder) GetBlockHash(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetBlockHash", reflect.TypeOf((*MockSyscallContext)(nil).GetBlockHash), arg0)
}

// Keccak mocks base method.
func (m *MockSyscallContext) Keccak(arg0 []byte) ([32]byte, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Keccak", arg0)
	ret0, _ := ret[0].([32]byte)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Keccak indicates an expected call of Keccak.
func (mr *MockSyscallContextMockRecorder) Keccak(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Keccak", reflect.TypeOf((*MockSyscallContext)(nil).Keccak), arg0)
}

// EcAdd mocks base method.
func (m *MockSyscallContext) EcAdd(arg0, arg1 CurvePoint) (CurvePoint, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "EcAdd", arg0, arg1)
	ret0, _ := ret[0].(CurvePoint)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// EcAdd indicates an expected call of EcAdd.
func (mr *MockSyscallContextMockRecorder) EcAdd(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "EcAdd", reflect.TypeOf((*MockSyscallContext)(nil).EcAdd), arg0, arg1)
}

// EcMul mocks base method.
func (m *MockSyscallContext) EcMul(arg0 CurvePoint, arg1 Felt) (CurvePoint, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "EcMul", arg0, arg1)
	ret0, _ := ret[0].(CurvePoint)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// EcMul indicates an expected call of EcMul.
func (mr *MockSyscallContextMockRecorder) EcMul(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "EcMul", reflect.TypeOf((*MockSyscallContext)(nil).EcMul), arg0, arg1)
}
