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

// MockStateReader is a mock of StateReader interface.
type MockStateReader struct {
	ctrl     *gomock.Controller
	recorder *MockStateReaderMockRecorder
}

// MockStateReaderMockRecorder is the mock recorder for MockStateReader.
type MockStateReaderMockRecorder struct {
	mock *MockStateReader
}

// NewMockStateReader creates a new mock instance.
func NewMockStateReader(ctrl *gomock.Controller) *MockStateReader {
	mock := &MockStateReader{ctrl: ctrl}
	mock.recorder = &MockStateReaderMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockStateReader) EXPECT() *MockStateReaderMockRecorder {
	return m.recorder
}

// StorageAt mocks base method.
func (m *MockStateReader) StorageAt(arg0 Address, arg1 StorageKey) (Felt, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "StorageAt", arg0, arg1)
	ret0, _ := ret[0].(Felt)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// StorageAt indicates an expected call of StorageAt.
func (mr *MockStateReaderMockRecorder) StorageAt(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "StorageAt", reflect.TypeOf((*MockStateReader)(nil).StorageAt), arg0, arg1)
}

// NonceAt mocks base method.
func (m *MockStateReader) NonceAt(arg0 Address) (Felt, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "NonceAt", arg0)
	ret0, _ := ret[0].(Felt)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// NonceAt indicates an expected call of NonceAt.
func (mr *MockStateReaderMockRecorder) NonceAt(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "NonceAt", reflect.TypeOf((*MockStateReader)(nil).NonceAt), arg0)
}

// ClassHashAt mocks base method.
func (m *MockStateReader) ClassHashAt(arg0 Address) (ClassHash, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ClassHashAt", arg0)
	ret0, _ := ret[0].(ClassHash)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ClassHashAt indicates an expected call of ClassHashAt.
func (mr *MockStateReaderMockRecorder) ClassHashAt(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ClassHashAt", reflect.TypeOf((*MockStateReader)(nil).ClassHashAt), arg0)
}

// Class mocks base method.
func (m *MockStateReader) Class(arg0 ClassHash) (ClassDefinition, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Class", arg0)
	ret0, _ := ret[0].(ClassDefinition)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Class indicates an expected call of Class.
func (mr *MockStateReaderMockRecorder) Class(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Class", reflect.TypeOf((*MockStateReader)(nil).Class), arg0)
}

// CompiledClassHash mocks base method.
func (m *MockStateReader) CompiledClassHash(arg0 ClassHash) (Felt, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CompiledClassHash", arg0)
	ret0, _ := ret[0].(Felt)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// CompiledClassHash indicates an expected call of CompiledClassHash.
func (mr *MockStateReaderMockRecorder) CompiledClassHash(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CompiledClassHash", reflect.TypeOf((*MockStateReader)(nil).CompiledClassHash), arg0)
}

// MockCompiler is a mock of Compiler interface.
type MockCompiler struct {
	ctrl     *gomock.Controller
	recorder *MockCompilerMockRecorder
}

// MockCompilerMockRecorder is the mock recorder for MockCompiler.
type MockCompilerMockRecorder struct {
	mock *MockCompiler
}

// NewMockCompiler creates a new mock instance.
func NewMockCompiler(ctrl *gomock.Controller) *MockCompiler {
	mock := &MockCompiler{ctrl: ctrl}
	mock.recorder = &MockCompilerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockCompiler) EXPECT() *MockCompilerMockRecorder {
	return m.recorder
}

// Compile mocks base method.
func (m *MockCompiler) Compile(arg0 ClassDefinition) (CompiledProgram, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Compile", arg0)
	ret0, _ := ret[0].(CompiledProgram)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Compile indicates an expected call of Compile.
func (mr *MockCompilerMockRecorder) Compile(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Compile", reflect.TypeOf((*MockCompiler)(nil).Compile), arg0)
}

// MockCompiledProgram is a mock of CompiledProgram interface.
type MockCompiledProgram struct {
	ctrl     *gomock.Controller
	recorder *MockCompiledProgramMockRecorder
}

// MockCompiledProgramMockRecorder is the mock recorder for MockCompiledProgram.
type MockCompiledProgramMockRecorder struct {
	mock *MockCompiledProgram
}

// NewMockCompiledProgram creates a new mock instance.
func NewMockCompiledProgram(ctrl *gomock.Controller) *MockCompiledProgram {
	mock := &MockCompiledProgram{ctrl: ctrl}
	mock.recorder = &MockCompiledProgramMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockCompiledProgram) EXPECT() *MockCompiledProgramMockRecorder {
	return m.recorder
}

// HasEntryPoint mocks base method.
func (m *MockCompiledProgram) HasEntryPoint(arg0 EntryPointType, arg1 Selector) bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "HasEntryPoint", arg0, arg1)
	ret0, _ := ret[0].(bool)
	return ret0
}

// HasEntryPoint indicates an expected call of HasEntryPoint.
func (mr *MockCompiledProgramMockRecorder) HasEntryPoint(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "HasEntryPoint", reflect.TypeOf((*MockCompiledProgram)(nil).HasEntryPoint), arg0, arg1)
}
