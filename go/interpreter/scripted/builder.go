// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package scripted

import (
	"encoding/json"
	"fmt"

	"github.com/Fantom-foundation/Turandot/go/turandot"
)

// ClassBuilder assembles the class definition of a scripted class without
// spelling out its JSON form. Entry points are added through External,
// Constructor, and L1Handler; the resulting definition is obtained through
// Build and accepted by this package's compiler.
type ClassBuilder struct {
	external    map[string]*ScriptBuilder
	constructor *ScriptBuilder
	handlers    map[string]*ScriptBuilder
}

func NewClassBuilder() *ClassBuilder {
	return &ClassBuilder{
		external: map[string]*ScriptBuilder{},
		handlers: map[string]*ScriptBuilder{},
	}
}

// External adds an entry point with the given name to the external entry
// point space and returns the builder collecting its operations. Calling it
// again with the same name continues the same script.
func (b *ClassBuilder) External(name string) *ScriptBuilder {
	if script, found := b.external[name]; found {
		return script
	}
	script := &ScriptBuilder{}
	b.external[name] = script
	return script
}

// Constructor adds a constructor to the class and returns the builder
// collecting its operations. A class built without this call has no
// constructor and deploys bare.
func (b *ClassBuilder) Constructor() *ScriptBuilder {
	if b.constructor == nil {
		b.constructor = &ScriptBuilder{}
	}
	return b.constructor
}

// L1Handler adds an entry point with the given name to the L1 handler entry
// point space and returns the builder collecting its operations.
func (b *ClassBuilder) L1Handler(name string) *ScriptBuilder {
	if script, found := b.handlers[name]; found {
		return script
	}
	script := &ScriptBuilder{}
	b.handlers[name] = script
	return script
}

// Build serializes the collected entry points into a class definition.
func (b *ClassBuilder) Build() turandot.ClassDefinition {
	document := classDocument{}
	if len(b.external) > 0 {
		document.External = map[string][]operation{}
		for name, script := range b.external {
			document.External[name] = script.operations()
		}
	}
	if b.constructor != nil {
		ops := b.constructor.operations()
		document.Constructor = &ops
	}
	if len(b.handlers) > 0 {
		document.L1Handlers = map[string][]operation{}
		for name, script := range b.handlers {
			document.L1Handlers[name] = script.operations()
		}
	}
	data, err := json.Marshal(document)
	if err != nil {
		panic(fmt.Sprintf("failed to serialize class document: %v", err))
	}
	return data
}

// ScriptBuilder collects the operations of one entry point. All methods
// append one operation and return the builder for chaining; Into names the
// result of the most recently appended operation.
type ScriptBuilder struct {
	ops []operation
}

func (b *ScriptBuilder) add(op operation) *ScriptBuilder {
	b.ops = append(b.ops, op)
	return b
}

func (b *ScriptBuilder) operations() []operation {
	if b.ops == nil {
		return []operation{}
	}
	return b.ops
}

// Into binds the result of the preceding operation to the given variable
// name. It panics if no operation was appended yet.
func (b *ScriptBuilder) Into(name string) *ScriptBuilder {
	if len(b.ops) == 0 {
		panic("Into requires a preceding operation")
	}
	b.ops[len(b.ops)-1].Into = name
	return b
}

func (b *ScriptBuilder) UseSteps(steps turandot.Steps) *ScriptBuilder {
	return b.add(operation{Op: opUseSteps, Steps: steps})
}

func (b *ScriptBuilder) UseBuiltin(builtin turandot.Builtin, count uint64) *ScriptBuilder {
	return b.add(operation{Op: opUseBuiltin, Builtin: builtin.String(), Count: count})
}

func (b *ScriptBuilder) MemoryHoles(count uint64) *ScriptBuilder {
	return b.add(operation{Op: opMemoryHoles, Count: count})
}

func (b *ScriptBuilder) StorageRead(key Arg) *ScriptBuilder {
	return b.add(operation{Op: opStorageRead, Key: &key})
}

func (b *ScriptBuilder) StorageWrite(key, value Arg) *ScriptBuilder {
	return b.add(operation{Op: opStorageWrite, Key: &key, Value: &value})
}

func (b *ScriptBuilder) EmitEvent(keys []Arg, data []Arg) *ScriptBuilder {
	return b.add(operation{Op: opEmitEvent, Keys: keys, Data: data})
}

func (b *ScriptBuilder) SendMessage(to Arg, payload ...Arg) *ScriptBuilder {
	return b.add(operation{Op: opSendMessage, To: &to, Payload: payload})
}

func (b *ScriptBuilder) CallContract(contract Arg, entryPoint string, calldata ...Arg) *ScriptBuilder {
	return b.add(operation{Op: opCallContract, Contract: &contract, EntryPoint: entryPoint, Calldata: calldata})
}

func (b *ScriptBuilder) LibraryCall(class Arg, entryPoint string, calldata ...Arg) *ScriptBuilder {
	return b.add(operation{Op: opLibraryCall, Class: &class, EntryPoint: entryPoint, Calldata: calldata})
}

func (b *ScriptBuilder) Deploy(class, salt Arg, calldata ...Arg) *ScriptBuilder {
	return b.add(operation{Op: opDeploy, Class: &class, Salt: &salt, Calldata: calldata})
}

func (b *ScriptBuilder) ReplaceClass(class Arg) *ScriptBuilder {
	return b.add(operation{Op: opReplaceClass, Class: &class})
}

func (b *ScriptBuilder) ExecutionInfo(field string) *ScriptBuilder {
	return b.add(operation{Op: opExecutionInfo, Field: field})
}

func (b *ScriptBuilder) BlockHash(number int64) *ScriptBuilder {
	return b.add(operation{Op: opBlockHash, Number: number})
}

func (b *ScriptBuilder) Keccak(parts ...Arg) *ScriptBuilder {
	return b.add(operation{Op: opKeccak, Data: parts})
}

func (b *ScriptBuilder) StarkKeccak(parts ...Arg) *ScriptBuilder {
	return b.add(operation{Op: opStarkKeccak, Data: parts})
}

func (b *ScriptBuilder) EcAdd(p, q Point) *ScriptBuilder {
	return b.add(operation{Op: opEcAdd, P: &p, Q: &q})
}

func (b *ScriptBuilder) EcMul(p Point, scalar Arg) *ScriptBuilder {
	return b.add(operation{Op: opEcMul, P: &p, Scalar: &scalar})
}

func (b *ScriptBuilder) Fail(reasons ...Arg) *ScriptBuilder {
	return b.add(operation{Op: opFail, Values: reasons})
}

func (b *ScriptBuilder) Return(values ...Arg) *ScriptBuilder {
	return b.add(operation{Op: opReturn, Values: values})
}

// ReturnVar terminates the script returning all elements of the given
// variable.
func (b *ScriptBuilder) ReturnVar(name string) *ScriptBuilder {
	return b.add(operation{Op: opReturn, From: name})
}

// Const creates a constant operand.
func Const(value turandot.Felt) Arg {
	return Arg{kind: argConst, constant: value}
}

// Uint creates a constant operand from a plain integer.
func Uint(value uint64) Arg {
	return Arg{kind: argConst, constant: turandot.NewFelt(value)}
}

// Short creates a constant operand from a short string of at most 31
// characters. It panics on longer inputs.
func Short(s string) Arg {
	value, err := turandot.FeltFromShortString(s)
	if err != nil {
		panic(err)
	}
	return Arg{kind: argConst, constant: value}
}

// Calldata creates an operand referring to the calldata element at the
// given index.
func Calldata(index int) Arg {
	return Arg{kind: argCalldata, index: index}
}

// Var creates an operand referring to the first element of the named
// variable.
func Var(name string) Arg {
	return Arg{kind: argVar, name: name}
}

// VarAt creates an operand referring to the element of the named variable
// at the given index.
func VarAt(name string, index int) Arg {
	return Arg{kind: argVar, name: name, index: index}
}

// Text creates a raw text operand for hash payloads.
func Text(s string) Arg {
	return Arg{kind: argText, text: s}
}
