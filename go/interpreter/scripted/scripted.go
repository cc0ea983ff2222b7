// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package scripted provides an interpreter for classes given as JSON script
// documents. A script is a flat list of operations naming the syscalls to
// perform and the resources to consume; there is no instruction set and no
// control flow beyond stopping at a return or fail operation. The package is
// intended for tests, benchmarks, and driver scenarios that need contracts
// with a precisely known behavior and cost.
//
// A class document lists its entry points per entry point space:
//
//	{
//	  "external": {
//	    "__validate__": [{"op": "return", "values": ["VALID"]}],
//	    "__execute__": [
//	      {"op": "use_steps", "steps": 100},
//	      {"op": "storage_write", "key": "0x10", "value": {"calldata": 0}}
//	    ]
//	  },
//	  "constructor": [{"op": "storage_write", "key": "0x10", "value": 1}],
//	  "l1_handler": {"handle_deposit": [{"op": "use_steps", "steps": 50}]}
//	}
//
// Operation results can be bound to named variables through "into" and
// referred to by later operations, so scripts can forward values without
// computing anything themselves. The full operand syntax is documented on
// the Arg type, the operation names on the operation type.
package scripted

import (
	"fmt"

	"github.com/Fantom-foundation/Turandot/go/turandot"
)

func init() {
	turandot.MustRegisterInterpreterFactory("scripted", func(any) (turandot.Interpreter, error) {
		return NewInterpreter(), nil
	})
}

// NewInterpreter creates an interpreter running scripted class programs.
// Instances are stateless and safe for concurrent use.
func NewInterpreter() turandot.Interpreter {
	return interpreter{}
}

// NewCompiler creates the compiler producing the programs consumed by the
// scripted interpreter.
func NewCompiler() turandot.Compiler {
	return compiler{}
}

type interpreter struct{}

func (interpreter) Run(params turandot.Parameters) (turandot.Result, error) {
	compiled, ok := params.Program.(*program)
	if !ok {
		return turandot.Result{}, fmt.Errorf("scripted interpreter received a foreign program of type %T", params.Program)
	}
	script, found := compiled.script(params.EntryPointType, params.Selector)
	if !found {
		return turandot.Result{}, fmt.Errorf("no %v entry point with selector %v", params.EntryPointType, params.Selector)
	}
	runner := &runner{
		context:  params.Context,
		calldata: params.Calldata,
		vars:     map[string][]turandot.Felt{},
	}
	return runner.run(script), nil
}
