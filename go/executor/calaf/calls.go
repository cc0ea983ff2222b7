// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package calaf

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/Turandot/go/turandot"
)

// callRequest bundles the parameters of a single contract call. The class is
// resolved from the contract unless set explicitly, as done for library and
// constructor calls.
type callRequest struct {
	kind           turandot.CallKind
	entryPointType turandot.EntryPointType
	contract       turandot.Address
	class          turandot.ClassHash
	caller         turandot.Address
	selector       turandot.Selector
	calldata       []turandot.Felt
}

// executeCall runs a single contract call including all calls nested below
// it. A failed call leaves no trace in the state, its effects are discarded
// before returning. The failure return value describes deterministic call
// failures, the error return value is reserved for infrastructure problems.
func (x *execution) executeCall(request callRequest) (turandot.CallInfo, *turandot.CallFailure, error) {
	class := request.class
	if turandot.Felt(class).IsZero() {
		resolved, err := x.overlay.ClassHashAt(request.contract)
		if err != nil {
			return turandot.CallInfo{}, nil, err
		}
		class = resolved
	}

	info := turandot.CallInfo{
		Contract:       request.contract,
		Class:          class,
		Caller:         request.caller,
		Kind:           request.kind,
		EntryPointType: request.entryPointType,
		Selector:       request.selector,
		Calldata:       request.calldata,
	}

	fail := func(err error) (turandot.CallInfo, *turandot.CallFailure, error) {
		return info, &turandot.CallFailure{
			Contract: request.contract,
			Class:    class,
			Selector: request.selector,
			Err:      err,
		}, nil
	}

	if x.depth >= x.constants.MaxCallDepth {
		return fail(turandot.ErrDepthLimit)
	}
	if turandot.Felt(class).IsZero() {
		return fail(fmt.Errorf("%w: %v", turandot.ErrContractNotDeployed, request.contract))
	}

	program, err := x.executor.programs.GetOrCompile(class, x.overlay)
	if err != nil {
		if isDeterministicProgramError(err) {
			return fail(err)
		}
		return info, nil, err
	}
	if !program.HasEntryPoint(request.entryPointType, request.selector) {
		return fail(fmt.Errorf("%w: no %v with selector %v in class %v",
			turandot.ErrEntryPointNotFound, request.entryPointType, request.selector, class))
	}

	checkpoint := x.overlay.Checkpoint()
	frame := &frameContext{
		execution: x,
		contract:  request.contract,
		class:     class,
		caller:    request.caller,
		selector:  request.selector,
	}

	x.depth++
	result, err := x.executor.interpreter.Run(turandot.Parameters{
		Context:        frame,
		Program:        program,
		Kind:           request.kind,
		EntryPointType: request.entryPointType,
		Selector:       request.selector,
		Contract:       request.contract,
		Class:          class,
		Caller:         request.caller,
		Calldata:       request.calldata,
	})
	x.depth--
	if err != nil {
		x.overlay.Discard(checkpoint)
		return info, nil, fmt.Errorf("interpreter failure: %w", err)
	}
	if frame.fault != nil {
		x.overlay.Discard(checkpoint)
		return info, nil, frame.fault
	}

	frame.used.MemoryHoles += result.MemoryHoles
	frame.used.Builtins = frame.used.Builtins.Add(result.Builtins)
	x.used.MemoryHoles += result.MemoryHoles
	x.used.Builtins = x.used.Builtins.Add(result.Builtins)

	info.Retdata = result.Retdata
	info.Success = result.Success
	info.Resources = frame.used
	info.StorageReads = frame.reads
	info.StorageWrites = frame.writes
	info.Events = frame.events
	info.Messages = frame.messages
	info.InnerCalls = frame.inner

	if !result.Success {
		x.overlay.Discard(checkpoint)
		cause := frame.err
		if cause == nil {
			cause = turandot.ErrExecutionFailed
		}
		return info, &turandot.CallFailure{
			Contract: request.contract,
			Class:    class,
			Selector: request.selector,
			Reason:   result.Retdata,
			Err:      cause,
		}, nil
	}

	x.overlay.Merge(checkpoint)
	return info, nil, nil
}

// constructorCall runs the constructor of a freshly deployed contract. A
// class without a constructor deploys without a call, provided no arguments
// were supplied. The info is nil if no constructor ran.
func (x *execution) constructorCall(
	contract, caller turandot.Address,
	class turandot.ClassHash,
	calldata []turandot.Felt,
) (*turandot.CallInfo, *turandot.CallFailure, error) {
	fail := func(err error) (*turandot.CallInfo, *turandot.CallFailure, error) {
		return nil, &turandot.CallFailure{
			Contract: contract,
			Class:    class,
			Selector: turandot.ConstructorSelector,
			Err:      err,
		}, nil
	}

	program, err := x.executor.programs.GetOrCompile(class, x.overlay)
	if err != nil {
		if isDeterministicProgramError(err) {
			return fail(err)
		}
		return nil, nil, err
	}
	if !program.HasEntryPoint(turandot.ConstructorEntryPoint, turandot.ConstructorSelector) {
		if len(calldata) == 0 {
			return nil, nil, nil
		}
		return fail(fmt.Errorf("%w: class %v takes no constructor arguments",
			turandot.ErrEntryPointNotFound, class))
	}

	info, failure, err := x.executeCall(callRequest{
		kind:           turandot.Call,
		entryPointType: turandot.ConstructorEntryPoint,
		contract:       contract,
		class:          class,
		caller:         caller,
		selector:       turandot.ConstructorSelector,
		calldata:       calldata,
	})
	if err != nil {
		return nil, nil, err
	}
	return &info, failure, nil
}

// isDeterministicProgramError separates program lookup outcomes that are part
// of consensus from infrastructure failures of the state source.
func isDeterministicProgramError(err error) bool {
	return errors.Is(err, turandot.ErrClassNotFound) ||
		errors.Is(err, turandot.ErrCompilationFailed)
}
