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
	"slices"

	"github.com/Fantom-foundation/Turandot/go/turandot"
	"github.com/ethereum/go-ethereum/crypto"
)

// keccakRateBytes is the input block size of one Keccak-256 permutation
// round. The padding adds at least one byte, so an input of exactly one block
// still requires a second round.
const keccakRateBytes = 136

// blockHashLag is the number of most recent blocks whose hashes are not yet
// available to programs.
const blockHashLag = 10

// frameContext is the SyscallContext of a single call frame. It meters the
// frame, records its state accesses, events, messages, and nested calls, and
// enforces the restrictions of the validation phase.
type frameContext struct {
	execution *execution
	contract  turandot.Address
	class     turandot.ClassHash
	caller    turandot.Address
	selector  turandot.Selector

	used     turandot.Resources
	reads    []turandot.StorageAccess
	writes   []turandot.StorageAccess
	events   []turandot.OrderedEvent
	messages []turandot.OrderedMessage
	inner    []turandot.CallInfo

	err   error // first deterministic failure reported to the program
	fault error // infrastructure failure to escalate past the interpreter
}

// failFrame records the first failing syscall of the frame and returns the
// error for the interpreter to abort with.
func (f *frameContext) failFrame(err error) error {
	if f.err == nil {
		f.err = err
	}
	return err
}

// escalate records an infrastructure failure. The executor picks it up after
// the interpreter aborted the frame and forwards it without a verdict.
func (f *frameContext) escalate(err error) error {
	if f.fault == nil {
		f.fault = err
	}
	return err
}

func (f *frameContext) debit(steps turandot.Steps) {
	f.execution.stepsLeft -= steps
	f.execution.used.Steps += steps
	f.used.Steps += steps
}

func (f *frameContext) UseSteps(steps turandot.Steps) error {
	if steps > f.execution.stepsLeft {
		f.debit(f.execution.stepsLeft)
		return f.failFrame(turandot.ErrOutOfSteps)
	}
	f.debit(steps)
	return nil
}

func (f *frameContext) StepsLeft() turandot.Steps {
	return f.execution.stepsLeft
}

// chargeSyscall debits the gas cost of a syscall from the step budget at the
// step gas rate, rounding up so that partial steps are never free.
func (f *frameContext) chargeSyscall(syscall turandot.Syscall, extra turandot.Gas) error {
	tables := f.execution.constants
	gas := tables.SyscallBaseGasCost + tables.SyscallGasCosts[syscall] + extra
	steps := turandot.Steps((gas + tables.StepGasCost - 1) / tables.StepGasCost)
	if steps > f.execution.stepsLeft {
		f.debit(f.execution.stepsLeft)
		return f.failFrame(turandot.ErrOutOfSteps)
	}
	f.debit(steps)
	return nil
}

func (f *frameContext) StorageRead(key turandot.StorageKey) (turandot.Felt, error) {
	if err := f.chargeSyscall(turandot.SyscallStorageRead, 0); err != nil {
		return turandot.Felt{}, err
	}
	value, err := f.execution.overlay.StorageAt(f.contract, key)
	if err != nil {
		return turandot.Felt{}, f.escalate(err)
	}
	f.reads = append(f.reads, turandot.StorageAccess{Key: key, Value: value})
	return value, nil
}

func (f *frameContext) StorageWrite(key turandot.StorageKey, value turandot.Felt) error {
	if err := f.chargeSyscall(turandot.SyscallStorageWrite, 0); err != nil {
		return err
	}
	f.execution.overlay.SetStorage(f.contract, key, value)
	f.writes = append(f.writes, turandot.StorageAccess{Key: key, Value: value})
	f.execution.storageWrites++
	return nil
}

func (f *frameContext) EmitEvent(keys []turandot.Felt, data []turandot.Felt) error {
	tables := f.execution.constants
	if len(keys) > tables.MaxEventKeys || len(data) > tables.MaxEventDataWords {
		return f.failFrame(fmt.Errorf("%w: %d keys, %d data words",
			turandot.ErrEventTooLarge, len(keys), len(data)))
	}
	extra := turandot.Gas(len(keys))*tables.EventKeyGasCost +
		turandot.Gas(len(data))*tables.EventDataWordGasCost
	if err := f.chargeSyscall(turandot.SyscallEmitEvent, extra); err != nil {
		return err
	}
	f.events = append(f.events, turandot.OrderedEvent{
		Order: f.execution.eventOrder,
		Keys:  slices.Clone(keys),
		Data:  slices.Clone(data),
	})
	f.execution.eventOrder++
	return nil
}

func (f *frameContext) SendMessageToL1(to turandot.Felt, payload []turandot.Felt) error {
	tables := f.execution.constants
	if len(payload) > tables.MaxL1PayloadWords {
		return f.failFrame(fmt.Errorf("%w: %d words",
			turandot.ErrMessageTooLarge, len(payload)))
	}
	extra := turandot.Gas(len(payload)) * tables.MessagePayloadWordGasCost
	if err := f.chargeSyscall(turandot.SyscallSendMessageToL1, extra); err != nil {
		return err
	}
	f.messages = append(f.messages, turandot.OrderedMessage{
		Order:   f.execution.messageOrder,
		To:      to.L1Address(),
		Payload: slices.Clone(payload),
	})
	f.execution.messageOrder++
	f.execution.payloadWords += len(payload)
	return nil
}

func (f *frameContext) CallContract(
	contract turandot.Address,
	selector turandot.Selector,
	calldata []turandot.Felt,
) ([]turandot.Felt, error) {
	if err := f.chargeSyscall(turandot.SyscallCallContract, 0); err != nil {
		return nil, err
	}
	if f.execution.phase == validationPhase && contract != f.execution.transaction.Sender {
		return nil, f.failFrame(fmt.Errorf("%w: call to %v",
			turandot.ErrForbiddenInValidation, contract))
	}
	info, failure, err := f.execution.executeCall(callRequest{
		kind:           turandot.Call,
		entryPointType: turandot.ExternalEntryPoint,
		contract:       contract,
		caller:         f.contract,
		selector:       selector,
		calldata:       slices.Clone(calldata),
	})
	return f.finishCall(info, failure, err)
}

func (f *frameContext) LibraryCall(
	class turandot.ClassHash,
	selector turandot.Selector,
	calldata []turandot.Felt,
) ([]turandot.Felt, error) {
	if err := f.chargeSyscall(turandot.SyscallLibraryCall, 0); err != nil {
		return nil, err
	}
	// The class code runs in the context of the calling contract, with the
	// caller of the current frame preserved.
	info, failure, err := f.execution.executeCall(callRequest{
		kind:           turandot.LibraryCall,
		entryPointType: turandot.ExternalEntryPoint,
		contract:       f.contract,
		class:          class,
		caller:         f.caller,
		selector:       selector,
		calldata:       slices.Clone(calldata),
	})
	return f.finishCall(info, failure, err)
}

// finishCall folds the outcome of a nested call into the frame.
func (f *frameContext) finishCall(
	info turandot.CallInfo,
	failure *turandot.CallFailure,
	err error,
) ([]turandot.Felt, error) {
	if err != nil {
		return nil, f.escalate(err)
	}
	f.inner = append(f.inner, info)
	f.used = f.used.Add(info.Resources)
	if failure != nil {
		return nil, f.failFrame(failure)
	}
	return info.Retdata, nil
}

func (f *frameContext) Deploy(
	class turandot.ClassHash,
	salt turandot.Felt,
	constructorCalldata []turandot.Felt,
) (turandot.Address, []turandot.Felt, error) {
	x := f.execution
	if x.phase == validationPhase && !x.constants.DeployInValidation {
		return turandot.Address{}, nil, f.failFrame(fmt.Errorf("%w: deploy",
			turandot.ErrForbiddenInValidation))
	}
	if err := f.chargeSyscall(turandot.SyscallDeploy, 0); err != nil {
		return turandot.Address{}, nil, err
	}

	address := turandot.DeployedContractAddress(f.contract, salt, class, constructorCalldata)
	deployed, err := x.overlay.ClassHashAt(address)
	if err != nil {
		return turandot.Address{}, nil, f.escalate(err)
	}
	if !turandot.Felt(deployed).IsZero() {
		return turandot.Address{}, nil, f.failFrame(fmt.Errorf("%w: %v",
			turandot.ErrContractAlreadyDeployed, address))
	}

	// The deployment is recorded in the current frame, a failing constructor
	// takes it down together with the frame.
	x.overlay.SetClassHash(address, class)
	info, failure, err := x.constructorCall(address, f.contract, class, slices.Clone(constructorCalldata))
	if err != nil {
		return turandot.Address{}, nil, f.escalate(err)
	}
	var retdata []turandot.Felt
	if info != nil {
		f.inner = append(f.inner, *info)
		f.used = f.used.Add(info.Resources)
		retdata = info.Retdata
	}
	if failure != nil {
		return turandot.Address{}, nil, f.failFrame(failure)
	}
	return address, retdata, nil
}

func (f *frameContext) ReplaceClass(class turandot.ClassHash) error {
	x := f.execution
	if x.phase == validationPhase {
		return f.failFrame(fmt.Errorf("%w: replace class",
			turandot.ErrForbiddenInValidation))
	}
	if err := f.chargeSyscall(turandot.SyscallReplaceClass, 0); err != nil {
		return err
	}
	if _, err := x.overlay.CompiledClassHash(class); err != nil {
		if errors.Is(err, turandot.ErrClassNotFound) {
			return f.failFrame(err)
		}
		return f.escalate(err)
	}
	x.overlay.SetClassHash(f.contract, class)
	return nil
}

func (f *frameContext) GetExecutionInfo() (turandot.ExecutionInfo, error) {
	if err := f.chargeSyscall(turandot.SyscallGetExecutionInfo, 0); err != nil {
		return turandot.ExecutionInfo{}, err
	}
	x := f.execution
	info := turandot.ExecutionInfo{
		BlockNumber:     x.block.BlockNumber,
		Timestamp:       x.block.Timestamp,
		Sequencer:       x.block.Sequencer,
		ChainID:         x.block.ChainID,
		TransactionHash: x.transaction.Hash,
		Version:         x.transaction.Version,
		Sender:          x.transaction.Sender,
		Nonce:           x.transaction.Nonce,
		MaxFee:          x.transaction.MaxFee,
		Tip:             x.transaction.Tip,
		Contract:        f.contract,
		Caller:          f.caller,
		Selector:        f.selector,
	}
	if x.phase == validationPhase {
		// validation outcomes must not depend on the block producer
		info.Sequencer = turandot.Address{}
	}
	return info, nil
}

func (f *frameContext) GetBlockHash(number int64) (turandot.BlockHash, error) {
	x := f.execution
	if x.phase == validationPhase {
		return turandot.BlockHash{}, f.failFrame(fmt.Errorf("%w: get block hash",
			turandot.ErrForbiddenInValidation))
	}
	if err := f.chargeSyscall(turandot.SyscallGetBlockHash, 0); err != nil {
		return turandot.BlockHash{}, err
	}
	if x.block.History == nil || number < 0 || number > x.block.BlockNumber-blockHashLag {
		return turandot.BlockHash{}, f.failFrame(fmt.Errorf("%w: block %d",
			turandot.ErrBlockHashUnavailable, number))
	}
	hash, err := x.block.History.BlockHash(number)
	if err != nil {
		return turandot.BlockHash{}, f.escalate(err)
	}
	return hash, nil
}

func (f *frameContext) Keccak(data []byte) ([32]byte, error) {
	rounds := turandot.Gas(len(data)/keccakRateBytes + 1)
	extra := rounds * f.execution.constants.KeccakRoundGasCost
	if err := f.chargeSyscall(turandot.SyscallKeccak, extra); err != nil {
		return [32]byte{}, err
	}
	var hash [32]byte
	copy(hash[:], crypto.Keccak256(data))
	return hash, nil
}

func (f *frameContext) EcAdd(p, q turandot.CurvePoint) (turandot.CurvePoint, error) {
	if err := f.chargeSyscall(turandot.SyscallEcAdd, 0); err != nil {
		return turandot.CurvePoint{}, err
	}
	for _, point := range []turandot.CurvePoint{p, q} {
		if !point.IsInfinity() && !point.IsOnCurve() {
			return turandot.CurvePoint{}, f.failFrame(fmt.Errorf("%w: (%v, %v)",
				turandot.ErrPointNotOnCurve, point.X, point.Y))
		}
	}
	return turandot.CurveAdd(p, q), nil
}

func (f *frameContext) EcMul(p turandot.CurvePoint, scalar turandot.Felt) (turandot.CurvePoint, error) {
	if err := f.chargeSyscall(turandot.SyscallEcMul, 0); err != nil {
		return turandot.CurvePoint{}, err
	}
	if !p.IsInfinity() && !p.IsOnCurve() {
		return turandot.CurvePoint{}, f.failFrame(fmt.Errorf("%w: (%v, %v)",
			turandot.ErrPointNotOnCurve, p.X, p.Y))
	}
	return turandot.CurveMul(p, scalar), nil
}
