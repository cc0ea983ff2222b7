// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package calaf provides the reference transaction executor of Turandot. It
// implements the admissibility checks, the validation and execution phases
// with their recursive contract calls, the metering of steps, builtins, and
// syscalls, and the settlement of fees against the block's gas prices.
package calaf

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/Turandot/go/constants"
	"github.com/Fantom-foundation/Turandot/go/programs"
	"github.com/Fantom-foundation/Turandot/go/state"
	"github.com/Fantom-foundation/Turandot/go/turandot"
)

func init() {
	turandot.RegisterExecutorFactory("calaf", newExecutor)
}

func newExecutor(interpreter turandot.Interpreter, compiler turandot.Compiler) turandot.Executor {
	return NewExecutor(interpreter, programs.NewCache(compiler))
}

// NewExecutor creates an executor running programs on the given interpreter
// and obtaining them from the given cache. The cache may be shared between
// executor instances serving the same chain.
func NewExecutor(interpreter turandot.Interpreter, cache *programs.Cache) turandot.Executor {
	return &executor{
		interpreter: interpreter,
		programs:    cache,
	}
}

// NewExecutorWithConstants creates an executor like NewExecutor, but running
// every block against the given constants table instead of the embedded
// table of the block's revision. It serves the driver's cost table
// experiments; consensus-critical code must use NewExecutor.
func NewExecutorWithConstants(
	interpreter turandot.Interpreter,
	cache *programs.Cache,
	tables *constants.Constants,
) turandot.Executor {
	return &executor{
		interpreter: interpreter,
		programs:    cache,
		tables:      tables,
	}
}

type executor struct {
	interpreter turandot.Interpreter
	programs    *programs.Cache
	tables      *constants.Constants // overrides the embedded tables when not nil
}

func (e *executor) Run(
	block turandot.BlockContext,
	transaction turandot.Transaction,
	reader turandot.StateReader,
) (turandot.ExecutionResult, error) {
	tables := e.tables
	if tables == nil {
		var err error
		tables, err = constants.ForRevision(block.Revision)
		if err != nil {
			return turandot.ExecutionResult{}, err
		}
	}

	if reason := checkTransaction(tables, transaction); reason != nil {
		return rejected(reason), nil
	}

	cached, err := state.NewCachingReader(reader, state.CachingConfig{})
	if err != nil {
		return turandot.ExecutionResult{}, err
	}
	overlay := state.NewOverlay(cached)

	if reason, err := checkAgainstState(tables, block, transaction, overlay); err != nil {
		return turandot.ExecutionResult{}, err
	} else if reason != nil {
		return rejected(reason), nil
	}

	execution := &execution{
		executor:    e,
		constants:   tables,
		block:       block,
		transaction: transaction,
		overlay:     overlay,
	}
	return execution.run()
}

// rejected is the result of a transaction refused before any phase ran.
func rejected(reason error) turandot.ExecutionResult {
	return turandot.ExecutionResult{
		Status:       turandot.Rejected,
		RejectReason: reason,
	}
}

// checkTransaction enforces the admissibility rules that need no state
// access: the accepted version range and the gateway size limits.
func checkTransaction(tables *constants.Constants, transaction turandot.Transaction) error {
	if transaction.Kind != turandot.L1Handler {
		switch transaction.Version {
		case turandot.V1:
			// accepted by every revision
		case turandot.V3:
			if !tables.ResourceBoundsEnabled {
				return fmt.Errorf("%w: version 3 not enabled",
					turandot.ErrInvalidTransactionVersion)
			}
		default:
			return fmt.Errorf("%w: %d",
				turandot.ErrInvalidTransactionVersion, transaction.Version)
		}
	}
	if len(transaction.Calldata) > tables.MaxCalldataWords {
		return fmt.Errorf("%w: %d words, limit is %d",
			turandot.ErrCalldataTooLong, len(transaction.Calldata), tables.MaxCalldataWords)
	}
	if transaction.Kind == turandot.Declare && len(transaction.Class) > tables.MaxClassSize {
		return fmt.Errorf("%w: %d bytes, limit is %d",
			turandot.ErrClassTooLarge, len(transaction.Class), tables.MaxClassSize)
	}
	return nil
}

// checkAgainstState enforces the admissibility rules that read the current
// state: address derivation, redundant declarations and deployments, nonce
// continuity, declared gas prices, and the solvency of the sender. The reason
// is the deterministic verdict, the error an infrastructure failure.
func checkAgainstState(
	tables *constants.Constants,
	block turandot.BlockContext,
	transaction turandot.Transaction,
	reader turandot.StateReader,
) (reason error, err error) {
	switch transaction.Kind {
	case turandot.L1Handler:
		// paid and sequenced on the base layer, no account side checks
		return nil, nil
	case turandot.Declare:
		if _, err := reader.CompiledClassHash(transaction.ClassHash); err == nil {
			return fmt.Errorf("%w: %v",
				turandot.ErrClassAlreadyDeclared, transaction.ClassHash), nil
		} else if !errors.Is(err, turandot.ErrClassNotFound) {
			return nil, err
		}
	case turandot.DeployAccount:
		derived := turandot.DeployedContractAddress(
			turandot.Address{}, transaction.ContractAddressSalt,
			transaction.ClassHash, transaction.Calldata)
		if transaction.Sender != derived {
			return fmt.Errorf("%w: derived %v, transaction carries %v",
				turandot.ErrAddressMismatch, derived, transaction.Sender), nil
		}
		deployed, err := reader.ClassHashAt(derived)
		if err != nil {
			return nil, err
		}
		if !turandot.Felt(deployed).IsZero() {
			return fmt.Errorf("%w: %v",
				turandot.ErrContractAlreadyDeployed, derived), nil
		}
	}

	nonce, err := reader.NonceAt(transaction.Sender)
	if err != nil {
		return nil, err
	}
	if nonce.Ne(transaction.Nonce) {
		return fmt.Errorf("%w: account %v expects %v, transaction carries %v",
			turandot.ErrNonceMismatch, transaction.Sender, nonce, transaction.Nonce), nil
	}

	return checkFeePreconditions(tables, block, transaction, reader)
}

// execution is the mutable context of a single transaction execution: the
// state overlay, the step budget of the current phase, and the transaction
// global counters feeding the fee derivation.
type execution struct {
	executor    *executor
	constants   *constants.Constants
	block       turandot.BlockContext
	transaction turandot.Transaction
	overlay     *state.Overlay

	phase     phase
	stepsLeft turandot.Steps
	depth     int

	used          turandot.Resources
	eventOrder    uint64
	messageOrder  uint64
	payloadWords  int
	storageWrites int
}

// phase distinguishes the validation and the execution phase of a
// transaction. Several syscalls are restricted during validation.
type phase int

const (
	validationPhase phase = iota
	executionPhase
)

// beginPhase resets the step budget to the phase cap of the constants table,
// further limited by the steps still affordable under the transaction's L2
// gas bound.
func (x *execution) beginPhase(p phase) {
	x.phase = p
	budget := x.constants.ValidateMaxSteps
	if p == executionPhase {
		budget = x.constants.ExecuteMaxSteps
	}
	if x.transaction.Kind != turandot.L1Handler && x.transaction.Version == turandot.V3 {
		bound := x.transaction.ResourceBounds.L2Gas.MaxAmount
		affordable := turandot.Steps(bound/x.constants.StepGasCost) - x.used.Steps
		if affordable < 0 {
			affordable = 0
		}
		if affordable < budget {
			budget = affordable
		}
	}
	x.stepsLeft = budget
}

func (x *execution) run() (turandot.ExecutionResult, error) {
	begin := x.overlay.Checkpoint()
	result := turandot.ExecutionResult{}

	reject := func(reason error) (turandot.ExecutionResult, error) {
		x.overlay.Discard(begin)
		result.Status = turandot.Rejected
		result.RejectReason = reason
		result.RevertReason = ""
		result.Resources = x.used
		result.Fee = turandot.Felt{}
		result.FeeTransfer = nil
		return result, nil
	}

	// A deploy-account transaction constructs its own account before anything
	// can be validated; a failing constructor leaves nothing to charge.
	if x.transaction.Kind == turandot.DeployAccount {
		info, failure, err := x.deployAccount()
		if err != nil {
			return turandot.ExecutionResult{}, err
		}
		result.Execute = info
		if failure != nil {
			return reject(failure)
		}
	}

	if x.transaction.Kind != turandot.L1Handler {
		info, reason, err := x.validate()
		if err != nil {
			return turandot.ExecutionResult{}, err
		}
		result.Validate = info
		if reason != nil {
			return reject(reason)
		}

		nonce, err := x.overlay.NonceAt(x.transaction.Sender)
		if err != nil {
			return turandot.ExecutionResult{}, err
		}
		x.overlay.SetNonce(x.transaction.Sender, nonce.Add(turandot.NewFelt(1)))
	}

	var failure *turandot.CallFailure
	switch x.transaction.Kind {
	case turandot.Invoke:
		info, f, err := x.invoke()
		if err != nil {
			return turandot.ExecutionResult{}, err
		}
		result.Execute = info
		failure = f
	case turandot.Declare:
		x.overlay.DeclareClass(
			x.transaction.ClassHash,
			x.transaction.CompiledClassHash,
			x.transaction.Class)
	case turandot.DeployAccount:
		// the account was established before validation
	case turandot.L1Handler:
		info, f, err := x.handleL1Message()
		if err != nil {
			return turandot.ExecutionResult{}, err
		}
		result.Execute = info
		failure = f
	}

	if failure != nil {
		if !x.constants.RevertsEnabled {
			return reject(failure)
		}
		result.Status = turandot.Reverted
		result.RevertReason = failure.Error()
	}

	result.Resources = x.used
	result.GasConsumed = x.gasConsumed()

	// L1 handler transactions are paid for on the base layer.
	if x.transaction.Kind != turandot.L1Handler {
		fee, info, reason, err := x.settleFee(result.GasConsumed)
		if err != nil {
			return turandot.ExecutionResult{}, err
		}
		if reason != nil {
			return reject(reason)
		}
		result.Fee = fee
		result.FeeTransfer = info
	}

	x.overlay.Merge(begin)
	delta, err := x.overlay.Flatten(x.constants.CompressStateDiff)
	if err != nil {
		return turandot.ExecutionResult{}, err
	}
	result.Delta = delta
	return result, nil
}

// validate runs the validation entry point of the transaction and checks its
// verdict. A non-nil reason rejects the transaction.
func (x *execution) validate() (info *turandot.CallInfo, reason error, err error) {
	x.beginPhase(validationPhase)

	request := callRequest{
		kind:           turandot.Call,
		entryPointType: turandot.ExternalEntryPoint,
		contract:       x.transaction.Sender,
		selector:       turandot.ValidateSelector,
		calldata:       x.transaction.Calldata,
	}
	switch x.transaction.Kind {
	case turandot.Declare:
		request.selector = turandot.ValidateDeclareSelector
		request.calldata = []turandot.Felt{turandot.Felt(x.transaction.ClassHash)}
	case turandot.DeployAccount:
		request.selector = turandot.ValidateDeploySelector
		request.calldata = append([]turandot.Felt{
			turandot.Felt(x.transaction.ClassHash),
			x.transaction.ContractAddressSalt,
		}, x.transaction.Calldata...)
	}

	called, failure, err := x.executeCall(request)
	if err != nil {
		return nil, nil, err
	}
	info = &called
	if failure != nil {
		return info, fmt.Errorf("%w: %w", turandot.ErrValidationFailed, failure), nil
	}
	if len(called.Retdata) != 1 || called.Retdata[0].Ne(turandot.Validated) {
		return info, fmt.Errorf("%w: unexpected validation result %v",
			turandot.ErrValidationFailed, called.Retdata), nil
	}
	return info, nil, nil
}

// invoke runs the execution entry point of an invoke transaction.
func (x *execution) invoke() (*turandot.CallInfo, *turandot.CallFailure, error) {
	x.beginPhase(executionPhase)
	info, failure, err := x.executeCall(callRequest{
		kind:           turandot.Call,
		entryPointType: turandot.ExternalEntryPoint,
		contract:       x.transaction.Sender,
		selector:       turandot.ExecuteSelector,
		calldata:       x.transaction.Calldata,
	})
	if err != nil {
		return nil, nil, err
	}
	return &info, failure, nil
}

// deployAccount deploys the account contract of a deploy-account transaction
// and runs its constructor.
func (x *execution) deployAccount() (*turandot.CallInfo, *turandot.CallFailure, error) {
	x.beginPhase(executionPhase)
	account := x.transaction.Sender
	x.overlay.SetClassHash(account, x.transaction.ClassHash)
	return x.constructorCall(
		account, turandot.Address{},
		x.transaction.ClassHash, x.transaction.Calldata)
}

// handleL1Message runs the handler entry point selected by an L1 handler
// transaction. There is no validation phase, the message was authorized on
// the base layer.
func (x *execution) handleL1Message() (*turandot.CallInfo, *turandot.CallFailure, error) {
	x.beginPhase(executionPhase)
	info, failure, err := x.executeCall(callRequest{
		kind:           turandot.Call,
		entryPointType: turandot.L1HandlerEntryPoint,
		contract:       x.transaction.Sender,
		selector:       x.transaction.EntryPointSelector,
		calldata:       x.transaction.Calldata,
	})
	if err != nil {
		return nil, nil, err
	}
	return &info, failure, nil
}
