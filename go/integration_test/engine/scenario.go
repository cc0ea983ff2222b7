// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package engine holds end-to-end tests driving the calaf executor through
// the scripted interpreter, with real compiled classes and a real program
// cache. The calaf unit tests mock the interpreter; the scenarios here
// exercise the full pipeline from class definition to state delta.
package engine

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/Fantom-foundation/Turandot/go/constants"
	"github.com/Fantom-foundation/Turandot/go/executor/calaf"
	"github.com/Fantom-foundation/Turandot/go/interpreter/scripted"
	"github.com/Fantom-foundation/Turandot/go/programs"
	"github.com/Fantom-foundation/Turandot/go/state"
	"github.com/Fantom-foundation/Turandot/go/turandot"
)

// Scenario describes one end-to-end test case: a world state before and
// after the transaction, the block it runs in, and the expected verdict.
type Scenario struct {
	Before      *state.MemoryState
	After       *state.MemoryState
	Block       turandot.BlockContext
	Transaction turandot.Transaction

	// Status is the expected verdict. RejectReason is matched against the
	// reported rejection with errors.Is when set; Retdata, Fee, and
	// GasConsumed are compared exactly when set.
	Status       turandot.TransactionStatus
	RejectReason error
	Retdata      []turandot.Felt
	Fee          *turandot.Felt
	GasConsumed  *turandot.GasVector
}

// Run executes the scenario's transaction and checks all stated
// expectations. The result is returned for further checks.
func (s *Scenario) Run(t *testing.T, executor turandot.Executor) turandot.ExecutionResult {
	t.Helper()

	world := s.Before.Clone()
	result, err := executor.Run(s.Block, s.Transaction, world)
	if err != nil {
		t.Fatalf("failed to run transaction: %v", err)
	}

	if want, got := s.Status, result.Status; want != got {
		t.Fatalf("unexpected status, wanted %v, got %v (reject: %v, revert: %q)",
			want, got, result.RejectReason, result.RevertReason)
	}
	if s.RejectReason != nil && !errors.Is(result.RejectReason, s.RejectReason) {
		t.Errorf("unexpected reject reason: %v", result.RejectReason)
	}
	if s.Retdata != nil {
		if result.Execute == nil {
			t.Errorf("missing execute call info")
		} else if !slices.Equal(s.Retdata, result.Execute.Retdata) {
			t.Errorf("unexpected retdata, wanted %v, got %v",
				s.Retdata, result.Execute.Retdata)
		}
	}
	if s.Fee != nil && s.Fee.Ne(result.Fee) {
		t.Errorf("unexpected fee, wanted %v, got %v", s.Fee, result.Fee)
	}
	if s.GasConsumed != nil && *s.GasConsumed != result.GasConsumed {
		t.Errorf("unexpected gas consumption, wanted %+v, got %+v",
			*s.GasConsumed, result.GasConsumed)
	}

	world.Apply(result.Delta)
	if s.After != nil && !s.After.Equal(world) {
		diff := strings.Join(world.Diff(s.After), "\n\t")
		t.Fatalf("unexpected world state after the transaction:\n\t%v", diff)
	}
	return result
}

// ----------------------------------------------------------------------------

var (
	accountClass = turandot.ClassHash(turandot.NewFelt(0xacc0))
	vaultClass   = turandot.ClassHash(turandot.NewFelt(0x7a07))

	accountAddress   = turandot.Address(turandot.NewFelt(0xa11ce))
	vaultAddress     = turandot.Address(turandot.NewFelt(0x5af3))
	sequencerAddress = turandot.Address(turandot.NewFelt(0x5e9))
	feeTokenAddress  = turandot.Address(turandot.NewFelt(0xfee))

	startingBalance = turandot.NewFelt(1_000_000_000_000_000)
)

func newExecutor(t *testing.T) turandot.Executor {
	t.Helper()
	interpreter, err := turandot.NewInterpreter("scripted")
	if err != nil {
		t.Fatalf("failed to create interpreter: %v", err)
	}
	return calaf.NewExecutor(interpreter, programs.NewCache(scripted.NewCompiler()))
}

// accountDefinition builds the standard account class: every validation
// entry point approves, the constructor marks cell 0, and execution
// forwards the calldata triple (contract, key, value) to the callee's
// set_value entry point, returning its result.
func accountDefinition() turandot.ClassDefinition {
	builder := scripted.NewClassBuilder()
	builder.External("__validate__").
		UseSteps(50).
		Return(scripted.Const(turandot.Validated))
	builder.External("__validate_declare__").
		UseSteps(40).
		Return(scripted.Const(turandot.Validated))
	builder.External("__validate_deploy__").
		UseSteps(40).
		Return(scripted.Const(turandot.Validated))
	builder.Constructor().
		UseSteps(30).
		StorageWrite(scripted.Uint(0), scripted.Uint(1))
	builder.External("__execute__").
		CallContract(scripted.Calldata(0), "set_value",
			scripted.Calldata(1), scripted.Calldata(2)).Into("ret").
		ReturnVar("ret")
	return builder.Build()
}

// vaultDefinition builds the contract most scenarios call into: set_value
// stores the given value, announces the change, and returns the value; the
// L1 handler stores the given value without an announcement.
func vaultDefinition() turandot.ClassDefinition {
	builder := scripted.NewClassBuilder()
	builder.External("set_value").
		UseSteps(100).
		StorageWrite(scripted.Calldata(0), scripted.Calldata(1)).
		EmitEvent(
			[]scripted.Arg{scripted.Short("changed")},
			[]scripted.Arg{scripted.Calldata(0), scripted.Calldata(1)}).
		Return(scripted.Calldata(1))
	builder.L1Handler("handle_deposit").
		UseSteps(80).
		StorageWrite(scripted.Calldata(0), scripted.Calldata(1))
	return builder.Build()
}

// newWorld builds the standard initial state: a funded account contract and
// a vault to call into.
func newWorld() *state.MemoryState {
	world := state.NewMemoryState()
	world.DeclareClass(accountClass, turandot.NewFelt(0xacc0c), accountDefinition())
	world.DeclareClass(vaultClass, turandot.NewFelt(0x7a07c), vaultDefinition())
	world.SetClassHash(accountAddress, accountClass)
	world.SetClassHash(vaultAddress, vaultClass)
	world.SetBalance(feeTokenAddress, accountAddress, startingBalance)
	return world
}

func newBlock(revision turandot.Revision) turandot.BlockContext {
	return turandot.BlockContext{
		BlockNumber: 4000,
		Timestamp:   1700000000,
		ChainID:     turandot.NewFelt(0x7472),
		Sequencer:   sequencerAddress,
		FeeToken:    feeTokenAddress,
		GasPrices: turandot.GasPrices{
			L1Gas:   turandot.NewFelt(2),
			L2Gas:   turandot.NewFelt(1),
			DataGas: turandot.NewFelt(3),
		},
		Revision: revision,
	}
}

// defaultBounds covers every scenario of this package with room to spare.
func defaultBounds() turandot.ResourceBoundsSet {
	return turandot.ResourceBoundsSet{
		L1Gas:   turandot.ResourceBounds{MaxAmount: 1_000_000, MaxPricePerUnit: turandot.NewFelt(16)},
		L2Gas:   turandot.ResourceBounds{MaxAmount: 100_000_000, MaxPricePerUnit: turandot.NewFelt(16)},
		DataGas: turandot.ResourceBounds{MaxAmount: 1_000_000, MaxPricePerUnit: turandot.NewFelt(16)},
	}
}

// invokeV3 is a version 3 invoke from the standard account.
func invokeV3(nonce uint64, calldata ...turandot.Felt) turandot.Transaction {
	return turandot.Transaction{
		Hash:           turandot.TransactionHash(turandot.NewFelt(0x77, nonce)),
		Kind:           turandot.Invoke,
		Version:        turandot.V3,
		Sender:         accountAddress,
		Nonce:          turandot.NewFelt(nonce),
		Calldata:       calldata,
		ResourceBounds: defaultBounds(),
	}
}

// invokeV1 is a legacy invoke from the standard account with a generous fee
// ceiling.
func invokeV1(nonce uint64, calldata ...turandot.Felt) turandot.Transaction {
	return turandot.Transaction{
		Hash:     turandot.TransactionHash(turandot.NewFelt(0x11, nonce)),
		Kind:     turandot.Invoke,
		Version:  turandot.V1,
		Sender:   accountAddress,
		Nonce:    turandot.NewFelt(nonce),
		Calldata: calldata,
		MaxFee:   turandot.NewFelt(1_000_000_000),
	}
}

func mustTables(t *testing.T, revision turandot.Revision) *constants.Constants {
	t.Helper()
	tables, err := constants.ForRevision(revision)
	if err != nil {
		t.Fatalf("failed to load constants: %v", err)
	}
	return tables
}

// syscallSteps is the step budget debited for a syscall with the given
// extra gas charge.
func syscallSteps(tables *constants.Constants, syscall turandot.Syscall, extra turandot.Gas) turandot.Steps {
	gas := tables.SyscallBaseGasCost + tables.SyscallGasCosts[syscall] + extra
	return turandot.Steps((gas + tables.StepGasCost - 1) / tables.StepGasCost)
}

// eventExtra is the gas charged for an event on top of the syscall cost.
func eventExtra(tables *constants.Constants, keys, data int) turandot.Gas {
	return turandot.Gas(keys)*tables.EventKeyGasCost +
		turandot.Gas(data)*tables.EventDataWordGasCost
}

func feeAtBlockPrices(prices turandot.GasPrices, gas turandot.GasVector) turandot.Felt {
	return prices.L1Gas.Scale(uint64(gas.L1Gas)).
		Add(prices.L2Gas.Scale(uint64(gas.L2Gas))).
		Add(prices.DataGas.Scale(uint64(gas.DataGas)))
}

// legacyFee is the fee a version 1 transaction pays: the weighted maximum
// across the gas resources, priced in L1 gas.
func legacyFee(tables *constants.Constants, prices turandot.GasPrices, gas turandot.GasVector) turandot.Felt {
	weigh := func(amount turandot.Gas, weight uint64) turandot.Gas {
		return turandot.Gas((uint64(amount)*weight + constants.LegacyWeightScale - 1) /
			constants.LegacyWeightScale)
	}
	weighted := max(
		weigh(gas.L1Gas, tables.LegacyWeights.L1Gas),
		weigh(gas.L2Gas, tables.LegacyWeights.L2Gas),
		weigh(gas.DataGas, tables.LegacyWeights.DataGas),
	)
	return prices.L1Gas.Scale(uint64(weighted))
}
