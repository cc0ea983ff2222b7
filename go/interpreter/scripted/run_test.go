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
	"errors"
	"strings"
	"testing"

	"github.com/Fantom-foundation/Turandot/go/turandot"
	"go.uber.org/mock/gomock"
)

// runEntry compiles the given class definition and runs the named external
// entry point against the given syscall context.
func runEntry(
	t *testing.T,
	context turandot.SyscallContext,
	definition turandot.ClassDefinition,
	name string,
	calldata ...turandot.Felt,
) turandot.Result {
	t.Helper()
	program, err := NewCompiler().Compile(definition)
	if err != nil {
		t.Fatalf("failed to compile class definition: %v", err)
	}
	result, err := NewInterpreter().Run(turandot.Parameters{
		Context:        context,
		Program:        program,
		EntryPointType: turandot.ExternalEntryPoint,
		Selector:       turandot.SelectorFromName(name),
		Calldata:       calldata,
	})
	if err != nil {
		t.Fatalf("failed to run script: %v", err)
	}
	return result
}

func wantRetdata(t *testing.T, result turandot.Result, want ...turandot.Felt) {
	t.Helper()
	if !result.Success {
		t.Fatalf("expected the script to succeed, failed with %v", result.Retdata)
	}
	if len(result.Retdata) != len(want) {
		t.Fatalf("unexpected retdata length, wanted %d, got %d", len(want), len(result.Retdata))
	}
	for i := range want {
		if want[i] != result.Retdata[i] {
			t.Errorf("unexpected retdata at %d, wanted %v, got %v", i, want[i], result.Retdata[i])
		}
	}
}

func TestRun_ExecutesTheRequestedEntryPoint(t *testing.T) {
	class := NewClassBuilder()
	class.External("ping").Return(Uint(1))
	class.External("pong").Return(Uint(2))
	definition := class.Build()

	wantRetdata(t, runEntry(t, nil, definition, "ping"), turandot.NewFelt(1))
	wantRetdata(t, runEntry(t, nil, definition, "pong"), turandot.NewFelt(2))
}

func TestRun_EmptyScriptsSucceed(t *testing.T) {
	class := NewClassBuilder()
	class.External("noop")
	wantRetdata(t, runEntry(t, nil, class.Build(), "noop"))
}

func TestRun_ReportsStepsThroughTheContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := turandot.NewMockSyscallContext(ctrl)
	context.EXPECT().UseSteps(turandot.Steps(120)).Return(nil)

	class := NewClassBuilder()
	class.External("run").UseSteps(120)
	result := runEntry(t, context, class.Build(), "run")
	if !result.Success {
		t.Errorf("expected the script to succeed")
	}
}

func TestRun_AccumulatesBuiltinsAndMemoryHoles(t *testing.T) {
	class := NewClassBuilder()
	class.External("run").
		UseBuiltin(turandot.Pedersen, 2).
		UseBuiltin(turandot.Bitwise, 1).
		UseBuiltin(turandot.Pedersen, 3).
		MemoryHoles(4).
		MemoryHoles(1)

	result := runEntry(t, nil, class.Build(), "run")
	if want, got := uint64(5), result.Builtins[turandot.Pedersen]; want != got {
		t.Errorf("unexpected pedersen count, wanted %d, got %d", want, got)
	}
	if want, got := uint64(1), result.Builtins[turandot.Bitwise]; want != got {
		t.Errorf("unexpected bitwise count, wanted %d, got %d", want, got)
	}
	if want, got := uint64(5), result.MemoryHoles; want != got {
		t.Errorf("unexpected memory holes, wanted %d, got %d", want, got)
	}
}

func TestRun_ResolvesOperandReferences(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := turandot.NewMockSyscallContext(ctrl)
	context.EXPECT().
		StorageRead(turandot.StorageKey(turandot.NewFelt(0x10))).
		Return(turandot.NewFelt(42), nil)
	context.EXPECT().
		StorageWrite(turandot.StorageKey(turandot.NewFelt(0x11)), turandot.NewFelt(42)).
		Return(nil)

	class := NewClassBuilder()
	class.External("run").
		StorageRead(Uint(0x10)).Into("value").
		StorageWrite(Calldata(0), Var("value"))

	result := runEntry(t, context, class.Build(), "run", turandot.NewFelt(0x11))
	if !result.Success {
		t.Errorf("expected the script to succeed, failed with %v", result.Retdata)
	}
}

func TestRun_VariablesIndexIntoCallResults(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := turandot.NewMockSyscallContext(ctrl)
	context.EXPECT().
		CallContract(
			turandot.Address(turandot.NewFelt(0x7e4)),
			turandot.SelectorFromName("get_values"),
			nil,
		).
		Return([]turandot.Felt{
			turandot.NewFelt(10),
			turandot.NewFelt(20),
			turandot.NewFelt(30),
		}, nil)
	context.EXPECT().
		StorageWrite(turandot.StorageKey(turandot.NewFelt(0x10)), turandot.NewFelt(30)).
		Return(nil)

	class := NewClassBuilder()
	class.External("run").
		CallContract(Uint(0x7e4), "get_values").Into("ret").
		StorageWrite(Uint(0x10), VarAt("ret", 2)).
		Return(VarAt("ret", 1))

	wantRetdata(t, runEntry(t, context, class.Build(), "run"), turandot.NewFelt(20))
}

func TestRun_MissingCalldataFailsTheScript(t *testing.T) {
	class := NewClassBuilder()
	class.External("run").StorageWrite(Uint(1), Calldata(2))

	result := runEntry(t, nil, class.Build(), "run")
	if result.Success {
		t.Fatalf("expected the script to fail")
	}
	want := turandot.NewFeltFromBytes([]byte("calldata index 2 out of range")...)
	if len(result.Retdata) != 1 || result.Retdata[0] != want {
		t.Errorf("unexpected failure reason, wanted [%v], got %v", want, result.Retdata)
	}
}

func TestRun_UnknownVariablesFailTheScript(t *testing.T) {
	class := NewClassBuilder()
	class.External("run").Return(Var("ghost"))

	result := runEntry(t, nil, class.Build(), "run")
	if result.Success || len(result.Retdata) == 0 {
		t.Errorf("expected the script to fail with a reason, got %v", result.Retdata)
	}
}

func TestRun_SyscallErrorsAbortTheScript(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := turandot.NewMockSyscallContext(ctrl)
	context.EXPECT().UseSteps(turandot.Steps(10)).Return(turandot.ErrOutOfSteps)

	class := NewClassBuilder()
	class.External("run").
		UseSteps(10).
		StorageWrite(Uint(1), Uint(2))

	result := runEntry(t, context, class.Build(), "run")
	if result.Success {
		t.Fatalf("expected the script to fail")
	}
	want := turandot.NewFeltFromBytes([]byte("out of steps")...)
	if len(result.Retdata) != 1 || result.Retdata[0] != want {
		t.Errorf("unexpected failure reason, wanted [%v], got %v", want, result.Retdata)
	}
}

func TestRun_LongAbortReasonsAreChunked(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := turandot.NewMockSyscallContext(ctrl)
	context.EXPECT().
		UseSteps(turandot.Steps(1)).
		Return(errors.New(strings.Repeat("x", 40)))

	class := NewClassBuilder()
	class.External("run").UseSteps(1)

	result := runEntry(t, context, class.Build(), "run")
	first := turandot.NewFeltFromBytes([]byte(strings.Repeat("x", 31))...)
	second := turandot.NewFeltFromBytes([]byte(strings.Repeat("x", 9))...)
	if len(result.Retdata) != 2 || result.Retdata[0] != first || result.Retdata[1] != second {
		t.Errorf("unexpected failure reason, wanted [%v %v], got %v", first, second, result.Retdata)
	}
}

func TestRun_FailReportsTheGivenReasons(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := turandot.NewMockSyscallContext(ctrl)

	class := NewClassBuilder()
	class.External("run").
		UseBuiltin(turandot.Poseidon, 1).
		Fail(Short("INSUFFICIENT_FUNDS"), Uint(9)).
		StorageWrite(Uint(1), Uint(2))

	result := runEntry(t, context, class.Build(), "run")
	if result.Success {
		t.Fatalf("expected the script to fail")
	}
	reason := turandot.NewFeltFromBytes([]byte("INSUFFICIENT_FUNDS")...)
	if len(result.Retdata) != 2 || result.Retdata[0] != reason || result.Retdata[1] != turandot.NewFelt(9) {
		t.Errorf("unexpected failure reason, got %v", result.Retdata)
	}
	if want, got := uint64(1), result.Builtins[turandot.Poseidon]; want != got {
		t.Errorf("unexpected poseidon count, wanted %d, got %d", want, got)
	}
}

func TestRun_ReturnStopsTheScript(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := turandot.NewMockSyscallContext(ctrl)

	class := NewClassBuilder()
	class.External("run").
		Return(Uint(7)).
		UseSteps(99)

	wantRetdata(t, runEntry(t, context, class.Build(), "run"), turandot.NewFelt(7))
}

func TestRun_ReturnVarForwardsWholeResults(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := turandot.NewMockSyscallContext(ctrl)
	retdata := []turandot.Felt{
		turandot.NewFelt(1),
		turandot.NewFelt(2),
		turandot.NewFelt(3),
	}
	context.EXPECT().
		CallContract(turandot.Address(turandot.NewFelt(0x7e4)), turandot.SelectorFromName("inner"), nil).
		Return(retdata, nil)

	class := NewClassBuilder()
	class.External("run").
		CallContract(Uint(0x7e4), "inner").Into("ret").
		ReturnVar("ret")

	wantRetdata(t, runEntry(t, context, class.Build(), "run"), retdata...)
}

func TestRun_EventsAndMessagesForwardTheirPayloads(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := turandot.NewMockSyscallContext(ctrl)
	context.EXPECT().
		EmitEvent(
			[]turandot.Felt{turandot.NewFelt(0xe1)},
			[]turandot.Felt{turandot.NewFelt(1), turandot.NewFelt(0xca)},
		).
		Return(nil)
	context.EXPECT().
		SendMessageToL1(
			turandot.NewFelt(0x1111),
			[]turandot.Felt{turandot.NewFelt(0xca)},
		).
		Return(nil)

	class := NewClassBuilder()
	class.External("run").
		EmitEvent([]Arg{Uint(0xe1)}, []Arg{Uint(1), Calldata(0)}).
		SendMessage(Uint(0x1111), Calldata(0))

	result := runEntry(t, context, class.Build(), "run", turandot.NewFelt(0xca))
	if !result.Success {
		t.Errorf("expected the script to succeed, failed with %v", result.Retdata)
	}
}

func TestRun_DeployBindsTheAddressAndConstructorOutput(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := turandot.NewMockSyscallContext(ctrl)
	deployed := turandot.Address(turandot.NewFelt(0xdeb))
	context.EXPECT().
		Deploy(
			turandot.ClassHash(turandot.NewFelt(0xc1a)),
			turandot.NewFelt(0x5a17),
			[]turandot.Felt{turandot.NewFelt(1)},
		).
		Return(deployed, []turandot.Felt{turandot.NewFelt(0xbe)}, nil)

	class := NewClassBuilder()
	class.External("run").
		Deploy(Uint(0xc1a), Uint(0x5a17), Uint(1)).Into("new").
		Return(VarAt("new", 0), VarAt("new", 1))

	wantRetdata(t, runEntry(t, context, class.Build(), "run"),
		turandot.Felt(deployed), turandot.NewFelt(0xbe))
}

func TestRun_ExecutionInfoProjectsTheRequestedField(t *testing.T) {
	info := turandot.ExecutionInfo{
		BlockNumber:     1000,
		Timestamp:       1234567,
		Sequencer:       turandot.Address(turandot.NewFelt(0x5e9)),
		ChainID:         turandot.NewFelt(0x7472),
		TransactionHash: turandot.TransactionHash(turandot.NewFelt(0x7a00)),
		Version:         turandot.V3,
		Sender:          turandot.Address(turandot.NewFelt(0xacc)),
		Nonce:           turandot.NewFelt(4),
		MaxFee:          turandot.NewFelt(1000000),
		Tip:             turandot.Gas(5),
		Contract:        turandot.Address(turandot.NewFelt(0x7e4)),
		Caller:          turandot.Address(turandot.NewFelt(0xca11)),
		Selector:        turandot.TransferSelector,
	}

	tests := map[string]turandot.Felt{
		"block_number":     turandot.NewFelt(1000),
		"timestamp":        turandot.NewFelt(1234567),
		"sequencer":        turandot.NewFelt(0x5e9),
		"chain_id":         turandot.NewFelt(0x7472),
		"transaction_hash": turandot.NewFelt(0x7a00),
		"version":          turandot.NewFelt(3),
		"sender":           turandot.NewFelt(0xacc),
		"nonce":            turandot.NewFelt(4),
		"max_fee":          turandot.NewFelt(1000000),
		"tip":              turandot.NewFelt(5),
		"contract":         turandot.NewFelt(0x7e4),
		"caller":           turandot.NewFelt(0xca11),
		"selector":         turandot.Felt(turandot.TransferSelector),
	}

	for field, want := range tests {
		t.Run(field, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			context := turandot.NewMockSyscallContext(ctrl)
			context.EXPECT().GetExecutionInfo().Return(info, nil)

			class := NewClassBuilder()
			class.External("run").ExecutionInfo(field).Into("x").Return(Var("x"))
			wantRetdata(t, runEntry(t, context, class.Build(), "run"), want)
		})
	}
}

func TestRun_BlockHashesAreBoundAsValues(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := turandot.NewMockSyscallContext(ctrl)
	context.EXPECT().
		GetBlockHash(int64(990)).
		Return(turandot.BlockHash(turandot.NewFelt(0xb10c)), nil)

	class := NewClassBuilder()
	class.External("run").BlockHash(990).Into("h").Return(Var("h"))

	wantRetdata(t, runEntry(t, context, class.Build(), "run"), turandot.NewFelt(0xb10c))
}

func TestRun_KeccakHashesTheAssembledPayload(t *testing.T) {
	owner := turandot.NewFelt(0xacc)
	ownerBytes := owner.Bytes32be()
	payload := append([]byte("balance"), ownerBytes[:]...)
	digest := [32]byte{0xff, 0x01, 0x02, 0x03}

	ctrl := gomock.NewController(t)
	context := turandot.NewMockSyscallContext(ctrl)
	context.EXPECT().Keccak(payload).Return(digest, nil)

	class := NewClassBuilder()
	class.External("run").
		Keccak(Text("balance"), Calldata(0)).Into("h").
		Return(Var("h"))

	masked := digest
	masked[0] &= 0x03
	want := turandot.NewFeltFromBytes(masked[:]...)
	wantRetdata(t, runEntry(t, context, class.Build(), "run", owner), want)
}

func TestRun_StarkKeccakMatchesTheSelectorDerivation(t *testing.T) {
	class := NewClassBuilder()
	class.External("run").
		StarkKeccak(Text("transfer")).Into("selector").
		Return(Var("selector"))

	wantRetdata(t, runEntry(t, nil, class.Build(), "run"),
		turandot.Felt(turandot.TransferSelector))
}

func TestRun_CurveOperationsForwardPoints(t *testing.T) {
	generator := turandot.CurveGenerator
	sum := turandot.CurvePoint{X: turandot.NewFelt(0x51), Y: turandot.NewFelt(0x52)}

	ctrl := gomock.NewController(t)
	context := turandot.NewMockSyscallContext(ctrl)
	context.EXPECT().EcAdd(generator, generator).Return(sum, nil)
	context.EXPECT().EcMul(sum, turandot.NewFelt(3)).Return(generator, nil)

	class := NewClassBuilder()
	class.External("run").
		EcAdd(
			Point{X: Const(generator.X), Y: Const(generator.Y)},
			Point{X: Const(generator.X), Y: Const(generator.Y)},
		).Into("s").
		EcMul(Point{X: VarAt("s", 0), Y: VarAt("s", 1)}, Uint(3)).Into("m").
		Return(VarAt("m", 0), VarAt("m", 1))

	wantRetdata(t, runEntry(t, context, class.Build(), "run"), generator.X, generator.Y)
}

func TestRun_LibraryCallsForwardClassAndSelector(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := turandot.NewMockSyscallContext(ctrl)
	context.EXPECT().
		LibraryCall(
			turandot.ClassHash(turandot.NewFelt(0xc1c)),
			turandot.SelectorFromName("helper"),
			[]turandot.Felt{turandot.NewFelt(5)},
		).
		Return([]turandot.Felt{turandot.NewFelt(6)}, nil)

	class := NewClassBuilder()
	class.External("run").
		LibraryCall(Uint(0xc1c), "helper", Uint(5)).Into("r").
		ReturnVar("r")

	wantRetdata(t, runEntry(t, context, class.Build(), "run"), turandot.NewFelt(6))
}

func TestRun_ReplaceClassForwardsTheClass(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := turandot.NewMockSyscallContext(ctrl)
	context.EXPECT().
		ReplaceClass(turandot.ClassHash(turandot.NewFelt(0xc1b))).
		Return(nil)

	class := NewClassBuilder()
	class.External("run").ReplaceClass(Uint(0xc1b))

	result := runEntry(t, context, class.Build(), "run")
	if !result.Success {
		t.Errorf("expected the script to succeed, failed with %v", result.Retdata)
	}
}
