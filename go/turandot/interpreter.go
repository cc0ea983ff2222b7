// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package turandot

//go:generate mockgen -source interpreter.go -destination interpreter_mock.go -package turandot

// Interpreter is a component capable of executing compiled contract programs.
// It runs a single entry point of a single call frame; recursive calls, state
// access, and metering are routed back to the executor through the
// SyscallContext provided with the parameters.
// To obtain an Interpreter instance, client code should use NewInterpreter()
// provided by the registry file in this package.
type Interpreter interface {
	// Run executes the entry point selected by the parameters and returns the
	// outcome of the frame. The resulting error is nil whenever the program
	// was correctly executed, even if the execution failed due to a
	// program-internal issue or an error reported by a syscall. The error is
	// not nil only if a problem within the interpreter itself prevented it
	// from processing the program. In such a case the result is undefined.
	// Interpreters are required to be thread-safe. Thus, multiple runs may be
	// conducted in parallel.
	Run(Parameters) (Result, error)
}

// Parameters summarizes the list of input parameters required for executing
// a single call frame.
type Parameters struct {
	Context        SyscallContext
	Program        CompiledProgram
	Kind           CallKind
	EntryPointType EntryPointType
	Selector       Selector
	Contract       Address
	Class          ClassHash
	Caller         Address
	Calldata       []Felt
}

// Result summarizes the outcome of the computation of a single call frame.
// When Success is false, Retdata holds the failure reason data reported by
// the program. Steps are not part of the result since they are accounted
// through SyscallContext.UseSteps while the frame is running.
type Result struct {
	Success     bool
	Retdata     []Felt
	MemoryHoles uint64
	Builtins    BuiltinCount
}

// SyscallContext provides the interface through which an executing program
// reaches state, environment, and metering. It is implemented by executors
// and handed to interpreters per call frame.
//
// Any error returned by one of the methods below must abort the executing
// program; the interpreter reports the abort as an unsuccessful Result. The
// methods are not thread-safe, a frame is always executed by one goroutine.
type SyscallContext interface {
	// UseSteps debits the given number of abstract machine steps from the
	// step budget of the current execution phase. It returns ErrOutOfSteps
	// when the budget is exhausted. Interpreters are required to report every
	// step they execute through this method.
	UseSteps(steps Steps) error

	// StepsLeft returns the remaining step budget of the current phase.
	StepsLeft() Steps

	StorageRead(key StorageKey) (Felt, error)
	StorageWrite(key StorageKey, value Felt) error

	EmitEvent(keys []Felt, data []Felt) error
	SendMessageToL1(to Felt, payload []Felt) error

	CallContract(contract Address, selector Selector, calldata []Felt) ([]Felt, error)
	LibraryCall(class ClassHash, selector Selector, calldata []Felt) ([]Felt, error)
	Deploy(class ClassHash, salt Felt, constructorCalldata []Felt) (Address, []Felt, error)
	ReplaceClass(class ClassHash) error

	GetExecutionInfo() (ExecutionInfo, error)
	GetBlockHash(number int64) (BlockHash, error)

	Keccak(data []byte) ([32]byte, error)
	EcAdd(p, q CurvePoint) (CurvePoint, error)
	EcMul(p CurvePoint, scalar Felt) (CurvePoint, error)
}

// ExecutionInfo is the environment information exposed to programs through
// the GetExecutionInfo syscall. During validation the Sequencer field is
// zeroed so that validation outcomes cannot depend on the block producer.
type ExecutionInfo struct {
	BlockNumber     int64
	Timestamp       int64
	Sequencer       Address
	ChainID         Felt
	TransactionHash TransactionHash
	Version         TransactionVersion
	Sender          Address
	Nonce           Felt
	MaxFee          Felt
	Tip             Gas
	Contract        Address
	Caller          Address
	Selector        Selector
}

// Gas represents an amount of one of the three gas resources.
type Gas int64

// Steps represents a number of abstract machine steps.
type Steps int64

// CallKind is an enum enabling the differentiation of the different types
// of recursive contract calls supported by the chain.
type CallKind int

const (
	Call CallKind = iota
	LibraryCall
	Delegate
)

// EntryPointType distinguishes the three entry point spaces of a contract
// class. Selectors are resolved within one space only.
type EntryPointType int

const (
	ExternalEntryPoint EntryPointType = iota
	ConstructorEntryPoint
	L1HandlerEntryPoint
)

// Builtin is an enum of the specialized execution units a program can employ
// besides plain steps. Builtin usage is metered separately since the units
// have individual costs.
type Builtin int

const (
	RangeCheck Builtin = iota
	Pedersen
	Poseidon
	Ecdsa
	EcOp
	Keccak
	Bitwise
	SegmentArena
	NumBuiltins int = iota
)

// BuiltinCount tracks the number of applications of each builtin.
type BuiltinCount [NumBuiltins]uint64

func (a BuiltinCount) Add(b BuiltinCount) (z BuiltinCount) {
	for i := range a {
		z[i] = a[i] + b[i]
	}
	return
}

func (a BuiltinCount) IsZero() bool {
	return a == BuiltinCount{}
}

// Syscall is an enum of the services provided to programs through the
// SyscallContext. Each syscall has an individual cost in the constants table
// of a revision.
type Syscall int

const (
	SyscallStorageRead Syscall = iota
	SyscallStorageWrite
	SyscallEmitEvent
	SyscallSendMessageToL1
	SyscallCallContract
	SyscallLibraryCall
	SyscallDeploy
	SyscallReplaceClass
	SyscallGetExecutionInfo
	SyscallGetBlockHash
	SyscallKeccak
	SyscallEcAdd
	SyscallEcMul
	NumSyscalls int = iota
)

// Resources summarizes the resource consumption of a call or a transaction.
type Resources struct {
	Steps       Steps
	MemoryHoles uint64
	Builtins    BuiltinCount
}

func (a Resources) Add(b Resources) Resources {
	return Resources{
		Steps:       a.Steps + b.Steps,
		MemoryHoles: a.MemoryHoles + b.MemoryHoles,
		Builtins:    a.Builtins.Add(b.Builtins),
	}
}
