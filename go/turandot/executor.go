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

import "github.com/ethereum/go-ethereum/common"

//go:generate mockgen -source executor.go -destination executor_mock.go -package turandot

// Executor is an interface for a component capable of executing transactions.
// Implementations run individual transactions against a view of the chain
// state. In particular, they handle admissibility checks, the validation and
// execution phases with their (potentially) recursive contract calls, the
// metering of resources, and the settlement of fees.
type Executor interface {
	// Run executes the given transaction against the given state in the
	// context of the given block. All deterministic verdicts, including the
	// rejection of inadmissible transactions, are reported through the
	// ExecutionResult with a nil error. The error is not nil only if an
	// infrastructure problem, for instance an unreachable state source,
	// prevented the executor from reaching a verdict. Such errors must not
	// be treated as a verdict on the transaction.
	Run(BlockContext, Transaction, StateReader) (ExecutionResult, error)
}

// BlockContext summarizes the properties of the block a transaction is
// executed in. It is immutable for all transactions of one block.
type BlockContext struct {
	BlockNumber int64
	Timestamp   int64
	ChainID     Felt
	Sequencer   Address
	FeeToken    Address // the token contract fees are settled in
	GasPrices   GasPrices
	Revision    Revision
	History     BlockHashSource // may be nil if no block hashes are available
}

// BlockHashSource provides access to the hashes of previous blocks as needed
// by the GetBlockHash syscall.
type BlockHashSource interface {
	// BlockHash returns the hash of the block with the given number.
	BlockHash(number int64) (BlockHash, error)
}

// GasPrices lists the price of one unit of each gas resource in the fee
// token, as determined by the block producer.
type GasPrices struct {
	L1Gas   Felt
	L2Gas   Felt
	DataGas Felt
}

// GasVector is an amount of each of the three gas resources metered by the
// chain: computation settled on the base layer, computation on this chain,
// and data availability.
type GasVector struct {
	L1Gas   Gas
	L2Gas   Gas
	DataGas Gas
}

func (a GasVector) Add(b GasVector) GasVector {
	return GasVector{
		L1Gas:   a.L1Gas + b.L1Gas,
		L2Gas:   a.L2Gas + b.L2Gas,
		DataGas: a.DataGas + b.DataGas,
	}
}

func (a GasVector) Scale(factor uint64) GasVector {
	return GasVector{
		L1Gas:   a.L1Gas * Gas(factor),
		L2Gas:   a.L2Gas * Gas(factor),
		DataGas: a.DataGas * Gas(factor),
	}
}

// TransactionKind is an enum for the four kinds of transactions processed by
// the chain.
type TransactionKind int

const (
	Invoke TransactionKind = iota
	Declare
	DeployAccount
	L1Handler
	NumTransactionKinds int = iota
)

// TransactionVersion selects the fee model of a transaction. Version 1
// transactions declare a single fee ceiling, version 3 transactions declare
// per-resource bounds.
type TransactionVersion int

const (
	V1 TransactionVersion = 1
	V3 TransactionVersion = 3
)

// ResourceBounds limits the consumption of a single gas resource by a
// version 3 transaction.
type ResourceBounds struct {
	MaxAmount       Gas
	MaxPricePerUnit Felt
}

// ResourceBoundsSet lists the bounds for all three gas resources.
type ResourceBoundsSet struct {
	L1Gas   ResourceBounds
	L2Gas   ResourceBounds
	DataGas ResourceBounds
}

// Transaction summarizes the parameters of a transaction to be executed on
// the chain. Which fields are meaningful depends on the Kind and the Version
// of the transaction.
type Transaction struct {
	Hash     TransactionHash
	Kind     TransactionKind
	Version  TransactionVersion
	Sender   Address
	Nonce    Felt
	Calldata []Felt

	MaxFee         Felt              // fee ceiling, version 1 only
	ResourceBounds ResourceBoundsSet // per-resource bounds, version 3 only
	Tip            Gas               // tip per unit of consumed L2 gas, version 3 only

	// Declare transactions carry the class to be declared together with the
	// hash of its compiled form as attested by the declaring account.
	Class             ClassDefinition
	ClassHash         ClassHash // also the instantiated class of DeployAccount
	CompiledClassHash Felt

	// ContractAddressSalt separates the addresses of accounts deployed with
	// identical classes and constructor arguments.
	ContractAddressSalt Felt

	// EntryPointSelector is the handler invoked by an L1Handler transaction.
	EntryPointSelector Selector
}

// CallInfo describes the execution of a single contract call, including all
// nested calls it performed. The resource consumption of a call includes the
// consumption of its inner calls.
type CallInfo struct {
	Contract       Address
	Class          ClassHash
	Caller         Address
	Kind           CallKind
	EntryPointType EntryPointType
	Selector       Selector
	Calldata       []Felt

	// Retdata is the return data of a successful call, or the failure reason
	// data of an unsuccessful one.
	Retdata []Felt
	Success bool

	Resources     Resources
	StorageReads  []StorageAccess
	StorageWrites []StorageAccess
	Events        []OrderedEvent
	Messages      []OrderedMessage
	InnerCalls    []CallInfo
}

// StorageAccess records a single storage read or write performed directly by
// a call, in program order.
type StorageAccess struct {
	Key   StorageKey
	Value Felt
}

// OrderedEvent is an event emitted by a call. The order is a transaction
// global sequence number fixing the position of the event among all events
// of the call tree.
type OrderedEvent struct {
	Order uint64
	Keys  []Felt
	Data  []Felt
}

// OrderedMessage is a message to the base layer sent by a call. The order is
// a transaction global sequence number, independent of the event numbering.
type OrderedMessage struct {
	Order   uint64
	To      common.Address
	Payload []Felt
}

// TransactionStatus is the verdict of an executor on a transaction.
type TransactionStatus int

const (
	// Accepted transactions completed all phases, their state delta is
	// complete.
	Accepted TransactionStatus = iota
	// Reverted transactions failed during execution with reverts enabled.
	// Their state delta contains only the nonce update and the fee transfer.
	Reverted
	// Rejected transactions were refused a place in the block. They have no
	// state delta and no fee.
	Rejected
)

func (s TransactionStatus) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Reverted:
		return "reverted"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ExecutionResult summarizes the execution of a transaction.
type ExecutionResult struct {
	Status TransactionStatus

	// RejectReason is the deterministic error a Rejected transaction was
	// refused for. It is nil for the other statuses.
	RejectReason error

	// RevertReason renders the failure chain of a Reverted transaction.
	RevertReason string

	Validate    *CallInfo
	Execute     *CallInfo
	FeeTransfer *CallInfo

	Resources   Resources
	GasConsumed GasVector
	Fee         Felt

	Delta StateDelta
}

// StateDelta is the minimal committed effect of a transaction on the chain
// state. All lists are sorted by contract address and storage key to make
// the delta reproducible byte by byte.
type StateDelta struct {
	Nonces   []NonceUpdate
	Classes  []ClassUpdate
	Storage  []StorageUpdate
	Declared []DeclaredClass
}

func (d *StateDelta) IsEmpty() bool {
	return len(d.Nonces) == 0 && len(d.Classes) == 0 &&
		len(d.Storage) == 0 && len(d.Declared) == 0
}

// NonceUpdate sets the nonce of a contract.
type NonceUpdate struct {
	Contract Address
	Nonce    Felt
}

// ClassUpdate sets the class of a contract, either on deployment or on a
// class replacement.
type ClassUpdate struct {
	Contract Address
	Class    ClassHash
}

// StorageUpdate sets the value of a single storage cell.
type StorageUpdate struct {
	Contract Address
	Key      StorageKey
	Value    Felt
}

// DeclaredClass registers a class declaration together with the compiled
// class hash attested by the declaring transaction.
type DeclaredClass struct {
	Class         ClassHash
	CompiledClass Felt
	Definition    ClassDefinition
}
