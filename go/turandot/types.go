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

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// The types in this file are all field elements with a dedicated role. They
// are distinct types to let the compiler catch accidental mix-ups of, for
// instance, a contract address and a class hash.

// Address identifies a contract deployed on the chain.
type Address Felt

// ClassHash identifies a contract class, the program shared by all contracts
// instantiating it.
type ClassHash Felt

// StorageKey addresses a single storage cell within the storage space of a
// contract.
type StorageKey Felt

// Selector identifies an entry point of a contract class. Selectors are
// derived from the name of the exported function, see SelectorFromName.
type Selector Felt

// TransactionHash identifies a transaction.
type TransactionHash Felt

// BlockHash identifies a block.
type BlockHash Felt

func (a Address) String() string {
	return Felt(a).String()
}

func (a Address) MarshalText() ([]byte, error) {
	return Felt(a).MarshalText()
}

func (a *Address) UnmarshalText(data []byte) error {
	return (*Felt)(a).UnmarshalText(data)
}

func (c ClassHash) String() string {
	return Felt(c).String()
}

func (c ClassHash) MarshalText() ([]byte, error) {
	return Felt(c).MarshalText()
}

func (c *ClassHash) UnmarshalText(data []byte) error {
	return (*Felt)(c).UnmarshalText(data)
}

func (k StorageKey) String() string {
	return Felt(k).String()
}

func (k StorageKey) MarshalText() ([]byte, error) {
	return Felt(k).MarshalText()
}

func (k *StorageKey) UnmarshalText(data []byte) error {
	return (*Felt)(k).UnmarshalText(data)
}

func (s Selector) String() string {
	return Felt(s).String()
}

func (s Selector) MarshalText() ([]byte, error) {
	return Felt(s).MarshalText()
}

func (s *Selector) UnmarshalText(data []byte) error {
	return (*Felt)(s).UnmarshalText(data)
}

func (h TransactionHash) String() string {
	return Felt(h).String()
}

func (h TransactionHash) MarshalText() ([]byte, error) {
	return Felt(h).MarshalText()
}

func (h *TransactionHash) UnmarshalText(data []byte) error {
	return (*Felt)(h).UnmarshalText(data)
}

func (h BlockHash) String() string {
	return Felt(h).String()
}

func (h BlockHash) MarshalText() ([]byte, error) {
	return Felt(h).MarshalText()
}

func (h *BlockHash) UnmarshalText(data []byte) error {
	return (*Felt)(h).UnmarshalText(data)
}

// StarkKeccak computes the Keccak-256 hash of the given data truncated to
// its 250 least significant bits. The result is always a valid field element.
func StarkKeccak(data []byte) Felt {
	hash := crypto.Keccak256(data)
	hash[0] &= 0x03
	return NewFeltFromBytes(hash...)
}

// SelectorFromName derives the entry point selector for an exported function
// of the given name.
func SelectorFromName(name string) Selector {
	return Selector(StarkKeccak([]byte(name)))
}

// Selectors of the entry points with a protocol-defined role.
var (
	ExecuteSelector         = SelectorFromName("__execute__")
	ValidateSelector        = SelectorFromName("__validate__")
	ValidateDeclareSelector = SelectorFromName("__validate_declare__")
	ValidateDeploySelector  = SelectorFromName("__validate_deploy__")
	ConstructorSelector     = SelectorFromName("constructor")
	TransferSelector        = SelectorFromName("transfer")
)

// BalanceKey derives the storage key holding the token balance of the given
// owner in a token contract.
func BalanceKey(owner Address) StorageKey {
	label := []byte("balance")
	ownerBytes := Felt(owner).Bytes32be()
	return StorageKey(StarkKeccak(append(label, ownerBytes[:]...)))
}

// DeployedContractAddress derives the address of a contract deployed with
// the given salt, class, and constructor arguments. The deployer is part of
// the derivation so that independent deployers cannot race for an address.
func DeployedContractAddress(deployer Address, salt Felt, class ClassHash, constructorCalldata []Felt) Address {
	data := make([]byte, 0, (4+len(constructorCalldata))*32)
	data = append(data, []byte("deploy")...)
	for _, value := range []Felt{Felt(deployer), salt, Felt(class)} {
		bytes := value.Bytes32be()
		data = append(data, bytes[:]...)
	}
	for _, value := range constructorCalldata {
		bytes := value.Bytes32be()
		data = append(data, bytes[:]...)
	}
	return Address(StarkKeccak(data))
}

// L1Address truncates the field element to the 20-byte address format used
// by the settlement chain. Only the least significant 20 bytes are retained.
func (f Felt) L1Address() common.Address {
	bytes := f.Bytes32be()
	return common.BytesToAddress(bytes[12:])
}

func (k CallKind) String() string {
	switch k {
	case Call:
		return "call"
	case LibraryCall:
		return "library_call"
	case Delegate:
		return "delegate"
	default:
		return "unknown"
	}
}

func (k CallKind) MarshalJSON() ([]byte, error) {
	var res string
	switch k {
	case Call, LibraryCall, Delegate:
		res = k.String()
	default:
		return nil, fmt.Errorf("invalid call kind: %v", k)
	}
	return json.Marshal(res)
}

func (k *CallKind) UnmarshalJSON(data []byte) error {
	var kind string
	if err := json.Unmarshal(data, &kind); err != nil {
		return err
	}
	switch strings.ToLower(kind) {
	case "call":
		*k = Call
	case "library_call":
		*k = LibraryCall
	case "delegate":
		*k = Delegate
	default:
		return fmt.Errorf("unknown call kind: %s", kind)
	}
	return nil
}

func (t EntryPointType) String() string {
	switch t {
	case ExternalEntryPoint:
		return "external"
	case ConstructorEntryPoint:
		return "constructor"
	case L1HandlerEntryPoint:
		return "l1_handler"
	default:
		return "unknown"
	}
}

func (t EntryPointType) MarshalJSON() ([]byte, error) {
	var res string
	switch t {
	case ExternalEntryPoint, ConstructorEntryPoint, L1HandlerEntryPoint:
		res = t.String()
	default:
		return nil, fmt.Errorf("invalid entry point type: %v", t)
	}
	return json.Marshal(res)
}

func (t *EntryPointType) UnmarshalJSON(data []byte) error {
	var kind string
	if err := json.Unmarshal(data, &kind); err != nil {
		return err
	}
	switch strings.ToLower(kind) {
	case "external":
		*t = ExternalEntryPoint
	case "constructor":
		*t = ConstructorEntryPoint
	case "l1_handler":
		*t = L1HandlerEntryPoint
	default:
		return fmt.Errorf("unknown entry point type: %s", kind)
	}
	return nil
}

func (k TransactionKind) String() string {
	switch k {
	case Invoke:
		return "invoke"
	case Declare:
		return "declare"
	case DeployAccount:
		return "deploy_account"
	case L1Handler:
		return "l1_handler"
	default:
		return "unknown"
	}
}

func (k TransactionKind) MarshalJSON() ([]byte, error) {
	var res string
	switch k {
	case Invoke, Declare, DeployAccount, L1Handler:
		res = k.String()
	default:
		return nil, fmt.Errorf("invalid transaction kind: %v", k)
	}
	return json.Marshal(res)
}

func (k *TransactionKind) UnmarshalJSON(data []byte) error {
	var kind string
	if err := json.Unmarshal(data, &kind); err != nil {
		return err
	}
	switch strings.ToLower(kind) {
	case "invoke":
		*k = Invoke
	case "declare":
		*k = Declare
	case "deploy_account":
		*k = DeployAccount
	case "l1_handler":
		*k = L1Handler
	default:
		return fmt.Errorf("unknown transaction kind: %s", kind)
	}
	return nil
}

func (b Builtin) String() string {
	switch b {
	case RangeCheck:
		return "range_check"
	case Pedersen:
		return "pedersen"
	case Poseidon:
		return "poseidon"
	case Ecdsa:
		return "ecdsa"
	case EcOp:
		return "ec_op"
	case Keccak:
		return "keccak"
	case Bitwise:
		return "bitwise"
	case SegmentArena:
		return "segment_arena"
	default:
		return fmt.Sprintf("Builtin(%d)", b)
	}
}

// ParseBuiltin is the inverse of Builtin.String.
func ParseBuiltin(name string) (Builtin, error) {
	for b := Builtin(0); int(b) < NumBuiltins; b++ {
		if b.String() == name {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown builtin: %s", name)
}

func (s Syscall) String() string {
	switch s {
	case SyscallStorageRead:
		return "storage_read"
	case SyscallStorageWrite:
		return "storage_write"
	case SyscallEmitEvent:
		return "emit_event"
	case SyscallSendMessageToL1:
		return "send_message_to_l1"
	case SyscallCallContract:
		return "call_contract"
	case SyscallLibraryCall:
		return "library_call"
	case SyscallDeploy:
		return "deploy"
	case SyscallReplaceClass:
		return "replace_class"
	case SyscallGetExecutionInfo:
		return "get_execution_info"
	case SyscallGetBlockHash:
		return "get_block_hash"
	case SyscallKeccak:
		return "keccak"
	case SyscallEcAdd:
		return "ec_add"
	case SyscallEcMul:
		return "ec_mul"
	default:
		return fmt.Sprintf("Syscall(%d)", s)
	}
}

// ParseSyscall is the inverse of Syscall.String.
func ParseSyscall(name string) (Syscall, error) {
	for s := Syscall(0); int(s) < NumSyscalls; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown syscall: %s", name)
}
