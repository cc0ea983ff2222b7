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

//go:generate mockgen -source state.go -destination state_mock.go -package turandot

// StateReader is a read-only view of the committed chain state an executor
// runs transactions against. Implementations are provided by the embedding
// application; the executor never writes through this interface, all
// modifications are buffered and reported as a StateDelta.
//
// Contracts that have never been deployed are observable: StorageAt and
// NonceAt return zero values and ClassHashAt returns the zero class hash for
// them. Classes that have never been declared are not: Class and
// CompiledClassHash return an error wrapping ErrClassNotFound. Any other
// error indicates an infrastructure failure of the state source and aborts
// the transaction without a verdict.
type StateReader interface {
	StorageAt(Address, StorageKey) (Felt, error)
	NonceAt(Address) (Felt, error)
	ClassHashAt(Address) (ClassHash, error)

	Class(ClassHash) (ClassDefinition, error)
	CompiledClassHash(ClassHash) (Felt, error)
}

// ClassDefinition is the declared form of a contract class, the artifact
// carried by declare transactions and stored in the chain state. Executors
// treat it as opaque; only a Compiler can interpret it.
type ClassDefinition []byte

// Compiler turns a declared class into a runnable program. Implementations
// are paired with the Interpreter implementation consuming their output.
// Compilers are required to be deterministic and thread-safe.
type Compiler interface {
	Compile(ClassDefinition) (CompiledProgram, error)
}

// CompiledProgram is a runnable contract program produced by a Compiler.
// Implementations are interpreter-specific; the executor only probes for
// entry point existence before dispatching a call.
type CompiledProgram interface {
	// HasEntryPoint reports whether the program exports an entry point with
	// the given selector in the given entry point space.
	HasEntryPoint(kind EntryPointType, selector Selector) bool
}
