// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package state

import (
	"bytes"
	"fmt"
	"maps"

	"github.com/Fantom-foundation/Turandot/go/turandot"
)

// ----------------------------------------------------------------------------
// MemoryState
// ----------------------------------------------------------------------------

// MemoryState is a map-backed implementation of the StateReader interface.
// It is mainly intended to model pre/post states of test scenarios and to
// back the replay driver; production embeddings provide their own reader.
// The zero-valued contract is indistinguishable from an absent one, matching
// the reader contract for undeployed contracts.
type MemoryState struct {
	Contracts map[turandot.Address]Contract
	Classes   map[turandot.ClassHash]Class
}

// NewMemoryState creates an empty state.
func NewMemoryState() *MemoryState {
	return &MemoryState{
		Contracts: map[turandot.Address]Contract{},
		Classes:   map[turandot.ClassHash]Class{},
	}
}

func (s *MemoryState) StorageAt(contract turandot.Address, key turandot.StorageKey) (turandot.Felt, error) {
	return s.Contracts[contract].Storage[key], nil
}

func (s *MemoryState) NonceAt(contract turandot.Address) (turandot.Felt, error) {
	return s.Contracts[contract].Nonce, nil
}

func (s *MemoryState) ClassHashAt(contract turandot.Address) (turandot.ClassHash, error) {
	return s.Contracts[contract].Class, nil
}

func (s *MemoryState) Class(hash turandot.ClassHash) (turandot.ClassDefinition, error) {
	class, found := s.Classes[hash]
	if !found {
		return nil, fmt.Errorf("%w: %v", turandot.ErrClassNotFound, hash)
	}
	return class.Definition, nil
}

func (s *MemoryState) CompiledClassHash(hash turandot.ClassHash) (turandot.Felt, error) {
	class, found := s.Classes[hash]
	if !found {
		return turandot.Felt{}, fmt.Errorf("%w: %v", turandot.ErrClassNotFound, hash)
	}
	return class.CompiledHash, nil
}

// SetStorage sets the value of a single storage cell.
func (s *MemoryState) SetStorage(contract turandot.Address, key turandot.StorageKey, value turandot.Felt) {
	entry := s.Contracts[contract]
	if entry.Storage == nil {
		entry.Storage = Storage{}
	}
	entry.Storage[key] = value
	s.Contracts[contract] = entry
}

// SetNonce sets the nonce of a contract.
func (s *MemoryState) SetNonce(contract turandot.Address, nonce turandot.Felt) {
	entry := s.Contracts[contract]
	entry.Nonce = nonce
	s.Contracts[contract] = entry
}

// SetClassHash sets the class of a contract, deploying it if it did not
// exist before.
func (s *MemoryState) SetClassHash(contract turandot.Address, class turandot.ClassHash) {
	entry := s.Contracts[contract]
	entry.Class = class
	s.Contracts[contract] = entry
}

// DeclareClass registers a class so that subsequent Class and
// CompiledClassHash calls can resolve it.
func (s *MemoryState) DeclareClass(hash turandot.ClassHash, compiledHash turandot.Felt, definition turandot.ClassDefinition) {
	s.Classes[hash] = Class{
		CompiledHash: compiledHash,
		Definition:   bytes.Clone(definition),
	}
}

// SetBalance writes the fee-token balance of an owner, modeling the storage
// layout used by the fee settlement.
func (s *MemoryState) SetBalance(token turandot.Address, owner turandot.Address, balance turandot.Felt) {
	s.SetStorage(token, turandot.BalanceKey(owner), balance)
}

// BalanceOf reads the fee-token balance of an owner.
func (s *MemoryState) BalanceOf(token turandot.Address, owner turandot.Address) turandot.Felt {
	return s.Contracts[token].Storage[turandot.BalanceKey(owner)]
}

// Apply merges the given delta into the state, as a block builder would
// after accepting a transaction.
func (s *MemoryState) Apply(delta turandot.StateDelta) {
	for _, update := range delta.Nonces {
		s.SetNonce(update.Contract, update.Nonce)
	}
	for _, update := range delta.Classes {
		s.SetClassHash(update.Contract, update.Class)
	}
	for _, update := range delta.Storage {
		s.SetStorage(update.Contract, update.Key, update.Value)
	}
	for _, declared := range delta.Declared {
		s.DeclareClass(declared.Class, declared.CompiledClass, declared.Definition)
	}
}

func (s *MemoryState) Equal(other *MemoryState) bool {
	contractsEqual := equalMapsIgnoringZero(s.Contracts, other.Contracts, func(a, b Contract) bool {
		return a.Equal(&b)
	})
	classesEqual := equalMapsIgnoringZero(s.Classes, other.Classes, func(a, b Class) bool {
		return a.Equal(&b)
	})
	return contractsEqual && classesEqual
}

func (s *MemoryState) Clone() *MemoryState {
	res := NewMemoryState()
	for address, contract := range s.Contracts {
		res.Contracts[address] = contract.Clone()
	}
	for hash, class := range s.Classes {
		res.Classes[hash] = class.Clone()
	}
	return res
}

func (s *MemoryState) Diff(other *MemoryState) []string {
	diffs := diffMaps("", s.Contracts, other.Contracts, func(address turandot.Address, a, b Contract) []string {
		if a.Equal(&b) {
			return nil
		}
		return a.Diff(fmt.Sprintf("%v/", address), &b)
	})
	diffs = append(diffs, diffMaps("", s.Classes, other.Classes, func(hash turandot.ClassHash, a, b Class) []string {
		if a.Equal(&b) {
			return nil
		}
		return a.Diff(fmt.Sprintf("%v/", hash), &b)
	})...)
	return diffs
}

// ----------------------------------------------------------------------------
// Contract
// ----------------------------------------------------------------------------

// Contract represents a deployed contract in a MemoryState. The default
// contract is an undeployed contract, which is ignored by the state.
type Contract struct {
	Class   turandot.ClassHash
	Nonce   turandot.Felt
	Storage Storage
}

func (c *Contract) Equal(other *Contract) bool {
	return c.Class == other.Class &&
		c.Nonce == other.Nonce &&
		c.Storage.Equal(other.Storage)
}

func (c *Contract) Clone() Contract {
	return Contract{
		Class:   c.Class,
		Nonce:   c.Nonce,
		Storage: c.Storage.Clone(),
	}
}

func (c *Contract) Diff(prefix string, other *Contract) []string {
	var res []string
	if c.Class != other.Class {
		res = append(res, fmt.Sprintf("different class: %v != %v", c.Class, other.Class))
	}
	if c.Nonce != other.Nonce {
		res = append(res, fmt.Sprintf("different nonce: %v != %v", c.Nonce, other.Nonce))
	}
	res = append(res, c.Storage.Diff("storage/", other.Storage)...)
	for i, diff := range res {
		res[i] = prefix + diff
	}
	return res
}

// ----------------------------------------------------------------------------
// Class
// ----------------------------------------------------------------------------

// Class represents a declared class in a MemoryState.
type Class struct {
	CompiledHash turandot.Felt
	Definition   turandot.ClassDefinition
}

func (c *Class) Equal(other *Class) bool {
	return c.CompiledHash == other.CompiledHash &&
		bytes.Equal(c.Definition, other.Definition)
}

func (c *Class) Clone() Class {
	return Class{
		CompiledHash: c.CompiledHash,
		Definition:   bytes.Clone(c.Definition),
	}
}

func (c *Class) Diff(prefix string, other *Class) []string {
	var res []string
	if c.CompiledHash != other.CompiledHash {
		res = append(res, fmt.Sprintf("different compiled hash: %v != %v", c.CompiledHash, other.CompiledHash))
	}
	if !bytes.Equal(c.Definition, other.Definition) {
		res = append(res, fmt.Sprintf("different definition: 0x%x != 0x%x", c.Definition, other.Definition))
	}
	for i, diff := range res {
		res[i] = prefix + diff
	}
	return res
}

// ----------------------------------------------------------------------------
// Storage
// ----------------------------------------------------------------------------

// Storage represents the storage of a contract in a MemoryState. Zero-valued
// cells are ignored in the storage.
type Storage map[turandot.StorageKey]turandot.Felt

func (s Storage) Equal(other Storage) bool {
	return equalMapsIgnoringZero(s, other, func(a, b turandot.Felt) bool {
		return a == b
	})
}

func (s Storage) Clone() Storage {
	return maps.Clone(s)
}

func (s Storage) Diff(prefix string, other Storage) []string {
	return diffMaps(prefix, s, other, func(k turandot.StorageKey, a, b turandot.Felt) []string {
		if a == b {
			return nil
		}
		return []string{
			fmt.Sprintf("different value for key %v: %v != %v", k, a, b),
		}
	})
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

// equalMapsIgnoringZero compares two maps, ignoring zero-valued entries.
func equalMapsIgnoringZero[K comparable, V any](a, b map[K]V, equal func(V, V) bool) bool {
	for k, v := range a {
		if !equal(v, b[k]) {
			return false
		}
	}
	for k, v := range b {
		if !equal(v, a[k]) {
			return false
		}
	}
	return true
}

// diffMaps compares two maps and returns a list of differences.
func diffMaps[K comparable, V any](prefix string, a, b map[K]V, diff func(K, V, V) []string) []string {
	var diffs []string
	for k, v := range a {
		diffs = append(diffs, diff(k, v, b[k])...)
	}
	for k, v := range b {
		if _, overlap := a[k]; !overlap {
			diffs = append(diffs, diff(k, a[k], v)...)
		}
	}
	for i, diff := range diffs {
		diffs[i] = prefix + diff
	}
	return diffs
}
