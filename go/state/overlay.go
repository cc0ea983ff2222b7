// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package state provides the transactional view of the chain state an
// executor runs a transaction against. An Overlay buffers all writes in a
// stack of checkpoints layered over a read-only StateReader; checkpoints are
// opened per call frame, merged into their parent when the frame succeeds,
// and discarded when it fails. Flattening the overlay yields the minimal,
// deterministically ordered state delta of the transaction.
package state

import (
	"fmt"
	"slices"

	"github.com/Fantom-foundation/Turandot/go/turandot"
)

// Checkpoint identifies a point in the modification history of an Overlay
// that can be merged or rolled back. Checkpoints are strictly nested; they
// must be resolved in reverse order of their creation.
type Checkpoint int

type storageSlot struct {
	contract turandot.Address
	key      turandot.StorageKey
}

type declaredClass struct {
	compiledHash turandot.Felt
	definition   turandot.ClassDefinition
}

// frame holds the writes recorded since one checkpoint was opened. Absent
// keys fall through to the next older frame and ultimately to the base
// reader.
type frame struct {
	storage  map[storageSlot]turandot.Felt
	nonces   map[turandot.Address]turandot.Felt
	classes  map[turandot.Address]turandot.ClassHash
	declared map[turandot.ClassHash]declaredClass
}

func newFrame() *frame {
	return &frame{
		storage:  map[storageSlot]turandot.Felt{},
		nonces:   map[turandot.Address]turandot.Felt{},
		classes:  map[turandot.Address]turandot.ClassHash{},
		declared: map[turandot.ClassHash]declaredClass{},
	}
}

func (f *frame) absorb(other *frame) {
	for slot, value := range other.storage {
		f.storage[slot] = value
	}
	for address, nonce := range other.nonces {
		f.nonces[address] = nonce
	}
	for address, class := range other.classes {
		f.classes[address] = class
	}
	for hash, class := range other.declared {
		f.declared[hash] = class
	}
}

// Overlay is a mutable, transactional view over a read-only StateReader. All
// writes are buffered in checkpoint frames; the underlying reader is never
// modified. Overlays are not safe for concurrent use; one transaction owns
// one overlay.
//
// Frame zero is always present and collects writes merged down from resolved
// checkpoints. It can not be discarded.
type Overlay struct {
	base   turandot.StateReader
	frames []*frame
}

// NewOverlay creates an overlay over the given reader. Reads not answered by
// a buffered write are forwarded to the reader, so callers wanting read
// memoization should wrap the reader in a CachingReader first.
func NewOverlay(base turandot.StateReader) *Overlay {
	return &Overlay{
		base:   base,
		frames: []*frame{newFrame()},
	}
}

// Checkpoint opens a new checkpoint and returns its handle. All subsequent
// writes are recorded against this checkpoint until it is resolved or a
// nested checkpoint is opened.
func (o *Overlay) Checkpoint() Checkpoint {
	o.frames = append(o.frames, newFrame())
	return Checkpoint(len(o.frames) - 1)
}

// Merge resolves the given checkpoint by folding its writes into the
// enclosing frame. The checkpoint must be the innermost open one; resolving
// checkpoints out of order is a programming error and panics.
func (o *Overlay) Merge(checkpoint Checkpoint) {
	o.checkInnermost(checkpoint)
	top := o.frames[len(o.frames)-1]
	o.frames = o.frames[:len(o.frames)-1]
	o.frames[len(o.frames)-1].absorb(top)
}

// Discard resolves the given checkpoint by dropping all writes recorded
// since it was opened. The checkpoint must be the innermost open one;
// resolving checkpoints out of order is a programming error and panics.
func (o *Overlay) Discard(checkpoint Checkpoint) {
	o.checkInnermost(checkpoint)
	o.frames = o.frames[:len(o.frames)-1]
}

func (o *Overlay) checkInnermost(checkpoint Checkpoint) {
	if int(checkpoint) != len(o.frames)-1 || checkpoint < 1 {
		panic(fmt.Sprintf(
			"checkpoint %d resolved out of order, innermost is %d",
			checkpoint, len(o.frames)-1,
		))
	}
}

// Depth returns the number of open checkpoints.
func (o *Overlay) Depth() int {
	return len(o.frames) - 1
}

func (o *Overlay) StorageAt(contract turandot.Address, key turandot.StorageKey) (turandot.Felt, error) {
	slot := storageSlot{contract, key}
	for i := len(o.frames) - 1; i >= 0; i-- {
		if value, found := o.frames[i].storage[slot]; found {
			return value, nil
		}
	}
	return o.base.StorageAt(contract, key)
}

func (o *Overlay) NonceAt(contract turandot.Address) (turandot.Felt, error) {
	for i := len(o.frames) - 1; i >= 0; i-- {
		if nonce, found := o.frames[i].nonces[contract]; found {
			return nonce, nil
		}
	}
	return o.base.NonceAt(contract)
}

func (o *Overlay) ClassHashAt(contract turandot.Address) (turandot.ClassHash, error) {
	for i := len(o.frames) - 1; i >= 0; i-- {
		if class, found := o.frames[i].classes[contract]; found {
			return class, nil
		}
	}
	return o.base.ClassHashAt(contract)
}

func (o *Overlay) Class(hash turandot.ClassHash) (turandot.ClassDefinition, error) {
	for i := len(o.frames) - 1; i >= 0; i-- {
		if class, found := o.frames[i].declared[hash]; found {
			return class.definition, nil
		}
	}
	return o.base.Class(hash)
}

func (o *Overlay) CompiledClassHash(hash turandot.ClassHash) (turandot.Felt, error) {
	for i := len(o.frames) - 1; i >= 0; i-- {
		if class, found := o.frames[i].declared[hash]; found {
			return class.compiledHash, nil
		}
	}
	return o.base.CompiledClassHash(hash)
}

// SetStorage records a storage write in the innermost checkpoint.
func (o *Overlay) SetStorage(contract turandot.Address, key turandot.StorageKey, value turandot.Felt) {
	o.frames[len(o.frames)-1].storage[storageSlot{contract, key}] = value
}

// SetNonce records a nonce update in the innermost checkpoint.
func (o *Overlay) SetNonce(contract turandot.Address, nonce turandot.Felt) {
	o.frames[len(o.frames)-1].nonces[contract] = nonce
}

// SetClassHash records a contract deployment or class replacement in the
// innermost checkpoint.
func (o *Overlay) SetClassHash(contract turandot.Address, class turandot.ClassHash) {
	o.frames[len(o.frames)-1].classes[contract] = class
}

// DeclareClass records a class declaration in the innermost checkpoint. The
// declared class becomes visible to Class and CompiledClassHash reads of
// this overlay immediately.
func (o *Overlay) DeclareClass(hash turandot.ClassHash, compiledHash turandot.Felt, definition turandot.ClassDefinition) {
	o.frames[len(o.frames)-1].declared[hash] = declaredClass{compiledHash, definition}
}

// Flatten converts the buffered writes into a deterministic state delta. All
// checkpoints must be resolved before flattening; an open checkpoint is a
// programming error and panics. If compress is set, storage writes restoring
// the value already present in the base reader are dropped from the delta.
func (o *Overlay) Flatten(compress bool) (turandot.StateDelta, error) {
	if len(o.frames) != 1 {
		panic(fmt.Sprintf("flatten with %d open checkpoints", len(o.frames)-1))
	}
	bottom := o.frames[0]
	delta := turandot.StateDelta{}

	for address, nonce := range bottom.nonces {
		delta.Nonces = append(delta.Nonces, turandot.NonceUpdate{
			Contract: address,
			Nonce:    nonce,
		})
	}
	slices.SortFunc(delta.Nonces, func(a, b turandot.NonceUpdate) int {
		return turandot.Felt(a.Contract).Cmp(turandot.Felt(b.Contract))
	})

	for address, class := range bottom.classes {
		delta.Classes = append(delta.Classes, turandot.ClassUpdate{
			Contract: address,
			Class:    class,
		})
	}
	slices.SortFunc(delta.Classes, func(a, b turandot.ClassUpdate) int {
		return turandot.Felt(a.Contract).Cmp(turandot.Felt(b.Contract))
	})

	for slot, value := range bottom.storage {
		if compress {
			before, err := o.base.StorageAt(slot.contract, slot.key)
			if err != nil {
				return turandot.StateDelta{}, err
			}
			if before == value {
				continue
			}
		}
		delta.Storage = append(delta.Storage, turandot.StorageUpdate{
			Contract: slot.contract,
			Key:      slot.key,
			Value:    value,
		})
	}
	slices.SortFunc(delta.Storage, func(a, b turandot.StorageUpdate) int {
		if cmp := turandot.Felt(a.Contract).Cmp(turandot.Felt(b.Contract)); cmp != 0 {
			return cmp
		}
		return turandot.Felt(a.Key).Cmp(turandot.Felt(b.Key))
	})

	for hash, class := range bottom.declared {
		delta.Declared = append(delta.Declared, turandot.DeclaredClass{
			Class:         hash,
			CompiledClass: class.compiledHash,
			Definition:    class.definition,
		})
	}
	slices.SortFunc(delta.Declared, func(a, b turandot.DeclaredClass) int {
		return turandot.Felt(a.Class).Cmp(turandot.Felt(b.Class))
	})

	return delta, nil
}
