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
	"github.com/Fantom-foundation/Turandot/go/turandot"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachingConfig contains the configuration options for a CachingReader.
type CachingConfig struct {
	// ClassCacheCapacity is the maximum number of class definitions retained
	// by the reader. If set to 0, a default capacity is used. If negative, no
	// class definitions are cached and every Class call reaches the
	// underlying reader.
	ClassCacheCapacity int
}

// CachingReader wraps a StateReader and memoizes its answers. Storage,
// nonce, class-hash, and compiled-class-hash reads are retained for the
// lifetime of the reader; class definitions, which can be large, are kept in
// a bounded LRU cache. Errors are never cached, a failed read is retried on
// the next call.
//
// The reader assumes the underlying state does not change while it is in
// use, so it is meant to live for a single transaction or a single block. It
// is not safe for concurrent use.
type CachingReader struct {
	base turandot.StateReader

	storage        map[storageSlot]turandot.Felt
	nonces         map[turandot.Address]turandot.Felt
	classHashes    map[turandot.Address]turandot.ClassHash
	compiledHashes map[turandot.ClassHash]turandot.Felt

	classes *lru.Cache[turandot.ClassHash, turandot.ClassDefinition]
}

// NewCachingReader creates a memoizing wrapper around the given reader.
func NewCachingReader(base turandot.StateReader, config CachingConfig) (*CachingReader, error) {
	if config.ClassCacheCapacity == 0 {
		config.ClassCacheCapacity = 256
	}

	var classes *lru.Cache[turandot.ClassHash, turandot.ClassDefinition]
	if config.ClassCacheCapacity > 0 {
		var err error
		classes, err = lru.New[turandot.ClassHash, turandot.ClassDefinition](config.ClassCacheCapacity)
		if err != nil {
			return nil, err
		}
	}

	return &CachingReader{
		base:           base,
		storage:        map[storageSlot]turandot.Felt{},
		nonces:         map[turandot.Address]turandot.Felt{},
		classHashes:    map[turandot.Address]turandot.ClassHash{},
		compiledHashes: map[turandot.ClassHash]turandot.Felt{},
		classes:        classes,
	}, nil
}

func (r *CachingReader) StorageAt(contract turandot.Address, key turandot.StorageKey) (turandot.Felt, error) {
	slot := storageSlot{contract, key}
	if value, found := r.storage[slot]; found {
		return value, nil
	}
	value, err := r.base.StorageAt(contract, key)
	if err != nil {
		return turandot.Felt{}, err
	}
	r.storage[slot] = value
	return value, nil
}

func (r *CachingReader) NonceAt(contract turandot.Address) (turandot.Felt, error) {
	if nonce, found := r.nonces[contract]; found {
		return nonce, nil
	}
	nonce, err := r.base.NonceAt(contract)
	if err != nil {
		return turandot.Felt{}, err
	}
	r.nonces[contract] = nonce
	return nonce, nil
}

func (r *CachingReader) ClassHashAt(contract turandot.Address) (turandot.ClassHash, error) {
	if class, found := r.classHashes[contract]; found {
		return class, nil
	}
	class, err := r.base.ClassHashAt(contract)
	if err != nil {
		return turandot.ClassHash{}, err
	}
	r.classHashes[contract] = class
	return class, nil
}

func (r *CachingReader) Class(hash turandot.ClassHash) (turandot.ClassDefinition, error) {
	if r.classes == nil {
		return r.base.Class(hash)
	}
	if definition, found := r.classes.Get(hash); found {
		return definition, nil
	}
	definition, err := r.base.Class(hash)
	if err != nil {
		return nil, err
	}
	r.classes.Add(hash, definition)
	return definition, nil
}

func (r *CachingReader) CompiledClassHash(hash turandot.ClassHash) (turandot.Felt, error) {
	if compiled, found := r.compiledHashes[hash]; found {
		return compiled, nil
	}
	compiled, err := r.base.CompiledClassHash(hash)
	if err != nil {
		return turandot.Felt{}, err
	}
	r.compiledHashes[hash] = compiled
	return compiled, nil
}
