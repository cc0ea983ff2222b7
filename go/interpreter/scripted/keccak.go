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
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/Fantom-foundation/Turandot/go/turandot"
)

var keccakHasherPool = sync.Pool{New: func() any { return sha3.NewLegacyKeccak256() }}

type keccakHasher interface {
	Reset()
	Write(in []byte) (int, error)
	Read(out []byte) (int, error)
}

// keccak256 computes the Keccak-256 digest of the given payload using a
// pooled hasher state.
func keccak256(data []byte) [32]byte {
	hasher := keccakHasherPool.Get().(keccakHasher)
	hasher.Reset()
	hasher.Write(data)
	var res [32]byte
	hasher.Read(res[:])
	keccakHasherPool.Put(hasher)
	return res
}

// starkFelt folds a Keccak-256 digest into a field element by truncating it
// to its 250 least significant bits, the derivation also used for selectors
// and storage keys.
func starkFelt(digest [32]byte) turandot.Felt {
	digest[0] &= 0x03
	return turandot.NewFeltFromBytes(digest[:]...)
}
