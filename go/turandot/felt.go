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
	"fmt"
	"math/big"

	"pgregory.net/rand"

	"github.com/holiman/uint256"
)

// Felt is an element of the 251-bit prime field all on-chain values are
// drawn from. Contrary to holiman/uint256.Int the API operates on values
// rather than pointers, and all arithmetic is performed modulo the field
// prime
//
//	P = 2^251 + 17 * 2^192 + 1
//
// Felt values are comparable and can be used as map keys.
type Felt struct {
	internal uint256.Int
}

// fieldPrime is P in little-endian 64-bit limbs.
var fieldPrime = uint256.Int{1, 0, 0, 0x0800000000000011}

var fieldPrimeBig = fieldPrime.ToBig()

// NewFelt creates a new Felt instance from up to 4 uint64 arguments. The
// arguments are given in the order from most significant to least significant
// by padding leading zeros as needed. No argument results in a value of zero.
// Values equal to or larger than P are reduced modulo P.
func NewFelt(args ...uint64) (result Felt) {
	if len(args) > 4 {
		panic("Too many arguments")
	}
	offset := 4 - len(args)
	for i := 0; i < len(args) && i < len(result.internal); i++ {
		result.internal[3-i-offset] = args[i]
	}
	result.reduce()
	return
}

// NewFeltFromBytes creates a new Felt instance from up to 32 byte arguments.
// The arguments are given in the order from most significant to least
// significant by padding leading zeros as needed. No argument results in a
// value of zero. Values equal to or larger than P are reduced modulo P.
func NewFeltFromBytes(bytes ...byte) (result Felt) {
	if len(bytes) > 32 {
		panic("Too many arguments")
	}
	result.internal.SetBytes(bytes)
	result.reduce()
	return
}

// ParseFelt interprets the given string as a 0x-prefixed hexadecimal field
// element. Inputs outside the field range are rejected rather than reduced.
func ParseFelt(s string) (Felt, error) {
	var result Felt
	if err := result.internal.SetFromHex(s); err != nil {
		return Felt{}, fmt.Errorf("invalid field element %q: %w", s, err)
	}
	if result.internal.Cmp(&fieldPrime) >= 0 {
		return Felt{}, fmt.Errorf("invalid field element %q: exceeds field modulus", s)
	}
	return result, nil
}

// FeltFromShortString encodes a string of at most 31 ASCII characters as a
// field element, using the big-endian byte representation of the string.
func FeltFromShortString(s string) (Felt, error) {
	if len(s) > 31 {
		return Felt{}, fmt.Errorf("short string too long: %d characters, limit is 31", len(s))
	}
	return NewFeltFromBytes([]byte(s)...), nil
}

// FeltFromUint256 converts a *uint256.Int to a Felt, reducing modulo P.
// If the input is nil, it returns 0.
func FeltFromUint256(value *uint256.Int) (result Felt) {
	if value == nil {
		return result
	}
	result.internal = *value
	result.reduce()
	return
}

// RandFelt produces a pseudo-random field element.
func RandFelt(rnd *rand.Rand) Felt {
	var value Felt
	value.internal[0] = rnd.Uint64()
	value.internal[1] = rnd.Uint64()
	value.internal[2] = rnd.Uint64()
	value.internal[3] = rnd.Uint64()
	value.internal.Mod(&value.internal, &fieldPrime)
	return value
}

func (f *Felt) reduce() {
	if f.internal.Cmp(&fieldPrime) >= 0 {
		f.internal.Mod(&f.internal, &fieldPrime)
	}
}

func (f Felt) IsZero() bool {
	return f.internal.IsZero()
}

func (f Felt) IsUint64() bool {
	return f.internal.IsUint64()
}

func (f Felt) Uint64() uint64 {
	return f.internal.Uint64()
}

func (f Felt) Uint256() uint256.Int {
	return f.internal
}

func (f Felt) Bytes32be() [32]byte {
	return f.internal.Bytes32()
}

func (a Felt) Eq(b Felt) bool {
	return a.internal.Eq(&b.internal)
}

func (a Felt) Ne(b Felt) bool {
	return !a.internal.Eq(&b.internal)
}

func (a Felt) Lt(b Felt) bool {
	return a.internal.Lt(&b.internal)
}

func (a Felt) Gt(b Felt) bool {
	return a.internal.Gt(&b.internal)
}

func (a Felt) Cmp(b Felt) int {
	return a.internal.Cmp(&b.internal)
}

func (a Felt) Add(b Felt) (z Felt) {
	z.internal.AddMod(&a.internal, &b.internal, &fieldPrime)
	return
}

func (a Felt) Sub(b Felt) (z Felt) {
	z.internal.Sub(&a.internal, &b.internal)
	if a.internal.Lt(&b.internal) {
		z.internal.Add(&z.internal, &fieldPrime)
	}
	return
}

func (a Felt) Mul(b Felt) (z Felt) {
	z.internal.MulMod(&a.internal, &b.internal, &fieldPrime)
	return
}

func (a Felt) Neg() (z Felt) {
	if a.internal.IsZero() {
		return
	}
	z.internal.Sub(&fieldPrime, &a.internal)
	return
}

// Inv returns the multiplicative inverse of the receiver modulo P, or zero
// if the receiver is zero.
func (a Felt) Inv() (z Felt) {
	inverse := new(big.Int).ModInverse(a.ToBig(), fieldPrimeBig)
	if inverse == nil {
		return
	}
	z.internal.SetFromBig(inverse)
	return
}

// Scale multiplies the receiver by the given plain integer factor modulo P.
func (a Felt) Scale(s uint64) Felt {
	factor := new(uint256.Int).SetUint64(s)
	var z Felt
	z.internal.MulMod(&a.internal, factor, &fieldPrime)
	return z
}

func (f Felt) String() string {
	return f.internal.Hex()
}

// ToBig returns a bigInt version of f.
func (f Felt) ToBig() *big.Int {
	return f.internal.ToBig()
}

func (f Felt) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Felt) UnmarshalText(data []byte) error {
	parsed, err := ParseFelt(string(data))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Validated is the sentinel value the validation entry point of an account
// must return for a transaction to be accepted.
var Validated = NewFeltFromBytes([]byte("VALID")...)
