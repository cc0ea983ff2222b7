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
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"pgregory.net/rand"
)

func TestNewFelt_ArgumentsAreFilledMostSignificantFirst(t *testing.T) {
	tests := []struct {
		value Felt
		want  Felt
	}{
		{NewFelt(), NewFelt(0, 0, 0, 0)},
		{NewFelt(1), NewFelt(0, 0, 0, 1)},
		{NewFelt(1, 2), NewFelt(0, 0, 1, 2)},
		{NewFelt(1, 2, 3), NewFelt(0, 1, 2, 3)},
	}

	for _, test := range tests {
		if test.value != test.want {
			t.Errorf("unexpected value, wanted %v, got %v", test.want, test.value)
		}
	}
}

func TestNewFelt_PanicsWithMoreThan4Arguments(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fail()
		}
	}()
	_ = NewFelt(1, 2, 3, 4, 5)
}

func TestNewFelt_ValuesAreReducedModuloThePrime(t *testing.T) {
	// The field prime in most-significant-first limb order.
	prime := []uint64{0x0800000000000011, 0, 0, 1}

	if want, got := NewFelt(), NewFelt(prime[0], prime[1], prime[2], prime[3]); want != got {
		t.Errorf("P should reduce to zero, got %v", got)
	}
	if want, got := NewFelt(1), NewFelt(prime[0], prime[1], prime[2], prime[3]+1); want != got {
		t.Errorf("P+1 should reduce to one, got %v", got)
	}
}

func TestNewFeltFromBytes_BytesAreInterpretedBigEndian(t *testing.T) {
	x := NewFeltFromBytes(1, 2, 3, 4)
	xBytes := x.Bytes32be()
	if !bytes.Equal(xBytes[:], []byte{
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		1, 2, 3, 4,
	}) {
		t.Fail()
	}
}

func TestNewFeltFromBytes_PanicsWithMoreThan32Bytes(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fail()
		}
	}()
	_ = NewFeltFromBytes(make([]byte, 33)...)
}

func TestParseFelt_AcceptsCanonicalFieldElements(t *testing.T) {
	tests := []struct {
		input string
		want  Felt
	}{
		{"0x0", NewFelt()},
		{"0x1", NewFelt(1)},
		{"0x10", NewFelt(16)},
		{"0xffffffffffffffff", NewFelt(0xffffffffffffffff)},
		// P-1, the largest canonical element
		{"0x800000000000011000000000000000000000000000000000000000000000000",
			NewFelt(1).Neg()},
	}

	for _, test := range tests {
		got, err := ParseFelt(test.input)
		if err != nil {
			t.Fatalf("failed to parse %q: %v", test.input, err)
		}
		if got != test.want {
			t.Errorf("unexpected value for %q, wanted %v, got %v", test.input, test.want, got)
		}
	}
}

func TestParseFelt_InvalidInputsAreRejected(t *testing.T) {
	tests := map[string]string{
		"empty":            "",
		"no hex prefix":    "1234",
		"prefix only":      "0x",
		"invalid digit":    "0x12g4",
		"too many digits":  "0x10000000000000000000000000000000000000000000000000000000000000000",
		"the field prime":  "0x800000000000011000000000000000000000000000000000000000000000001",
		"above the prime":  "0x800000000000011000000000000000000000000000000000000000000000002",
		"largest 256 bits": "0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if value, err := ParseFelt(input); err == nil {
				t.Errorf("expected parsing to fail, but it produced %v", value)
			}
		})
	}
}

func TestFeltFromShortString_EncodesStringsAsBigEndianBytes(t *testing.T) {
	value, err := FeltFromShortString("hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := NewFeltFromBytes([]byte("hello")...); value != want {
		t.Errorf("unexpected encoding, wanted %v, got %v", want, value)
	}

	if _, err := FeltFromShortString("this string is 32 characters long"); err == nil {
		t.Errorf("expected error for strings longer than 31 characters")
	}
}

func TestFelt_AddWrapsAroundTheFieldPrime(t *testing.T) {
	largest := NewFelt(1).Neg() // P-1
	if want, got := NewFelt(), largest.Add(NewFelt(1)); want != got {
		t.Errorf("unexpected sum, wanted %v, got %v", want, got)
	}
	if want, got := NewFelt(1), largest.Add(NewFelt(2)); want != got {
		t.Errorf("unexpected sum, wanted %v, got %v", want, got)
	}
}

func TestFelt_SubWrapsAroundTheFieldPrime(t *testing.T) {
	if want, got := NewFelt(2).Neg(), NewFelt(3).Sub(NewFelt(5)); want != got {
		t.Errorf("unexpected difference, wanted %v, got %v", want, got)
	}
	if want, got := NewFelt(), NewFelt(5).Sub(NewFelt(5)); want != got {
		t.Errorf("unexpected difference, wanted %v, got %v", want, got)
	}
}

func TestFelt_AddAndSubAreInverse(t *testing.T) {
	rnd := rand.New(0)
	for i := 0; i < 100; i++ {
		a := RandFelt(rnd)
		b := RandFelt(rnd)
		if got := a.Add(b).Sub(b); got != a {
			t.Fatalf("(%v + %v) - %v produced %v", a, b, b, got)
		}
	}
}

func TestFelt_NegIsTheAdditiveInverse(t *testing.T) {
	rnd := rand.New(0)
	for i := 0; i < 100; i++ {
		a := RandFelt(rnd)
		if got := a.Add(a.Neg()); !got.IsZero() {
			t.Fatalf("%v + (-%v) produced %v", a, a, got)
		}
	}
	if !NewFelt().Neg().IsZero() {
		t.Errorf("negation of zero must be zero")
	}
}

func TestFelt_InvIsTheMultiplicativeInverse(t *testing.T) {
	rnd := rand.New(0)
	one := NewFelt(1)
	for i := 0; i < 100; i++ {
		a := RandFelt(rnd)
		if a.IsZero() {
			continue
		}
		if got := a.Mul(a.Inv()); got != one {
			t.Fatalf("%v * %v^-1 produced %v", a, a, got)
		}
	}
	if !NewFelt().Inv().IsZero() {
		t.Errorf("inverse of zero must be zero")
	}
}

func TestFelt_ScaleMatchesRepeatedAddition(t *testing.T) {
	rnd := rand.New(0)
	for i := 0; i < 10; i++ {
		a := RandFelt(rnd)
		sum := NewFelt()
		for factor := uint64(0); factor < 5; factor++ {
			if want, got := sum, a.Scale(factor); want != got {
				t.Fatalf("unexpected product %v * %d, wanted %v, got %v", a, factor, want, got)
			}
			sum = sum.Add(a)
		}
	}
}

func TestFelt_MulIsCommutative(t *testing.T) {
	rnd := rand.New(0)
	for i := 0; i < 100; i++ {
		a := RandFelt(rnd)
		b := RandFelt(rnd)
		if a.Mul(b) != b.Mul(a) {
			t.Fatalf("%v * %v is not commutative", a, b)
		}
	}
}

func TestFelt_ComparisonMatchesBigIntComparison(t *testing.T) {
	values := []Felt{
		NewFelt(), NewFelt(1), NewFelt(2),
		NewFelt(1, 0), NewFelt(1, 2, 3, 4),
		NewFelt(1).Neg(),
	}

	for _, a := range values {
		for _, b := range values {
			want := a.ToBig().Cmp(b.ToBig())
			if got := a.Cmp(b); want != got {
				t.Errorf("unexpected comparison of %v and %v, wanted %v, got %v", a, b, want, got)
			}
			if want, got := a.Cmp(b) < 0, a.Lt(b); want != got {
				t.Errorf("unexpected Lt of %v and %v, wanted %v, got %v", a, b, want, got)
			}
			if want, got := a.Cmp(b) > 0, a.Gt(b); want != got {
				t.Errorf("unexpected Gt of %v and %v, wanted %v, got %v", a, b, want, got)
			}
			if want, got := a.Cmp(b) == 0, a.Eq(b); want != got {
				t.Errorf("unexpected Eq of %v and %v, wanted %v, got %v", a, b, want, got)
			}
		}
	}
}

func TestRandFelt_ProducedValuesAreInTheField(t *testing.T) {
	rnd := rand.New(0)
	limit := NewFelt(1).Neg() // P-1
	for i := 0; i < 1000; i++ {
		value := RandFelt(rnd)
		if value.Gt(limit) {
			t.Fatalf("produced value %v outside the field", value)
		}
	}
}

func TestFelt_StringUsesMinimalHex(t *testing.T) {
	tests := []struct {
		value Felt
		want  string
	}{
		{NewFelt(), "0x0"},
		{NewFelt(1), "0x1"},
		{NewFelt(0x1a), "0x1a"},
		{NewFelt(256), "0x100"},
	}

	for _, test := range tests {
		if want, got := test.want, test.value.String(); want != got {
			t.Errorf("unexpected string conversion, wanted %v, got %v", want, got)
		}
	}
}

func TestFelt_JSON_EncodingRoundTrips(t *testing.T) {
	rnd := rand.New(0)
	values := []Felt{NewFelt(), NewFelt(1), NewFelt(1).Neg()}
	for i := 0; i < 10; i++ {
		values = append(values, RandFelt(rnd))
	}

	for _, value := range values {
		t.Run(fmt.Sprintf("%v", value), func(t *testing.T) {
			encoded, err := json.Marshal(value)
			if err != nil {
				t.Fatalf("failed to encode into JSON: %v", err)
			}
			var restored Felt
			if err := json.Unmarshal(encoded, &restored); err != nil {
				t.Fatalf("failed to restore value: %v", err)
			}
			if value != restored {
				t.Errorf("unexpected restored value, wanted %v, got %v", value, restored)
			}
		})
	}
}

func TestFelt_CanBeUsedAsMapKey(t *testing.T) {
	index := map[Felt]int{}
	index[NewFelt(1, 2)] = 1
	index[NewFeltFromBytes(0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 2)] = 2
	if want, got := 1, len(index); want != got {
		t.Errorf("equal values should map to the same key, found %d entries", got)
	}
}

func TestFelt_Uint64Conversion(t *testing.T) {
	if !NewFelt(42).IsUint64() {
		t.Errorf("42 should be representable as uint64")
	}
	if want, got := uint64(42), NewFelt(42).Uint64(); want != got {
		t.Errorf("unexpected conversion result, wanted %v, got %v", want, got)
	}
	if NewFelt(1, 0).IsUint64() {
		t.Errorf("2^64 should not be representable as uint64")
	}
}

func BenchmarkFelt_Mul(b *testing.B) {
	rnd := rand.New(0)
	x := RandFelt(rnd)
	y := RandFelt(rnd)

	for i := 0; i < b.N; i++ {
		x.Mul(y)
	}
}
