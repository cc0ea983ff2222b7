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
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestConstError_Error(t *testing.T) {
	// Define a constant error
	const myError = ConstError("this is a constant error")

	// Test the Error() method
	if myError.Error() != "this is a constant error" {
		t.Errorf("expected 'this is a constant error', got '%s'", myError.Error())
	}

	// tests error.Is
	if !errors.Is(myError, ConstError("this is a constant error")) {
		t.Errorf("expected true, got false")
	}
}

func TestConstError_CanBeWrapped(t *testing.T) {
	wrapped := fmt.Errorf("while looking up class %v: %w", NewFelt(12), ErrClassNotFound)
	if !errors.Is(wrapped, ErrClassNotFound) {
		t.Errorf("wrapped error should match the constant")
	}
	if errors.Is(wrapped, ErrNonceMismatch) {
		t.Errorf("wrapped error should not match other constants")
	}
}

func TestCallFailure_ChainsRecordTheFailingPath(t *testing.T) {
	inner := &CallFailure{
		Contract: Address(NewFelt(2)),
		Class:    ClassHash(NewFelt(20)),
		Selector: SelectorFromName("inner"),
		Err:      ErrOutOfSteps,
	}
	outer := &CallFailure{
		Contract: Address(NewFelt(1)),
		Class:    ClassHash(NewFelt(10)),
		Selector: SelectorFromName("outer"),
		Err:      inner,
	}

	if !errors.Is(outer, ErrOutOfSteps) {
		t.Errorf("the chain should expose the innermost cause")
	}

	var failure *CallFailure
	if !errors.As(outer.Err, &failure) || failure != inner {
		t.Errorf("unwrapping should yield the inner failure")
	}

	message := outer.Error()
	for _, part := range []string{"0x1", "0x2", "out of steps"} {
		if !strings.Contains(message, part) {
			t.Errorf("message %q misses %q", message, part)
		}
	}
}

func TestErrUnsupportedRevision_ReportsTheRevision(t *testing.T) {
	err := &ErrUnsupportedRevision{Revision: R99_UnknownNextRevision}
	if want, got := fmt.Sprintf("unsupported revision %d", R99_UnknownNextRevision), err.Error(); want != got {
		t.Errorf("unexpected message, wanted %q, got %q", want, got)
	}
}
