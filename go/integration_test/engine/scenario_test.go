// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package engine

import (
	"testing"

	"github.com/Fantom-foundation/Turandot/go/interpreter/scripted"
	"github.com/Fantom-foundation/Turandot/go/turandot"
)

func TestFixtures_AccountClassExposesAllProtocolEntryPoints(t *testing.T) {
	program, err := scripted.NewCompiler().Compile(accountDefinition())
	if err != nil {
		t.Fatalf("failed to compile the account class: %v", err)
	}

	for _, selector := range []turandot.Selector{
		turandot.ExecuteSelector,
		turandot.ValidateSelector,
		turandot.ValidateDeclareSelector,
		turandot.ValidateDeploySelector,
	} {
		if !program.HasEntryPoint(turandot.ExternalEntryPoint, selector) {
			t.Errorf("account class misses entry point %v", selector)
		}
	}
	if !program.HasEntryPoint(turandot.ConstructorEntryPoint, turandot.ConstructorSelector) {
		t.Errorf("account class misses its constructor")
	}
	if program.HasEntryPoint(turandot.L1HandlerEntryPoint, turandot.ExecuteSelector) {
		t.Errorf("account class should not answer base layer messages")
	}
}

func TestFixtures_VaultClassSeparatesItsEntryPointSpaces(t *testing.T) {
	program, err := scripted.NewCompiler().Compile(vaultDefinition())
	if err != nil {
		t.Fatalf("failed to compile the vault class: %v", err)
	}

	setValue := turandot.SelectorFromName("set_value")
	deposit := turandot.SelectorFromName("handle_deposit")

	if !program.HasEntryPoint(turandot.ExternalEntryPoint, setValue) {
		t.Errorf("vault class misses set_value")
	}
	if !program.HasEntryPoint(turandot.L1HandlerEntryPoint, deposit) {
		t.Errorf("vault class misses its deposit handler")
	}
	if program.HasEntryPoint(turandot.ExternalEntryPoint, deposit) {
		t.Errorf("the deposit handler must not be callable as an external")
	}
	if program.HasEntryPoint(turandot.L1HandlerEntryPoint, setValue) {
		t.Errorf("set_value must not be reachable from the base layer")
	}
}

func TestFixtures_WorldIsSelfConsistent(t *testing.T) {
	world := newWorld()

	for _, contract := range []turandot.Address{accountAddress, vaultAddress} {
		class, err := world.ClassHashAt(contract)
		if err != nil {
			t.Fatalf("failed to resolve %v: %v", contract, err)
		}
		if _, err := world.Class(class); err != nil {
			t.Errorf("class %v of %v is not declared: %v", class, contract, err)
		}
	}
	if got := world.BalanceOf(feeTokenAddress, accountAddress); got.Ne(startingBalance) {
		t.Errorf("unexpected account funding, wanted %v, got %v", startingBalance, got)
	}
}
