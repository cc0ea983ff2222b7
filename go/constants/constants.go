// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package constants provides the versioned tables of protocol constants
// governing transaction execution: feature flags, gateway limits, metering
// costs, and fee derivation parameters. Tables are immutable once loaded and
// selected per block through the block's protocol revision.
package constants

import (
	"embed"
	"fmt"
	"os"

	"github.com/Fantom-foundation/Turandot/go/turandot"
)

// Constants is the table of protocol constants of one revision. Instances are
// immutable; executors receive them by reference and must not modify them.
type Constants struct {
	// ---- feature flags ----

	// RevertsEnabled selects whether a failing execution phase reverts the
	// transaction instead of rejecting it.
	RevertsEnabled bool
	// TipsEnabled selects whether the declared tip of version 3 transactions
	// is added to the fee.
	TipsEnabled bool
	// DeployInValidation permits the Deploy syscall during the validation
	// phase.
	DeployInValidation bool
	// CompressStateDiff drops storage writes restoring the pre-transaction
	// value from the state delta.
	CompressStateDiff bool
	// ResourceBoundsEnabled permits version 3 transactions with per-resource
	// bounds. Without it, only the legacy single fee ceiling is accepted.
	ResourceBoundsEnabled bool

	// ---- gateway limits ----

	MaxCalldataWords  int // maximum number of calldata field elements
	MaxClassSize      int // maximum size of a declared class definition in bytes
	MaxEventKeys      int // maximum number of keys of a single event
	MaxEventDataWords int // maximum number of data field elements of a single event
	MaxL1PayloadWords int // maximum payload length of a message to the base layer
	MaxCallDepth      int // maximum nesting depth of recursive contract calls

	// ValidateMaxSteps caps the step budget of the validation phase.
	ValidateMaxSteps turandot.Steps
	// ExecuteMaxSteps caps the step budget of the execution phase.
	ExecuteMaxSteps turandot.Steps

	// ---- metering costs ----

	// StepGasCost is the price of one abstract machine step in L2 gas. It is
	// also the conversion rate at which gas-denominated syscall charges are
	// debited from the step budget.
	StepGasCost turandot.Gas
	// MemoryHoleGasCost is the price of one unused memory cell in L2 gas.
	MemoryHoleGasCost turandot.Gas
	// BuiltinGasCosts prices one application of each builtin in L2 gas.
	BuiltinGasCosts [turandot.NumBuiltins]turandot.Gas

	// SyscallBaseGasCost is the flat L2 gas charge of every syscall, on top
	// of the syscall-specific cost below.
	SyscallBaseGasCost turandot.Gas
	// SyscallGasCosts prices each syscall in L2 gas.
	SyscallGasCosts [turandot.NumSyscalls]turandot.Gas

	// EventKeyGasCost and EventDataWordGasCost price the emitted keys and
	// data words of the EmitEvent syscall in L2 gas.
	EventKeyGasCost      turandot.Gas
	EventDataWordGasCost turandot.Gas
	// MessagePayloadWordGasCost prices each payload word of the
	// SendMessageToL1 syscall in L2 gas.
	MessagePayloadWordGasCost turandot.Gas
	// KeccakRoundGasCost prices each permutation round of the Keccak syscall
	// in L2 gas. One round digests up to 136 bytes of input.
	KeccakRoundGasCost turandot.Gas

	// ---- fee derivation ----

	// MessageL1GasCost is the L1 gas consumed by each message to the base
	// layer, on top of MessagePayloadL1GasCost per payload word.
	MessageL1GasCost        turandot.Gas
	MessagePayloadL1GasCost turandot.Gas
	// StorageWriteDataGasCost is the data gas consumed by each storage write
	// performed by the transaction's call tree.
	StorageWriteDataGasCost turandot.Gas
	// ClassWordDataGasCost is the data gas consumed per 32-byte word of a
	// declared class definition.
	ClassWordDataGasCost turandot.Gas

	// TransactionCosts lists the flat and per-calldata-word gas cost of each
	// transaction kind.
	TransactionCosts [turandot.NumTransactionKinds]TransactionCost

	// LegacyWeights convert per-resource gas into comparable fee units for
	// version 1 transactions, see LegacyWeightScale.
	LegacyWeights LegacyWeights
}

// TransactionCost is the inclusion cost of one transaction kind.
type TransactionCost struct {
	// Base is the flat gas cost of including a transaction of this kind.
	Base turandot.GasVector
	// CalldataWord is the gas cost per calldata field element.
	CalldataWord turandot.GasVector
}

// LegacyWeights are the resource-to-fee conversion weights of the legacy fee
// model, expressed as parts per LegacyWeightScale. The legacy fee is based on
// the weighted maximum across the gas resources, not their sum.
type LegacyWeights struct {
	L1Gas   uint64
	L2Gas   uint64
	DataGas uint64
}

// LegacyWeightScale is the denominator of the LegacyWeights fractions.
const LegacyWeightScale = 1000

// ForRevision returns the constants table of the given revision. The result
// is shared and must not be modified. An ErrUnsupportedRevision is returned
// for revisions without a released table.
func ForRevision(revision turandot.Revision) (*Constants, error) {
	if revision < 0 || revision > turandot.NewestSupportedRevision {
		return nil, &turandot.ErrUnsupportedRevision{Revision: revision}
	}
	return revisionTables[revision], nil
}

// LoadDocument reads a constants document from the given file, overriding
// the embedded table of its revision. It is intended for experiments with
// modified cost tables in the driver; consensus-critical code uses
// ForRevision only.
func LoadDocument(path string) (*Constants, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read constants document: %w", err)
	}
	constants, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("invalid constants document %s: %v", path, err)
	}
	return constants, nil
}

//go:embed documents/*.json
var documents embed.FS

var revisionTables = mustLoadEmbeddedTables()

func mustLoadEmbeddedTables() map[turandot.Revision]*Constants {
	files := map[turandot.Revision]string{
		turandot.R01_Overture:  "documents/overture.json",
		turandot.R02_Aria:      "documents/aria.json",
		turandot.R03_Cabaletta: "documents/cabaletta.json",
	}
	tables := make(map[turandot.Revision]*Constants, len(files))
	for revision, file := range files {
		data, err := documents.ReadFile(file)
		if err != nil {
			panic(fmt.Sprintf("missing embedded constants document %s: %v", file, err))
		}
		constants, err := parseDocument(data)
		if err != nil {
			panic(fmt.Sprintf("invalid embedded constants document %s: %v", file, err))
		}
		tables[revision] = constants
	}
	return tables
}
