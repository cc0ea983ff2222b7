// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package constants

import (
	"encoding/json"
	"fmt"

	"github.com/Fantom-foundation/Turandot/go/turandot"
)

// document is the JSON schema of a constants document. Builtins, syscalls,
// and transaction kinds are keyed by their protocol names so that documents
// remain readable and resistant to enum reordering.
type document struct {
	Flags struct {
		RevertsEnabled        bool `json:"reverts_enabled"`
		TipsEnabled           bool `json:"tips_enabled"`
		DeployInValidation    bool `json:"deploy_in_validation"`
		CompressStateDiff     bool `json:"compress_state_diff"`
		ResourceBoundsEnabled bool `json:"resource_bounds_enabled"`
	} `json:"flags"`

	Limits struct {
		MaxCalldataWords  int   `json:"max_calldata_words"`
		MaxClassSize      int   `json:"max_class_size"`
		MaxEventKeys      int   `json:"max_event_keys"`
		MaxEventDataWords int   `json:"max_event_data_words"`
		MaxL1PayloadWords int   `json:"max_l1_payload_words"`
		MaxCallDepth      int   `json:"max_call_depth"`
		ValidateMaxSteps  int64 `json:"validate_max_steps"`
		ExecuteMaxSteps   int64 `json:"execute_max_steps"`
	} `json:"limits"`

	Gas struct {
		Step               int64            `json:"step"`
		MemoryHole         int64            `json:"memory_hole"`
		Builtins           map[string]int64 `json:"builtins"`
		SyscallBase        int64            `json:"syscall_base"`
		Syscalls           map[string]int64 `json:"syscalls"`
		EventKey           int64            `json:"event_key"`
		EventDataWord      int64            `json:"event_data_word"`
		MessagePayloadWord int64            `json:"message_payload_word"`
		KeccakRound        int64            `json:"keccak_round"`
	} `json:"gas"`

	Fees struct {
		MessageL1        int64                          `json:"message_l1"`
		MessagePayloadL1 int64                          `json:"message_payload_l1"`
		StorageWriteData int64                          `json:"storage_write_data"`
		ClassWordData    int64                          `json:"class_word_data"`
		Transactions     map[string]documentTransaction `json:"transactions"`
		LegacyWeights    struct {
			L1Gas   uint64 `json:"l1_gas"`
			L2Gas   uint64 `json:"l2_gas"`
			DataGas uint64 `json:"data_gas"`
		} `json:"legacy_weights"`
	} `json:"fees"`
}

type documentTransaction struct {
	Base         documentGasVector `json:"base"`
	CalldataWord documentGasVector `json:"calldata_word"`
}

type documentGasVector struct {
	L1Gas   int64 `json:"l1_gas"`
	L2Gas   int64 `json:"l2_gas"`
	DataGas int64 `json:"data_gas"`
}

func (v documentGasVector) toGasVector() turandot.GasVector {
	return turandot.GasVector{
		L1Gas:   turandot.Gas(v.L1Gas),
		L2Gas:   turandot.Gas(v.L2Gas),
		DataGas: turandot.Gas(v.DataGas),
	}
}

func parseDocument(data []byte) (*Constants, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	result := &Constants{
		RevertsEnabled:        doc.Flags.RevertsEnabled,
		TipsEnabled:           doc.Flags.TipsEnabled,
		DeployInValidation:    doc.Flags.DeployInValidation,
		CompressStateDiff:     doc.Flags.CompressStateDiff,
		ResourceBoundsEnabled: doc.Flags.ResourceBoundsEnabled,

		MaxCalldataWords:  doc.Limits.MaxCalldataWords,
		MaxClassSize:      doc.Limits.MaxClassSize,
		MaxEventKeys:      doc.Limits.MaxEventKeys,
		MaxEventDataWords: doc.Limits.MaxEventDataWords,
		MaxL1PayloadWords: doc.Limits.MaxL1PayloadWords,
		MaxCallDepth:      doc.Limits.MaxCallDepth,
		ValidateMaxSteps:  turandot.Steps(doc.Limits.ValidateMaxSteps),
		ExecuteMaxSteps:   turandot.Steps(doc.Limits.ExecuteMaxSteps),

		StepGasCost:        turandot.Gas(doc.Gas.Step),
		MemoryHoleGasCost:  turandot.Gas(doc.Gas.MemoryHole),
		SyscallBaseGasCost: turandot.Gas(doc.Gas.SyscallBase),

		EventKeyGasCost:           turandot.Gas(doc.Gas.EventKey),
		EventDataWordGasCost:      turandot.Gas(doc.Gas.EventDataWord),
		MessagePayloadWordGasCost: turandot.Gas(doc.Gas.MessagePayloadWord),
		KeccakRoundGasCost:        turandot.Gas(doc.Gas.KeccakRound),

		MessageL1GasCost:        turandot.Gas(doc.Fees.MessageL1),
		MessagePayloadL1GasCost: turandot.Gas(doc.Fees.MessagePayloadL1),
		StorageWriteDataGasCost: turandot.Gas(doc.Fees.StorageWriteData),
		ClassWordDataGasCost:    turandot.Gas(doc.Fees.ClassWordData),

		LegacyWeights: LegacyWeights{
			L1Gas:   doc.Fees.LegacyWeights.L1Gas,
			L2Gas:   doc.Fees.LegacyWeights.L2Gas,
			DataGas: doc.Fees.LegacyWeights.DataGas,
		},
	}

	if result.StepGasCost <= 0 {
		return nil, fmt.Errorf("step gas cost must be positive, got %d", result.StepGasCost)
	}

	for name, cost := range doc.Gas.Builtins {
		builtin, err := turandot.ParseBuiltin(name)
		if err != nil {
			return nil, err
		}
		result.BuiltinGasCosts[builtin] = turandot.Gas(cost)
	}
	if want, got := turandot.NumBuiltins, len(doc.Gas.Builtins); want != got {
		return nil, fmt.Errorf("expected %d builtin costs, got %d", want, got)
	}

	for name, cost := range doc.Gas.Syscalls {
		syscall, err := turandot.ParseSyscall(name)
		if err != nil {
			return nil, err
		}
		result.SyscallGasCosts[syscall] = turandot.Gas(cost)
	}
	if want, got := turandot.NumSyscalls, len(doc.Gas.Syscalls); want != got {
		return nil, fmt.Errorf("expected %d syscall costs, got %d", want, got)
	}

	for kind := turandot.TransactionKind(0); int(kind) < turandot.NumTransactionKinds; kind++ {
		transaction, found := doc.Fees.Transactions[kind.String()]
		if !found {
			return nil, fmt.Errorf("missing transaction costs for kind %v", kind)
		}
		result.TransactionCosts[kind] = TransactionCost{
			Base:         transaction.Base.toGasVector(),
			CalldataWord: transaction.CalldataWord.toGasVector(),
		}
	}
	if want, got := turandot.NumTransactionKinds, len(doc.Fees.Transactions); want != got {
		return nil, fmt.Errorf("expected %d transaction cost entries, got %d", want, got)
	}

	return result, nil
}
