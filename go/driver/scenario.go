// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Fantom-foundation/Turandot/go/state"
	"github.com/Fantom-foundation/Turandot/go/turandot"
)

// Scenario is the on-disk description of a chain prefix: the declared
// classes and deployed contracts of the initial state, funded balances in
// the fee token, and a list of blocks with their transactions. Transactions
// may state the expected verdict, which the run command checks after the
// replay.
//
// Felt-valued fields are written as 0x-prefixed hex strings. Revisions are
// written by name, for instance "Cabaletta".
type Scenario struct {
	Name string `json:"-"` // derived from the file name

	ChainID   turandot.Felt    `json:"chain_id"`
	FeeToken  turandot.Address `json:"fee_token,omitempty"`
	Sequencer turandot.Address `json:"sequencer,omitempty"`

	Classes   map[turandot.ClassHash]ScenarioClass  `json:"classes,omitempty"`
	Contracts map[turandot.Address]ScenarioContract `json:"contracts,omitempty"`
	Balances  map[turandot.Address]turandot.Felt    `json:"balances,omitempty"`
	History   map[int64]turandot.BlockHash          `json:"history,omitempty"`

	Blocks []ScenarioBlock `json:"blocks"`
}

// ScenarioClass is a class of the initial state: the program document of the
// scripted interpreter together with the compiled class hash the chain
// attests for it.
type ScenarioClass struct {
	CompiledHash turandot.Felt   `json:"compiled_hash"`
	Program      json.RawMessage `json:"program"`
}

// ScenarioContract is a contract instance of the initial state.
type ScenarioContract struct {
	Class   turandot.ClassHash                    `json:"class"`
	Nonce   turandot.Felt                         `json:"nonce,omitempty"`
	Storage map[turandot.StorageKey]turandot.Felt `json:"storage,omitempty"`
}

// ScenarioBlock is one block of the scenario. Blocks are replayed in
// document order, each against the state left behind by its predecessor.
type ScenarioBlock struct {
	Number       int64                 `json:"number"`
	Timestamp    int64                 `json:"timestamp"`
	Revision     turandot.Revision     `json:"revision"`
	GasPrices    ScenarioGasPrices     `json:"gas_prices"`
	Transactions []ScenarioTransaction `json:"transactions"`
}

// ScenarioGasPrices are the block's prices for one unit of each gas
// resource, in the fee token.
type ScenarioGasPrices struct {
	L1Gas   turandot.Felt `json:"l1_gas"`
	L2Gas   turandot.Felt `json:"l2_gas"`
	DataGas turandot.Felt `json:"data_gas"`
}

// ScenarioTransaction mirrors turandot.Transaction with a wire-friendly
// layout. The version defaults to 1 for all kinds but L1 handlers, which
// carry no version. The entry point of an L1 handler may be given by name
// or as a 0x-prefixed selector.
type ScenarioTransaction struct {
	Hash              turandot.TransactionHash    `json:"hash"`
	Kind              turandot.TransactionKind    `json:"kind"`
	Version           turandot.TransactionVersion `json:"version,omitempty"`
	Sender            turandot.Address            `json:"sender,omitempty"`
	Nonce             turandot.Felt               `json:"nonce,omitempty"`
	Calldata          []turandot.Felt             `json:"calldata,omitempty"`
	MaxFee            turandot.Felt               `json:"max_fee,omitempty"`
	ResourceBounds    *ScenarioResourceBounds     `json:"resource_bounds,omitempty"`
	Tip               turandot.Gas                `json:"tip,omitempty"`
	Class             json.RawMessage             `json:"class,omitempty"`
	ClassHash         turandot.ClassHash          `json:"class_hash,omitempty"`
	CompiledClassHash turandot.Felt               `json:"compiled_class_hash,omitempty"`
	Salt              turandot.Felt               `json:"salt,omitempty"`
	EntryPoint        string                      `json:"entry_point,omitempty"`

	Expect *Expectation `json:"expect,omitempty"`
}

// ScenarioResourceBounds lists the per-resource bounds of a version 3
// transaction.
type ScenarioResourceBounds struct {
	L1Gas   ScenarioBounds `json:"l1_gas"`
	L2Gas   ScenarioBounds `json:"l2_gas"`
	DataGas ScenarioBounds `json:"data_gas"`
}

// ScenarioBounds limits the consumption of a single gas resource.
type ScenarioBounds struct {
	MaxAmount turandot.Gas  `json:"max_amount"`
	MaxPrice  turandot.Felt `json:"max_price"`
}

// Expectation states the externally visible outcome of one transaction.
// The status is required; all other fields are checked only when set.
type Expectation struct {
	Status string `json:"status"`

	// Fee and L2Gas pin the exact charge of the transaction.
	Fee   *turandot.Felt `json:"fee,omitempty"`
	L2Gas *turandot.Gas  `json:"l2_gas,omitempty"`

	// RevertContains and RejectContains are substrings the rendered failure
	// reason must contain.
	RevertContains string `json:"revert_contains,omitempty"`
	RejectContains string `json:"reject_contains,omitempty"`

	// Storage probes cells of the post-transaction state, Balances probes
	// fee token balances.
	Storage  map[turandot.Address]map[turandot.StorageKey]turandot.Felt `json:"storage,omitempty"`
	Balances map[turandot.Address]turandot.Felt                         `json:"balances,omitempty"`
}

// LoadScenario reads and structurally validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	var scenario Scenario
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	scenario.Name = strings.TrimSuffix(filepath.Base(path), ".json")
	if err := scenario.check(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func (s *Scenario) check() error {
	for address, contract := range s.Contracts {
		if contract.Class == (turandot.ClassHash{}) {
			return fmt.Errorf("contract %v names no class", address)
		}
		if _, found := s.Classes[contract.Class]; !found {
			return fmt.Errorf("contract %v instantiates unknown class %v",
				address, contract.Class)
		}
	}
	if len(s.Balances) > 0 && s.FeeToken == (turandot.Address{}) {
		return fmt.Errorf("balances require a fee token")
	}
	return nil
}

// InitialState builds the chain state the scenario's first block starts on.
func (s *Scenario) InitialState() *state.MemoryState {
	world := state.NewMemoryState()
	for hash, class := range s.Classes {
		world.DeclareClass(hash, class.CompiledHash, turandot.ClassDefinition(class.Program))
	}
	for address, contract := range s.Contracts {
		world.SetClassHash(address, contract.Class)
		if !contract.Nonce.IsZero() {
			world.SetNonce(address, contract.Nonce)
		}
		for key, value := range contract.Storage {
			world.SetStorage(address, key, value)
		}
	}
	for owner, balance := range s.Balances {
		world.SetBalance(s.FeeToken, owner, balance)
	}
	return world
}

// history exposes the block hashes of the document to the GetBlockHash
// syscall. A hash missing from the document is an infrastructure failure,
// not a program failure; scenarios whose programs look up block hashes must
// list them.
type history map[int64]turandot.BlockHash

func (h history) BlockHash(number int64) (turandot.BlockHash, error) {
	hash, found := h[number]
	if !found {
		return turandot.BlockHash{}, fmt.Errorf("scenario lists no hash for block %d", number)
	}
	return hash, nil
}

func (b *ScenarioBlock) context(s *Scenario) turandot.BlockContext {
	context := turandot.BlockContext{
		BlockNumber: b.Number,
		Timestamp:   b.Timestamp,
		ChainID:     s.ChainID,
		Sequencer:   s.Sequencer,
		FeeToken:    s.FeeToken,
		GasPrices: turandot.GasPrices{
			L1Gas:   b.GasPrices.L1Gas,
			L2Gas:   b.GasPrices.L2Gas,
			DataGas: b.GasPrices.DataGas,
		},
		Revision: b.Revision,
	}
	if len(s.History) > 0 {
		context.History = history(s.History)
	}
	return context
}

func (t *ScenarioTransaction) transaction() (turandot.Transaction, error) {
	transaction := turandot.Transaction{
		Hash:                t.Hash,
		Kind:                t.Kind,
		Version:             t.Version,
		Sender:              t.Sender,
		Nonce:               t.Nonce,
		Calldata:            t.Calldata,
		MaxFee:              t.MaxFee,
		Tip:                 t.Tip,
		Class:               turandot.ClassDefinition(t.Class),
		ClassHash:           t.ClassHash,
		CompiledClassHash:   t.CompiledClassHash,
		ContractAddressSalt: t.Salt,
	}
	if transaction.Version == 0 && t.Kind != turandot.L1Handler {
		transaction.Version = turandot.V1
	}
	if t.ResourceBounds != nil {
		transaction.ResourceBounds = turandot.ResourceBoundsSet{
			L1Gas: turandot.ResourceBounds{
				MaxAmount:       t.ResourceBounds.L1Gas.MaxAmount,
				MaxPricePerUnit: t.ResourceBounds.L1Gas.MaxPrice,
			},
			L2Gas: turandot.ResourceBounds{
				MaxAmount:       t.ResourceBounds.L2Gas.MaxAmount,
				MaxPricePerUnit: t.ResourceBounds.L2Gas.MaxPrice,
			},
			DataGas: turandot.ResourceBounds{
				MaxAmount:       t.ResourceBounds.DataGas.MaxAmount,
				MaxPricePerUnit: t.ResourceBounds.DataGas.MaxPrice,
			},
		}
	}
	if t.EntryPoint != "" {
		selector, err := parseSelector(t.EntryPoint)
		if err != nil {
			return turandot.Transaction{}, err
		}
		transaction.EntryPointSelector = selector
	}
	return transaction, nil
}

func parseSelector(name string) (turandot.Selector, error) {
	if strings.HasPrefix(name, "0x") {
		felt, err := turandot.ParseFelt(name)
		if err != nil {
			return turandot.Selector{}, fmt.Errorf("invalid entry point %q: %w", name, err)
		}
		return turandot.Selector(felt), nil
	}
	return turandot.SelectorFromName(name), nil
}

// replay executes every block of the scenario in order against the given
// state, applying the delta of each transaction. It returns one result per
// transaction, in document order. The error reports infrastructure
// failures; transaction verdicts, including rejections, are part of the
// results.
func (s *Scenario) replay(executor turandot.Executor, world *state.MemoryState) ([]turandot.ExecutionResult, error) {
	var results []turandot.ExecutionResult
	for i := range s.Blocks {
		block := &s.Blocks[i]
		context := block.context(s)
		for j := range block.Transactions {
			transaction, err := block.Transactions[j].transaction()
			if err != nil {
				return nil, fmt.Errorf("block %d transaction %d: %w", block.Number, j, err)
			}
			result, err := executor.Run(context, transaction, world)
			if err != nil {
				return nil, fmt.Errorf("block %d transaction %v: %w", block.Number, transaction.Hash, err)
			}
			world.Apply(result.Delta)
			results = append(results, result)
		}
	}
	return results, nil
}

// checkExpectations compares the results of a replay with the expectations
// stated in the scenario and returns one message per violation.
func (s *Scenario) checkExpectations(results []turandot.ExecutionResult, world *state.MemoryState) []string {
	var issues []string
	next := 0
	for i := range s.Blocks {
		block := &s.Blocks[i]
		for j := range block.Transactions {
			transaction := &block.Transactions[j]
			result := results[next]
			next++
			if transaction.Expect == nil {
				continue
			}
			for _, issue := range transaction.Expect.check(result, world, s.FeeToken) {
				issues = append(issues, fmt.Sprintf("block %d transaction %v: %s",
					block.Number, transaction.Hash, issue))
			}
		}
	}
	return issues
}

func (e *Expectation) check(result turandot.ExecutionResult, world *state.MemoryState, feeToken turandot.Address) []string {
	var issues []string
	status, err := parseStatus(e.Status)
	if err != nil {
		return []string{err.Error()}
	}
	if result.Status != status {
		issue := fmt.Sprintf("status: wanted %v, got %v", status, result.Status)
		switch result.Status {
		case turandot.Rejected:
			issue += fmt.Sprintf(" (%v)", result.RejectReason)
		case turandot.Reverted:
			issue += fmt.Sprintf(" (%s)", result.RevertReason)
		}
		return append(issues, issue)
	}
	if e.Fee != nil && e.Fee.Ne(result.Fee) {
		issues = append(issues, fmt.Sprintf("fee: wanted %v, got %v", e.Fee, result.Fee))
	}
	if e.L2Gas != nil && *e.L2Gas != result.GasConsumed.L2Gas {
		issues = append(issues, fmt.Sprintf("l2 gas: wanted %d, got %d", *e.L2Gas, result.GasConsumed.L2Gas))
	}
	if e.RevertContains != "" && !strings.Contains(result.RevertReason, e.RevertContains) {
		issues = append(issues, fmt.Sprintf("revert reason %q does not contain %q",
			result.RevertReason, e.RevertContains))
	}
	if e.RejectContains != "" {
		reason := fmt.Sprint(result.RejectReason)
		if !strings.Contains(reason, e.RejectContains) {
			issues = append(issues, fmt.Sprintf("reject reason %q does not contain %q",
				reason, e.RejectContains))
		}
	}
	for contract, cells := range e.Storage {
		for key, want := range cells {
			got, err := world.StorageAt(contract, key)
			if err != nil {
				issues = append(issues, fmt.Sprintf("storage %v at %v: %v", contract, key, err))
				continue
			}
			if want.Ne(got) {
				issues = append(issues, fmt.Sprintf("storage %v at %v: wanted %v, got %v",
					contract, key, want, got))
			}
		}
	}
	for owner, want := range e.Balances {
		if got := world.BalanceOf(feeToken, owner); want.Ne(got) {
			issues = append(issues, fmt.Sprintf("balance of %v: wanted %v, got %v",
				owner, want, got))
		}
	}
	return issues
}

func parseStatus(name string) (turandot.TransactionStatus, error) {
	switch strings.ToLower(name) {
	case "accepted":
		return turandot.Accepted, nil
	case "reverted":
		return turandot.Reverted, nil
	case "rejected":
		return turandot.Rejected, nil
	}
	return 0, fmt.Errorf("expectation names unknown status %q", name)
}

// transactionCount is the total number of transactions across all blocks.
func (s *Scenario) transactionCount() int {
	count := 0
	for i := range s.Blocks {
		count += len(s.Blocks[i].Transactions)
	}
	return count
}
