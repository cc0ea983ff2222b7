// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package calaf

import (
	"fmt"

	"github.com/Fantom-foundation/Turandot/go/constants"
	"github.com/Fantom-foundation/Turandot/go/turandot"
)

// checkFeePreconditions enforces the declared gas prices against the block
// prices and the solvency of the sender for the worst case fee. It runs
// before any phase so that unpayable transactions never execute.
func checkFeePreconditions(
	tables *constants.Constants,
	block turandot.BlockContext,
	transaction turandot.Transaction,
	reader turandot.StateReader,
) (reason error, err error) {
	var worstCase turandot.Felt
	switch transaction.Version {
	case turandot.V3:
		bounds := transaction.ResourceBounds
		for _, resource := range []struct {
			declared turandot.ResourceBounds
			price    turandot.Felt
		}{
			{bounds.L1Gas, block.GasPrices.L1Gas},
			{bounds.L2Gas, block.GasPrices.L2Gas},
			{bounds.DataGas, block.GasPrices.DataGas},
		} {
			if resource.declared.MaxPricePerUnit.Lt(resource.price) {
				return fmt.Errorf("%w: declared %v, block price is %v",
					turandot.ErrGasPriceTooLow,
					resource.declared.MaxPricePerUnit, resource.price), nil
			}
			worstCase = worstCase.Add(
				resource.declared.MaxPricePerUnit.Scale(uint64(resource.declared.MaxAmount)))
		}
		if tables.TipsEnabled {
			worstCase = worstCase.Add(
				turandot.NewFelt(uint64(transaction.Tip)).Scale(uint64(bounds.L2Gas.MaxAmount)))
		}
	default:
		worstCase = transaction.MaxFee
	}

	balance, err := reader.StorageAt(block.FeeToken, turandot.BalanceKey(transaction.Sender))
	if err != nil {
		return nil, err
	}
	if balance.Lt(worstCase) {
		return fmt.Errorf("%w: worst case fee %v, balance is %v",
			turandot.ErrInsufficientBalance, worstCase, balance), nil
	}
	return nil, nil
}

// gasConsumed derives the consumption of the three gas resources from the
// metered resources and the recorded counts of the transaction.
func (x *execution) gasConsumed() turandot.GasVector {
	tables := x.constants
	cost := tables.TransactionCosts[x.transaction.Kind]
	gas := cost.Base.Add(cost.CalldataWord.Scale(uint64(len(x.transaction.Calldata))))

	gas.L2Gas += turandot.Gas(x.used.Steps) * tables.StepGasCost
	gas.L2Gas += turandot.Gas(x.used.MemoryHoles) * tables.MemoryHoleGasCost
	for builtin, count := range x.used.Builtins {
		gas.L2Gas += turandot.Gas(count) * tables.BuiltinGasCosts[builtin]
	}

	gas.L1Gas += turandot.Gas(x.messageOrder) * tables.MessageL1GasCost
	gas.L1Gas += turandot.Gas(x.payloadWords) * tables.MessagePayloadL1GasCost

	gas.DataGas += turandot.Gas(x.storageWrites) * tables.StorageWriteDataGasCost
	if x.transaction.Kind == turandot.Declare {
		words := turandot.Gas((len(x.transaction.Class) + 31) / 32)
		gas.DataGas += words * tables.ClassWordDataGasCost
	}
	return gas
}

// settleFee checks the consumed gas against the declared bounds of the
// transaction, derives the fee, and transfers it from the sender to the
// sequencer. A non-nil reason rejects the transaction.
func (x *execution) settleFee(gas turandot.GasVector) (turandot.Felt, *turandot.CallInfo, error, error) {
	fee, reason := x.computeFee(gas)
	if reason != nil {
		return turandot.Felt{}, nil, reason, nil
	}
	info, reason, err := x.transferFee(fee)
	if reason != nil || err != nil {
		return turandot.Felt{}, nil, reason, err
	}
	return fee, info, nil, nil
}

// computeFee turns the consumed gas into a fee in the fee token. Version 3
// transactions pay the block prices per resource, version 1 transactions pay
// for the weighted maximum across the resources.
func (x *execution) computeFee(gas turandot.GasVector) (turandot.Felt, error) {
	if x.transaction.Version == turandot.V3 {
		bounds := x.transaction.ResourceBounds
		if gas.L1Gas > bounds.L1Gas.MaxAmount ||
			gas.L2Gas > bounds.L2Gas.MaxAmount ||
			gas.DataGas > bounds.DataGas.MaxAmount {
			return turandot.Felt{}, fmt.Errorf(
				"%w: consumed (%d, %d, %d), bounds allow (%d, %d, %d)",
				turandot.ErrInsufficientResources,
				gas.L1Gas, gas.L2Gas, gas.DataGas,
				bounds.L1Gas.MaxAmount, bounds.L2Gas.MaxAmount, bounds.DataGas.MaxAmount)
		}
		prices := x.block.GasPrices
		fee := prices.L1Gas.Scale(uint64(gas.L1Gas)).
			Add(prices.L2Gas.Scale(uint64(gas.L2Gas))).
			Add(prices.DataGas.Scale(uint64(gas.DataGas)))
		if x.constants.TipsEnabled {
			fee = fee.Add(turandot.NewFelt(uint64(x.transaction.Tip)).Scale(uint64(gas.L2Gas)))
		}
		return fee, nil
	}

	weighted := legacyGasEquivalent(x.constants.LegacyWeights, gas)
	fee := x.block.GasPrices.L1Gas.Scale(uint64(weighted))
	if x.transaction.MaxFee.Lt(fee) {
		return turandot.Felt{}, fmt.Errorf("%w: fee %v exceeds ceiling %v",
			turandot.ErrInsufficientResources, fee, x.transaction.MaxFee)
	}
	return fee, nil
}

// legacyGasEquivalent folds a gas vector into L1 gas equivalents using the
// weighted maximum of the legacy fee model. Weights are applied rounding up
// so that partial units are never free.
func legacyGasEquivalent(weights constants.LegacyWeights, gas turandot.GasVector) turandot.Gas {
	scale := func(amount turandot.Gas, weight uint64) turandot.Gas {
		return turandot.Gas((uint64(amount)*weight + constants.LegacyWeightScale - 1) /
			constants.LegacyWeightScale)
	}
	return max(
		scale(gas.L1Gas, weights.L1Gas),
		scale(gas.L2Gas, weights.L2Gas),
		scale(gas.DataGas, weights.DataGas),
	)
}

// transferFee moves the fee from the sender to the sequencer in the fee
// token and reports the transfer as a synthetic call info.
func (x *execution) transferFee(fee turandot.Felt) (*turandot.CallInfo, error, error) {
	token := x.block.FeeToken
	senderKey := turandot.BalanceKey(x.transaction.Sender)
	sequencerKey := turandot.BalanceKey(x.block.Sequencer)

	senderBalance, err := x.overlay.StorageAt(token, senderKey)
	if err != nil {
		return nil, nil, err
	}
	if senderBalance.Lt(fee) {
		return nil, fmt.Errorf("%w: fee %v, balance is %v",
			turandot.ErrInsufficientBalance, fee, senderBalance), nil
	}
	x.overlay.SetStorage(token, senderKey, senderBalance.Sub(fee))

	// Reading the sequencer balance after the debit keeps a sequencer paying
	// itself consistent.
	sequencerBalance, err := x.overlay.StorageAt(token, sequencerKey)
	if err != nil {
		return nil, nil, err
	}
	x.overlay.SetStorage(token, sequencerKey, sequencerBalance.Add(fee))

	info := &turandot.CallInfo{
		Contract:       token,
		Caller:         x.transaction.Sender,
		Kind:           turandot.Call,
		EntryPointType: turandot.ExternalEntryPoint,
		Selector:       turandot.TransferSelector,
		Calldata:       []turandot.Felt{turandot.Felt(x.block.Sequencer), fee},
		Retdata:        []turandot.Felt{turandot.NewFelt(1)},
		Success:        true,
		StorageReads: []turandot.StorageAccess{
			{Key: senderKey, Value: senderBalance},
			{Key: sequencerKey, Value: sequencerBalance},
		},
		StorageWrites: []turandot.StorageAccess{
			{Key: senderKey, Value: senderBalance.Sub(fee)},
			{Key: sequencerKey, Value: sequencerBalance.Add(fee)},
		},
	}
	return info, nil, nil
}
