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

import "fmt"

// ConstError is a error type that can be used to define immutable
// error constants.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

// Errors describing deterministic verdicts on a transaction. Executors report
// them through the ExecutionResult rather than through their error return,
// which is reserved for infrastructure failures.
const (
	ErrNonceMismatch             = ConstError("nonce mismatch")
	ErrInsufficientBalance       = ConstError("insufficient balance to cover fee")
	ErrInsufficientResources     = ConstError("resource usage exceeds bounds")
	ErrGasPriceTooLow            = ConstError("max gas price below block gas price")
	ErrCalldataTooLong           = ConstError("calldata length exceeds limit")
	ErrClassTooLarge             = ConstError("class definition exceeds size limit")
	ErrInvalidTransactionVersion = ConstError("unsupported transaction version")
	ErrValidationFailed          = ConstError("transaction validation failed")
	ErrAddressMismatch           = ConstError("sender does not match deployed contract address")
	ErrClassAlreadyDeclared      = ConstError("class already declared")
	ErrContractAlreadyDeployed   = ConstError("contract already deployed")
	ErrContractNotDeployed       = ConstError("contract not deployed")
	ErrClassNotFound             = ConstError("class not found")
	ErrEntryPointNotFound        = ConstError("entry point not found")
	ErrCompilationFailed         = ConstError("class compilation failed")
)

// Errors describing the failure of an individual contract call. They appear
// as the innermost element of a CallFailure chain.
const (
	ErrOutOfSteps            = ConstError("out of steps")
	ErrDepthLimit            = ConstError("max call depth exceeded")
	ErrPointNotOnCurve       = ConstError("point not on curve")
	ErrForbiddenInValidation = ConstError("operation not allowed during validation")
	ErrBlockHashUnavailable  = ConstError("block hash not available")
	ErrEventTooLarge         = ConstError("event exceeds size limits")
	ErrMessageTooLarge       = ConstError("message payload exceeds size limit")
	ErrExecutionFailed       = ConstError("execution failed")
)

// CallFailure describes the failure of a single contract call. Failures are
// chained from the outermost call frame down to the frame that caused the
// problem, so that every contract on the failing path is recorded.
type CallFailure struct {
	Contract Address
	Class    ClassHash
	Selector Selector
	Reason   []Felt // failure reason data reported by the failing program
	Err      error  // the inner failure, another *CallFailure or a plain error
}

func (f *CallFailure) Error() string {
	return fmt.Sprintf("error in contract %v, class %v, selector %v: %v",
		f.Contract, f.Class, f.Selector, f.Err)
}

func (f *CallFailure) Unwrap() error {
	return f.Err
}

// Error for runs with unsupported Revision
type ErrUnsupportedRevision struct {
	Revision Revision
}

func (e *ErrUnsupportedRevision) Error() string {
	return fmt.Sprintf("unsupported revision %d", e.Revision)
}
