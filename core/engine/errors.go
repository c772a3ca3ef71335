// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/scrtlabs/SecretNetwork-sub000/core/output"
	"github.com/scrtlabs/SecretNetwork-sub000/core/secretmsg"
	"github.com/scrtlabs/SecretNetwork-sub000/core/types"
	"github.com/scrtlabs/SecretNetwork-sub000/core/vm"
	"github.com/scrtlabs/SecretNetwork-sub000/internal/keyring"
)

var (
	ErrInvalidConfig      = errors.New("invalid engine config")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrSenderMismatch     = errors.New("signer does not match sender")
	ErrMessageNotSigned   = errors.New("message not found in signed document")
	ErrInvalidCallbackSig = errors.New("invalid callback signature")
	ErrMissingContractKey = errors.New("env is missing the contract key")
	ErrInvalidKeyProof    = errors.New("invalid contract key proof")
	ErrInvalidAdminProof  = errors.New("invalid admin proof")
	ErrNotAdmin           = errors.New("sender is not the contract admin")
	ErrInvalidAddress     = errors.New("invalid address")
	ErrInvalidMessage     = errors.New("message is not valid JSON")
	ErrInvalidReply       = errors.New("invalid reply")
	ErrInvalidReplySig    = errors.New("invalid reply signature")
	ErrUnsupportedHandle  = errors.New("handle type not supported by this contract")
	ErrUnsupportedQuery   = errors.New("unsupported query")
	ErrUnknownContract    = errors.New("unknown contract")
	ErrQueryDepthInEnv    = errors.New("query depth in env exceeds limit")
)

// Code is the status the enclave reports to the chain for a failed call.
type Code uint8

const (
	CodeUnknown Code = iota
	CodeFailedTxVerification
	CodeValidationFailure
	CodeFailedToDeserialize
	CodeFailedToSerialize
	CodeFailedSealing
	CodeDecryptionFailure
	CodeHostFault
	CodeOutOfGas
	CodeExceededRecursionLimit
	CodeContractPanic
	CodeInvalidModule
)

var codeNames = [...]string{
	"unknown",
	"failed tx verification",
	"validation failure",
	"failed to deserialize",
	"failed to serialize",
	"failed sealing",
	"decryption failure",
	"host fault",
	"out of gas",
	"exceeded recursion limit",
	"contract panic",
	"invalid module",
}

func (c Code) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("code(%d)", uint8(c))
}

// EnclaveError is a call failure that is not a guest error. Guest errors are
// returned as encrypted output instead.
//
// Error is what leaves the enclave, so it carries the code and the sealed
// Reason only. Err keeps the full cause for errors.Is and the enclave log.
type EnclaveError struct {
	Code Code
	Err  error
	// Reason is the guest's abort reason encrypted under the call key. Empty
	// for failures that carry no guest data.
	Reason string
}

func (e *EnclaveError) Error() string {
	if e.Reason == "" {
		return e.Code.String()
	}
	return e.Code.String() + failureSep + e.Reason
}

const failureSep = ": "

// parseFailure splits a failure report of the EnclaveError.Error form. It
// rejects any text the enclave does not produce.
func parseFailure(s string) (Code, string, bool) {
	name, reason, _ := strings.Cut(s, failureSep)
	for i, known := range codeNames {
		if name == known {
			return Code(i), reason, true
		}
	}
	return CodeUnknown, "", false
}

func (e *EnclaveError) Unwrap() error { return e.Err }

// CodeOf returns the status of err, CodeUnknown for foreign errors.
func CodeOf(err error) Code {
	var ee *EnclaveError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return CodeUnknown
}

var classes = []struct {
	code Code
	errs []error
}{
	{CodeOutOfGas, []error{vm.ErrOutOfGas}},
	{CodeExceededRecursionLimit, []error{vm.ErrRecursionLimit, ErrQueryDepthInEnv}},
	{CodeContractPanic, []error{vm.ErrGuestPanic}},
	{CodeInvalidModule, []error{vm.ErrInvalidModule, vm.ErrUnknownImport, vm.ErrMissingExport, vm.ErrUnknownVersion, vm.ErrMissingEntryPoint, ErrUnsupportedHandle}},
	{CodeHostFault, []error{vm.ErrUnauthorizedWrite, vm.ErrNullPointer, vm.ErrRegionOutOfBounds, vm.ErrRegionInvalid, vm.ErrRegionTooSmall, vm.ErrRegionTooLarge, vm.ErrNoContext, vm.ErrAllocation}},
	{CodeFailedTxVerification, []error{ErrInvalidSignature, ErrSenderMismatch, ErrMessageNotSigned, ErrInvalidCallbackSig, types.ErrInvalidFunds}},
	{CodeDecryptionFailure, []error{secretmsg.ErrDecryption, secretmsg.ErrMessageTooShort}},
	{CodeValidationFailure, []error{types.ErrInvalidContractKey, ErrMissingContractKey, ErrInvalidKeyProof, ErrInvalidAdminProof, ErrNotAdmin, ErrInvalidAddress, ErrInvalidMessage, ErrInvalidReply, ErrInvalidReplySig, secretmsg.ErrInvalidHeader, secretmsg.ErrCodeHashMismatch}},
	{CodeFailedToDeserialize, []error{types.ErrInvalidEnv, types.ErrInvalidSigInfo, types.ErrUnknownHandleType}},
	{CodeFailedToSerialize, []error{output.ErrInvalidOutput, output.ErrMissingSigner}},
	{CodeFailedSealing, []error{keyring.ErrKeyringClosed}},
}

// classify wraps err in an EnclaveError with the code of the first matching
// sentinel.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ee *EnclaveError
	if errors.As(err, &ee) {
		return err
	}
	for _, class := range classes {
		for _, target := range class.errs {
			if errors.Is(err, target) {
				return &EnclaveError{Code: class.code, Err: err}
			}
		}
	}
	return &EnclaveError{Code: CodeUnknown, Err: err}
}
