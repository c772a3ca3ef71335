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

package vm

import "errors"

// Sandbox faults. Each of these aborts the call; none is visible to the guest.
var (
	ErrUnauthorizedWrite = errors.New("storage write not allowed in this operation")
	ErrNullPointer       = errors.New("null pointer passed to host")
	ErrRegionOutOfBounds = errors.New("region out of bounds")
	ErrRegionInvalid     = errors.New("region length exceeds capacity")
	ErrRegionTooSmall    = errors.New("region too small for data")
	ErrRegionTooLarge    = errors.New("region exceeds length limit")
	ErrOutOfGas          = errors.New("out of gas")
	ErrRecursionLimit    = errors.New("query recursion limit exceeded")
	ErrUnknownImport     = errors.New("module imports unknown function")
	ErrMissingExport     = errors.New("module is missing a required export")
	ErrUnknownVersion    = errors.New("module has no recognized interface version")
	ErrMissingEntryPoint = errors.New("module does not export entry point")
	ErrInvalidModule     = errors.New("invalid module")
	ErrGuestPanic        = errors.New("guest panicked")
	ErrNoContext         = errors.New("host called outside a contract call")
	ErrAllocation        = errors.New("guest allocation failed")
)

// GuestError is returned by host operations whose failure is reported back
// to the guest as a message instead of aborting the call.
type GuestError struct {
	Msg string
}

func (e *GuestError) Error() string { return e.Msg }

func guestErr(msg string) error { return &GuestError{Msg: msg} }

// PanicError is a call aborted by the guest. Reason is guest data and is
// left out of Error so it cannot leak into plaintext failure reports.
type PanicError struct {
	Reason string
}

func (e *PanicError) Error() string { return ErrGuestPanic.Error() }
func (e *PanicError) Unwrap() error { return ErrGuestPanic }

// IsGuestError reports whether err should be written into guest memory.
func IsGuestError(err error) bool {
	var ge *GuestError
	return errors.As(err, &ge)
}
