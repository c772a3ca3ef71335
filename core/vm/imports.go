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

import (
	"context"
	"errors"
)

// hostCall adapts HostBridge methods to the region calling convention. The
// wasm runtime wraps each method in a host function; errors returned here
// abort the guest.
type hostCall struct {
	b   *HostBridge
	mem *guestMemory
}

// guestResult writes a host-side GuestError message into a new region and
// returns its pointer. Nil error yields 0.
func (h *hostCall) guestResult(ctx context.Context, err error) (uint32, error) {
	if err == nil {
		return 0, nil
	}
	var ge *GuestError
	if !errors.As(err, &ge) {
		return 0, err
	}
	return h.mem.store(ctx, []byte(ge.Msg))
}

func packResult(code, ptr uint32) uint64 { return uint64(code)<<32 | uint64(ptr) }

func (h *hostCall) dbRead(ctx context.Context, keyPtr uint32) (uint32, error) {
	key, err := h.mem.read(keyPtr, MaxKeyLength)
	if err != nil {
		return 0, err
	}
	value, err := h.b.ReadStorage(key)
	if err != nil || value == nil {
		return 0, err
	}
	return h.mem.store(ctx, value)
}

func (h *hostCall) dbWrite(keyPtr, valuePtr uint32) error {
	// Authorization comes before touching guest memory.
	if !h.b.cc.AllowWrites {
		return h.b.WriteStorage(nil, nil)
	}
	key, err := h.mem.read(keyPtr, MaxKeyLength)
	if err != nil {
		return err
	}
	value, err := h.mem.read(valuePtr, MaxValueLength)
	if err != nil {
		return err
	}
	return h.b.WriteStorage(key, value)
}

func (h *hostCall) dbRemove(keyPtr uint32) error {
	if !h.b.cc.AllowWrites {
		return h.b.RemoveStorage(nil)
	}
	key, err := h.mem.read(keyPtr, MaxKeyLength)
	if err != nil {
		return err
	}
	return h.b.RemoveStorage(key)
}

func (h *hostCall) canonicalize(ctx context.Context, srcPtr, dstPtr uint32) (uint32, error) {
	human, err := h.mem.read(srcPtr, MaxAddressLength)
	if err != nil {
		return 0, err
	}
	canonical, err := h.b.CanonicalizeAddress(string(human))
	if err != nil {
		return h.guestResult(ctx, err)
	}
	return 0, h.mem.write(dstPtr, canonical)
}

func (h *hostCall) humanize(ctx context.Context, srcPtr, dstPtr uint32) (uint32, error) {
	canonical, err := h.mem.read(srcPtr, MaxAddressLength)
	if err != nil {
		return 0, err
	}
	human, err := h.b.HumanizeAddress(canonical)
	if err != nil {
		return h.guestResult(ctx, err)
	}
	return 0, h.mem.write(dstPtr, []byte(human))
}

func (h *hostCall) validate(ctx context.Context, srcPtr uint32) (uint32, error) {
	human, err := h.mem.read(srcPtr, MaxAddressLength)
	if err != nil {
		return 0, err
	}
	return h.guestResult(ctx, h.b.ValidateAddress(string(human)))
}

func (h *hostCall) queryChain(ctx context.Context, reqPtr uint32) (uint32, error) {
	req, err := h.mem.read(reqPtr, MaxQueryLength)
	if err != nil {
		return 0, err
	}
	res, err := h.b.QueryChain(ctx, req)
	if err != nil {
		return 0, err
	}
	return h.mem.store(ctx, res)
}

func (h *hostCall) readAll(ptrs ...uint32) ([][]byte, error) {
	out := make([][]byte, len(ptrs))
	for i, p := range ptrs {
		data, err := h.mem.read(p, MaxCryptoLength)
		if err != nil {
			return nil, err
		}
		out[i] = data
	}
	return out, nil
}

func (h *hostCall) secp256k1Verify(hashPtr, sigPtr, pubPtr uint32) (uint32, error) {
	in, err := h.readAll(hashPtr, sigPtr, pubPtr)
	if err != nil {
		return 0, err
	}
	return h.b.Secp256k1Verify(in[0], in[1], in[2])
}

func (h *hostCall) secp256k1Recover(ctx context.Context, hashPtr, sigPtr, param uint32) (uint64, error) {
	in, err := h.readAll(hashPtr, sigPtr)
	if err != nil {
		return 0, err
	}
	pub, code, err := h.b.Secp256k1RecoverPubkey(in[0], in[1], param)
	return h.codeAndData(ctx, pub, code, err)
}

func (h *hostCall) secp256k1Sign(ctx context.Context, msgPtr, privPtr uint32) (uint64, error) {
	in, err := h.readAll(msgPtr, privPtr)
	if err != nil {
		return 0, err
	}
	sig, code, err := h.b.Secp256k1Sign(in[0], in[1])
	return h.codeAndData(ctx, sig, code, err)
}

func (h *hostCall) ed25519Verify(msgPtr, sigPtr, pubPtr uint32) (uint32, error) {
	in, err := h.readAll(msgPtr, sigPtr, pubPtr)
	if err != nil {
		return 0, err
	}
	return h.b.Ed25519Verify(in[0], in[1], in[2])
}

func (h *hostCall) ed25519BatchVerify(msgsPtr, sigsPtr, pubsPtr uint32) (uint32, error) {
	in, err := h.readAll(msgsPtr, sigsPtr, pubsPtr)
	if err != nil {
		return 0, err
	}
	var lists [3][][]byte
	for i, raw := range in {
		if lists[i], err = decodeSections(raw); err != nil {
			return CryptoBatchErr, nil
		}
	}
	return h.b.Ed25519BatchVerify(lists[0], lists[1], lists[2])
}

func (h *hostCall) ed25519Sign(ctx context.Context, msgPtr, privPtr uint32) (uint64, error) {
	in, err := h.readAll(msgPtr, privPtr)
	if err != nil {
		return 0, err
	}
	sig, code, err := h.b.Ed25519Sign(in[0], in[1])
	return h.codeAndData(ctx, sig, code, err)
}

func (h *hostCall) codeAndData(ctx context.Context, data []byte, code uint32, err error) (uint64, error) {
	if err != nil {
		return 0, err
	}
	if code != CryptoOK {
		return packResult(code, 0), nil
	}
	ptr, err := h.mem.store(ctx, data)
	if err != nil {
		return 0, err
	}
	return packResult(CryptoOK, ptr), nil
}

func (h *hostCall) debug(msgPtr uint32) error {
	msg, err := h.mem.read(msgPtr, MaxDebugLength)
	if err != nil {
		return err
	}
	return h.b.Debug(string(msg))
}

func (h *hostCall) abort(msgPtr uint32) error {
	msg, err := h.mem.read(msgPtr, MaxDebugLength)
	if err != nil {
		return &PanicError{Reason: "abort"}
	}
	return &PanicError{Reason: string(msg)}
}
