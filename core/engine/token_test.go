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
	"context"
	"encoding/json"
	"strconv"

	"github.com/scrtlabs/SecretNetwork-sub000/core/output"
	"github.com/scrtlabs/SecretNetwork-sub000/core/types"
	"github.com/scrtlabs/SecretNetwork-sub000/core/vm"
	"github.com/scrtlabs/SecretNetwork-sub000/core/vm/vmtest"
)

// A small token contract written against the host bridge.
var (
	tokenCode   = []byte("native token contract v1")
	tokenV2Code = []byte("native token contract v2")
)

type tokenBalance struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type tokenInitMsg struct {
	Decimals        uint8          `json:"decimals"`
	InitialBalances []tokenBalance `json:"initial_balances"`
}

type transferMsg struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type callMsg struct {
	Contract string          `json:"contract"`
	CodeHash string          `json:"code_hash"`
	Msg      json.RawMessage `json:"msg"`
}

type echoMsg struct {
	Data string `json:"data"`
}

type tokenExecuteMsg struct {
	Transfer *transferMsg `json:"transfer,omitempty"`
	Call     *callMsg     `json:"call,omitempty"`
	Panic    *struct{}    `json:"panic,omitempty"`
	Echo     *echoMsg     `json:"echo,omitempty"`
	BurnGas  *struct{}    `json:"burn_gas,omitempty"`
}

type addressMsg struct {
	Address string `json:"address"`
}

type recurseMsg struct {
	N        uint32 `json:"n"`
	Contract string `json:"contract"`
	CodeHash string `json:"code_hash"`
}

type tokenQueryMsg struct {
	TotalSupply *struct{}   `json:"total_supply,omitempty"`
	Balance     *addressMsg `json:"balance,omitempty"`
	LastReply   *struct{}   `json:"last_reply,omitempty"`
	Marker      *struct{}   `json:"marker,omitempty"`
	Migrated    *struct{}   `json:"migrated,omitempty"`
	Recurse     *recurseMsg `json:"recurse,omitempty"`
	Write       *struct{}   `json:"write,omitempty"`
}

func tokenGuest() *vmtest.Guest {
	return &vmtest.Guest{
		Version: vm.Version1,
		Entries: map[string]vmtest.Entry{
			vm.EntryInstantiate:  tokenInstantiate,
			vm.EntryExecute:      tokenExecute,
			vm.EntryReply:        tokenReply,
			vm.EntryMigrate:      tokenMigrate,
			vm.EntryQuery:        tokenQuery,
			"ibc_packet_receive": tokenPacketReceive,
		},
	}
}

func okResult(v any) ([]byte, error) {
	return json.Marshal(map[string]any{"ok": v})
}

func errResult(msg string) ([]byte, error) {
	return json.Marshal(map[string]any{"error": map[string]any{"generic_err": map[string]string{"msg": msg}}})
}

func queryResult(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return okResult(b)
}

func balanceKey(addr string) []byte { return []byte("balance/" + addr) }

func getUint(host *vm.HostBridge, key []byte) (uint64, error) {
	v, err := host.ReadStorage(key)
	if err != nil || v == nil {
		return 0, err
	}
	return strconv.ParseUint(string(v), 10, 64)
}

func setUint(host *vm.HostBridge, key []byte, v uint64) error {
	return host.WriteStorage(key, []byte(strconv.FormatUint(v, 10)))
}

func tokenInstantiate(_ context.Context, host *vm.HostBridge, args [][]byte) ([]byte, error) {
	var msg tokenInitMsg
	if err := json.Unmarshal(args[2], &msg); err != nil {
		return errResult(err.Error())
	}
	var supply uint64
	for _, b := range msg.InitialBalances {
		amount, err := strconv.ParseUint(b.Amount, 10, 64)
		if err != nil {
			return errResult("invalid amount")
		}
		if _, err := host.CanonicalizeAddress(b.Address); err != nil {
			if vm.IsGuestError(err) {
				return errResult(err.Error())
			}
			return nil, err
		}
		supply += amount
		if err := setUint(host, balanceKey(b.Address), amount); err != nil {
			return nil, err
		}
	}
	if err := setUint(host, []byte("decimals"), uint64(msg.Decimals)); err != nil {
		return nil, err
	}
	if err := setUint(host, []byte("total_supply"), supply); err != nil {
		return nil, err
	}
	return okResult(output.Response{})
}

func tokenExecute(_ context.Context, host *vm.HostBridge, args [][]byte) ([]byte, error) {
	var info guestInfo
	if err := json.Unmarshal(args[1], &info); err != nil {
		return nil, err
	}
	var msg tokenExecuteMsg
	if err := json.Unmarshal(args[2], &msg); err != nil {
		return errResult(err.Error())
	}
	switch {
	case msg.Transfer != nil:
		amount, err := strconv.ParseUint(msg.Transfer.Amount, 10, 64)
		if err != nil {
			return errResult("invalid amount")
		}
		// Credit first so a failed debit has something to roll back.
		to, err := getUint(host, balanceKey(msg.Transfer.Recipient))
		if err != nil {
			return nil, err
		}
		if err := setUint(host, balanceKey(msg.Transfer.Recipient), to+amount); err != nil {
			return nil, err
		}
		from, err := getUint(host, balanceKey(info.Sender))
		if err != nil {
			return nil, err
		}
		if from < amount {
			return errResult("insufficient funds")
		}
		if err := setUint(host, balanceKey(info.Sender), from-amount); err != nil {
			return nil, err
		}
		return okResult(output.Response{Attributes: []types.Attribute{{Key: "action", Value: "transfer"}}})
	case msg.Call != nil:
		if err := host.WriteStorage([]byte("marker"), []byte("before")); err != nil {
			return nil, err
		}
		return okResult(output.Response{Messages: []output.SubMsg{{
			ID:      42,
			ReplyOn: output.ReplyAlways,
			Msg: output.CosmosMsg{Wasm: &output.WasmMsg{Execute: &output.WasmExecute{
				ContractAddr: msg.Call.Contract,
				CodeHash:     msg.Call.CodeHash,
				Msg:          msg.Call.Msg,
			}}},
		}}})
	case msg.Panic != nil:
		panic("boom")
	case msg.Echo != nil:
		return okResult(output.Response{Data: []byte(msg.Echo.Data)})
	case msg.BurnGas != nil:
		if err := host.WriteStorage([]byte("marker"), []byte("burned")); err != nil {
			return nil, err
		}
		if err := host.ChargeGas(1 << 62); err != nil {
			return nil, err
		}
		return okResult(output.Response{})
	}
	return errResult("unknown message")
}

func tokenReply(_ context.Context, host *vm.HostBridge, args [][]byte) ([]byte, error) {
	var reply types.GuestReply
	if err := json.Unmarshal(args[1], &reply); err != nil {
		return errResult(err.Error())
	}
	record := map[string]any{"id": reply.ID}
	if ok := reply.Result.Ok; ok != nil {
		record["ok"] = string(ok.Data)
	} else {
		record["error"] = *reply.Result.Error
	}
	b, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	if err := host.WriteStorage([]byte("last_reply"), b); err != nil {
		return nil, err
	}
	return okResult(output.Response{})
}

func tokenMigrate(_ context.Context, host *vm.HostBridge, args [][]byte) ([]byte, error) {
	if len(args) != 2 {
		return errResult("migrate takes env and msg")
	}
	if err := host.WriteStorage([]byte("migrated"), args[1]); err != nil {
		return nil, err
	}
	return okResult(output.Response{})
}

func tokenPacketReceive(_ context.Context, _ *vm.HostBridge, args [][]byte) ([]byte, error) {
	plain := false
	return okResult(output.Response{
		Attributes:      []types.Attribute{{Key: "packet", Value: string(args[1]), Encrypted: &plain}},
		Acknowledgement: []byte(`{"result":"ok"}`),
	})
}

func tokenQuery(ctx context.Context, host *vm.HostBridge, args [][]byte) ([]byte, error) {
	var msg tokenQueryMsg
	if err := json.Unmarshal(args[1], &msg); err != nil {
		return errResult(err.Error())
	}
	switch {
	case msg.TotalSupply != nil:
		supply, err := getUint(host, []byte("total_supply"))
		if err != nil {
			return nil, err
		}
		return queryResult(map[string]string{"total_supply": strconv.FormatUint(supply, 10)})
	case msg.Balance != nil:
		bal, err := getUint(host, balanceKey(msg.Balance.Address))
		if err != nil {
			return nil, err
		}
		return queryResult(map[string]string{"amount": strconv.FormatUint(bal, 10)})
	case msg.LastReply != nil:
		v, err := host.ReadStorage([]byte("last_reply"))
		if err != nil {
			return nil, err
		}
		if v == nil {
			v = []byte("null")
		}
		return okResult(v)
	case msg.Marker != nil, msg.Migrated != nil:
		key := "marker"
		if msg.Migrated != nil {
			key = "migrated"
		}
		v, err := host.ReadStorage([]byte(key))
		if err != nil {
			return nil, err
		}
		return queryResult(map[string]string{key: string(v)})
	case msg.Recurse != nil:
		return tokenRecurse(ctx, host, msg.Recurse)
	case msg.Write != nil:
		if err := host.WriteStorage([]byte("marker"), []byte("query")); err != nil {
			return nil, err
		}
		return queryResult(nil)
	}
	return errResult("unknown query")
}

// tokenRecurse queries the given contract n times deep and reports how deep
// it went.
func tokenRecurse(ctx context.Context, host *vm.HostBridge, r *recurseMsg) ([]byte, error) {
	type depthResult struct {
		Depth uint32 `json:"depth"`
	}
	if r.N == 0 {
		return queryResult(depthResult{})
	}
	inner, err := json.Marshal(tokenQueryMsg{Recurse: &recurseMsg{N: r.N - 1, Contract: r.Contract, CodeHash: r.CodeHash}})
	if err != nil {
		return nil, err
	}
	req, err := json.Marshal(map[string]any{"wasm": map[string]any{"smart": map[string]any{
		"contract_addr": r.Contract,
		"code_hash":     r.CodeHash,
		"msg":           inner,
	}}})
	if err != nil {
		return nil, err
	}
	res, err := host.QueryChain(ctx, req)
	if err != nil {
		return nil, err
	}
	data, err := vm.DecodeQueryResult(res)
	if err != nil {
		return errResult(err.Error())
	}
	var d depthResult
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return queryResult(depthResult{Depth: d.Depth + 1})
}
