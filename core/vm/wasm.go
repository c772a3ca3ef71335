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
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"golang.org/x/sync/singleflight"
)

// WasmConfig configures the wasm runtime.
type WasmConfig struct {
	MemoryLimitPages uint32 `toml:"memory_limit_pages"` // 64KiB pages per instance
	CacheSize        int    `toml:"cache_size"`         // compiled modules kept in memory
}

func DefaultWasmConfig() WasmConfig {
	return WasmConfig{MemoryLimitPages: 512, CacheSize: 64}
}

const (
	hostModule       = "env"
	exportAllocate   = "allocate"
	exportDeallocate = "deallocate"
	exportMemory     = "memory"
)

// compiledContract is a validated module ready to instantiate.
type compiledContract struct {
	module  wazero.CompiledModule
	version Version
	exports map[string]api.FunctionDefinition
}

// WasmRuntime runs guest modules in the wazero interpreter. The env host
// module is instantiated once; host functions find the bridge of the
// current call through the call context.
type WasmRuntime struct {
	rt       wazero.Runtime
	cache    *lru.Cache[common.Hash, *compiledContract]
	compiles singleflight.Group
}

func NewWasmRuntime(ctx context.Context, cfg WasmConfig) (*WasmRuntime, error) {
	rc := wazero.NewRuntimeConfigInterpreter().
		WithMemoryLimitPages(cfg.MemoryLimitPages).
		WithCloseOnContextDone(true)
	rt := wazero.NewRuntimeWithConfig(ctx, rc)

	cache, err := lru.NewWithEvict[common.Hash, *compiledContract](cfg.CacheSize, func(hash common.Hash, c *compiledContract) {
		log.Debug("Evicting compiled contract", "hash", hash)
		c.module.Close(context.Background())
	})
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	if err := instantiateHostModule(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, err
	}
	return &WasmRuntime{rt: rt, cache: cache}, nil
}

func (w *WasmRuntime) Close(ctx context.Context) error {
	w.cache.Purge()
	return w.rt.Close(ctx)
}

func (w *WasmRuntime) compile(ctx context.Context, code []byte) (*compiledContract, error) {
	hash := common.Hash(sha256.Sum256(code))
	if c, ok := w.cache.Get(hash); ok {
		return c, nil
	}
	// Concurrent calls into the same new contract share one compilation.
	v, err, _ := w.compiles.Do(hash.Hex(), func() (any, error) {
		if c, ok := w.cache.Get(hash); ok {
			return c, nil
		}
		metered, err := instrumentGas(code)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidModule, err)
		}
		module, err := w.rt.CompileModule(ctx, metered)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidModule, err)
		}
		c, err := validateModule(module)
		if err != nil {
			module.Close(ctx)
			return nil, err
		}
		w.cache.Add(hash, c)
		log.Debug("Compiled contract", "hash", hash, "version", c.version, "exports", len(c.exports))
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*compiledContract), nil
}

// validateModule enforces the closed import table and the required exports.
func validateModule(module wazero.CompiledModule) (*compiledContract, error) {
	for _, def := range module.ImportedFunctions() {
		moduleName, name, _ := def.Import()
		if moduleName != hostModule || !isHostImport(name) {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownImport, moduleName, name)
		}
	}
	exports := module.ExportedFunctions()
	if _, ok := exports[exportAllocate]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingExport, exportAllocate)
	}
	if _, ok := module.ExportedMemories()[exportMemory]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingExport, exportMemory)
	}
	version, err := DetectVersion(func(name string) bool {
		_, ok := exports[name]
		return ok
	})
	if err != nil {
		return nil, err
	}
	return &compiledContract{module: module, version: version, exports: exports}, nil
}

// Load compiles (or fetches from cache) and instantiates code.
func (w *WasmRuntime) Load(ctx context.Context, code []byte, bridge *HostBridge) (Instance, error) {
	c, err := w.compile(ctx, code)
	if err != nil {
		return nil, err
	}
	// Anonymous instances never collide in the runtime namespace.
	cfg := wazero.NewModuleConfig().WithName("").WithStartFunctions()
	mod, err := w.rt.InstantiateModule(withBridge(ctx, bridge), c.module, cfg)
	if err != nil {
		return nil, classifyTrap(err)
	}
	counter, ok := mod.ExportedGlobal(gasCounterExport).(api.MutableGlobal)
	if !ok {
		mod.Close(ctx)
		return nil, fmt.Errorf("%w: gas counter missing", ErrInvalidModule)
	}
	bridge.meter = &guestMeter{counter: counter}
	return &wasmInstance{contract: c, mod: mod, bridge: bridge}, nil
}

type wasmInstance struct {
	contract *compiledContract
	mod      api.Module
	bridge   *HostBridge
}

func (i *wasmInstance) Version() Version { return i.contract.version }

func (i *wasmInstance) Has(entry string) bool {
	_, ok := i.contract.exports[entry]
	return ok
}

func (i *wasmInstance) memory() *guestMemory {
	return newGuestMemory(i.mod)
}

func (i *wasmInstance) Call(ctx context.Context, entry string, args ...[]byte) ([]byte, error) {
	fn := i.mod.ExportedFunction(entry)
	if fn == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingEntryPoint, entry)
	}
	ctx = withBridge(ctx, i.bridge)
	mem := i.memory()
	if err := i.bridge.syncGuestGas(); err != nil {
		return nil, err
	}

	params := make([]uint64, len(args))
	for j, arg := range args {
		ptr, err := mem.store(ctx, arg)
		if err != nil {
			return nil, i.fault(err)
		}
		params[j] = uint64(ptr)
	}
	res, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, i.fault(err)
	}
	if err := i.bridge.syncGuestGas(); err != nil {
		return nil, err
	}
	if len(res) != 1 {
		return nil, fmt.Errorf("%w: %s returned %d values", ErrInvalidModule, entry, len(res))
	}
	out, err := mem.read(uint32(res[0]), MaxResultLength)
	if err != nil {
		return nil, err
	}
	if dealloc := i.mod.ExportedFunction(exportDeallocate); dealloc != nil {
		if _, err := dealloc.Call(ctx, res[0]); err != nil {
			return nil, i.fault(err)
		}
		if err := i.bridge.syncGuestGas(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// fault settles the guest's gas before classifying a trap, so a guest that
// trapped on its exhausted counter reports ErrOutOfGas.
func (i *wasmInstance) fault(err error) error {
	if gasErr := i.bridge.syncGuestGas(); gasErr != nil {
		return gasErr
	}
	return classifyTrap(err)
}

func (i *wasmInstance) Close(ctx context.Context) error {
	return i.mod.Close(ctx)
}

func newGuestMemory(mod api.Module) *guestMemory {
	return &guestMemory{
		mem: mod.Memory(),
		alloc: func(ctx context.Context, size uint32) (uint32, error) {
			res, err := mod.ExportedFunction(exportAllocate).Call(ctx, uint64(size))
			if err != nil {
				return 0, classifyTrap(err)
			}
			if len(res) != 1 {
				return 0, fmt.Errorf("%w: allocate returned %d values", ErrInvalidModule, len(res))
			}
			return uint32(res[0]), nil
		},
	}
}

// hostFault carries a host error through a wazero panic.
type hostFault struct{ err error }

func (f *hostFault) Error() string { return f.err.Error() }
func (f *hostFault) Unwrap() error { return f.err }

// classifyTrap separates host faults, which keep their identity, from traps
// raised by the guest itself.
func classifyTrap(err error) error {
	var fault *hostFault
	if errors.As(err, &fault) {
		return fault.err
	}
	for _, known := range []error{ErrOutOfGas, ErrRecursionLimit, ErrGuestPanic, ErrUnauthorizedWrite, ErrAllocation} {
		if errors.Is(err, known) {
			return err
		}
	}
	var exit *sys.ExitError
	if errors.As(err, &exit) {
		return &PanicError{Reason: fmt.Sprintf("exit code %d", exit.ExitCode())}
	}
	return &PanicError{Reason: err.Error()}
}

type bridgeKey struct{}

func withBridge(ctx context.Context, b *HostBridge) context.Context {
	return context.WithValue(ctx, bridgeKey{}, b)
}

func bridgeFrom(ctx context.Context) *HostBridge {
	b, _ := ctx.Value(bridgeKey{}).(*HostBridge)
	return b
}
