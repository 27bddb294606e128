package engine

import (
	"context"
	"slices"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmit "github.com/wippyai/wasm-interface-types"
	"github.com/wippyai/wasm-interface-types/errors"
	"github.com/wippyai/wasm-interface-types/itypes"
	"github.com/wippyai/wasm-interface-types/memory"
)

// Instance is an instantiated module exposed to adapters. Local-or-import
// index 0 is the allocate export; further indices are assigned by Bind in
// call order, starting with Config.Functions.
//
// An Instance is not safe for concurrent use.
type Instance struct {
	runtime wazero.Runtime
	module  api.Module
	mem     api.Memory
	records wasmit.RecordResolver
	hosts   map[string]*HostFunc
	index   map[string]uint32
	funcs   []wasmit.Function
}

// Instantiate compiles and instantiates wasmBytes in a dedicated wazero
// runtime. records resolves the record types adapters refer to and may be
// nil when no adapter uses records. A nil cfg means defaults.
func Instantiate(ctx context.Context, wasmBytes []byte, records wasmit.RecordResolver, cfg *Config) (*Instance, error) {
	c := cfg.withDefaults()

	runtimeCfg := wazero.NewRuntimeConfig()
	if c.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(c.MemoryLimitPages)
	}
	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	inst, err := instantiate(ctx, runtime, wasmBytes, records, c)
	if err != nil {
		if cerr := runtime.Close(ctx); cerr != nil {
			Logger().Warn("close runtime after failed instantiation", zap.Error(cerr))
		}
		return nil, err
	}
	return inst, nil
}

func instantiate(ctx context.Context, runtime wazero.Runtime, wasmBytes []byte, records wasmit.RecordResolver, c Config) (*Instance, error) {
	inst := &Instance{
		runtime: runtime,
		records: records,
		hosts:   make(map[string]*HostFunc, len(c.Hosts)),
		index:   make(map[string]uint32),
		funcs:   make([]wasmit.Function, 1, 1+len(c.Functions)),
	}

	if c.WASI {
		if _, err := instantiateWASI(ctx, runtime); err != nil {
			return nil, errors.Wrap(errors.PhaseLoad, errors.KindInstantiation, err, "instantiate WASI")
		}
	}

	if len(c.Hosts) > 0 {
		builder := runtime.NewHostModuleBuilder(c.HostModule)
		for _, h := range c.Hosts {
			params, results, err := h.coreSignature()
			if err != nil {
				return nil, err
			}
			names := make([]string, len(h.params))
			for i, p := range h.params {
				names[i] = p.Name
			}
			builder = builder.NewFunctionBuilder().
				WithGoModuleFunction(h.goModuleFunc(), params, results).
				WithParameterNames(names...).
				Export(h.name)
			inst.hosts[h.name] = h
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return nil, errors.Wrap(errors.PhaseLoad, errors.KindInstantiation, err, "instantiate host module "+c.HostModule)
		}
	}

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInstantiation, err, "compile module")
	}
	module, err := runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(c.ModuleName))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInstantiation, err, "instantiate module")
	}
	inst.module = module

	if c.MemoryExport != "" {
		inst.mem = module.ExportedMemory(c.MemoryExport)
		if inst.mem == nil {
			return nil, errors.NotFound(errors.PhaseLoad, "memory export", c.MemoryExport)
		}
	} else {
		inst.mem = module.Memory()
	}

	if fn := module.ExportedFunction(c.AllocateExport); fn != nil {
		alloc, err := newExportFunction(c.AllocateExport, fn)
		if err != nil {
			return nil, err
		}
		inst.funcs[wasmit.AllocateFuncIndex] = alloc
		inst.index[c.AllocateExport] = wasmit.AllocateFuncIndex
	} else {
		Logger().Warn("allocate export not found, lowering will fail",
			zap.String("export", c.AllocateExport))
	}

	for _, name := range c.Functions {
		if _, err := inst.Bind(name); err != nil {
			return nil, err
		}
	}

	Logger().Debug("instantiated module",
		zap.String("name", c.ModuleName),
		zap.Int("functions", len(inst.funcs)),
		zap.Bool("memory", inst.mem != nil),
	)
	return inst, nil
}

// Bind assigns the next local-or-import index to the host function or
// export called name and returns it. Binding a name twice returns the
// index it already has.
func (i *Instance) Bind(name string) (uint32, error) {
	if idx, ok := i.index[name]; ok {
		return idx, nil
	}

	var fn wasmit.Function
	if h, ok := i.hosts[name]; ok {
		fn = h
	} else {
		export := i.module.ExportedFunction(name)
		if export == nil {
			return 0, errors.NotFound(errors.PhaseLoad, "function", name)
		}
		ef, err := newExportFunction(name, export)
		if err != nil {
			return 0, err
		}
		fn = ef
	}

	idx := uint32(len(i.funcs))
	i.funcs = append(i.funcs, fn)
	i.index[name] = idx
	return idx, nil
}

// FunctionIndex returns the index bound to name.
func (i *Instance) FunctionIndex(name string) (uint32, bool) {
	idx, ok := i.index[name]
	return idx, ok
}

// Exports returns the names of the module's exported functions, sorted.
func (i *Instance) Exports() []string {
	defs := i.module.ExportedFunctionDefinitions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (i *Instance) LocalOrImport(index uint32) (wasmit.Function, bool) {
	if int(index) >= len(i.funcs) || i.funcs[index] == nil {
		return nil, false
	}
	return i.funcs[index], true
}

// MemoryView returns a view of the current memory contents. The view is
// invalidated when the module grows its memory.
func (i *Instance) MemoryView(index uint32) (wasmit.MemoryView, bool) {
	if index != 0 || i.mem == nil {
		return nil, false
	}
	data, ok := i.mem.Read(0, i.mem.Size())
	if !ok {
		return nil, false
	}
	return memory.NewView(data), true
}

func (i *Instance) ResolveRecord(id uint64) (*itypes.RecordType, error) {
	if i.records == nil {
		return nil, errors.RecordNotFound(errors.PhaseRuntime, id)
	}
	return i.records.ResolveRecord(id)
}

// Close releases the module and its runtime.
func (i *Instance) Close(ctx context.Context) error {
	if i.runtime == nil {
		return nil
	}
	err := i.runtime.Close(ctx)
	i.runtime = nil
	i.module = nil
	i.mem = nil
	i.funcs = nil
	return err
}

var _ wasmit.Instance = (*Instance)(nil)
