package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmit "github.com/wippyai/wasm-interface-types"
	"github.com/wippyai/wasm-interface-types/errors"
	"github.com/wippyai/wasm-interface-types/itypes"
)

// coreType returns the core value type that carries t across the WASM boundary.
func coreType(t itypes.IType) (api.ValueType, bool) {
	switch t.Kind {
	case itypes.KindBoolean, itypes.KindS8, itypes.KindS16, itypes.KindS32,
		itypes.KindU8, itypes.KindU16, itypes.KindU32, itypes.KindI32:
		return api.ValueTypeI32, true
	case itypes.KindS64, itypes.KindU64, itypes.KindI64:
		return api.ValueTypeI64, true
	case itypes.KindF32:
		return api.ValueTypeF32, true
	case itypes.KindF64:
		return api.ValueTypeF64, true
	}
	return 0, false
}

func fromCoreType(vt api.ValueType) (itypes.IType, bool) {
	switch vt {
	case api.ValueTypeI32:
		return itypes.TypeI32, true
	case api.ValueTypeI64:
		return itypes.TypeI64, true
	case api.ValueTypeF32:
		return itypes.TypeF32, true
	case api.ValueTypeF64:
		return itypes.TypeF64, true
	}
	return itypes.IType{}, false
}

func encodeValue(v itypes.IValue) uint64 {
	switch v.Kind() {
	case itypes.KindF32:
		return api.EncodeF32(v.AsF32())
	case itypes.KindF64:
		return api.EncodeF64(v.AsF64())
	case itypes.KindS8, itypes.KindS16, itypes.KindS32, itypes.KindI32:
		return api.EncodeI32(int32(v.Bits()))
	case itypes.KindBoolean, itypes.KindU8, itypes.KindU16, itypes.KindU32:
		return api.EncodeU32(uint32(v.Bits()))
	}
	return v.Bits()
}

func decodeValue(raw uint64, t itypes.IType) itypes.IValue {
	switch t.Kind {
	case itypes.KindBoolean:
		return itypes.Bool(uint32(raw) != 0)
	case itypes.KindS8:
		return itypes.S8(int8(api.DecodeI32(raw)))
	case itypes.KindS16:
		return itypes.S16(int16(api.DecodeI32(raw)))
	case itypes.KindS32:
		return itypes.S32(api.DecodeI32(raw))
	case itypes.KindU8:
		return itypes.U8(uint8(raw))
	case itypes.KindU16:
		return itypes.U16(uint16(raw))
	case itypes.KindU32:
		return itypes.U32(api.DecodeU32(raw))
	case itypes.KindS64:
		return itypes.S64(int64(raw))
	case itypes.KindU64:
		return itypes.U64(raw)
	case itypes.KindI64:
		return itypes.I64(int64(raw))
	case itypes.KindF32:
		return itypes.F32(api.DecodeF32(raw))
	case itypes.KindF64:
		return itypes.F64(api.DecodeF64(raw))
	}
	return itypes.I32(api.DecodeI32(raw))
}

// exportFunction adapts a module export to wasmit.Function.
type exportFunction struct {
	fn   api.Function
	name string
	args []itypes.FunctionArg
	outs []itypes.IType
}

func newExportFunction(name string, fn api.Function) (*exportFunction, error) {
	def := fn.Definition()
	paramNames := def.ParamNames()

	args := make([]itypes.FunctionArg, len(def.ParamTypes()))
	for i, vt := range def.ParamTypes() {
		t, ok := fromCoreType(vt)
		if !ok {
			return nil, errors.Unsupported(errors.PhaseLoad,
				fmt.Sprintf("export %q parameter %d of type %s", name, i, api.ValueTypeName(vt)))
		}
		argName := fmt.Sprintf("arg%d", i)
		if i < len(paramNames) && paramNames[i] != "" {
			argName = paramNames[i]
		}
		args[i] = itypes.FunctionArg{Name: argName, Type: t}
	}

	outs := make([]itypes.IType, len(def.ResultTypes()))
	for i, vt := range def.ResultTypes() {
		t, ok := fromCoreType(vt)
		if !ok {
			return nil, errors.Unsupported(errors.PhaseLoad,
				fmt.Sprintf("export %q result %d of type %s", name, i, api.ValueTypeName(vt)))
		}
		outs[i] = t
	}

	return &exportFunction{fn: fn, name: name, args: args, outs: outs}, nil
}

func (f *exportFunction) Name() string                    { return f.name }
func (f *exportFunction) InputsCardinality() int          { return len(f.args) }
func (f *exportFunction) OutputsCardinality() int         { return len(f.outs) }
func (f *exportFunction) Arguments() []itypes.FunctionArg { return f.args }
func (f *exportFunction) Outputs() []itypes.IType         { return f.outs }

func (f *exportFunction) Call(ctx context.Context, args []itypes.IValue) ([]itypes.IValue, error) {
	params := make([]uint64, len(args))
	for i, a := range args {
		params[i] = encodeValue(a)
	}
	raw, err := f.fn.Call(ctx, params...)
	if err != nil {
		return nil, err
	}
	out := make([]itypes.IValue, len(f.outs))
	for i, t := range f.outs {
		out[i] = decodeValue(raw[i], t)
	}
	return out, nil
}

// HostFn is the Go implementation behind a HostFunc.
type HostFn func(ctx context.Context, args []itypes.IValue) ([]itypes.IValue, error)

// HostFunc is a Go function callable from adapters through call-core and
// imported by the module under Config.HostModule.
type HostFunc struct {
	fn      HostFn
	name    string
	params  []itypes.FunctionArg
	results []itypes.IType
}

// NewHostFunc declares a host function. Params and results must be scalar
// types when the module imports it.
func NewHostFunc(name string, params []itypes.FunctionArg, results []itypes.IType, fn HostFn) *HostFunc {
	return &HostFunc{name: name, params: params, results: results, fn: fn}
}

func (h *HostFunc) Name() string                    { return h.name }
func (h *HostFunc) InputsCardinality() int          { return len(h.params) }
func (h *HostFunc) OutputsCardinality() int         { return len(h.results) }
func (h *HostFunc) Arguments() []itypes.FunctionArg { return h.params }
func (h *HostFunc) Outputs() []itypes.IType         { return h.results }

func (h *HostFunc) Call(ctx context.Context, args []itypes.IValue) ([]itypes.IValue, error) {
	out, err := h.fn(ctx, args)
	if err != nil {
		return nil, err
	}
	if len(out) != len(h.results) {
		return nil, errors.New(errors.PhaseRuntime, errors.KindInvalidData).
			Detail("host function %q returned %d values, declared %d", h.name, len(out), len(h.results)).
			Build()
	}
	return out, nil
}

// coreSignature maps the declared types to core value types. Only scalar
// types can cross the import boundary.
func (h *HostFunc) coreSignature() (params, results []api.ValueType, err error) {
	params = make([]api.ValueType, len(h.params))
	for i, p := range h.params {
		vt, ok := coreType(p.Type)
		if !ok {
			return nil, nil, errors.Unsupported(errors.PhaseLoad,
				fmt.Sprintf("host function %q parameter %q of type %s", h.name, p.Name, p.Type))
		}
		params[i] = vt
	}
	results = make([]api.ValueType, len(h.results))
	for i, t := range h.results {
		vt, ok := coreType(t)
		if !ok {
			return nil, nil, errors.Unsupported(errors.PhaseLoad,
				fmt.Sprintf("host function %q result %d of type %s", h.name, i, t))
		}
		results[i] = vt
	}
	return params, results, nil
}

// goModuleFunc adapts h to a wazero host function. Errors surface to the
// guest's caller as a trap.
func (h *HostFunc) goModuleFunc() api.GoModuleFunc {
	return func(ctx context.Context, _ api.Module, stack []uint64) {
		args := make([]itypes.IValue, len(h.params))
		for i, p := range h.params {
			args[i] = decodeValue(stack[i], p.Type)
		}
		out, err := h.Call(ctx, args)
		if err != nil {
			Logger().Error("host function failed", zap.String("function", h.name), zap.Error(err))
			panic(err)
		}
		for i, v := range out {
			stack[i] = encodeValue(v)
		}
	}
}

var (
	_ wasmit.Function = (*exportFunction)(nil)
	_ wasmit.Function = (*HostFunc)(nil)
)
