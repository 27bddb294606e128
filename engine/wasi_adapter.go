package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

const wasiModule = "wasi_snapshot_preview1"

// instantiateWASI registers WASI preview1 in r unless a previous
// instantiation already did.
func instantiateWASI(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	if m := r.Module(wasiModule); m != nil {
		return m, nil
	}
	builder := r.NewHostModuleBuilder(wasiModule)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
	return builder.Instantiate(ctx)
}
