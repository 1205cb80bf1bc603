package wasmunit

import (
	"context"
	"fmt"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/lazyload/deferred"
	"github.com/wippyai/lazyload/errors"
)

// RenderExport is the function a renderable unit exports. It takes no
// arguments and returns the (pointer, length) of UTF-8 markup in the
// unit's exported memory.
const RenderExport = "render"

// Config holds configuration for importer creation
type Config struct {
	// MemoryLimitPages caps each instance's memory in 64KB pages. 0 keeps
	// the wazero default.
	MemoryLimitPages uint32

	// WASI instantiates wasi_snapshot_preview1 so units may import it.
	WASI bool
}

// Option configures an Importer.
type Option func(*Config)

// WithMemoryLimitPages caps instance memory.
func WithMemoryLimitPages(pages uint32) Option {
	return func(c *Config) {
		c.MemoryLimitPages = pages
	}
}

// WithWASI enables WASI preview1 imports.
func WithWASI() Option {
	return func(c *Config) {
		c.WASI = true
	}
}

// Importer turns WebAssembly binaries into deferred import functions. One
// wazero runtime backs every unit it compiles.
type Importer struct {
	runtime wazero.Runtime
}

// NewImporter creates an importer with its own wazero runtime.
func NewImporter(ctx context.Context, opts ...Option) (*Importer, error) {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	if cfg.WASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
			_ = r.Close(ctx)
			return nil, errors.Load("instantiate WASI", err)
		}
	}
	return &Importer{runtime: r}, nil
}

// Close releases the runtime and every unit compiled by it.
func (i *Importer) Close(ctx context.Context) error {
	return i.runtime.Close(ctx)
}

// Unit is a compiled WebAssembly module.
type Unit struct {
	compiled wazero.CompiledModule
	runtime  wazero.Runtime
	Name     string
	Exports  []string // exported function names, sorted
	Imports  []string // "module.name" of imported functions
}

// Compiled returns the underlying wazero module.
func (u *Unit) Compiled() wazero.CompiledModule { return u.compiled }

// Compile reads and compiles src.
func (i *Importer) Compile(ctx context.Context, src Source) (*Unit, error) {
	if src.Read == nil {
		return nil, errors.InvalidInput(errors.PhaseLoad, "source has no reader")
	}
	wasm, err := src.Read()
	if err != nil {
		return nil, errors.Load("read "+src.Name, err)
	}
	compiled, err := i.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile "+src.Name, err)
	}

	u := &Unit{compiled: compiled, runtime: i.runtime, Name: src.Name}
	for name := range compiled.ExportedFunctions() {
		u.Exports = append(u.Exports, name)
	}
	sort.Strings(u.Exports)
	for _, def := range compiled.ImportedFunctions() {
		mod, name, _ := def.Import()
		u.Imports = append(u.Imports, mod+"."+name)
	}

	Logger().Debug("unit compiled",
		zap.String("unit", src.Name),
		zap.Int("exports", len(u.Exports)),
		zap.Int("imports", len(u.Imports)),
	)
	return u, nil
}

// Import returns an import function resolving to the compiled *Unit.
func (i *Importer) Import(src Source) deferred.ImportFunc {
	return func(ctx context.Context) (any, error) {
		return i.Compile(ctx, src)
	}
}

// ImportRendered returns an import function that compiles src and calls
// its render export once. The module's default export is the markup; the
// compiled unit is exported as "unit".
func (i *Importer) ImportRendered(src Source) deferred.ImportFunc {
	return func(ctx context.Context) (any, error) {
		u, err := i.Compile(ctx, src)
		if err != nil {
			return nil, err
		}
		markup, err := u.Render(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"default": markup, "unit": u}, nil
	}
}

// Render instantiates the unit anonymously, calls its render export and
// copies the returned markup out of guest memory.
func (u *Unit) Render(ctx context.Context) (string, error) {
	if _, ok := u.compiled.ExportedFunctions()[RenderExport]; !ok {
		return "", errors.NotFound(errors.PhaseRender, "export", RenderExport)
	}

	mod, err := u.runtime.InstantiateModule(ctx, u.compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return "", errors.Load("instantiate "+u.Name, err)
	}
	defer mod.Close(ctx)

	results, err := mod.ExportedFunction(RenderExport).Call(ctx)
	if err != nil {
		return "", errors.Wrap(errors.PhaseRender, errors.KindInvalidData, err, "call "+RenderExport)
	}
	if len(results) != 2 {
		return "", errors.InvalidData(errors.PhaseRender, []string{u.Name, RenderExport},
			fmt.Sprintf("expected (ptr, len) results, got %d values", len(results)))
	}

	mem := mod.Memory()
	if mem == nil {
		return "", errors.InvalidData(errors.PhaseRender, []string{u.Name}, "unit exports no memory")
	}
	ptr, length := uint32(results[0]), uint32(results[1])
	data, ok := mem.Read(ptr, length)
	if !ok {
		return "", errors.InvalidData(errors.PhaseRender, []string{u.Name, RenderExport},
			fmt.Sprintf("markup [%d, %d) out of memory bounds", ptr, ptr+length))
	}
	return string(data), nil
}
