// Package wasmunit loads lazy units compiled to WebAssembly.
//
// An Importer owns one wazero runtime. Import and ImportRendered turn a
// Source into a deferred.ImportFunc, so a .wasm chunk listed in the asset
// manifest can back a lazy declaration directly:
//
//	imp, _ := wasmunit.NewImporter(ctx)
//	src, _ := wasmunit.FromManifest(m, "./widgets/chart", os.DirFS("dist"))
//	chart := lazy.AfterPaint(imp.ImportRendered(src), lazy.WithModuleID("./widgets/chart"))
//
// A renderable unit exports its memory and a render function of type
// () -> (i32, i32) returning the location of its markup.
package wasmunit
