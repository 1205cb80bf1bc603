// Package manifest builds and serves the asset manifest: a build-time lookup
// from lazy import identifier to the output files needed to realize it.
//
// # Building
//
// Build runs once per finished compilation:
//
//	c, _ := graph.LoadFile("dist/graph.json")
//	reg, _ := graph.LoadRegistry("dist/imports.yaml")
//	m := manifest.Build(c, reg, manifest.WithPublicPath("/static/"))
//	_ = manifest.WriteFile("dist/lazy-manifest.json", m)
//
// For each chunk group origin the builder requires the origin module, the
// module's async dependency block and the dependency edge to agree on the
// same request string, and the request to be registered as a lazy import of
// that module. Initial chunks and source maps are never listed. Skips are
// logged at debug level and never fail the build.
//
// # Runtime
//
// The encoded form is deterministic. At boot the runtime loads it once and
// installs it with Install; Reset tears it down again (tests, per-process
// reconfiguration). The installed manifest is never mutated.
package manifest
