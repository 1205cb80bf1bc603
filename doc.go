// Package lazyload implements code-split lazy loading of UI units whose
// code is fetched on demand and gated by a render phase.
//
// A lazy unit is the result of a dynamic import. It is fetched at most once
// per successful resolution, may be preloaded before it is allowed to
// activate, and renders either its content, server output persisted in the
// page, or the nearest fallback. At build time a manifest records which
// output files realize each lazy import so servers can emit preload hints.
//
// # Architecture Overview
//
//	lazyload/            Package documentation
//	├── deferred/        Single-fire deferred value: Preload, Start, Future
//	├── phase/           Ordered render phases and threshold subscribers
//	├── graph/           Compilation graph snapshot and lazy import registry
//	├── manifest/        Asset manifest: builder, encoding, boot install
//	├── lazy/            Hosting layer: declarations, sessions, Suspense
//	├── wasmunit/        WebAssembly units compiled with wazero
//	├── errors/          Structured error types for debugging
//	└── cmd/lazyctl/     Manifest build, inspect and render CLI
//
// # Quick Start
//
// Build the manifest once per compilation:
//
//	c, _ := graph.LoadFile("dist/graph.json")
//	reg, _ := graph.LoadRegistry("dist/imports.yaml")
//	_ = manifest.WriteFile("dist/lazy-manifest.json", manifest.Build(c, reg))
//
// Boot the runtime and declare units:
//
//	m, _ := manifest.LoadFile("dist/lazy-manifest.json")
//	_ = lazy.Init(lazy.Config{Manifest: m, Mode: lazy.ModeHydrate})
//
//	Settings := lazy.AfterPaint(importSettings, lazy.WithModuleID("./src/Settings.js"))
//
// Render on the server:
//
//	s := lazy.NewServerSession()
//	html, err := s.Render(&lazy.Suspense{Fallback: lazy.Text("<i>…</i>"), Children: []lazy.Node{Settings}})
//	hints := s.AssetHints()
//
// And on the client, over the persisted page:
//
//	c := lazy.NewClientSession(page)
//	html, err = c.Render(root) // reproduces the server output
//	c.Advance()                // after paint: Settings activates
//
// # Phases
//
// Immediate < AfterPaint < OnInteraction. A session's phase only moves
// forward; server sessions stay at Immediate for the whole pass. A unit
// subscribed at a phase starts exactly once, synchronously inside the
// Advance that crosses it.
//
// # Error Handling
//
// Errors are *errors.Error values carrying a Phase and a Kind, usable with
// the standard errors.Is and errors.As:
//
//	if errors.Is(err, lazyerrors.ErrFetchFailure) {
//	    // retry with Session.Retry
//	}
package lazyload
