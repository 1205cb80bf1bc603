// Package lazy is the hosting layer for lazy units: it decides, per render
// frame, whether a unit shows its content, a persisted placeholder or the
// nearest Suspense fallback.
//
// # Declarations
//
// A unit is declared once per process with ForPaint, AfterPaint or
// OnInteraction, which fixes the render phase at which it may activate.
// Declarations are shared by every session that renders them; each owns a
// single deferred.Deferred, so a module is fetched at most once per
// successful resolution.
//
// # Sessions
//
// A server session renders SSR units synchronously and wraps their output in
// a pair of hidden marker elements keyed by the unit's module id:
//
//	<input type="hidden" data-lazy-begin="./mock"><p>Content</p><input type="hidden" data-lazy-end="./mock">
//
// Units declared WithSSR(false) make their boundary render its fallback.
//
// A client session is created over the persisted page. Every unit it
// encounters is preloaded immediately and started once the session's phase
// reaches the unit's trigger. Until the unit is active and resolved the
// session keeps the server output on screen: the whole marked fragment in
// hydrate mode, so the first frame matches the server byte for byte, and
// just its inner content in render mode.
//
//	s := lazy.NewClientSession(page, lazy.WithMode(lazy.ModeHydrate))
//	html, err := s.Render(root) // initial frame
//	s.Advance()                 // after paint
//	html, err = s.Render(root)
//
// Fetch failures surface from Render once the activated attempt fails; Retry
// starts a new attempt.
package lazy
