package lazy

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/lazyload/deferred"
	"github.com/wippyai/lazyload/errors"
	"github.com/wippyai/lazyload/manifest"
	"github.com/wippyai/lazyload/phase"
)

// Node is an element of a render tree: a *Suspense, a *Component or a
// Renderer. Nil nodes render nothing.
type Node any

// Suspense is a boundary that renders Fallback while any direct lazy child
// is waiting for its content.
type Suspense struct {
	Fallback Renderer
	Children []Node
}

// SessionOption configures a session.
type SessionOption func(*Session)

// WithMode overrides the boot mode for a client session.
func WithMode(m Mode) SessionOption {
	return func(s *Session) {
		s.mode = m
	}
}

// WithManifest overrides the installed manifest.
func WithManifest(m *manifest.Manifest) SessionOption {
	return func(s *Session) {
		s.manifest = m
	}
}

// WithContext bounds server-side waits for unit content.
func WithContext(ctx context.Context) SessionOption {
	return func(s *Session) {
		s.ctx = ctx
	}
}

type unitState struct {
	started     *deferred.Future
	unsubscribe func()
	mu          sync.Mutex
}

func (u *unitState) future() *deferred.Future {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.started
}

func (u *unitState) failure() error {
	f := u.future()
	if f == nil || !f.Ready() {
		return nil
	}
	_, err := f.Result()
	return err
}

// Session is one render pass (server) or one page lifetime (client). Each
// session owns its scheduler; sessions must not be shared across requests.
type Session struct {
	ctx       context.Context
	log       *zap.Logger
	manifest  *manifest.Manifest
	scheduler *phase.Scheduler
	persisted map[string]fragment
	units     map[*Component]*unitState
	seenIDs   map[string]struct{}
	id        string
	seen      []string
	frames    int
	mu        sync.Mutex
	mode      Mode
	server    bool
	closed    bool
}

// NewServerSession creates a server pass. Its phase is pinned at Immediate.
func NewServerSession(opts ...SessionOption) *Session {
	return newSession(true, "", opts)
}

// NewClientSession creates a client session over the markup the server
// persisted into the page (empty when there is none).
func NewClientSession(persisted string, opts ...SessionOption) *Session {
	return newSession(false, persisted, opts)
}

func newSession(server bool, persisted string, opts []SessionOption) *Session {
	cfg := defaults()
	s := &Session{
		ctx:      context.Background(),
		manifest: cfg.Manifest,
		mode:     cfg.Mode,
		server:   server,
		units:    make(map[*Component]*unitState),
		seenIDs:  make(map[string]struct{}),
		id:       uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if server {
		s.scheduler = phase.NewPinned()
	} else {
		s.scheduler = phase.New()
		s.persisted = extractFragments(persisted)
	}
	s.log = Logger().With(
		zap.String("session", s.id),
		zap.Bool("server", server),
		zap.Stringer("mode", s.mode),
	)
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Mode returns the session's mode.
func (s *Session) Mode() Mode { return s.mode }

// Server reports whether this is a server pass.
func (s *Session) Server() bool { return s.server }

// Phase returns the current render phase.
func (s *Session) Phase() phase.Phase { return s.scheduler.Current() }

// Advance moves the session to its next phase, starting every unit whose
// trigger is crossed before returning. No-op on server sessions.
func (s *Session) Advance() phase.Phase { return s.scheduler.Advance() }

// AdvanceTo advances to target; moving backwards is rejected.
func (s *Session) AdvanceTo(target phase.Phase) error { return s.scheduler.AdvanceTo(target) }

// Render renders one frame of the tree rooted at root. On a hydrating
// client the first frame reproduces the server decision for every
// Immediate unit, even when its module already resolved.
func (s *Session) Render(root *Suspense) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", errors.InvalidInput(errors.PhaseRender, "session closed")
	}
	initial := !s.server && s.mode == ModeHydrate && s.frames == 0
	s.frames++
	s.mu.Unlock()

	if root == nil {
		return "", nil
	}
	return s.renderBoundary(root, initial)
}

func (s *Session) renderBoundary(b *Suspense, initial bool) (string, error) {
	var out strings.Builder
	suspended := false

	// Every child is visited even after one suspends so that all lazy
	// declarations in the boundary are preloaded in the same frame.
	for i, child := range b.Children {
		switch n := child.(type) {
		case nil:
		case *Suspense:
			markup, err := s.renderBoundary(n, initial)
			if err != nil {
				return "", err
			}
			out.WriteString(markup)
		case *Component:
			markup, wait, err := s.renderComponent(n, initial)
			if err != nil {
				return "", err
			}
			if wait {
				suspended = true
				continue
			}
			out.WriteString(markup)
		case Renderer:
			out.WriteString(n.Render())
		default:
			return "", errors.New(errors.PhaseRender, errors.KindUnsupported).
				Path("children", fmt.Sprint(i)).
				Detail("unsupported node type %T", child).
				Build()
		}
	}

	if suspended {
		if b.Fallback == nil {
			return "", nil
		}
		return b.Fallback.Render(), nil
	}
	return out.String(), nil
}

// renderComponent returns the unit's markup, or wait=true when the
// enclosing boundary must show its fallback.
func (s *Session) renderComponent(c *Component, initial bool) (markup string, wait bool, err error) {
	if s.server {
		return s.renderServer(c)
	}

	st := s.track(c)
	if err := st.failure(); err != nil {
		return "", false, err
	}

	active := s.scheduler.Current() >= c.trigger
	reproduce := initial && c.trigger == phase.Immediate
	if active && !reproduce {
		if mod, ok := c.loader.Result(); ok {
			content, err := renderModule(c.id, mod)
			return content, false, err
		}
	}
	return s.placeholder(c)
}

func (s *Session) renderServer(c *Component) (string, bool, error) {
	s.noteSeen(c.id)
	if !c.ssr {
		return "", true, nil
	}
	mod, err := c.serverModule(s.ctx)
	if err != nil {
		return "", false, err
	}
	content, err := renderModule(c.id, mod)
	if err != nil {
		return "", false, err
	}
	return wrapContent(c.id, content), false, nil
}

// placeholder keeps persisted server content on screen while the unit is
// inactive or loading, and falls back otherwise.
func (s *Session) placeholder(c *Component) (string, bool, error) {
	if c.ssr {
		if frag, ok := s.persisted[c.id]; ok {
			if s.mode == ModeHydrate {
				return frag.outer, false, nil
			}
			return frag.inner, false, nil
		}
	}
	return "", true, nil
}

// track registers c with the session on first encounter: the fetch is
// preloaded right away and activation is gated on the unit's trigger.
func (s *Session) track(c *Component) *unitState {
	s.mu.Lock()
	st, ok := s.units[c]
	if ok {
		s.mu.Unlock()
		return st
	}
	st = &unitState{}
	s.units[c] = st
	s.seen, s.seenIDs = appendSeen(s.seen, s.seenIDs, c.id)
	s.mu.Unlock()

	c.loader.Preload()
	unsubscribe := s.scheduler.Subscribe(c.trigger, func(p phase.Phase) {
		s.activate(c, st, p)
	})
	st.mu.Lock()
	st.unsubscribe = unsubscribe
	st.mu.Unlock()
	return st
}

func (s *Session) activate(c *Component, st *unitState, p phase.Phase) {
	f := c.loader.Start()
	st.mu.Lock()
	st.started = f
	st.mu.Unlock()
	s.log.Debug("unit activated",
		zap.String("unit", c.id),
		zap.Stringer("phase", p),
		zap.Stringer("status", c.loader.Status()),
	)
}

// Retry starts a failed unit again. It returns nil when the unit has not
// been activated in this session.
func (s *Session) Retry(c *Component) *deferred.Future {
	s.mu.Lock()
	st, ok := s.units[c]
	s.mu.Unlock()
	if !ok || st.future() == nil {
		return nil
	}
	if st.failure() == nil {
		return st.future()
	}
	f := c.loader.Start()
	st.mu.Lock()
	st.started = f
	st.mu.Unlock()
	s.log.Debug("unit retried", zap.String("unit", c.id))
	return f
}

// Settled waits until every unit activated in this session finished
// loading. It returns the first fetch failure, or ctx's error.
func (s *Session) Settled(ctx context.Context) error {
	s.mu.Lock()
	states := make([]*unitState, 0, len(s.units))
	for _, st := range s.units {
		states = append(states, st)
	}
	s.mu.Unlock()

	var first error
	for _, st := range states {
		f := st.future()
		if f == nil {
			continue
		}
		if _, err := f.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func (s *Session) noteSeen(id string) {
	s.mu.Lock()
	s.seen, s.seenIDs = appendSeen(s.seen, s.seenIDs, id)
	s.mu.Unlock()
}

func appendSeen(seen []string, ids map[string]struct{}, id string) ([]string, map[string]struct{}) {
	if _, ok := ids[id]; ok {
		return seen, ids
	}
	ids[id] = struct{}{}
	return append(seen, id), ids
}

// AssetHints returns preload links for the manifest files of every unit
// encountered so far, in encounter order and without duplicates.
func (s *Session) AssetHints() []string {
	s.mu.Lock()
	ids := append([]string(nil), s.seen...)
	s.mu.Unlock()

	var hints []string
	urls := make(map[string]struct{})
	for _, id := range ids {
		for _, u := range s.manifest.AssetURLs(id) {
			if _, dup := urls[u]; dup {
				continue
			}
			urls[u] = struct{}{}
			hints = append(hints, fmt.Sprintf(`<link rel="preload" href="%s" as="%s">`, html.EscapeString(u), preloadAs(u)))
		}
	}
	return hints
}

func preloadAs(url string) string {
	if strings.HasSuffix(url, ".css") {
		return "style"
	}
	return "script"
}

// Close drops every pending phase subscription of the session.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	states := make([]*unitState, 0, len(s.units))
	for _, st := range s.units {
		states = append(states, st)
	}
	s.mu.Unlock()

	for _, st := range states {
		st.mu.Lock()
		unsubscribe := st.unsubscribe
		st.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
	}
	s.log.Debug("session closed")
}
