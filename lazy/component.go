package lazy

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/wippyai/lazyload/deferred"
	"github.com/wippyai/lazyload/errors"
	"github.com/wippyai/lazyload/phase"
)

// Renderer produces markup.
type Renderer interface {
	Render() string
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func() string

func (f RenderFunc) Render() string { return f() }

// Text is static markup.
type Text string

func (t Text) Render() string { return string(t) }

// Option configures a lazy declaration.
type Option func(*Component)

// WithModuleID sets the identifier shared with the manifest and used to
// pair server markers with client placeholders.
func WithModuleID(id string) Option {
	return func(c *Component) {
		c.id = id
	}
}

// WithSSR controls whether the server renders the unit's content. When
// false the server emits the boundary fallback.
func WithSSR(ssr bool) Option {
	return func(c *Component) {
		c.ssr = ssr
	}
}

// WithServerImport sets a synchronous import used by server passes instead
// of the declared asynchronous one.
func WithServerImport(load deferred.ImportFunc) Option {
	return func(c *Component) {
		c.server = load
	}
}

var autoID atomic.Uint64

// Component is one lazy unit declaration. It owns exactly one Deferred for
// the lifetime of the process and may be rendered by many sessions.
type Component struct {
	loader  *deferred.Deferred
	server  deferred.ImportFunc
	id      string
	trigger phase.Phase
	ssr     bool
}

// ForPaint declares a unit that activates in the first frame.
func ForPaint(load deferred.ImportFunc, opts ...Option) *Component {
	return declare(phase.Immediate, load, opts)
}

// AfterPaint declares a unit that activates once the host signals paint.
func AfterPaint(load deferred.ImportFunc, opts ...Option) *Component {
	return declare(phase.AfterPaint, load, opts)
}

// OnInteraction declares a unit that activates on user interaction.
func OnInteraction(load deferred.ImportFunc, opts ...Option) *Component {
	return declare(phase.OnInteraction, load, opts)
}

func declare(trigger phase.Phase, load deferred.ImportFunc, opts []Option) *Component {
	c := &Component{trigger: trigger, ssr: true}
	for _, opt := range opts {
		opt(c)
	}
	if c.id == "" {
		c.id = "lazy-" + strconv.FormatUint(autoID.Add(1), 10)
	}
	c.loader = deferred.New(load, deferred.WithName(c.id))
	return c
}

// ID returns the unit's module identifier.
func (c *Component) ID() string { return c.id }

// Trigger returns the phase at which the unit may activate.
func (c *Component) Trigger() phase.Phase { return c.trigger }

// SSR reports whether the server renders the unit's content.
func (c *Component) SSR() bool { return c.ssr }

// Deferred exposes the unit's deferred value for readiness checks.
func (c *Component) Deferred() *deferred.Deferred { return c.loader }

// serverModule resolves the unit for a server pass, blocking until the
// import completes or ctx ends.
func (c *Component) serverModule(ctx context.Context) (deferred.Module, error) {
	if c.server == nil {
		return c.loader.Start().Wait(ctx)
	}
	v, err := c.server(ctx)
	if err != nil {
		return deferred.Module{}, errors.FetchFailure(c.id, err)
	}
	return deferred.Normalize(v), nil
}

// renderModule turns a resolved module's default export into markup.
func renderModule(id string, mod deferred.Module) (string, error) {
	switch v := mod.Default.(type) {
	case Renderer:
		return v.Render(), nil
	case func() string:
		return v(), nil
	case string:
		return v, nil
	default:
		return "", errors.New(errors.PhaseRender, errors.KindUnsupported).
			Unit(id).
			Detail("default export of type %s is not renderable", fmt.Sprintf("%T", mod.Default)).
			Build()
	}
}
