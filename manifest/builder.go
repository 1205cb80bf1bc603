package manifest

import (
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/lazyload/graph"
)

// Option configures Build.
type Option func(*buildConfig)

type buildConfig struct {
	publicPath *string
}

// WithPublicPath overrides the compilation's output public path.
func WithPublicPath(p string) Option {
	return func(c *buildConfig) {
		c.publicPath = &p
	}
}

// Skip reasons reported at debug level.
const (
	skipNoOriginModule = "origin without module"
	skipNotLazy        = "request not registered as lazy import"
	skipNoBlock        = "no matching dependency block"
	skipNoDependency   = "no matching dependency"
	skipNoIdent        = "target module has no stable identifier"
	skipEmptyIdent     = "empty identifier"
	skipDuplicate      = "identifier already recorded"
	skipNoFiles        = "chunk group has no lazy files"
)

// Build maps every lazy import call site of c to the non-initial output
// files of the chunk group it created.
//
// A chunk group origin is only used when the origin module, its dependency
// block and the dependency edge all agree on the same request; two call sites
// importing the same target therefore never contaminate each other. Any
// broken link is skipped: the affected import loses resource hints but still
// loads through its own fetch path. The first match for an identifier wins.
func Build(c *graph.Compilation, reg *graph.Registry, opts ...Option) *Manifest {
	cfg := buildConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	publicPath := c.PublicPath
	if cfg.publicPath != nil {
		publicPath = *cfg.publicPath
	}

	log := Logger()
	m := New(publicPath)

	for gi, group := range c.ChunkGroups {
		for _, origin := range group.Origins {
			name, reason := matchOrigin(c, reg, origin)
			if reason == "" {
				if _, exists := m.Assets[name]; exists {
					reason = skipDuplicate
				}
			}
			if reason != "" {
				log.Debug("skip chunk group origin",
					zap.Int("group", gi),
					zap.String("request", origin.Request),
					zap.String("reason", reason),
				)
				continue
			}

			files := lazyFiles(group)
			if len(files) == 0 {
				log.Debug("skip chunk group origin",
					zap.Int("group", gi),
					zap.String("id", name),
					zap.String("reason", skipNoFiles),
				)
				continue
			}
			m.Assets[name] = files
		}
	}

	log.Debug("manifest built",
		zap.Int("groups", len(c.ChunkGroups)),
		zap.Int("assets", len(m.Assets)),
	)
	return m
}

// matchOrigin returns the manifest identifier for origin, or the reason it
// does not identify a lazy import call site.
func matchOrigin(c *graph.Compilation, reg *graph.Registry, origin graph.Origin) (string, string) {
	mod := origin.Module
	if mod == nil {
		return "", skipNoOriginModule
	}
	if !reg.Has(mod.Resource, origin.Request) {
		return "", skipNotLazy
	}

	var block *graph.Block
	for _, b := range mod.Blocks {
		if b.Request == origin.Request && b.Module == mod {
			block = b
			break
		}
	}
	if block == nil {
		return "", skipNoBlock
	}

	var dep *graph.Dependency
	for _, d := range block.Dependencies {
		if d.Request == origin.Request && d.OriginModule == mod {
			dep = d
			break
		}
	}
	if dep == nil {
		return "", skipNoDependency
	}
	if dep.Module == nil || dep.Module.Ident == nil {
		return "", skipNoIdent
	}

	name := dep.Module.Ident(c.Context)
	if name == "" {
		return "", skipEmptyIdent
	}
	return name, ""
}

func lazyFiles(group *graph.ChunkGroup) []string {
	var files []string
	for _, ch := range group.Chunks {
		if ch.OnlyInitial() {
			continue
		}
		for _, f := range ch.Files {
			if strings.HasSuffix(f, ".map") {
				continue
			}
			files = append(files, f)
		}
	}
	return files
}
