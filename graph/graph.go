package graph

import "strings"

// IdentFunc computes a module's build-stable identifier relative to the
// build context directory.
type IdentFunc func(context string) string

// Module is a source module of the compilation.
type Module struct {
	Ident    IdentFunc
	ID       string
	Resource string
	Blocks   []*Block
}

// Block groups the dependencies created by one async import call site.
type Block struct {
	Module       *Module
	Request      string
	Dependencies []*Dependency
}

// Dependency is one import edge: the raw request string written in the
// originating module and the module it resolved to.
type Dependency struct {
	Module       *Module
	OriginModule *Module
	Request      string
}

// Chunk is one emitted output unit.
type Chunk struct {
	ID      string
	Files   []string
	Initial bool
}

// OnlyInitial reports whether the chunk is only ever part of the initial
// page load.
func (c *Chunk) OnlyInitial() bool {
	return c.Initial
}

// Origin records which module and request caused a chunk group.
type Origin struct {
	Module  *Module
	Request string
}

// ChunkGroup is a set of chunks loaded together, with the origin records
// of the imports that triggered it.
type ChunkGroup struct {
	Name    string
	Chunks  []*Chunk
	Origins []Origin
}

// Compilation is a read-only snapshot of one finished build.
type Compilation struct {
	Context     string
	PublicPath  string
	Modules     []*Module
	ChunkGroups []*ChunkGroup
}

// Contextify returns a webpack-style library identifier: resource made
// relative to context, with forward slashes and a "./" prefix. Resources
// outside context are returned unchanged.
func Contextify(context, resource string) string {
	if resource == "" {
		return ""
	}
	res := strings.ReplaceAll(resource, "\\", "/")
	ctx := strings.TrimSuffix(strings.ReplaceAll(context, "\\", "/"), "/")
	if ctx == "" {
		return res
	}
	if res == ctx {
		return "."
	}
	if rel, ok := strings.CutPrefix(res, ctx+"/"); ok {
		return "./" + rel
	}
	return res
}

// ResourceIdent identifies a module by its contextified resource path.
func ResourceIdent(resource string) IdentFunc {
	return func(context string) string {
		return Contextify(context, resource)
	}
}

// NamedIdent identifies a module by a fixed name.
func NamedIdent(name string) IdentFunc {
	return func(string) string {
		return name
	}
}
