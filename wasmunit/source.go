package wasmunit

import (
	"io/fs"
	"path"
	"strings"

	"github.com/wippyai/lazyload/errors"
	"github.com/wippyai/lazyload/manifest"
)

// Source supplies the bytes of one WebAssembly unit.
type Source struct {
	Read func() ([]byte, error)
	Name string
}

// FromBytes serves an in-memory binary.
func FromBytes(name string, wasm []byte) Source {
	return Source{
		Name: name,
		Read: func() ([]byte, error) { return wasm, nil },
	}
}

// FromFS reads file from fsys each time the unit is fetched.
func FromFS(fsys fs.FS, file string) Source {
	return Source{
		Name: file,
		Read: func() ([]byte, error) { return fs.ReadFile(fsys, file) },
	}
}

// FromManifest resolves the first .wasm file the manifest lists for id.
// fsys must be rooted at the build output directory.
func FromManifest(m *manifest.Manifest, id string, fsys fs.FS) (Source, error) {
	files := m.Files(id)
	if len(files) == 0 {
		return Source{}, errors.NotFound(errors.PhaseLoad, "manifest entry", id)
	}
	for _, f := range files {
		if path.Ext(f) == ".wasm" {
			return FromFS(fsys, strings.TrimPrefix(f, "/")), nil
		}
	}
	return Source{}, errors.New(errors.PhaseLoad, errors.KindNotFound).
		Unit(id).
		Detail("no .wasm file among %d assets", len(files)).
		Build()
}
