package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/wippyai/lazyload/errors"
)

// Snapshot is the serialized form of a Compilation, emitted by the bundler
// integration once a build finishes. Modules and chunks are referenced by id.
type Snapshot struct {
	Context     string               `json:"context"`
	PublicPath  string               `json:"publicPath,omitempty"`
	Modules     []SnapshotModule     `json:"modules"`
	Chunks      []SnapshotChunk      `json:"chunks"`
	ChunkGroups []SnapshotChunkGroup `json:"chunkGroups"`
}

// SnapshotModule is one module entry. Name, when set, is used verbatim as
// the identifier; otherwise the identifier derives from Resource. A module
// with neither has no stable identifier.
type SnapshotModule struct {
	ID       string          `json:"id"`
	Resource string          `json:"resource,omitempty"`
	Name     string          `json:"name,omitempty"`
	Blocks   []SnapshotBlock `json:"blocks,omitempty"`
}

// SnapshotBlock is one async dependency block of a module.
type SnapshotBlock struct {
	Request      string               `json:"request"`
	Module       string               `json:"module,omitempty"`
	Dependencies []SnapshotDependency `json:"dependencies"`
}

// SnapshotDependency is one dependency edge inside a block.
type SnapshotDependency struct {
	Request      string `json:"request"`
	Module       string `json:"module,omitempty"`
	OriginModule string `json:"originModule,omitempty"`
}

// SnapshotChunk is one emitted chunk.
type SnapshotChunk struct {
	ID      string   `json:"id"`
	Files   []string `json:"files"`
	Initial bool     `json:"initial,omitempty"`
}

// SnapshotChunkGroup references chunks by id and origins by module id.
type SnapshotChunkGroup struct {
	Name    string           `json:"name,omitempty"`
	Chunks  []string         `json:"chunks"`
	Origins []SnapshotOrigin `json:"origins"`
}

// SnapshotOrigin is one origin record of a chunk group.
type SnapshotOrigin struct {
	Module  string `json:"module,omitempty"`
	Request string `json:"request"`
}

// Decode reads a JSON snapshot and links it into a Compilation.
func Decode(r io.Reader) (*Compilation, error) {
	var snap Snapshot
	dec := json.NewDecoder(r)
	if err := dec.Decode(&snap); err != nil {
		return nil, errors.ParseFailed("compilation snapshot", err)
	}
	return snap.Link()
}

// LoadFile reads and links a snapshot file.
func LoadFile(path string) (*Compilation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindNotFound, err, "open snapshot "+path)
	}
	defer f.Close()
	return Decode(f)
}

// Link resolves id references into a pointer graph. Empty module
// references stay nil (an origin or dependency without a module); unknown
// ids are rejected.
func (s *Snapshot) Link() (*Compilation, error) {
	c := &Compilation{
		Context:    s.Context,
		PublicPath: s.PublicPath,
		Modules:    make([]*Module, 0, len(s.Modules)),
	}

	modules := make(map[string]*Module, len(s.Modules))
	for i, sm := range s.Modules {
		if sm.ID == "" {
			return nil, errors.InvalidData(errors.PhaseDecode, []string{"modules", strconv.Itoa(i), "id"}, "module id is required")
		}
		if _, dup := modules[sm.ID]; dup {
			return nil, errors.InvalidData(errors.PhaseDecode, []string{"modules", strconv.Itoa(i), "id"}, fmt.Sprintf("duplicate module id %q", sm.ID))
		}
		m := &Module{ID: sm.ID, Resource: sm.Resource}
		switch {
		case sm.Name != "":
			m.Ident = NamedIdent(sm.Name)
		case sm.Resource != "":
			m.Ident = ResourceIdent(sm.Resource)
		}
		modules[sm.ID] = m
		c.Modules = append(c.Modules, m)
	}

	lookup := func(id string, path ...string) (*Module, error) {
		if id == "" {
			return nil, nil
		}
		m, ok := modules[id]
		if !ok {
			return nil, errors.InvalidData(errors.PhaseDecode, path, fmt.Sprintf("unknown module %q", id))
		}
		return m, nil
	}

	for i, sm := range s.Modules {
		owner := c.Modules[i]
		for j, sb := range sm.Blocks {
			bpath := []string{"modules", strconv.Itoa(i), "blocks", strconv.Itoa(j)}
			blockModule := owner
			if sb.Module != "" {
				var err error
				if blockModule, err = lookup(sb.Module, append(bpath, "module")...); err != nil {
					return nil, err
				}
			}
			b := &Block{Module: blockModule, Request: sb.Request}
			for k, sd := range sb.Dependencies {
				dpath := append(append([]string{}, bpath...), "dependencies", strconv.Itoa(k))
				target, err := lookup(sd.Module, append(dpath, "module")...)
				if err != nil {
					return nil, err
				}
				origin := owner
				if sd.OriginModule != "" {
					if origin, err = lookup(sd.OriginModule, append(dpath, "originModule")...); err != nil {
						return nil, err
					}
				}
				b.Dependencies = append(b.Dependencies, &Dependency{
					Request:      sd.Request,
					Module:       target,
					OriginModule: origin,
				})
			}
			owner.Blocks = append(owner.Blocks, b)
		}
	}

	chunks := make(map[string]*Chunk, len(s.Chunks))
	for i, sc := range s.Chunks {
		if _, dup := chunks[sc.ID]; dup {
			return nil, errors.InvalidData(errors.PhaseDecode, []string{"chunks", strconv.Itoa(i), "id"}, fmt.Sprintf("duplicate chunk id %q", sc.ID))
		}
		chunks[sc.ID] = &Chunk{
			ID:      sc.ID,
			Files:   append([]string(nil), sc.Files...),
			Initial: sc.Initial,
		}
	}

	for i, sg := range s.ChunkGroups {
		g := &ChunkGroup{Name: sg.Name}
		for j, id := range sg.Chunks {
			ch, ok := chunks[id]
			if !ok {
				return nil, errors.InvalidData(errors.PhaseDecode,
					[]string{"chunkGroups", strconv.Itoa(i), "chunks", strconv.Itoa(j)},
					fmt.Sprintf("unknown chunk %q", id))
			}
			g.Chunks = append(g.Chunks, ch)
		}
		for j, so := range sg.Origins {
			m, err := lookup(so.Module, "chunkGroups", strconv.Itoa(i), "origins", strconv.Itoa(j), "module")
			if err != nil {
				return nil, err
			}
			g.Origins = append(g.Origins, Origin{Module: m, Request: so.Request})
		}
		c.ChunkGroups = append(c.ChunkGroups, g)
	}

	return c, nil
}
