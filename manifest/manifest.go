package manifest

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/wippyai/lazyload/errors"
)

// DefaultFilename is the conventional output name of a built manifest.
const DefaultFilename = "lazy-manifest.json"

// Manifest maps a lazy import identifier to the output files a client
// must fetch to realize it. It is read-only once installed.
type Manifest struct {
	Assets     map[string][]string `json:"assets"`
	PublicPath string              `json:"publicPath,omitempty"`
}

// New returns an empty manifest.
func New(publicPath string) *Manifest {
	return &Manifest{PublicPath: publicPath, Assets: make(map[string][]string)}
}

// IDs returns the identifiers in sorted order.
func (m *Manifest) IDs() []string {
	if m == nil {
		return nil
	}
	ids := make([]string, 0, len(m.Assets))
	for id := range m.Assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Files returns the files recorded for id.
func (m *Manifest) Files(id string) []string {
	if m == nil {
		return nil
	}
	return m.Assets[id]
}

// AssetURLs returns the public URLs of every file recorded for id.
func (m *Manifest) AssetURLs(id string) []string {
	files := m.Files(id)
	if len(files) == 0 {
		return nil
	}
	urls := make([]string, 0, len(files))
	for _, f := range files {
		urls = append(urls, joinURL(m.PublicPath, f))
	}
	return urls
}

func joinURL(base, file string) string {
	if base == "" {
		return file
	}
	if strings.HasSuffix(base, "/") || strings.HasPrefix(file, "/") {
		return base + file
	}
	return base + "/" + file
}

// MarshalIndent returns the canonical encoding: sorted keys, two-space
// indentation, trailing newline. Identical manifests encode to identical
// bytes.
func (m *Manifest) MarshalIndent() ([]byte, error) {
	out := struct {
		PublicPath string              `json:"publicPath,omitempty"`
		Assets     map[string][]string `json:"assets"`
	}{PublicPath: m.PublicPath, Assets: m.Assets}
	if out.Assets == nil {
		out.Assets = map[string][]string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, errors.Wrap(errors.PhaseManifest, errors.KindInvalidData, err, "encode manifest")
	}
	return buf.Bytes(), nil
}

// Encode writes the canonical encoding of m to w.
func Encode(w io.Writer, m *Manifest) error {
	data, err := m.MarshalIndent()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Decode reads a manifest.
func Decode(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, errors.ParseFailed("manifest", err)
	}
	if m.Assets == nil {
		m.Assets = make(map[string][]string)
	}
	return &m, nil
}

// LoadFile reads a manifest file.
func LoadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindNotFound, err, "open manifest "+path)
	}
	defer f.Close()
	return Decode(f)
}

// WriteFile writes the canonical encoding of m to path.
func WriteFile(path string, m *Manifest) error {
	data, err := m.MarshalIndent()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.PhaseManifest, errors.KindInvalidInput, err, "write manifest "+path)
	}
	return nil
}
