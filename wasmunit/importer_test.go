package wasmunit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	lazyerrors "github.com/wippyai/lazyload/errors"
	"github.com/wippyai/lazyload/lazy"
	"github.com/wippyai/lazyload/manifest"
)

var emptyModule = []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}

func uleb(n int) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(n int) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if (n == 0 && b&0x40 == 0) || (n == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func vec(items ...[]byte) []byte {
	return concat(uleb(len(items)), concat(items...))
}

func str(s string) []byte {
	return concat(uleb(len(s)), []byte(s))
}

func section(id byte, content []byte) []byte {
	return concat([]byte{id}, uleb(len(content)), content)
}

// renderModule assembles a module whose render export returns markup
// stored at offset 0, or (ptr, len) when ptr is non-negative.
func renderModule(markup string, ptr int, importWASI bool) []byte {
	length := len(markup)
	if ptr < 0 {
		ptr = 0
	}

	types := vec(
		[]byte{0x60, 0x00, 0x02, 0x7f, 0x7f}, // () -> (i32, i32)
		[]byte{0x60, 0x01, 0x7f, 0x00},       // (i32) -> ()
	)
	renderIdx := byte(0)
	var imports []byte
	if importWASI {
		imports = section(2, vec(concat(str("wasi_snapshot_preview1"), str("proc_exit"), []byte{0x00, 0x01})))
		renderIdx = 1
	}

	body := concat([]byte{0x00, 0x41}, sleb(ptr), []byte{0x41}, sleb(length), []byte{0x0b})
	return concat(
		emptyModule,
		section(1, types),
		imports,
		section(3, vec([]byte{0x00})),
		section(5, vec([]byte{0x00, 0x01})),
		section(7, vec(
			concat(str("memory"), []byte{0x02, 0x00}),
			concat(str(RenderExport), []byte{0x00, renderIdx}),
		)),
		section(10, vec(concat(uleb(len(body)), body))),
		section(11, vec(concat([]byte{0x00, 0x41, 0x00, 0x0b}, str(markup)))),
	)
}

func newImporter(t *testing.T, opts ...Option) *Importer {
	t.Helper()
	ctx := context.Background()
	imp, err := NewImporter(ctx, opts...)
	if err != nil {
		t.Fatalf("NewImporter: %v", err)
	}
	t.Cleanup(func() { imp.Close(ctx) })
	return imp
}

func TestNewImporter(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"default", nil},
		{"16MB limit", []Option{WithMemoryLimitPages(256)}},
		{"wasi", []Option{WithWASI()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp := newImporter(t, tt.opts...)
			if imp.runtime == nil {
				t.Fatal("runtime should not be nil")
			}
		})
	}
}

func TestCompile(t *testing.T) {
	imp := newImporter(t)
	u, err := imp.Compile(context.Background(), FromBytes("empty", emptyModule))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if u.Name != "empty" || len(u.Exports) != 0 || len(u.Imports) != 0 {
		t.Errorf("unit = %+v", u)
	}
	if u.Compiled() == nil {
		t.Error("Compiled() = nil")
	}
}

func TestCompile_Errors(t *testing.T) {
	imp := newImporter(t)
	readErr := errors.New("disk gone")

	tests := []struct {
		name string
		src  Source
		kind lazyerrors.Kind
	}{
		{"no reader", Source{Name: "x"}, lazyerrors.KindInvalidInput},
		{"read failure", Source{Name: "x", Read: func() ([]byte, error) { return nil, readErr }}, lazyerrors.KindInvalidData},
		{"not wasm", FromBytes("junk", []byte("console.log(1)")), lazyerrors.KindInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := imp.Compile(context.Background(), tt.src)
			var lerr *lazyerrors.Error
			if !errors.As(err, &lerr) {
				t.Fatalf("err = %v, want *errors.Error", err)
			}
			if lerr.Kind != tt.kind || lerr.Phase != lazyerrors.PhaseLoad {
				t.Errorf("err = %v, want %s/%s", err, lazyerrors.PhaseLoad, tt.kind)
			}
		})
	}
}

func TestUnit_Render(t *testing.T) {
	imp := newImporter(t, WithWASI())
	ctx := context.Background()

	u, err := imp.Compile(ctx, FromBytes("chart", renderModule("<b>wasm</b>", -1, true)))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if strings.Join(u.Exports, ",") != RenderExport {
		t.Errorf("Exports = %v", u.Exports)
	}
	if strings.Join(u.Imports, ",") != "wasi_snapshot_preview1.proc_exit" {
		t.Errorf("Imports = %v", u.Imports)
	}

	// Instances are anonymous, so rendering twice must not collide.
	for i := 0; i < 2; i++ {
		got, err := u.Render(ctx)
		if err != nil {
			t.Fatalf("Render #%d: %v", i, err)
		}
		if got != "<b>wasm</b>" {
			t.Errorf("Render #%d = %q", i, got)
		}
	}
}

func TestUnit_RenderErrors(t *testing.T) {
	imp := newImporter(t)
	ctx := context.Background()

	tests := []struct {
		name string
		wasm []byte
		kind lazyerrors.Kind
	}{
		{"no render export", emptyModule, lazyerrors.KindNotFound},
		{"out of bounds", renderModule("oops", 70000, false), lazyerrors.KindInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := imp.Compile(ctx, FromBytes(tt.name, tt.wasm))
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			_, err = u.Render(ctx)
			if !errors.Is(err, &lazyerrors.Error{Phase: lazyerrors.PhaseRender, Kind: tt.kind}) {
				t.Errorf("err = %v, want render/%s", err, tt.kind)
			}
		})
	}
}

func TestFromManifest(t *testing.T) {
	m := manifest.New("/static/")
	m.Assets["./chart"] = []string{"chart.js", "chart.wasm"}
	m.Assets["./plain"] = []string{"plain.js"}
	fsys := fstest.MapFS{"chart.wasm": {Data: emptyModule}}

	src, err := FromManifest(m, "./chart", fsys)
	if err != nil {
		t.Fatalf("FromManifest: %v", err)
	}
	if src.Name != "chart.wasm" {
		t.Errorf("Name = %q", src.Name)
	}
	data, err := src.Read()
	if err != nil || len(data) != len(emptyModule) {
		t.Errorf("Read() = %d bytes, %v", len(data), err)
	}

	for _, id := range []string{"./plain", "./missing"} {
		if _, err := FromManifest(m, id, fsys); !errors.Is(err, &lazyerrors.Error{Phase: lazyerrors.PhaseLoad, Kind: lazyerrors.KindNotFound}) {
			t.Errorf("FromManifest(%q) err = %v, want not found", id, err)
		}
	}
}

func TestImportRendered_BacksLazyUnit(t *testing.T) {
	imp := newImporter(t)
	fsys := fstest.MapFS{"widget.wasm": {Data: renderModule("<em>w</em>", -1, false)}}

	c := lazy.ForPaint(imp.ImportRendered(FromFS(fsys, "widget.wasm")), lazy.WithModuleID("./widget"))
	s := lazy.NewServerSession()
	out, err := s.Render(&lazy.Suspense{Children: []lazy.Node{c}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "<em>w</em>") || !strings.Contains(out, `data-lazy-begin="./widget"`) {
		t.Errorf("server output = %q", out)
	}

	mod, ok := c.Deferred().Result()
	if !ok {
		t.Fatal("unit not resolved")
	}
	if _, ok := mod.Exports["unit"].(*Unit); !ok {
		t.Errorf("exports = %v, want compiled unit", mod.Exports)
	}
}

func TestImport_ResolvesUnit(t *testing.T) {
	imp := newImporter(t)
	v, err := imp.Import(FromBytes("empty", emptyModule))(context.Background())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, ok := v.(*Unit); !ok {
		t.Errorf("import resolved to %T", v)
	}
}
