package deferred

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	lazyerrors "github.com/wippyai/lazyload/errors"
)

// gatedImport returns an import function that blocks until release is
// closed and counts its invocations.
func gatedImport(value any) (ImportFunc, chan struct{}, *atomic.Int32) {
	release := make(chan struct{})
	calls := &atomic.Int32{}
	return func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return value, nil
	}, release, calls
}

func waitStatus(t *testing.T, d *Deferred, want Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for d.Status() != want {
		if time.Now().After(deadline) {
			t.Fatalf("status = %s, want %s", d.Status(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDeferred_IdempotentFetch(t *testing.T) {
	tests := []struct {
		name     string
		preloads int
		starts   int
	}{
		{"preload only", 3, 0},
		{"start only", 0, 4},
		{"preload then start", 2, 2},
		{"single start", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			load, release, calls := gatedImport("content")
			d := New(load)

			var futures []*Future
			for i := 0; i < tt.preloads; i++ {
				d.Preload()
			}
			for i := 0; i < tt.starts; i++ {
				futures = append(futures, d.Start())
			}
			close(release)
			waitStatus(t, d, Resolved)

			for _, f := range futures {
				if _, err := f.Wait(context.Background()); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
			// After resolution further calls must not fetch either.
			d.Preload()
			d.Start()

			if got := calls.Load(); got != 1 {
				t.Fatalf("import invoked %d times, want 1", got)
			}
		})
	}
}

func TestDeferred_ConcurrentCallsCoalesce(t *testing.T) {
	load, release, calls := gatedImport("content")
	d := New(load)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				d.Preload()
				return
			}
			d.Start()
		}(i)
	}
	wg.Wait()
	close(release)

	if _, err := d.Start().Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("import invoked %d times, want 1", got)
	}
}

func TestDeferred_StartAfterPreloadIsSynchronous(t *testing.T) {
	load, release, calls := gatedImport("content")
	d := New(load)

	if _, ok := d.Result(); ok {
		t.Fatal("expected no result before preload")
	}

	d.Preload()
	if d.Status() != Loading {
		t.Fatalf("status = %s, want LOADING", d.Status())
	}
	close(release)
	waitStatus(t, d, Resolved)

	f := d.Start()
	if !f.Ready() {
		t.Fatal("start after resolution should complete synchronously")
	}
	mod, err := f.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mod.Default != "content" {
		t.Fatalf("Default = %v, want content", mod.Default)
	}
	if calls.Load() != 1 {
		t.Fatalf("import invoked %d times, want 1", calls.Load())
	}
}

func TestDeferred_StartWhileLoadingSharesHandle(t *testing.T) {
	load, release, _ := gatedImport("content")
	d := New(load)

	first := d.Start()
	second := d.Start()
	if first != second {
		t.Fatal("expected the same completion handle while loading")
	}
	if first.Ready() {
		t.Fatal("future should be pending before the import returns")
	}
	if _, err := first.Result(); !errors.Is(err, ErrPending) {
		t.Fatalf("Result before completion = %v, want ErrPending", err)
	}
	close(release)
	if _, err := second.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeferred_FailureIsNotCached(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("chunk 404")
	d := New(func(ctx context.Context) (any, error) {
		if calls.Add(1) == 1 {
			return nil, boom
		}
		return "content", nil
	}, WithName("./mock"))

	_, err := d.Start().Wait(context.Background())
	if !errors.Is(err, lazyerrors.ErrFetchFailure) {
		t.Fatalf("expected fetch failure, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	var lerr *lazyerrors.Error
	if !errors.As(err, &lerr) || lerr.Unit != "./mock" {
		t.Fatalf("expected unit ./mock in error, got %v", err)
	}
	if d.Status() != Unstarted {
		t.Fatalf("status = %s, want UNSTARTED after failure", d.Status())
	}

	mod, err := d.Start().Wait(context.Background())
	if err != nil {
		t.Fatalf("retry should succeed, got %v", err)
	}
	if mod.Default != "content" || calls.Load() != 2 {
		t.Fatalf("unexpected retry result %v after %d calls", mod.Default, calls.Load())
	}
}

func TestDeferred_PanicBecomesFetchFailure(t *testing.T) {
	d := New(func(ctx context.Context) (any, error) {
		panic("bad chunk")
	})
	_, err := d.Start().Wait(context.Background())
	if !errors.Is(err, lazyerrors.ErrFetchFailure) {
		t.Fatalf("expected fetch failure, got %v", err)
	}
}

func TestDeferred_NilImport(t *testing.T) {
	d := New(nil)
	if _, err := d.Start().Wait(context.Background()); err == nil {
		t.Fatal("expected error for nil import")
	}
}

func TestDeferred_ContextNotCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	seen := make(chan error, 1)
	release := make(chan struct{})
	d := New(func(ctx context.Context) (any, error) {
		<-release
		seen <- ctx.Err()
		return "content", nil
	}, WithContext(ctx))

	f := d.Start()
	cancel()
	close(release)
	if err := <-seen; err != nil {
		t.Fatalf("import context should not be cancelled, got %v", err)
	}
	if _, err := f.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFuture_WaitHonoursContext(t *testing.T) {
	load, release, _ := gatedImport("content")
	defer close(release)
	d := New(load)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := d.Start().Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

type exporter struct{ def any }

func (e exporter) DefaultExport() any { return e.def }

func TestNormalize(t *testing.T) {
	render := func() string { return "<p>x</p>" }
	existing := Module{Default: "already"}
	tests := []struct {
		name  string
		input any
		want  any
	}{
		{"bare value is wrapped", "content", "content"},
		{"module passes through", existing, "already"},
		{"module pointer passes through", &existing, "already"},
		{"map with default", map[string]any{"default": "d", "named": 1}, "d"},
		{"default exporter", exporter{def: "e"}, "e"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got.Default != tt.want {
				t.Fatalf("Default = %v, want %v", got.Default, tt.want)
			}
		})
	}

	t.Run("map without default is wrapped whole", func(t *testing.T) {
		in := map[string]any{"named": 1}
		got := Normalize(in)
		m, ok := got.Default.(map[string]any)
		if !ok || m["named"] != 1 {
			t.Fatalf("Default = %#v, want the original map", got.Default)
		}
	})

	t.Run("map with default keeps exports", func(t *testing.T) {
		got := Normalize(map[string]any{"default": "d", "named": 1})
		if got.Exports["named"] != 1 {
			t.Fatalf("Exports = %#v, want named export kept", got.Exports)
		}
	})

	t.Run("func value is wrapped", func(t *testing.T) {
		got := Normalize(render)
		fn, ok := got.Default.(func() string)
		if !ok || fn() != "<p>x</p>" {
			t.Fatalf("Default = %#v, want the render func", got.Default)
		}
	})

	t.Run("empty module is wrapped", func(t *testing.T) {
		got := Normalize(Module{})
		if _, ok := got.Default.(Module); !ok {
			t.Fatalf("Default = %#v, want wrapped Module", got.Default)
		}
	})
}
