package phase

import (
	"errors"
	"reflect"
	"testing"

	lazyerrors "github.com/wippyai/lazyload/errors"
)

func TestScheduler_Monotonic(t *testing.T) {
	s := New()
	if s.Current() != Immediate {
		t.Fatalf("initial phase = %s, want immediate", s.Current())
	}

	prev := s.Current()
	for i := 0; i < 10; i++ {
		got := s.Advance()
		if got < prev {
			t.Fatalf("phase regressed from %s to %s", prev, got)
		}
		prev = got
	}
	if s.Current() != Terminal {
		t.Fatalf("phase = %s, want terminal", s.Current())
	}
	if s.Advance() != Terminal {
		t.Fatal("advance past terminal should be a no-op")
	}
}

func TestScheduler_AdvanceToRejectsRegression(t *testing.T) {
	s := New()
	if err := s.AdvanceTo(OnInteraction); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := s.AdvanceTo(AfterPaint)
	if !errors.Is(err, lazyerrors.ErrPhaseRegression) {
		t.Fatalf("expected phase regression, got %v", err)
	}
	if s.Current() != OnInteraction {
		t.Fatalf("phase = %s after rejected regression", s.Current())
	}
	if err := s.AdvanceTo(OnInteraction); err != nil {
		t.Fatalf("advancing to the current phase should succeed, got %v", err)
	}
	if err := s.AdvanceTo(Phase(9)); err == nil {
		t.Fatal("expected error for unknown phase")
	}
}

func TestScheduler_Pinned(t *testing.T) {
	s := NewPinned()
	fired := false
	s.Subscribe(AfterPaint, func(Phase) { fired = true })

	s.Advance()
	if err := s.AdvanceTo(OnInteraction); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Current() != Immediate {
		t.Fatalf("pinned phase = %s, want immediate", s.Current())
	}
	if fired {
		t.Fatal("pinned scheduler must not notify subscribers")
	}
}

func TestScheduler_ExactlyOnceNotification(t *testing.T) {
	tests := []struct {
		name      string
		threshold Phase
		advances  int
		wantFires int
	}{
		{"after paint crossed", AfterPaint, 1, 1},
		{"after paint crossed many times", AfterPaint, 5, 1},
		{"interaction not reached", OnInteraction, 1, 0},
		{"interaction reached by jump", OnInteraction, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			fires := 0
			s.Subscribe(tt.threshold, func(Phase) { fires++ })
			for i := 0; i < tt.advances; i++ {
				s.Advance()
			}
			if fires != tt.wantFires {
				t.Fatalf("fired %d times, want %d", fires, tt.wantFires)
			}
		})
	}
}

func TestScheduler_RegistrationOrder(t *testing.T) {
	s := New()
	var order []string
	s.Subscribe(OnInteraction, func(Phase) { order = append(order, "c") })
	s.Subscribe(AfterPaint, func(Phase) { order = append(order, "a") })
	s.Subscribe(AfterPaint, func(Phase) { order = append(order, "b") })

	if err := s.AdvanceTo(OnInteraction); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0 after all fired", s.Len())
	}
}

func TestScheduler_FanOutBeforeAdvanceReturns(t *testing.T) {
	s := New()
	var seen Phase = -1
	s.Subscribe(AfterPaint, func(p Phase) {
		seen = s.Current()
		if p != AfterPaint {
			t.Errorf("callback phase = %s, want after-paint", p)
		}
	})
	s.Advance()
	if seen != AfterPaint {
		t.Fatalf("callback did not run synchronously, saw %s", seen)
	}
}

func TestScheduler_SubscribeWhenSatisfied(t *testing.T) {
	s := New()
	s.Advance()
	fired := 0
	unsubscribe := s.Subscribe(Immediate, func(Phase) { fired++ })
	if fired != 1 {
		t.Fatalf("fired %d times, want immediate fire", fired)
	}
	unsubscribe()
	s.Advance()
	if fired != 1 {
		t.Fatalf("fired %d times after advance, want 1", fired)
	}
}

func TestScheduler_Unsubscribe(t *testing.T) {
	s := New()
	fired := false
	unsubscribe := s.Subscribe(AfterPaint, func(Phase) { fired = true })
	keep := 0
	s.Subscribe(AfterPaint, func(Phase) { keep++ })

	unsubscribe()
	unsubscribe()
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	s.Advance()
	if fired {
		t.Fatal("unsubscribed callback fired")
	}
	if keep != 1 {
		t.Fatalf("remaining callback fired %d times, want 1", keep)
	}
}

func TestScheduler_ReentrantSubscribe(t *testing.T) {
	s := New()
	inner := 0
	s.Subscribe(AfterPaint, func(Phase) {
		s.Subscribe(AfterPaint, func(Phase) { inner++ })
		s.Subscribe(OnInteraction, func(Phase) { inner += 10 })
	})
	s.Advance()
	if inner != 1 {
		t.Fatalf("inner = %d, want satisfied subscription to fire immediately", inner)
	}
	s.Advance()
	if inner != 11 {
		t.Fatalf("inner = %d, want 11", inner)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Phase
		wantErr bool
	}{
		{"immediate", Immediate, false},
		{"paint", Immediate, false},
		{"After-Paint", AfterPaint, false},
		{"lazy", OnInteraction, false},
		{" on-interaction ", OnInteraction, false},
		{"later", Immediate, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("Parse(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
