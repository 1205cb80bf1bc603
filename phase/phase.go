package phase

import (
	"fmt"
	"strings"

	"github.com/wippyai/lazyload/errors"
)

// Phase is an ordered render lifecycle checkpoint.
type Phase int

const (
	// Immediate units activate in the first frame and render on the server.
	Immediate Phase = iota
	// AfterPaint units activate once the host signals the first paint.
	AfterPaint
	// OnInteraction units activate once the host signals user interaction.
	OnInteraction
)

// Terminal is the highest phase; advancing past it is a no-op.
const Terminal = OnInteraction

func (p Phase) String() string {
	switch p {
	case Immediate:
		return "immediate"
	case AfterPaint:
		return "after-paint"
	case OnInteraction:
		return "on-interaction"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Valid reports whether p is one of the declared phases.
func (p Phase) Valid() bool {
	return p >= Immediate && p <= Terminal
}

// Parse converts a phase name into a Phase. The legacy names paint and
// lazy are accepted as aliases.
func Parse(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "immediate", "paint", "for-paint":
		return Immediate, nil
	case "after-paint", "afterpaint":
		return AfterPaint, nil
	case "on-interaction", "interaction", "lazy":
		return OnInteraction, nil
	default:
		return Immediate, errors.InvalidInput(errors.PhaseSchedule, fmt.Sprintf("unknown phase %q", s))
	}
}
