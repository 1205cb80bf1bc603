package lazy

import (
	"fmt"
	"sync"

	"github.com/wippyai/lazyload/errors"
	"github.com/wippyai/lazyload/manifest"
)

// Mode selects how a client session treats markup persisted by the server.
type Mode int

const (
	// ModeRender renders fresh markup; persisted SSR content is reused
	// without its boundary markers.
	ModeRender Mode = iota
	// ModeHydrate attaches to server markup; placeholders must match the
	// server output byte for byte.
	ModeHydrate
)

func (m Mode) String() string {
	switch m {
	case ModeRender:
		return "render"
	case ModeHydrate:
		return "hydrate"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts "render" or "hydrate" into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "render", "":
		return ModeRender, nil
	case "hydrate":
		return ModeHydrate, nil
	default:
		return ModeRender, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown mode %q", s))
	}
}

// Config is the boot configuration installed once per process.
type Config struct {
	Manifest *manifest.Manifest
	Mode     Mode
}

var (
	bootMu     sync.RWMutex
	bootConfig *Config
)

// Init installs cfg as the process-wide default for new sessions and
// installs its manifest. Calling Init twice without Reset is an error.
func Init(cfg Config) error {
	bootMu.Lock()
	defer bootMu.Unlock()
	if bootConfig != nil {
		return errors.AlreadyInitialized("lazy")
	}
	if cfg.Manifest != nil {
		if err := manifest.Install(cfg.Manifest); err != nil {
			return err
		}
	}
	c := cfg
	bootConfig = &c
	Logger().Debug("lazy initialized")
	return nil
}

// Reset tears down the state installed by Init.
func Reset() {
	bootMu.Lock()
	bootConfig = nil
	bootMu.Unlock()
	manifest.Reset()
}

func defaults() Config {
	bootMu.RLock()
	defer bootMu.RUnlock()
	if bootConfig == nil {
		cfg := Config{Mode: ModeRender}
		if m, ok := manifest.Current(); ok {
			cfg.Manifest = m
		}
		return cfg
	}
	cfg := *bootConfig
	if cfg.Manifest == nil {
		if m, ok := manifest.Current(); ok {
			cfg.Manifest = m
		}
	}
	return cfg
}
