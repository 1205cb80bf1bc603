package manifest

import (
	"sync"

	"github.com/wippyai/lazyload/errors"
)

var (
	installed   *Manifest
	installedMu sync.RWMutex
)

// Install makes m the process-wide manifest used by sessions that are not
// given one explicitly. Installing twice without Reset is an error.
func Install(m *Manifest) error {
	if m == nil {
		return errors.InvalidInput(errors.PhaseConfig, "nil manifest")
	}
	installedMu.Lock()
	defer installedMu.Unlock()
	if installed != nil {
		return errors.AlreadyInitialized("manifest")
	}
	installed = m
	return nil
}

// Current returns the installed manifest.
func Current() (*Manifest, bool) {
	installedMu.RLock()
	defer installedMu.RUnlock()
	return installed, installed != nil
}

// Reset removes the installed manifest.
func Reset() {
	installedMu.Lock()
	installed = nil
	installedMu.Unlock()
}
