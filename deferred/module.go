package deferred

// Module is the normalized shape every resolved import is exposed as.
// Default carries the conventional default export; Exports keeps the raw
// named exports when the import produced a map.
type Module struct {
	Default any
	Exports map[string]any
}

// DefaultExporter can be implemented by module values that already expose a
// default export and should not be wrapped.
type DefaultExporter interface {
	DefaultExport() any
}

// Normalize converts an arbitrary import result into a Module.
//
// A Module (or *Module) with a non-nil Default passes through unchanged, as
// does a map carrying a "default" key or a DefaultExporter. Anything else is
// wrapped as Module{Default: v}.
func Normalize(v any) Module {
	switch m := v.(type) {
	case Module:
		if m.Default != nil {
			return m
		}
	case *Module:
		if m != nil && m.Default != nil {
			return *m
		}
	case map[string]any:
		if def, ok := m["default"]; ok && def != nil {
			return Module{Default: def, Exports: m}
		}
	case DefaultExporter:
		if def := m.DefaultExport(); def != nil {
			return Module{Default: def}
		}
	}
	return Module{Default: v}
}
