package model

// Sample declares a named media source referenced by pattern events. Path is
// optional; when empty the asset resolver locates the sample by name.
type Sample struct {
	Name string
	Path string
	Meta map[string]string
}

// Event is one populated cell of a pattern row: a sample reference plus
// opaque per-event parameters. Parameters are passed through unmodified
// except for the tempo-affecting keys consumed by the timeline builder.
type Event struct {
	Sample string
	Params map[string]string
}

// Param returns a named event parameter, or "" when absent.
func (e *Event) Param(key string) string {
	if e == nil || e.Params == nil {
		return ""
	}
	return e.Params[key]
}

// Row maps channel index to an event. A nil element is an empty cell (rest).
type Row []*Event

// Pattern is an ordered sequence of rows. The row count is fixed per pattern.
type Pattern struct {
	Rows []Row
}

// Module is a normalized tracker module: ordered patterns of fixed-length
// rows, each row holding per-channel sample events.
type Module struct {
	Title    string
	Channels int
	Samples  map[string]Sample
	Patterns []Pattern

	// Order lists pattern indices in playback order. Every index must
	// reference an existing pattern.
	Order []int

	// Tempo and Speed seed the initial tempo state. Both zero means the
	// module plays with the fixed default row duration.
	Tempo int
	Speed int
}

// SamplePath returns the declared file path for a sample name, or "" when the
// sample is undeclared or carries no explicit path.
func (m *Module) SamplePath(name string) string {
	if s, ok := m.Samples[name]; ok {
		return s.Path
	}
	return ""
}
