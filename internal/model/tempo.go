package model

import "time"

// DefaultRowDuration is used by modules that carry no tempo information.
const DefaultRowDuration = 250 * time.Millisecond

// Event parameter keys consumed by the timeline builder. Any other parameter
// is opaque pass-through.
const (
	ParamTempo = "tempo"
	ParamSpeed = "speed"
)

// TempoState is the tempo/speed state in effect at a given row. The zero
// value (no tempo, no speed) yields DefaultRowDuration per row.
type TempoState struct {
	Tempo int
	Speed int
}

// InitialTempo returns the tempo state in effect at the first row.
func (m *Module) InitialTempo() TempoState {
	return TempoState{Tempo: m.Tempo, Speed: m.Speed}
}

// RowDuration derives one row's duration from the classic tracker relation:
// one tick is 2.5/tempo seconds and a row lasts `speed` ticks.
func (t TempoState) RowDuration() time.Duration {
	if t.Tempo <= 0 || t.Speed <= 0 {
		return DefaultRowDuration
	}
	us := int64(t.Speed) * 2_500_000 / int64(t.Tempo)
	return time.Duration(us) * time.Microsecond
}
