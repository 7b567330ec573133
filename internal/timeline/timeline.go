// Package timeline converts a normalized module into a time-ordered,
// duration-accurate sequence of entries. The build is a pure transform: it
// touches no assets and has no side effects.
package timeline

import (
	"fmt"
	"strconv"
	"time"

	"github.com/vk/modmotion/internal/model"
)

// MaxChannels bounds the per-module channel count.
const MaxChannels = 32

// Entry is one rendered time window for one (pattern, row, channel) triple.
// Sample is "" for a rest cell; the window still occupies its full duration.
type Entry struct {
	Start    time.Duration
	Duration time.Duration
	Pattern  int
	Row      int
	Channel  int
	Sample   string
	Params   map[string]string
}

// End returns the exclusive end of the entry's window.
func (e Entry) End() time.Duration {
	return e.Start + e.Duration
}

// MalformedModuleError reports structurally invalid module input. It is
// fatal and surfaced before any rendering starts.
type MalformedModuleError struct {
	Reason  string
	Pattern int
	Row     int
	Channel int
}

func (e *MalformedModuleError) Error() string {
	return fmt.Sprintf("malformed module: %s (pattern=%d row=%d channel=%d)",
		e.Reason, e.Pattern, e.Row, e.Channel)
}

// Build converts module playback order into timeline entries. For every row
// it emits one entry per channel (rests included), so entries for a given
// channel tile the whole timeline contiguously without gaps or overlaps.
//
// Row duration derives from the tempo state in effect at that row.
// Tempo-affecting event parameters apply starting at their own row; when
// several occur within one row, the last in ascending channel order wins.
func Build(mod *model.Module) ([]Entry, error) {
	if mod.Channels < 1 || mod.Channels > MaxChannels {
		return nil, &MalformedModuleError{
			Reason:  fmt.Sprintf("channel count %d outside [1,%d]", mod.Channels, MaxChannels),
			Pattern: -1, Row: -1, Channel: -1,
		}
	}

	tempo := mod.InitialTempo()
	var entries []Entry
	var t time.Duration

	for _, patIdx := range mod.Order {
		if patIdx < 0 || patIdx >= len(mod.Patterns) {
			return nil, &MalformedModuleError{
				Reason:  fmt.Sprintf("order references unknown pattern %d", patIdx),
				Pattern: patIdx, Row: -1, Channel: -1,
			}
		}
		pattern := mod.Patterns[patIdx]

		for rowIdx, row := range pattern.Rows {
			if len(row) > mod.Channels {
				return nil, &MalformedModuleError{
					Reason:  fmt.Sprintf("row has %d cells but module declares %d channels", len(row), mod.Channels),
					Pattern: patIdx, Row: rowIdx, Channel: len(row) - 1,
				}
			}

			// Tempo changes in this row take effect for this row.
			for _, ev := range row {
				tempo = applyTempoParams(tempo, ev)
			}
			dur := tempo.RowDuration()

			for ch := 0; ch < mod.Channels; ch++ {
				entry := Entry{
					Start:    t,
					Duration: dur,
					Pattern:  patIdx,
					Row:      rowIdx,
					Channel:  ch,
				}
				if ch < len(row) && row[ch] != nil {
					entry.Sample = row[ch].Sample
					entry.Params = row[ch].Params
				}
				entries = append(entries, entry)
			}
			t += dur
		}
	}
	return entries, nil
}

// Total returns the timeline's exact end time: the sum of all row durations.
func Total(entries []Entry) time.Duration {
	var total time.Duration
	for _, e := range entries {
		if e.End() > total {
			total = e.End()
		}
	}
	return total
}

// Truncate clips the timeline to the first limit of playback time, trimming
// the duration of entries that straddle the boundary. Used for previews.
func Truncate(entries []Entry, limit time.Duration) []Entry {
	if limit <= 0 {
		return entries
	}
	var out []Entry
	for _, e := range entries {
		if e.Start >= limit {
			continue
		}
		if e.End() > limit {
			e.Duration = limit - e.Start
		}
		out = append(out, e)
	}
	return out
}

func applyTempoParams(state model.TempoState, ev *model.Event) model.TempoState {
	if v := ev.Param(model.ParamTempo); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			state.Tempo = n
		}
	}
	if v := ev.Param(model.ParamSpeed); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			state.Speed = n
		}
	}
	return state
}
