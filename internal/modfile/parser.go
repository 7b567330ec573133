// Package modfile parses the text module format:
//
//	TITLE: My Track
//	TEMPO: 125
//	SPEED: 6
//	SAMPLE: kick,path=assets/audio/kick.wav
//	PATTERN:
//	  SAMPLE:kick REST SAMPLE:snare
//	  SAMPLE:kick;tempo=100 REST
//	ORDER: 0,1,0
//
// Row tokens are either REST or SAMPLE:name with optional ;key=value
// parameters. The parser is deliberately forgiving about whitespace and
// commas, like the format it descends from.
package modfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vk/modmotion/internal/model"
)

// Parse reads a module file from disk. Relative sample paths are resolved
// against the module file's directory.
func Parse(path string) (*model.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open module file: %w", err)
	}
	defer f.Close()
	return ParseReader(f, filepath.Dir(path))
}

// ParseReader parses module text from r. baseDir anchors relative sample
// paths; pass "" to keep them as written.
func ParseReader(r io.Reader, baseDir string) (*model.Module, error) {
	mod := &model.Module{
		Title:   "Untitled",
		Samples: map[string]model.Sample{},
	}

	var (
		inPattern bool
		rows      []model.Row
		lineNo    int
	)

	flush := func() {
		if len(rows) > 0 {
			mod.Patterns = append(mod.Patterns, model.Pattern{Rows: rows})
			rows = nil
		}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		upper := strings.ToUpper(line)

		switch {
		case strings.HasPrefix(upper, "TITLE:"):
			mod.Title = strings.TrimSpace(line[len("TITLE:"):])
		case strings.HasPrefix(upper, "TEMPO:"):
			v, err := parseIntDirective(line, "TEMPO")
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			mod.Tempo = v
		case strings.HasPrefix(upper, "SPEED:"):
			v, err := parseIntDirective(line, "SPEED")
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			mod.Speed = v
		case strings.HasPrefix(upper, "CHANNELS:"):
			v, err := parseIntDirective(line, "CHANNELS")
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			mod.Channels = v
		case strings.HasPrefix(upper, "SAMPLE:") && !inPattern:
			s := parseSampleDecl(line[len("SAMPLE:"):], baseDir)
			mod.Samples[s.Name] = s
		case strings.HasPrefix(upper, "PATTERN:"):
			flush()
			inPattern = true
		case strings.HasPrefix(upper, "ORDER:"):
			inPattern = false
			for _, tok := range strings.Split(line[len("ORDER:"):], ",") {
				tok = strings.TrimSpace(tok)
				if tok == "" {
					continue
				}
				idx, err := strconv.Atoi(tok)
				if err != nil {
					return nil, fmt.Errorf("line %d: bad order index %q", lineNo, tok)
				}
				mod.Order = append(mod.Order, idx)
			}
		default:
			if !inPattern {
				return nil, fmt.Errorf("line %d: unexpected line outside pattern: %q", lineNo, line)
			}
			row, err := parseRow(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if len(row) > 0 {
				rows = append(rows, row)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read module file: %w", err)
	}
	flush()

	if mod.Channels == 0 {
		for _, p := range mod.Patterns {
			for _, row := range p.Rows {
				if len(row) > mod.Channels {
					mod.Channels = len(row)
				}
			}
		}
	}
	if len(mod.Order) == 0 {
		for i := range mod.Patterns {
			mod.Order = append(mod.Order, i)
		}
	}
	return mod, nil
}

func parseIntDirective(line, name string) (int, error) {
	raw := strings.TrimSpace(line[len(name)+1:])
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("bad %s value %q", name, raw)
	}
	return v, nil
}

// parseSampleDecl parses "name[,path=...][,k=v...]".
func parseSampleDecl(rest, baseDir string) model.Sample {
	parts := strings.Split(rest, ",")
	s := model.Sample{Name: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "path" {
			if v != "" && baseDir != "" && !filepath.IsAbs(v) {
				v = filepath.Clean(filepath.Join(baseDir, v))
			}
			s.Path = v
			continue
		}
		if s.Meta == nil {
			s.Meta = map[string]string{}
		}
		s.Meta[k] = v
	}
	return s
}

// parseRow tokenizes one pattern row. Commas and whitespace both separate
// tokens.
func parseRow(line string) (model.Row, error) {
	var row model.Row
	for _, tok := range strings.Fields(strings.ReplaceAll(line, ",", " ")) {
		ev, err := parseToken(tok)
		if err != nil {
			return nil, err
		}
		row = append(row, ev)
	}
	return row, nil
}

func parseToken(tok string) (*model.Event, error) {
	if strings.EqualFold(tok, "REST") {
		return nil, nil
	}
	if !strings.HasPrefix(strings.ToUpper(tok), "SAMPLE:") {
		return nil, fmt.Errorf("unknown row token %q", tok)
	}
	body := tok[len("SAMPLE:"):]
	fields := strings.Split(body, ";")
	ev := &model.Event{Sample: fields[0]}
	if ev.Sample == "" {
		return nil, fmt.Errorf("empty sample name in token %q", tok)
	}
	for _, p := range fields[1:] {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("bad event parameter %q in token %q", p, tok)
		}
		if ev.Params == nil {
			ev.Params = map[string]string{}
		}
		ev.Params[k] = v
	}
	return ev, nil
}
