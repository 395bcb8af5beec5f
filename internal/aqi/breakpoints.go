package aqi

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed breakpoints.yaml
var defaultBreakpoints []byte

// Segment maps a concentration range onto an AQI range.
type Segment struct {
	CLow    float64 `yaml:"c_low" json:"c_low"`
	CHigh   float64 `yaml:"c_high" json:"c_high"`
	AQILow  int     `yaml:"aqi_low" json:"aqi_low"`
	AQIHigh int     `yaml:"aqi_high" json:"aqi_high"`
}

// Breakpoints holds the ordered segments of one pollutant. Precision is the
// number of decimals a concentration is truncated to before lookup.
type Breakpoints struct {
	Precision int       `yaml:"precision" json:"precision"`
	Segments  []Segment `yaml:"segments" json:"segments"`
}

// Table is an immutable set of breakpoints keyed by pollutant.
type Table struct {
	entries map[Pollutant]Breakpoints
}

// NewTable validates and copies the given breakpoints.
func NewTable(entries map[Pollutant]Breakpoints) (*Table, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("breakpoint table is empty")
	}

	t := &Table{entries: make(map[Pollutant]Breakpoints, len(entries))}
	for p, bp := range entries {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedPollutant, p)
		}
		if err := bp.validate(); err != nil {
			return nil, fmt.Errorf("breakpoints for %s: %w", p, err)
		}
		segments := make([]Segment, len(bp.Segments))
		copy(segments, bp.Segments)
		t.entries[p] = Breakpoints{Precision: bp.Precision, Segments: segments}
	}
	return t, nil
}

// ParseTable decodes a YAML document keyed by pollutant name.
func ParseTable(data []byte) (*Table, error) {
	var raw map[string]Breakpoints
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse breakpoints: %w", err)
	}

	entries := make(map[Pollutant]Breakpoints, len(raw))
	for name, bp := range raw {
		p, err := ParsePollutant(name)
		if err != nil {
			return nil, err
		}
		entries[p] = bp
	}
	return NewTable(entries)
}

// LoadTable reads a breakpoint table from a YAML file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read breakpoints file %s: %w", path, err)
	}
	return ParseTable(data)
}

// DefaultTable returns the embedded US EPA table.
func DefaultTable() *Table {
	t, err := ParseTable(defaultBreakpoints)
	if err != nil {
		panic("embedded breakpoint table is invalid: " + err.Error())
	}
	return t
}

// Breakpoints returns a copy of the breakpoints for p.
func (t *Table) Breakpoints(p Pollutant) (Breakpoints, bool) {
	bp, ok := t.entries[p]
	if !ok {
		return Breakpoints{}, false
	}
	segments := make([]Segment, len(bp.Segments))
	copy(segments, bp.Segments)
	return Breakpoints{Precision: bp.Precision, Segments: segments}, true
}

// Pollutants returns the pollutants present in the table, in display order.
func (t *Table) Pollutants() []Pollutant {
	var out []Pollutant
	for _, p := range Pollutants {
		if _, ok := t.entries[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Validate re-checks every pollutant's segments.
func (t *Table) Validate() error {
	if t == nil || len(t.entries) == 0 {
		return fmt.Errorf("breakpoint table is empty")
	}
	for _, p := range t.Pollutants() {
		if err := t.entries[p].validate(); err != nil {
			return fmt.Errorf("breakpoints for %s: %w", p, err)
		}
	}
	return nil
}

func (bp Breakpoints) validate() error {
	if len(bp.Segments) == 0 {
		return fmt.Errorf("no segments")
	}
	if bp.Precision < 0 || bp.Precision > 6 {
		return fmt.Errorf("precision %d out of range 0-6", bp.Precision)
	}
	if bp.Segments[0].CLow != 0 {
		return fmt.Errorf("first segment must start at 0, got %v", bp.Segments[0].CLow)
	}

	for i, s := range bp.Segments {
		if s.CLow >= s.CHigh {
			return fmt.Errorf("segment %d: c_low %v must be below c_high %v", i, s.CLow, s.CHigh)
		}
		if s.AQILow >= s.AQIHigh {
			return fmt.Errorf("segment %d: aqi_low %d must be below aqi_high %d", i, s.AQILow, s.AQIHigh)
		}
		if i == 0 {
			continue
		}
		prev := bp.Segments[i-1]
		if s.CLow <= prev.CHigh {
			return fmt.Errorf("segment %d overlaps segment %d", i, i-1)
		}
		if s.AQILow <= prev.AQIHigh {
			return fmt.Errorf("segment %d aqi range overlaps segment %d", i, i-1)
		}
	}
	return nil
}
