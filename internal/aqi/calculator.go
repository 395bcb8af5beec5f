package aqi

import (
	"fmt"
	"math"
)

// Category is one of the six ordered AQI severity tiers.
type Category int

const (
	Good Category = iota
	Moderate
	UnhealthySensitive
	Unhealthy
	VeryUnhealthy
	Hazardous
)

// Categories lists the tiers from least to most severe.
var Categories = []Category{Good, Moderate, UnhealthySensitive, Unhealthy, VeryUnhealthy, Hazardous}

var categoryNames = [...]string{
	"Good",
	"Moderate",
	"Unhealthy for Sensitive Groups",
	"Unhealthy",
	"Very Unhealthy",
	"Hazardous",
}

var categoryColors = [...]string{"#00e400", "#ffff00", "#ff7e00", "#ff0000", "#8f3f97", "#7e0023"}

// upper AQI bound of each category band; Hazardous is open ended
var categoryBands = [...]int{50, 100, 150, 200, 300}

func (c Category) Valid() bool {
	return c >= Good && c <= Hazardous
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// Color returns the display color for the category.
func (c Category) Color() string {
	if !c.Valid() {
		return "#cccccc"
	}
	return categoryColors[c]
}

// MarshalText encodes the category by name.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a category name.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory resolves a category by its display name.
func ParseCategory(name string) (Category, error) {
	for i, n := range categoryNames {
		if n == name {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// CategoryFor maps an integer AQI onto its band.
func CategoryFor(aqi int) Category {
	for i, upper := range categoryBands {
		if aqi <= upper {
			return Category(i)
		}
	}
	return Hazardous
}

// Result is the AQI derived from a single concentration.
type Result struct {
	Pollutant     Pollutant `json:"pollutant"`
	Concentration float64   `json:"concentration"`
	AQI           int       `json:"aqi"`
	Category      Category  `json:"category"`
	Color         string    `json:"color"`
	// OutOfScale is set when the concentration exceeded the top breakpoint
	// and AQI was clamped to the top of the table.
	OutOfScale bool `json:"out_of_scale"`
}

// Calculator converts concentrations to AQI values using a breakpoint table.
type Calculator struct {
	table *Table
}

// NewCalculator creates a calculator; a nil table selects DefaultTable.
func NewCalculator(table *Table) *Calculator {
	if table == nil {
		table = DefaultTable()
	}
	return &Calculator{table: table}
}

// Compute returns the AQI for a concentration of the given pollutant.
func (c *Calculator) Compute(p Pollutant, concentration float64) (Result, error) {
	bp, ok := c.table.entries[p]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedPollutant, p)
	}
	if math.IsNaN(concentration) || math.IsInf(concentration, 0) || concentration < 0 {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidConcentration, concentration)
	}

	conc := truncate(concentration, bp.Precision)
	top := bp.Segments[len(bp.Segments)-1]
	if conc > top.CHigh {
		return newResult(p, conc, top.AQIHigh, true), nil
	}

	for _, s := range bp.Segments {
		if conc <= s.CHigh {
			return newResult(p, conc, interpolate(s, conc), false), nil
		}
	}

	// unreachable: conc <= top.CHigh matches the last segment at the latest
	return newResult(p, conc, top.AQIHigh, true), nil
}

// ComputeReading is Compute applied to a reading.
func (c *Calculator) ComputeReading(r Reading) (Result, error) {
	return c.Compute(r.Pollutant, r.Concentration)
}

// Overall returns the dominant result, the reading with the highest AQI.
// Readings that fail to compute are reported as an error.
func (c *Calculator) Overall(readings []Reading) (Result, error) {
	if len(readings) == 0 {
		return Result{}, fmt.Errorf("no readings to compute overall AQI")
	}

	var best Result
	for i, r := range readings {
		res, err := c.ComputeReading(r)
		if err != nil {
			return Result{}, fmt.Errorf("reading %d: %w", i, err)
		}
		if i == 0 || res.AQI > best.AQI {
			best = res
		}
	}
	return best, nil
}

func newResult(p Pollutant, conc float64, aqi int, outOfScale bool) Result {
	category := CategoryFor(aqi)
	return Result{
		Pollutant:     p,
		Concentration: conc,
		AQI:           aqi,
		Category:      category,
		Color:         category.Color(),
		OutOfScale:    outOfScale,
	}
}

func interpolate(s Segment, conc float64) int {
	if conc <= s.CLow {
		return s.AQILow
	}
	if conc >= s.CHigh {
		return s.AQIHigh
	}
	v := float64(s.AQIHigh-s.AQILow)/(s.CHigh-s.CLow)*(conc-s.CLow) + float64(s.AQILow)
	return int(math.Floor(v + 0.5))
}

// truncate drops digits beyond precision; the epsilon absorbs binary
// representation error such as 12.1*10 = 120.99999...
func truncate(v float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	return math.Floor(v*scale+1e-9) / scale
}
