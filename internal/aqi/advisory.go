package aqi

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// HealthAdvisory is the guidance shown for an AQI category.
type HealthAdvisory struct {
	Category  Category `json:"category"`
	Tier      int      `json:"tier"`
	General   string   `json:"general"`
	Sensitive string   `json:"sensitive"`
}

// AdvisoryTable resolves categories to advisories. It is read-only once built.
type AdvisoryTable struct {
	byCategory [len(categoryNames)]HealthAdvisory
}

type advisoryText struct {
	General   string `yaml:"general"`
	Sensitive string `yaml:"sensitive"`
}

var defaultAdvisoryTexts = map[Category]advisoryText{
	Good: {
		General:   "Air quality is satisfactory, and air pollution poses little or no risk.",
		Sensitive: "Enjoy your outdoor activities!",
	},
	Moderate: {
		General:   "Air quality is acceptable. However, there may be a risk for some people.",
		Sensitive: "Unusually sensitive people should consider limiting prolonged outdoor exertion.",
	},
	UnhealthySensitive: {
		General:   "Members of sensitive groups may experience health effects.",
		Sensitive: "People with respiratory or heart disease, children, and older adults should limit prolonged outdoor exertion.",
	},
	Unhealthy: {
		General:   "Some members of the general public may experience health effects.",
		Sensitive: "People with respiratory or heart disease, children, and older adults should avoid prolonged outdoor exertion. Everyone else should limit prolonged outdoor exertion.",
	},
	VeryUnhealthy: {
		General:   "Health alert: The risk of health effects is increased for everyone.",
		Sensitive: "People with respiratory or heart disease, children, and older adults should avoid all outdoor exertion. Everyone else should limit outdoor exertion.",
	},
	Hazardous: {
		General:   "Health warning of emergency conditions: everyone is more likely to be affected.",
		Sensitive: "Everyone should avoid all outdoor exertion.",
	},
}

// DefaultAdvisories returns the built-in advisory texts.
func DefaultAdvisories() *AdvisoryTable {
	t, err := newAdvisoryTable(defaultAdvisoryTexts)
	if err != nil {
		panic("default advisories are incomplete: " + err.Error())
	}
	return t
}

// ParseAdvisories decodes a YAML document keyed by category name. Every
// category must be present.
func ParseAdvisories(data []byte) (*AdvisoryTable, error) {
	var raw map[string]advisoryText
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse advisories: %w", err)
	}

	texts := make(map[Category]advisoryText, len(raw))
	for name, text := range raw {
		c, err := ParseCategory(name)
		if err != nil {
			return nil, err
		}
		texts[c] = text
	}
	return newAdvisoryTable(texts)
}

// LoadAdvisories reads advisory overrides from a YAML file.
func LoadAdvisories(path string) (*AdvisoryTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read advisories file %s: %w", path, err)
	}
	return ParseAdvisories(data)
}

func newAdvisoryTable(texts map[Category]advisoryText) (*AdvisoryTable, error) {
	t := &AdvisoryTable{}
	for _, c := range Categories {
		text, ok := texts[c]
		if !ok || text.General == "" {
			return nil, fmt.Errorf("missing advisory for %q", c)
		}
		t.byCategory[c] = HealthAdvisory{
			Category:  c,
			Tier:      int(c) + 1,
			General:   text.General,
			Sensitive: text.Sensitive,
		}
	}
	return t, nil
}

// Advise returns the advisory for category c.
func (t *AdvisoryTable) Advise(c Category) (HealthAdvisory, error) {
	if !c.Valid() {
		return HealthAdvisory{}, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	return t.byCategory[c], nil
}
