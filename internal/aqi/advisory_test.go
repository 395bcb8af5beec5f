package aqi

import (
	"errors"
	"strings"
	"testing"
)

func TestAdvise(t *testing.T) {
	table := DefaultAdvisories()

	for i, c := range Categories {
		adv, err := table.Advise(c)
		if err != nil {
			t.Fatalf("Advise(%v) error = %v", c, err)
		}
		if adv.Category != c {
			t.Errorf("Advise(%v) category = %v", c, adv.Category)
		}
		if adv.Tier != i+1 {
			t.Errorf("Advise(%v) tier = %d, want %d", c, adv.Tier, i+1)
		}
		if adv.General == "" || adv.Sensitive == "" {
			t.Errorf("Advise(%v) has empty text: %+v", c, adv)
		}
	}

	adv, _ := table.Advise(Hazardous)
	if !strings.Contains(adv.General, "emergency") {
		t.Errorf("Advise(Hazardous) general = %q", adv.General)
	}
}

func TestAdvise_UnknownCategory(t *testing.T) {
	table := DefaultAdvisories()

	for _, c := range []Category{-1, 6, 42} {
		if _, err := table.Advise(c); !errors.Is(err, ErrUnknownCategory) {
			t.Errorf("Advise(%d) error = %v, want %v", int(c), err, ErrUnknownCategory)
		}
	}
}

func TestAdvise_FromCalculator(t *testing.T) {
	calc := NewCalculator(nil)
	table := DefaultAdvisories()

	res, err := calc.Compute(PM25, 35.5)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	adv, err := table.Advise(res.Category)
	if err != nil {
		t.Fatalf("Advise() error = %v", err)
	}
	if adv.Tier != 3 {
		t.Errorf("Advise() tier = %d, want 3", adv.Tier)
	}

	again, _ := table.Advise(res.Category)
	if again != adv {
		t.Errorf("Advise() = %+v, want %+v", again, adv)
	}
}

func TestParseAdvisories(t *testing.T) {
	full := `Good: {general: "fine", sensitive: "go outside"}
Moderate: {general: "ok", sensitive: "mostly fine"}
Unhealthy for Sensitive Groups: {general: "careful", sensitive: "limit"}
Unhealthy: {general: "bad", sensitive: "avoid"}
Very Unhealthy: {general: "very bad", sensitive: "stay in"}
Hazardous: {general: "emergency", sensitive: "stay in"}
`
	table, err := ParseAdvisories([]byte(full))
	if err != nil {
		t.Fatalf("ParseAdvisories() error = %v", err)
	}
	adv, _ := table.Advise(Moderate)
	if adv.General != "ok" {
		t.Errorf("Advise(Moderate) general = %q, want %q", adv.General, "ok")
	}

	missing := `Good: {general: "fine", sensitive: "go outside"}`
	if _, err := ParseAdvisories([]byte(missing)); err == nil {
		t.Error("ParseAdvisories() expected error for missing tiers, got nil")
	}

	unknown := full + "Apocalyptic: {general: \"run\"}\n"
	if _, err := ParseAdvisories([]byte(unknown)); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("ParseAdvisories() error = %v, want %v", err, ErrUnknownCategory)
	}
}
