// Package alerts turns high AQI results into alerts and publishes them.
package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"airwatch/internal/aqi"

	"github.com/google/uuid"
)

// DefaultThreshold is the AQI at or above which an alert is raised.
const DefaultThreshold = 150

// Alert is a notification that a location's air quality crossed the threshold.
type Alert struct {
	ID        string        `json:"id"`
	Location  string        `json:"location"`
	Pollutant aqi.Pollutant `json:"pollutant"`
	AQI       int           `json:"aqi"`
	Category  aqi.Category  `json:"category"`
	Severity  string        `json:"severity"`
	Message   string        `json:"message"`
	Advice    string        `json:"advice"`
	Timestamp time.Time     `json:"timestamp"`
}

// Evaluator decides which results raise alerts. Repeated alerts for the same
// location and pollutant are suppressed for the cooldown unless the category
// gets worse.
type Evaluator struct {
	threshold  int
	cooldown   time.Duration
	advisories *aqi.AdvisoryTable

	mu   sync.Mutex
	last map[string]Alert

	now func() time.Time
}

// NewEvaluator creates an evaluator; nil advisories selects the defaults.
func NewEvaluator(threshold int, cooldown time.Duration, advisories *aqi.AdvisoryTable) *Evaluator {
	if advisories == nil {
		advisories = aqi.DefaultAdvisories()
	}
	return &Evaluator{
		threshold:  threshold,
		cooldown:   cooldown,
		advisories: advisories,
		last:       make(map[string]Alert),
		now:        time.Now,
	}
}

// Evaluate returns an alert for r when its AQI is at or above the threshold
// and it is not suppressed. The alert only starts a cooldown once it is
// passed to Commit.
func (e *Evaluator) Evaluate(location string, r aqi.Result) (*Alert, bool) {
	if r.AQI < e.threshold {
		return nil, false
	}

	now := e.now()
	key := location + "|" + string(r.Pollutant)

	e.mu.Lock()
	defer e.mu.Unlock()

	if prev, ok := e.last[key]; ok && now.Sub(prev.Timestamp) < e.cooldown && r.Category <= prev.Category {
		return nil, false
	}

	a := Alert{
		ID:        uuid.NewString(),
		Location:  location,
		Pollutant: r.Pollutant,
		AQI:       r.AQI,
		Category:  r.Category,
		Severity:  SeverityFor(r.Category),
		Message: fmt.Sprintf("%s air quality is %s (AQI %d, %s)",
			location, r.Category, r.AQI, r.Pollutant.DisplayName()),
		Timestamp: now,
	}
	if adv, err := e.advisories.Advise(r.Category); err == nil {
		a.Advice = adv.General
	}
	return &a, true
}

// Commit records a delivered alert so that repeats are suppressed.
func (e *Evaluator) Commit(a *Alert) {
	key := a.Location + "|" + string(a.Pollutant)

	e.mu.Lock()
	defer e.mu.Unlock()
	if prev, ok := e.last[key]; ok && prev.Timestamp.After(a.Timestamp) {
		return
	}
	e.last[key] = *a
}

// Raise evaluates r and publishes the resulting alert. It returns nil and no
// error when nothing is raised. A failed publish is not committed, so the next
// evaluation for the same location and pollutant tries again.
func (e *Evaluator) Raise(ctx context.Context, p Publisher, location string, r aqi.Result) (*Alert, error) {
	a, ok := e.Evaluate(location, r)
	if !ok {
		return nil, nil
	}
	if err := p.Publish(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to publish alert %s: %w", a.ID, err)
	}
	e.Commit(a)
	return a, nil
}

// SeverityFor maps a category to an alert severity.
func SeverityFor(c aqi.Category) string {
	switch c {
	case aqi.Good, aqi.Moderate:
		return "info"
	case aqi.UnhealthySensitive:
		return "low"
	case aqi.Unhealthy:
		return "medium"
	case aqi.VeryUnhealthy:
		return "high"
	default:
		return "critical"
	}
}
