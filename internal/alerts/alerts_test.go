package alerts

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"airwatch/internal/aqi"
	"airwatch/internal/logging"

	"github.com/segmentio/kafka-go"
)

func result(p aqi.Pollutant, value int) aqi.Result {
	c := aqi.CategoryFor(value)
	return aqi.Result{Pollutant: p, AQI: value, Category: c, Color: c.Color()}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name         string
		aqi          int
		wantAlert    bool
		wantSeverity string
	}{
		{"below threshold", 149, false, ""},
		{"at threshold", 150, true, "low"},
		{"unhealthy", 160, true, "medium"},
		{"very unhealthy", 250, true, "high"},
		{"hazardous", 450, true, "critical"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluator(DefaultThreshold, time.Hour, nil)
			a, ok := e.Evaluate("Delhi", result(aqi.PM25, tt.aqi))
			if ok != tt.wantAlert {
				t.Fatalf("Evaluate() ok = %v, want %v", ok, tt.wantAlert)
			}
			if !ok {
				return
			}
			if a.Severity != tt.wantSeverity {
				t.Errorf("Evaluate().Severity = %v, want %v", a.Severity, tt.wantSeverity)
			}
			if a.ID == "" || a.Advice == "" {
				t.Errorf("Evaluate() = %+v, want id and advice set", a)
			}
			if !strings.Contains(a.Message, "Delhi") || !strings.Contains(a.Message, "PM2.5") {
				t.Errorf("Evaluate().Message = %q", a.Message)
			}
		})
	}
}

func TestEvaluate_Cooldown(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	e := NewEvaluator(DefaultThreshold, time.Hour, nil)
	e.now = func() time.Time { return now }

	first, ok := e.Evaluate("Delhi", result(aqi.PM25, 160))
	if !ok {
		t.Fatal("Evaluate() first alert suppressed")
	}
	e.Commit(first)

	now = now.Add(10 * time.Minute)
	if _, ok := e.Evaluate("Delhi", result(aqi.PM25, 170)); ok {
		t.Error("Evaluate() same category within cooldown was not suppressed")
	}
	if _, ok := e.Evaluate("Delhi", result(aqi.O3, 170)); !ok {
		t.Error("Evaluate() other pollutant was suppressed")
	}
	if _, ok := e.Evaluate("Mumbai", result(aqi.PM25, 170)); !ok {
		t.Error("Evaluate() other location was suppressed")
	}

	worse, ok := e.Evaluate("Delhi", result(aqi.PM25, 220))
	if !ok {
		t.Fatal("Evaluate() escalation was suppressed")
	}
	if worse.ID == first.ID {
		t.Error("Evaluate() reused alert id")
	}
	e.Commit(worse)

	now = now.Add(2 * time.Hour)
	if _, ok := e.Evaluate("Delhi", result(aqi.PM25, 220)); !ok {
		t.Error("Evaluate() after cooldown was suppressed")
	}
}

func TestEvaluate_UncommittedDoesNotSuppress(t *testing.T) {
	e := NewEvaluator(DefaultThreshold, time.Hour, nil)

	if _, ok := e.Evaluate("Paris", result(aqi.PM25, 180)); !ok {
		t.Fatal("Evaluate() first alert suppressed")
	}
	if _, ok := e.Evaluate("Paris", result(aqi.PM25, 180)); !ok {
		t.Error("Evaluate() suppressed after an alert that was never committed")
	}
}

type failingPublisher struct {
	fail  bool
	calls int
}

func (p *failingPublisher) Publish(context.Context, *Alert) error {
	p.calls++
	if p.fail {
		return errors.New("broker unavailable")
	}
	return nil
}

func (p *failingPublisher) Close() error { return nil }

func TestRaise(t *testing.T) {
	ctx := context.Background()
	e := NewEvaluator(DefaultThreshold, time.Hour, nil)
	pub := &failingPublisher{fail: true}

	if a, err := e.Raise(ctx, pub, "Paris", result(aqi.PM25, 180)); err == nil || a != nil {
		t.Fatalf("Raise() = %v, %v, want publish error", a, err)
	}

	pub.fail = false
	a, err := e.Raise(ctx, pub, "Paris", result(aqi.PM25, 180))
	if err != nil || a == nil {
		t.Fatalf("Raise() after failed publish = %v, %v, want alert", a, err)
	}

	a, err = e.Raise(ctx, pub, "Paris", result(aqi.PM25, 185))
	if err != nil || a != nil {
		t.Errorf("Raise() within cooldown = %v, %v, want nil, nil", a, err)
	}
	if a, err := e.Raise(ctx, pub, "Paris", result(aqi.PM25, 40)); err != nil || a != nil {
		t.Errorf("Raise() below threshold = %v, %v, want nil, nil", a, err)
	}
	if pub.calls != 2 {
		t.Errorf("Raise() published %d times, want 2", pub.calls)
	}
}

func TestSeverityFor(t *testing.T) {
	want := map[aqi.Category]string{
		aqi.Good:               "info",
		aqi.Moderate:           "info",
		aqi.UnhealthySensitive: "low",
		aqi.Unhealthy:          "medium",
		aqi.VeryUnhealthy:      "high",
		aqi.Hazardous:          "critical",
	}
	for c, w := range want {
		if got := SeverityFor(c); got != w {
			t.Errorf("SeverityFor(%v) = %v, want %v", c, got, w)
		}
	}
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(logging.New(&buf, "info", true))

	e := NewEvaluator(DefaultThreshold, time.Hour, nil)
	a, _ := e.Evaluate("Delhi", result(aqi.PM25, 310))

	if err := p.Publish(context.Background(), a); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"location":"Delhi"`) || !strings.Contains(out, `"severity":"critical"`) {
		t.Errorf("Publish() logged %s", out)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNewKafkaPublisher(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "airwatch.alerts", 5*time.Second)
	defer p.Close()

	if p.writer.Topic != "airwatch.alerts" {
		t.Errorf("writer.Topic = %v, want airwatch.alerts", p.writer.Topic)
	}
	if _, ok := p.writer.Balancer.(*kafka.Hash); !ok {
		t.Errorf("writer.Balancer = %T, want *kafka.Hash", p.writer.Balancer)
	}
	if p.writer.RequiredAcks != kafka.RequireOne {
		t.Errorf("writer.RequiredAcks = %v, want RequireOne", p.writer.RequiredAcks)
	}
}
