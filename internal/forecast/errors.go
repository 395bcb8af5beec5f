package forecast

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrDataGapTooLarge     = errors.New("data gap too large")
	ErrInsufficientData    = errors.New("insufficient training data")
	ErrModelNotTrained     = errors.New("model not trained")
	ErrInvalidHorizon      = errors.New("invalid horizon")
	ErrInvalidSeries       = errors.New("invalid series")
)

// StepError reports the forecast step that failed during prediction.
type StepError struct {
	Step int
	At   time.Time
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("forecast step %d at %s: %v", e.Step, e.At.Format(time.RFC3339), e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
