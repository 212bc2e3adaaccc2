package chart

import (
	"slices"
	"time"

	"codeberg.org/mutker/sensorchart/internal/errors"
	"codeberg.org/mutker/sensorchart/internal/history"
	"codeberg.org/mutker/sensorchart/internal/measurement"
)

// Settings selects what a view shows. Changing any of them reloads.
type Settings struct {
	SensorID     string
	Variants     []measurement.Variant
	HistoryHours int
	// ShowAll loads the whole history without downsampling.
	ShowAll bool
}

func (s Settings) Validate() error {
	errFactory := errors.New()

	if s.SensorID == "" {
		return errFactory.WithMessage(ErrInvalidSettings, "sensor ID is required")
	}
	if len(s.Variants) == 0 {
		return errFactory.WithMessage(ErrInvalidSettings, "at least one variant is required")
	}
	for _, v := range s.Variants {
		if !v.Valid() {
			return errFactory.WithData(ErrInvalidSettings, v.String())
		}
	}
	return nil
}

// Since returns the start of the history window at now.
func (s Settings) Since(now time.Time) time.Time {
	return history.Since(now, s.HistoryHours, s.ShowAll)
}

func (s Settings) clone() Settings {
	s.Variants = slices.Clone(s.Variants)
	return s
}
