package regime

import (
	"errors"
	"time"

	"FinRegime/internal/domain/models"
	domsvc "FinRegime/internal/domain/service"
	"FinRegime/internal/services/calendar"
	"FinRegime/pkg/util"
)

// Default buffer lengths around each crisis, in calendar months.
const (
	DefaultPreCrisisMonths  = 6
	DefaultPostCrisisMonths = 6
)

// ErrNegativeBuffer is returned when a pre or post crisis buffer is negative.
var ErrNegativeBuffer = errors.New("crisis buffer months must be >= 0")

// Labeler overlays buffered crisis intervals on a featured series.
//
// Intervals are applied in declaration order and, within an interval, in the
// order crisis, pre-crisis, post-crisis. Every application overwrites the
// regime and crisis name of the dates it matches, so for overlapping windows
// the last applied one wins. The crisis and pre-crisis flags are only ever
// set, never cleared.
type Labeler struct {
	cal        *calendar.Calendar
	preMonths  int
	postMonths int
}

// NewLabeler builds a labeler over cal with the given buffers.
func NewLabeler(cal *calendar.Calendar, preMonths, postMonths int) (*Labeler, error) {
	if preMonths < 0 || postMonths < 0 {
		return nil, ErrNegativeBuffer
	}
	return &Labeler{cal: cal, preMonths: preMonths, postMonths: postMonths}, nil
}

// Calendar returns the calendar the labeler reads.
func (l *Labeler) Calendar() *calendar.Calendar { return l.cal }

// window is one crisis interval with its buffer boundaries resolved.
type window struct {
	name     string
	preStart time.Time
	start    time.Time
	end      time.Time
	postEnd  time.Time
}

func (l *Labeler) windows() []window {
	ivs := l.cal.Intervals()
	out := make([]window, 0, len(ivs))
	for _, iv := range ivs {
		out = append(out, window{
			name:     iv.Name,
			preStart: util.AddMonths(iv.Start, -l.preMonths),
			start:    iv.Start,
			end:      iv.End,
			postEnd:  util.AddMonths(iv.End, l.postMonths),
		})
	}
	return out
}

// Label returns a new labeled series; s is left untouched.
func (l *Labeler) Label(s models.FeaturedSeries) models.LabeledSeries {
	out := models.LabeledSeries{
		Name:             s.Name,
		PreCrisisMonths:  l.preMonths,
		PostCrisisMonths: l.postMonths,
		MissingReturns:   s.MissingReturns,
		Observations:     make([]models.LabeledObservation, len(s.Observations)),
	}
	days := make([]time.Time, len(s.Observations))
	for i, o := range s.Observations {
		out.Observations[i] = models.LabeledObservation{
			FeaturedObservation: o,
			Regime:              models.RegimeNormal,
		}
		days[i] = models.DateOnly(o.Date)
	}

	for _, w := range l.windows() {
		name := w.name
		for i, d := range days {
			obs := &out.Observations[i]
			switch {
			case inClosed(d, w.start, w.end):
				obs.Regime = models.RegimeCrisis
				obs.CrisisName = &name
				obs.IsCrisis = true
			case !d.Before(w.preStart) && d.Before(w.start):
				obs.Regime = models.RegimePreCrisis
				obs.CrisisName = &name
				obs.IsPreCrisis = true
			case d.After(w.end) && !d.After(w.postEnd):
				obs.Regime = models.RegimePostCrisis
				obs.CrisisName = &name
			}
		}
	}

	for i := range out.Observations {
		obs := &out.Observations[i]
		obs.IsHighRisk = obs.IsCrisis || obs.IsPreCrisis
	}
	return out
}

func inClosed(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}

var _ domsvc.RegimeLabeler = (*Labeler)(nil)
