package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"FinRegime/internal/domain/models"
	"FinRegime/pkg/util"
)

// ErrInvalidInterval is returned for calendar entries that cannot be used for labeling.
var ErrInvalidInterval = errors.New("invalid crisis interval")

// IntervalSpec is the textual form of a crisis interval as found in configuration.
type IntervalSpec struct {
	Name  string `yaml:"name" json:"name"`
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// Calendar is an immutable, ordered set of crisis intervals.
// Declaration order is the labeling order.
type Calendar struct {
	intervals []models.CrisisInterval
}

// New validates intervals and builds a calendar. Dates are truncated to the calendar day.
func New(intervals []models.CrisisInterval) (*Calendar, error) {
	seen := make(map[string]struct{}, len(intervals))
	out := make([]models.CrisisInterval, 0, len(intervals))
	for i, iv := range intervals {
		name := strings.TrimSpace(iv.Name)
		switch {
		case name == "":
			return nil, fmt.Errorf("%w: entry %d has no name", ErrInvalidInterval, i)
		case iv.Start.IsZero() || iv.End.IsZero():
			return nil, fmt.Errorf("%w: %s has an empty boundary", ErrInvalidInterval, name)
		}
		start, end := models.DateOnly(iv.Start), models.DateOnly(iv.End)
		if start.After(end) {
			return nil, fmt.Errorf("%w: %s starts %s after it ends %s",
				ErrInvalidInterval, name, start.Format(time.DateOnly), end.Format(time.DateOnly))
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %s", ErrInvalidInterval, name)
		}
		seen[name] = struct{}{}
		out = append(out, models.CrisisInterval{Name: name, Start: start, End: end})
	}
	return &Calendar{intervals: out}, nil
}

// Parse builds a calendar from YYYY-MM-DD specs.
func Parse(specs []IntervalSpec) (*Calendar, error) {
	intervals := make([]models.CrisisInterval, 0, len(specs))
	for i, s := range specs {
		start, err := time.Parse(time.DateOnly, strings.TrimSpace(s.Start))
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d (%s) start %q: %v", ErrInvalidInterval, i, s.Name, s.Start, err)
		}
		end, err := time.Parse(time.DateOnly, strings.TrimSpace(s.End))
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d (%s) end %q: %v", ErrInvalidInterval, i, s.Name, s.End, err)
		}
		intervals = append(intervals, models.CrisisInterval{Name: s.Name, Start: start, End: end})
	}
	return New(intervals)
}

// DefaultSpecs lists the historical crises studied by default.
func DefaultSpecs() []IntervalSpec {
	return []IntervalSpec{
		{Name: "dotcom_bubble", Start: "2000-03-01", End: "2002-10-31"},
		{Name: "global_financial_crisis", Start: "2007-10-01", End: "2009-03-31"},
		{Name: "european_debt_crisis", Start: "2011-07-01", End: "2012-12-31"},
		{Name: "covid_crash", Start: "2020-02-15", End: "2020-04-30"},
	}
}

// Default returns the calendar of DefaultSpecs.
func Default() *Calendar {
	intervals := make([]models.CrisisInterval, 0, 4)
	for _, s := range DefaultSpecs() {
		intervals = append(intervals, models.CrisisInterval{
			Name:  s.Name,
			Start: util.MustParseDate(s.Start),
			End:   util.MustParseDate(s.End),
		})
	}
	c, err := New(intervals)
	if err != nil {
		panic(err)
	}
	return c
}

// Intervals returns a copy of the intervals in declaration order.
func (c *Calendar) Intervals() []models.CrisisInterval {
	if c == nil {
		return nil
	}
	out := make([]models.CrisisInterval, len(c.intervals))
	copy(out, c.intervals)
	return out
}

// Len returns the number of intervals.
func (c *Calendar) Len() int {
	if c == nil {
		return 0
	}
	return len(c.intervals)
}

// Specs renders the calendar back to its textual form.
func (c *Calendar) Specs() []IntervalSpec {
	out := make([]IntervalSpec, 0, c.Len())
	for _, iv := range c.Intervals() {
		out = append(out, IntervalSpec{
			Name:  iv.Name,
			Start: iv.Start.Format(time.DateOnly),
			End:   iv.End.Format(time.DateOnly),
		})
	}
	return out
}
