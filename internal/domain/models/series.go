package models

import (
	"sort"
	"time"
)

// PriceObservation is one daily close. Date is normalized to UTC midnight.
type PriceObservation struct {
	Date  time.Time `json:"date"`
	Close NullFloat `json:"close"`
}

// Series is an ordered price history for one index.
type Series struct {
	Name         string             `json:"name"`
	Observations []PriceObservation `json:"observations"`
	DroppedRows  int                `json:"dropped_rows"` // rows whose date could not be parsed
}

// SortByDate orders observations ascending; rows sharing a date keep their input order.
func (s *Series) SortByDate() {
	sort.SliceStable(s.Observations, func(i, j int) bool {
		return s.Observations[i].Date.Before(s.Observations[j].Date)
	})
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Observations) }

// DateOnly truncates t to its calendar day in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
