package models

import (
	"encoding/json"
	"math"
	"strconv"
)

// NullFloat is a float64 that may be undefined. A valid NullFloat never holds NaN or Inf.
type NullFloat struct {
	Value float64
	Valid bool
}

// Some returns a defined value, or a missing one when v is NaN or infinite.
func Some(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{Value: v, Valid: true}
}

// Missing returns an undefined value.
func Missing() NullFloat { return NullFloat{} }

// Or returns the value if defined, def otherwise.
func (n NullFloat) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

// String formats the value for tabular export; missing values render empty.
func (n NullFloat) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

func (n *NullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Some(v)
	return nil
}
