package indicators

import (
	"encoding/json"
	"math"
	"sort"
)

// Status marks whether an indicator value could be computed.
type Status string

const (
	StatusOK          Status = "ok"
	StatusUnavailable Status = "unavailable"
)

// Flags attached to computed values.
const (
	// FlagReducedCoverage marks a value computed over a shorter window than
	// the indicator nominally uses.
	FlagReducedCoverage = "reduced_coverage"
	// FlagPivotFallback marks a support/resistance level taken from classic
	// pivot points because too few swing extrema were found.
	FlagPivotFallback = "pivot_fallback"
)

// Value is one named indicator reading.
type Value struct {
	Value  float64
	Status Status
	Reason string
	Flags  []string
}

// OK returns an available value. Non-finite inputs are reported as
// unavailable so that no NaN ever reaches a report.
func OK(v float64, flags ...string) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Unavailable("non-finite result")
	}
	return Value{Value: v, Status: StatusOK, Flags: flags}
}

// Unavailable returns a placeholder carrying the reason it is missing.
func Unavailable(reason string) Value {
	return Value{Status: StatusUnavailable, Reason: reason}
}

// Available reports whether the value was computed.
func (v Value) Available() bool {
	return v.Status == StatusOK
}

// HasFlag reports whether flag is set.
func (v Value) HasFlag(flag string) bool {
	for _, f := range v.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

type valueJSON struct {
	Value  *float64 `json:"value"`
	Status Status   `json:"status"`
	Reason string   `json:"reason,omitempty"`
	Flags  []string `json:"flags,omitempty"`
}

// MarshalJSON encodes unavailable values with a null value and an explicit
// status, never as a bare zero.
func (v Value) MarshalJSON() ([]byte, error) {
	out := valueJSON{Status: v.Status, Reason: v.Reason, Flags: v.Flags}
	if v.Status == StatusOK {
		val := v.Value
		out.Value = &val
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a Value written by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var in valueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*v = Value{Status: in.Status, Reason: in.Reason, Flags: in.Flags}
	if in.Value != nil {
		v.Value = *in.Value
	}
	if v.Status == "" {
		if in.Value != nil {
			v.Status = StatusOK
		} else {
			v.Status = StatusUnavailable
		}
	}
	return nil
}

// Set maps indicator names to readings.
type Set map[string]Value

// Get returns the value of name and whether it is available.
func (s Set) Get(name string) (float64, bool) {
	v, ok := s[name]
	if !ok || !v.Available() {
		return 0, false
	}
	return v.Value, true
}

// Lookup returns the entry for name, or an unavailable placeholder if the
// engine never produced it.
func (s Set) Lookup(name string) Value {
	if v, ok := s[name]; ok {
		return v
	}
	return Unavailable("not computed")
}

// Names returns the indicator names in lexical order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnavailableNames returns the names of unavailable indicators in lexical order.
func (s Set) UnavailableNames() []string {
	var names []string
	for _, name := range s.Names() {
		if !s[name].Available() {
			names = append(names, name)
		}
	}
	return names
}

func (s Set) merge(other Set) {
	for k, v := range other {
		s[k] = v
	}
}
