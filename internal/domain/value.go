package domain

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// Value is one daily observation. The zero Value is Missing.
type Value struct {
	v     float64
	valid bool
}

// Missing is the absent observation.
var Missing = Value{}

// Present wraps a measured number. NaN and ±Inf are not measurements and
// become Missing.
func Present(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Missing
	}
	return Value{v: f, valid: true}
}

// Float returns the number and whether it is present.
func (v Value) Float() (float64, bool) {
	return v.v, v.valid
}

// IsMissing reports whether the observation is absent.
func (v Value) IsMissing() bool {
	return !v.valid
}

func (v Value) String() string {
	if !v.valid {
		return "missing"
	}
	return strconv.FormatFloat(v.v, 'g', -1, 64)
}

// MarshalJSON encodes Missing as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.v, 'g', -1, 64), nil
}

// UnmarshalJSON decodes null as Missing.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Missing
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("decode value %q: %w", data, err)
	}
	*v = Present(f)
	return nil
}

// Floats converts numbers to Values, treating NaN as Missing.
func Floats(fs ...float64) []Value {
	out := make([]Value, len(fs))
	for i, f := range fs {
		out[i] = Present(f)
	}
	return out
}

// MissingValues returns n Missing values.
func MissingValues(n int) []Value {
	return make([]Value, n)
}

// presentFloats appends the present numbers in vs to dst.
func presentFloats(dst []float64, vs []Value) []float64 {
	for _, v := range vs {
		if v.valid {
			dst = append(dst, v.v)
		}
	}
	return dst
}

// HasPresent reports whether any value is present.
func HasPresent(vs []Value) bool {
	for _, v := range vs {
		if v.valid {
			return true
		}
	}
	return false
}
