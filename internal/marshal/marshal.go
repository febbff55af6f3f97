// Package marshal converts native fixed-layout structures to and from the
// generic value sequences exchanged with guest code.
//
// Every crossing is checked: a sequence must have exactly the structure's
// arity and every element must be numeric. Applying a sequence to a native
// structure is all-or-nothing.
package marshal

import (
	"math"
	"strconv"
	"strings"

	"github.com/dshills/xplua/internal/xplm"
)

// CameraPositionArity is the number of values in a generic camera position:
// x, y, z, pitch, heading, roll, zoom.
const CameraPositionArity = 7

// CameraPositionToGeneric flattens a camera position in field order.
func CameraPositionToGeneric(p xplm.CameraPosition) []float64 {
	return []float64{
		float64(p.X),
		float64(p.Y),
		float64(p.Z),
		float64(p.Pitch),
		float64(p.Heading),
		float64(p.Roll),
		float64(p.Zoom),
	}
}

// CameraPositionFromGeneric builds a camera position from a generic sequence.
func CameraPositionFromGeneric(vals []any) (xplm.CameraPosition, error) {
	nums, err := Floats(vals, CameraPositionArity)
	if err != nil {
		return xplm.CameraPosition{}, err
	}
	return xplm.CameraPosition{
		X:       float32(nums[0]),
		Y:       float32(nums[1]),
		Z:       float32(nums[2]),
		Pitch:   float32(nums[3]),
		Heading: float32(nums[4]),
		Roll:    float32(nums[5]),
		Zoom:    float32(nums[6]),
	}, nil
}

// ApplyCameraPosition overwrites dst with vals. On error dst is untouched.
func ApplyCameraPosition(dst *xplm.CameraPosition, vals []any) error {
	p, err := CameraPositionFromGeneric(vals)
	if err != nil {
		return err
	}
	*dst = p
	return nil
}

// Floats converts exactly want values to float64.
func Floats(vals []any, want int) ([]float64, error) {
	if len(vals) != want {
		return nil, &ArityError{Want: want, Got: len(vals)}
	}
	out := make([]float64, want)
	for i, v := range vals {
		f, ok := toFloat(v)
		if !ok {
			return nil, &ConversionError{Index: i, Value: v, Target: "number"}
		}
		out[i] = f
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Int coerces a guest return value to a native integer return code.
// Numbers truncate toward zero, booleans map to 0 and 1, and strings must
// hold a base-10 integer. The result must fit a native C int.
func Int(v any) (int, error) {
	switch n := v.(type) {
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil || i < math.MinInt32 || i > math.MaxInt32 {
			return 0, &ConversionError{Index: -1, Value: v, Target: "integer"}
		}
		return i, nil
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || f <= math.MinInt32-1 || f >= math.MaxInt32+1 {
		return 0, &ConversionError{Index: -1, Value: v, Target: "integer"}
	}
	return int(f), nil
}
