package grid

import "fmt"

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func widen[T number](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// toFloat64s converts a one-dimensional numeric variable to []float64.
func toFloat64s(v any) ([]float64, error) {
	switch s := v.(type) {
	case []float64:
		return append([]float64(nil), s...), nil
	case []float32:
		return widen(s), nil
	case []int8:
		return widen(s), nil
	case []int16:
		return widen(s), nil
	case []int32:
		return widen(s), nil
	case []int64:
		return widen(s), nil
	case []uint8:
		return widen(s), nil
	case []uint16:
		return widen(s), nil
	case []uint32:
		return widen(s), nil
	case []uint64:
		return widen(s), nil
	}
	return nil, fmt.Errorf("%w: %T", errUnsupportedType, v)
}

// Float32s narrows values to the 32-bit element type used by the output.
func Float32s(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
