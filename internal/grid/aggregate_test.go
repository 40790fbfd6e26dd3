package grid

import (
	"errors"
	"reflect"
	"testing"
)

func twoByTwo(t *testing.T) *SpatialIndex {
	t.Helper()
	si, err := ResolveIndex([]float64{0, 1}, []float64{0, 1}, BoundingBox{LatMin: 0, LatMax: 1, LonMin: 0, LonMax: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return si
}

func TestSeriesConcatenatesInOrder(t *testing.T) {
	si := twoByTwo(t)

	a := FileSlice{
		Path:   "chirps-v2.0.1981.days_p05.nc",
		Times:  []float64{0, 1, 2},
		Precip: []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	}
	b := FileSlice{
		Path:   "chirps-v2.0.1982.days_p05.nc",
		Times:  []float64{3, 4},
		Precip: []float32{13, 14, 15, 16, 17, 18, 19, 20},
	}

	s, err := AggregateSlices(si, []FileSlice{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := s.Shape(), [3]int{5, 2, 2}; got != want {
		t.Fatalf("expected shape %v, got %v", want, got)
	}
	if want := []float64{0, 1, 2, 3, 4}; !reflect.DeepEqual(s.Times, want) {
		t.Fatalf("expected times %v, got %v", want, s.Times)
	}
	want := append(append([]float32(nil), a.Precip...), b.Precip...)
	if !reflect.DeepEqual(s.Precip, want) {
		t.Fatalf("expected precip %v, got %v", want, s.Precip)
	}

	cube := s.Cube()
	if got := cube[3][1][0]; got != 15 {
		t.Fatalf("expected cube[3][1][0] = 15, got %v", got)
	}
	if got := cube[4][1][1]; got != 20 {
		t.Fatalf("expected cube[4][1][1] = 20, got %v", got)
	}
}

func TestSeriesLengthInvariant(t *testing.T) {
	si := twoByTwo(t)

	for n := 1; n <= 6; n++ {
		s := NewSeries(si)
		total := 0
		for k := 0; k < n; k++ {
			steps := k%3 + 1
			fs := FileSlice{
				Times:  make([]float64, steps),
				Precip: make([]float32, steps*si.Cells()),
			}
			if err := s.Append(fs); err != nil {
				t.Fatalf("n=%d: unexpected error: %v", n, err)
			}
			total += steps
		}
		if s.Steps() != total {
			t.Fatalf("n=%d: expected %d steps, got %d", n, total, s.Steps())
		}
		if len(s.Precip) != total*si.Cells() {
			t.Fatalf("n=%d: expected %d values, got %d", n, total*si.Cells(), len(s.Precip))
		}
	}
}

func TestSeriesRejectsWrongLength(t *testing.T) {
	s := NewSeries(twoByTwo(t))

	err := s.Append(FileSlice{Path: "a.nc", Times: []float64{0}, Precip: []float32{1, 2, 3}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if s.Steps() != 0 {
		t.Fatalf("expected series to stay empty, got %d steps", s.Steps())
	}
}

func TestSeriesRejectsOutOfOrderFiles(t *testing.T) {
	s := NewSeries(twoByTwo(t))

	later := FileSlice{Path: "/data/chirps-v2.0.1982.days_p05.nc", Times: []float64{0}, Precip: make([]float32, 4)}
	earlier := FileSlice{Path: "/data/chirps-v2.0.1981.days_p05.nc", Times: []float64{1}, Precip: make([]float32, 4)}

	if err := s.Append(later); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Append(earlier); !errors.Is(err, errOutOfOrder) {
		t.Fatalf("expected out of order error, got %v", err)
	}
}

func TestSeriesKeepsOverlappingTimes(t *testing.T) {
	s := NewSeries(twoByTwo(t))

	for i, path := range []string{"a.nc", "b.nc"} {
		fs := FileSlice{Path: path, Times: []float64{10, 11}, Precip: make([]float32, 8)}
		if err := s.Append(fs); err != nil {
			t.Fatalf("append %d: unexpected error: %v", i, err)
		}
	}
	if want := []float64{10, 11, 10, 11}; !reflect.DeepEqual(s.Times, want) {
		t.Fatalf("expected times %v, got %v", want, s.Times)
	}
}
