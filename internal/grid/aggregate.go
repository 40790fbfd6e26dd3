package grid

import (
	"errors"
	"fmt"
	"path/filepath"
)

var errOutOfOrder = errors.New("input files must be appended in lexicographic filename order")

// Series is the combined, time-concatenated crop of every input file.
//
// Slices are appended in lexicographic filename order; the archive names files
// so that this is also chronological order. Overlaps and gaps between files
// are kept as they are.
type Series struct {
	Index  *SpatialIndex
	Times  []float64
	Precip []float32 // (time, latitude, longitude), row-major
	Files  []string
}

// NewSeries returns an empty series over the window described by si.
func NewSeries(si *SpatialIndex) *Series {
	return &Series{Index: si}
}

// Append concatenates fs onto the end of the series.
func (s *Series) Append(fs FileSlice) error {
	if want := fs.Steps() * s.Index.Cells(); len(fs.Precip) != want {
		return fmt.Errorf("%w: %s has %d precipitation values, want %d",
			ErrDimensionMismatch, fs.Path, len(fs.Precip), want)
	}
	if n := len(s.Files); n > 0 && fs.Path != "" && s.Files[n-1] != "" &&
		filepath.Base(fs.Path) < filepath.Base(s.Files[n-1]) {
		return fmt.Errorf("%w: %s after %s", errOutOfOrder, fs.Path, s.Files[n-1])
	}

	s.Times = append(s.Times, fs.Times...)
	s.Precip = append(s.Precip, fs.Precip...)
	s.Files = append(s.Files, fs.Path)
	return nil
}

// Steps returns the combined time length.
func (s *Series) Steps() int {
	return len(s.Times)
}

// Shape returns the (time, latitude, longitude) shape of the series.
func (s *Series) Shape() [3]int {
	nLat, nLon := s.Index.Shape()
	return [3]int{len(s.Times), nLat, nLon}
}

// Cube returns the precipitation as a nested [time][lat][lon] array sharing
// storage with s.Precip.
func (s *Series) Cube() [][][]float32 {
	nLat, nLon := s.Index.Shape()
	cube := make([][][]float32, len(s.Times))
	for t := range cube {
		cube[t] = make([][]float32, nLat)
		for i := range cube[t] {
			off := (t*nLat + i) * nLon
			cube[t][i] = s.Precip[off : off+nLon : off+nLon]
		}
	}
	return cube
}

// AggregateSlices concatenates slices, in order, into a new series.
func AggregateSlices(si *SpatialIndex, slices []FileSlice) (*Series, error) {
	s := NewSeries(si)
	for _, fs := range slices {
		if err := s.Append(fs); err != nil {
			return nil, err
		}
	}
	return s, nil
}
