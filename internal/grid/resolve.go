package grid

import "fmt"

// ResolveIndex selects every latitude and longitude position whose value lies
// inside box (inclusive). Indices are returned in ascending order, so the
// subset keeps the ordering of the source arrays. An empty selection on either
// axis is a configuration error.
func ResolveIndex(lats, lons []float64, box BoundingBox) (*SpatialIndex, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}

	latIdx := selectRange(lats, box.LatMin, box.LatMax)
	lonIdx := selectRange(lons, box.LonMin, box.LonMax)
	if len(latIdx) == 0 || len(lonIdx) == 0 {
		return nil, fmt.Errorf("%w: %s yields %d latitudes and %d longitudes",
			ErrEmptySelection, box, len(latIdx), len(lonIdx))
	}

	si := &SpatialIndex{
		LatIndices: latIdx,
		LonIndices: lonIdx,
		Lats:       pick(lats, latIdx),
		Lons:       pick(lons, lonIdx),
		GridLats:   append([]float64(nil), lats...),
		GridLons:   append([]float64(nil), lons...),
	}
	return si, nil
}

func selectRange(values []float64, lo, hi float64) []int {
	var idx []int
	for i, v := range values {
		if v >= lo && v <= hi {
			idx = append(idx, i)
		}
	}
	return idx
}

func pick(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}

// CheckGrid verifies that lats and lons describe the same grid the index was
// resolved on.
func (si *SpatialIndex) CheckGrid(lats, lons []float64) error {
	if len(lats) != len(si.GridLats) || len(lons) != len(si.GridLons) {
		return fmt.Errorf("%w: grid is %dx%d, reference grid is %dx%d",
			ErrDimensionMismatch, len(lats), len(lons), len(si.GridLats), len(si.GridLons))
	}
	for i := range lats {
		if lats[i] != si.GridLats[i] {
			return fmt.Errorf("%w: latitude[%d] is %v, reference is %v",
				ErrDimensionMismatch, i, lats[i], si.GridLats[i])
		}
	}
	for i := range lons {
		if lons[i] != si.GridLons[i] {
			return fmt.Errorf("%w: longitude[%d] is %v, reference is %v",
				ErrDimensionMismatch, i, lons[i], si.GridLons[i])
		}
	}
	return nil
}
