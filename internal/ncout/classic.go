package ncout

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ctessum/cdf"

	"github.com/i474232898/precip-subset/internal/grid"
)

// writeClassic writes s to f in NetCDF classic format with time as the
// record dimension.
func writeClassic(f *os.File, s *grid.Series, meta grid.Metadata) error {
	nLat, nLon := s.Index.Shape()

	// A zero length marks the record (unlimited) dimension.
	h := cdf.NewHeader(dimensions, []int{0, nLat, nLon})
	for _, vs := range variableSpecs(meta) {
		h.AddVariable(vs.name, vs.dims, []float32{})
		for _, a := range vs.attrs {
			h.AddAttribute(vs.name, a.name, a.value)
		}
	}
	for _, a := range globalAttributes(meta) {
		h.AddAttribute("", a.name, a.value)
	}
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		return fmt.Errorf("header: %v", errs[0])
	}

	nc, err := cdf.Create(f, h)
	if err != nil {
		return fmt.Errorf("header: %w", err)
	}

	values := []struct {
		name string
		data []float32
	}{
		{grid.VarLatitude, grid.Float32s(s.Index.Lats)},
		{grid.VarLongitude, grid.Float32s(s.Index.Lons)},
		{grid.VarTime, grid.Float32s(s.Times)},
		{grid.VarPrecip, s.Precip},
	}
	for _, v := range values {
		if len(v.data) == 0 {
			continue
		}
		// A fixed size variable reports io.EOF once its last element is written.
		n, err := nc.Writer(v.name, nil, nil).Write(v.data)
		if errors.Is(err, io.EOF) && n == len(v.data) {
			err = nil
		}
		if err != nil {
			return fmt.Errorf("variable %q: %w", v.name, err)
		}
		if n != len(v.data) {
			return fmt.Errorf("variable %q: wrote %d of %d values", v.name, n, len(v.data))
		}
	}

	// Create leaves numrecs as STREAMING; record it now that the data is in.
	if err := cdf.UpdateNumRecs(f); err != nil {
		return fmt.Errorf("numrecs: %w", err)
	}
	return nil
}
