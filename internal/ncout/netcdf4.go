package ncout

import (
	"fmt"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/i474232898/precip-subset/internal/grid"
)

// writeNetCDF4 writes s to path as HDF5-based NetCDF-4. The writer has no
// unlimited dimensions, so time is stored with a fixed length. It also rejects
// reserved attribute names such as _FillValue; missing_value carries the fill.
func writeNetCDF4(path string, s *grid.Series, meta grid.Metadata) error {
	w, err := netcdf.OpenWriter(path, netcdf.KindHDF5)
	if err != nil {
		return err
	}
	closed := false
	defer func() {
		if !closed {
			_ = w.Close()
		}
	}()

	global, err := orderedMap(globalAttributes(meta))
	if err != nil {
		return err
	}
	if err := w.AddAttributes(global); err != nil {
		return fmt.Errorf("global attributes: %w", err)
	}

	values := map[string]any{
		grid.VarTime:      grid.Float32s(s.Times),
		grid.VarLatitude:  grid.Float32s(s.Index.Lats),
		grid.VarLongitude: grid.Float32s(s.Index.Lons),
		grid.VarPrecip:    s.Cube(),
	}
	for _, vs := range variableSpecs(meta) {
		attrs, err := orderedMap(withoutReserved(vs.attrs))
		if err != nil {
			return err
		}
		err = w.AddVar(vs.name, api.Variable{
			Values:     values[vs.name],
			Dimensions: vs.dims,
			Attributes: attrs,
		})
		if err != nil {
			return fmt.Errorf("variable %q: %w", vs.name, err)
		}
	}

	closed = true
	return w.Close()
}

func orderedMap(attrs []attribute) (*util.OrderedMap, error) {
	keys := make([]string, 0, len(attrs))
	values := make(map[string]any, len(attrs))
	for _, a := range attrs {
		keys = append(keys, a.name)
		values[a.name] = a.value
	}
	return util.NewOrderedMap(keys, values)
}

// withoutReserved drops attributes whose names start with an underscore.
func withoutReserved(attrs []attribute) []attribute {
	out := make([]attribute, 0, len(attrs))
	for _, a := range attrs {
		if strings.HasPrefix(a.name, "_") {
			continue
		}
		out = append(out, a)
	}
	return out
}
