package grid

import (
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// Coordinates are the coordinate arrays of one grid file.
type Coordinates struct {
	Lats      []float64
	Lons      []float64
	TimeUnits string
}

// ReadCoordinates opens path and returns its latitude and longitude arrays
// together with the units of its time axis (empty if undeclared).
func ReadCoordinates(path string) (Coordinates, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return Coordinates{}, &ReadError{Path: path, Err: err}
	}
	defer nc.Close()

	lats, lons, err := readLatLon(nc)
	if err != nil {
		return Coordinates{}, &ReadError{Path: path, Err: err}
	}

	c := Coordinates{Lats: lats, Lons: lons}
	if vg, err := nc.GetVarGetter(VarTime); err == nil {
		c.TimeUnits = stringAttr(vg.Attributes(), "units")
	}
	return c, nil
}

// Extract reads the time axis of path and the precipitation inside si across
// all time steps. The grid of path must match the reference grid of si.
//
// Precipitation is read one time step at a time so that only a single full
// grid is held in memory. The file is closed before Extract returns.
func Extract(path string, si *SpatialIndex) (FileSlice, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return FileSlice{}, &ReadError{Path: path, Err: err}
	}
	defer nc.Close()

	fs, err := extract(nc, si)
	if err != nil {
		return FileSlice{}, &ReadError{Path: path, Err: err}
	}
	fs.Path = path
	return fs, nil
}

func extract(nc api.Group, si *SpatialIndex) (FileSlice, error) {
	lats, lons, err := readLatLon(nc)
	if err != nil {
		return FileSlice{}, err
	}
	if err := si.CheckGrid(lats, lons); err != nil {
		return FileSlice{}, err
	}

	times, err := readFloat64s(nc, VarTime)
	if err != nil {
		return FileSlice{}, err
	}

	vg, err := nc.GetVarGetter(VarPrecip)
	if err != nil {
		return FileSlice{}, fmt.Errorf("variable %q: %w", VarPrecip, err)
	}
	shape := vg.Shape()
	if len(shape) != 3 {
		return FileSlice{}, fmt.Errorf("%w: %q has %d dimensions, want 3 (time, latitude, longitude)",
			ErrDimensionMismatch, VarPrecip, len(shape))
	}
	if shape[0] != int64(len(times)) || shape[1] != int64(len(lats)) || shape[2] != int64(len(lons)) {
		return FileSlice{}, fmt.Errorf("%w: %q is %v, want [%d %d %d]",
			ErrDimensionMismatch, VarPrecip, shape, len(times), len(lats), len(lons))
	}

	precip := make([]float32, 0, len(times)*si.Cells())
	for t := int64(0); t < shape[0]; t++ {
		step, err := vg.GetSlice(t, t+1)
		if err != nil {
			return FileSlice{}, fmt.Errorf("variable %q step %d: %w", VarPrecip, t, err)
		}
		precip, err = appendCropped(precip, step, si)
		if err != nil {
			return FileSlice{}, fmt.Errorf("variable %q step %d: %w", VarPrecip, t, err)
		}
	}

	return FileSlice{Times: times, Precip: precip}, nil
}

func readLatLon(nc api.Group) ([]float64, []float64, error) {
	lats, err := readFloat64s(nc, VarLatitude)
	if err != nil {
		return nil, nil, err
	}
	lons, err := readFloat64s(nc, VarLongitude)
	if err != nil {
		return nil, nil, err
	}
	return lats, lons, nil
}

func readFloat64s(nc api.Group, name string) ([]float64, error) {
	vg, err := nc.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}
	v, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}
	out, err := toFloat64s(v)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}
	return out, nil
}

// appendCropped appends the cells of one [1][lat][lon] step selected by si.
func appendCropped(dst []float32, step any, si *SpatialIndex) ([]float32, error) {
	switch s := step.(type) {
	case [][][]float32:
		if len(s) != 1 {
			return nil, fmt.Errorf("%w: got %d steps, want 1", ErrDimensionMismatch, len(s))
		}
		for _, i := range si.LatIndices {
			row := s[0][i]
			for _, j := range si.LonIndices {
				dst = append(dst, row[j])
			}
		}
	case [][][]float64:
		if len(s) != 1 {
			return nil, fmt.Errorf("%w: got %d steps, want 1", ErrDimensionMismatch, len(s))
		}
		for _, i := range si.LatIndices {
			row := s[0][i]
			for _, j := range si.LonIndices {
				dst = append(dst, float32(row[j]))
			}
		}
	default:
		return nil, fmt.Errorf("%w: %T", errUnsupportedType, step)
	}
	return dst, nil
}

func stringAttr(attrs api.AttributeMap, key string) string {
	if attrs == nil {
		return ""
	}
	v, ok := attrs.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
