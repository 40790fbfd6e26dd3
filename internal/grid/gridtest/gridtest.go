// Package gridtest writes small precipitation grid files for tests.
package gridtest

import (
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/i474232898/precip-subset/internal/grid"
)

// File describes the content of one input grid. Lats and Lons may be any
// numeric slice type; Precip is [time][lat][lon] of float32 or float64.
type File struct {
	Times     []float64
	Lats      any
	Lons      any
	Precip    any
	TimeUnits string
}

// Write stores f at path as a NetCDF classic file, failing tb on error.
func Write(tb testing.TB, path string, f File) {
	tb.Helper()

	w, err := netcdf.OpenWriter(path, netcdf.KindCDF)
	if err != nil {
		tb.Fatalf("open writer %s: %v", path, err)
	}

	timeAttrs := attrs(tb, nil)
	if f.TimeUnits != "" {
		timeAttrs = attrs(tb, map[string]any{"units": f.TimeUnits})
	}

	vars := []struct {
		name   string
		values any
		dims   []string
		attrs  api.AttributeMap
	}{
		{grid.VarTime, f.Times, []string{grid.VarTime}, timeAttrs},
		{grid.VarLatitude, f.Lats, []string{grid.VarLatitude}, attrs(tb, nil)},
		{grid.VarLongitude, f.Lons, []string{grid.VarLongitude}, attrs(tb, nil)},
		{grid.VarPrecip, f.Precip, []string{grid.VarTime, grid.VarLatitude, grid.VarLongitude}, attrs(tb, nil)},
	}
	for _, v := range vars {
		err := w.AddVar(v.name, api.Variable{
			Values:     v.values,
			Dimensions: v.dims,
			Attributes: v.attrs,
		})
		if err != nil {
			_ = w.Close()
			tb.Fatalf("add %s to %s: %v", v.name, path, err)
		}
	}
	if err := w.Close(); err != nil {
		tb.Fatalf("close %s: %v", path, err)
	}
}

func attrs(tb testing.TB, values map[string]any) *util.OrderedMap {
	tb.Helper()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	m, err := util.NewOrderedMap(keys, values)
	if err != nil {
		tb.Fatalf("attributes: %v", err)
	}
	return m
}

// Cube builds a [steps][nLat][nLon] array whose value at (t, i, j) is
// fn(t, i, j).
func Cube(steps, nLat, nLon int, fn func(t, i, j int) float32) [][][]float32 {
	cube := make([][][]float32, steps)
	for t := range cube {
		cube[t] = make([][]float32, nLat)
		for i := range cube[t] {
			cube[t][i] = make([]float32, nLon)
			for j := range cube[t][i] {
				cube[t][i][j] = fn(t, i, j)
			}
		}
	}
	return cube
}

// Axis returns n values starting at start spaced by step.
func Axis(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
