package grid

import "fmt"

// Variable names shared by input and output grids.
const (
	VarTime      = "time"
	VarLatitude  = "latitude"
	VarLongitude = "longitude"
	VarPrecip    = "precip"
)

// FillValue marks absent precipitation in the combined output.
const FillValue float32 = -9999.0

// BoundingBox is the latitude/longitude window cropped from every input grid.
// Bounds are in degrees and inclusive.
type BoundingBox struct {
	LatMin float64 `json:"latMin" validate:"gte=-90,lte=90"`
	LatMax float64 `json:"latMax" validate:"gte=-90,lte=90,gtfield=LatMin"`
	LonMin float64 `json:"lonMin" validate:"gte=-180,lte=360"`
	LonMax float64 `json:"lonMax" validate:"gte=-180,lte=360,gtfield=LonMin"`
}

// Validate checks the ordering invariant of the box.
func (b BoundingBox) Validate() error {
	if !(b.LatMin < b.LatMax) {
		return fmt.Errorf("%w: lat_min %v must be below lat_max %v", ErrConfiguration, b.LatMin, b.LatMax)
	}
	if !(b.LonMin < b.LonMax) {
		return fmt.Errorf("%w: lon_min %v must be below lon_max %v", ErrConfiguration, b.LonMin, b.LonMax)
	}
	return nil
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("lat[%g, %g] lon[%g, %g]", b.LatMin, b.LatMax, b.LonMin, b.LonMax)
}

// SpatialIndex is resolved once from a reference grid and reused for every
// input file. LatIndices and LonIndices are ascending positions into the full
// coordinate arrays; Lats and Lons hold the matching coordinate values.
type SpatialIndex struct {
	LatIndices []int
	LonIndices []int
	Lats       []float64
	Lons       []float64

	// Full coordinate arrays of the reference grid. Every later file must
	// carry identical arrays.
	GridLats []float64
	GridLons []float64
}

// Shape returns the (latitude, longitude) size of the cropped window.
func (si *SpatialIndex) Shape() (int, int) {
	return len(si.LatIndices), len(si.LonIndices)
}

// Cells returns the number of grid cells in one cropped time step.
func (si *SpatialIndex) Cells() int {
	return len(si.LatIndices) * len(si.LonIndices)
}

// FileSlice is what the Extractor reads from one input file: its time values
// and the cropped precipitation, flattened in (time, latitude, longitude)
// row-major order.
type FileSlice struct {
	Path   string
	Times  []float64
	Precip []float32
}

// Steps returns the number of time steps in the slice.
func (fs FileSlice) Steps() int {
	return len(fs.Times)
}

// Metadata carries the descriptive values the writer attaches to the output.
type Metadata struct {
	Box       BoundingBox
	TimeUnits string
	Source    string
	Inputs    int
}
