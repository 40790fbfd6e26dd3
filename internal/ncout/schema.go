package ncout

import "github.com/i474232898/precip-subset/internal/grid"

// DefaultTimeUnits is used when the inputs do not declare units for time.
const DefaultTimeUnits = "days since 1980-1-1 0:0:0"

const precipLongName = "Climate Hazards group InfraRed Precipitation with Stations"

// attribute values are string, []int32, []float32 or []float64; both
// backends accept those forms.
type attribute struct {
	name  string
	value any
}

type variableSpec struct {
	name  string
	dims  []string
	attrs []attribute
}

var dimensions = []string{grid.VarTime, grid.VarLatitude, grid.VarLongitude}

func globalAttributes(meta grid.Metadata) []attribute {
	attrs := []attribute{
		{"Conventions", "CF-1.6"},
		{"title", "CHIRPS daily precipitation, spatial subset"},
	}
	if meta.Source != "" {
		attrs = append(attrs, attribute{"source", meta.Source})
	}
	attrs = append(attrs, attribute{"input_files", []int32{int32(meta.Inputs)}})
	return attrs
}

func variableSpecs(meta grid.Metadata) []variableSpec {
	timeUnits := meta.TimeUnits
	if timeUnits == "" {
		timeUnits = DefaultTimeUnits
	}
	box := meta.Box

	return []variableSpec{
		{
			name: grid.VarTime,
			dims: []string{grid.VarTime},
			attrs: []attribute{
				{"units", timeUnits},
				{"standard_name", "time"},
				{"long_name", "time"},
				{"calendar", "gregorian"},
				{"axis", "T"},
			},
		},
		{
			name: grid.VarLatitude,
			dims: []string{grid.VarLatitude},
			attrs: []attribute{
				{"units", "degrees_north"},
				{"standard_name", "latitude"},
				{"long_name", "latitude"},
				{"axis", "Y"},
			},
		},
		{
			name: grid.VarLongitude,
			dims: []string{grid.VarLongitude},
			attrs: []attribute{
				{"units", "degrees_east"},
				{"standard_name", "longitude"},
				{"long_name", "longitude"},
				{"axis", "X"},
			},
		},
		{
			name: grid.VarPrecip,
			dims: dimensions,
			attrs: []attribute{
				{"_FillValue", []float32{grid.FillValue}},
				{"units", "mm/day"},
				{"standard_name", "convective_precipitation_rate"},
				{"long_name", precipLongName},
				{"time_step", "day"},
				{"missing_value", []float32{grid.FillValue}},
				{"geospatial_lat_min", []float64{box.LatMin}},
				{"geospatial_lat_max", []float64{box.LatMax}},
				{"geospatial_lon_min", []float64{box.LonMin}},
				{"geospatial_lon_max", []float64{box.LonMax}},
			},
		},
	}
}
