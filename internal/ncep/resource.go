package ncep

import "fmt"

// Variable names one of the annual reanalysis fields.
type Variable string

const (
	Pressure          Variable = "pressure"
	PrecipitableWater Variable = "precipitable_water"
	AirTemperature    Variable = "air_temperature"
)

// Variables lists the fields in conversion order. Pressure comes first because
// it recreates the daily file that the other two append to.
var Variables = []Variable{Pressure, PrecipitableWater, AirTemperature}

var fileTemplates = map[Variable]string{
	Pressure:          "slp.%d.nc",
	PrecipitableWater: "pr_wtr.eatm.%d.nc",
	AirTemperature:    "air.sig995.%d.nc",
}

// Descriptor identifies one annual remote file.
type Descriptor struct {
	Variable Variable
	Year     int
	FileName string
}

// Resource returns the descriptor of variable for year.
func Resource(variable Variable, year int) (Descriptor, error) {
	template, ok := fileTemplates[variable]
	if !ok {
		return Descriptor{}, fmt.Errorf("unknown reanalysis variable %q", variable)
	}
	return Descriptor{Variable: variable, Year: year, FileName: fmt.Sprintf(template, year)}, nil
}

// CleansExisting reports whether converting this variable replaces existing
// daily artifacts rather than adding to them.
func (d Descriptor) CleansExisting() bool {
	return d.Variable == Pressure
}
