package model

// Column keys as they appear in the header of the persisted reading file.
const (
	ColumnDate        = "datum"
	ColumnElectricity = "strom"
	ColumnWater       = "wasser"
	ColumnGas         = "gas"
	ColumnHeating     = "dle"
	ColumnFeedIn      = "einspeisung"
	ColumnGarden      = "garten"
)

// DefaultColumns lists the metric columns of a new reading file, in header order.
var DefaultColumns = []string{
	ColumnElectricity,
	ColumnWater,
	ColumnGas,
	ColumnHeating,
	ColumnFeedIn,
	ColumnGarden,
}

// Metric describes one tracked utility quantity.
type Metric struct {
	Key         string `json:"key" yaml:"key" mapstructure:"key" validate:"required"`
	DisplayName string `json:"display_name" yaml:"display_name" mapstructure:"display_name"`
	Label       string `json:"label" yaml:"label" mapstructure:"label"` // chart legend
	Unit        string `json:"unit" yaml:"unit" mapstructure:"unit"`
}
