package catalog

import "github.com/meterbook-dev/meterbook/internal/model"

// DateDisplayName is the header shown for the date column.
const DateDisplayName = "Datum"

// DefaultMetrics returns the six household meters.
func DefaultMetrics() []model.Metric {
	return []model.Metric{
		{Key: model.ColumnElectricity, DisplayName: "Strom", Label: "Stromverbrauch", Unit: "kWh"},
		{Key: model.ColumnWater, DisplayName: "Wasser", Label: "Wasserverbrauch", Unit: "m³"},
		{Key: model.ColumnGas, DisplayName: "Gas", Label: "Gasverbrauch", Unit: "m³"},
		{Key: model.ColumnHeating, DisplayName: "DLE", Label: "DLE", Unit: "Einheit"},
		{Key: model.ColumnFeedIn, DisplayName: "Einspeisung", Label: "Einspeisung", Unit: "kWh"},
		{Key: model.ColumnGarden, DisplayName: "Garten", Label: "Garten", Unit: "m³"},
	}
}
