package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meterbook-dev/meterbook/internal/model"
)

func TestNewService(t *testing.T) {
	metrics := DefaultMetrics()
	svc := NewService(metrics)

	assert.Len(t, svc.All(), len(model.DefaultColumns))
	for i, m := range svc.All() {
		assert.Equal(t, model.DefaultColumns[i], m.Key)
	}
}

func TestGetExists(t *testing.T) {
	svc := NewService(DefaultMetrics())

	m, ok := svc.Get(model.ColumnElectricity)
	assert.True(t, ok)
	assert.Equal(t, "Strom", m.DisplayName)
	assert.Equal(t, "kWh", m.Unit)

	_, ok = svc.Get("oil")
	assert.False(t, ok)

	assert.True(t, svc.Exists(model.ColumnGarden))
	assert.False(t, svc.Exists("oil"))
}

func TestDisplayName(t *testing.T) {
	svc := NewService(DefaultMetrics())

	assert.Equal(t, "Datum", svc.DisplayName(model.ColumnDate))
	assert.Equal(t, "DLE", svc.DisplayName(model.ColumnHeating))
	assert.Equal(t, "oil", svc.DisplayName("oil"))
	assert.Equal(t, []string{"Einspeisung", "Gas"}, svc.DisplayNames([]string{model.ColumnFeedIn, model.ColumnGas}))
}

func TestWithOverrides(t *testing.T) {
	svc := WithOverrides([]model.Metric{
		{Key: model.ColumnGas, DisplayName: "Erdgas", Label: "Erdgas", Unit: "kWh"},
		{Key: "oil", DisplayName: "Heizöl", Unit: "l"},
	})

	assert.Len(t, svc.All(), 7)
	assert.Equal(t, model.ColumnGas, svc.All()[2].Key, "override keeps original position")
	assert.Equal(t, "Erdgas", svc.DisplayName(model.ColumnGas))
	assert.Equal(t, "Heizöl", svc.DisplayName("oil"))
}

func TestResolve(t *testing.T) {
	svc := NewService(DefaultMetrics())

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"strom", model.ColumnElectricity, true},
		{"Strom", model.ColumnElectricity, true},
		{" WASSER ", model.ColumnWater, true},
		{"Einspeisung", model.ColumnFeedIn, true},
		{"oil", "", false},
	}
	for _, tt := range tests {
		got, ok := svc.Resolve(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
