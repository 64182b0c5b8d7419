package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherdash/weatherdash/internal/analytics"
)

func TestBuildView_Success(t *testing.T) {
	view := analytics.BuildView(analytics.State{
		Version: 3,
		Phase:   analytics.PhaseSuccess,
		Result:  fullResult(),
		Filter:  analytics.Filter{City: "Paris"},
		Applied: analytics.Filter{City: "Paris"},
	})

	assert.False(t, view.Loading)
	assert.Empty(t, view.Error)
	assert.True(t, view.CanExport)
	assert.Equal(t, uint64(3), view.Version)

	require.Len(t, view.Cards, 7)
	assert.Equal(t, "Avg Temp", view.Cards[0].Title)
	assert.Equal(t, "21.5 °C", view.Cards[0].Display)
	assert.Equal(t, "40.1 km/h", view.Cards[3].Display)
	assert.Equal(t, "210.75°", view.Cards[6].Display)

	require.Len(t, view.Charts, 4)
	assert.Equal(t, analytics.ChartTemperature, view.Charts[0].Kind)
	assert.Equal(t, analytics.StyleLine, view.Charts[0].Style)
	assert.Equal(t, []analytics.ChartPoint{{Month: "Month 1", Value: 5}, {Month: "Month 2", Value: 6}}, view.Charts[0].Points)
	assert.Equal(t, analytics.StyleLine, view.Charts[1].Style)
	assert.Equal(t, analytics.StyleBar, view.Charts[2].Style)
	assert.Equal(t, analytics.StyleRadar, view.Charts[3].Style)
}

func TestBuildView_Loading(t *testing.T) {
	view := analytics.BuildView(analytics.State{Phase: analytics.PhaseLoading})

	assert.True(t, view.Loading)
	assert.False(t, view.CanExport)
	assert.Empty(t, view.Cards)
	assert.Empty(t, view.Charts)
}

func TestBuildView_Error(t *testing.T) {
	view := analytics.BuildView(analytics.State{Phase: analytics.PhaseError, Error: "No data found"})

	assert.False(t, view.Loading)
	assert.Equal(t, "No data found", view.Error)
	assert.False(t, view.CanExport)
	assert.NotNil(t, view.Cards)
	assert.Empty(t, view.Cards)
}

func TestSummaryCards_MissingValue(t *testing.T) {
	cards := analytics.SummaryCards(&analytics.Result{})

	require.Len(t, cards, 7)
	for _, c := range cards {
		assert.Nil(t, c.Value)
		assert.Equal(t, "N/A", c.Display)
	}
}

func TestTrendCharts_Visibility(t *testing.T) {
	tests := []struct {
		name  string
		r     *analytics.Result
		kinds []analytics.ChartKind
	}{
		{
			name:  "nothing returned",
			r:     &analytics.Result{},
			kinds: []analytics.ChartKind{},
		},
		{
			name: "empty temperature trend is hidden",
			r: &analytics.Result{
				MonthlyTemperatureTrend: analytics.TrendMap{},
				MonthlyWindSpeedTrend:   analytics.TrendMap{},
			},
			kinds: []analytics.ChartKind{analytics.ChartWindSpeed},
		},
		{
			name: "wind charts shown when present",
			r: &analytics.Result{
				MonthlyWindGustTrend:      analytics.TrendMap{{Month: "4", Value: 9}},
				MonthlyWindDirectionTrend: analytics.TrendMap{},
			},
			kinds: []analytics.ChartKind{analytics.ChartWindGust, analytics.ChartWindDirection},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			charts := analytics.TrendCharts(tt.r)
			kinds := make([]analytics.ChartKind, 0, len(charts))
			for _, c := range charts {
				kinds = append(kinds, c.Kind)
				assert.NotNil(t, c.Points)
			}
			assert.Equal(t, tt.kinds, kinds)
		})
	}
}
