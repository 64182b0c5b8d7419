package analytics_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherdash/weatherdash/internal/analytics"
)

func TestToChartPoints_Absent(t *testing.T) {
	points := analytics.ToChartPoints(nil)
	require.NotNil(t, points)
	assert.Empty(t, points)

	assert.Empty(t, analytics.ToChartPoints(analytics.TrendMap{}))
}

func TestToChartPoints_LabelsAndValues(t *testing.T) {
	var result analytics.Result
	err := json.Unmarshal([]byte(`{"average_temperature": 21.5, "monthly_temperature_trend": {"1": 5, "2": 6}}`), &result)
	require.NoError(t, err)

	points := analytics.ToChartPoints(result.MonthlyTemperatureTrend)

	assert.Equal(t, []analytics.ChartPoint{
		{Month: "Month 1", Value: 5},
		{Month: "Month 2", Value: 6},
	}, points)
}

func TestToChartPoints_KeepsTrendOrder(t *testing.T) {
	trends := []string{
		`{"1": 1.25, "2": 2, "3": 3}`,
		`{"12": -4.5, "3": 0, "7": 18.33}`,
		`{"b": 1, "a": 2}`,
		`{}`,
	}

	for _, raw := range trends {
		t.Run(raw, func(t *testing.T) {
			var trend analytics.TrendMap
			require.NoError(t, json.Unmarshal([]byte(raw), &trend))

			points := analytics.ToChartPoints(trend)
			require.Len(t, points, trend.Len())
			for i, e := range trend {
				assert.Equal(t, "Month "+e.Month, points[i].Month)
				assert.Equal(t, e.Value, points[i].Value)
			}
		})
	}
}

func TestTrendMap_UnmarshalPreservesOrder(t *testing.T) {
	var trend analytics.TrendMap
	require.NoError(t, json.Unmarshal([]byte(`{"3": 30, "1": 10, "2": 20}`), &trend))

	assert.Equal(t, analytics.TrendMap{
		{Month: "3", Value: 30},
		{Month: "1", Value: 10},
		{Month: "2", Value: 20},
	}, trend)
}

func TestTrendMap_DuplicateKeyKeepsFirstPosition(t *testing.T) {
	var trend analytics.TrendMap
	require.NoError(t, json.Unmarshal([]byte(`{"1": 10, "2": 20, "1": 11}`), &trend))

	assert.Equal(t, analytics.TrendMap{
		{Month: "1", Value: 11},
		{Month: "2", Value: 20},
	}, trend)
}

func TestTrendMap_NullAndEmpty(t *testing.T) {
	var result analytics.Result
	require.NoError(t, json.Unmarshal([]byte(`{"monthly_temperature_trend": null, "monthly_wind_speed_trend": {}}`), &result))

	assert.Nil(t, result.MonthlyTemperatureTrend)
	assert.NotNil(t, result.MonthlyWindSpeedTrend)
	assert.Equal(t, 0, result.MonthlyWindSpeedTrend.Len())
	assert.Nil(t, result.MonthlyWindGustTrend)
}

func TestTrendMap_RejectsNonObjects(t *testing.T) {
	invalid := []string{`[1, 2]`, `{"1": "warm"}`, `{"1": null}`, `42`}

	for _, raw := range invalid {
		t.Run(raw, func(t *testing.T) {
			var trend analytics.TrendMap
			assert.Error(t, json.Unmarshal([]byte(raw), &trend))
		})
	}
}

func TestTrendMap_Get(t *testing.T) {
	trend := analytics.TrendMap{{Month: "1", Value: 5}}

	v, ok := trend.Get("1")
	assert.True(t, ok)
	assert.Equal(t, 5.0, v)

	_, ok = trend.Get("2")
	assert.False(t, ok)
}

func TestTrendMap_MarshalKeepsOrder(t *testing.T) {
	trend := analytics.TrendMap{{Month: "2", Value: 6.5}, {Month: "1", Value: 5}}

	data, err := json.Marshal(trend)
	require.NoError(t, err)
	assert.Equal(t, `{"2":6.5,"1":5}`, string(data))

	data, err = json.Marshal(analytics.TrendMap(nil))
	require.NoError(t, err)
	assert.Equal(t, `null`, string(data))
}
