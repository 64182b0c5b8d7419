package download_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherdash/weatherdash/internal/analytics"
	"github.com/weatherdash/weatherdash/internal/download"
)

func TestFileSaver_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	saver := download.NewFileSaver(dir, zerolog.Nop())

	export := &analytics.Export{
		Filename:    "weather_analytics_Paris.csv",
		ContentType: analytics.CSVContentType,
		Data:        []byte("Metric,Value\n"),
	}
	require.NoError(t, saver.Save(context.Background(), export))

	got, err := os.ReadFile(filepath.Join(dir, "weather_analytics_Paris.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Metric,Value\n", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileSaver_Overwrites(t *testing.T) {
	dir := t.TempDir()
	saver := download.NewFileSaver(dir, zerolog.Nop())

	first := &analytics.Export{Filename: "weather_analytics_all.csv", Data: []byte("old")}
	second := &analytics.Export{Filename: "weather_analytics_all.csv", Data: []byte("new")}
	require.NoError(t, saver.Save(context.Background(), first))
	require.NoError(t, saver.Save(context.Background(), second))

	got, err := os.ReadFile(saver.Path("weather_analytics_all.csv"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestFileSaver_StaysInsideDir(t *testing.T) {
	dir := t.TempDir()
	saver := download.NewFileSaver(dir, zerolog.Nop())

	tests := []struct {
		filename string
		want     string
	}{
		{"../../escape.csv", ".._.._escape.csv"},
		{`..\escape.csv`, ".._escape.csv"},
		{"..", "_.."},
		{"weather_analytics_all.csv", "weather_analytics_all.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, filepath.Join(dir, tt.want), saver.Path(tt.filename))
		})
	}
}

func TestFileSaver_CityWithSeparatorKeepsPrefix(t *testing.T) {
	dir := t.TempDir()
	saver := download.NewFileSaver(dir, zerolog.Nop())

	avg := 21.5
	export, ok := analytics.ExportCSV(&analytics.Result{AverageTemperature: &avg}, "a/b")
	require.True(t, ok)
	require.NoError(t, saver.Save(context.Background(), export))

	_, err := os.Stat(filepath.Join(dir, "weather_analytics_a_b.csv"))
	assert.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileSaver_Errors(t *testing.T) {
	saver := download.NewFileSaver(t.TempDir(), zerolog.Nop())

	assert.Error(t, saver.Save(context.Background(), nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := saver.Save(ctx, &analytics.Export{Filename: "x.csv"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileSaver_SavesCSVExport(t *testing.T) {
	dir := t.TempDir()
	saver := download.NewFileSaver(dir, zerolog.Nop())

	avg := 21.5
	export, ok := analytics.ExportCSV(&analytics.Result{AverageTemperature: &avg}, "")
	require.True(t, ok)
	require.NoError(t, saver.Save(context.Background(), export))

	got, err := os.ReadFile(filepath.Join(dir, "weather_analytics_all.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(got), "Average Temperature,21.5\n")
	assert.Contains(t, string(got), "Average Wind Direction,N/A°\n")
}
