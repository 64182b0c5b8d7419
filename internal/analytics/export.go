package analytics

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
)

// CSVContentType is the content type of analytics exports.
const CSVContentType = "text/csv;charset=utf-8"

// notAvailable is written in place of a missing metric.
const notAvailable = "N/A"

// Export is a file ready to hand to a Saver.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Saver delivers an export to the user, e.g. as a browser download or a file on disk.
type Saver interface {
	Save(ctx context.Context, export *Export) error
}

// ExportFilename returns the suggested file name for an export of city.
func ExportFilename(city string) string {
	if city == "" {
		city = "all"
	}
	return fmt.Sprintf("weather_analytics_%s.csv", city)
}

// ExportCSV renders the summary metrics of result as CSV. It returns false, and
// produces nothing, when result is nil.
func ExportCSV(result *Result, city string) (*Export, bool) {
	if result == nil {
		return nil, false
	}

	rows := [][]string{
		{"Metric", "Value"},
		{"Average Temperature", formatMetric(result.AverageTemperature)},
		{"Max Temperature", formatMetric(result.MaxTemperature)},
		{"Min Temperature", formatMetric(result.MinTemperature)},
		{"Average Wind Speed", formatMetric(result.AverageWindSpeed)},
		{"Max Wind Speed", formatMetric(result.MaxWindSpeed)},
		{"Average Wind Gust", formatMetric(result.AverageWindGust)},
		{"Max Wind Gust", formatMetric(result.MaxWindGust)},
		{"Average Wind Direction", formatMetric(result.AverageWindDirection) + "°"},
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	// Writes to a bytes.Buffer cannot fail.
	_ = w.WriteAll(rows)

	return &Export{
		Filename:    ExportFilename(city),
		ContentType: CSVContentType,
		Data:        buf.Bytes(),
	}, true
}

func formatMetric(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return formatNumber(*v)
}

// formatNumber renders v in its shortest exact decimal form, e.g. 21.5 or 5.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
