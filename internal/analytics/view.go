package analytics

// ChartKind identifies one of the trend charts.
type ChartKind string

const (
	ChartTemperature   ChartKind = "temperature"
	ChartWindSpeed     ChartKind = "wind_speed"
	ChartWindGust      ChartKind = "wind_gust"
	ChartWindDirection ChartKind = "wind_direction"
)

// ChartStyle tells the render layer which widget draws a chart.
type ChartStyle string

const (
	StyleLine  ChartStyle = "line"
	StyleBar   ChartStyle = "bar"
	StyleRadar ChartStyle = "radar"
)

// Card is one summary card.
type Card struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Value   *float64 `json:"value"`
	Unit    string   `json:"unit"`
	Display string   `json:"display"`
}

// Chart is a trend chart ready to draw.
type Chart struct {
	Kind   ChartKind    `json:"kind"`
	Title  string       `json:"title"`
	Style  ChartStyle   `json:"style"`
	Points []ChartPoint `json:"points"`
}

// View is everything the render layer needs to draw the analytics page.
type View struct {
	Version   uint64  `json:"version"`
	Phase     Phase   `json:"phase"`
	Loading   bool    `json:"loading"`
	Error     string  `json:"error,omitempty"`
	Filter    Filter  `json:"filter"`
	Applied   Filter  `json:"applied"`
	CanExport bool    `json:"canExport"`
	Cards     []Card  `json:"cards"`
	Charts    []Chart `json:"charts"`
}

// BuildView derives the render-ready view from a controller state. Cards and charts
// are only populated for a successful result.
func BuildView(s State) View {
	v := View{
		Version:   s.Version,
		Phase:     s.Phase,
		Loading:   s.Phase == PhaseLoading,
		Error:     s.Error,
		Filter:    s.Filter,
		Applied:   s.Applied,
		CanExport: s.Result != nil,
		Cards:     []Card{},
		Charts:    []Chart{},
	}

	if s.Error != "" || s.Result == nil {
		return v
	}

	v.Cards = SummaryCards(s.Result)
	v.Charts = TrendCharts(s.Result)
	return v
}

// SummaryCards returns the seven summary cards for r in display order.
func SummaryCards(r *Result) []Card {
	return []Card{
		newCard("average_temperature", "Avg Temp", r.AverageTemperature, " °C"),
		newCard("max_temperature", "Max Temp", r.MaxTemperature, " °C"),
		newCard("average_wind_speed", "Avg Wind Speed", r.AverageWindSpeed, " km/h"),
		newCard("max_wind_speed", "Max Wind Speed", r.MaxWindSpeed, " km/h"),
		newCard("average_wind_gust", "Avg Wind Gust", r.AverageWindGust, " km/h"),
		newCard("max_wind_gust", "Max Wind Gust", r.MaxWindGust, " km/h"),
		newCard("average_wind_direction", "Avg Wind Direction", r.AverageWindDirection, "°"),
	}
}

func newCard(key, title string, value *float64, unit string) Card {
	display := notAvailable
	if value != nil {
		display = formatNumber(*value) + unit
	}
	return Card{
		Key:     key,
		Title:   title,
		Value:   value,
		Unit:    unit,
		Display: display,
	}
}

// TrendCharts returns the charts to draw for r. The temperature chart is shown only
// when it has data; the wind charts whenever the service returned them.
func TrendCharts(r *Result) []Chart {
	charts := make([]Chart, 0, 4)

	if r.MonthlyTemperatureTrend.Len() > 0 {
		charts = append(charts, Chart{
			Kind:   ChartTemperature,
			Title:  "Monthly Avg Temperature",
			Style:  StyleLine,
			Points: ToChartPoints(r.MonthlyTemperatureTrend),
		})
	}
	if r.MonthlyWindSpeedTrend != nil {
		charts = append(charts, Chart{
			Kind:   ChartWindSpeed,
			Title:  "Monthly Avg Wind Speed",
			Style:  StyleLine,
			Points: ToChartPoints(r.MonthlyWindSpeedTrend),
		})
	}
	if r.MonthlyWindGustTrend != nil {
		charts = append(charts, Chart{
			Kind:   ChartWindGust,
			Title:  "Monthly Avg Wind Gust",
			Style:  StyleBar,
			Points: ToChartPoints(r.MonthlyWindGustTrend),
		})
	}
	if r.MonthlyWindDirectionTrend != nil {
		charts = append(charts, Chart{
			Kind:   ChartWindDirection,
			Title:  "Monthly Avg Wind Direction (°)",
			Style:  StyleRadar,
			Points: ToChartPoints(r.MonthlyWindDirectionTrend),
		})
	}

	return charts
}
