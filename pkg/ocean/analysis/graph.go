package analysis

import (
	"fmt"
	"math"

	"floatchat-be/pkg/ocean"
	"floatchat-be/pkg/ocean/columns"
)

// Visualisations understood by the chat client.
const (
	VizMap            = "map"
	VizTemperatureMap = "temperature_map"
	VizSalinityMap    = "salinity_map"
	VizPressureMap    = "pressure_map"
	VizTimeSeries     = "time_series"
	VizScatterPlot    = "scatter_plot"
	VizHistogram      = "histogram"
)

type DataSummary struct {
	TotalPoints     int      `json:"total_points"`
	UniqueLocations int      `json:"unique_locations"`
	Variables       []string `json:"variables"`
	TimeRange       string   `json:"time_range"`
}

// GraphAnalysis tells the client which chart to open first and why.
type GraphAnalysis struct {
	RecommendedVisualization string       `json:"recommended_visualization"`
	Reasoning                string       `json:"reasoning"`
	AvailableVisualizations  []string     `json:"available_visualizations"`
	DataInsights             []string     `json:"data_insights"`
	DataSummary              *DataSummary `json:"data_summary,omitempty"`
}

var variableViz = map[ocean.Variable]string{
	ocean.VariableTemperature: VizTemperatureMap,
	ocean.VariableSalinity:    VizSalinityMap,
	ocean.VariablePressure:    VizPressureMap,
}

var variableUnits = map[ocean.Variable]string{
	ocean.VariableTemperature: "°C",
	ocean.VariableSalinity:    "PSU",
	ocean.VariablePressure:    "dbar",
}

// Rows flattens a result into the rows the client plots: the box summary, or
// every successful point summary in order.
func Rows(r *ocean.FetchResult) []ocean.Row {
	if r == nil {
		return nil
	}
	if r.Mode != ocean.ModePoints {
		return r.Summary
	}
	var out []ocean.Row
	for _, ps := range r.Summaries {
		out = append(out, ps.Summary...)
	}
	return out
}

type stats struct {
	n             int
	min, max, sum float64
}

func (s *stats) add(f float64) {
	if s.n == 0 || f < s.min {
		s.min = f
	}
	if s.n == 0 || f > s.max {
		s.max = f
	}
	s.sum += f
	s.n++
}

// AnalyzeGraph derives a deterministic chart recommendation from the rows.
func AnalyzeGraph(rows []ocean.Row, meta ocean.QueryMeta) GraphAnalysis {
	ga := GraphAnalysis{
		RecommendedVisualization: VizMap,
		AvailableVisualizations:  []string{VizMap},
		DataInsights:             []string{},
	}
	if len(rows) == 0 {
		ga.Reasoning = "No rows were returned, so only the location map is available."
		return ga
	}

	schema := columns.SchemaOf(rows[0])
	latCol, _ := schema.Resolve(columns.LatitudeAliases)
	lonCol, _ := schema.Resolve(columns.LongitudeAliases)
	timeCol, hasTime := schema.Resolve(columns.TimeAliases)

	locations := make(map[string]struct{})
	var minTime, maxTime string
	varStats := make(map[ocean.Variable]*stats)
	varCols := make(map[ocean.Variable]string)
	for _, v := range ocean.Variables {
		if col, ok := schema.Variable(v); ok {
			varCols[v] = col
			varStats[v] = &stats{}
		}
	}

	for _, row := range rows {
		lat, okLat := toFloat(row[latCol])
		lon, okLon := toFloat(row[lonCol])
		if okLat && okLon {
			locations[fmt.Sprintf("%.4f|%.4f", lat, lon)] = struct{}{}
		}
		if hasTime {
			if ts, ok := row[timeCol].(string); ok && ts != "" {
				if minTime == "" || ts < minTime {
					minTime = ts
				}
				if ts > maxTime {
					maxTime = ts
				}
			}
		}
		for v, col := range varCols {
			if f, ok := toFloat(row[col]); ok {
				varStats[v].add(f)
			}
		}
	}

	present := make([]string, 0, len(varCols))
	for _, v := range ocean.Variables {
		if s, ok := varStats[v]; ok && s.n > 0 {
			present = append(present, string(v))
			ga.AvailableVisualizations = append(ga.AvailableVisualizations, variableViz[v])
			ga.DataInsights = append(ga.DataInsights, fmt.Sprintf("%s ranges from %.2f to %.2f %s (mean %.2f) across %d readings.",
				capitalize(string(v)), s.min, s.max, variableUnits[v], s.sum/float64(s.n), s.n))
		}
	}
	if minTime != "" && maxTime != minTime && len(rows) > 1 {
		ga.AvailableVisualizations = append(ga.AvailableVisualizations, VizTimeSeries)
	}
	if len(rows) > 1 {
		ga.AvailableVisualizations = append(ga.AvailableVisualizations, VizScatterPlot, VizHistogram)
	}

	ga.DataInsights = append(ga.DataInsights, fmt.Sprintf("%d sampled rows from %d unique float locations.", len(rows), len(locations)))
	if meta.ExpandedSearch {
		ga.DataInsights = append(ga.DataInsights, "The search area was widened by 2 degrees because the original region returned no data.")
	}

	timeRange := ""
	if minTime != "" {
		timeRange = minTime + " to " + maxTime
	}
	ga.DataSummary = &DataSummary{
		TotalPoints:     len(rows),
		UniqueLocations: len(locations),
		Variables:       present,
		TimeRange:       timeRange,
	}

	ga.RecommendedVisualization, ga.Reasoning = recommend(ga.AvailableVisualizations, meta.SelectedVariables, len(locations))
	return ga
}

func recommend(available []string, selected []ocean.Variable, uniqueLocations int) (string, string) {
	has := func(viz string) bool {
		for _, a := range available {
			if a == viz {
				return true
			}
		}
		return false
	}

	if uniqueLocations == 1 && has(VizTimeSeries) {
		return VizTimeSeries, "All readings come from a single location, so a time series shows the change best."
	}
	for _, v := range selected {
		if viz := variableViz[v]; has(viz) {
			return viz, fmt.Sprintf("You asked about %s, so its spatial distribution is shown first.", v)
		}
	}
	return VizMap, "The location map gives an overview of where the floats reported."
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
