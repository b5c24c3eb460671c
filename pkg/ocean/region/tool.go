package region

import "floatchat-be/pkg/llm"

// FunctionName is the only tool the model is offered.
const FunctionName = "select_region"

const toolDescription = "Always return a function call with selected latitude/longitude and optional date ranges " +
	"for fetching Argo data in the Indian Ocean. " +
	"Never respond with plain text. " +
	"If the user mentions a date or range, include it as date_min/date_max (YYYY-MM). " +
	"If no date is mentioned, leave them empty and the backend will apply its default range. " +
	"Choose either 'box' (bounding box) or 'points' (list of coordinates). " +
	"Pick at most two variables the user actually asks about."

func numberProp() map[string]any {
	return map[string]any{"type": "number"}
}

// SelectRegionTool returns the select_region declaration.
func SelectRegionTool() llm.Tool {
	return llm.Tool{
		Name:        FunctionName,
		Description: toolDescription,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"mode": map[string]any{
					"type":        "string",
					"enum":        []string{"box", "points"},
					"description": "Return either a single bounding box (box) or a list of point coordinates (points).",
				},
				"box": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"lon_min": numberProp(),
						"lon_max": numberProp(),
						"lat_min": numberProp(),
						"lat_max": numberProp(),
					},
					"required": []string{"lon_min", "lon_max", "lat_min", "lat_max"},
				},
				"points": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"lat": numberProp(),
							"lon": numberProp(),
						},
						"required": []string{"lat", "lon"},
					},
					"description": "List of (lat, lon) points to fetch individually.",
				},
				"variables": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "string",
						"enum": []string{"temperature", "salinity", "pressure"},
					},
					"description": "Measurements the user is interested in.",
				},
				"date_min": map[string]any{
					"type":        "string",
					"description": "Start date in YYYY-MM format (optional).",
				},
				"date_max": map[string]any{
					"type":        "string",
					"description": "End date in YYYY-MM format (optional).",
				},
			},
			"required": []string{"mode"},
		},
	}
}
