package fetch

import "floatchat-be/pkg/ocean"

// SoftFailure is the friendly payload delivered inside a result stage when
// the data source could not produce data even after widening.
type SoftFailure struct {
	Kind    ocean.FailureKind
	Message string
}

// Payload renders the failure as a result body.
func (s SoftFailure) Payload() map[string]any {
	return map[string]any{
		"summary": []ocean.Row{},
		"total":   nil,
		"message": s.Message,
		"reason":  string(s.Kind),
	}
}

// SoftFailureFor returns the friendly message for a transient fetch error.
// ok is false for errors that must surface as a turn-level error.
func SoftFailureFor(err error) (SoftFailure, bool) {
	kind := ocean.ClassifyFetchError(err)
	switch kind {
	case ocean.FailureTimeout:
		return SoftFailure{
			Kind:    kind,
			Message: "The Argo data service took too long to respond, even after searching a wider area. Please try a smaller region or a shorter time period.",
		}, true
	case ocean.FailureTransport:
		return SoftFailure{
			Kind:    kind,
			Message: "The Argo data service could not be reached right now. Please try again in a moment.",
		}, true
	case ocean.FailureNoData:
		return SoftFailure{
			Kind:    kind,
			Message: "No Argo float data was found in this region for the selected period, even after expanding the search area. Try a different location or date range.",
		}, true
	default:
		return SoftFailure{}, false
	}
}
