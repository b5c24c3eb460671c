package fetch

import "floatchat-be/pkg/ocean"

const (
	// WidenDegrees is how far each bound moves on the retry attempt.
	WidenDegrees = 2.0
	// PointHalfWidth is the half-size of the box fetched around a point.
	PointHalfWidth = 0.1
)

// Widen grows every bound of b by delta degrees, clamped to the valid
// longitude and latitude ranges.
func Widen(b ocean.Box, delta float64) ocean.Box {
	return ocean.Box{
		LonMin: clamp(b.LonMin-delta, -180, 180),
		LonMax: clamp(b.LonMax+delta, -180, 180),
		LatMin: clamp(b.LatMin-delta, -90, 90),
		LatMax: clamp(b.LatMax+delta, -90, 90),
	}
}

// PointBox is the box of half-width half centred on p, clamped like Widen.
func PointBox(p ocean.Point, half float64) ocean.Box {
	return Widen(ocean.Box{LonMin: p.Lon, LonMax: p.Lon, LatMin: p.Lat, LatMax: p.Lat}, half)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
