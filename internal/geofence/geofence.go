// Package geofence computes great-circle distances between coordinates and
// decides whether a point lies inside a venue's radius.
package geofence

import "math"

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6_371_000.0

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

// DistanceMeters returns the haversine distance between two coordinates.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// Rounding can push a a hair above 1 for antipodal points.
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// Distance is DistanceMeters over Points.
func Distance(a, b Point) float64 {
	return DistanceMeters(a.Lat, a.Long, b.Lat, b.Long)
}

// WithinRadius reports whether distance lies inside radius. The boundary is inclusive.
func WithinRadius(distance, radius float64) bool {
	return distance <= radius
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
