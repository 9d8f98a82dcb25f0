// Package geo provides great-circle distance between coordinates.
package geo

import "math"

const earthRadiusKm = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// DistanceKm returns the haversine distance between a and b in kilometres.
func DistanceKm(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Between returns the distance when both coordinate pairs are fully known.
func Between(fromLat, fromLng, toLat, toLng *float64) *float64 {
	if fromLat == nil || fromLng == nil || toLat == nil || toLng == nil {
		return nil
	}
	d := DistanceKm(Point{Lat: *fromLat, Lng: *fromLng}, Point{Lat: *toLat, Lng: *toLng})
	return &d
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
