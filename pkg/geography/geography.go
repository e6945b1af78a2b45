// Package geography has the small amount of spherical math the search
// flow needs: distances from the query point and proximity ordering.
package geography

import (
	"math"
	"sort"
)

const earthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle distance between two points
// using the haversine formula. Good to well under 0.5% for map-scale
// distances, which is all venue sorting needs.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180.0
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Point is a lat/lng pair.
type Point struct {
	Lat float64
	Lng float64
}

// SortByProximity orders items ascending by distance from origin.
// The locate callback extracts each item's coordinates.
func SortByProximity[T any](items []T, origin Point, locate func(T) Point) {
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := locate(items[i]), locate(items[j])
		di := DistanceMeters(origin.Lat, origin.Lng, pi.Lat, pi.Lng)
		dj := DistanceMeters(origin.Lat, origin.Lng, pj.Lat, pj.Lng)
		return di < dj
	})
}

// WithinRadius reports whether p lies within radiusMeters of origin.
func WithinRadius(origin, p Point, radiusMeters float64) bool {
	return DistanceMeters(origin.Lat, origin.Lng, p.Lat, p.Lng) <= radiusMeters
}
