package location

import (
	"math"
	"strconv"
)

const EarthRadiusKm = 6371.0 // Earth's mean radius in kilometers

// Haversine calculates the great-circle distance between two points on Earth
// in kilometers. Inputs are decimal degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	// Convert to radians
	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)
	deltaLat := toRadians(lat2 - lat1)
	deltaLon := toRadians(lon2 - lon1)

	// Haversine formula
	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Distance is Haversine over two coordinates.
func Distance(a, b Coordinate) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// RoundKm rounds a distance to two decimal places for display.
func RoundKm(km float64) float64 {
	return math.Round(km*100) / 100
}

// FormatKm renders a distance with exactly two decimals, e.g. "1.53".
func FormatKm(km float64) string {
	return strconv.FormatFloat(km, 'f', 2, 64)
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}
