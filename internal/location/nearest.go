package location

import "math"

const directionsBaseURL = "https://www.google.com/maps/dir/"

// Station is a named point of interest.
type Station struct {
	Name       string     `json:"name"`
	Address    string     `json:"address"`
	Coordinate Coordinate `json:"coordinate"`
}

// DistanceResult pairs a station with its raw great-circle distance.
type DistanceResult struct {
	Station    Station `json:"station"`
	DistanceKm float64 `json:"distance_km"`
}

// Nearest returns the candidate closest to user. A candidate only replaces the
// current best when strictly closer, so the earliest of equally distant
// candidates wins. ok is false when candidates is empty.
func Nearest(user Coordinate, candidates []Station) (result DistanceResult, ok bool) {
	minDistance := math.Inf(1)

	for _, candidate := range candidates {
		d := Distance(user, candidate.Coordinate)
		if d < minDistance {
			minDistance = d
			result = DistanceResult{Station: candidate, DistanceKm: d}
			ok = true
		}
	}

	return result, ok
}

// DirectionsURL links to driving directions towards dest. The comma between
// latitude and longitude is left unescaped.
func DirectionsURL(dest Coordinate) string {
	return directionsBaseURL + "?api=1&destination=" + dest.Param() + "&travelmode=driving"
}
