// Package station holds the read-only catalog of police stations the
// locator ranks against, and the sources it can be loaded from at startup.
package station

import (
	"github.com/askwhyharsh/nearhelp/internal/location"
)

// Catalog is an ordered, immutable list of stations.
type Catalog struct {
	stations []location.Station
}

// NewCatalog copies stations so later changes to the slice do not leak in.
func NewCatalog(stations []location.Station) *Catalog {
	cp := make([]location.Station, len(stations))
	copy(cp, stations)
	return &Catalog{stations: cp}
}

// All returns a copy of the stations in catalog order.
func (c *Catalog) All() []location.Station {
	cp := make([]location.Station, len(c.stations))
	copy(cp, c.stations)
	return cp
}

func (c *Catalog) Len() int {
	return len(c.stations)
}

// Nearest ranks the whole catalog against user.
func (c *Catalog) Nearest(user location.Coordinate) (location.DistanceResult, bool) {
	return location.Nearest(user, c.stations)
}

// Sample is the built-in simulated data set.
func Sample() []location.Station {
	return []location.Station{
		{
			Name:       "Central Police Station (Simulated)",
			Address:    "Near IIT Kharagpur, West Bengal",
			Coordinate: location.Coordinate{Lat: 22.3146, Lon: 87.3106},
		},
		{
			Name:       "Town Police Station (Simulated)",
			Address:    "Kharagpur Town, West Bengal",
			Coordinate: location.Coordinate{Lat: 22.3270, Lon: 87.3190},
		},
		{
			Name:       "Hijli Police Station (Simulated)",
			Address:    "Hijli, Kharagpur, West Bengal",
			Coordinate: location.Coordinate{Lat: 22.3450, Lon: 87.3000},
		},
	}
}
