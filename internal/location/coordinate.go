package location

import (
	"fmt"
	"strconv"
)

// Coordinate is a position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// String formats the coordinate the way the location status line shows it.
func (c Coordinate) String() string {
	return fmt.Sprintf("Lat %.5f, Lon %.5f", c.Lat, c.Lon)
}

// Param renders "lat,lon" with the shortest exact decimal representation.
func (c Coordinate) Param() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}
