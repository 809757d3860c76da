package location

import "github.com/mmcloughlin/geohash"

// DefaultGeohashPrecision is roughly a 150m cell.
const DefaultGeohashPrecision = 7

// Geohash encodes the coordinate at the given precision (1-12 characters).
func (c Coordinate) Geohash(precision uint) string {
	if precision == 0 || precision > 12 {
		precision = DefaultGeohashPrecision
	}
	return geohash.EncodeWithPrecision(c.Lat, c.Lon, precision)
}

// DecodeGeohash returns the center of the geohash cell.
func DecodeGeohash(hash string) (Coordinate, error) {
	if err := geohash.Validate(hash); err != nil {
		return Coordinate{}, err
	}
	lat, lon := geohash.DecodeCenter(hash)
	return Coordinate{Lat: lat, Lon: lon}, nil
}
