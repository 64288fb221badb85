package domain

import (
	"fmt"
	"math"
)

const earthRadiusMeters = 6371000.0

// Immutable geographic coordinates (latitude, longitude) in decimal degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Validate reports whether the coordinates lie on the globe.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return fmt.Errorf("coordinates: NaN component")
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("coordinates: latitude %v out of range", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("coordinates: longitude %v out of range", c.Lon)
	}
	return nil
}

// Return coordinates as "lat,lng" for query-string APIs.
func (c Coordinates) String() string { return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon) }

// Key rounds to 4 decimals (~11m) so nearby requests share cache entries.
func (c Coordinates) Key() string { return fmt.Sprintf("%.4f:%.4f", c.Lat, c.Lon) }

// DistanceMeters returns the great-circle (haversine) distance to other.
func (c Coordinates) DistanceMeters(other Coordinates) float64 {
	lat1 := toRadians(c.Lat)
	lat2 := toRadians(other.Lat)
	dLat := lat2 - lat1
	dLon := toRadians(other.Lon - c.Lon)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BoundingBox returns the lat/lon box that fully contains a circle of
// radiusMeters around c. Used as a cheap SQL prefilter before haversine.
func (c Coordinates) BoundingBox(radiusMeters float64) (minLat, maxLat, minLon, maxLon float64) {
	dLat := radiusMeters / earthRadiusMeters * 180 / math.Pi
	cosLat := math.Cos(toRadians(c.Lat))
	dLon := 180.0
	if cosLat > 1e-9 {
		dLon = math.Min(180, dLat/cosLat)
	}
	return c.Lat - dLat, c.Lat + dLat, c.Lon - dLon, c.Lon + dLon
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
