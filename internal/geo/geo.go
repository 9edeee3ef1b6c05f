package geo

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateInput is returned when a surface point cannot be projected
// onto the sphere (zero-length or non-finite vector).
var ErrDegenerateInput = errors.New("degenerate surface point")

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks that the point lies within the geographic ranges.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return ErrInvalidLatitude
	}
	if math.IsNaN(p.Lon) || p.Lon < -180 || p.Lon > 180 {
		return ErrInvalidLongitude
	}
	return nil
}

// String renders the point as "lat, lon" with two decimals. It doubles as the
// display label for places the provider could not name.
func (p Point) String() string {
	return fmt.Sprintf("%.2f, %.2f", p.Lat, p.Lon)
}

// FromSurfacePoint converts a point on (or near) a sphere centred at the
// origin into latitude and longitude. The y axis points to the north pole and
// longitude is measured from +x towards +z.
func FromSurfacePoint(x, y, z float64) (Point, error) {
	r := math.Sqrt(x*x + y*y + z*z)
	if r == 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return Point{}, ErrDegenerateInput
	}

	nx, ny, nz := x/r, y/r, z/r

	// ny can land a hair outside [-1, 1] after normalisation.
	ny = math.Max(-1, math.Min(1, ny))

	lon := math.Atan2(nz, nx) * 180 / math.Pi
	if lon == -180 {
		// atan2(-0, x<0) yields -180; the antimeridian is reported as +180.
		lon = 180
	}

	return Point{
		Lat: math.Asin(ny) * 180 / math.Pi,
		Lon: lon,
	}, nil
}
