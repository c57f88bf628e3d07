package geofence

import (
	"math"

	"github.com/trezcool/mahadhurio/core"
)

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

type (
	// Point is a WGS84 coordinate. Callers must validate ranges
	// (validator `latitude`/`longitude` tags) before handing it here.
	Point struct {
		Latitude  float64 `json:"latitude" validate:"latitude"`
		Longitude float64 `json:"longitude" validate:"longitude"`
	}

	Result struct {
		Verified       bool    `json:"verified"`
		DistanceMeters float64 `json:"distance_meters"`
	}

	// Verifier decides whether a claimed coordinate falls within the
	// campus geofence. Safe for concurrent use.
	Verifier struct {
		anchor       Point
		radiusMeters float64
	}
)

func NewVerifier(conf *core.Config) *Verifier {
	return &Verifier{
		anchor: Point{
			Latitude:  conf.Campus.Latitude,
			Longitude: conf.Campus.Longitude,
		},
		radiusMeters: conf.Campus.RadiusMeters,
	}
}

func (v *Verifier) Verify(pt Point) Result {
	dist := Distance(pt, v.anchor)
	return Result{
		Verified:       dist <= v.radiusMeters,
		DistanceMeters: dist,
	}
}

func (v *Verifier) RadiusMeters() float64 { return v.radiusMeters }

// Distance returns the great-circle distance between two points in meters,
// using the haversine formula.
func Distance(a, b Point) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := radians(b.Latitude - a.Latitude)
	dLng := radians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
