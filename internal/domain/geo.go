package domain

import (
	"math"
	"strconv"
	"strings"
)

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BoundingBox is a min-lon, min-lat, max-lon, max-lat envelope in degrees.
type BoundingBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// PointBoundingBox builds the degenerate envelope used for point sampling:
// the coordinate padded by margin degrees on each side. The default margin
// (0.00006 degrees) makes the sampled pixel cover roughly 10-15 meters.
func PointBoundingBox(c Coordinate, margin float64) BoundingBox {
	return BoundingBox{
		MinLon: c.Lon - margin,
		MinLat: c.Lat - margin,
		MaxLon: c.Lon + margin,
		MaxLat: c.Lat + margin,
	}
}

// String renders the box in WMS BBOX parameter order.
func (b BoundingBox) String() string {
	parts := []string{
		formatDegree(b.MinLon),
		formatDegree(b.MinLat),
		formatDegree(b.MaxLon),
		formatDegree(b.MaxLat),
	}
	return strings.Join(parts, ",")
}

func formatDegree(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

const earthRadiusMeters = 6378137.0

// WebMercator projects a WGS84 coordinate to EPSG:3857 meters.
func WebMercator(c Coordinate) (x, y float64) {
	x = c.Lon * (math.Pi / 180.0) * earthRadiusMeters
	y = math.Log(math.Tan(math.Pi/4.0+c.Lat*math.Pi/360.0)) * earthRadiusMeters
	return x, y
}
