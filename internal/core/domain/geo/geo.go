package geo

import (
	"fmt"
	"strconv"
	"strings"
)

// Viewport is a map bounding box as reported by the client.
type Viewport struct {
	South float64
	North float64
	West  float64
	East  float64
}

// ZoneID buckets a coordinate into a coarse grid cell by rounding both
// axes to one decimal place (~11 km). Two nearby users straddling a cell
// boundary land in different zones; that is an accepted limitation of the
// partitioning, not something to paper over with geohashing.
func ZoneID(lat, lng float64) string {
	return fmt.Sprintf("%.1f_%.1f", lat, lng)
}

// ParseZoneID recovers the cell coordinates from a lat_lng zone id.
// ok=false for ids that are not coordinate buckets (e.g. private room ids).
func ParseZoneID(zoneID string) (lat, lng float64, ok bool) {
	parts := strings.SplitN(zoneID, "_", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}
