package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZoneID(t *testing.T) {
	assert.Equal(t, "40.4_-3.7", ZoneID(40.4168, -3.7038))
	assert.Equal(t, "0.0_0.0", ZoneID(0, 0))
	assert.Equal(t, "-33.9_151.2", ZoneID(-33.8688, 151.2093))
}

func TestZoneIDBucketsNearbyPoints(t *testing.T) {
	assert.Equal(t, ZoneID(40.41, -3.70), ZoneID(40.44, -3.74))
	assert.NotEqual(t, ZoneID(40.44, -3.70), ZoneID(40.46, -3.70))
}

func TestParseZoneID(t *testing.T) {
	lat, lng, ok := ParseZoneID("40.4_-3.7")
	assert.True(t, ok)
	assert.InDelta(t, 40.4, lat, 1e-9)
	assert.InDelta(t, -3.7, lng, 1e-9)
}

func TestParseZoneIDRejectsNonCoordinateIDs(t *testing.T) {
	for _, id := range []string{"room_abc123", "nozone", "", "a_b", "1.0"} {
		_, _, ok := ParseZoneID(id)
		assert.False(t, ok, id)
	}
}
