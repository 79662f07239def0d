package parking

import (
	"math"
	"testing"
)

func TestMTMToWGS84CentralMeridian(t *testing.T) {
	// x at the false easting sits exactly on the central meridian.
	lat, lon := MTMToWGS84(304800, 5040000)

	if math.Abs(lon-(-73.5)) > 1e-6 {
		t.Errorf("expected lon -73.5 on central meridian, got %f", lon)
	}
	if lat < 45 || lat > 46 {
		t.Errorf("expected a Montreal-range latitude, got %f", lat)
	}
}

func TestMTMToWGS84MontrealRange(t *testing.T) {
	// Coordinates from a downtown station in the source dataset.
	lat, lon := MTMToWGS84(298350.5, 5039850.2)

	if lat < 45.3 || lat > 45.8 {
		t.Errorf("lat %f outside Montreal range", lat)
	}
	if lon < -74.0 || lon > -73.3 {
		t.Errorf("lon %f outside Montreal range", lon)
	}
}

func TestMTMToWGS84EastOfMeridian(t *testing.T) {
	_, lonWest := MTMToWGS84(298000, 5040000)
	_, lonEast := MTMToWGS84(310000, 5040000)

	if lonWest >= -73.5 {
		t.Errorf("x west of false easting should give lon < -73.5, got %f", lonWest)
	}
	if lonEast <= -73.5 {
		t.Errorf("x east of false easting should give lon > -73.5, got %f", lonEast)
	}
	if lonEast <= lonWest {
		t.Errorf("longitude should increase with x: %f vs %f", lonWest, lonEast)
	}
}

func TestMTMToWGS84LatitudeIncreasesWithY(t *testing.T) {
	latSouth, _ := MTMToWGS84(304800, 5030000)
	latNorth, _ := MTMToWGS84(304800, 5050000)

	if latNorth <= latSouth {
		t.Errorf("latitude should increase with y: %f vs %f", latSouth, latNorth)
	}
}
