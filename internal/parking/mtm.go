package parking

import "math"

// NAD83 / MTM zone 8 (EPSG:32188), the projection Montreal publishes its
// parking coordinates in. GRS80 ellipsoid.
const (
	mtmA      = 6378137.0       // semi-major axis
	mtmInvF   = 298.257222101   // inverse flattening
	mtmK0     = 0.9999          // scale factor on the central meridian
	mtmLon0   = -73.5           // central meridian, degrees
	mtmFalseE = 304800.0        // false easting, metres
)

// MTMToWGS84 converts MTM zone 8 easting/northing to WGS84 lat/lon using the
// standard inverse Transverse Mercator series. NAD83 and WGS84 differ by
// less than a metre here, which is below the dataset's own precision.
func MTMToWGS84(x, y float64) (lat, lon float64) {
	f := 1 / mtmInvF
	e2 := 2*f - f*f
	ep2 := e2 / (1 - e2)

	m := y / mtmK0
	mu := m / (mtmA * (1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256))

	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
	phi1 := mu +
		(3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*e1*e1*e1*e1/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu) +
		(1097*e1*e1*e1*e1/512)*math.Sin(8*mu)

	sinPhi1, cosPhi1 := math.Sin(phi1), math.Cos(phi1)
	tanPhi1 := sinPhi1 / cosPhi1

	c1 := ep2 * cosPhi1 * cosPhi1
	t1 := tanPhi1 * tanPhi1
	n1 := mtmA / math.Sqrt(1-e2*sinPhi1*sinPhi1)
	r1 := mtmA * (1 - e2) / math.Pow(1-e2*sinPhi1*sinPhi1, 1.5)
	d := (x - mtmFalseE) / (n1 * mtmK0)

	latRad := phi1 - (n1*tanPhi1/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*d*d*d*d/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d*d*d*d*d*d/720)

	lonRad := (d -
		(1+2*t1+c1)*d*d*d/6 +
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d*d*d*d*d/120) / cosPhi1

	lat = latRad * 180 / math.Pi
	lon = mtmLon0 + lonRad*180/math.Pi
	return lat, lon
}
