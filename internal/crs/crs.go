// Package crs converts coordinates between the geographic frame of the
// source shapefiles (NAD83), the projected metric frame used for all
// distance and area math (Wisconsin Transverse Mercator, EPSG:3071), and
// the geographic display frame served to web maps (WGS84).
//
// NAD83 and WGS84 are treated as coincident datums; the sub-meter shift
// between them is far below the analysis cell sizes this module works at.
// There is no pure-Go PROJ, so the Transverse Mercator series is computed
// directly.
package crs

import "math"

// GRS80 ellipsoid.
const (
	semiMajor  = 6378137.0
	flattening = 1.0 / 298.257222101
)

// Wisconsin TM projection parameters (EPSG:3071).
const (
	centralMeridian = -90.0 * math.Pi / 180.0
	scaleFactor     = 0.9996
	falseEasting    = 520000.0
	falseNorthing   = -4480000.0
)

var (
	e2  = flattening * (2 - flattening) // first eccentricity squared
	ep2 = e2 / (1 - e2)                 // second eccentricity squared
	e1  = (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
)

// ToMetric projects a geographic coordinate (decimal degrees, lon/lat order)
// into the metric frame. Deterministic and pure; non-finite inputs propagate
// NaN rather than panicking.
func ToMetric(lon, lat float64) (x, y float64) {
	phi := lat * math.Pi / 180.0
	lam := lon * math.Pi / 180.0

	sinPhi, cosPhi := math.Sincos(phi)
	n := semiMajor / math.Sqrt(1-e2*sinPhi*sinPhi)
	t := math.Tan(phi) * math.Tan(phi)
	c := ep2 * cosPhi * cosPhi
	a := cosPhi * (lam - centralMeridian)

	m := meridionalArc(phi)

	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	x = falseEasting + scaleFactor*n*(a+
		(1-t+c)*a3/6+
		(5-18*t+t*t+72*c-58*ep2)*a5/120)
	y = falseNorthing + scaleFactor*(m+
		n*math.Tan(phi)*(a2/2+
			(5-t+9*c+4*c*c)*a4/24+
			(61-58*t+t*t+600*c-330*ep2)*a6/720))
	return x, y
}

// ToDisplay unprojects a metric coordinate back to geographic decimal
// degrees (lon/lat order) for display output.
func ToDisplay(x, y float64) (lon, lat float64) {
	m := (y - falseNorthing) / scaleFactor
	mu := m / (semiMajor * (1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256))

	phi1 := mu +
		(3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*e1*e1*e1*e1/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu) +
		(1097*e1*e1*e1*e1/512)*math.Sin(8*mu)

	sinPhi1, cosPhi1 := math.Sincos(phi1)
	c1 := ep2 * cosPhi1 * cosPhi1
	t1 := math.Tan(phi1) * math.Tan(phi1)
	n1 := semiMajor / math.Sqrt(1-e2*sinPhi1*sinPhi1)
	r1 := semiMajor * (1 - e2) / math.Pow(1-e2*sinPhi1*sinPhi1, 1.5)
	d := (x - falseEasting) / (n1 * scaleFactor)

	d2 := d * d
	d3 := d2 * d
	d4 := d3 * d
	d5 := d4 * d
	d6 := d5 * d

	phi := phi1 - (n1 * math.Tan(phi1) / r1) * (d2/2 -
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*d4/24 +
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d6/720)
	lam := centralMeridian + (d-
		(1+2*t1+c1)*d3/6+
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d5/120)/cosPhi1

	return lam * 180.0 / math.Pi, phi * 180.0 / math.Pi
}

// meridionalArc returns the distance along the meridian from the equator to
// latitude phi (radians).
func meridionalArc(phi float64) float64 {
	e4 := e2 * e2
	e6 := e4 * e2
	return semiMajor * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}
