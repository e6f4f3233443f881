package units

import "math"

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 { return deg * math.Pi / 180 }

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 { return rad * 180 / math.Pi }

// SphericalToCartesian converts a sensor observation (range in metres,
// azimuth and elevation in degrees) to east/north/up coordinates. Azimuth is
// measured clockwise from north (+Y), elevation up from the horizontal plane.
func SphericalToCartesian(rangeM, azimuthDeg, elevationDeg float64) (x, y, z float64) {
	az := DegToRad(azimuthDeg)
	el := DegToRad(elevationDeg)
	ground := rangeM * math.Cos(el)
	return ground * math.Sin(az), ground * math.Cos(az), rangeM * math.Sin(el)
}

// CartesianToSpherical is the inverse of SphericalToCartesian. Azimuth is
// returned in [0, 360).
func CartesianToSpherical(x, y, z float64) (rangeM, azimuthDeg, elevationDeg float64) {
	ground := math.Hypot(x, y)
	rangeM = math.Hypot(ground, z)
	azimuthDeg = RadToDeg(math.Atan2(x, y))
	if azimuthDeg < 0 {
		azimuthDeg += 360
	}
	elevationDeg = RadToDeg(math.Atan2(z, ground))
	return rangeM, azimuthDeg, elevationDeg
}

// SphericalJacobian returns the row-major 3x3 Jacobian of
// SphericalToCartesian with respect to (range, azimuth rad, elevation rad).
// It is used to carry range/angle sigmas into Cartesian covariance.
func SphericalJacobian(rangeM, azimuthDeg, elevationDeg float64) [9]float64 {
	az := DegToRad(azimuthDeg)
	el := DegToRad(elevationDeg)
	sa, ca := math.Sin(az), math.Cos(az)
	se, ce := math.Sin(el), math.Cos(el)
	return [9]float64{
		ce * sa, rangeM * ce * ca, -rangeM * se * sa,
		ce * ca, -rangeM * ce * sa, -rangeM * se * ca,
		se, 0, rangeM * ce,
	}
}
