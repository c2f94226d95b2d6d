// core/geometry.go
package core

import (
	"math"

	"github.com/signalsfoundry/conops-simulator/model"
)

// EarthRadiusKm is the mean Earth radius used for all simple
// geometry calculations in the constraint layer (kilometres).
const EarthRadiusKm = 6371.0

const (
	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

// Vec3 is a Cartesian vector. Positions are ECI kilometres; pointing
// directions are unit vectors on the celestial sphere.
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Unit returns the normalised vector, or the zero vector for zero input.
func (v Vec3) Unit() Vec3 {
	n := v.Norm()
	if n == 0 {
		return Vec3{}
	}
	return v.Scale(1 / n)
}

// UnitVector converts a celestial pointing to a unit vector.
func UnitVector(p model.RaDec) Vec3 {
	ra := p.RA * degToRad
	dec := p.Dec * degToRad
	return Vec3{
		X: math.Cos(dec) * math.Cos(ra),
		Y: math.Cos(dec) * math.Sin(ra),
		Z: math.Sin(dec),
	}
}

// RaDecFromVector converts a direction vector back to RA/Dec degrees,
// with RA normalised to [0, 360).
func RaDecFromVector(v Vec3) model.RaDec {
	n := v.Norm()
	if n == 0 {
		return model.RaDec{}
	}
	ra := math.Atan2(v.Y, v.X) * radToDeg
	if ra < 0 {
		ra += 360
	}
	dec := math.Asin(v.Z/n) * radToDeg
	return model.RaDec{RA: ra, Dec: dec}
}

// AngularSeparation returns the great-circle angle between two pointings in
// degrees. The result is always the shorter arc, including across the RA
// wrap boundary.
func AngularSeparation(a, b model.RaDec) float64 {
	cosSep := UnitVector(a).Dot(UnitVector(b))
	if cosSep > 1 {
		cosSep = 1
	} else if cosSep < -1 {
		cosSep = -1
	}
	return math.Acos(cosSep) * radToDeg
}

// GreatCircle returns points along the shorter great-circle arc from a to b,
// evenly spaced in arc length and including both endpoints. The slice has
// steps+2 entries. Antipodal inputs pick an arbitrary but consistent arc.
func GreatCircle(a, b model.RaDec, steps int) []model.RaDec {
	if steps < 0 {
		steps = 0
	}
	va := UnitVector(a)
	vb := UnitVector(b)

	cosSep := va.Dot(vb)
	if cosSep > 1 {
		cosSep = 1
	} else if cosSep < -1 {
		cosSep = -1
	}
	sep := math.Acos(cosSep)

	n := steps + 2
	path := make([]model.RaDec, n)
	path[0] = a
	path[n-1] = b

	sinSep := math.Sin(sep)
	for i := 1; i < n-1; i++ {
		f := float64(i) / float64(n-1)
		var p Vec3
		if sinSep < 1e-12 {
			// Coincident (or numerically antipodal) endpoints: hold position.
			p = va
		} else {
			wa := math.Sin((1-f)*sep) / sinSep
			wb := math.Sin(f*sep) / sinSep
			p = Vec3{
				X: wa*va.X + wb*vb.X,
				Y: wa*va.Y + wb*vb.Y,
				Z: wa*va.Z + wb*vb.Z,
			}
		}
		path[i] = RaDecFromVector(p)
	}
	return path
}

// earthBlocks checks whether a celestial direction is blocked by the Earth
// as seen from the spacecraft at pos. Targets are at infinity, so this is a
// ray test: blocked when the ray from pos along dir passes within the Earth
// radius while heading toward it.
//
// pos is ECI kilometres, dir is a unit pointing vector.
func earthBlocks(pos Vec3, dir Vec3) bool {
	// Closest approach of the ray pos + t*dir (t >= 0) to the geocentre.
	t := -pos.Dot(dir)
	if t <= 0 {
		// Earth is behind the boresight.
		return false
	}
	closest := Vec3{
		X: pos.X + dir.X*t,
		Y: pos.Y + dir.Y*t,
		Z: pos.Z + dir.Z*t,
	}
	return closest.Dot(closest) <= EarthRadiusKm*EarthRadiusKm
}

// ElevationDegrees returns the elevation angle of the target as seen from
// the observer, in degrees. 0° = geometric horizon, 90° = overhead.
func ElevationDegrees(observer, target Vec3) float64 {
	v := target.Sub(observer)
	r := observer.Norm()
	if r == 0 {
		return 90
	}
	zenith := observer.Scale(1 / r)

	// atan2 of the vertical and horizontal components keeps precision at
	// the overhead and horizon endpoints, where acos of the angle loses it.
	up := v.Dot(zenith)
	horiz := v.Sub(zenith.Scale(up)).Norm()
	if up == 0 && horiz == 0 {
		return 90
	}
	return math.Atan2(up, horiz) * radToDeg
}
