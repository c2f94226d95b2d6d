// core/ephemeris.go
package core

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/conops-simulator/model"
)

// Ephemeris supplies the spacecraft trajectory to the ACS.
type Ephemeris interface {
	// EarthPointing is the sub-spacecraft (nadir) celestial direction at t,
	// used as the bootstrap pointing before any maneuver has run.
	EarthPointing(t time.Time) model.RaDec
	// StepSize is the ephemeris sample interval.
	StepSize() time.Duration
}

// Constraint answers pointing feasibility questions. Oracles are opaque to
// the ACS; it only branches on the booleans.
type Constraint interface {
	// InEclipse reports whether the spacecraft is in Earth's shadow at t.
	InEclipse(ra, dec float64, t time.Time) bool
	// InOccultation reports whether the given celestial direction is blocked
	// by the Earth at t.
	InOccultation(ra, dec float64, t time.Time) bool
}

// SAAPredicate reports whether the spacecraft is inside the South Atlantic
// Anomaly region at t.
type SAAPredicate interface {
	InSAA(t time.Time) bool
}

// SAARegion is a latitude/longitude box approximating the South Atlantic
// Anomaly. Degrees; longitudes in [-180, 180].
type SAARegion struct {
	MinLatitude  float64 `json:"min_latitude"`
	MaxLatitude  float64 `json:"max_latitude"`
	MinLongitude float64 `json:"min_longitude"`
	MaxLongitude float64 `json:"max_longitude"`
}

// DefaultSAARegion covers the broad anomaly footprint over the South
// Atlantic.
func DefaultSAARegion() SAARegion {
	return SAARegion{
		MinLatitude:  -50,
		MaxLatitude:  0,
		MinLongitude: -90,
		MaxLongitude: 40,
	}
}

// Contains reports whether the geodetic point falls inside the region.
func (r SAARegion) Contains(latDeg, lonDeg float64) bool {
	return latDeg >= r.MinLatitude && latDeg <= r.MaxLatitude &&
		lonDeg >= r.MinLongitude && lonDeg <= r.MaxLongitude
}

// TLEEphemeris is an SGP4-propagated spacecraft trajectory sampled on a
// fixed step over [begin, end]. It implements Ephemeris, Constraint, and
// SAAPredicate from precomputed samples so per-tick queries are O(1).
type TLEEphemeris struct {
	begin time.Time
	end   time.Time
	step  time.Duration

	times []time.Time
	pos   []Vec3        // ECI kilometres
	gmst  []float64     // radians
	earth []model.RaDec // nadir directions
	lat   []float64     // geocentric degrees
	lon   []float64     // east degrees, [-180, 180]
	sun   []Vec3        // unit vector toward the Sun, ECI

	saa SAARegion
}

// NewTLEEphemeris propagates the TLE across [begin, end] at the given step.
// The TLE is validated first: the underlying SGP4 library terminates the
// process on malformed input.
func NewTLEEphemeris(line1, line2 string, begin, end time.Time, step time.Duration) (*TLEEphemeris, error) {
	if err := validateTLELines(line1, line2); err != nil {
		return nil, fmt.Errorf("invalid TLE: %w", err)
	}
	if step <= 0 {
		return nil, fmt.Errorf("ephemeris step must be positive, got %s", step)
	}
	if !end.After(begin) {
		return nil, fmt.Errorf("ephemeris end %s not after begin %s", end, begin)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed: code=%d %s", sat.Error, sat.ErrorStr)
	}

	e := &TLEEphemeris{
		begin: begin.UTC(),
		end:   end.UTC(),
		step:  step,
		saa:   DefaultSAARegion(),
	}

	for t := e.begin; !t.After(e.end); t = t.Add(step) {
		year, month, day := t.Date()
		hour, min, sec := t.Clock()

		posECI, _ := satellite.Propagate(sat, year, int(month), day, hour, min, sec)
		if math.IsNaN(posECI.X) || math.IsInf(posECI.X, 0) {
			return nil, fmt.Errorf("sgp4 propagation failed at %s", t)
		}
		gmst := satellite.GSTimeFromDate(year, int(month), day, hour, min, sec)

		p := Vec3{X: posECI.X, Y: posECI.Y, Z: posECI.Z}
		e.times = append(e.times, t)
		e.pos = append(e.pos, p)
		e.gmst = append(e.gmst, gmst)

		// Nadir: the direction from the spacecraft to the geocentre.
		e.earth = append(e.earth, RaDecFromVector(p.Scale(-1)))

		r := p.Norm()
		lat := math.Asin(p.Z/r) * radToDeg
		lon := normalizeLongitude(math.Atan2(p.Y, p.X)*radToDeg - gmst*radToDeg)
		e.lat = append(e.lat, lat)
		e.lon = append(e.lon, lon)

		e.sun = append(e.sun, sunDirection(t))
	}

	return e, nil
}

// SetSAARegion overrides the default anomaly footprint.
func (e *TLEEphemeris) SetSAARegion(r SAARegion) {
	e.saa = r
}

// StepSize implements Ephemeris.
func (e *TLEEphemeris) StepSize() time.Duration {
	return e.step
}

// Begin returns the first sample time.
func (e *TLEEphemeris) Begin() time.Time { return e.begin }

// End returns the time of the last sample.
func (e *TLEEphemeris) End() time.Time { return e.times[len(e.times)-1] }

// Len returns the sample count.
func (e *TLEEphemeris) Len() int { return len(e.times) }

// TimeAt returns the i-th sample time.
func (e *TLEEphemeris) TimeAt(i int) time.Time { return e.times[i] }

// PositionAt returns the i-th ECI position in kilometres.
func (e *TLEEphemeris) PositionAt(i int) Vec3 { return e.pos[i] }

// GMSTAt returns the i-th Greenwich mean sidereal time in radians.
func (e *TLEEphemeris) GMSTAt(i int) float64 { return e.gmst[i] }

// EarthPointing implements Ephemeris.
func (e *TLEEphemeris) EarthPointing(t time.Time) model.RaDec {
	return e.earth[e.index(t)]
}

// Position returns the spacecraft ECI position at t in kilometres.
func (e *TLEEphemeris) Position(t time.Time) Vec3 {
	return e.pos[e.index(t)]
}

// SunPointing returns the direction toward the Sun at t, the natural
// attitude for battery charging.
func (e *TLEEphemeris) SunPointing(t time.Time) model.RaDec {
	return RaDecFromVector(e.sun[e.index(t)])
}

// InEclipse implements Constraint with a cylindrical Earth-shadow model:
// the spacecraft is eclipsed when it is on the night side and within one
// Earth radius of the anti-sun axis. The pointing arguments are accepted
// for interface symmetry; shadow state depends only on the orbit.
func (e *TLEEphemeris) InEclipse(ra, dec float64, t time.Time) bool {
	i := e.index(t)
	p := e.pos[i]
	s := e.sun[i]

	along := p.Dot(s)
	if along >= 0 {
		return false
	}
	perp := p.Sub(s.Scale(along))
	return perp.Norm() < EarthRadiusKm
}

// InOccultation implements Constraint: the target direction is unusable
// when the Earth blocks it.
func (e *TLEEphemeris) InOccultation(ra, dec float64, t time.Time) bool {
	i := e.index(t)
	dir := UnitVector(model.RaDec{RA: ra, Dec: dec})
	return earthBlocks(e.pos[i], dir)
}

// InSAA implements SAAPredicate from the sub-spacecraft ground point.
func (e *TLEEphemeris) InSAA(t time.Time) bool {
	i := e.index(t)
	return e.saa.Contains(e.lat[i], e.lon[i])
}

// index maps t to the nearest preceding sample, clamped to the valid range.
func (e *TLEEphemeris) index(t time.Time) int {
	if t.Before(e.begin) {
		return 0
	}
	i := int(t.Sub(e.begin) / e.step)
	if i >= len(e.times) {
		return len(e.times) - 1
	}
	return i
}

// validateTLELines performs basic format validation so garbage never
// reaches the SGP4 parser.
func validateTLELines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got %q", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got %q", line2[0])
	}
	return nil
}

// sunDirection returns the unit vector toward the Sun in ECI at t, using a
// low-precision solar ephemeris (adequate for shadow-cone tests).
func sunDirection(t time.Time) Vec3 {
	jd := julianDate(t.UTC())
	n := jd - 2451545.0

	meanLon := math.Mod(280.460+0.9856474*n, 360)
	meanAnom := math.Mod(357.528+0.9856003*n, 360) * degToRad
	eclipticLon := (meanLon + 1.915*math.Sin(meanAnom) + 0.020*math.Sin(2*meanAnom)) * degToRad
	obliquity := (23.439 - 4e-7*n) * degToRad

	return Vec3{
		X: math.Cos(eclipticLon),
		Y: math.Cos(obliquity) * math.Sin(eclipticLon),
		Z: math.Sin(obliquity) * math.Sin(eclipticLon),
	}
}

// julianDate converts a UTC time to Julian Date.
func julianDate(t time.Time) float64 {
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour())
	min := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9

	if m <= 2 {
		y--
		m += 12
	}
	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + b - 1524.5
	jd += (h + min/60.0 + s/3600.0) / 24.0
	return jd
}

// normalizeLongitude wraps a longitude into [-180, 180).
func normalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon >= 180 {
		lon -= 360
	} else if lon < -180 {
		lon += 360
	}
	return lon
}
