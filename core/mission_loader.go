// core/mission_loader.go
package core

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/signalsfoundry/conops-simulator/model"
)

// Mission is everything a simulation run needs beyond the ephemeris: the
// attitude control parameters, the safe-mode attitude, ground stations,
// the battery, fault thresholds, and the per-mode power budget.
type Mission struct {
	Name     string
	Attitude AttitudeControl
	Safe     ACSConfig
	Stations []model.GroundStation
	Targets  []model.Target
	Battery  *Battery
	Faults   *FaultManagement
	SAA      SAARegion

	LoadPower    map[string]float64
	NominalPower float64
	SolarPower   float64

	MinPassLength   time.Duration
	MinElevationDeg float64
}

// internal JSON shapes. Kept unexported so the file format can evolve
// without touching callers.
type missionJSON struct {
	Name     string               `json:"name"`
	Attitude *AttitudeControl     `json:"attitude_control"`
	Safe     safeJSON             `json:"safe_mode"`
	Stations []groundStationJSON  `json:"ground_stations"`
	Targets  []targetJSON         `json:"targets"`
	Battery  *batteryJSON         `json:"battery"`
	Faults   []faultThresholdJSON `json:"fault_thresholds"`
	SAA      *saaJSON             `json:"saa_region"`
	Power    *powerJSON           `json:"power"`
	Passes   *passesJSON          `json:"passes"`
}

type safeJSON struct {
	RA       *float64 `json:"ra"`
	Dec      *float64 `json:"dec"`
	TargetID int      `json:"target_id"`
}

type groundStationJSON struct {
	Code                string  `json:"code"`
	Name                string  `json:"name"`
	LatitudeDeg         float64 `json:"latitude_deg"`
	LongitudeDeg        float64 `json:"longitude_deg"`
	ElevationM          float64 `json:"elevation_m"`
	MinElevationDeg     float64 `json:"min_elevation_deg"`
	ScheduleProbability float64 `json:"schedule_probability"`
}

type targetJSON struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	RA    float64 `json:"ra"`
	Dec   float64 `json:"dec"`
	Merit float64 `json:"merit"`
}

type batteryJSON struct {
	Name                string  `json:"name"`
	AmpHour             float64 `json:"amp_hour"`
	Voltage             float64 `json:"voltage"`
	MaxDepthOfDischarge float64 `json:"max_depth_of_discharge"`
	RechargeThreshold   float64 `json:"recharge_threshold"`
}

type faultThresholdJSON struct {
	Name      string  `json:"name"`
	Yellow    float64 `json:"yellow"`
	Red       float64 `json:"red"`
	Direction string  `json:"direction"` // "below" | "above"
}

type saaJSON struct {
	LatMinDeg float64 `json:"lat_min_deg"`
	LatMaxDeg float64 `json:"lat_max_deg"`
	LonMinDeg float64 `json:"lon_min_deg"`
	LonMaxDeg float64 `json:"lon_max_deg"`
}

type powerJSON struct {
	NominalW float64            `json:"nominal_w"`
	SolarW   float64            `json:"solar_w"`
	ByMode   map[string]float64 `json:"by_mode_w"`
}

type passesJSON struct {
	MinLengthSec    float64 `json:"min_length_sec"`
	MinElevationDeg float64 `json:"min_elevation_deg"`
}

// LoadMission reads a JSON mission description from r. The safe-mode
// attitude is mandatory: a mission without one cannot protect the
// spacecraft, so decoding fails rather than defaulting it.
//
// It fails only on JSON and structural errors; parameter plausibility is
// the mission author's problem.
func LoadMission(r io.Reader) (*Mission, error) {
	var payload missionJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadMission: decode failed: %w", err)
	}

	if payload.Safe.RA == nil || payload.Safe.Dec == nil {
		return nil, fmt.Errorf("LoadMission: safe_mode.ra and safe_mode.dec are required")
	}

	mission := &Mission{
		Name:            payload.Name,
		Attitude:        DefaultAttitudeControl(),
		SAA:             DefaultSAARegion(),
		NominalPower:    253,
		SolarPower:      800,
		MinPassLength:   8 * time.Minute,
		MinElevationDeg: 10,
	}

	if payload.Attitude != nil {
		mission.Attitude = *payload.Attitude
	}

	mission.Safe = ACSConfig{
		AttitudeControl: mission.Attitude,
		SafePointing:    model.RaDec{RA: *payload.Safe.RA, Dec: *payload.Safe.Dec},
		SafeTargetID:    payload.Safe.TargetID,
	}

	for _, js := range payload.Stations {
		if js.Code == "" {
			return nil, fmt.Errorf("LoadMission: ground station with empty code")
		}
		prob := js.ScheduleProbability
		if prob <= 0 {
			prob = 1
		}
		mission.Stations = append(mission.Stations, model.GroundStation{
			Code:                js.Code,
			Name:                js.Name,
			LatitudeDeg:         js.LatitudeDeg,
			LongitudeDeg:        js.LongitudeDeg,
			ElevationM:          js.ElevationM,
			MinElevationDeg:     js.MinElevationDeg,
			ScheduleProbability: prob,
		})
	}

	for _, js := range payload.Targets {
		if js.ID <= 0 {
			return nil, fmt.Errorf("LoadMission: target %q needs a positive id", js.Name)
		}
		mission.Targets = append(mission.Targets, model.Target{
			ID:       js.ID,
			Name:     js.Name,
			Pointing: model.RaDec{RA: js.RA, Dec: js.Dec},
			Merit:    js.Merit,
		})
	}

	if payload.Battery != nil {
		b := NewBattery(payload.Battery.AmpHour, payload.Battery.Voltage)
		if payload.Battery.Name != "" {
			b.Name = payload.Battery.Name
		}
		if payload.Battery.MaxDepthOfDischarge > 0 {
			b.MaxDepthOfDischarge = payload.Battery.MaxDepthOfDischarge
		}
		if payload.Battery.RechargeThreshold > 0 {
			b.RechargeThreshold = payload.Battery.RechargeThreshold
		}
		mission.Battery = b
	}

	if len(payload.Faults) > 0 {
		fm := NewFaultManagement(nil)
		for _, js := range payload.Faults {
			if js.Name == "" {
				return nil, fmt.Errorf("LoadMission: fault threshold with empty name")
			}
			fm.AddThreshold(js.Name, js.Yellow, js.Red, directionFromString(js.Direction))
		}
		mission.Faults = fm
	}

	if payload.SAA != nil {
		mission.SAA = SAARegion{
			MinLatitude:  payload.SAA.LatMinDeg,
			MaxLatitude:  payload.SAA.LatMaxDeg,
			MinLongitude: payload.SAA.LonMinDeg,
			MaxLongitude: payload.SAA.LonMaxDeg,
		}
	}

	if payload.Power != nil {
		if payload.Power.NominalW > 0 {
			mission.NominalPower = payload.Power.NominalW
		}
		if payload.Power.SolarW > 0 {
			mission.SolarPower = payload.Power.SolarW
		}
		mission.LoadPower = payload.Power.ByMode
	}

	if payload.Passes != nil {
		if payload.Passes.MinLengthSec > 0 {
			mission.MinPassLength = time.Duration(payload.Passes.MinLengthSec * float64(time.Second))
		}
		if payload.Passes.MinElevationDeg > 0 {
			mission.MinElevationDeg = payload.Passes.MinElevationDeg
		}
	}

	return mission, nil
}

// directionFromString maps the JSON "direction" string to the threshold
// direction constants. Unknown and empty values default to "below", the
// common case for charge-like quantities.
func directionFromString(s string) ThresholdDirection {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "above", "over", "high":
		return DirectionAbove
	default:
		return DirectionBelow
	}
}
