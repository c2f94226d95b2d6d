package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/conops-simulator/core"
	"github.com/signalsfoundry/conops-simulator/internal/logging"
	"github.com/signalsfoundry/conops-simulator/internal/observability"
	"github.com/signalsfoundry/conops-simulator/model"
	"github.com/signalsfoundry/conops-simulator/timectrl"
)

// ISS TLE, good enough as a stand-in low Earth orbit.
const (
	defaultTLE1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	defaultTLE2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

func main() {
	missionPath := flag.String("mission", "configs/mission.json", "path to the mission JSON")
	tle1 := flag.String("tle1", defaultTLE1, "TLE line 1")
	tle2 := flag.String("tle2", defaultTLE2, "TLE line 2")
	startRaw := flag.String("start", "", "simulation start (RFC3339 UTC); defaults to now")
	duration := flag.Duration("duration", 6*time.Hour, "total simulation duration")
	tick := flag.Duration("tick", 10*time.Second, "tick interval")
	accelerated := flag.Bool("accelerated", true, "run in accelerated mode (vs real-time)")
	metricsAddr := flag.String("metrics-addr", "", "listen address for /metrics (empty disables)")
	seed := flag.Int64("seed", 1, "seed for contact scheduling probability")

	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "tracing init failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	start := time.Now().UTC().Truncate(time.Second)
	if *startRaw != "" {
		parsed, err := time.Parse(time.RFC3339, *startRaw)
		if err != nil {
			log.Error(ctx, "bad -start value", logging.String("error", err.Error()))
			os.Exit(1)
		}
		start = parsed.UTC()
	}

	f, err := os.Open(*missionPath)
	if err != nil {
		log.Error(ctx, "open mission file", logging.String("path", *missionPath), logging.String("error", err.Error()))
		os.Exit(1)
	}
	mission, err := core.LoadMission(f)
	f.Close()
	if err != nil {
		log.Error(ctx, "load mission", logging.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info(ctx, "mission loaded",
		logging.String("name", mission.Name),
		logging.Int("stations", len(mission.Stations)),
		logging.Int("targets", len(mission.Targets)),
	)

	ephem, err := core.NewTLEEphemeris(*tle1, *tle2, start, start.Add(*duration), *tick)
	if err != nil {
		log.Error(ctx, "build ephemeris", logging.String("error", err.Error()))
		os.Exit(1)
	}
	ephem.SetSAARegion(mission.SAA)

	acs, err := core.NewACS(ephem, ephem, mission.Safe, log)
	if err != nil {
		log.Error(ctx, "build acs", logging.String("error", err.Error()))
		os.Exit(1)
	}
	acs.SetSAA(ephem)

	var missionMetrics *observability.MissionCollector
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		acsMetrics, err := observability.NewACSCollector(reg)
		if err != nil {
			log.Error(ctx, "register acs metrics", logging.String("error", err.Error()))
			os.Exit(1)
		}
		missionMetrics, err = observability.NewMissionCollector(reg)
		if err != nil {
			log.Error(ctx, "register mission metrics", logging.String("error", err.Error()))
			os.Exit(1)
		}
		acs.SetMetrics(acsMetrics)

		go func() {
			log.Info(ctx, "serving metrics", logging.String("addr", *metricsAddr))
			if err := http.ListenAndServe(*metricsAddr, acsMetrics.Handler()); err != nil {
				log.Error(ctx, "metrics server stopped", logging.String("error", err.Error()))
			}
		}()
	}

	schedule := acs.Schedule()
	schedule.Seed(*seed)
	schedule.MinElevationDeg = mission.MinElevationDeg
	schedule.MinLength = mission.MinPassLength

	genStart := time.Now()
	found := schedule.Generate(ephem, mission.Stations)
	missionMetrics.ObservePassGeneration(time.Since(genStart))
	missionMetrics.SetPassesScheduled(len(schedule.Passes()))
	log.Info(ctx, "contact windows generated", logging.Int("count", found))

	engine := core.NewSimulationEngine(acs, mission.Battery, mission.Faults, *tick, log)
	engine.ChargePointing = ephem.SunPointing
	engine.LoadPower = mission.LoadPower
	engine.NominalPower = mission.NominalPower
	engine.SolarPower = mission.SolarPower
	engine.OnPassStart = func(p *core.Pass) {
		missionMetrics.ObservePassLateness(p.Lateness)
	}
	if mission.Battery != nil {
		engine.RegisterTickListener(func(time.Time) {
			missionMetrics.SetBatterySOC(mission.Battery.Level())
		})
	}

	mode := timectrl.RealTime
	if *accelerated {
		mode = timectrl.Accelerated
	}
	tc := timectrl.NewTimeController(start, *tick, mode)
	tc.AddListener(planScience(acs, mission.Targets, start, *duration))
	tc.AddListener(engine.Step)
	tc.AddListener(func(now time.Time) {
		p := acs.Pointing()
		fmt.Printf("[%s] mode=%-8s ra=%7.2f dec=%6.2f queue=%d\n",
			now.Format(time.RFC3339), acs.Mode(), p.RA, p.Dec, acs.QueueLen())
	})

	log.Info(ctx, "starting simulation",
		logging.String("start", start.Format(time.RFC3339)),
		logging.String("duration", duration.String()),
		logging.String("tick", tick.String()),
	)
	<-tc.Start(*duration)

	log.Info(ctx, "simulation complete",
		logging.Int("commands_executed", len(acs.ExecutedCommands())),
		logging.Int("slews", len(acs.SlewDistances())),
	)
}

// planScience returns a tick listener that spreads slew requests to the
// mission targets across the run, highest merit first. A real mission
// planner would consider visibility and priority windows; spacing by merit
// order is enough to drive the spacecraft.
func planScience(acs *core.ACS, targets []model.Target, start time.Time, duration time.Duration) func(time.Time) {
	if len(targets) == 0 {
		return func(time.Time) {}
	}
	ordered := make([]model.Target, len(targets))
	copy(ordered, targets)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Merit > ordered[j].Merit })

	gap := duration / time.Duration(len(ordered)+1)
	next := 0
	return func(now time.Time) {
		for next < len(ordered) && !now.Before(start.Add(time.Duration(next+1)*gap)) {
			target := ordered[next]
			acs.RequestSlew(target.Pointing, target.ID, now)
			next++
		}
	}
}
