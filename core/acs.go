// core/acs.go
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/signalsfoundry/conops-simulator/internal/logging"
	"github.com/signalsfoundry/conops-simulator/model"
)

// ACSConfig is the construction-time configuration of the attitude control
// system.
type ACSConfig struct {
	AttitudeControl AttitudeControl `json:"attitude_control"`

	// SafePointing is the attitude commanded on safe mode entry. It is a
	// required mission input, not something the ACS invents.
	SafePointing model.RaDec `json:"safe_pointing"`
	SafeTargetID int         `json:"safe_target_id"`
}

// MetricsRecorder receives ACS activity for export. A nil recorder is
// silently ignored; the state machine never depends on it.
type MetricsRecorder interface {
	CommandExecuted(commandType string)
	SlewStarted(obsType string, distanceDeg, durationSec float64)
	PassRequested(accepted bool)
	PassAbandoned()
	SetMode(mode string)
	SetQueueDepth(depth int)
}

// ACS is the queue-driven attitude control state machine. It owns current
// pointing, derives the operating mode each tick, and executes queued
// maneuver, contact, and charging commands at their scheduled times.
//
// Single-owner and synchronous: collaborators only enqueue commands or read
// Tick's return value. Callers must supply non-decreasing times.
type ACS struct {
	cfg        ACSConfig
	log        logging.Logger
	ephem      Ephemeris
	constraint Constraint
	saa        SAAPredicate

	pointing  model.RaDec
	roll      float64
	mode      model.Mode
	inEclipse bool

	// inSafeMode is one-shot: collaborators observe it to suppress further
	// science commanding. The ACS itself never clears it.
	inSafeMode bool

	queue    CommandQueue
	executed []*Command

	arena         ManeuverArena
	currentID     ManeuverID
	lastID        ManeuverID
	lastScienceID ManeuverID
	currentPass   *Pass

	schedule  *PassSchedule
	metrics   MetricsRecorder
	slewDists []float64
}

// NewACS builds the state machine. The ephemeris and constraint
// collaborators are hard requirements: construction fails without them and
// the error is never recovered downstream.
func NewACS(ephem Ephemeris, constraint Constraint, cfg ACSConfig, log logging.Logger) (*ACS, error) {
	if ephem == nil {
		return nil, fmt.Errorf("acs: ephemeris must be provided")
	}
	if constraint == nil {
		return nil, fmt.Errorf("acs: constraint must be provided")
	}
	if log == nil {
		log = logging.Noop()
	}
	return &ACS{
		cfg:        cfg,
		log:        log,
		ephem:      ephem,
		constraint: constraint,
		mode:       model.ModeScience,
		schedule:   NewPassSchedule(cfg.AttitudeControl, log),
	}, nil
}

// SetSAA installs the externally-owned SAA region predicate.
func (a *ACS) SetSAA(p SAAPredicate) {
	a.saa = p
}

// SetMetrics installs a metrics recorder.
func (a *ACS) SetMetrics(m MetricsRecorder) {
	a.metrics = m
}

// Schedule exposes the ground contact schedule.
func (a *ACS) Schedule() *PassSchedule {
	return a.schedule
}

// Pointing returns the current boresight direction.
func (a *ACS) Pointing() model.RaDec {
	return a.pointing
}

// Mode returns the mode derived on the most recent tick.
func (a *ACS) Mode() model.Mode {
	return a.mode
}

// Eclipsed reports the eclipse state sampled on the most recent tick.
func (a *ACS) Eclipsed() bool {
	return a.inEclipse
}

// InSafeMode reports whether the one-shot safe mode flag is set.
func (a *ACS) InSafeMode() bool {
	return a.inSafeMode
}

// QueueLen returns the number of commands waiting in the queue.
func (a *ACS) QueueLen() int {
	return a.queue.Len()
}

// ExecutedCommands returns the append-only execution log.
func (a *ACS) ExecutedCommands() []*Command {
	return a.executed
}

// SlewDistances returns the distances of every slew built by the ACS, for
// reporting.
func (a *ACS) SlewDistances() []float64 {
	return a.slewDists
}

// Enqueue adds a command to the queue. This is the sole mutation entry
// point for collaborators.
func (a *ACS) Enqueue(cmd *Command) {
	a.queue.Enqueue(cmd)
	a.log.Debug(context.Background(), "command enqueued",
		logging.String("type", cmd.Type.String()),
		logging.Any("execution_time", cmd.ExecutionTime),
		logging.Int("queue_size", a.queue.Len()),
	)
	if a.metrics != nil {
		a.metrics.SetQueueDepth(a.queue.Len())
	}
}

// Tick advances the state machine to now and returns the current pointing
// plus the identifier of the most recently started maneuver (or the
// sentinel if none ever started).
func (a *ACS) Tick(now time.Time) (ra, dec, roll float64, targetID int) {
	// Eclipse state is sampled at a fixed reference direction; the oracle
	// only depends on the orbit.
	a.inEclipse = a.constraint.InEclipse(0, 0, now)

	a.processCommands(now)

	a.mode = a.deriveMode(now, a.inEclipse)
	if a.metrics != nil {
		a.metrics.SetMode(a.mode.String())
		a.metrics.SetQueueDepth(a.queue.Len())
	}

	a.computePointing(now)
	a.roll = a.computeRoll(now)

	if last := a.arena.Get(a.lastID); last != nil {
		return a.pointing.RA, a.pointing.Dec, a.roll, last.TargetID()
	}
	return a.pointing.RA, a.pointing.Dec, a.roll, model.SentinelTargetID
}

// CurrentMode derives the mode at now without advancing any state.
func (a *ACS) CurrentMode(now time.Time) model.Mode {
	return a.deriveMode(now, a.constraint.InEclipse(0, 0, now))
}

// CheckContacts advances contact timing at now using the current pointing
// and records contact abandonment.
func (a *ACS) CheckContacts(now time.Time) PassActions {
	actions := a.schedule.CheckTiming(now, a.pointing)
	if actions.Abandoned != nil && a.metrics != nil {
		a.metrics.PassAbandoned()
	}
	return actions
}

// RequestGroundContact adds a contact to the schedule, rejecting window
// overlaps.
func (a *ACS) RequestGroundContact(p *Pass) bool {
	ok := a.schedule.Request(p)
	if a.metrics != nil {
		a.metrics.PassRequested(ok)
	}
	return ok
}

// RequestCharge enqueues an emergency battery charge at the given pointing.
func (a *ACS) RequestCharge(at time.Time, pointing model.RaDec, targetID int) {
	a.Enqueue(&Command{
		Type:          CommandStartBatteryCharge,
		ExecutionTime: at,
		Pointing:      pointing,
		Target:        targetID,
	})
}

// RequestEndCharge enqueues termination of battery charging.
func (a *ACS) RequestEndCharge(at time.Time) {
	a.Enqueue(&Command{Type: CommandEndBatteryCharge, ExecutionTime: at})
}

// RequestSlew builds and enqueues a science slew to the given target,
// starting once any in-flight maneuver completes. Returns false (with a
// logged reason) when the target is occulted.
func (a *ACS) RequestSlew(end model.RaDec, targetID int, now time.Time) bool {
	return a.enqueueSlew(end, targetID, now, model.ObservingScience)
}

// processCommands drains and executes everything due. Executing a command
// may enqueue another due command (charging builds slews), so draining
// repeats until the queue front is in the future.
func (a *ACS) processCommands(now time.Time) {
	for {
		due := a.queue.DrainDue(now)
		if len(due) == 0 {
			return
		}
		for _, cmd := range due {
			a.execute(cmd, now)
			a.executed = append(a.executed, cmd)
			if a.metrics != nil {
				a.metrics.CommandExecuted(cmd.Type.String())
			}
		}
	}
}

func (a *ACS) execute(cmd *Command, now time.Time) {
	a.log.Info(context.Background(), "executing command",
		logging.String("type", cmd.Type.String()),
		logging.Any("time", now),
	)

	switch cmd.Type {
	case CommandSlewToTarget:
		if s, ok := cmd.Maneuver.(*Slew); ok {
			a.startManeuver(s, now)
		}
	case CommandStartPass:
		if p, ok := cmd.Maneuver.(*Pass); ok {
			a.startManeuver(p, now)
			a.currentPass = p
		}
	case CommandEndPass:
		a.endPass(now)
	case CommandStartBatteryCharge:
		a.startBatteryCharge(cmd, now)
	case CommandEndBatteryCharge:
		a.endBatteryCharge(now)
	case CommandEnterSafeMode:
		a.enterSafeMode(now)
	}
}

// startManeuver activates a maneuver: rewrites its start to the actual
// current pointing when that is known and differs, then makes it the
// current and last maneuver. Science slews also become the last science
// pointing.
func (a *ACS) startManeuver(m Maneuver, now time.Time) {
	a.adjustStart(m)

	// The first slew may already be registered (enqueueSlew keeps a
	// reference for bootstrap pointing); reuse its id in that case.
	id := a.lastID
	if a.arena.Get(id) != m {
		id = a.arena.Add(m)
	}
	a.currentID = id
	a.lastID = id

	if s, ok := m.(*Slew); ok && s.ObsType == model.ObservingScience {
		a.lastScienceID = id
	}

	if a.metrics != nil {
		a.metrics.SlewStarted(m.Tag().String(), m.Distance(), m.Duration().Seconds())
	}
	a.log.Info(context.Background(), "maneuver started",
		logging.String("obstype", m.Tag().String()),
		logging.Float64("end_ra", m.EndPointing().RA),
		logging.Float64("end_dec", m.EndPointing().Dec),
		logging.Any("duration", m.Duration()),
	)
}

// adjustStart rewrites a maneuver's start position to the current pointing.
// Skipped while pointing is still the zero bootstrap value.
func (a *ACS) adjustStart(m Maneuver) {
	var s *Slew
	switch v := m.(type) {
	case *Slew:
		s = v
	case *Pass:
		s = v.PreSlew
	default:
		return
	}
	if s.Start == a.pointing || a.pointing.IsZero() {
		return
	}
	a.log.Debug(context.Background(), "adjusting slew start to current pointing",
		logging.Float64("from_ra", s.Start.RA),
		logging.Float64("to_ra", a.pointing.RA),
	)
	s.SetStart(a.pointing)
}

// endPass closes the contact: the active-contact reference clears and the
// mode is forced back to Science. No return-to-science maneuver is queued
// here: a zero-distance return slew would corrupt path interpolation, and
// the external scheduler is responsible for the next target anyway.
func (a *ACS) endPass(now time.Time) {
	a.currentPass = nil
	a.mode = model.ModeScience

	lastScience := a.arena.Get(a.lastScienceID)
	target := model.SentinelTargetID
	if lastScience != nil {
		target = lastScience.TargetID()
	}
	a.log.Info(context.Background(), "pass over",
		logging.Int("last_science_target", target),
	)
}

func (a *ACS) startBatteryCharge(cmd *Command, now time.Time) {
	a.log.Info(context.Background(), "starting battery charge",
		logging.Float64("ra", cmd.Pointing.RA),
		logging.Float64("dec", cmd.Pointing.Dec),
		logging.Int("target", cmd.Target),
	)
	a.enqueueSlew(cmd.Pointing, cmd.Target, now, model.ObservingCharge)
}

// endBatteryCharge returns to the previous science pointing, if one ever
// existed; otherwise it is a no-op.
func (a *ACS) endBatteryCharge(now time.Time) {
	lastScience := a.arena.Get(a.lastScienceID)
	if lastScience == nil {
		a.log.Warn(context.Background(), "end battery charge with no science pointing to return to")
		return
	}
	a.log.Info(context.Background(), "ending battery charge, returning to last science pointing",
		logging.Float64("ra", lastScience.EndPointing().RA),
		logging.Float64("dec", lastScience.EndPointing().Dec),
	)
	a.enqueueSlew(lastScience.EndPointing(), lastScience.TargetID(), now, model.ObservingScience)
}

// enterSafeMode activates the configured safe attitude and latches the
// safe-mode flag. Collaborators must observe the flag to stop science
// commanding; the ACS does not police them.
func (a *ACS) enterSafeMode(now time.Time) {
	if a.inSafeMode {
		return
	}
	a.inSafeMode = true
	a.log.Warn(context.Background(), "entering safe mode",
		logging.Float64("ra", a.cfg.SafePointing.RA),
		logging.Float64("dec", a.cfg.SafePointing.Dec),
	)

	// Safe attitude is sun-favourable, so it charges while it protects.
	slew := NewSlew(a.cfg.AttitudeControl, a.pointing, a.cfg.SafePointing, now, model.ObservingCharge, a.cfg.SafeTargetID)
	a.startManeuver(slew, now)
}

// enqueueSlew builds a slew ending at the given pointing and enqueues its
// command. Science targets that are currently occulted are rejected as a
// negative result, not an error.
func (a *ACS) enqueueSlew(end model.RaDec, targetID int, now time.Time, obsType model.ObservingType) bool {
	bootstrap := a.arena.Get(a.lastID) == nil
	start := a.pointing
	if bootstrap && start.IsZero() {
		// Establish initial pointing at the sub-spacecraft point.
		start = a.ephem.EarthPointing(now)
		a.pointing = start
	}

	if obsType == model.ObservingScience && a.constraint.InOccultation(end.RA, end.Dec, now) {
		a.log.Warn(context.Background(), "slew rejected, target not visible",
			logging.Float64("ra", end.RA),
			logging.Float64("dec", end.Dec),
			logging.Int("target", targetID),
		)
		return false
	}

	executionTime := now
	if last := a.arena.Get(a.lastID); last != nil && last.InProgress(now) {
		// Wait for the in-flight maneuver to finish.
		executionTime = last.ScheduledStart().Add(last.Duration())
		a.log.Debug(context.Background(), "slewing, delaying next slew",
			logging.Any("until", executionTime),
		)
	}

	slew := NewSlew(a.cfg.AttitudeControl, start, end, executionTime, obsType, targetID)
	slew.Requested = now
	a.slewDists = append(a.slewDists, slew.Dist)

	a.Enqueue(NewSlewCommand(slew))

	if bootstrap {
		// Keep a reference so pointing interpolates from the bootstrap
		// position even before the command executes.
		a.lastID = a.arena.Add(slew)
	}
	return true
}

// deriveMode implements the mode precedence: active maneuvers first, then
// charge dwell, then contact dwell, then the SAA region, then Science.
func (a *ACS) deriveMode(now time.Time, eclipsed bool) model.Mode {
	current := a.arena.Get(a.currentID)

	if current != nil && current.InProgress(now) {
		switch current.Tag() {
		case model.ObservingGroundContact:
			return model.ModePass
		case model.ObservingCharge:
			if eclipsed {
				// No sunlight, so a charge maneuver is just a slew.
				return model.ModeSlewing
			}
			return model.ModeCharging
		default:
			return model.ModeSlewing
		}
	}

	// Dwelling at a charge pointing keeps charging until commanded away,
	// sunlight permitting.
	if last := a.arena.Get(a.lastID); last != nil && last.Tag() == model.ObservingCharge && !last.InProgress(now) && !eclipsed {
		return model.ModeCharging
	}

	if p, ok := current.(*Pass); ok && p.InContact(now) {
		return model.ModePass
	}

	if a.saa != nil && a.saa.InSAA(now) {
		return model.ModeSAA
	}

	return model.ModeScience
}

// computePointing rederives the boresight from the in-progress or most
// recent maneuver, falling back to the sub-spacecraft point when no
// maneuver ever started.
func (a *ACS) computePointing(now time.Time) {
	last := a.arena.Get(a.lastID)
	if last == nil {
		a.pointing = a.ephem.EarthPointing(now)
		return
	}
	a.pointing = last.Pointing(now)
}

// computeRoll is the roll extension point. Optimum roll depends on the
// solar panel geometry and sun angle; it is deliberately inert until a
// panel model is wired in, and the ACS reports the commanded value as-is.
func (a *ACS) computeRoll(now time.Time) float64 {
	return a.roll
}
