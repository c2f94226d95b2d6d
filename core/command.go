// core/command.go
package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/signalsfoundry/conops-simulator/model"
)

// CommandType enumerates the state transitions the ACS can be asked to make.
type CommandType int

const (
	CommandSlewToTarget CommandType = iota
	CommandStartPass
	CommandEndPass
	CommandStartBatteryCharge
	CommandEndBatteryCharge
	CommandEnterSafeMode
)

func (c CommandType) String() string {
	switch c {
	case CommandSlewToTarget:
		return "SLEW_TO_TARGET"
	case CommandStartPass:
		return "START_PASS"
	case CommandEndPass:
		return "END_PASS"
	case CommandStartBatteryCharge:
		return "START_BATTERY_CHARGE"
	case CommandEndBatteryCharge:
		return "END_BATTERY_CHARGE"
	case CommandEnterSafeMode:
		return "ENTER_SAFE_MODE"
	default:
		return fmt.Sprintf("COMMAND(%d)", int(c))
	}
}

// Command is one queued ACS state transition. Which fields are meaningful
// depends on Type: SlewToTarget and StartPass carry a Maneuver payload,
// StartBatteryCharge carries an explicit pointing and target id, the rest
// carry only an execution time. A command is consumed exactly once;
// ownership transfers into the queue on enqueue.
type Command struct {
	Type          CommandType
	ExecutionTime time.Time

	Maneuver Maneuver
	Pointing model.RaDec
	Target   int
}

// NewSlewCommand wraps a slew for queue submission at its scheduled start.
func NewSlewCommand(s *Slew) *Command {
	return &Command{Type: CommandSlewToTarget, ExecutionTime: s.StartTime, Maneuver: s}
}

// NewStartPassCommand wraps a pass for queue submission at the required
// pre-slew start time.
func NewStartPassCommand(p *Pass, executionTime time.Time) *Command {
	return &Command{Type: CommandStartPass, ExecutionTime: executionTime, Maneuver: p}
}

// CommandQueue keeps pending commands ordered by execution time, stable on
// ties (first enqueued executes first). Unbounded, not persisted, owned
// exclusively by the ACS.
type CommandQueue struct {
	items []*Command
}

// Enqueue inserts cmd, preserving ascending execution-time order. Equal
// times keep enqueue order.
func (q *CommandQueue) Enqueue(cmd *Command) {
	i := sort.Search(len(q.items), func(i int) bool {
		return q.items[i].ExecutionTime.After(cmd.ExecutionTime)
	})
	q.items = append(q.items, nil)
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = cmd
}

// DrainDue removes and returns every command with execution time <= now, in
// execution-time order. A drained command is never redrained.
func (q *CommandQueue) DrainDue(now time.Time) []*Command {
	n := 0
	for n < len(q.items) && !q.items[n].ExecutionTime.After(now) {
		n++
	}
	if n == 0 {
		return nil
	}
	due := make([]*Command, n)
	copy(due, q.items[:n])
	q.items = q.items[n:]
	return due
}

// Len returns the number of pending commands.
func (q *CommandQueue) Len() int {
	return len(q.items)
}
