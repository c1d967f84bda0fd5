// Package robot implements the service-robot actor: a task-driven state
// machine that rides a car between floors, runs a cleaning round over the
// building and manages its own battery lifecycle. The robot holds a
// non-owning reference to exactly one car and reacts to its notification
// stream; it never touches car state directly.
package robot

import (
	"fmt"
	"log/slog"
	"time"

	"liftsim/src/car"
	"liftsim/src/config"
	"liftsim/src/sim"
	"liftsim/src/types"
)

// task is one pending ride order with its completion future.
type task struct {
	floor int
	done  chan error
}

type Robot struct {
	name string
	cfg  config.Config

	currentFloor int
	targetFloor  int
	status       types.RobotStatus

	battery           float64
	lastBatteryUpdate time.Time
	wantCharge        bool
	returning         bool

	visited map[int]bool

	conn  *car.Car
	clock *sim.Clock

	current *task
	queue   []*task

	waitEvent    *sim.Event
	phaseEvent   *sim.Event
	batteryEvent *sim.Event
	// waitDeadline bounds the whole wait for one pickup, surviving failed
	// boarding attempts in between.
	waitDeadline time.Time
	retried      bool

	cleaning bool
	// afterArrival runs when an internally ordered ride completes, wiring
	// the cleaning and charging loops together.
	afterArrival func()
}

func New(name string, cfg config.Config, c *car.Car, clk *sim.Clock) *Robot {
	r := &Robot{
		name:              name,
		cfg:               cfg,
		currentFloor:      cfg.ChargingFloor,
		status:            types.RobotIdle,
		battery:           cfg.BatteryCapacity,
		lastBatteryUpdate: clk.Now(),
		visited:           make(map[int]bool),
		conn:              c,
		clock:             clk,
	}
	c.Subscribe(r)
	r.batteryEvent = clk.Schedule(cfg.BatteryCheckInterval, r.batteryTick)
	slog.Info("robot initialized", "robot", name, "floor", r.currentFloor, "battery", r.battery)
	return r
}

func (r *Robot) Name() string              { return r.name }
func (r *Robot) CurrentFloor() int         { return r.currentFloor }
func (r *Robot) Status() types.RobotStatus { return r.status }
func (r *Robot) BatteryLevel() float64     { return r.battery }
func (r *Robot) VisitedFloors() map[int]bool {
	out := make(map[int]bool, len(r.visited))
	for f := range r.visited {
		out[f] = true
	}
	return out
}

// GoToFloor orders a ride and returns a future resolved on arrival. A busy
// robot queues the order. The wait for the elevator is bounded: one retry,
// then the task fails with ElevatorTimeout and the robot recovers to idle.
func (r *Robot) GoToFloor(floor int) <-chan error {
	done := make(chan error, 1)
	if floor < 1 || floor > r.conn.FloorCount() {
		done <- fmt.Errorf("robot %s: floor %d: %w", r.name, floor, types.ErrInvalidFloor)
		return done
	}
	t := &task{floor: floor, done: done}
	if r.current != nil || r.status != types.RobotIdle {
		r.queue = append(r.queue, t)
		slog.Debug("task queued", "robot", r.name, "floor", floor, "queued", len(r.queue))
		return done
	}
	r.begin(t)
	return done
}

func (r *Robot) begin(t *task) {
	if r.currentFloor == t.floor {
		t.done <- nil
		r.finishArrival()
		return
	}
	r.current = t
	r.targetFloor = t.floor
	r.retried = false
	r.waitDeadline = r.clock.Now().Add(r.cfg.ElevatorWaitTimeout)
	r.setStatus(types.RobotWaitingForElevator)
	// The car may already be standing here with the door open; board
	// directly instead of hailing, or the destination-less hail would
	// board us with a defaulted destination.
	if r.conn.CurrentFloor() == r.currentFloor && r.conn.DoorState() == types.DoorOpen {
		r.beginBoarding()
		return
	}
	r.hail()
	r.waitEvent = r.clock.Schedule(r.cfg.ElevatorWaitTimeout, r.waitTimedOut)
}

func (r *Robot) hail() {
	if _, err := r.conn.RequestFloor(r.currentFloor, types.KindRobot, r.name, 0); err != nil {
		slog.Error("hail failed", "robot", r.name, "err", err)
	}
}

func (r *Robot) waitTimedOut() {
	if r.status != types.RobotWaitingForElevator {
		return
	}
	if !r.retried {
		r.retried = true
		slog.Warn("elevator wait timed out, retrying", "robot", r.name, "floor", r.currentFloor)
		r.hail()
		r.waitDeadline = r.clock.Now().Add(r.cfg.ElevatorWaitTimeout)
		r.waitEvent = r.clock.Schedule(r.cfg.ElevatorWaitTimeout, r.waitTimedOut)
		return
	}
	slog.Error("elevator never arrived", "robot", r.name, "floor", r.currentFloor)
	if r.current != nil {
		r.current.done <- fmt.Errorf("robot %s: %w", r.name, types.ErrElevatorTimeout)
	}
	r.recover()
}

// recover resets the robot to idle, abandoning the current task. Queued tasks
// survive and the next one starts; the cleaning loop retries after a backoff.
// The charge flags are cleared too, or a failed return-to-charger ride would
// block every later one; the battery watchdog re-raises the charge request.
func (r *Robot) recover() {
	slog.Warn("robot recovering", "robot", r.name, "status", r.status)
	r.cancelTimers()
	r.current = nil
	r.targetFloor = 0
	r.afterArrival = nil
	r.returning = false
	r.wantCharge = false
	r.setStatus(types.RobotIdle)
	if len(r.queue) > 0 {
		next := r.queue[0]
		r.queue = r.queue[1:]
		r.begin(next)
		return
	}
	if r.cleaning {
		r.clock.Schedule(r.cfg.OffPeakRecheck, r.cleaningStep)
	}
}

// Reset aborts everything, failing queued tasks with RecoveryAborted.
func (r *Robot) Reset() {
	if r.current != nil {
		r.current.done <- fmt.Errorf("robot %s: %w", r.name, types.ErrRecoveryAborted)
		r.current = nil
	}
	for _, t := range r.queue {
		t.done <- fmt.Errorf("robot %s: %w", r.name, types.ErrRecoveryAborted)
	}
	r.queue = nil
	r.cancelTimers()
	r.afterArrival = nil
	r.targetFloor = 0
	r.returning = false
	r.wantCharge = false
	r.setStatus(types.RobotIdle)
}

func (r *Robot) cancelTimers() {
	r.waitEvent.Cancel()
	r.phaseEvent.Cancel()
}

// setStatus settles the battery under the old status before switching, so
// drain and charge are always attributed to the interval they happened in.
func (r *Robot) setStatus(s types.RobotStatus) {
	if r.status == s {
		return
	}
	r.updateBattery()
	slog.Debug("robot status changed", "robot", r.name, "from", r.status, "to", s)
	r.status = s
}

// finishArrival resolves the current task and picks up whatever comes next:
// a chained loop step, a queued task, or the cleaning round.
func (r *Robot) finishArrival() {
	if r.current != nil {
		r.current.done <- nil
		r.current = nil
	}
	r.targetFloor = 0
	if cb := r.afterArrival; cb != nil {
		r.afterArrival = nil
		cb()
		return
	}
	if r.wantCharge && !r.returning {
		r.ReturnToChargingStation()
		return
	}
	if len(r.queue) > 0 {
		next := r.queue[0]
		r.queue = r.queue[1:]
		r.begin(next)
		return
	}
	if r.cleaning {
		r.cleaningStep()
	}
}

// FloorChanged implements car.Listener.
func (r *Robot) FloorChanged(int) {}

// DirectionChanged implements car.Listener.
func (r *Robot) DirectionChanged(types.Direction) {}

// EmergencyChanged implements car.Listener. An emergency mid-wait is covered
// by the bounded wait timeout; nothing to do here.
func (r *Robot) EmergencyChanged(bool) {}

// DoorStateChanged drives boarding and alighting reactively.
func (r *Robot) DoorStateChanged(s types.DoorState) {
	switch {
	case s == types.DoorOpen && r.status == types.RobotWaitingForElevator &&
		r.conn.CurrentFloor() == r.currentFloor:
		r.beginBoarding()
	case s == types.DoorOpen && r.status == types.RobotInElevator &&
		r.conn.CurrentFloor() == r.targetFloor:
		r.beginExit()
	case s == types.DoorClosed && r.status == types.RobotWaitingForElevator &&
		r.conn.CurrentFloor() == r.currentFloor:
		// Door closed in our face (capacity, or we were mid-entry).
		// Hail again; the wait timeout stays armed.
		r.hail()
	}
}

func (r *Robot) beginBoarding() {
	r.waitEvent.Cancel()
	r.setStatus(types.RobotEntering)
	r.phaseEvent = r.clock.Schedule(r.cfg.BoardingTime, r.completeBoarding)
}

func (r *Robot) completeBoarding() {
	ok, err := r.conn.RequestFloor(r.currentFloor, types.KindRobot, r.name, r.targetFloor)
	if err != nil {
		slog.Error("boarding request failed", "robot", r.name, "err", err)
	}
	if ok && r.conn.IsAboard(r.name) {
		r.setStatus(types.RobotInElevator)
		slog.Debug("robot boarded", "robot", r.name, "destination", r.targetFloor)
		return
	}
	// Full car or the door closed under us. Back to waiting on the original
	// deadline, so a car that is permanently full still trips the timeout.
	// With the door closed we also hail again; otherwise the closed-door
	// handler re-hails for us.
	slog.Debug("boarding did not complete, waiting again", "robot", r.name)
	r.setStatus(types.RobotWaitingForElevator)
	if r.conn.DoorState() == types.DoorClosed {
		r.hail()
	}
	r.waitEvent = r.clock.Schedule(r.waitDeadline.Sub(r.clock.Now()), r.waitTimedOut)
}

func (r *Robot) beginExit() {
	r.setStatus(types.RobotExiting)
	r.phaseEvent = r.clock.Schedule(r.cfg.ExitTime, func() {
		r.currentFloor = r.conn.CurrentFloor()
		r.setStatus(types.RobotMovingToDestination)
		r.phaseEvent = r.clock.Schedule(r.cfg.ExitTime, func() {
			r.setStatus(types.RobotIdle)
			slog.Debug("robot arrived", "robot", r.name, "floor", r.currentFloor)
			r.finishArrival()
		})
	})
}
