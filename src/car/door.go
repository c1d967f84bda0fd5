package car

import (
	"log/slog"
	"time"

	"liftsim/src/types"
)

// moveToTarget starts travel towards the committed target. An open or opening
// door runs a full close cycle first; the closed-door handler re-invokes
// dispatch which lands back here.
func (c *Car) moveToTarget() {
	switch c.doorState {
	case types.DoorOpen, types.DoorOpening:
		c.beginClose()
		return
	case types.DoorClosing:
		return // close already underway, dispatch re-runs after it
	}
	if c.inMotion || c.emergency || c.targetFloor == c.currentFloor {
		return
	}
	c.inMotion = true
	d := time.Duration(abs(c.targetFloor-c.currentFloor)) * c.perFloorTravelTime
	slog.Debug("car departing",
		"car", c.id, "from", c.currentFloor, "to", c.targetFloor, "travel", d)
	c.travelEvent = c.clock.Schedule(d, c.arrive)
}

// arrive lands the car. The floor request is not cleared here: occupants
// destined for this floor are still aboard until the door opens, and their
// destinations must stay in the request set until they alight.
func (c *Car) arrive() {
	c.travelEvent = nil
	c.inMotion = false
	c.currentFloor = c.targetFloor
	slog.Debug("car arrived", "car", c.id, "floor", c.currentFloor)
	c.notifyFloor(c.currentFloor)
	c.openDoor()
}

// openDoor begins the CLOSED -> OPENING -> OPEN cycle. Never entered while in
// motion.
func (c *Car) openDoor() {
	if c.inMotion {
		slog.Warn("refusing to open door while moving", "car", c.id)
		return
	}
	switch c.doorState {
	case types.DoorOpen:
		c.extendDoorHold()
		return
	case types.DoorOpening:
		return
	}
	c.setDoorState(types.DoorOpening)
	c.doorEvent = c.clock.Schedule(c.doorTransition, c.doorOpened)
}

// doorOpened completes the opening phase: arrivals alight first (freeing
// capacity), then the OPEN notification goes out and waiting actors board,
// then the door holds for the dwell.
func (c *Car) doorOpened() {
	c.alightArrived()
	delete(c.floorRequests, c.currentFloor)
	c.setDoorState(types.DoorOpen)
	c.purgeStaleRequest()
	c.doorEvent = c.clock.Schedule(c.doorDwell, c.beginClose)
}

// alightArrived removes every occupancy destined for the current floor.
func (c *Car) alightArrived() {
	kept := c.occupants[:0]
	for _, o := range c.occupants {
		if o.Destination == c.currentFloor {
			c.stats.Alightings++
			slog.Debug("occupant alighted",
				"car", c.id, "occupant", o.OccupantID, "kind", o.Kind, "floor", c.currentFloor)
			continue
		}
		kept = append(kept, o)
	}
	c.occupants = kept
}

// extendDoorHold restarts the dwell when a same-floor request lands while the
// door is open, instead of closing early on the original schedule.
func (c *Car) extendDoorHold() {
	if c.doorState == types.DoorOpen && c.doorEvent.Pending() {
		c.doorEvent.Reschedule(c.doorDwell)
	}
}

func (c *Car) beginClose() {
	if c.doorState != types.DoorOpen && c.doorState != types.DoorOpening {
		return
	}
	c.setDoorState(types.DoorClosing)
	c.doorEvent = c.clock.Schedule(c.doorTransition, c.doorClosed)
}

// doorClosed finishes the cycle. An obstruction asserted during closing makes
// the door re-open rather than complete. Requests for this floor are pruned
// before the CLOSED notification so rejected boarders can re-hail and be
// picked up on a later visit.
func (c *Car) doorClosed() {
	if c.obstructed {
		slog.Debug("door obstructed, reopening", "car", c.id, "floor", c.currentFloor)
		c.setDoorState(types.DoorOpening)
		c.doorEvent = c.clock.Schedule(c.doorTransition, c.doorOpened)
		return
	}
	c.robotQueue.pruneFloor(c.currentFloor)
	c.tenantQueue.pruneFloor(c.currentFloor)
	c.purgeStaleRequest()
	c.setDoorState(types.DoorClosed)
	c.dispatchNext()
}

// purgeStaleRequest drops the current floor from the request set when nobody
// aboard is destined here and nobody is still waiting here for pickup. This
// is what keeps requests from occupants who boarded or left elsewhere from
// pinning the car forever.
func (c *Car) purgeStaleRequest() {
	f := c.currentFloor
	if !c.floorRequests[f] {
		return
	}
	for _, o := range c.occupants {
		if o.Destination == f {
			return
		}
	}
	if c.robotQueue.hasFloor(f) || c.tenantQueue.hasFloor(f) {
		return
	}
	delete(c.floorRequests, f)
	slog.Debug("stale request purged", "car", c.id, "floor", f)
}

// CommandDoor serves the register-style door command: true opens the door at
// the current floor when the car is not moving, false starts a close.
func (c *Car) CommandDoor(open bool) {
	if open {
		if !c.inMotion && !c.emergency {
			c.openDoor()
		}
		return
	}
	c.beginClose()
}
