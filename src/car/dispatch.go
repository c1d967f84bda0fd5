package car

import (
	"log/slog"

	"liftsim/src/types"
)

// dispatchNext picks the next target floor and starts the leg towards it.
// Called whenever the car becomes idle: after the door closes, after an
// emergency clears, or on a request arriving while nothing is committed.
func (c *Car) dispatchNext() {
	if c.emergency || c.inMotion || c.doorState != types.DoorClosed {
		return
	}
	if len(c.floorRequests) == 0 {
		c.targetFloor = 0
		c.setDirection(types.DirStationary)
		return
	}

	target, ok := c.chooseTarget()
	if !ok {
		// Liveness over optimality: serve any pending floor.
		slog.Warn("dispatch found no directional target, falling back", "car", c.id)
		for f := range c.floorRequests {
			target = f
			break
		}
	}

	c.targetFloor = target
	c.setDirection(types.DirectionTo(c.currentFloor, target))
	if target == c.currentFloor {
		// Already there, skip travel.
		c.openDoor()
		return
	}
	slog.Debug("dispatch chose target", "car", c.id, "target", target, "direction", c.direction)
	c.moveToTarget()
}

// chooseTarget implements selective-collective (SCAN) selection with a
// priority override. The override is only consulted while no direction is
// established; once the car is sweeping, it sweeps until no request remains
// ahead. That asymmetry is deliberate: policy picks the first stop but cannot
// thrash an ongoing sweep.
func (c *Car) chooseTarget() (int, bool) {
	if c.direction == types.DirStationary {
		if f, ok := c.priorityTarget(); ok {
			return f, true
		}
		return c.nearestRequested()
	}

	if c.direction == types.DirUp {
		if f, ok := c.nearestAbove(); ok {
			return f, true
		}
		return c.nearestBelow() // reversal: highest requested floor below
	}
	if f, ok := c.nearestBelow(); ok {
		return f, true
	}
	return c.nearestAbove() // reversal: lowest requested floor above
}

// priorityTarget returns the floor of the oldest pending request of the
// preferred kind, if the policy names one.
func (c *Car) priorityTarget() (int, bool) {
	var q *requestQueue
	switch c.policy {
	case types.PolicyRobotPriority:
		q = &c.robotQueue
	case types.PolicyTenantPriority:
		q = &c.tenantQueue
	default:
		return 0, false
	}
	r, ok := q.peek()
	if !ok {
		return 0, false
	}
	slog.Debug("priority override", "car", c.id, "policy", c.policy, "floor", r.Floor)
	return r.Floor, true
}

// nearestRequested is the cold-start rule: the requested floor with minimum
// absolute distance. Ties go to the higher floor, biasing a fresh sweep
// upwards.
func (c *Car) nearestRequested() (int, bool) {
	best, bestDist, found := 0, 0, false
	for f := 1; f <= c.floorCount; f++ {
		if !c.floorRequests[f] {
			continue
		}
		d := abs(f - c.currentFloor)
		if !found || d < bestDist || (d == bestDist && f > best) {
			best, bestDist, found = f, d, true
		}
	}
	return best, found
}

// nearestAbove is the closest requested floor strictly above the car.
func (c *Car) nearestAbove() (int, bool) {
	for f := c.currentFloor + 1; f <= c.floorCount; f++ {
		if c.floorRequests[f] {
			return f, true
		}
	}
	return 0, false
}

// nearestBelow is the closest requested floor strictly below the car.
func (c *Car) nearestBelow() (int, bool) {
	for f := c.currentFloor - 1; f >= 1; f-- {
		if c.floorRequests[f] {
			return f, true
		}
	}
	return 0, false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
