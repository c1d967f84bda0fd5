package robot

import (
	"log/slog"

	"liftsim/src/types"
)

// StartCleaning turns on the cleaning round. The robot works floor by floor,
// nearest unvisited first, inside the configured off-peak window.
func (r *Robot) StartCleaning() {
	if r.cleaning {
		return
	}
	r.cleaning = true
	slog.Info("cleaning round enabled", "robot", r.name)
	if r.status == types.RobotIdle {
		r.cleaningStep()
	}
}

// StopCleaning lets the current floor finish but schedules no further ones.
func (r *Robot) StopCleaning() {
	r.cleaning = false
}

// cleaningStep picks the next floor to clean, checking the off-peak window
// and the battery first.
func (r *Robot) cleaningStep() {
	if !r.cleaning || r.status != types.RobotIdle {
		return
	}
	if !r.cfg.InOffPeak(r.clock.Now()) {
		slog.Debug("outside off-peak window, waiting", "robot", r.name, "hour", r.clock.Now().Hour())
		r.clock.Schedule(r.cfg.OffPeakRecheck, r.cleaningStep)
		return
	}
	r.updateBattery()
	if r.wantCharge || r.battery <= r.cfg.LowBatteryFraction*r.cfg.BatteryCapacity {
		r.ReturnToChargingStation()
		return
	}

	floor, ok := r.nearestUnvisited()
	if !ok {
		if r.cfg.ContinuousCleaning {
			slog.Info("coverage complete, starting next round", "robot", r.name)
			r.visited = make(map[int]bool)
			floor, _ = r.nearestUnvisited()
		} else {
			slog.Info("coverage complete, returning to charger", "robot", r.name)
			r.cleaning = false
			r.ReturnToChargingStation()
			return
		}
	}

	est := r.estimateTaskMinutes(floor)
	if !r.canCompleteTask(est, floor) {
		slog.Info("not enough battery for next floor, charging first",
			"robot", r.name, "floor", floor, "battery", r.battery)
		r.ReturnToChargingStation()
		return
	}

	slog.Debug("cleaning next floor", "robot", r.name, "floor", floor)
	if floor == r.currentFloor {
		r.startCleaningDwell()
		return
	}
	r.afterArrival = r.startCleaningDwell
	r.internalGo(floor)
}

// nearestUnvisited picks the unvisited floor closest in floor units; ties go
// to the lower floor.
func (r *Robot) nearestUnvisited() (int, bool) {
	best, bestDist, found := 0, 0, false
	for f := 1; f <= r.conn.FloorCount(); f++ {
		if r.visited[f] {
			continue
		}
		d := absInt(f - r.currentFloor)
		if !found || d < bestDist {
			best, bestDist, found = f, d, true
		}
	}
	return best, found
}

// estimateTaskMinutes is the energy-planning estimate for cleaning one floor:
// the ride there plus the cleaning dwell.
func (r *Robot) estimateTaskMinutes(floor int) float64 {
	return r.rideMinutes(r.currentFloor, floor) + r.cfg.CleaningTime.Minutes()
}

func (r *Robot) startCleaningDwell() {
	r.setStatus(types.RobotCleaning)
	r.phaseEvent = r.clock.Schedule(r.cfg.CleaningTime, r.finishCleaning)
}

func (r *Robot) finishCleaning() {
	r.visited[r.currentFloor] = true
	slog.Info("floor cleaned", "robot", r.name, "floor", r.currentFloor,
		"covered", len(r.visited), "battery", r.battery)
	r.setStatus(types.RobotIdle)
	r.cleaningStep()
}
