package robot

import (
	"log/slog"
	"time"

	"liftsim/src/types"
)

// updateBattery settles drain or charge for the virtual time elapsed since
// the last settlement. Calling it again without elapsed time changes nothing.
func (r *Robot) updateBattery() {
	now := r.clock.Now()
	elapsed := now.Sub(r.lastBatteryUpdate)
	if elapsed <= 0 {
		return
	}
	r.lastBatteryUpdate = now
	minutes := elapsed.Minutes()
	switch r.status {
	case types.RobotIdle:
		// No drain while idle.
	case types.RobotCharging:
		r.battery = min(r.cfg.BatteryCapacity, r.battery+r.cfg.ChargeRate*minutes)
	default:
		r.battery = max(0, r.battery-r.cfg.ConsumptionRate*minutes)
	}
}

// batteryTick is the periodic low-battery watchdog. Crossing the threshold
// flags a charge; an idle robot heads back right away, a busy one goes as
// soon as its current ride or dwell finishes.
func (r *Robot) batteryTick() {
	r.updateBattery()
	low := r.cfg.LowBatteryFraction * r.cfg.BatteryCapacity
	if r.battery <= low && !r.returning && r.status != types.RobotCharging && !r.wantCharge {
		slog.Warn("battery low", "robot", r.name, "battery", r.battery, "threshold", low)
		r.wantCharge = true
		if r.status == types.RobotIdle {
			r.ReturnToChargingStation()
		}
	}
	r.batteryEvent = r.clock.Schedule(r.cfg.BatteryCheckInterval, r.batteryTick)
}

// canCompleteTask checks the remaining battery against the task's energy plus
// the energy to get back to the charger afterwards.
func (r *Robot) canCompleteTask(estMinutes float64, floor int) bool {
	returnMinutes := r.rideMinutes(floor, r.cfg.ChargingFloor)
	needed := (estMinutes + returnMinutes) * r.cfg.ConsumptionRate
	return r.battery > needed
}

// rideMinutes is a coarse upper estimate of one elevator ride: a full wait
// budget plus travel and one door dwell.
func (r *Robot) rideMinutes(from, to int) float64 {
	travel := time.Duration(absInt(from-to)) * r.cfg.PerFloorTravelTime
	return (r.cfg.ElevatorWaitTimeout + travel + r.cfg.DoorOpenDwell).Minutes()
}

// ReturnToChargingStation rides to the charging floor and charges until the
// resume threshold (~95% of capacity) before going back to work, so the robot
// does not oscillate at the low-battery boundary.
func (r *Robot) ReturnToChargingStation() {
	if r.returning || r.status == types.RobotCharging {
		return
	}
	r.returning = true
	r.setStatus(types.RobotReturningToCharger)
	slog.Info("returning to charging station",
		"robot", r.name, "from", r.currentFloor, "chargingFloor", r.cfg.ChargingFloor, "battery", r.battery)
	if r.currentFloor == r.cfg.ChargingFloor {
		r.startCharging()
		return
	}
	r.afterArrival = r.startCharging
	r.internalGo(r.cfg.ChargingFloor)
}

func (r *Robot) startCharging() {
	r.setStatus(types.RobotCharging)
	r.wantCharge = false
	slog.Info("charging", "robot", r.name, "battery", r.battery)
	r.phaseEvent = r.clock.Schedule(r.cfg.BatteryCheckInterval, r.chargeTick)
}

func (r *Robot) chargeTick() {
	if r.status != types.RobotCharging {
		return
	}
	r.updateBattery()
	if r.battery >= r.cfg.ChargeResumeFraction*r.cfg.BatteryCapacity {
		slog.Info("charge complete", "robot", r.name, "battery", r.battery)
		r.returning = false
		r.setStatus(types.RobotIdle)
		r.finishArrival()
		return
	}
	r.phaseEvent = r.clock.Schedule(r.cfg.BatteryCheckInterval, r.chargeTick)
}

// internalGo orders a ride on behalf of the cleaning and charging loops. The
// future is discarded; failures surface through recover.
func (r *Robot) internalGo(floor int) {
	r.begin(&task{floor: floor, done: make(chan error, 1)})
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
