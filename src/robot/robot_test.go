package robot

import (
	"errors"
	"math"
	"testing"
	"time"

	"liftsim/src/car"
	"liftsim/src/config"
	"liftsim/src/sim"
	"liftsim/src/types"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestRobot(cfg config.Config) (*Robot, *car.Car, *sim.Clock) {
	clk := sim.NewClock(epoch, 0)
	c := car.New("test-car", cfg, clk)
	r := New("bot", cfg, c, clk)
	return r, c, clk
}

func alwaysOffPeak(cfg config.Config) config.Config {
	cfg.OffPeakStart, cfg.OffPeakEnd = 0, 0
	return cfg
}

func TestBatteryUpdateIdempotent(t *testing.T) {
	r, _, _ := newTestRobot(config.Default())
	r.status = types.RobotCleaning

	before := r.BatteryLevel()
	r.updateBattery()
	r.updateBattery()
	if got := r.BatteryLevel(); got != before {
		t.Fatalf("battery changed with no elapsed time: %v -> %v", before, got)
	}
}

func TestBatteryDrainsWhileActive(t *testing.T) {
	cfg := config.Default()
	r, _, clk := newTestRobot(cfg)
	r.status = types.RobotCleaning

	clk.RunFor(2 * time.Minute)
	r.updateBattery()

	want := cfg.BatteryCapacity - 2*cfg.ConsumptionRate
	if math.Abs(r.BatteryLevel()-want) > 1e-6 {
		t.Fatalf("battery = %v after 2 min active, want %v", r.BatteryLevel(), want)
	}
}

func TestBatteryChargesWhileCharging(t *testing.T) {
	cfg := config.Default()
	r, _, clk := newTestRobot(cfg)
	r.status = types.RobotCharging
	r.battery = 1000

	clk.RunFor(time.Minute)
	r.updateBattery()

	if want := 1000 + cfg.ChargeRate; math.Abs(r.BatteryLevel()-want) > 1e-6 {
		t.Fatalf("battery = %v after 1 min charging, want %v", r.BatteryLevel(), want)
	}
}

func TestBatteryChargeCapsAtCapacity(t *testing.T) {
	cfg := config.Default()
	r, _, clk := newTestRobot(cfg)
	r.status = types.RobotCharging

	clk.RunFor(time.Hour)
	r.updateBattery()

	if got := r.BatteryLevel(); got != cfg.BatteryCapacity {
		t.Fatalf("battery = %v, want capped at %v", got, cfg.BatteryCapacity)
	}
}

func TestGoToFloorInvalid(t *testing.T) {
	r, _, _ := newTestRobot(config.Default())
	err := <-r.GoToFloor(0)
	if !errors.Is(err, types.ErrInvalidFloor) {
		t.Fatalf("err = %v, want ErrInvalidFloor", err)
	}
}

func TestGoToFloorAlreadyThere(t *testing.T) {
	r, _, _ := newTestRobot(config.Default())
	select {
	case err := <-r.GoToFloor(r.CurrentFloor()):
		if err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
	default:
		t.Fatal("future for the current floor did not resolve immediately")
	}
}

func TestGoToFloorRoundTrip(t *testing.T) {
	r, c, clk := newTestRobot(config.Default())
	done := r.GoToFloor(5)
	clk.RunFor(3 * time.Minute)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ride failed: %v", err)
		}
	default:
		t.Fatal("ride did not complete")
	}
	if got := r.CurrentFloor(); got != 5 {
		t.Fatalf("robot at %d, want 5", got)
	}
	if got := r.Status(); got != types.RobotIdle {
		t.Fatalf("status = %v, want idle", got)
	}
	if got := c.OccupantCount(); got != 0 {
		t.Fatalf("car still holds %d occupants", got)
	}
}

func TestElevatorTimeoutAfterRetry(t *testing.T) {
	cfg := config.Default()
	r, c, clk := newTestRobot(cfg)
	c.SetEmergency(true) // the car will never come

	done := r.GoToFloor(5)
	clk.RunFor(3 * cfg.ElevatorWaitTimeout)

	select {
	case err := <-done:
		if !errors.Is(err, types.ErrElevatorTimeout) {
			t.Fatalf("err = %v, want ErrElevatorTimeout", err)
		}
	default:
		t.Fatal("timed-out ride never failed")
	}
	if got := r.Status(); got != types.RobotIdle {
		t.Fatalf("status = %v after recovery, want idle", got)
	}
	// The retry re-issued the hail once: two robot requests total.
	if got := c.Stats().RobotRequests; got != 2 {
		t.Fatalf("robot requests = %d, want 2 (hail + one retry)", got)
	}
}

func TestQueuedTaskRunsAfterCurrent(t *testing.T) {
	r, _, clk := newTestRobot(config.Default())
	first := r.GoToFloor(4)
	second := r.GoToFloor(7)

	clk.RunFor(10 * time.Minute)

	if err := <-first; err != nil {
		t.Fatalf("first ride failed: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("second ride failed: %v", err)
	}
	if got := r.CurrentFloor(); got != 7 {
		t.Fatalf("robot at %d, want 7", got)
	}
}

func TestResetAbortsQueuedTasks(t *testing.T) {
	cfg := config.Default()
	r, c, _ := newTestRobot(cfg)
	c.SetEmergency(true)

	current := r.GoToFloor(5)
	queued := r.GoToFloor(7)
	r.Reset()

	if err := <-current; !errors.Is(err, types.ErrRecoveryAborted) {
		t.Fatalf("current task err = %v, want ErrRecoveryAborted", err)
	}
	if err := <-queued; !errors.Is(err, types.ErrRecoveryAborted) {
		t.Fatalf("queued task err = %v, want ErrRecoveryAborted", err)
	}
	if got := r.Status(); got != types.RobotIdle {
		t.Fatalf("status = %v after reset, want idle", got)
	}
}

func TestLowBatteryTriggersReturnToCharger(t *testing.T) {
	cfg := alwaysOffPeak(config.Default())
	r, _, clk := newTestRobot(cfg)
	r.currentFloor = 3
	r.battery = 0.15 * cfg.BatteryCapacity

	clk.RunFor(2 * time.Hour)

	if got := r.CurrentFloor(); got != cfg.ChargingFloor {
		t.Fatalf("robot at %d, want charging floor %d", got, cfg.ChargingFloor)
	}
	if got := r.Status(); got != types.RobotIdle {
		t.Fatalf("status = %v, want idle after recharge", got)
	}
	if resume := cfg.ChargeResumeFraction * cfg.BatteryCapacity; r.BatteryLevel() < resume {
		t.Fatalf("battery = %v, want at least %v", r.BatteryLevel(), resume)
	}
}

// A failed return-to-charger ride must not wedge the charging machinery: the
// watchdog raises the charge request again and the next attempt succeeds.
func TestRecoveryAfterFailedReturnStillCharges(t *testing.T) {
	cfg := config.Default()
	r, c, clk := newTestRobot(cfg)
	r.currentFloor = 5
	r.battery = 0.15 * cfg.BatteryCapacity
	c.SetEmergency(true) // the return ride times out

	clk.RunFor(3 * cfg.ElevatorWaitTimeout)
	c.SetEmergency(false)
	clk.RunFor(2 * time.Hour)

	if got := r.CurrentFloor(); got != cfg.ChargingFloor {
		t.Fatalf("robot at %d, want charging floor %d", got, cfg.ChargingFloor)
	}
	if got := r.Status(); got != types.RobotIdle {
		t.Fatalf("status = %v, want idle after recharge", got)
	}
	if resume := cfg.ChargeResumeFraction * cfg.BatteryCapacity; r.BatteryLevel() < resume {
		t.Fatalf("battery = %v, want at least %v", r.BatteryLevel(), resume)
	}
}

// A car that never has room still trips the bounded wait: failed boarding
// attempts keep the original deadline instead of re-arming a fresh one.
func TestBoundedWaitOnFullCar(t *testing.T) {
	cfg := config.Default()
	cfg.MaxOccupants = 0
	r, _, clk := newTestRobot(cfg)

	done := r.GoToFloor(5)
	clk.RunFor(3 * cfg.ElevatorWaitTimeout)

	select {
	case err := <-done:
		if !errors.Is(err, types.ErrElevatorTimeout) {
			t.Fatalf("err = %v, want ErrElevatorTimeout", err)
		}
	default:
		t.Fatal("wait on a permanently full car never timed out")
	}
	if got := r.Status(); got != types.RobotIdle {
		t.Fatalf("status = %v after recovery, want idle", got)
	}
}

func TestCleaningCoversAllFloors(t *testing.T) {
	cfg := alwaysOffPeak(config.Default())
	cfg.FloorCount = 3
	cfg.CleaningTime = time.Minute
	r, _, clk := newTestRobot(cfg)

	r.StartCleaning()
	clk.RunFor(2 * time.Hour)

	visited := r.VisitedFloors()
	for f := 1; f <= cfg.FloorCount; f++ {
		if !visited[f] {
			t.Fatalf("floor %d never cleaned; visited %v", f, visited)
		}
	}
	if got := r.CurrentFloor(); got != cfg.ChargingFloor {
		t.Fatalf("robot ended at %d, want charging floor %d", got, cfg.ChargingFloor)
	}
	if got := r.Status(); got != types.RobotIdle {
		t.Fatalf("status = %v, want idle at charger", got)
	}
}

func TestCleaningWaitsForOffPeakWindow(t *testing.T) {
	cfg := config.Default()
	cfg.OffPeakStart, cfg.OffPeakEnd = 22, 6
	clk := sim.NewClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), 0)
	c := car.New("test-car", cfg, clk)
	r := New("bot", cfg, c, clk)

	r.StartCleaning()
	clk.RunFor(time.Hour) // 12:00 -> 13:00, outside the window

	if len(r.VisitedFloors()) != 0 {
		t.Fatalf("robot cleaned %v outside the off-peak window", r.VisitedFloors())
	}

	clk.RunFor(10 * time.Hour) // well past 22:00
	if len(r.VisitedFloors()) == 0 {
		t.Fatal("robot never started cleaning inside the window")
	}
}
