package tenant

import (
	"errors"
	"testing"
	"time"

	"liftsim/src/car"
	"liftsim/src/config"
	"liftsim/src/sim"
	"liftsim/src/types"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestCar(cfg config.Config) (*car.Car, *sim.Clock) {
	clk := sim.NewClock(epoch, 0)
	return car.New("test-car", cfg, clk), clk
}

func TestSpawnInvalidFloor(t *testing.T) {
	c, clk := newTestCar(config.Default())
	if _, err := Spawn(c, clk, 0, 5, time.Minute); !errors.Is(err, types.ErrInvalidFloor) {
		t.Fatalf("err = %v, want ErrInvalidFloor", err)
	}
	if _, err := Spawn(c, clk, 1, 99, time.Minute); !errors.Is(err, types.ErrInvalidFloor) {
		t.Fatalf("err = %v, want ErrInvalidFloor", err)
	}
}

func TestRoundTrip(t *testing.T) {
	cfg := config.Default()
	c, clk := newTestCar(cfg)

	tn, err := Spawn(c, clk, 1, 9, cfg.TenantPatience)
	if err != nil {
		t.Fatal(err)
	}
	clk.RunFor(5 * time.Minute)

	select {
	case got := <-tn.Done():
		if got != types.TenantExited {
			t.Fatalf("trip ended %v, want exited", got)
		}
	default:
		t.Fatal("trip never completed")
	}
	if got := tn.CurrentFloor(); got != 9 {
		t.Fatalf("tenant at %d, want 9", got)
	}
	if got := c.OccupantCount(); got != 0 {
		t.Fatalf("car still holds %d occupants", got)
	}
}

func TestPatienceExpiryExcludesTenant(t *testing.T) {
	cfg := config.Default()
	c, clk := newTestCar(cfg)
	c.SetEmergency(true) // keep the car away past the tenant's patience

	tn, err := Spawn(c, clk, 3, 7, 30*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	clk.RunFor(time.Minute)

	select {
	case got := <-tn.Done():
		if got != types.TenantAbandoned {
			t.Fatalf("trip ended %v, want abandoned", got)
		}
	default:
		t.Fatal("patience expiry did not resolve the trip")
	}

	// The car eventually opens at the start floor; the abandoned tenant must
	// not board.
	c.SetEmergency(false)
	clk.RunFor(5 * time.Minute)

	if got := tn.Status(); got != types.TenantAbandoned {
		t.Fatalf("status = %v, want abandoned", got)
	}
	if got := c.OccupantCount(); got != 0 {
		t.Fatalf("car picked up an abandoned tenant: %d occupants", got)
	}
	if reqs := c.Snapshot().FloorRequests; len(reqs) != 0 {
		t.Fatalf("stale requests %v remain after the abandoned pickup", reqs)
	}
}

func TestRejectedTenantBoardsOnNextVisit(t *testing.T) {
	cfg := config.Default()
	cfg.MaxOccupants = 1
	c, clk := newTestCar(cfg)

	a, err := Spawn(c, clk, 2, 5, cfg.TenantPatience)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Spawn(c, clk, 2, 6, cfg.TenantPatience)
	if err != nil {
		t.Fatal(err)
	}
	clk.RunFor(10 * time.Minute)

	if got := <-a.Done(); got != types.TenantExited {
		t.Fatalf("tenant a ended %v, want exited", got)
	}
	if got := <-b.Done(); got != types.TenantExited {
		t.Fatalf("tenant b ended %v, want exited", got)
	}
	if a.CurrentFloor() != 5 || b.CurrentFloor() != 6 {
		t.Fatalf("tenants at %d and %d, want 5 and 6", a.CurrentFloor(), b.CurrentFloor())
	}
	if got := c.Stats().CapacityRejections; got == 0 {
		t.Fatal("expected at least one capacity rejection")
	}
}

func TestSpawnBoardsImmediatelyAtOpenDoor(t *testing.T) {
	cfg := config.Default()
	c, clk := newTestCar(cfg)

	// Park the car at the lobby with the door open.
	if _, err := c.RequestFloor(1, types.KindTenant, "", 0); err != nil {
		t.Fatal(err)
	}
	clk.RunFor(cfg.DoorTransitionTime)
	if c.DoorState() != types.DoorOpen {
		t.Fatalf("door = %v, want open", c.DoorState())
	}

	tn, err := Spawn(c, clk, 1, 4, cfg.TenantPatience)
	if err != nil {
		t.Fatal(err)
	}
	if got := tn.Status(); got != types.TenantInElevator {
		t.Fatalf("status = %v, want in-elevator right after spawning at an open door", got)
	}
	clk.RunFor(time.Minute)
	if got := tn.Status(); got != types.TenantExited {
		t.Fatalf("status = %v, want exited", got)
	}
	if got := tn.CurrentFloor(); got != 4 {
		t.Fatalf("tenant at %d, want 4", got)
	}
}
