// Package tenant implements the transient-occupant actor: one trip from a
// start floor to a destination, abandoned if the elevator takes longer than
// the tenant's patience.
package tenant

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"liftsim/src/car"
	"liftsim/src/sim"
	"liftsim/src/types"
)

type Tenant struct {
	id               string
	startFloor       int
	destinationFloor int
	currentFloor     int
	status           types.TenantStatus

	conn     *car.Car
	clock    *sim.Clock
	patience *sim.Event
	done     chan types.TenantStatus
}

// Spawn creates a tenant, issues its pickup request and arms the patience
// timer. The returned tenant is already subscribed to the car.
func Spawn(c *car.Car, clk *sim.Clock, start, destination int, patience time.Duration) (*Tenant, error) {
	if start < 1 || start > c.FloorCount() {
		return nil, fmt.Errorf("start floor %d: %w", start, types.ErrInvalidFloor)
	}
	if destination < 1 || destination > c.FloorCount() {
		return nil, fmt.Errorf("destination floor %d: %w", destination, types.ErrInvalidFloor)
	}
	t := &Tenant{
		id:               uuid.NewString(),
		startFloor:       start,
		destinationFloor: destination,
		currentFloor:     start,
		status:           types.TenantWaiting,
		conn:             c,
		clock:            clk,
		done:             make(chan types.TenantStatus, 1),
	}
	c.Subscribe(t)
	if _, err := c.RequestFloor(start, types.KindTenant, t.id, destination); err != nil {
		c.Unsubscribe(t)
		return nil, err
	}
	// The car may already have been standing here with the door open.
	if c.IsAboard(t.id) {
		t.status = types.TenantInElevator
	} else {
		t.patience = clk.Schedule(patience, t.patienceExpired)
	}
	slog.Info("tenant spawned", "tenant", t.id, "from", start, "to", destination)
	return t, nil
}

func (t *Tenant) ID() string                 { return t.id }
func (t *Tenant) Status() types.TenantStatus { return t.status }
func (t *Tenant) CurrentFloor() int          { return t.currentFloor }

// Done resolves once the trip ends, with Exited or Abandoned.
func (t *Tenant) Done() <-chan types.TenantStatus { return t.done }

func (t *Tenant) patienceExpired() {
	if t.status != types.TenantWaiting {
		return
	}
	t.status = types.TenantAbandoned
	t.conn.Unsubscribe(t)
	slog.Info("tenant gave up waiting", "tenant", t.id, "floor", t.startFloor)
	t.done <- types.TenantAbandoned
}

// FloorChanged implements car.Listener.
func (t *Tenant) FloorChanged(int) {}

// DirectionChanged implements car.Listener.
func (t *Tenant) DirectionChanged(types.Direction) {}

// EmergencyChanged implements car.Listener.
func (t *Tenant) EmergencyChanged(bool) {}

// DoorStateChanged boards and alights the tenant reactively.
func (t *Tenant) DoorStateChanged(s types.DoorState) {
	switch {
	case s == types.DoorOpen && t.status == types.TenantWaiting &&
		t.conn.CurrentFloor() == t.startFloor:
		ok, err := t.conn.RequestFloor(t.startFloor, types.KindTenant, t.id, t.destinationFloor)
		if err != nil {
			slog.Error("tenant boarding request failed", "tenant", t.id, "err", err)
			return
		}
		if ok && t.conn.IsAboard(t.id) {
			t.status = types.TenantInElevator
			t.patience.Cancel()
			slog.Debug("tenant boarded", "tenant", t.id, "floor", t.startFloor)
		}
		// A full car is a soft rejection: keep waiting, patience running.

	case s == types.DoorOpen && t.status == types.TenantInElevator &&
		t.conn.CurrentFloor() == t.destinationFloor:
		t.status = types.TenantExited
		t.currentFloor = t.destinationFloor
		t.conn.Unsubscribe(t)
		slog.Info("tenant exited", "tenant", t.id, "floor", t.currentFloor)
		t.done <- types.TenantExited

	case s == types.DoorClosed && t.status == types.TenantWaiting &&
		t.conn.CurrentFloor() == t.startFloor:
		// The visit came and went without us (capacity). Hail again so the
		// car returns; our floor entry was pruned when the door closed.
		t.conn.RequestFloor(t.startFloor, types.KindTenant, t.id, t.destinationFloor)
	}
}
