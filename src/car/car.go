// Package car implements the elevator engine: request intake, the
// selective-collective dispatch algorithm, the door and motion state machine,
// and occupancy bookkeeping. A car's state is only ever mutated from its own
// event callbacks on the simulation clock; actors talk to it through
// RequestFloor and the notification stream.
package car

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/tiendc/go-deepcopy"

	"liftsim/src/config"
	"liftsim/src/sim"
	"liftsim/src/types"
)

// Listener receives a car's state-change notifications. Delivery is
// synchronous, in subscription order.
type Listener interface {
	FloorChanged(floor int)
	DoorStateChanged(state types.DoorState)
	DirectionChanged(dir types.Direction)
	EmergencyChanged(active bool)
}

// Stats are the car-owned request counters, updated only inside the car's own
// handlers.
type Stats struct {
	TotalRequests      int
	RobotRequests      int
	TenantRequests     int
	Boardings          int
	Alightings         int
	CapacityRejections int
}

// Snapshot is a deep copy of a car's observable state, safe to hand to
// observers and the object dictionary without aliasing internal maps.
type Snapshot struct {
	ID            string
	CurrentFloor  int
	TargetFloor   int
	Direction     types.Direction
	DoorState     types.DoorState
	InMotion      bool
	Obstructed    bool
	Emergency     bool
	FloorRequests map[int]bool
	Occupants     []types.Occupancy
	Stats         Stats
}

type Car struct {
	id         string
	floorCount int
	lobby      int

	currentFloor int
	targetFloor  int // 0 = no committed target
	direction    types.Direction
	doorState    types.DoorState
	inMotion     bool
	obstructed   bool
	emergency    bool

	floorRequests map[int]bool
	occupants     []types.Occupancy
	maxOccupants  int
	policy        types.DispatchPolicy

	robotQueue  requestQueue
	tenantQueue requestQueue

	perFloorTravelTime time.Duration
	doorDwell          time.Duration
	doorTransition     time.Duration

	clock       *sim.Clock
	travelEvent *sim.Event
	doorEvent   *sim.Event

	listeners []Listener
	stats     Stats
	rng       *rand.Rand

	// DefaultDestination picks a destination for an occupant who boards
	// without stating one. Replaceable by the caller.
	DefaultDestination func(boardedAt int) int
}

func New(id string, cfg config.Config, clk *sim.Clock) *Car {
	c := &Car{
		id:                 id,
		floorCount:         cfg.FloorCount,
		lobby:              cfg.LobbyFloor,
		currentFloor:       cfg.LobbyFloor,
		direction:          types.DirStationary,
		doorState:          types.DoorClosed,
		floorRequests:      make(map[int]bool),
		occupants:          make([]types.Occupancy, 0, cfg.MaxOccupants),
		maxOccupants:       cfg.MaxOccupants,
		policy:             cfg.DispatchPolicy,
		perFloorTravelTime: cfg.PerFloorTravelTime,
		doorDwell:          cfg.DoorOpenDwell,
		doorTransition:     cfg.DoorTransitionTime,
		clock:              clk,
		rng:                rand.New(rand.NewSource(cfg.Seed)),
	}
	c.DefaultDestination = c.defaultDestination
	slog.Debug("car initialized", "car", id, "floors", cfg.FloorCount, "policy", cfg.DispatchPolicy)
	return c
}

// defaultDestination mirrors a common walk-in pattern: boarding at the lobby
// heads for a random upper floor, boarding anywhere else heads for the lobby.
func (c *Car) defaultDestination(boardedAt int) int {
	if boardedAt == c.lobby && c.floorCount > c.lobby {
		return c.lobby + 1 + c.rng.Intn(c.floorCount-c.lobby)
	}
	return c.lobby
}

// RequestFloor is the single entry point for actors. It registers floor as a
// stop, and when the car already stands at floor with the door open it also
// boards the occupant. The boolean is false on a capacity rejection, which is
// soft: the caller retries at the next door-open.
func (c *Car) RequestFloor(floor int, kind types.RequestKind, occupantID string, destination int) (bool, error) {
	if floor < 1 || floor > c.floorCount {
		return false, fmt.Errorf("floor %d: %w", floor, types.ErrInvalidFloor)
	}
	if destination != 0 && (destination < 1 || destination > c.floorCount) {
		return false, fmt.Errorf("destination %d: %w", destination, types.ErrInvalidFloor)
	}

	// Immediate boarding when the door is already open here.
	if floor == c.currentFloor && c.doorState == types.DoorOpen &&
		occupantID != "" && !c.IsAboard(occupantID) {
		if len(c.occupants) >= c.maxOccupants {
			c.stats.CapacityRejections++
			slog.Warn("boarding rejected, car full",
				"car", c.id, "occupant", occupantID, "floor", floor, "occupants", len(c.occupants))
			return false, nil
		}
		dest := destination
		if dest == 0 {
			dest = c.DefaultDestination(floor)
		}
		c.occupants = append(c.occupants, types.Occupancy{
			ID:          uuid.NewString(),
			OccupantID:  occupantID,
			Kind:        kind,
			BoardedAt:   floor,
			Destination: dest,
		})
		c.floorRequests[dest] = true
		c.stats.Boardings++
		slog.Debug("occupant boarded",
			"car", c.id, "occupant", occupantID, "kind", kind, "floor", floor, "destination", dest)
	}

	c.floorRequests[floor] = true
	req := types.PendingRequest{
		Floor:       floor,
		Kind:        kind,
		OccupantID:  occupantID,
		Destination: destination,
		At:          c.clock.Now(),
	}
	switch kind {
	case types.KindRobot:
		c.robotQueue.enqueue(req)
		c.stats.RobotRequests++
	case types.KindTenant:
		c.tenantQueue.enqueue(req)
		c.stats.TenantRequests++
	}
	c.stats.TotalRequests++
	slog.Debug("floor requested", "car", c.id, "floor", floor, "kind", kind, "occupant", occupantID)

	if c.doorState == types.DoorOpen && floor == c.currentFloor {
		c.extendDoorHold()
	} else if c.idle() {
		c.dispatchNext()
	}
	return true, nil
}

// idle reports whether the car has nothing committed: standing still with the
// door closed and no leg in progress.
func (c *Car) idle() bool {
	if c.emergency || c.inMotion || c.doorState != types.DoorClosed {
		return false
	}
	if c.doorEvent.Pending() || c.travelEvent.Pending() {
		return false
	}
	return c.targetFloor == 0 || c.targetFloor == c.currentFloor
}

// IsAboard reports whether the occupant currently rides this car.
func (c *Car) IsAboard(occupantID string) bool {
	for _, o := range c.occupants {
		if o.OccupantID == occupantID {
			return true
		}
	}
	return false
}

func (c *Car) ID() string                 { return c.id }
func (c *Car) FloorCount() int            { return c.floorCount }
func (c *Car) CurrentFloor() int          { return c.currentFloor }
func (c *Car) TargetFloor() int           { return c.targetFloor }
func (c *Car) Direction() types.Direction { return c.direction }
func (c *Car) DoorState() types.DoorState { return c.doorState }
func (c *Car) InMotion() bool             { return c.inMotion }
func (c *Car) Emergency() bool            { return c.emergency }
func (c *Car) OccupantCount() int         { return len(c.occupants) }
func (c *Car) Stats() Stats               { return c.stats }

// SetObstructed asserts or clears the door obstruction sensor. An obstructed
// door never finishes closing; it re-opens and tries again.
func (c *Car) SetObstructed(v bool) {
	if c.obstructed == v {
		return
	}
	c.obstructed = v
	slog.Debug("obstruction changed", "car", c.id, "obstructed", v)
}

// SetEmergency halts the car. Engaging cancels a pending travel leg (the door
// finishes its current sub-phase); the flag is never auto-cleared, clearing it
// re-runs dispatch.
func (c *Car) SetEmergency(v bool) {
	if c.emergency == v {
		return
	}
	c.emergency = v
	if v {
		if c.travelEvent.Pending() {
			c.travelEvent.Cancel()
			c.inMotion = false
			slog.Warn("emergency engaged, travel cancelled", "car", c.id, "floor", c.currentFloor)
		} else {
			slog.Warn("emergency engaged", "car", c.id)
		}
	} else {
		slog.Info("emergency cleared", "car", c.id)
	}
	c.notifyEmergency(v)
	if !v && !c.inMotion && c.doorState == types.DoorClosed {
		c.dispatchNext()
	}
}

// Subscribe adds a listener to the notification stream.
func (c *Car) Subscribe(l Listener) {
	c.listeners = append(c.listeners, l)
}

// Unsubscribe removes a listener; no-op when it is not subscribed.
func (c *Car) Unsubscribe(l Listener) {
	for i, x := range c.listeners {
		if x == l {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

// Snapshot deep-copies the car's observable state.
func (c *Car) Snapshot() Snapshot {
	src := Snapshot{
		ID:            c.id,
		CurrentFloor:  c.currentFloor,
		TargetFloor:   c.targetFloor,
		Direction:     c.direction,
		DoorState:     c.doorState,
		InMotion:      c.inMotion,
		Obstructed:    c.obstructed,
		Emergency:     c.emergency,
		FloorRequests: c.floorRequests,
		Occupants:     c.occupants,
		Stats:         c.stats,
	}
	dst := Snapshot{}
	if err := deepcopy.Copy(&dst, &src); err != nil {
		panic(err)
	}
	return dst
}

func (c *Car) setDirection(d types.Direction) {
	if c.direction == d {
		return
	}
	c.direction = d
	slog.Debug("direction changed", "car", c.id, "direction", d)
	for _, l := range c.snapshotListeners() {
		l.DirectionChanged(d)
	}
}

func (c *Car) setDoorState(s types.DoorState) {
	if c.doorState == s {
		return
	}
	c.doorState = s
	slog.Debug("door state changed", "car", c.id, "door", s, "floor", c.currentFloor)
	for _, l := range c.snapshotListeners() {
		l.DoorStateChanged(s)
	}
}

func (c *Car) notifyFloor(floor int) {
	for _, l := range c.snapshotListeners() {
		l.FloorChanged(floor)
	}
}

func (c *Car) notifyEmergency(v bool) {
	for _, l := range c.snapshotListeners() {
		l.EmergencyChanged(v)
	}
}

// snapshotListeners copies the listener list so subscribers may unsubscribe
// from within their own callback.
func (c *Car) snapshotListeners() []Listener {
	out := make([]Listener, len(c.listeners))
	copy(out, c.listeners)
	return out
}
