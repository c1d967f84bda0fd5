// Package types holds the shared data model of the elevator simulation:
// directions, door states, request kinds, actor statuses and the records
// exchanged between cars and actors.
package types

import (
	"errors"
	"fmt"
	"time"
)

type Direction int

const (
	DirStationary Direction = 0
	DirUp         Direction = 1
	DirDown       Direction = -1
)

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	default:
		return "stationary"
	}
}

// DirectionTo gives the travel direction from one floor to another.
func DirectionTo(from, to int) Direction {
	switch {
	case to > from:
		return DirUp
	case to < from:
		return DirDown
	default:
		return DirStationary
	}
}

type DoorState int

const (
	DoorClosed DoorState = iota
	DoorOpening
	DoorOpen
	DoorClosing
)

func (s DoorState) String() string {
	return [...]string{"closed", "opening", "open", "closing"}[s]
}

type RequestKind int

const (
	KindRobot RequestKind = iota
	KindTenant
)

func (k RequestKind) String() string {
	if k == KindRobot {
		return "robot"
	}
	return "tenant"
}

type DispatchPolicy int

const (
	PolicyEqual DispatchPolicy = iota
	PolicyRobotPriority
	PolicyTenantPriority
)

func (p DispatchPolicy) String() string {
	return [...]string{"equal", "robot-priority", "tenant-priority"}[p]
}

// ParsePolicy maps a policy name to its enum value.
func ParsePolicy(s string) (DispatchPolicy, error) {
	switch s {
	case "equal":
		return PolicyEqual, nil
	case "robot-priority":
		return PolicyRobotPriority, nil
	case "tenant-priority":
		return PolicyTenantPriority, nil
	}
	return PolicyEqual, fmt.Errorf("unknown dispatch policy %q", s)
}

type RobotStatus int

const (
	RobotIdle RobotStatus = iota
	RobotWaitingForElevator
	RobotEntering
	RobotInElevator
	RobotExiting
	RobotMovingToDestination
	RobotCleaning
	RobotCharging
	RobotReturningToCharger
)

func (s RobotStatus) String() string {
	return [...]string{
		"idle", "waiting-for-elevator", "entering", "in-elevator", "exiting",
		"moving-to-destination", "cleaning", "charging", "returning-to-charger",
	}[s]
}

type TenantStatus int

const (
	TenantWaiting TenantStatus = iota
	TenantInElevator
	TenantExited
	TenantAbandoned
)

func (s TenantStatus) String() string {
	return [...]string{"waiting", "in-elevator", "exited", "abandoned"}[s]
}

// Occupancy records a boarded entity inside a car. Owned by the car from
// boarding until alighting.
type Occupancy struct {
	ID          string
	OccupantID  string
	Kind        RequestKind
	BoardedAt   int
	Destination int
}

// PendingRequest is one entry of a car's per-kind request queue. These queues
// are views for priority dispatch and statistics; the car's floor-request set
// stays authoritative for which floors get visited.
type PendingRequest struct {
	Floor       int
	Kind        RequestKind
	OccupantID  string
	Destination int // 0 when unspecified
	At          time.Time
}

var (
	ErrInvalidFloor    = errors.New("invalid floor")
	ErrElevatorTimeout = errors.New("elevator did not arrive in time")
	ErrUnknownObject   = errors.New("unknown object")
	ErrAccessDenied    = errors.New("access denied")
	ErrRecoveryAborted = errors.New("task aborted by recovery")
)
