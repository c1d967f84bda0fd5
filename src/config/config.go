// Package config holds the construction parameters of the simulation.
package config

import (
	"time"

	"liftsim/src/types"
)

// Config collects every tunable of the building, the car, the actors and the
// virtual clock. All fields are initialized by Default; zero values are never
// relied on at runtime.
type Config struct {
	FloorCount int
	LobbyFloor int

	// Car
	MaxOccupants       int
	DispatchPolicy     types.DispatchPolicy
	PerFloorTravelTime time.Duration
	DoorOpenDwell      time.Duration
	DoorTransitionTime time.Duration

	// Actors
	BoardingTime        time.Duration
	ExitTime            time.Duration
	ElevatorWaitTimeout time.Duration
	TenantPatience      time.Duration

	// Robot energy model. Capacity and level in mAh, rates in mAh per
	// elapsed virtual minute.
	BatteryCapacity      float64
	ConsumptionRate      float64
	ChargeRate           float64
	LowBatteryFraction   float64
	ChargeResumeFraction float64
	BatteryCheckInterval time.Duration

	// Cleaning loop
	CleaningTime       time.Duration
	OffPeakRecheck     time.Duration
	ChargingFloor      int
	OffPeakStart       int // hour of virtual day, inclusive
	OffPeakEnd         int // hour of virtual day, exclusive
	ContinuousCleaning bool

	// Simulation
	TimeScale float64 // 0 = free-running, 1 = real time
	Seed      int64
}

func Default() Config {
	return Config{
		FloorCount:           10,
		LobbyFloor:           1,
		MaxOccupants:         8,
		DispatchPolicy:       types.PolicyEqual,
		PerFloorTravelTime:   2 * time.Second,
		DoorOpenDwell:        3 * time.Second,
		DoorTransitionTime:   1 * time.Second,
		BoardingTime:         500 * time.Millisecond,
		ExitTime:             500 * time.Millisecond,
		ElevatorWaitTimeout:  90 * time.Second,
		TenantPatience:       5 * time.Minute,
		BatteryCapacity:      5000,
		ConsumptionRate:      25,
		ChargeRate:           100,
		LowBatteryFraction:   0.20,
		ChargeResumeFraction: 0.95,
		BatteryCheckInterval: 30 * time.Second,
		CleaningTime:         10 * time.Minute,
		OffPeakRecheck:       10 * time.Minute,
		ChargingFloor:        1,
		OffPeakStart:         22,
		OffPeakEnd:           6,
		TimeScale:            0,
		Seed:                 1,
	}
}

// InOffPeak reports whether t falls inside the off-peak window. A window with
// start > end spans midnight.
func (c Config) InOffPeak(t time.Time) bool {
	h := t.Hour()
	if c.OffPeakStart == c.OffPeakEnd {
		return true
	}
	if c.OffPeakStart < c.OffPeakEnd {
		return h >= c.OffPeakStart && h < c.OffPeakEnd
	}
	return h >= c.OffPeakStart || h < c.OffPeakEnd
}
