// Package objects exposes a car's state as an addressable object dictionary,
// the contract an external register-style protocol adapter (CANopen/CiA-417
// flavored) programs against. Reads serve from a deep-copied snapshot so the
// adapter never aliases live car state.
package objects

import (
	"fmt"

	"liftsim/src/car"
	"liftsim/src/types"
)

// Object addresses.
const (
	IdxCurrentFloor uint16 = 0x6381 // ro
	IdxStatusWord   uint16 = 0x6382 // ro
	IdxTargetFloor  uint16 = 0x6383 // rw, write issues a floor request
	IdxDoorCommand  uint16 = 0x6384 // wo, 1 = open, 0 = close
)

// Status word bits.
const (
	StatusDoorClosed uint32 = 1 << iota
	StatusDoorOpening
	StatusDoorOpen
	StatusDoorClosing
	StatusInMotion
	StatusDirUp
	StatusDirDown
	StatusObstruction
)

// Dictionary is the addressable view over one car.
type Dictionary struct {
	car *car.Car
}

func New(c *car.Car) *Dictionary {
	return &Dictionary{car: c}
}

// Read returns the value of a readable object.
func (d *Dictionary) Read(addr uint16) (uint32, error) {
	snap := d.car.Snapshot()
	switch addr {
	case IdxCurrentFloor:
		return uint32(snap.CurrentFloor), nil
	case IdxStatusWord:
		return statusWord(snap), nil
	case IdxTargetFloor:
		return uint32(snap.TargetFloor), nil
	case IdxDoorCommand:
		return 0, fmt.Errorf("object %#04x is write-only: %w", addr, types.ErrAccessDenied)
	}
	return 0, fmt.Errorf("object %#04x: %w", addr, types.ErrUnknownObject)
}

// Write stores to a writable object. Writing the target floor issues a floor
// request on the car; an out-of-range value surfaces the request error.
func (d *Dictionary) Write(addr uint16, val uint32) error {
	switch addr {
	case IdxTargetFloor:
		_, err := d.car.RequestFloor(int(val), types.KindTenant, "", 0)
		return err
	case IdxDoorCommand:
		d.car.CommandDoor(val == 1)
		return nil
	case IdxCurrentFloor, IdxStatusWord:
		return fmt.Errorf("object %#04x is read-only: %w", addr, types.ErrAccessDenied)
	}
	return fmt.Errorf("object %#04x: %w", addr, types.ErrUnknownObject)
}

func statusWord(s car.Snapshot) uint32 {
	var w uint32
	switch s.DoorState {
	case types.DoorClosed:
		w |= StatusDoorClosed
	case types.DoorOpening:
		w |= StatusDoorOpening
	case types.DoorOpen:
		w |= StatusDoorOpen
	case types.DoorClosing:
		w |= StatusDoorClosing
	}
	if s.InMotion {
		w |= StatusInMotion
	}
	switch s.Direction {
	case types.DirUp:
		w |= StatusDirUp
	case types.DirDown:
		w |= StatusDirDown
	}
	if s.Obstructed {
		w |= StatusObstruction
	}
	return w
}
