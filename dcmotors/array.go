// Package dcmotors drives a tank chassis with brushed DC motors behind H-bridge drivers.
package dcmotors

import (
	"fmt"

	"github.com/antongulenko/tankdrive/speedcurve"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Command mirrors the run modes of common H-bridge drivers
type Command int

const (
	Forward Command = iota
	Backward
	Brake   // Both bridge inputs high, motor terminals shorted
	Release // Both bridge inputs low, motor coasts
)

func (c Command) String() string {
	switch c {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case Brake:
		return "brake"
	case Release:
		return "release"
	default:
		return fmt.Sprintf("Command(%d)", int(c))
	}
}

type Channel interface {
	SetSpeed(duty uint8) error
	Run(cmd Command) error
}

// Driver is a motor driver board with numbered motor outputs, starting at 1
type Driver interface {
	Init() error
	Motor(number int) (Channel, error)
}

// Array drives any number of motors. Layout lists driver motor numbers, starting with the front left
// motor, going down the left side and back up the right side. The first half of the layout is the
// left side. A negative number reverses that motor, e.g. [3, 4, 2, -1] for a motor 1 wired backwards.
type Array struct {
	Driver   Driver
	Layout   []int
	DeadZone int

	motors []Channel
	last   []*speedcurve.DCCommand
}

func ValidateLayout(layout []int) error {
	if len(layout) < 2 {
		return fmt.Errorf("Motor layout needs at least one motor per side, have %v", layout)
	}
	seen := make(map[int]bool, len(layout))
	for _, num := range layout {
		if num == 0 {
			return fmt.Errorf("Invalid motor number 0 in layout %v (motors start at 1)", layout)
		}
		if seen[abs(num)] {
			return fmt.Errorf("Motor %v used twice in layout %v", abs(num), layout)
		}
		seen[abs(num)] = true
	}
	return nil
}

func (a *Array) Attach() error {
	if err := ValidateLayout(a.Layout); err != nil {
		return err
	}
	if err := a.Driver.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize motor driver")
	}
	motors := make([]Channel, len(a.Layout))
	for i, num := range a.Layout {
		motor, err := a.Driver.Motor(abs(num))
		if err != nil {
			return err
		}
		motors[i] = motor
	}
	a.motors = motors
	a.last = make([]*speedcurve.DCCommand, len(motors))
	log.Printf("Attached %v DC motors (layout %v)", len(motors), a.Layout)
	return nil
}

func (a *Array) Detach() error {
	var err error
	for i, motor := range a.motors {
		a.last[i] = nil
		err = multierr.Append(err, errors.Wrapf(motor.SetSpeed(0), "motor %v", a.Layout[i]))
		err = multierr.Append(err, errors.Wrapf(motor.Run(Release), "motor %v", a.Layout[i]))
	}
	return err
}

func (a *Array) Move(left, right int) error {
	if a.motors == nil {
		return errors.New("DC motors are not attached")
	}
	var err error
	half := len(a.motors) / 2
	for i := range a.motors {
		speed := left
		if i >= half {
			speed = right
		}
		err = multierr.Append(err, errors.Wrapf(a.configure(i, speed), "motor %v", a.Layout[i]))
	}
	return err
}

func (a *Array) Reversed(index int) bool {
	if index < 0 || index >= len(a.Layout) {
		return false
	}
	return a.Layout[index] < 0
}

func (a *Array) configure(index int, speed int) error {
	cmd := speedcurve.Command(speed, a.Reversed(index), a.DeadZone)
	if last := a.last[index]; last != nil && *last == cmd {
		return nil
	}
	a.last[index] = nil
	motor := a.motors[index]
	log.Debugf("Motor %v: %v%% -> %v at duty %v", a.Layout[index], speed, cmd.Mode, cmd.Duty)
	if err := motor.SetSpeed(cmd.Duty); err != nil {
		return err
	}
	switch cmd.Mode {
	case speedcurve.RunForward:
		if err := motor.Run(Forward); err != nil {
			return err
		}
	case speedcurve.RunBackward:
		if err := motor.Run(Backward); err != nil {
			return err
		}
	default:
		// Too slow to turn the wheels: stop actively, then let the motor coast
		if err := motor.Run(Brake); err != nil {
			return err
		}
		if err := motor.Run(Release); err != nil {
			return err
		}
	}
	a.last[index] = &cmd
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
