package speedcurve

import (
	"fmt"
	"math"
)

const (
	MaxDuty = 255

	// Below this speed, DC motors do not get enough current to overcome static friction
	DefaultDeadZone = 10
)

type RunMode int

const (
	RunForward RunMode = iota
	RunBackward
	RunCoast // Brake, then release
)

func (m RunMode) String() string {
	switch m {
	case RunForward:
		return "forward"
	case RunBackward:
		return "backward"
	case RunCoast:
		return "coast"
	default:
		return fmt.Sprintf("RunMode(%d)", int(m))
	}
}

// DCCommand is what a single DC motor channel receives for one speed value.
type DCCommand struct {
	Duty uint8
	Mode RunMode
}

// Duty maps the magnitude of a speed percentage to 0..255
func Duty(speedPercent int) uint8 {
	v := math.Round(MaxDuty * float64(abs(Clamp(speedPercent))) / MaxPercent)
	return uint8(math.Max(0, math.Min(MaxDuty, v)))
}

// Backward reports the effective direction of a channel. Reversed channels are wired with
// inverted polarity.
func Backward(speedPercent int, reversed bool) bool {
	return (speedPercent < 0) != reversed
}

// Command computes duty and run mode for one DC motor channel. Speeds inside the dead zone coast
// instead of driving at a duty cycle too low to move the wheels.
func Command(speedPercent int, reversed bool, deadZone int) DCCommand {
	cmd := DCCommand{
		Duty: Duty(speedPercent),
	}
	switch {
	case speedPercent == 0 || abs(speedPercent) < deadZone:
		cmd.Mode = RunCoast
	case Backward(speedPercent, reversed):
		cmd.Mode = RunBackward
	default:
		cmd.Mode = RunForward
	}
	return cmd
}
