// Package servos drives a tank chassis with one continuous rotation servo per side.
package servos

import (
	"time"

	"github.com/antongulenko/tankdrive/speedcurve"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// PulseOutput generates the control pulses for one servo
type PulseOutput interface {
	Enable() error
	SetPulse(width time.Duration) error
	Disable() error // No more pulses, the servo goes limp
}

// TwoServo translates left/right speed percentages into pulse widths.
// The right servo is usually mounted mirrored, so ReverseRight is normally set.
type TwoServo struct {
	Left, Right  PulseOutput
	Range        speedcurve.PulseRange
	Curve        speedcurve.Curve
	ReverseLeft  bool
	ReverseRight bool

	lastPulse [2]time.Duration // Zero means unknown
}

func (s *TwoServo) Attach() error {
	s.lastPulse = [2]time.Duration{}
	if err := s.Left.Enable(); err != nil {
		return errors.Wrap(err, "failed to attach left servo")
	}
	if err := s.Right.Enable(); err != nil {
		return errors.Wrap(err, "failed to attach right servo")
	}
	return nil
}

func (s *TwoServo) Detach() error {
	s.lastPulse = [2]time.Duration{}
	return multierr.Combine(
		errors.Wrap(s.Left.Disable(), "failed to detach left servo"),
		errors.Wrap(s.Right.Disable(), "failed to detach right servo"))
}

func (s *TwoServo) Move(left, right int) error {
	return multierr.Combine(
		errors.Wrap(s.set(0, s.Left, left, s.ReverseLeft), "left servo"),
		errors.Wrap(s.set(1, s.Right, right, s.ReverseRight), "right servo"))
}

// Pulses returns the pulse widths for the given speeds without writing them
func (s *TwoServo) Pulses(left, right int) (time.Duration, time.Duration) {
	return s.pulse(left, s.ReverseLeft), s.pulse(right, s.ReverseRight)
}

func (s *TwoServo) pulse(speed int, reversed bool) time.Duration {
	if reversed {
		speed = -speed
	}
	return s.Range.Pulse(s.Curve, speed)
}

func (s *TwoServo) set(index int, out PulseOutput, speed int, reversed bool) error {
	pulse := s.pulse(speed, reversed)
	if s.lastPulse[index] == pulse {
		return nil
	}
	log.Debugf("Servo %v: %v%% -> %v", index, speed, pulse)
	if err := out.SetPulse(pulse); err != nil {
		s.lastPulse[index] = 0
		return err
	}
	s.lastPulse[index] = pulse
	return nil
}
