package tank

import (
	"context"
	"time"

	"github.com/antongulenko/tankdrive/maneuver"
	"github.com/antongulenko/tankdrive/speedcurve"
	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"
)

// MotionState is the commanded motion and the scale factors applied to new commands
type MotionState struct {
	// Signed -100..100, the sign is the direction. Zero while stopped or turning on the spot.
	CurrentSpeed int `yaml:"-"`

	MovingSpeedPercent  int `yaml:"moving_speed"`
	TurningSpeedPercent int `yaml:"turning_speed"`

	// Milliseconds of turning per degree
	TurningDelayCoefficient int `yaml:"turning_delay"`
}

var DefaultMotionState = MotionState{
	MovingSpeedPercent:      100,
	TurningSpeedPercent:     100,
	TurningDelayCoefficient: 7,
}

// Controller translates motion intents into backend commands. It never blocks and never starts
// goroutines: timed maneuvers end when IsManeuvering or Poll is called after the deadline.
// A Controller must only be used from one goroutine.
type Controller struct {
	backend  Backend
	uptime   *maneuver.Uptime
	timer    maneuver.Timer
	state    MotionState
	attached bool
}

// NewController does not access the backend. A nil clock uses the system clock.
func NewController(backend Backend, clk clock.Clock) *Controller {
	return &Controller{
		backend: backend,
		uptime:  maneuver.NewUptime(clk),
		state:   DefaultMotionState,
	}
}

// Attach brings up the backend and leaves the chassis stopped
func (c *Controller) Attach() error {
	if err := c.backend.Attach(); err != nil {
		return err
	}
	c.attached = true
	c.Stop()
	return nil
}

// Detach stops the chassis and releases the backend
func (c *Controller) Detach() error {
	if !c.attached {
		return nil
	}
	c.Stop()
	c.attached = false
	return c.backend.Detach()
}

func (c *Controller) Attached() bool {
	return c.attached
}

func (c *Controller) GoForward(speed int) {
	c.goStraight(clampPercent(speed))
}

func (c *Controller) GoBackward(speed int) {
	c.goStraight(-clampPercent(speed))
}

func (c *Controller) GoForwardFor(speed int, duration time.Duration, completion maneuver.Completion) {
	c.arm(maneuver.Forward, speed, duration, completion)
	c.GoForward(speed)
}

func (c *Controller) GoBackwardFor(speed int, duration time.Duration, completion maneuver.Completion) {
	c.arm(maneuver.Backward, speed, duration, completion)
	c.GoBackward(speed)
}

// Turn pivots on the spot, clockwise for positive angles. The duration is estimated from the
// turning delay coefficient, there is no feedback about the actual angle.
func (c *Controller) Turn(angle int, completion maneuver.Completion) {
	c.Stop()
	sign := 1
	if angle < 0 {
		sign = -1
	}
	speed := sign * c.state.TurningSpeedPercent
	c.drive(speed, -speed)
	duration := time.Duration(abs(angle)*c.state.TurningDelayCoefficient) * time.Millisecond
	c.arm(maneuver.Turn, angle, duration, completion)
}

// Stop abandons any maneuver without invoking its completion
func (c *Controller) Stop() {
	c.state.CurrentSpeed = 0
	c.timer.Disarm()
	c.drive(0, 0)
}

// IsMoving reports a non-zero straight speed. Turning on the spot does not count as moving.
func (c *Controller) IsMoving() bool {
	return c.state.CurrentSpeed != 0
}

// IsManeuvering polls the maneuver timer and reports whether a maneuver is still running.
// An expired maneuver stops the chassis and invokes its completion before this returns.
func (c *Controller) IsManeuvering() bool {
	c.Poll()
	return c.timer.Armed()
}

// Poll ends an expired maneuver and reports whether that happened
func (c *Controller) Poll() bool {
	expired, ok := c.timer.Poll(c.uptime.Millis())
	if !ok {
		return false
	}
	log.Debugf("Maneuver %v finished", expired.Maneuver)
	c.Stop()
	expired.Fire()
	return true
}

// Wait polls until no maneuver is running. The chassis is stopped if ctx is done first.
func (c *Controller) Wait(ctx context.Context, interval time.Duration) error {
	ticker := c.uptime.Clock().Ticker(interval)
	defer ticker.Stop()
	for c.IsManeuvering() {
		select {
		case <-ctx.Done():
			c.Stop()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (c *Controller) SetMovingSpeedPercent(percent int) {
	if validPercent(percent) {
		c.state.MovingSpeedPercent = percent
	} else {
		log.Debugf("Ignoring invalid moving speed %v%%", percent)
	}
}

func (c *Controller) SetTurningSpeedPercent(percent int) {
	if validPercent(percent) {
		c.state.TurningSpeedPercent = percent
	} else {
		log.Debugf("Ignoring invalid turning speed %v%%", percent)
	}
}

// SetTurningDelayCoefficient ignores negative values
func (c *Controller) SetTurningDelayCoefficient(msPerDegree int) {
	if msPerDegree >= 0 {
		c.state.TurningDelayCoefficient = msPerDegree
	} else {
		log.Debugf("Ignoring invalid turning delay %vms per degree", msPerDegree)
	}
}

func (c *Controller) Speed() int {
	return c.state.CurrentSpeed
}

func (c *Controller) MovingSpeedPercent() int {
	return c.state.MovingSpeedPercent
}

func (c *Controller) TurningSpeedPercent() int {
	return c.state.TurningSpeedPercent
}

func (c *Controller) TurningDelayCoefficient() int {
	return c.state.TurningDelayCoefficient
}

// Maneuver returns the running maneuver, without polling the timer
func (c *Controller) Maneuver() (maneuver.Maneuver, bool) {
	return c.timer.Current()
}

func (c *Controller) State() MotionState {
	return c.state
}

func (c *Controller) goStraight(speed int) {
	if speed == c.state.CurrentSpeed {
		return
	}
	c.state.CurrentSpeed = speed
	scaled := speed * c.state.MovingSpeedPercent / speedcurve.MaxPercent
	c.drive(scaled, scaled)
}

func (c *Controller) arm(kind maneuver.Kind, param int, duration time.Duration, completion maneuver.Completion) {
	m := maneuver.Maneuver{Kind: kind, Param: param, Duration: duration}
	log.Debugf("Starting maneuver %v", m)
	c.timer.Arm(c.uptime.Millis(), m, completion)
}

func (c *Controller) drive(left, right int) {
	if !c.attached {
		log.Debugf("Backend not attached, skipping move to %v%%/%v%%", left, right)
		return
	}
	if err := c.backend.Move(left, right); err != nil {
		log.Errorf("Failed to move to %v%%/%v%%: %v", left, right, err)
	}
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > speedcurve.MaxPercent {
		return speedcurve.MaxPercent
	}
	return v
}

func validPercent(v int) bool {
	return v >= 0 && v <= speedcurve.MaxPercent
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
