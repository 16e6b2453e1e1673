package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/antongulenko/golib"
	"github.com/antongulenko/tankdrive/maneuver"
	"github.com/antongulenko/tankdrive/tank"
	log "github.com/sirupsen/logrus"
	"github.com/splace/joysticks"
)

func main() {
	control := joystickControl{
		joystickIndex:         1,
		joystickRetryDuration: 2 * time.Second,
		speedAxis: SpeedAxis{
			AxisNumber:      1,
			UseY:            true,
			Invert:          true,
			ZeroFrom:        -0.15,
			ZeroTo:          0.1,
			ScaleZeroFromTo: true,
		},
		turnLeftButton:  3,
		turnRightButton: 4,
		stopButton:      1,
		turnAngle:       90,
		pollInterval:    20 * time.Millisecond,
		tank:            tank.DefaultTank,
		commands:        make(chan func(c *tank.Controller), 16),
	}
	control.registerFlags()
	golib.RegisterFlags(golib.FlagsAll)
	flag.Parse()
	golib.ConfigureLogging()
	_, err := control.buttonCommands()
	golib.Checkerr(err)

	// "Clean" shutdown with Ctrl-C signal
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	golib.Checkerr(control.tank.Setup())
	defer control.tank.Cleanup()
	go control.waitAndInitJoystick(ctx)
	control.controlLoop(ctx)
	log.Println("Shutting down")
}

// joystickControl owns the tank controller in a single control loop. Joystick events arrive on
// separate goroutines and are queued as commands for that loop.
type joystickControl struct {
	joystickIndex         int
	joystickRetryDuration time.Duration

	speedAxis       SpeedAxis
	turnLeftButton  int
	turnRightButton int
	stopButton      int
	turnAngle       int
	pollInterval    time.Duration

	tank     tank.Tank
	commands chan func(c *tank.Controller)

	// Last speed requested through the axis, resumed after turns. Only used in the control loop.
	axisSpeed int
}

func (j *joystickControl) registerFlags() {
	j.tank.RegisterFlags()
	j.speedAxis.RegisterFlags("speedAxis", "forward/backward speed")
	flag.IntVar(&j.joystickIndex, "js", j.joystickIndex, "Joystick device index")
	flag.DurationVar(&j.joystickRetryDuration, "js-retry", j.joystickRetryDuration, "Time to retry joystick initialization")
	flag.IntVar(&j.turnLeftButton, "turnLeftButton", j.turnLeftButton, "Joystick button index for turning left")
	flag.IntVar(&j.turnRightButton, "turnRightButton", j.turnRightButton, "Joystick button index for turning right")
	flag.IntVar(&j.stopButton, "stopButton", j.stopButton, "Joystick button index for stopping")
	flag.IntVar(&j.turnAngle, "turnAngle", j.turnAngle, "Angle for one press of a turn button")
	flag.DurationVar(&j.pollInterval, "poll", j.pollInterval, "Interval for checking running maneuvers")
}

func (j *joystickControl) controlLoop(ctx context.Context) {
	ticker := time.NewTicker(j.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-j.commands:
			cmd(j.tank.Controller)
		case <-ticker.C:
			j.tank.Controller.Poll()
		}
	}
}

func (j *joystickControl) enqueue(ctx context.Context, cmd func(c *tank.Controller)) {
	select {
	case j.commands <- cmd:
	case <-ctx.Done():
	}
}

func (j *joystickControl) waitAndInitJoystick(ctx context.Context) {
	// Wait until the joystick can be initialized successfully
	var js *joysticks.HID
	for {
		var err error
		if js, err = j.setupJoystick(ctx); err == nil {
			break
		}
		log.Errorf("Failed to setup joystick: %v. Retrying in %v...", err, j.joystickRetryDuration)
		select {
		case <-ctx.Done():
			return
		case <-time.After(j.joystickRetryDuration):
		}
	}
	log.Printf("Opened joystick device index %v (%v buttons, %v axes, %v events)",
		j.joystickIndex, len(js.Buttons), len(js.HatAxes), len(js.Events))
	js.ParcelOutEvents() // Does not return
}

func (j *joystickControl) setupJoystick(ctx context.Context) (*joysticks.HID, error) {
	buttons, err := j.buttonCommands()
	if err != nil {
		return nil, err
	}
	js := joysticks.Connect(j.joystickIndex)
	if js == nil {
		return nil, fmt.Errorf("Failed to open joystick with index %v", j.joystickIndex)
	}
	for button := range buttons {
		if !js.ButtonExists(uint8(button)) {
			return nil, fmt.Errorf("Button %v does not exist on joystick", button)
		}
	}
	if err := j.speedAxis.Notify(js, func(speed int) {
		j.enqueue(ctx, func(c *tank.Controller) { j.setSpeed(c, speed) })
	}); err != nil {
		return nil, err
	}
	for button, cmd := range buttons {
		pressed := js.OnButton(uint8(button))
		go func(cmd func(c *tank.Controller)) {
			for range pressed {
				j.enqueue(ctx, cmd)
			}
		}(cmd)
	}
	return js, nil
}

func (j *joystickControl) buttonCommands() (map[int]func(c *tank.Controller), error) {
	bindings := []struct {
		button int
		name   string
		cmd    func(c *tank.Controller)
	}{
		{j.turnLeftButton, "turn left", func(c *tank.Controller) { j.turn(c, -j.turnAngle) }},
		{j.turnRightButton, "turn right", func(c *tank.Controller) { j.turn(c, j.turnAngle) }},
		{j.stopButton, "stop", j.stop},
	}
	buttons := make(map[int]func(c *tank.Controller), len(bindings))
	names := make(map[int]string, len(bindings))
	for _, b := range bindings {
		if other, ok := names[b.button]; ok {
			return nil, fmt.Errorf("Button %v is used for both %v and %v", b.button, other, b.name)
		}
		names[b.button] = b.name
		buttons[b.button] = b.cmd
	}
	return buttons, nil
}

// setSpeed drives straight, unless a turn is running. The speed is then resumed after the turn.
func (j *joystickControl) setSpeed(c *tank.Controller, speed int) {
	j.axisSpeed = speed
	if c.IsManeuvering() {
		return
	}
	j.drive(c, speed)
}

func (j *joystickControl) drive(c *tank.Controller, speed int) {
	if speed >= 0 {
		c.GoForward(speed)
	} else {
		c.GoBackward(-speed)
	}
}

func (j *joystickControl) turn(c *tank.Controller, angle int) {
	c.Turn(angle, func(m maneuver.Maneuver) {
		log.Debugf("Finished %v, resuming speed %v%%", m, j.axisSpeed)
		j.drive(c, j.axisSpeed)
	})
}

// stop also forgets the axis speed, the chassis stays stopped until the axis moves again
func (j *joystickControl) stop(c *tank.Controller) {
	j.axisSpeed = 0
	c.Stop()
}
