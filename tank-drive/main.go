package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/antongulenko/golib"
	"github.com/antongulenko/tankdrive/i2cbus"
	"github.com/antongulenko/tankdrive/maneuver"
	"github.com/antongulenko/tankdrive/tank"
	log "github.com/sirupsen/logrus"
)

type commandFunc func(ctx context.Context, c *tank.Controller) error

var (
	t            = tank.DefaultTank
	command      = "scan"
	speed        = 50
	duration     = time.Second
	angle        = 90
	rounds       = 4
	pollInterval = 10 * time.Millisecond
	commands     = map[string]commandFunc{
		"none":     func(context.Context, *tank.Controller) error { return nil },
		"forward":  forward,
		"backward": backward,
		"turn":     turn,
		"stop":     stop,
		"patrol":   patrol,
		"battery":  battery,
	}
)

func main() {
	t.RegisterFlags()
	flag.StringVar(&command, "c", command, fmt.Sprintf("Command to execute, one of: %v", commandNames()))
	flag.IntVar(&speed, "speed", speed, "Speed for forward/backward commands (0..100)")
	flag.DurationVar(&duration, "duration", duration, "Duration of forward/backward commands")
	flag.IntVar(&angle, "angle", angle, "Angle for turn commands, positive angles turn clockwise")
	flag.IntVar(&rounds, "rounds", rounds, "Number of forward+turn rounds for the patrol command")
	flag.DurationVar(&pollInterval, "poll", pollInterval, "Interval for checking running maneuvers")
	golib.RegisterFlags(golib.FlagsAll)
	flag.Parse()
	golib.ConfigureLogging()
	golib.Checkerr(doMain())
}

func commandNames() []string {
	names := []string{"scan"}
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func doMain() error {
	if command == "scan" {
		return scan()
	}
	commandFunc, ok := commands[command]
	if !ok {
		return fmt.Errorf("Unknown command %v, available commands: %v", command, commandNames())
	}

	// Stop the chassis on Ctrl-C
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := t.Setup(); err != nil {
		return err
	}
	defer t.Cleanup()
	return commandFunc(ctx, t.Controller)
}

func scan() error {
	var bus i2cbus.Bus
	if t.Dummy {
		bus = new(i2cbus.Dummy)
	} else {
		periphBus, err := i2cbus.Open(t.I2cBus, t.I2cFreq)
		if err != nil {
			return err
		}
		bus = periphBus
	}
	defer func() {
		golib.Printerr(bus.Close())
	}()
	slaves := i2cbus.Scan(bus)
	log.Printf("Scanned %v slave(s): %#02x", len(slaves), slaves)
	return nil
}

func battery(_ context.Context, _ *tank.Controller) error {
	monitor, err := t.BatteryMonitor()
	if err != nil {
		return err
	}
	volt, err := monitor.Voltage()
	if err != nil {
		return err
	}
	log.Printf("Battery percentage: %.2f%% (%.2fV)", monitor.Percentage(volt)*100, volt)
	return nil
}

func logCompletion(m maneuver.Maneuver) {
	log.Printf("Finished %v", m)
}

func forward(ctx context.Context, c *tank.Controller) error {
	c.GoForwardFor(speed, duration, logCompletion)
	return c.Wait(ctx, pollInterval)
}

func backward(ctx context.Context, c *tank.Controller) error {
	c.GoBackwardFor(speed, duration, logCompletion)
	return c.Wait(ctx, pollInterval)
}

func turn(ctx context.Context, c *tank.Controller) error {
	c.Turn(angle, logCompletion)
	return c.Wait(ctx, pollInterval)
}

func stop(_ context.Context, c *tank.Controller) error {
	c.Stop()
	return nil
}

// Drive forward and turn, for the configured number of rounds. Each maneuver is started by the
// completion of the previous one.
func patrol(ctx context.Context, c *tank.Controller) error {
	round := 0
	var next maneuver.Completion
	next = func(m maneuver.Maneuver) {
		logCompletion(m)
		if m.Kind != maneuver.Turn {
			c.Turn(angle, next)
			return
		}
		round++
		if round < rounds {
			log.Printf("Patrol round %v of %v", round+1, rounds)
			c.GoForwardFor(speed, duration, next)
		}
	}
	if rounds <= 0 {
		return nil
	}
	log.Printf("Patrol round 1 of %v", rounds)
	c.GoForwardFor(speed, duration, next)
	return c.Wait(ctx, pollInterval)
}
