// Package tank contains the motion controller of a two-sided tank chassis and the setup of its
// actuator backends.
package tank

import (
	"flag"
	"fmt"

	"github.com/antongulenko/golib"
	"github.com/antongulenko/tankdrive/dcmotors"
	"github.com/antongulenko/tankdrive/i2cbus"
	"github.com/antongulenko/tankdrive/pca9685"
	"github.com/antongulenko/tankdrive/servos"
	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"
)

var DefaultTank = Tank{
	Config: DefaultConfig,
}

// Tank builds the configured backend and an attached Controller for it
type Tank struct {
	Config
	ConfigFile string
	Dummy      bool // Use a dummy I2C bus that only logs

	Clock clock.Clock // System clock if nil

	Bus        i2cbus.Bus
	Actuators  Backend
	Controller *Controller
}

func (t *Tank) RegisterFlags() {
	t.Config.RegisterFlags()
	flag.StringVar(&t.ConfigFile, "config", t.ConfigFile, "YAML configuration file, command line flags take precedence")
	flag.BoolVar(&t.Dummy, "dummy", t.Dummy, "Disable I2C/GPIO peripherals, only output commands")
}

func (t *Tank) Setup() error {
	if t.ConfigFile != "" {
		if err := t.loadConfigFile(); err != nil {
			return err
		}
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if t.UsesI2c() {
		if err := t.openBus(); err != nil {
			return err
		}
	}
	backend, err := t.makeBackend()
	if err != nil {
		return err
	}
	t.Actuators = backend

	c := NewController(backend, t.Clock)
	c.SetMovingSpeedPercent(t.Motion.MovingSpeedPercent)
	c.SetTurningSpeedPercent(t.Motion.TurningSpeedPercent)
	c.SetTurningDelayCoefficient(t.Motion.TurningDelayCoefficient)
	if err := c.Attach(); err != nil {
		return err
	}
	t.Controller = c
	log.Printf("Successfully initialized %v backend", t.Config.Backend)
	return nil
}

func (t *Tank) Cleanup() {
	if t.Controller != nil {
		golib.Printerr(t.Controller.Detach())
	}
	if t.Bus != nil {
		golib.Printerr(t.Bus.Close())
	}
}

func (t *Tank) openBus() error {
	if t.Dummy {
		log.Println("Dummy tank: not accessing the I2C bus")
		t.Bus = new(i2cbus.Dummy)
		return nil
	}
	bus, err := i2cbus.Open(t.I2cBus, t.I2cFreq)
	if err != nil {
		return err
	}
	t.Bus = bus
	return nil
}

func (t *Tank) makeBackend() (Backend, error) {
	addr := t.Address()
	switch t.Backend {
	case BackendServo:
		dev := &pca9685.Device{Bus: t.Bus, Addr: addr, Frequency: pca9685.SERVO_FREQUENCY}
		return t.twoServo(
			&servos.PwmChannel{Device: dev, Output: t.Servo.LeftOutput},
			&servos.PwmChannel{Device: dev, Output: t.Servo.RightOutput}), nil
	case BackendGpioServo:
		if t.Dummy {
			log.Println("Dummy tank: not accessing GPIO pins, using dummy backend")
			return new(DummyBackend), nil
		}
		return t.twoServo(
			&servos.GpioPin{Name: t.Servo.LeftPin},
			&servos.GpioPin{Name: t.Servo.RightPin}), nil
	case BackendShield:
		return t.motorArray(dcmotors.NewShield(t.Bus, addr)), nil
	case BackendGrove:
		return t.motorArray(dcmotors.NewGrove(t.Bus, addr)), nil
	case BackendPwmDir:
		motors := 0
		for _, num := range t.Motors.Layout {
			if num < 0 {
				num = -num
			}
			if num > motors {
				motors = num
			}
		}
		return t.motorArray(dcmotors.NewPwmDir(t.Bus, addr, motors)), nil
	case BackendDummy:
		return new(DummyBackend), nil
	default:
		return nil, fmt.Errorf("Unknown backend '%v'", t.Backend)
	}
}

func (t *Tank) twoServo(left, right servos.PulseOutput) *servos.TwoServo {
	return &servos.TwoServo{
		Left:         left,
		Right:        right,
		Range:        t.Servo.Range,
		Curve:        t.Servo.Curve,
		ReverseLeft:  t.Servo.ReverseLeft,
		ReverseRight: t.Servo.ReverseRight,
	}
}

func (t *Tank) motorArray(driver dcmotors.Driver) *dcmotors.Array {
	return &dcmotors.Array{
		Driver:   driver,
		Layout:   t.Motors.Layout,
		DeadZone: t.Motors.DeadZone,
	}
}

// Values from the file replace the current configuration, except for flags given on the command line.
func (t *Tank) loadConfigFile() error {
	config, err := LoadConfig(t.ConfigFile)
	if err != nil {
		return err
	}
	overrides := make(map[string]string)
	flag.Visit(func(f *flag.Flag) {
		overrides[f.Name] = f.Value.String()
	})
	t.Config = config
	applied := 0
	for name, value := range overrides {
		if flag.Lookup(name).Value.String() == value {
			continue
		}
		if err := flag.Set(name, value); err != nil {
			return err
		}
		applied++
	}
	log.Printf("Loaded configuration from %v (%v command line override(s))", t.ConfigFile, applied)
	return nil
}
