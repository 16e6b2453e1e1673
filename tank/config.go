package tank

import (
	"flag"
	"fmt"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/antongulenko/tankdrive/ads1115"
	"github.com/antongulenko/tankdrive/dcmotors"
	"github.com/antongulenko/tankdrive/groveMotorDriver"
	"github.com/antongulenko/tankdrive/pca9685"
	"github.com/antongulenko/tankdrive/speedcurve"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	BackendServo     = "servo"        // Continuous rotation servos on PCA9685 outputs
	BackendGpioServo = "gpio-servo"   // Continuous rotation servos on hardware PWM pins of the host
	BackendShield    = "motor-shield" // DC motors on an Adafruit Motor Shield v2
	BackendGrove     = "grove"        // DC motors on a Grove I2C motor driver
	BackendPwmDir    = "pwm-dir"      // DC motor controllers with speed and direction inputs on a PCA9685
	BackendDummy     = "dummy"
)

var Backends = []string{BackendServo, BackendGpioServo, BackendShield, BackendGrove, BackendPwmDir, BackendDummy}

type ServoConfig struct {
	LeftOutput   int                   `yaml:"left_output"`
	RightOutput  int                   `yaml:"right_output"`
	LeftPin      string                `yaml:"left_pin"`
	RightPin     string                `yaml:"right_pin"`
	Range        speedcurve.PulseRange `yaml:"range"`
	Curve        speedcurve.Curve      `yaml:"curve"`
	ReverseLeft  bool                  `yaml:"reverse_left"`
	ReverseRight bool                  `yaml:"reverse_right"`
}

type MotorConfig struct {
	// Signed motor numbers, left side first. Negative numbers reverse a motor.
	Layout   []int `yaml:"layout"`
	DeadZone int   `yaml:"dead_zone"`
}

type Config struct {
	Backend string `yaml:"backend"`
	I2cBus  string `yaml:"i2c_bus"`  // periph.io bus name, empty for the first bus
	I2cFreq uint   `yaml:"i2c_freq"` // kHz, 0 keeps the bus default
	I2cAddr uint   `yaml:"i2c_addr"` // 0 for the default address of the backend

	Servo   ServoConfig   `yaml:"servo"`
	Motors  MotorConfig   `yaml:"motors"`
	Motion  MotionState   `yaml:"motion"`
	Battery BatteryConfig `yaml:"battery"`
}

var DefaultConfig = Config{
	Backend: BackendServo,
	I2cFreq: 400,
	Servo: ServoConfig{
		LeftOutput:   0,
		RightOutput:  1,
		LeftPin:      "GPIO12",
		RightPin:     "GPIO13",
		Range:        speedcurve.DefaultPulseRange,
		Curve:        speedcurve.Tangent,
		ReverseRight: true, // Mirrored mounting
	},
	Motors: MotorConfig{
		Layout:   []int{1, 2},
		DeadZone: speedcurve.DefaultDeadZone,
	},
	Motion: DefaultMotionState,
	Battery: BatteryConfig{
		Addr: uint(ads1115.ADDR_GND),
		Min:  6.0, // 2S LiPo
		Max:  8.4,
	},
}

func (c *Config) RegisterFlags() {
	flag.StringVar(&c.Backend, "backend", c.Backend, fmt.Sprintf("Actuator backend, one of %v", Backends))
	flag.StringVar(&c.I2cBus, "i2c", c.I2cBus, "I2C bus name or number (empty for the first available bus)")
	flag.UintVar(&c.I2cFreq, "freq", c.I2cFreq, "The I2C bus frequency in kHz (0 to keep the default)")
	flag.UintVar(&c.I2cAddr, "addr", c.I2cAddr, "I2C address of the motor or PWM driver (0 for the default of the backend)")

	flag.IntVar(&c.Servo.LeftOutput, "servoLeft", c.Servo.LeftOutput, "PCA9685 output of the left servo")
	flag.IntVar(&c.Servo.RightOutput, "servoRight", c.Servo.RightOutput, "PCA9685 output of the right servo")
	flag.StringVar(&c.Servo.LeftPin, "servoLeftPin", c.Servo.LeftPin, "Host PWM pin of the left servo (gpio-servo backend)")
	flag.StringVar(&c.Servo.RightPin, "servoRightPin", c.Servo.RightPin, "Host PWM pin of the right servo (gpio-servo backend)")
	flag.IntVar(&c.Servo.Range.Min, "pulseMin", c.Servo.Range.Min, "Servo pulse width for full speed backwards (microseconds)")
	flag.IntVar(&c.Servo.Range.Max, "pulseMax", c.Servo.Range.Max, "Servo pulse width for full speed forward (microseconds)")
	flag.Var(&c.Servo.Curve, "curve", "Servo speed curve (tangent or linear)")
	flag.BoolVar(&c.Servo.ReverseLeft, "reverseLeft", c.Servo.ReverseLeft, "Reverse the left servo")
	flag.BoolVar(&c.Servo.ReverseRight, "reverseRight", c.Servo.ReverseRight, "Reverse the right servo")

	flag.Var(layoutFlag{&c.Motors.Layout}, "motors", "Comma separated DC motor numbers, left side first, negative for reversed motors")
	flag.IntVar(&c.Motors.DeadZone, "deadZone", c.Motors.DeadZone, "DC motor speeds below this percentage coast instead of driving")

	flag.IntVar(&c.Motion.MovingSpeedPercent, "movingSpeed", c.Motion.MovingSpeedPercent, "Percentage applied to forward/backward speeds")
	flag.IntVar(&c.Motion.TurningSpeedPercent, "turningSpeed", c.Motion.TurningSpeedPercent, "Speed of both sides while turning (percent)")
	flag.IntVar(&c.Motion.TurningDelayCoefficient, "turningDelay", c.Motion.TurningDelayCoefficient, "Milliseconds of turning per degree")

	flag.UintVar(&c.Battery.Addr, "batteryAddr", c.Battery.Addr, "I2C address of the ADS1115 measuring the battery voltage")
	flag.Float64Var(&c.Battery.Min, "batteryMin", c.Battery.Min, "Battery voltage when empty")
	flag.Float64Var(&c.Battery.Max, "batteryMax", c.Battery.Max, "Battery voltage when fully charged")
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendServo:
		if err := validateOutput(c.Servo.LeftOutput); err != nil {
			return err
		}
		if err := validateOutput(c.Servo.RightOutput); err != nil {
			return err
		}
		if c.Servo.LeftOutput == c.Servo.RightOutput {
			return fmt.Errorf("Both servos use PWM output %v", c.Servo.LeftOutput)
		}
		if err := c.Servo.Range.Validate(); err != nil {
			return err
		}
	case BackendGpioServo:
		if c.Servo.LeftPin == "" || c.Servo.RightPin == "" || c.Servo.LeftPin == c.Servo.RightPin {
			return fmt.Errorf("Need two different servo pins, have '%v' and '%v'", c.Servo.LeftPin, c.Servo.RightPin)
		}
		if err := c.Servo.Range.Validate(); err != nil {
			return err
		}
	case BackendShield, BackendGrove, BackendPwmDir:
		if err := dcmotors.ValidateLayout(c.Motors.Layout); err != nil {
			return err
		}
		if c.Motors.DeadZone < 0 || c.Motors.DeadZone > speedcurve.MaxPercent {
			return fmt.Errorf("Invalid dead zone %v%% (must be 0..100)", c.Motors.DeadZone)
		}
	case BackendDummy:
	default:
		return fmt.Errorf("Unknown backend '%v', available backends: %v", c.Backend, Backends)
	}
	if c.I2cAddr > 0x7f {
		return fmt.Errorf("Invalid I2C address %#02x", c.I2cAddr)
	}
	if !validPercent(c.Motion.MovingSpeedPercent) || !validPercent(c.Motion.TurningSpeedPercent) {
		return fmt.Errorf("Invalid moving/turning speed %v%%/%v%% (must be 0..100)",
			c.Motion.MovingSpeedPercent, c.Motion.TurningSpeedPercent)
	}
	if c.Motion.TurningDelayCoefficient < 0 {
		return fmt.Errorf("Invalid turning delay %vms per degree", c.Motion.TurningDelayCoefficient)
	}
	if c.Battery.Addr > 0x7f || c.Battery.Max <= c.Battery.Min {
		return fmt.Errorf("Invalid battery monitor at %#02x (%vV..%vV)", c.Battery.Addr, c.Battery.Min, c.Battery.Max)
	}
	return nil
}

// Address returns the configured I2C address, or the default address of the backend hardware
func (c *Config) Address() byte {
	if c.I2cAddr != 0 {
		return byte(c.I2cAddr)
	}
	switch c.Backend {
	case BackendShield:
		return dcmotors.ShieldAddress
	case BackendGrove:
		return groveMotorDriver.DefaultAddress
	default:
		return pca9685.ADDRESS
	}
}

// UsesI2c is false for backends that do not need the I2C bus
func (c *Config) UsesI2c() bool {
	return c.Backend != BackendGpioServo && c.Backend != BackendDummy
}

// ParseConfig reads a YAML document. Values missing in the document keep their defaults.
func ParseConfig(data []byte) (Config, error) {
	config := DefaultConfig
	config.Motors.Layout = append([]int(nil), DefaultConfig.Motors.Layout...)
	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return config, errors.Wrap(err, "failed to parse configuration")
	}
	return config, nil
}

func LoadConfig(filename string) (Config, error) {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return DefaultConfig, err
	}
	config, err := ParseConfig(data)
	return config, errors.Wrap(err, filename)
}

func validateOutput(output int) error {
	if output < 0 || output >= pca9685.NUM_OUTPUTS {
		return fmt.Errorf("Invalid PWM output %v (must be 0..%v)", output, pca9685.NUM_OUTPUTS-1)
	}
	return nil
}

type layoutFlag struct {
	layout *[]int
}

func (f layoutFlag) String() string {
	if f.layout == nil {
		return ""
	}
	parts := make([]string, len(*f.layout))
	for i, num := range *f.layout {
		parts[i] = strconv.Itoa(num)
	}
	return strings.Join(parts, ",")
}

func (f layoutFlag) Set(value string) error {
	var layout []int
	for _, part := range strings.Split(value, ",") {
		num, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fmt.Errorf("Invalid motor number '%v': %v", part, err)
		}
		layout = append(layout, num)
	}
	*f.layout = layout
	return nil
}
