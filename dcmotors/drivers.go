package dcmotors

import (
	"fmt"

	"github.com/antongulenko/tankdrive/groveMotorDriver"
	"github.com/antongulenko/tankdrive/i2cbus"
	"github.com/antongulenko/tankdrive/pca9685"
)

const ShieldAddress = byte(0x60)

// PCA9685 outputs of one motor on the Adafruit Motor Shield v2
type shieldPins struct {
	pwm, in1, in2 int
}

var shieldLayout = map[int]shieldPins{
	1: {pwm: 8, in1: 10, in2: 9},
	2: {pwm: 13, in1: 11, in2: 12},
	3: {pwm: 2, in1: 4, in2: 3},
	4: {pwm: 7, in1: 5, in2: 6},
}

// Shield is an Adafruit Motor Shield v2: a PCA9685 driving two TB6612 H-bridges for motors 1..4.
type Shield struct {
	Device *pca9685.Device
}

func NewShield(bus i2cbus.Bus, addr byte) *Shield {
	return &Shield{
		Device: &pca9685.Device{
			Bus:       bus,
			Addr:      addr,
			Frequency: pca9685.MOTOR_FREQUENCY,
		},
	}
}

func (s *Shield) Init() error {
	return s.Device.Init()
}

func (s *Shield) Motor(number int) (Channel, error) {
	pins, ok := shieldLayout[number]
	if !ok {
		return nil, fmt.Errorf("Invalid motor shield motor %v (must be 1..4)", number)
	}
	return &shieldMotor{device: s.Device, pins: pins}, nil
}

type shieldMotor struct {
	device *pca9685.Device
	pins   shieldPins
}

func (m *shieldMotor) SetSpeed(duty uint8) error {
	// 8 bit duty scaled to the 12 bit PWM timer
	return m.device.Set(m.pins.pwm, float64(duty)*16/pca9685.TIMER_RESOLUTION)
}

func (m *shieldMotor) Run(cmd Command) error {
	var in1, in2 float64
	switch cmd {
	case Forward:
		in1 = 1
	case Backward:
		in2 = 1
	case Brake:
		in1, in2 = 1, 1
	case Release:
	default:
		return fmt.Errorf("Invalid motor command %v", cmd)
	}
	if err := m.device.Stage(m.pins.in1, in1); err != nil {
		return err
	}
	if err := m.device.Stage(m.pins.in2, in2); err != nil {
		return err
	}
	return m.device.Flush()
}

// Grove is a Grove I2C motor driver with motors 1 (A) and 2 (B).
type Grove struct {
	Driver *groveMotorDriver.Driver
}

func NewGrove(bus i2cbus.Bus, addr byte) *Grove {
	return &Grove{
		Driver: &groveMotorDriver.Driver{Bus: bus, Addr: addr},
	}
}

func (g *Grove) Init() error {
	return g.Driver.Init()
}

func (g *Grove) Motor(number int) (Channel, error) {
	if number != groveMotorDriver.MotorA && number != groveMotorDriver.MotorB {
		return nil, fmt.Errorf("Invalid Grove motor %v (must be 1 or 2)", number)
	}
	return &groveMotor{driver: g.Driver, number: number}, nil
}

// Speed and direction are sent in one command, so the speed is applied by the next Run.
type groveMotor struct {
	driver *groveMotorDriver.Driver
	number int
	speed  byte

	sent      bool
	sentDir   byte
	sentSpeed byte
}

func (m *groveMotor) SetSpeed(duty uint8) error {
	m.speed = duty
	return nil
}

func (m *groveMotor) Run(cmd Command) error {
	var dir byte
	switch cmd {
	case Forward:
		dir = groveMotorDriver.DirClockwise
	case Backward:
		dir = groveMotorDriver.DirAntiClockwise
	case Brake, Release:
		dir = groveMotorDriver.DirStop
	default:
		return fmt.Errorf("Invalid motor command %v", cmd)
	}
	if m.sent && m.sentDir == dir && m.sentSpeed == m.speed {
		return nil
	}
	m.sent = false
	if err := m.driver.SetMotor(m.number, m.speed, dir); err != nil {
		return err
	}
	m.sent, m.sentDir, m.sentSpeed = true, dir, m.speed
	return nil
}
